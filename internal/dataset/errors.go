package dataset

import (
	"fmt"
	"strings"
)

// Issue captures a single problem found in a fixture.
type Issue struct {
	Field   string
	Message string
}

// FormatError reports a malformed fixture. It lists every issue found.
type FormatError struct {
	Path   string
	Issues []Issue
}

// Error returns a readable message for format failures.
func (err *FormatError) Error() string {
	if err == nil || len(err.Issues) == 0 {
		return ""
	}
	parts := make([]string, 0, len(err.Issues))
	for _, issue := range err.Issues {
		if issue.Field == "" {
			parts = append(parts, issue.Message)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	return fmt.Sprintf("dataset %s is malformed: %s", err.Path, strings.Join(parts, "; "))
}

type issueCollector struct {
	path   string
	issues []Issue
}

func (collector *issueCollector) add(field, message string) {
	collector.issues = append(collector.issues, Issue{Field: field, Message: message})
}

func (collector *issueCollector) result() error {
	if len(collector.issues) == 0 {
		return nil
	}
	return &FormatError{Path: collector.path, Issues: collector.issues}
}
