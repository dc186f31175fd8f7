package gasreport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Plan is an ordered list of Compass transaction requests sent one after another.
type Plan struct {
	Steps []Step `yaml:"steps"`
}

// Step is one transaction-building request.
type Step struct {
	Name string         `yaml:"name"`
	Path string         `yaml:"path"`
	Body map[string]any `yaml:"body"`
}

// PlanError lists every problem found in a plan file.
type PlanError struct {
	Path   string
	Issues []string
}

func (err *PlanError) Error() string {
	return fmt.Sprintf("plan %s is malformed: %s", err.Path, strings.Join(err.Issues, "; "))
}

// LoadPlan reads a YAML plan. Step names default to the endpoint path and a
// missing body is sent as an empty object.
func LoadPlan(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("read plan: %w", err)
	}
	return ParsePlan(path, data)
}

// ParsePlan decodes and validates plan data; path only labels errors.
func ParsePlan(path string, data []byte) (Plan, error) {
	var plan Plan
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&plan); err != nil && !errors.Is(err, io.EOF) {
		return Plan{}, fmt.Errorf("parse plan %s: %w", path, err)
	}

	var issues []string
	if len(plan.Steps) == 0 {
		issues = append(issues, "steps: at least one step is required")
	}
	for i := range plan.Steps {
		step := &plan.Steps[i]
		step.Path = strings.TrimSpace(step.Path)
		step.Name = strings.TrimSpace(step.Name)
		switch {
		case step.Path == "":
			issues = append(issues, fmt.Sprintf("steps[%d].path: is required", i))
		case !strings.HasPrefix(step.Path, "/"):
			issues = append(issues, fmt.Sprintf("steps[%d].path: must start with /", i))
		}
		if step.Name == "" {
			step.Name = step.Path
		}
		if step.Body == nil {
			step.Body = map[string]any{}
		}
	}
	if len(issues) > 0 {
		return Plan{}, &PlanError{Path: path, Issues: issues}
	}
	return plan, nil
}
