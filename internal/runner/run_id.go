package runner

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// runIDLayout sorts lexically in start order.
const runIDLayout = "20060102T150405Z"

// NewRunID returns "<UTC start time>-<12 hex chars>".
func NewRunID() (string, error) {
	return runIDAt(time.Now(), uuid.NewRandom)
}

func runIDAt(now time.Time, random func() (uuid.UUID, error)) (string, error) {
	id, err := random()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	suffix := strings.ReplaceAll(id.String(), "-", "")[:12]
	return now.UTC().Format(runIDLayout) + "-" + suffix, nil
}
