package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"compasseval/internal/dataset"
)

// canonicalCase fixes field order and nil handling for hashing.
type canonicalCase struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Trajectory []string `json:"trajectory"`
}

// Fingerprint returns a SHA-256 hex digest of the cases in order.
func Fingerprint(cases []dataset.Case) (string, error) {
	canonical := make([]canonicalCase, 0, len(cases))
	for _, item := range cases {
		steps := item.Trajectory
		if steps == nil {
			steps = []string{}
		}
		canonical = append(canonical, canonicalCase{Question: item.Question, Answer: item.Answer, Trajectory: steps})
	}
	data, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("fingerprint cases: %w", err)
	}
	return fingerprintBytes(data), nil
}

func fingerprintBytes(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func encodeTrajectory(steps []string) (string, error) {
	if steps == nil {
		steps = []string{}
	}
	data, err := json.Marshal(steps)
	if err != nil {
		return "", fmt.Errorf("encode trajectory: %w", err)
	}
	return string(data), nil
}

func decodeTrajectory(raw string) ([]string, error) {
	var steps []string
	if err := json.Unmarshal([]byte(raw), &steps); err != nil {
		return nil, fmt.Errorf("decode trajectory: %w", err)
	}
	return steps, nil
}
