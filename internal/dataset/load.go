package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads, checks and decodes a fixture file. Cases are returned in file order.
func LoadFile(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes fixture bytes. The path selects the format and labels errors.
func Parse(data []byte, path string) ([]Case, error) {
	collector := &issueCollector{path: path}
	isJSON := strings.EqualFold(filepath.Ext(path), ".json")

	raw, err := decodeRaw(data, isJSON)
	if err != nil {
		collector.add("", err.Error())
		return nil, collector.result()
	}
	if err := checkSchema(raw, collector); err != nil {
		collector.add("", err.Error())
		return nil, collector.result()
	}
	if err := collector.result(); err != nil {
		return nil, err
	}

	var fixture Fixture
	if isJSON {
		err = decodeJSON(data, &fixture)
	} else {
		err = decodeYAML(data, &fixture)
	}
	if err != nil {
		collector.add("", err.Error())
		return nil, collector.result()
	}

	cases := normalizeCases(fixture.Tests, collector)
	if err := collector.result(); err != nil {
		return nil, err
	}
	return cases, nil
}

func normalizeCases(tests []Case, collector *issueCollector) []Case {
	cases := make([]Case, 0, len(tests))
	for i, tc := range tests {
		prefix := fmt.Sprintf("tests[%d]", i)
		tc.Question = strings.TrimSpace(tc.Question)
		if tc.Question == "" {
			collector.add(prefix+".question", "is required")
		}
		trajectory := make([]string, 0, len(tc.Trajectory))
		for step, name := range tc.Trajectory {
			name = strings.TrimSpace(name)
			if name == "" {
				collector.add(fmt.Sprintf("%s.trajectory[%d]", prefix, step), "is required")
			}
			trajectory = append(trajectory, name)
		}
		tc.Trajectory = trajectory
		cases = append(cases, tc)
	}
	return cases
}

func decodeRaw(data []byte, isJSON bool) (any, error) {
	var raw any
	if isJSON {
		if err := decodeJSON(data, &raw); err != nil {
			return nil, err
		}
		return raw, nil
	}
	if err := decodeYAML(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func decodeJSON(data []byte, target any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("parse json: file is empty")
		}
		return fmt.Errorf("parse json: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return fmt.Errorf("parse json: multiple documents are not supported")
		}
		return fmt.Errorf("parse json: %w", err)
	}
	return nil
}

func decodeYAML(data []byte, target any) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("parse yaml: file is empty")
		}
		return fmt.Errorf("parse yaml: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return fmt.Errorf("parse yaml: multiple documents are not supported")
		}
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}
