package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ToolCallArgs holds decoded JSON arguments for a tool call.
type ToolCallArgs map[string]json.RawMessage

// RequiredString returns a required string argument.
func (args ToolCallArgs) RequiredString(key string) (string, error) {
	value, ok, err := args.OptionalString(key)
	if err != nil {
		return "", err
	}
	if !ok || value == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return value, nil
}

// OptionalString returns an optional string argument with a presence flag.
func (args ToolCallArgs) OptionalString(key string) (string, bool, error) {
	raw, ok := args.raw(key)
	if !ok {
		return "", false, nil
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false, fmt.Errorf("%s must be a string", key)
	}
	return strings.TrimSpace(value), true, nil
}

// Scalar renders a string, number or boolean argument as text.
// Objects and arrays are rejected.
func (args ToolCallArgs) Scalar(key string) (string, bool, error) {
	raw, ok := args.raw(key)
	if !ok {
		return "", false, nil
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false, fmt.Errorf("%s is not valid JSON", key)
	}
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed), true, nil
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), true, nil
	case bool:
		return strconv.FormatBool(typed), true, nil
	default:
		return "", false, fmt.Errorf("%s must be a scalar value", key)
	}
}

func (args ToolCallArgs) raw(key string) (json.RawMessage, bool) {
	raw, ok := args[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}
