package agent

import "sort"

// ToolSchema is the JSON schema subset chat providers accept for tool parameters.
type ToolSchema struct {
	Type                 string                `json:"type,omitempty"`
	Description          string                `json:"description,omitempty"`
	Enum                 []string              `json:"enum,omitempty"`
	Properties           map[string]ToolSchema `json:"properties,omitempty"`
	Items                *ToolSchema           `json:"items,omitempty"`
	Required             []string              `json:"required,omitempty"`
	AdditionalProperties *bool                 `json:"additionalProperties,omitempty"`
}

// EmptyObjectSchema accepts any object. Providers reject tools without parameters.
func EmptyObjectSchema() *ToolSchema {
	return &ToolSchema{Type: "object"}
}

// ObjectBuilder assembles an object schema one property at a time.
type ObjectBuilder struct {
	properties map[string]ToolSchema
	required   []string
}

// Field adds a scalar property. Enum values, when given, restrict it.
func (b *ObjectBuilder) Field(name, kind, description string, required bool, enum ...string) *ObjectBuilder {
	if b.properties == nil {
		b.properties = map[string]ToolSchema{}
	}
	b.properties[name] = ToolSchema{Type: kind, Description: description, Enum: enum}
	if required {
		b.required = append(b.required, name)
	}
	return b
}

// Closed returns the schema with additional properties disallowed.
// Required names are sorted so the payload is stable across runs.
func (b *ObjectBuilder) Closed() *ToolSchema {
	required := append([]string(nil), b.required...)
	sort.Strings(required)
	closed := false
	return &ToolSchema{
		Type:                 "object",
		Properties:           b.properties,
		Required:             required,
		AdditionalProperties: &closed,
	}
}
