package dataset

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed fixture.schema.json
var fixtureSchema []byte

// checkSchema validates a raw decoded document and records each violation.
func checkSchema(doc any, collector *issueCollector) error {
	schemaLoader := gojsonschema.NewBytesLoader(fixtureSchema)
	docLoader := gojsonschema.NewGoLoader(doc)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("validate fixture schema: %w", err)
	}
	for _, violation := range result.Errors() {
		collector.add(fieldPath(violation.Field()), violation.Description())
	}
	return nil
}

// fieldPath turns a schema context such as "tests.0.answer" into "tests[0].answer".
func fieldPath(field string) string {
	if field == "" || field == "(root)" {
		return ""
	}
	parts := strings.Split(field, ".")
	var b strings.Builder
	for i, part := range parts {
		if isIndex(part) {
			b.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

func isIndex(part string) bool {
	if part == "" {
		return false
	}
	for _, r := range part {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
