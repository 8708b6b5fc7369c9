package tooling

import (
	"bytes"
	"encoding/json"
	"fmt"

	invopopSchema "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"vla/internal/domain"
)

// marshalFunc is the JSON marshaler used by GenerateSchema. Package-level so
// tests can inject a failing marshaler to cover the error return path.
var marshalFunc = func(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// unmarshalFunc is the JSON unmarshaler used by DecodeArgs. Package-level so
// tests can inject a failing unmarshaler.
var unmarshalFunc = json.Unmarshal

// GenerateSchema generates a JSON Schema string from a Go struct using
// invopop/jsonschema reflection.
func GenerateSchema(input interface{}) string {
	reflector := invopopSchema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(input)

	schemaBytes, err := marshalFunc(schema)
	if err != nil {
		return ""
	}
	return string(schemaBytes)
}

// ValidateAgainstSchema validates JSON input against a JSON Schema string.
func ValidateAgainstSchema(input json.RawMessage, schemaStr string) error {
	schema, err := jsonschema.CompileString("", schemaStr)
	if err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}

	var inputData interface{}
	if err := json.Unmarshal(input, &inputData); err != nil {
		return fmt.Errorf("invalid JSON input: %w", err)
	}

	if err := schema.Validate(inputData); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// DecodeArgs validates args against schema and unmarshals them into out.
// Empty args are treated as an empty object.
func DecodeArgs(args json.RawMessage, schema string, out interface{}) error {
	if len(bytes.TrimSpace(args)) == 0 {
		args = json.RawMessage("{}")
	}
	if err := ValidateAgainstSchema(args, schema); err != nil {
		return fmt.Errorf("input validation failed: %w", err)
	}
	if err := unmarshalFunc(args, out); err != nil {
		return fmt.Errorf("failed to parse input: %w", err)
	}
	return nil
}

// ArgsFromSchema flattens the top-level properties of an object schema into
// argument descriptors, preserving the property order of the schema text.
func ArgsFromSchema(schema string) []domain.ToolArg {
	var top struct {
		Properties json.RawMessage `json:"properties"`
		Required   []string        `json:"required"`
	}
	if err := json.Unmarshal([]byte(schema), &top); err != nil || len(top.Properties) == 0 {
		return nil
	}
	required := make(map[string]bool, len(top.Required))
	for _, name := range top.Required {
		required[name] = true
	}

	dec := json.NewDecoder(bytes.NewReader(top.Properties))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	var args []domain.ToolArg
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return args
		}
		name, _ := tok.(string)
		var prop struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		}
		if err := dec.Decode(&prop); err != nil {
			return args
		}
		args = append(args, domain.ToolArg{
			Name:        name,
			Type:        prop.Type,
			Required:    required[name],
			Description: prop.Description,
		})
	}
	return args
}
