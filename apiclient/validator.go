package apiclient

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Validator checks a response body against a named schema. Validation
// failure is reported to the caller of Validate but the pipeline only logs
// it; a schema mismatch never fails or retries a call.
type Validator interface {
	Validate(name string, body []byte) error
}

// Schema is a minimal declarative description of a JSON object body.
type Schema struct {
	// Required lists top-level fields that must be present.
	Required []string

	// Types maps top-level field names to the expected JSON type:
	// "string", "number", "boolean", "object", "array", or "null".
	// Fields absent from the map are not type-checked.
	Types map[string]string
}

// SchemaRegistry is the default Validator: a registry of named Schemas
// checked with required-field and top-level type rules. For full JSON
// Schema semantics plug in an external validator behind the Validator
// interface.
type SchemaRegistry struct {
	schemas map[string]Schema
}

// NewSchemaRegistry creates an empty registry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{
		schemas: make(map[string]Schema),
	}
}

// Add registers schema under name, overwriting any previous registration.
// Register all schemas before handing the registry to a client; the
// registry is read-only afterwards.
func (r *SchemaRegistry) Add(name string, schema Schema) {
	r.schemas[name] = schema
}

// Validate implements Validator.
func (r *SchemaRegistry) Validate(name string, body []byte) error {
	schema, ok := r.schemas[name]
	if !ok {
		return fmt.Errorf("schema %q is not registered", name)
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("body is not a JSON object: %w", err)
	}

	for _, field := range schema.Required {
		if _, ok := doc[field]; !ok {
			return fmt.Errorf("missing required field %q", field)
		}
	}

	for field, want := range schema.Types {
		value, ok := doc[field]
		if !ok {
			continue
		}
		if got := jsonType(value); got != want {
			return fmt.Errorf("field %q is %s, expected %s", field, got, want)
		}
	}

	return nil
}

func jsonType(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case nil:
		return "null"
	default:
		return "unknown"
	}
}
