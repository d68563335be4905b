package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// defaultPrinter formats schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

// Schema pairs the JSON Schema sent to the model as a response constraint
// with a compiled validator for checking what comes back. Both sides are
// reflected from the same Go struct, so they cannot drift.
type Schema struct {
	name     string
	raw      json.RawMessage
	compiled *jsonschema.Schema
}

// SchemaFor reflects a JSON Schema from T and compiles it for validation.
func SchemaFor[T any](name string) (*Schema, error) {
	r := &invopop.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}
	var zero T
	reflected := r.Reflect(&zero)
	reflected.Version = ""

	raw, err := json.Marshal(reflected)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", name, err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", name, err)
	}

	compiler := jsonschema.NewCompiler()
	resource := name + ".schema.json"
	if err := compiler.AddResource(resource, doc); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", name, err)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}

	return &Schema{name: name, raw: raw, compiled: compiled}, nil
}

// MustSchemaFor is SchemaFor for package-level schema variables.
func MustSchemaFor[T any](name string) *Schema {
	s, err := SchemaFor[T](name)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the schema's identifier, used in trace records.
func (s *Schema) Name() string { return s.name }

// Raw returns the schema document for use as a generation constraint.
func (s *Schema) Raw() json.RawMessage { return s.raw }

// Validate checks a JSON document against the schema and returns one
// message per violation, empty when the document conforms.
func (s *Schema) Validate(data json.RawMessage) []string {
	instance, err := jsonschema.UnmarshalJSON(strings.NewReader(string(data)))
	if err != nil {
		return []string{fmt.Sprintf("parse: %v", err)}
	}

	vErr := s.compiled.Validate(instance)
	if vErr == nil {
		return nil
	}
	ve, ok := vErr.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", vErr)}
	}
	var issues []string
	collectSchemaErrors(ve, &issues)
	return issues
}

func collectSchemaErrors(ve *jsonschema.ValidationError, issues *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*issues = append(*issues, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, issues)
	}
}
