package forms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/taxdocs-pipeline/constants"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/common"
)

// Kind is the semantic type of a schema field.
type Kind string

const (
	KindCurrency   Kind = "currency"
	KindIdentifier Kind = "identifier"
	KindString     Kind = "string"
	KindCoded      Kind = "coded" // ordered (code, amount) pairs
	KindBoolean    Kind = "boolean"
)

// IdentifierFormat names the expected shape of an identifier field.
type IdentifierFormat string

const (
	FormatEIN IdentifierFormat = "ein" // NN-NNNNNNN
	FormatSSN IdentifierFormat = "ssn" // NNN-NN-NNNN
)

var identifierPatterns = map[IdentifierFormat]*regexp.Regexp{
	FormatEIN: regexp.MustCompile(`^\d{2}-\d{7}$`),
	FormatSSN: regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`),
}

// IdentifierPattern returns the compiled pattern for a format.
func IdentifierPattern(f IdentifierFormat) *regexp.Regexp {
	return identifierPatterns[f]
}

// Field is one entry of a form's fixed ordered schema.
type Field struct {
	Name     string
	Kind     Kind
	Required bool // required fields may not be null after extraction
	Format   IdentifierFormat
	Example  string
}

// Schema is the fixed ordered field schema owned by one FormType.
type Schema struct {
	Form   constants.FormType
	Fields []Field

	compiled *jsonschema.Schema
}

// FieldNames returns the schema's field names in order.
func (s *Schema) FieldNames() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// Lookup finds a field by name.
func (s *Schema) Lookup(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Required returns the names of all non-nullable fields.
func (s *Schema) Required() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

var registry = compileRegistry(map[constants.FormType]*Schema{
	constants.FormW2:      w2Schema,
	constants.Form1099INT: int1099Schema,
	constants.Form1099DIV: div1099Schema,
	constants.Form1099B:   b1099Schema,
	constants.Form1099NEC: nec1099Schema,
	constants.Form1098:    f1098Schema,
})

// compileRegistry compiles every form's JSON Schema once, when the
// registry is built. The schemas are static; a compile failure is a
// programmer error.
func compileRegistry(m map[constants.FormType]*Schema) map[constants.FormType]*Schema {
	for _, s := range m {
		b, err := json.Marshal(s.JSONSchema())
		if err != nil {
			panic(fmt.Sprintf("forms: marshal %s schema: %v", s.Form, err))
		}
		url := string(s.Form) + ".schema.json"
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
			panic(fmt.Sprintf("forms: add %s schema: %v", s.Form, err))
		}
		s.compiled, err = compiler.Compile(url)
		if err != nil {
			panic(fmt.Sprintf("forms: compile %s schema: %v", s.Form, err))
		}
	}
	return m
}

// Get returns the schema for a form type. OTHER owns no schema, and asking
// for one is a programmer error.
func Get(form constants.FormType) (*Schema, error) {
	s, ok := registry[form]
	if !ok {
		return nil, common.NewPipelineError(common.ClassConfiguration, "forms",
			"no schema registered for form type "+string(form), nil)
	}
	return s, nil
}

// Registered reports whether the form type owns a schema.
func Registered(form constants.FormType) bool {
	_, ok := registry[form]
	return ok
}

// Validate checks a JSON payload against the form's compiled schema.
func (s *Schema) Validate(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := s.compiled.Validate(v); err != nil {
		return fmt.Errorf("payload does not match %s schema: %w", s.Form, err)
	}
	return nil
}

const decimalPattern = `^-?\d+(\.\d{1,2})?$`

// JSONSchema builds the draft 2020-12 subset schema used to validate model
// output. Every field is required (the model must emit one key per schema
// field, null for absent values) and unknown keys are rejected.
func (s *Schema) JSONSchema() map[string]any {
	props := map[string]any{}
	required := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		props[f.Name] = f.jsonProp()
		required = append(required, f.Name)
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func (f Field) jsonProp() map[string]any {
	switch f.Kind {
	case KindCurrency:
		return map[string]any{"type": []string{"string", "null"}, "pattern": decimalPattern}
	case KindCoded:
		return map[string]any{
			"type": []string{"array", "null"},
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"code":   map[string]any{"type": "string", "minLength": 1},
					"amount": map[string]any{"type": "string", "pattern": decimalPattern},
				},
				"required": []string{"code", "amount"},
			},
		}
	case KindBoolean:
		return map[string]any{"type": []string{"boolean", "null"}}
	default:
		return map[string]any{"type": []string{"string", "null"}}
	}
}
