package validation

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Schema is a compiled JSON Schema used to check pipeline state and job payloads.
type Schema struct {
	schema *gojsonschema.Schema
}

// Compile parses a JSON Schema document.
func Compile(schemaJSON string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

// RequiredKeysSchema builds an object schema in which every key is required
// and holds a string or a number.
func RequiredKeysSchema(keys []string) string {
	props := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		props[k] = map[string]interface{}{"type": []string{"string", "number"}}
	}
	required := append(make([]string, 0, len(keys)), keys...)
	sort.Strings(required)

	doc := map[string]interface{}{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"type":       "object",
		"properties": props,
		"required":   required,
	}
	out, _ := json.Marshal(doc)
	return string(out)
}

// CompileRequiredKeys is Compile(RequiredKeysSchema(keys)).
func CompileRequiredKeys(keys []string) (*Schema, error) {
	return Compile(RequiredKeysSchema(keys))
}

// Validate checks doc against the schema.
func (s *Schema) Validate(doc interface{}) *ValidationResult {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "(root)", Message: err.Error(), Code: "INVALID_DOCUMENT"}},
		}
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, re := range result.Errors() {
		field := re.Field()
		if re.Type() == "required" {
			if prop, ok := re.Details()["property"].(string); ok {
				field = prop
			}
		}
		out.Errors = append(out.Errors, ValidationError{
			Field:   field,
			Message: re.Description(),
			Code:    re.Type(),
		})
	}
	return out
}

// MissingFields lists the fields reported by "required" errors, in schema order.
func (vr *ValidationResult) MissingFields() []string {
	var fields []string
	for _, e := range vr.Errors {
		if e.Code == "required" {
			fields = append(fields, e.Field)
		}
	}
	return fields
}

// GetErrorMessages returns a simple list of error messages.
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for a specific field.
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}
