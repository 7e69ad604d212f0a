package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// CommandRequestSchema describes a processCommand request body.
const CommandRequestSchema = `{
  "type": "object",
  "properties": {
    "transcript": {"type": "string", "minLength": 1, "maxLength": 2000},
    "sessionId":  {"type": "string"},
    "employeeId": {"type": "string"},
    "role":       {"type": "string", "enum": ["Admin", "Officer", "Engineer", "Technician"]}
  },
  "required": ["transcript"],
  "additionalProperties": false
}`

// SearchRequestSchema describes a multi-agent search request body. A present
// agents array must be non-empty and free of duplicates.
const SearchRequestSchema = `{
  "type": "object",
  "properties": {
    "query":  {"type": "string", "minLength": 1, "maxLength": 2000},
    "agents": {
      "type": "array",
      "minItems": 1,
      "uniqueItems": true,
      "items": {
        "type": "string",
        "enum": ["document", "documents", "fault", "faultPatterns", "recommendation", "recommendations"]
      }
    }
  },
  "required": ["query"],
  "additionalProperties": false
}`

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error joins all validation errors into one message.
func (r *ValidationResult) Error() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// Validate checks document against a JSON schema. document may be any value
// encodable as JSON, or raw JSON bytes.
func Validate(schema string, document interface{}) (*ValidationResult, error) {
	schemaLoader := gojsonschema.NewStringLoader(schema)

	var documentLoader gojsonschema.JSONLoader
	switch doc := document.(type) {
	case []byte:
		documentLoader = gojsonschema.NewBytesLoader(doc)
	case string:
		documentLoader = gojsonschema.NewStringLoader(doc)
	default:
		documentLoader = gojsonschema.NewGoLoader(doc)
	}

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
}

// ValidateSearchRequest validates a raw search request body.
func ValidateSearchRequest(body []byte) (*ValidationResult, error) {
	return Validate(SearchRequestSchema, body)
}

// ValidateCommandRequest validates a raw command request body.
func ValidateCommandRequest(body []byte) (*ValidationResult, error) {
	return Validate(CommandRequestSchema, body)
}
