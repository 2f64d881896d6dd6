// Package validation checks request parameters against named schemas before
// they reach the service.
//
// Schemas describe the JSON bodies and query parameters the HTTP API accepts.
// Failures are reported field by field and converted to a VALIDATION_ERROR
// AppError, so every surface formats them the same way.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dpshade/pocket-problem/internal/errors"
)

// MaxSourceLength bounds markdown sources accepted over the API
const MaxSourceLength = 1 << 20

var identifier = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// FieldValidator provides validation rules for individual fields
type FieldValidator struct {
	Required  bool
	Type      string // string, int, bool, array or object
	MaxLength int
	Pattern   *regexp.Regexp
	Options   []string
}

// ValidationResult represents the result of validation
type ValidationResult struct {
	Valid  bool                   `json:"valid"`
	Errors []ValidationError      `json:"errors,omitempty"`
	Data   map[string]interface{} `json:"data,omitempty"`
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Schema represents a validation schema
type Schema struct {
	Name   string
	Fields map[string]FieldValidator
}

// Validator holds the registered schemas
type Validator struct {
	schemas map[string]*Schema
}

// NewValidator creates a validator with the API schemas registered
func NewValidator() *Validator {
	v := &Validator{
		schemas: make(map[string]*Schema),
	}
	v.registerBuiltinSchemas()
	return v
}

// RegisterSchema registers a validation schema
func (v *Validator) RegisterSchema(schema *Schema) {
	v.schemas[schema.Name] = schema
}

// Validate validates data against a schema
func (v *Validator) Validate(schemaName string, data map[string]interface{}) *ValidationResult {
	schema, exists := v.schemas[schemaName]
	if !exists {
		return &ValidationResult{
			Errors: []ValidationError{{
				Field:   "schema",
				Code:    "SCHEMA_NOT_FOUND",
				Message: fmt.Sprintf("Validation schema '%s' not found", schemaName),
			}},
		}
	}

	result := &ValidationResult{
		Valid: true,
		Data:  make(map[string]interface{}),
	}

	// sorted so the first error is stable
	names := make([]string, 0, len(schema.Fields))
	for name := range schema.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		validateField(name, schema.Fields[name], data, result)
	}
	return result
}

func (result *ValidationResult) fail(field, code, message string, value interface{}) {
	result.Valid = false
	result.Errors = append(result.Errors, ValidationError{Field: field, Code: code, Message: message, Value: value})
}

func validateField(fieldName string, validator FieldValidator, data map[string]interface{}, result *ValidationResult) {
	value, exists := data[fieldName]

	if validator.Required && (!exists || value == nil || value == "") {
		result.fail(fieldName, "REQUIRED_FIELD_MISSING", fmt.Sprintf("Field '%s' is required", fieldName), nil)
		return
	}
	if !exists || value == nil {
		return
	}

	converted, err := convertType(fieldName, validator.Type, value)
	if err != nil {
		result.fail(fieldName, "INVALID_TYPE", err.Error(), value)
		return
	}
	result.Data[fieldName] = converted

	str, ok := converted.(string)
	if !ok {
		return
	}
	if validator.MaxLength > 0 && len(str) > validator.MaxLength {
		result.fail(fieldName, "MAX_LENGTH_VIOLATION",
			fmt.Sprintf("Field '%s' must be at most %d characters long", fieldName, validator.MaxLength), nil)
	}
	if validator.Pattern != nil && str != "" && !validator.Pattern.MatchString(str) {
		result.fail(fieldName, "PATTERN_MISMATCH",
			fmt.Sprintf("Field '%s' does not match required pattern", fieldName), str)
	}
	if len(validator.Options) > 0 {
		for _, option := range validator.Options {
			if str == option {
				return
			}
		}
		result.fail(fieldName, "INVALID_OPTION",
			fmt.Sprintf("Field '%s' must be one of: %s", fieldName, strings.Join(validator.Options, ", ")), str)
	}
}

// convertType checks value against the expected type. Query parameters
// arrive as strings and are converted.
func convertType(fieldName, expectedType string, value interface{}) (interface{}, error) {
	switch expectedType {
	case "string":
		if str, ok := value.(string); ok {
			return str, nil
		}
		return nil, fmt.Errorf("field '%s' must be a string", fieldName)

	case "int":
		switch val := value.(type) {
		case float64:
			return int(val), nil
		case string:
			if intVal, err := strconv.Atoi(val); err == nil {
				return intVal, nil
			}
		}
		return nil, fmt.Errorf("field '%s' must be an integer", fieldName)

	case "bool":
		switch val := value.(type) {
		case bool:
			return val, nil
		case string:
			if boolVal, err := strconv.ParseBool(val); err == nil {
				return boolVal, nil
			}
		}
		return nil, fmt.Errorf("field '%s' must be a boolean", fieldName)

	case "array":
		if arr, ok := value.([]interface{}); ok {
			return arr, nil
		}
		return nil, fmt.Errorf("field '%s' must be an array", fieldName)

	case "object":
		if obj, ok := value.(map[string]interface{}); ok {
			return obj, nil
		}
		return nil, fmt.Errorf("field '%s' must be an object", fieldName)

	default:
		return value, nil
	}
}

func (v *Validator) registerBuiltinSchemas() {
	v.RegisterSchema(&Schema{
		Name: "compile",
		Fields: map[string]FieldValidator{
			"source": {Required: true, Type: "string", MaxLength: MaxSourceLength},
		},
	})

	v.RegisterSchema(&Schema{
		Name: "resolve",
		Fields: map[string]FieldValidator{
			"template": {Required: true, Type: "string", Pattern: identifier},
			"fillings": {Type: "object"},
		},
	})

	v.RegisterSchema(&Schema{
		Name: "create_template",
		Fields: map[string]FieldValidator{
			"id":          {Required: true, Type: "string", Pattern: identifier, MaxLength: 100},
			"name":        {Type: "string", MaxLength: 200},
			"description": {Type: "string", MaxLength: 1000},
			"slots":       {Type: "array"},
		},
	})

	v.RegisterSchema(&Schema{
		Name: "create_problem",
		Fields: map[string]FieldValidator{
			"id":       {Type: "string", Pattern: identifier, MaxLength: 100},
			"title":    {Type: "string", MaxLength: 200},
			"template": {Type: "string", Pattern: identifier},
			"fillings": {Type: "object"},
			"content":  {Type: "string", MaxLength: MaxSourceLength},
			"tags":     {Type: "array"},
		},
	})

	v.RegisterSchema(&Schema{
		Name: "save_set",
		Fields: map[string]FieldValidator{
			"name":        {Required: true, Type: "string", MaxLength: 100},
			"title":       {Type: "string", MaxLength: 200},
			"problem_ids": {Required: true, Type: "array"},
		},
	})

	v.RegisterSchema(&Schema{
		Name: "search",
		Fields: map[string]FieldValidator{
			"q": {Type: "string", MaxLength: 200},
		},
	})
}

// ToAppError converts validation result to AppError
func (result *ValidationResult) ToAppError() *errors.AppError {
	if result.Valid {
		return nil
	}
	if len(result.Errors) == 0 {
		return errors.ValidationError("Validation failed")
	}

	appErr := errors.ValidationError(result.Errors[0].Message)

	var details []string
	for _, validationErr := range result.Errors {
		details = append(details, fmt.Sprintf("%s: %s", validationErr.Field, validationErr.Message))
	}
	appErr.WithDetails(strings.Join(details, "; "))
	appErr.WithContext("validation_errors", result.Errors)
	return appErr
}
