package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/dpshade/pocket-problem/internal/errors"
)

type contextKey struct{}

// RequestValidator provides middleware for HTTP request validation
type RequestValidator struct {
	validator    *Validator
	errorHandler *errors.HTTPErrorHandler
}

// NewRequestValidator creates a new request validator middleware
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{
		validator:    NewValidator(),
		errorHandler: errors.NewHTTPErrorHandler(true),
	}
}

// ValidateRequest validates query parameters and the JSON body against a
// schema. The body is restored so the handler can decode it again.
func (rv *RequestValidator) ValidateRequest(schemaName string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			data, err := rv.extractRequestData(r)
			if err != nil {
				rv.errorHandler.WriteHTTPError(w, err)
				return
			}

			result := rv.validator.Validate(schemaName, data)
			if !result.Valid {
				rv.errorHandler.WriteHTTPError(w, result.ToAppError())
				return
			}

			next(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, result.Data)))
		}
	}
}

// ValidatedData returns the converted fields stored by ValidateRequest
func ValidatedData(r *http.Request) map[string]interface{} {
	data, _ := r.Context().Value(contextKey{}).(map[string]interface{})
	return data
}

func (rv *RequestValidator) extractRequestData(r *http.Request) (map[string]interface{}, error) {
	data := make(map[string]interface{})

	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			data[key] = values[0]
		}
	}

	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		return data, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 2*MaxSourceLength))
	if err != nil {
		return nil, errors.ValidationError("Failed to read request body")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	if len(bytes.TrimSpace(body)) == 0 {
		return data, nil
	}

	var bodyData map[string]interface{}
	if err := json.Unmarshal(body, &bodyData); err != nil {
		return nil, errors.ValidationError("Invalid JSON in request body")
	}
	for key, value := range bodyData {
		data[key] = value
	}
	return data, nil
}
