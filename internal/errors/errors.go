// Package errors provides unified error handling across the pocket-problem system.
//
// SYSTEM ARCHITECTURE ROLE:
// This module is the foundation for error handling across the compiler core and
// every surface (CLI, HTTP, TUI). The core raises structured AppErrors; surfaces
// decide how to present and log them.
//
// KEY RESPONSIBILITIES:
// - Define the error codes raised by the registry and resolver
// - Provide structured error types (AppError) carrying the offending id or path
// - Enable interface-specific formatting while keeping one error representation
//
// INTEGRATION POINTS:
// - internal/registry: DuplicateTemplateID, InvalidTemplate
// - internal/resolver: UnknownTemplate, MissingRequiredSlot, CyclicTemplateReference, InvalidSlotFilling
// - internal/service: wraps storage and preview failures and passes them to the surfaces
// - internal/cli, internal/api, internal/ui: CLIErrorHandler, HTTPErrorHandler, TUIErrorHandler
//
// USAGE PATTERNS:
// - Create errors: use constructors like UnknownTemplateError(), NotFoundError()
// - Wrap errors: use Wrap() to add a code to an existing error
// - Check codes: use Is(err, code) or GetAppError(err)
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Template errors, raised by the registry and resolver
	ErrCodeDuplicateTemplateID     ErrorCode = "DUPLICATE_TEMPLATE_ID"
	ErrCodeUnknownTemplate         ErrorCode = "UNKNOWN_TEMPLATE"
	ErrCodeMissingRequiredSlot     ErrorCode = "MISSING_REQUIRED_SLOT"
	ErrCodeCyclicTemplateReference ErrorCode = "CYCLIC_TEMPLATE_REFERENCE"
	ErrCodeInvalidSlotFilling      ErrorCode = "INVALID_SLOT_FILLING"
	ErrCodeInvalidTemplate         ErrorCode = "INVALID_TEMPLATE"

	// Validation errors
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Resource errors
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// Storage errors
	ErrCodeStorageFailure ErrorCode = "STORAGE_FAILURE"
	ErrCodeFileNotFound   ErrorCode = "FILE_NOT_FOUND"
	ErrCodeFileCorrupted  ErrorCode = "FILE_CORRUPTED"

	// Collaborator errors
	ErrCodePreviewFailed        ErrorCode = "PREVIEW_FAILED"
	ErrCodeClipboardUnavailable ErrorCode = "CLIPBOARD_UNAVAILABLE"

	// Command errors
	ErrCodeCommandFailed  ErrorCode = "COMMAND_FAILED"
	ErrCodeInvalidCommand ErrorCode = "INVALID_COMMAND"

	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityInfo     ErrorSeverity = "info"
	SeverityWarning  ErrorSeverity = "warning"
	SeverityError    ErrorSeverity = "error"
	SeverityCritical ErrorSeverity = "critical"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	CategoryTemplate   ErrorCategory = "template"
	CategoryValidation ErrorCategory = "validation"
	CategoryService    ErrorCategory = "service"
	CategoryStorage    ErrorCategory = "storage"
	CategoryPreview    ErrorCategory = "preview"
	CategoryCommand    ErrorCategory = "command"
	CategorySystem     ErrorCategory = "system"
)

// Context keys used by the template errors
const (
	ContextTemplateID = "template_id"
	ContextSlotID     = "slot_id"
	ContextPath       = "path"
)

// AppError represents a standardized application error
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Severity  ErrorSeverity          `json:"severity"`
	Category  ErrorCategory          `json:"category"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// TemplateID returns the offending template id, if any
func (e *AppError) TemplateID() string {
	s, _ := e.Context[ContextTemplateID].(string)
	return s
}

// SlotID returns the offending slot id, if any
func (e *AppError) SlotID() string {
	s, _ := e.Context[ContextSlotID].(string)
	return s
}

// Path returns the template expansion path at the point of failure
func (e *AppError) Path() []string {
	p, _ := e.Context[ContextPath].([]string)
	return p
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	category, severity := categorizeError(code)
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  severity,
		Category:  category,
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error with application error context
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := NewAppError(code, message)
	appErr.Cause = err
	return appErr
}

// categorizeError determines the category and severity based on error code
func categorizeError(code ErrorCode) (ErrorCategory, ErrorSeverity) {
	switch code {
	case ErrCodeDuplicateTemplateID, ErrCodeInvalidTemplate:
		return CategoryTemplate, SeverityWarning
	case ErrCodeUnknownTemplate, ErrCodeMissingRequiredSlot, ErrCodeInvalidSlotFilling:
		return CategoryTemplate, SeverityError
	case ErrCodeCyclicTemplateReference:
		return CategoryTemplate, SeverityError

	case ErrCodeValidation, ErrCodeInvalidInput:
		return CategoryValidation, SeverityWarning

	case ErrCodeNotFound:
		return CategoryService, SeverityInfo
	case ErrCodeAlreadyExists:
		return CategoryService, SeverityWarning

	case ErrCodeStorageFailure, ErrCodeFileCorrupted:
		return CategoryStorage, SeverityError
	case ErrCodeFileNotFound:
		return CategoryStorage, SeverityInfo

	case ErrCodePreviewFailed:
		return CategoryPreview, SeverityError
	case ErrCodeClipboardUnavailable:
		return CategorySystem, SeverityWarning

	case ErrCodeCommandFailed, ErrCodeInvalidCommand:
		return CategoryCommand, SeverityError

	case ErrCodeInternalError:
		return CategorySystem, SeverityCritical

	default:
		return CategorySystem, SeverityError
	}
}

// IsAppError checks if an error is or wraps an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError extracts an AppError from an error chain, or converts it to one
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, ErrCodeInternalError, err.Error())
}

// Is reports whether err is or wraps an AppError with the given code
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// Template error constructors

func DuplicateTemplateIDError(id string) *AppError {
	return NewAppError(ErrCodeDuplicateTemplateID, fmt.Sprintf("template '%s' is already registered", id)).
		WithContext(ContextTemplateID, id)
}

func InvalidTemplateError(id string, reason string) *AppError {
	return NewAppError(ErrCodeInvalidTemplate, fmt.Sprintf("invalid template '%s': %s", id, reason)).
		WithContext(ContextTemplateID, id)
}

func UnknownTemplateError(id string, path []string) *AppError {
	return NewAppError(ErrCodeUnknownTemplate, fmt.Sprintf("unknown template '%s'", id)).
		WithContext(ContextTemplateID, id).
		WithContext(ContextPath, copyPath(path))
}

func MissingRequiredSlotError(templateID, slotID string, path []string) *AppError {
	return NewAppError(ErrCodeMissingRequiredSlot,
		fmt.Sprintf("template '%s' requires slot '%s'", templateID, slotID)).
		WithContext(ContextTemplateID, templateID).
		WithContext(ContextSlotID, slotID).
		WithContext(ContextPath, copyPath(path))
}

// CyclicTemplateReferenceError reports a template that reappears on its own
// expansion path. path ends with the repeated id.
func CyclicTemplateReferenceError(path []string) *AppError {
	id := ""
	if len(path) > 0 {
		id = path[len(path)-1]
	}
	return NewAppError(ErrCodeCyclicTemplateReference,
		fmt.Sprintf("template '%s' references itself", id)).
		WithDetails(strings.Join(path, " -> ")).
		WithContext(ContextTemplateID, id).
		WithContext(ContextPath, copyPath(path))
}

func InvalidSlotFillingError(templateID, slotID, reason string, path []string) *AppError {
	return NewAppError(ErrCodeInvalidSlotFilling,
		fmt.Sprintf("slot '%s' of template '%s': %s", slotID, templateID, reason)).
		WithContext(ContextTemplateID, templateID).
		WithContext(ContextSlotID, slotID).
		WithContext(ContextPath, copyPath(path))
}

// General constructors

func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message)
}

func InvalidInputError(message string) *AppError {
	return NewAppError(ErrCodeInvalidInput, message)
}

func NotFoundError(resource string) *AppError {
	return NewAppError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func AlreadyExistsError(resource string) *AppError {
	return NewAppError(ErrCodeAlreadyExists, fmt.Sprintf("%s already exists", resource))
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternalError, message)
}

func StorageError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeStorageFailure, fmt.Sprintf("Storage operation failed: %s", operation))
}

func CorruptedFileError(path string, err error) *AppError {
	return Wrap(err, ErrCodeFileCorrupted, fmt.Sprintf("cannot parse %s", path))
}

func PreviewError(details string, err error) *AppError {
	return Wrap(err, ErrCodePreviewFailed, "LaTeX compilation failed").WithDetails(details)
}

func InvalidCommandError(command string, reason string) *AppError {
	return NewAppError(ErrCodeInvalidCommand, fmt.Sprintf("Invalid command '%s': %s", command, reason))
}

func copyPath(path []string) []string {
	out := make([]string, len(path))
	copy(out, path)
	return out
}
