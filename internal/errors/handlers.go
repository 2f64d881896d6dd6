// Package errors/handlers provides interface-specific error handling implementations.
//
// SYSTEM ARCHITECTURE ROLE:
// This module implements the interface layer of the error handling system, providing
// customized error formatting for the CLI, the HTTP API and the TUI editor, and the
// error log that persists compile failures for later inspection.
//
// ERROR FLOW:
// 1. Registry, resolver or a collaborator returns an AppError
// 2. The service passes it up unchanged
// 3. The surface's handler records it in the ErrorLog and formats it
package errors

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
)

// ErrorHandler provides interface-specific error handling
type ErrorHandler interface {
	HandleError(err error) error
	FormatError(err error) string
}

// CLIErrorHandler handles errors for CLI interface
type CLIErrorHandler struct {
	Verbose bool
	Log     *ErrorLog
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler(verbose bool) *CLIErrorHandler {
	return &CLIErrorHandler{
		Verbose: verbose,
	}
}

// HandleError records the error, logs it when verbose and returns it
// formatted for display
func (h *CLIErrorHandler) HandleError(err error) error {
	appErr := GetAppError(err)
	h.Log.Record(appErr)

	if h.Verbose {
		log.Printf("[%s] %s: %s", appErr.Severity, appErr.Code, appErr.Error())
		if appErr.Cause != nil {
			log.Printf("Caused by: %v", appErr.Cause)
		}
	}

	return fmt.Errorf("%s", h.FormatError(appErr))
}

// FormatError formats an error for CLI display
func (h *CLIErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)

	msg := appErr.Message
	if appErr.Details != "" && (h.Verbose || appErr.Category == CategoryTemplate) {
		msg = fmt.Sprintf("%s (%s)", msg, appErr.Details)
	}

	switch appErr.Severity {
	case SeverityCritical:
		return fmt.Sprintf("CRITICAL: %s", msg)
	case SeverityWarning:
		return fmt.Sprintf("WARNING: %s", msg)
	case SeverityInfo:
		return fmt.Sprintf("INFO: %s", msg)
	default:
		return fmt.Sprintf("ERROR: %s", msg)
	}
}

// HTTPErrorHandler handles errors for HTTP interface
type HTTPErrorHandler struct {
	IncludeDetails bool
	Log            *ErrorLog
}

// NewHTTPErrorHandler creates a new HTTP error handler
func NewHTTPErrorHandler(includeDetails bool) *HTTPErrorHandler {
	return &HTTPErrorHandler{
		IncludeDetails: includeDetails,
	}
}

// HandleError handles errors for HTTP interface
func (h *HTTPErrorHandler) HandleError(err error) error {
	appErr := GetAppError(err)
	h.Log.Record(appErr)

	log.Printf("[HTTP] [%s] %s: %s", appErr.Severity, appErr.Code, appErr.Error())
	if appErr.Cause != nil {
		log.Printf("Caused by: %v", appErr.Cause)
	}

	return appErr
}

// FormatError formats an error as a JSON response body
func (h *HTTPErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)

	body := map[string]interface{}{
		"code":      appErr.Code,
		"message":   appErr.Message,
		"timestamp": appErr.Timestamp,
	}
	if h.IncludeDetails && appErr.Details != "" {
		body["details"] = appErr.Details
	}
	if h.IncludeDetails && appErr.Context != nil {
		body["context"] = appErr.Context
	}

	jsonBytes, _ := json.Marshal(map[string]interface{}{"error": body})
	return string(jsonBytes)
}

// WriteHTTPError writes an error response to HTTP
func (h *HTTPErrorHandler) WriteHTTPError(w http.ResponseWriter, err error) {
	appErr := GetAppError(err)

	h.HandleError(appErr)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(h.StatusCode(appErr))
	w.Write([]byte(h.FormatError(appErr)))
}

// StatusCode maps error codes to HTTP status codes
func (h *HTTPErrorHandler) StatusCode(appErr *AppError) int {
	switch appErr.Code {
	case ErrCodeValidation, ErrCodeInvalidInput, ErrCodeInvalidTemplate,
		ErrCodeMissingRequiredSlot, ErrCodeInvalidSlotFilling:
		return http.StatusBadRequest
	case ErrCodeUnknownTemplate, ErrCodeNotFound, ErrCodeFileNotFound:
		return http.StatusNotFound
	case ErrCodeDuplicateTemplateID, ErrCodeAlreadyExists:
		return http.StatusConflict
	case ErrCodeCyclicTemplateReference:
		return http.StatusUnprocessableEntity
	case ErrCodePreviewFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// TUIErrorHandler handles errors for the TUI editor
type TUIErrorHandler struct {
	ShowDetails bool
	Log         *ErrorLog
}

// NewTUIErrorHandler creates a new TUI error handler
func NewTUIErrorHandler(showDetails bool, errLog *ErrorLog) *TUIErrorHandler {
	return &TUIErrorHandler{
		ShowDetails: showDetails,
		Log:         errLog,
	}
}

// HandleError records the error in the error log
func (h *TUIErrorHandler) HandleError(err error) error {
	appErr := GetAppError(err)
	h.Log.Record(appErr)
	return appErr
}

// FormatError formats an error for the single-line status bar
func (h *TUIErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)

	message := appErr.Message
	if h.ShowDetails && appErr.Details != "" {
		message = fmt.Sprintf("%s: %s", message, appErr.Details)
	}
	return strings.ReplaceAll(message, "\n", " ")
}

// ErrorStyle returns an icon and colour for the error's severity
func (h *TUIErrorHandler) ErrorStyle(err error) (string, string) {
	appErr := GetAppError(err)

	switch appErr.Severity {
	case SeverityCritical:
		return "✖", "#ff0000"
	case SeverityError:
		return "✖", "#ff6b6b"
	case SeverityWarning:
		return "!", "#feca57"
	default:
		return "i", "#48cae4"
	}
}

// ErrorLogFile is the log path relative to the library root
const ErrorLogFile = "logs/error.log"

// ErrorLog appends one line per error to logs/error.log in the library
type ErrorLog struct {
	fs billy.Filesystem
	mu sync.Mutex
}

// NewErrorLog creates an error log writing into fs
func NewErrorLog(fs billy.Filesystem) *ErrorLog {
	return &ErrorLog{fs: fs}
}

// Record appends the error to the log. Failures to write are reported on
// stderr and otherwise ignored.
func (l *ErrorLog) Record(err error) {
	if l == nil || l.fs == nil || err == nil {
		return
	}
	appErr := GetAppError(err)

	entry := fmt.Sprintf("[%s] [%s] [%s] %s",
		appErr.Timestamp.Format("2006-01-02 15:04:05"),
		appErr.Severity,
		appErr.Category,
		appErr.Error())

	if appErr.Cause != nil {
		entry += fmt.Sprintf(" | Cause: %v", appErr.Cause)
	}
	if appErr.Context != nil {
		contextJSON, _ := json.Marshal(appErr.Context)
		entry += fmt.Sprintf(" | Context: %s", contextJSON)
	}
	entry = strings.ReplaceAll(entry, "\n", `\n`) + "\n"

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.fs.MkdirAll("logs", 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to create log directory: %v\n", err)
		return
	}
	file, err := l.fs.OpenFile(ErrorLogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to open error log: %v\n", err)
		return
	}
	defer file.Close()

	if _, err := file.Write([]byte(entry)); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to write error log: %v\n", err)
	}
}
