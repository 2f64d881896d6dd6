package errors

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("compile: %w", UnknownTemplateError("nope", []string{"basic"}))

	assert.True(t, Is(err, ErrCodeUnknownTemplate))
	assert.False(t, Is(err, ErrCodeMissingRequiredSlot))
	assert.True(t, IsAppError(err))

	appErr := GetAppError(err)
	assert.Equal(t, "nope", appErr.TemplateID())
	assert.Equal(t, []string{"basic"}, appErr.Path())
}

func TestGetAppErrorConvertsPlainErrors(t *testing.T) {
	appErr := GetAppError(fmt.Errorf("boom"))
	assert.Equal(t, ErrCodeInternalError, appErr.Code)
	assert.Equal(t, SeverityCritical, appErr.Severity)
}

func TestCyclicTemplateReferenceError(t *testing.T) {
	path := []string{"a", "b", "a"}
	err := CyclicTemplateReferenceError(path)
	path[0] = "mutated"

	assert.Equal(t, ErrCodeCyclicTemplateReference, err.Code)
	assert.Equal(t, CategoryTemplate, err.Category)
	assert.Equal(t, "a", err.TemplateID())
	assert.Equal(t, []string{"a", "b", "a"}, err.Path())
	assert.Contains(t, err.Error(), "a -> b -> a")
}

func TestMissingRequiredSlotError(t *testing.T) {
	err := MissingRequiredSlotError("basic", "question", []string{"basic"})
	assert.Equal(t, "question", err.SlotID())
	assert.Contains(t, err.Message, "question")
}

func TestHTTPStatusCodes(t *testing.T) {
	h := NewHTTPErrorHandler(false)
	tests := []struct {
		err  *AppError
		want int
	}{
		{UnknownTemplateError("x", nil), http.StatusNotFound},
		{DuplicateTemplateIDError("x"), http.StatusConflict},
		{MissingRequiredSlotError("x", "y", nil), http.StatusBadRequest},
		{CyclicTemplateReferenceError([]string{"x", "x"}), http.StatusUnprocessableEntity},
		{InternalError("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.want, h.StatusCode(tt.err))
		})
	}
}

func TestWriteHTTPError(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHTTPErrorHandler(true).WriteHTTPError(rec, CyclicTemplateReferenceError([]string{"a", "a"}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"code":"CYCLIC_TEMPLATE_REFERENCE"`)
	assert.Contains(t, rec.Body.String(), `"details":"a -> a"`)
}

func TestCLIFormatError(t *testing.T) {
	h := NewCLIErrorHandler(false)
	msg := h.FormatError(CyclicTemplateReferenceError([]string{"a", "b", "a"}))
	assert.True(t, strings.HasPrefix(msg, "ERROR: "))
	assert.Contains(t, msg, "a -> b -> a")

	assert.True(t, strings.HasPrefix(h.FormatError(DuplicateTemplateIDError("x")), "WARNING: "))
}

func TestErrorLogAppends(t *testing.T) {
	fs := memfs.New()
	l := NewErrorLog(fs)

	l.Record(UnknownTemplateError("first", nil))
	l.Record(MissingRequiredSlotError("basic", "question", []string{"basic"}))

	data, err := util.ReadFile(fs, ErrorLogFile)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "UNKNOWN_TEMPLATE")
	assert.Contains(t, lines[1], "MISSING_REQUIRED_SLOT")
	assert.Contains(t, lines[1], `"slot_id":"question"`)
}

func TestHandlersRecordOnce(t *testing.T) {
	fs := memfs.New()
	l := NewErrorLog(fs)

	cli := NewCLIErrorHandler(false)
	cli.Log = l
	cli.HandleError(UnknownTemplateError("first", nil))

	tui := NewTUIErrorHandler(false, l)
	tui.FormatError(MissingRequiredSlotError("basic", "question", []string{"basic"}))
	tui.HandleError(PreviewError("! Emergency stop.", nil))

	httpHandler := NewHTTPErrorHandler(false)
	httpHandler.Log = l
	httpHandler.HandleError(NotFoundError("problem ball"))

	data, err := util.ReadFile(fs, ErrorLogFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "UNKNOWN_TEMPLATE")
	assert.Contains(t, lines[1], "PREVIEW_FAILED")
	assert.NotContains(t, string(data), "MISSING_REQUIRED_SLOT")
}

func TestErrorLogNilSafe(t *testing.T) {
	var l *ErrorLog
	assert.NotPanics(t, func() { l.Record(InternalError("x")) })
}
