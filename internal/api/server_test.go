package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpshade/pocket-problem/internal/errors"
	"github.com/dpshade/pocket-problem/internal/preview"
	"github.com/dpshade/pocket-problem/internal/service"
)

type fakePipeline struct {
	err error
}

func (f *fakePipeline) Render(_ context.Context, latex string) (*preview.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &preview.Result{PDF: []byte("%PDF " + latex[:10])}, nil
}

func newTestServer(t *testing.T, pipeline preview.Pipeline) *httptest.Server {
	t.Helper()
	svc, err := service.New(service.Options{FS: memfs.New(), Pipeline: pipeline})
	require.NoError(t, err)
	require.NoError(t, svc.InitLibrary())

	ts := httptest.NewServer(NewAPIServer(svc, 0).Handler())
	t.Cleanup(ts.Close)
	return ts
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeOK(t *testing.T, resp *http.Response, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.True(t, env.Success)
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error.Code
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakePipeline{})

	resp := do(t, ts, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var health map[string]interface{}
	decodeOK(t, resp, &health)
	assert.Equal(t, "healthy", health["status"])
	assert.EqualValues(t, 0, health["problems"])
	assert.Equal(t, "Git sync unavailable", health["git"])
}

func TestCompile(t *testing.T) {
	ts := newTestServer(t, &fakePipeline{})

	resp := do(t, ts, http.MethodPost, "/api/v1/compile", `{"source": "#problem Solve it.\n#eq\nx = 1\n"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result CompileResult
	decodeOK(t, resp, &result)
	assert.Contains(t, result.LaTeX, "\\begin{equation}\nx = 1\n\\end{equation}")
	require.Len(t, result.Blocks, 2)
	assert.EqualValues(t, "description", result.Blocks[0].Type)
	assert.EqualValues(t, "equation", result.Blocks[1].Type)
}

func TestCompileValidation(t *testing.T) {
	ts := newTestServer(t, &fakePipeline{})

	resp := do(t, ts, http.MethodPost, "/api/v1/compile", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, string(errors.ErrCodeValidation), errorCode(t, resp))

	resp = do(t, ts, http.MethodPost, "/api/v1/compile", `{"source": `)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestResolve(t *testing.T) {
	ts := newTestServer(t, &fakePipeline{})

	body := `{"template": "basic", "fillings": {
		"description": "A train leaves at 3pm.",
		"equation": "d = vt",
		"question": "When does it arrive?"}}`
	resp := do(t, ts, http.MethodPost, "/api/v1/resolve", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result CompileResult
	decodeOK(t, resp, &result)
	assert.Contains(t, result.LaTeX, "d = vt")
	assert.Contains(t, result.LaTeX, "When does it arrive?")
}

func TestResolveErrors(t *testing.T) {
	ts := newTestServer(t, &fakePipeline{})

	resp := do(t, ts, http.MethodPost, "/api/v1/resolve", `{"template": "nope"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, string(errors.ErrCodeUnknownTemplate), errorCode(t, resp))

	resp = do(t, ts, http.MethodPost, "/api/v1/resolve", `{"template": "basic", "fillings": {}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, string(errors.ErrCodeMissingRequiredSlot), errorCode(t, resp))
}

func TestFailedRequestIsLoggedOnce(t *testing.T) {
	fs := memfs.New()
	svc, err := service.New(service.Options{FS: fs, Pipeline: &fakePipeline{}})
	require.NoError(t, err)
	require.NoError(t, svc.InitLibrary())
	ts := httptest.NewServer(NewAPIServer(svc, 0).Handler())
	t.Cleanup(ts.Close)

	resp := do(t, ts, http.MethodPost, "/api/v1/resolve", `{"template": "basic", "fillings": {}}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	data, err := util.ReadFile(fs, errors.ErrorLogFile)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\n"))
	assert.Contains(t, string(data), "MISSING_REQUIRED_SLOT")
}

func TestTemplates(t *testing.T) {
	ts := newTestServer(t, &fakePipeline{})

	def := `{"id": "energy", "name": "Energy", "slots": [
		{"id": "description", "kind": "text", "required": true, "role": "description"},
		{"id": "equation", "kind": "equation", "required": true}]}`
	resp := do(t, ts, http.MethodPost, "/api/v1/templates", def)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, ts, http.MethodPost, "/api/v1/templates", def)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, string(errors.ErrCodeDuplicateTemplateID), errorCode(t, resp))

	resp = do(t, ts, http.MethodGet, "/api/v1/templates/energy", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got struct {
		ID    string `json:"id"`
		Slots []struct {
			ID string `json:"id"`
		} `json:"slots"`
	}
	decodeOK(t, resp, &got)
	assert.Equal(t, "energy", got.ID)
	assert.Len(t, got.Slots, 2)

	resp = do(t, ts, http.MethodGet, "/api/v1/templates?q=energy", "")
	var found []struct {
		ID string `json:"id"`
	}
	decodeOK(t, resp, &found)
	require.NotEmpty(t, found)
	assert.Equal(t, "energy", found[0].ID)

	resp = do(t, ts, http.MethodGet, "/api/v1/templates/energy/scaffold", "")
	var fillings map[string]interface{}
	decodeOK(t, resp, &fillings)
	assert.Contains(t, fillings, "description")
	assert.Contains(t, fillings, "equation")

	resp = do(t, ts, http.MethodDelete, "/api/v1/templates/basic", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, ts, http.MethodDelete, "/api/v1/templates/energy", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, ts, http.MethodGet, "/api/v1/templates/energy", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateTemplateValidation(t *testing.T) {
	ts := newTestServer(t, &fakePipeline{})

	resp := do(t, ts, http.MethodPost, "/api/v1/templates", `{"id": "../etc", "slots": []}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, string(errors.ErrCodeValidation), errorCode(t, resp))
}

func TestProblems(t *testing.T) {
	ts := newTestServer(t, &fakePipeline{})

	resp := do(t, ts, http.MethodPost, "/api/v1/problems",
		`{"id": "ball", "title": "Thrown ball", "tags": ["kinematics"], "content": "#problem A ball is thrown.\n#eq\nv = at\n"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, ts, http.MethodPost, "/api/v1/problems", `{"id": "ball"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, ts, http.MethodGet, "/api/v1/problems?q=kinematics", "")
	var list []struct {
		ID string `json:"id"`
	}
	decodeOK(t, resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "ball", list[0].ID)

	resp = do(t, ts, http.MethodPut, "/api/v1/problems/ball",
		`{"title": "Thrown ball", "content": "#problem A ball is dropped.\n"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, ts, http.MethodGet, "/api/v1/problems/ball/latex", "")
	var result CompileResult
	decodeOK(t, resp, &result)
	assert.Contains(t, result.LaTeX, "A ball is dropped.")

	resp = do(t, ts, http.MethodDelete, "/api/v1/problems/ball", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, ts, http.MethodGet, "/api/v1/problems/ball", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, string(errors.ErrCodeNotFound), errorCode(t, resp))
}

func TestProblemSets(t *testing.T) {
	ts := newTestServer(t, &fakePipeline{})

	do(t, ts, http.MethodPost, "/api/v1/problems", `{"id": "one", "content": "#problem First.\n"}`)
	do(t, ts, http.MethodPost, "/api/v1/problems", `{"id": "two", "content": "#problem Second.\n"}`)

	resp := do(t, ts, http.MethodPost, "/api/v1/sets", `{"name": "week-1", "title": "Week 1", "problem_ids": ["one", "two"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, ts, http.MethodPost, "/api/v1/sets", `{"name": "broken", "problem_ids": ["missing"]}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, ts, http.MethodPost, "/api/v1/sets", `{"name": "empty"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, ts, http.MethodGet, "/api/v1/sets/week-1/latex", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result CompileResult
	decodeOK(t, resp, &result)
	first := strings.Index(result.LaTeX, "First.")
	second := strings.Index(result.LaTeX, "Second.")
	assert.True(t, first >= 0 && second > first)
	assert.Equal(t, 1, strings.Count(result.LaTeX, `\begin{document}`))

	resp = do(t, ts, http.MethodDelete, "/api/v1/sets/week-1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, ts, http.MethodGet, "/api/v1/sets", "")
	var sets []interface{}
	decodeOK(t, resp, &sets)
	assert.Empty(t, sets)
}

func TestPreview(t *testing.T) {
	ts := newTestServer(t, &fakePipeline{})

	resp := do(t, ts, http.MethodPost, "/api/v1/preview", `{"source": "#problem Hi.\n"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	pdf, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF "))
}

func TestPreviewFailure(t *testing.T) {
	ts := newTestServer(t, &fakePipeline{err: errors.PreviewError("Undefined control sequence", nil)})

	resp := do(t, ts, http.MethodPost, "/api/v1/preview", `{"source": "#problem Hi.\n"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, string(errors.ErrCodePreviewFailed), errorCode(t, resp))
}

func TestOpenAPISpecCoversRoutes(t *testing.T) {
	ts := newTestServer(t, &fakePipeline{})

	resp := do(t, ts, http.MethodGet, "/api/openapi.json", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var spec struct {
		OpenAPI string                 `json:"openapi"`
		Paths   map[string]interface{} `json:"paths"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&spec))
	assert.Equal(t, "3.0.3", spec.OpenAPI)
	for _, path := range []string{
		"/api/v1/compile", "/api/v1/resolve", "/api/v1/templates/{id}/scaffold",
		"/api/v1/problems/{id}/latex", "/api/v1/sets/{name}/latex",
	} {
		assert.Contains(t, spec.Paths, path)
	}

	resp = do(t, ts, http.MethodGet, "/api/docs", "")
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
}
