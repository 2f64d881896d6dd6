package ui

import (
	stderrors "errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpshade/pocket-problem/internal/errors"
	"github.com/dpshade/pocket-problem/internal/models"
	"github.com/dpshade/pocket-problem/internal/service"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	down  = tea.KeyMsg{Type: tea.KeyDown}
	ctrlS = tea.KeyMsg{Type: tea.KeyCtrlS}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func newTestModel(t *testing.T) (Model, *service.Service) {
	t.Helper()
	svc, err := service.New(service.Options{FS: memfs.New()})
	require.NoError(t, err)
	require.NoError(t, svc.InitLibrary())

	m, err := NewModel(svc)
	require.NoError(t, err)
	return *m, svc
}

// send applies msgs in order and returns the resulting model
func send(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestGenerateIDFromTitle(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Free Fall", "free-fall"},
		{"  Newton's 2nd Law!  ", "newton-s-2nd-law"},
		{"$$$", "untitled-problem"},
		{"", "untitled-problem"},
		{strings.Repeat("ab ", 30), strings.TrimSuffix(strings.Repeat("ab-", 17)[:50], "-")},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, generateIDFromTitle(tt.title), tt.title)
	}
}

func TestCurrentTag(t *testing.T) {
	assert.Equal(t, "week", currentTag("kinematics, week", 16))
	assert.Equal(t, "kinematics", currentTag("kinematics, week", 3))
	assert.Equal(t, "", currentTag("kinematics, ", 12))
	assert.Equal(t, "", currentTag("abc", 10))
}

func TestProblemFormToProblem(t *testing.T) {
	f := NewProblemForm()
	f.inputs[titleField].SetValue("Free Fall")
	f.inputs[tagsField].SetValue("kinematics, , week-1")

	p := f.ToProblem()
	assert.Equal(t, "free-fall", p.ID)
	assert.Equal(t, "Free Fall", p.Name)
	assert.Equal(t, []string{"kinematics", "week-1"}, p.Tags)

	f.inputs[idField].SetValue("ff-01")
	assert.Equal(t, "ff-01", f.ToProblem().ID)
}

func TestSelectFormWraps(t *testing.T) {
	f := NewSelectForm([]SelectOption{{Label: "a"}, {Label: "b", Value: "b"}})
	f.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "b", f.GetSelected().Value)
	f.Update(down)
	assert.Equal(t, "a", f.GetSelected().Label)
	assert.False(t, f.IsSubmitted())
	f.Update(enter)
	assert.True(t, f.IsSubmitted())
}

func TestEditorRecompilesOnEdit(t *testing.T) {
	_, svc := newTestModel(t)
	problem := &models.Problem{ID: "p", Content: ""}
	e, err := NewEditor(problem, func(text string) (string, error) {
		return svc.CompileSource(text), nil
	})
	require.NoError(t, err)
	assert.False(t, e.Dirty())

	e.Update(runes("#eq x = 1"))
	assert.True(t, e.Dirty())
	assert.NoError(t, e.Err())
	assert.Contains(t, e.LaTeX(), "\\begin{equation}\nx = 1\n\\end{equation}")

	require.NoError(t, e.Apply())
	assert.Equal(t, "#eq x = 1", problem.Content)
}

func TestEditorKeepsLastGoodOutput(t *testing.T) {
	compile := func(text string) (string, error) {
		if strings.Contains(text, "bad") {
			return "", stderrors.New("cannot compile")
		}
		return "ok:" + text, nil
	}
	e, err := NewEditor(&models.Problem{ID: "p", Content: "a"}, compile)
	require.NoError(t, err)
	assert.Equal(t, "ok:a", e.LaTeX())

	e.Update(runes("bad"))
	assert.EqualError(t, e.Err(), "cannot compile")
	assert.Equal(t, "ok:a", e.LaTeX())

	// keys go to the LaTeX pane after tab
	e.Update(tea.KeyMsg{Type: tea.KeyTab})
	e.Update(runes("zzz"))
	assert.Equal(t, "abad", e.Value())
}

func TestEditorAppliesFillings(t *testing.T) {
	problem := &models.Problem{
		ID:       "p",
		Template: "basic",
		Fillings: models.Fillings{"description": models.Literal("A train leaves.")},
	}
	e, err := NewEditor(problem, func(string) (string, error) { return "", nil })
	require.NoError(t, err)
	assert.Contains(t, e.Value(), "description: A train leaves.")

	e.Update(runes("equation: d = vt"))
	require.NoError(t, e.Apply())
	assert.Equal(t, models.Literal("d = vt"), problem.Fillings["equation"])
	assert.Equal(t, models.Literal("A train leaves."), problem.Fillings["description"])
}

func TestLibraryEditAndSave(t *testing.T) {
	m, svc := newTestModel(t)
	require.NoError(t, svc.CreateProblem(&models.Problem{ID: "ball", Name: "Ball", Content: "#problem A ball."}))

	m = send(t, m, loadProblemsCmd(svc)())
	assert.False(t, m.loading)
	require.Len(t, m.problemList.Items(), 1)

	m = send(t, m, enter)
	require.Equal(t, ViewEditor, m.viewMode)
	assert.Contains(t, m.editor.LaTeX(), "A ball.")

	m = send(t, m, enter, runes("#eq v = at"))
	assert.Contains(t, m.editor.LaTeX(), "v = at")

	stored, err := svc.GetProblem("ball")
	require.NoError(t, err)
	assert.NotContains(t, stored.Content, "#eq")

	m = send(t, m, ctrlS)
	assert.Equal(t, "Saved ball", m.statusMsg)
	assert.False(t, m.editor.Dirty())

	stored, err = svc.GetProblem("ball")
	require.NoError(t, err)
	assert.Contains(t, stored.Content, "#eq v = at")

	m = send(t, m, esc)
	assert.Equal(t, ViewLibrary, m.viewMode)
	assert.Nil(t, m.editor)
}

func TestCreateFreeFormProblem(t *testing.T) {
	m, svc := newTestModel(t)
	m = send(t, m, loadProblemsCmd(svc)(), runes("n"))
	require.Equal(t, ViewCreate, m.viewMode)

	m = send(t, m, runes("Free fall"), enter, enter, runes("kinematics"), enter)
	require.Equal(t, ViewSelectTemplate, m.viewMode)

	m = send(t, m, enter)
	require.Equal(t, ViewEditor, m.viewMode)

	p, err := svc.GetProblem("free-fall")
	require.NoError(t, err)
	assert.Equal(t, "Free fall", p.Name)
	assert.Equal(t, []string{"kinematics"}, p.Tags)
	assert.False(t, p.UsesTemplate())
	assert.Contains(t, m.editor.LaTeX(), "Free fall")
}

func TestCreateTemplateProblem(t *testing.T) {
	m, svc := newTestModel(t)
	m = send(t, m, runes("n"), runes("Train"), enter, enter, enter)
	require.Equal(t, ViewSelectTemplate, m.viewMode)

	// the first template in registration order is "basic"
	m = send(t, m, down, enter)
	require.Equal(t, ViewEditor, m.viewMode)

	p, err := svc.GetProblem("train")
	require.NoError(t, err)
	assert.Equal(t, "basic", p.Template)
	assert.Contains(t, m.editor.Value(), "description:")

	// the scaffold leaves required slots blank
	assert.Error(t, m.editor.Err())
	assert.Equal(t, "error", m.statusType)
}

func TestCreateRequiresTitle(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(t, m, runes("n"), enter, enter, enter)
	assert.Equal(t, ViewCreate, m.viewMode)
	assert.Equal(t, "A title is required", m.statusMsg)
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	m, svc := newTestModel(t)
	require.NoError(t, svc.CreateProblem(&models.Problem{ID: "gone", Name: "Gone", Content: "x"}))
	m = send(t, m, loadProblemsCmd(svc)())

	m = send(t, m, runes("d"), runes("n"))
	_, err := svc.GetProblem("gone")
	assert.NoError(t, err)

	m = send(t, m, runes("d"), runes("y"))
	assert.Equal(t, "Deleted gone", m.statusMsg)
	_, err = svc.GetProblem("gone")
	assert.Error(t, err)
}

func TestTemplateBrowser(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(t, m, runes("t"))
	require.Equal(t, ViewTemplates, m.viewMode)

	m = send(t, m, enter)
	require.Equal(t, ViewTemplateDetail, m.viewMode)
	assert.Contains(t, m.viewport.View(), "description")

	m = send(t, m, esc, esc)
	assert.Equal(t, ViewLibrary, m.viewMode)
}

func TestGitStatusMessage(t *testing.T) {
	m, svc := newTestModel(t)
	m = send(t, m, gitSyncStatusCmd(svc)())
	assert.Equal(t, "Git sync unavailable", m.gitSyncStatus)
}

func TestLiveCompileErrorsAreNotLogged(t *testing.T) {
	fs := memfs.New()
	svc, err := service.New(service.Options{FS: fs})
	require.NoError(t, err)
	require.NoError(t, svc.InitLibrary())
	require.NoError(t, svc.CreateProblem(&models.Problem{ID: "train", Name: "Train", Template: "basic"}))

	mp, err := NewModel(svc)
	require.NoError(t, err)
	m := send(t, *mp, loadProblemsCmd(svc)(), enter)
	require.Equal(t, ViewEditor, m.viewMode)

	m = send(t, m, runes("description: [A train"), down, tea.KeyMsg{Type: tea.KeyUp})
	assert.Error(t, m.editor.Err())
	assert.Equal(t, "error", m.statusType)

	logged := func() string {
		data, err := util.ReadFile(fs, errors.ErrorLogFile)
		if err != nil {
			return ""
		}
		return string(data)
	}
	assert.Empty(t, logged())

	// saving unparseable fillings is a real failure
	m = send(t, m, ctrlS)
	assert.Equal(t, "error", m.statusType)
	assert.Equal(t, 1, strings.Count(logged(), "\n"))
}
