package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/dpshade/pocket-problem/internal/models"
)

// CompileFunc turns editor text into LaTeX
type CompileFunc func(text string) (string, error)

// Editor edits one problem: markdown source for free-form problems, a
// fillings YAML document for template-built ones. The LaTeX pane is
// recompiled on every change; when compilation fails the last good output
// stays visible and the error is kept for the status bar.
type Editor struct {
	problem *models.Problem
	compile CompileFunc

	source textarea.Model
	output viewport.Model

	latex       string
	err         error
	dirty       bool
	focusOutput bool
}

// NewEditor creates an editor for problem
func NewEditor(problem *models.Problem, compile CompileFunc) (*Editor, error) {
	text := problem.Content
	if problem.UsesTemplate() {
		data, err := yaml.Marshal(problem.Fillings)
		if err != nil {
			return nil, err
		}
		text = string(data)
		if len(problem.Fillings) == 0 {
			text = ""
		}
	}

	ta := textarea.New()
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.ShowLineNumbers = true
	ta.SetValue(text)
	ta.Focus()

	vp := viewport.New(40, 10)
	vp.Style = lipgloss.NewStyle()

	e := &Editor{
		problem: problem,
		compile: compile,
		source:  ta,
		output:  vp,
	}
	e.recompile()
	return e, nil
}

// Update routes keys to the focused pane. tab switches panes.
func (e *Editor) Update(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "tab" {
		e.focusOutput = !e.focusOutput
		if e.focusOutput {
			e.source.Blur()
			return nil
		}
		return e.source.Focus()
	}

	var cmd tea.Cmd
	if e.focusOutput {
		e.output, cmd = e.output.Update(msg)
		return cmd
	}

	before := e.source.Value()
	e.source, cmd = e.source.Update(msg)
	if e.source.Value() != before {
		e.dirty = true
		e.recompile()
	}
	return cmd
}

func (e *Editor) recompile() {
	latex, err := e.compile(e.source.Value())
	e.err = err
	if err != nil {
		return
	}
	e.latex = latex
	e.output.SetContent(latex)
}

// Resize splits width between the source and LaTeX panes
func (e *Editor) Resize(width, height int) {
	paneWidth := (width - 8) / 2
	if paneWidth < 20 {
		paneWidth = 20
	}
	if height < 5 {
		height = 5
	}
	e.source.SetWidth(paneWidth)
	e.source.SetHeight(height)
	e.output.Width = paneWidth
	e.output.Height = height
}

// Apply writes the editor text back into the problem
func (e *Editor) Apply() error {
	text := e.source.Value()
	if !e.problem.UsesTemplate() {
		e.problem.Content = text
		return nil
	}
	fillings, err := models.ParseFillings([]byte(text))
	if err != nil {
		return err
	}
	e.problem.Fillings = fillings
	return nil
}

// MarkSaved clears the unsaved-changes flag
func (e *Editor) MarkSaved() {
	e.dirty = false
}

func (e *Editor) Problem() *models.Problem { return e.problem }
func (e *Editor) LaTeX() string            { return e.latex }
func (e *Editor) Err() error               { return e.err }
func (e *Editor) Dirty() bool              { return e.dirty }
func (e *Editor) Value() string            { return e.source.Value() }

// View renders the two panes side by side
func (e *Editor) View() string {
	sourceStyle, outputStyle := StylePaneFocused, StylePane
	if e.focusOutput {
		sourceStyle, outputStyle = StylePane, StylePaneFocused
	}

	label := "Source"
	if e.problem.UsesTemplate() {
		label = "Fillings (" + e.problem.Template + ")"
	}
	up, down := CreateScrollIndicators(!e.output.AtTop(), !e.output.AtBottom())

	left := lipgloss.JoinVertical(lipgloss.Left, StyleTextMuted.Render(label), sourceStyle.Render(e.source.View()))
	right := lipgloss.JoinVertical(lipgloss.Left,
		StyleTextMuted.Render("LaTeX"),
		outputStyle.Render(strings.Join([]string{up, e.output.View(), down}, "\n")),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
}
