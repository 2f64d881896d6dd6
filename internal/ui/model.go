package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dpshade/pocket-problem/internal/clipboard"
	"github.com/dpshade/pocket-problem/internal/errors"
	"github.com/dpshade/pocket-problem/internal/models"
	"github.com/dpshade/pocket-problem/internal/service"
)

// Run starts the full-screen editor on svc
func Run(svc *service.Service) error {
	initializeColors()
	m, err := NewModel(svc)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// Commands for async operations
type loadCompleteMsg struct {
	problems []*models.Problem
	err      error
}

type gitSyncStatusMsg struct {
	status string
	err    error
}

type previewDoneMsg struct {
	path string
	err  error
}

func loadProblemsCmd(svc *service.Service) tea.Cmd {
	return func() tea.Msg {
		problems, err := svc.ListProblems()
		return loadCompleteMsg{problems: problems, err: err}
	}
}

func gitSyncStatusCmd(svc *service.Service) tea.Cmd {
	return func() tea.Msg {
		status, err := svc.GetGitSyncStatus()
		return gitSyncStatusMsg{status: status, err: err}
	}
}

// previewCmd renders latex to a PDF next to the system temp files
func previewCmd(svc *service.Service, id, latex string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		path := filepath.Join(os.TempDir(), "pocket-problem-"+id+".pdf")
		return previewDoneMsg{path: path, err: svc.ExportPDF(ctx, latex, path)}
	}
}

// ViewMode represents the current view in the TUI
type ViewMode int

const (
	ViewLibrary ViewMode = iota
	ViewCreate
	ViewSelectTemplate
	ViewEditor
	ViewTemplates
	ViewTemplateDetail
)

// templateItem adapts a template definition to list.Item
type templateItem struct {
	def *models.TemplateDefinition
}

func (t templateItem) FilterValue() string { return t.def.ID + " " + t.def.Name }
func (t templateItem) Title() string       { return t.def.Title() }
func (t templateItem) Description() string {
	origin := "builtin"
	if t.def.FilePath != "" {
		origin = "user"
	}
	return fmt.Sprintf("%s • %d slots • %s", t.def.ID, len(t.def.Slots), origin)
}

// Model represents the TUI application state
type Model struct {
	service      *service.Service
	errorHandler *errors.TUIErrorHandler
	viewMode     ViewMode

	// UI components
	problemList  list.Model
	templateList list.Model
	viewport     viewport.Model
	helpViewport viewport.Model
	help         help.Model
	keys         KeyMap

	// Data
	problems      []*models.Problem
	loading       bool
	deleteConfirm bool

	// Creation and editing
	createForm *ProblemForm
	selectForm *SelectForm
	newProblem *models.Problem
	editor     *Editor

	width  int
	height int

	statusMsg     string
	statusType    string
	statusTimeout int

	showHelpModal    bool
	showExpandedHelp bool
	gitSyncStatus    string
}

// KeyMap defines all key bindings
type KeyMap struct {
	Enter      key.Binding
	Back       key.Binding
	Quit       key.Binding
	Help       key.Binding
	ExpandHelp key.Binding
	New        key.Binding
	Edit       key.Binding
	Delete     key.Binding
	Copy       key.Binding
	Preview    key.Binding
	Templates  key.Binding
	Save       key.Binding
	CopyLaTeX  key.Binding
	PreviewPDF key.Binding
}

// ShortHelp returns keybindings to show in the mini help view
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns keybindings to show in the full help view
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Enter, k.Back, k.New, k.Edit},
		{k.Delete, k.Copy, k.Preview, k.Templates},
		{k.Save, k.CopyLaTeX, k.PreviewPDF},
		{k.Help, k.Quit},
	}
}

var keys = KeyMap{
	Enter:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "open")),
	Back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("Esc", "back")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "syntax help")),
	ExpandHelp: key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("Ctrl+g", "expand help")),
	New:        key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new problem")),
	Edit:       key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
	Delete:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Copy:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy LaTeX")),
	Preview:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "PDF preview")),
	Templates:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "templates")),
	Save:       key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("Ctrl+s", "save")),
	CopyLaTeX:  key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("Ctrl+y", "copy LaTeX")),
	PreviewPDF: key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("Ctrl+p", "PDF preview")),
}

// NewModel creates a new TUI model. Problems load asynchronously from Init.
func NewModel(svc *service.Service) (*Model, error) {
	newList := func() list.Model {
		l := list.New(nil, list.NewDefaultDelegate(), 80, 20)
		l.SetShowTitle(false)
		l.SetShowStatusBar(false)
		l.SetShowHelp(false)
		l.SetFilteringEnabled(true)
		return l
	}

	templates := svc.ListTemplates()
	items := make([]list.Item, len(templates))
	for i, def := range templates {
		items[i] = templateItem{def: def}
	}
	templateList := newList()
	templateList.SetItems(items)

	vp := viewport.New(80, 20)
	vp.Style = lipgloss.NewStyle()
	helpVp := viewport.New(76, 20)
	helpVp.Style = lipgloss.NewStyle()

	return &Model{
		service:      svc,
		errorHandler: errors.NewTUIErrorHandler(os.Getenv("POCKET_PROBLEM_DEBUG") != "", svc.ErrorLog()),
		viewMode:     ViewLibrary,
		problemList:  newList(),
		templateList: templateList,
		viewport:     vp,
		helpViewport: helpVp,
		help:         help.New(),
		keys:         keys,
		loading:      true,
	}, nil
}

// Init loads the library and the git status
func (m Model) Init() tea.Cmd {
	return tea.Batch(loadProblemsCmd(m.service), gitSyncStatusCmd(m.service))
}

// tickMsg is sent to clear the status message
type tickMsg time.Time

func clearStatusCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) setStatus(text, statusType string) tea.Cmd {
	m.statusMsg = text
	m.statusType = statusType
	m.statusTimeout = 4
	return clearStatusCmd()
}

func (m *Model) setError(err error) tea.Cmd {
	m.errorHandler.HandleError(err)
	return m.setStatus(m.errorHandler.FormatError(err), "error")
}

// showCompileError reports a live recompile failure without logging it;
// partial input is the normal state while editing
func (m *Model) showCompileError(err error) tea.Cmd {
	return m.setStatus(m.errorHandler.FormatError(err), "error")
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.statusTimeout > 0 {
			m.statusTimeout--
			if m.statusTimeout == 0 {
				m.statusMsg = ""
				return m, nil
			}
			return m, clearStatusCmd()
		}
		return m, nil

	case loadCompleteMsg:
		m.loading = false
		if msg.err != nil {
			cmd := m.setStatus(fmt.Sprintf("Warning: %v", msg.err), "warning")
			return m, cmd
		}
		m.problems = msg.problems
		items := make([]list.Item, len(m.problems))
		for i, p := range m.problems {
			items[i] = p
		}
		cmd := m.problemList.SetItems(items)
		return m, cmd

	case gitSyncStatusMsg:
		if msg.err != nil {
			m.gitSyncStatus = "status unavailable"
		} else {
			m.gitSyncStatus = msg.status
		}
		return m, nil

	case previewDoneMsg:
		if msg.err != nil {
			cmd := m.setError(msg.err)
			return m, cmd
		}
		cmd := m.setStatus("PDF written to "+msg.path, "success")
		return m, cmd

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if m.showHelpModal {
			return m.updateHelpModal(msg)
		}
		switch m.viewMode {
		case ViewLibrary:
			return m.updateLibrary(msg)
		case ViewCreate:
			return m.updateCreate(msg)
		case ViewSelectTemplate:
			return m.updateSelectTemplate(msg)
		case ViewEditor:
			return m.updateEditor(msg)
		case ViewTemplates:
			return m.updateTemplates(msg)
		case ViewTemplateDetail:
			return m.updateTemplateDetail(msg)
		}
	}
	return m, nil
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	// title, git status, help and status rows
	const reservedHeight = 8
	available := height - reservedHeight
	if available < 5 {
		available = 5
	}

	m.problemList.SetSize(width-4, available)
	m.templateList.SetSize(width-4, available)
	m.viewport.Width = width - 8
	m.viewport.Height = available - 2
	m.helpViewport.Width = min(76, width-8)
	m.helpViewport.Height = min(30, height-8)
	if m.editor != nil {
		m.editor.Resize(width, available-2)
	}
}

func (m Model) updateLibrary(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// the list owns every key while its filter prompt is open
	if m.problemList.SettingFilter() {
		var cmd tea.Cmd
		m.problemList, cmd = m.problemList.Update(msg)
		return m, cmd
	}

	if m.deleteConfirm {
		m.deleteConfirm = false
		problem := m.selectedProblem()
		if msg.String() != "y" || problem == nil {
			cmd := m.setStatus("Delete cancelled", "info")
			return m, cmd
		}
		if err := m.service.DeleteProblem(problem.ID); err != nil {
			cmd := m.setError(err)
			return m, cmd
		}
		cmd := tea.Batch(m.setStatus("Deleted "+problem.ID, "success"), loadProblemsCmd(m.service))
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		cmd := m.openHelp()
		return m, cmd
	case key.Matches(msg, m.keys.ExpandHelp):
		m.showExpandedHelp = !m.showExpandedHelp
		return m, nil
	case key.Matches(msg, m.keys.New):
		m.createForm = NewProblemForm()
		m.createForm.SetAvailableTags(m.knownTags())
		m.viewMode = ViewCreate
		return m, nil
	case key.Matches(msg, m.keys.Templates):
		m.viewMode = ViewTemplates
		return m, nil
	case key.Matches(msg, m.keys.Enter), key.Matches(msg, m.keys.Edit):
		if problem := m.selectedProblem(); problem != nil {
			cmd := m.openEditor(problem.ID)
			return m, cmd
		}
		return m, nil
	case key.Matches(msg, m.keys.Delete):
		if problem := m.selectedProblem(); problem != nil {
			m.deleteConfirm = true
			cmd := m.setStatus(fmt.Sprintf("Delete %s? (y/n)", problem.ID), "warning")
			return m, cmd
		}
		return m, nil
	case key.Matches(msg, m.keys.Copy):
		if problem := m.selectedProblem(); problem != nil {
			latex, err := m.service.CompileProblem(problem.ID)
			if err != nil {
				cmd := m.setError(err)
				return m, cmd
			}
			cmd := m.copyLaTeX(latex)
			return m, cmd
		}
		return m, nil
	case key.Matches(msg, m.keys.Preview):
		if problem := m.selectedProblem(); problem != nil {
			latex, err := m.service.CompileProblem(problem.ID)
			if err != nil {
				cmd := m.setError(err)
				return m, cmd
			}
			cmd := tea.Batch(m.setStatus("Rendering PDF...", "info"), previewCmd(m.service, problem.ID, latex))
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.problemList, cmd = m.problemList.Update(msg)
	return m, cmd
}

func (m *Model) selectedProblem() *models.Problem {
	if p, ok := m.problemList.SelectedItem().(*models.Problem); ok {
		return p
	}
	return nil
}

func (m *Model) knownTags() []string {
	seen := make(map[string]bool)
	var tags []string
	for _, p := range m.problems {
		for _, tag := range p.Tags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	sort.Strings(tags)
	return tags
}

func (m Model) updateCreate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) {
		m.createForm = nil
		m.viewMode = ViewLibrary
		return m, nil
	}

	cmd := m.createForm.Update(msg)
	if !m.createForm.IsSubmitted() {
		return m, cmd
	}

	m.newProblem = m.createForm.ToProblem()
	if m.newProblem.Name == "" {
		m.createForm = NewProblemForm()
		cmd := m.setStatus("A title is required", "warning")
		return m, cmd
	}

	options := []SelectOption{{Label: "Free-form markdown", Description: "Write #title, #problem, #eq... directly"}}
	for _, def := range m.service.ListTemplates() {
		options = append(options, SelectOption{Label: def.Title(), Description: def.Description, Value: def.ID})
	}
	m.selectForm = NewSelectForm(options)
	m.viewMode = ViewSelectTemplate
	return m, nil
}

func (m Model) updateSelectTemplate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) {
		m.viewMode = ViewCreate
		m.createForm.submitted = false
		return m, nil
	}

	m.selectForm.Update(msg)
	if !m.selectForm.IsSubmitted() {
		return m, nil
	}

	problem, err := m.createProblem(m.newProblem, m.selectForm.GetSelected().Value)
	if err != nil {
		m.viewMode = ViewCreate
		m.createForm.submitted = false
		cmd := m.setError(err)
		return m, cmd
	}
	m.createForm, m.selectForm, m.newProblem = nil, nil, nil
	cmd := tea.Batch(m.openEditor(problem.ID), loadProblemsCmd(m.service))
	return m, cmd
}

// createProblem stores a new problem seeded with a scaffold for templateID,
// or with a title line for free-form problems
func (m *Model) createProblem(problem *models.Problem, templateID string) (*models.Problem, error) {
	if templateID == "" {
		problem.Content = fmt.Sprintf("#title %s\n#problem\n", problem.Name)
	} else {
		fillings, err := m.service.ScaffoldFillings(templateID)
		if err != nil {
			return nil, err
		}
		problem.Template = templateID
		problem.Fillings = fillings
	}
	if err := m.service.CreateProblem(problem); err != nil {
		return nil, err
	}
	return problem, nil
}

// compileFunc returns the compile step matching the problem's kind
func (m *Model) compileFunc(problem *models.Problem) CompileFunc {
	if !problem.UsesTemplate() {
		return func(text string) (string, error) {
			return m.service.CompileSource(text), nil
		}
	}
	templateID := problem.Template
	return func(text string) (string, error) {
		fillings, err := models.ParseFillings([]byte(text))
		if err != nil {
			return "", errors.ValidationError("invalid fillings").WithDetails(err.Error())
		}
		return m.service.CompileTemplate(templateID, fillings)
	}
}

// openEditor loads the full problem, since listed problems carry only
// metadata, and switches to the editor
func (m *Model) openEditor(id string) tea.Cmd {
	problem, err := m.service.GetProblem(id)
	if err != nil {
		return m.setError(err)
	}
	editor, err := NewEditor(problem, m.compileFunc(problem))
	if err != nil {
		return m.setError(err)
	}
	m.editor = editor
	m.editor.Resize(m.width, m.height-10)
	m.viewMode = ViewEditor
	if err := editor.Err(); err != nil {
		return m.showCompileError(err)
	}
	return nil
}

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back):
		dirty := m.editor.Dirty()
		m.editor = nil
		m.viewMode = ViewLibrary
		if dirty {
			cmd := m.setStatus("Discarded unsaved changes", "warning")
			return m, cmd
		}
		return m, nil
	case key.Matches(msg, m.keys.Save):
		cmd := m.saveEditor()
		return m, cmd
	case key.Matches(msg, m.keys.CopyLaTeX):
		cmd := m.copyLaTeX(m.editor.LaTeX())
		return m, cmd
	case key.Matches(msg, m.keys.PreviewPDF):
		if m.editor.Err() != nil {
			cmd := m.showCompileError(m.editor.Err())
			return m, cmd
		}
		return m, tea.Batch(
			m.setStatus("Rendering PDF...", "info"),
			previewCmd(m.service, m.editor.Problem().ID, m.editor.LaTeX()),
		)
	case msg.String() == "f1":
		cmd := m.openHelp()
		return m, cmd
	}

	hadErr := m.editor.Err() != nil
	cmd := m.editor.Update(msg)
	if err := m.editor.Err(); err != nil {
		errCmd := m.showCompileError(err)
		return m, tea.Batch(cmd, errCmd)
	}
	if hadErr {
		m.statusMsg = ""
	}
	return m, cmd
}

func (m *Model) saveEditor() tea.Cmd {
	if err := m.editor.Apply(); err != nil {
		return m.setError(errors.ValidationError("cannot save").WithDetails(err.Error()))
	}
	problem := m.editor.Problem()
	if err := m.service.SaveProblem(problem); err != nil {
		return m.setError(err)
	}
	m.editor.MarkSaved()
	return tea.Batch(m.setStatus("Saved "+problem.ID, "success"), loadProblemsCmd(m.service))
}

func (m *Model) copyLaTeX(latex string) tea.Cmd {
	if latex == "" {
		return m.setStatus("Nothing to copy", "warning")
	}
	if err := clipboard.Copy(latex); err != nil {
		return m.setError(err)
	}
	return m.setStatus("Copied LaTeX to clipboard", "success")
}

func (m Model) updateTemplates(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.templateList.SettingFilter() {
		var cmd tea.Cmd
		m.templateList, cmd = m.templateList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Back):
		m.viewMode = ViewLibrary
		return m, nil
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.Enter):
		item, ok := m.templateList.SelectedItem().(templateItem)
		if !ok {
			return m, nil
		}
		content, err := m.templateDetail(item.def)
		if err != nil {
			cmd := m.setError(err)
			return m, cmd
		}
		m.viewport.SetContent(content)
		m.viewport.GotoTop()
		m.viewMode = ViewTemplateDetail
		return m, nil
	}

	var cmd tea.Cmd
	m.templateList, cmd = m.templateList.Update(msg)
	return m, cmd
}

// templateDetail renders a template's slots and its scaffold
func (m *Model) templateDetail(def *models.TemplateDefinition) (string, error) {
	scaffold, err := m.service.ScaffoldYAML(def.ID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", def.Title())
	if def.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", def.Description)
	}
	b.WriteString("| Slot | Kind | Required |\n|---|---|---|\n")
	for _, slot := range def.Slots {
		fmt.Fprintf(&b, "| %s | %s | %t |\n", slot.ID, slot.Kind, slot.Required)
	}
	fmt.Fprintf(&b, "\n## Fillings scaffold\n\n```yaml\n%s```\n", scaffold)

	r, err := createGlamourRenderer(max(m.viewport.Width-2, 40))
	if err != nil {
		return b.String(), nil
	}
	out, err := r.Render(b.String())
	if err != nil {
		return b.String(), nil
	}
	return out, nil
}

func (m Model) updateTemplateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.viewMode = ViewTemplates
		return m, nil
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) openHelp() tea.Cmd {
	guide, err := RenderSyntaxGuide(max(m.helpViewport.Width-2, 40))
	if err != nil {
		guide = SyntaxGuide
	}
	m.helpViewport.SetContent(guide)
	m.helpViewport.GotoTop()
	m.showHelpModal = true
	return nil
}

func (m Model) updateHelpModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "?", "q", "f1":
		m.showHelpModal = false
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.helpViewport, cmd = m.helpViewport.Update(msg)
	return m, cmd
}

// View renders the current view
func (m Model) View() string {
	if m.showHelpModal {
		return CenterModal(StyleModal.Render(m.helpViewport.View()), m.width, m.height)
	}

	var mainView string
	switch m.viewMode {
	case ViewLibrary:
		mainView = m.renderLibraryView()
	case ViewCreate:
		mainView = lipgloss.JoinVertical(lipgloss.Left,
			CreateMainHeader("New Problem"),
			"",
			m.createForm.View(),
			CreateContextualHelp([]string{"tab next field • enter continue • Esc cancel"}, nil, false, m.width),
		)
	case ViewSelectTemplate:
		mainView = lipgloss.JoinVertical(lipgloss.Left,
			CreateMainHeader("Start From"),
			"",
			m.selectForm.View(),
			CreateContextualHelp([]string{"↑/↓ choose • enter create • Esc back"}, nil, false, m.width),
		)
	case ViewEditor:
		mainView = m.renderEditorView()
	case ViewTemplates:
		mainView = lipgloss.JoinVertical(lipgloss.Left,
			CreateMainHeader("Templates"),
			m.templateList.View(),
			CreateContextualHelp([]string{"enter view • / filter • Esc back"}, nil, false, m.width),
		)
	case ViewTemplateDetail:
		up, down := CreateScrollIndicators(!m.viewport.AtTop(), !m.viewport.AtBottom())
		mainView = lipgloss.JoinVertical(lipgloss.Left,
			CreateMainHeader("Template"),
			StyleContentContainer.Render(lipgloss.JoinVertical(lipgloss.Left, up, m.viewport.View(), down)),
			CreateContextualHelp([]string{"↑/↓ scroll • Esc back"}, nil, false, m.width),
		)
	default:
		mainView = "Unknown view mode"
	}

	if m.statusMsg != "" {
		mainView = lipgloss.JoinVertical(lipgloss.Left, mainView, CreateStatus(m.statusMsg, m.statusType))
	}
	return AddMainPadding(mainView)
}

func (m Model) renderLibraryView() string {
	elements := []string{CreateMainHeader("Pocket Problem Library")}
	if m.gitSyncStatus != "" {
		elements = append(elements, CreateGitStatus(m.gitSyncStatus))
	}

	if m.loading {
		elements = append(elements, StyleLoading.Render("Loading problems..."))
	} else if len(m.problems) == 0 {
		elements = append(elements, StyleTextMuted.Render("No problems yet. Press n to create one."))
	} else {
		elements = append(elements, m.problemList.View())
	}

	essential := []string{"enter edit • n new • c copy LaTeX • p PDF"}
	additional := []string{"/ filter • t templates • d delete", "? syntax help • q quit"}
	elements = append(elements, CreateContextualHelp(essential, additional, m.showExpandedHelp, m.width))
	return lipgloss.JoinVertical(lipgloss.Left, elements...)
}

func (m Model) renderEditorView() string {
	problem := m.editor.Problem()
	title := problem.Title()
	if m.editor.Dirty() {
		title += " *"
	}

	metadata := "ID: " + problem.ID
	if len(problem.Tags) > 0 {
		metadata += " • Tags: " + strings.Join(problem.Tags, ", ")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		CreateMainHeader(title),
		CreateMetadata(metadata),
		m.editor.View(),
		CreateContextualHelp(
			[]string{"Ctrl+s save • Ctrl+y copy • Ctrl+p PDF • tab switch pane • Esc back"},
			[]string{"F1 syntax help"},
			m.showExpandedHelp, m.width),
	)
}
