package ui

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dpshade/pocket-problem/internal/models"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// generateIDFromTitle creates a file-safe ID from a title
func generateIDFromTitle(title string) string {
	id := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if id == "" {
		return "untitled-problem"
	}
	if len(id) > 50 {
		id = strings.TrimSuffix(id[:50], "-")
	}
	return id
}

// ProblemForm collects the metadata of a new problem
type ProblemForm struct {
	inputs        []textinput.Model
	focused       int
	submitted     bool
	availableTags []string
}

// Form field indices
const (
	titleField = iota
	idField
	tagsField
)

var formLabels = []string{"Title", "ID", "Tags"}

// NewProblemForm creates an empty problem form focused on the title
func NewProblemForm() *ProblemForm {
	inputs := make([]textinput.Model, 3)

	inputs[titleField] = textinput.New()
	inputs[titleField].Placeholder = "Projectile on a ramp"
	inputs[titleField].CharLimit = 100
	inputs[titleField].Width = 50
	inputs[titleField].Focus()

	inputs[idField] = textinput.New()
	inputs[idField].Placeholder = "generated from the title"
	inputs[idField].CharLimit = 50
	inputs[idField].Width = 40

	inputs[tagsField] = textinput.New()
	inputs[tagsField].Placeholder = "kinematics, week-1 (comma-separated)"
	inputs[tagsField].CharLimit = 200
	inputs[tagsField].Width = 50

	return &ProblemForm{inputs: inputs}
}

// Update handles form updates
func (f *ProblemForm) Update(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "tab", "down":
			f.nextField()
			return nil
		case "shift+tab", "up":
			f.prevField()
			return nil
		case "enter":
			if f.focused == tagsField {
				f.submitted = true
				return nil
			}
			f.nextField()
			return nil
		case "ctrl+s":
			f.submitted = true
			return nil
		}
	}

	var cmd tea.Cmd
	f.inputs[f.focused], cmd = f.inputs[f.focused].Update(msg)
	if f.focused == tagsField {
		f.updateTagAutocomplete()
	}
	return cmd
}

func (f *ProblemForm) nextField() {
	f.inputs[f.focused].Blur()
	f.focused = (f.focused + 1) % len(f.inputs)
	f.inputs[f.focused].Focus()
}

func (f *ProblemForm) prevField() {
	f.inputs[f.focused].Blur()
	f.focused = (f.focused + len(f.inputs) - 1) % len(f.inputs)
	f.inputs[f.focused].Focus()
}

// ToProblem converts form data to a Problem. The id falls back to a slug
// of the title.
func (f *ProblemForm) ToProblem() *models.Problem {
	title := strings.TrimSpace(f.inputs[titleField].Value())
	id := strings.TrimSpace(f.inputs[idField].Value())
	if id == "" {
		id = generateIDFromTitle(title)
	}

	var tags []string
	for _, tag := range strings.Split(f.inputs[tagsField].Value(), ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	return &models.Problem{ID: id, Name: title, Tags: tags}
}

// IsSubmitted returns whether the form has been submitted
func (f *ProblemForm) IsSubmitted() bool {
	return f.submitted
}

// SetAvailableTags enables tag autocomplete from existing problems
func (f *ProblemForm) SetAvailableTags(tags []string) {
	f.availableTags = tags
	if len(tags) == 0 {
		return
	}
	f.inputs[tagsField].SetSuggestions(tags)
	f.inputs[tagsField].ShowSuggestions = true

	// tab is field navigation here
	keyMap := textinput.DefaultKeyMap
	keyMap.AcceptSuggestion = key.NewBinding(key.WithKeys("ctrl+space", "right"))
	f.inputs[tagsField].KeyMap = keyMap
}

// updateTagAutocomplete narrows suggestions to the tag under the cursor
func (f *ProblemForm) updateTagAutocomplete() {
	if len(f.availableTags) == 0 {
		return
	}
	current := strings.ToLower(currentTag(f.inputs[tagsField].Value(), f.inputs[tagsField].Position()))
	if current == "" {
		f.inputs[tagsField].SetSuggestions(f.availableTags)
		return
	}

	var matches []string
	for _, tag := range f.availableTags {
		if strings.HasPrefix(strings.ToLower(tag), current) {
			matches = append(matches, tag)
		}
	}
	f.inputs[tagsField].SetSuggestions(matches)
}

// currentTag extracts the comma-separated tag at cursorPos
func currentTag(text string, cursorPos int) string {
	if cursorPos < 0 || cursorPos > len(text) {
		return ""
	}
	start := strings.LastIndexByte(text[:cursorPos], ',') + 1
	end := len(text)
	if i := strings.IndexByte(text[cursorPos:], ','); i >= 0 {
		end = cursorPos + i
	}
	return strings.TrimSpace(text[start:end])
}

// View renders the labelled inputs
func (f *ProblemForm) View() string {
	var lines []string
	for i, input := range f.inputs {
		label := StyleFormLabel.Render(formLabels[i])
		if i == f.focused {
			label = StyleFocused.Render(formLabels[i])
		}
		lines = append(lines, label, input.View(), "")
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// SelectForm handles selection from a list of options
type SelectForm struct {
	options   []SelectOption
	selected  int
	submitted bool
}

// SelectOption represents an option in the select form
type SelectOption struct {
	Label       string
	Description string
	Value       string
}

// NewSelectForm creates a new select form
func NewSelectForm(options []SelectOption) *SelectForm {
	return &SelectForm{options: options}
}

// Update handles select form updates
func (f *SelectForm) Update(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok && len(f.options) > 0 {
		switch msg.String() {
		case "up", "k":
			f.selected = (f.selected + len(f.options) - 1) % len(f.options)
		case "down", "j":
			f.selected = (f.selected + 1) % len(f.options)
		case "enter":
			f.submitted = true
		}
	}
	return nil
}

// GetSelected returns the selected option
func (f *SelectForm) GetSelected() *SelectOption {
	if f.selected >= 0 && f.selected < len(f.options) {
		return &f.options[f.selected]
	}
	return nil
}

// IsSubmitted returns whether an option has been selected
func (f *SelectForm) IsSubmitted() bool {
	return f.submitted
}

// View renders every option, highlighting the selected one
func (f *SelectForm) View() string {
	var lines []string
	for i, opt := range f.options {
		lines = append(lines, CreateOption(opt.Label, opt.Description, i == f.selected)...)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
