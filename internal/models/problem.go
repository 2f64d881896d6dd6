package models

import (
	"strings"
	"time"
)

// Problem is a stored math problem: YAML frontmatter followed by the
// markdown source. Template-built problems carry their template id and
// fillings in the frontmatter instead of a body.
type Problem struct {
	// Frontmatter fields
	ID        string    `yaml:"id" json:"id"`
	Name      string    `yaml:"title" json:"title"`
	Tags      []string  `yaml:"tags,omitempty" json:"tags,omitempty"`
	Template  string    `yaml:"template,omitempty" json:"template,omitempty"`
	Fillings  Fillings  `yaml:"fillings,omitempty" json:"fillings,omitempty"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updated_at"`

	// Content fields
	Content     string `yaml:"-" json:"content,omitempty"` // markdown source after frontmatter
	FilePath    string `yaml:"-" json:"-"`
	ContentHash string `yaml:"-" json:"-"` // SHA256 of the file
}

// UsesTemplate returns true if the problem is compiled from a template
// rather than from its markdown body
func (p *Problem) UsesTemplate() bool {
	return p.Template != ""
}

// FilterValue satisfies the list.Item interface
func (p Problem) FilterValue() string {
	return cleanString(p.Name + " " + strings.Join(p.Tags, " "))
}

// Title satisfies the list.Item interface
func (p Problem) Title() string {
	if p.Name != "" {
		return cleanString(p.Name)
	}
	return cleanString(p.ID)
}

// Description satisfies the list.Item interface
func (p Problem) Description() string {
	var parts []string

	if p.Template != "" {
		parts = append(parts, "Template: "+p.Template)
	} else if first := firstLine(p.Content); first != "" {
		if len(first) > 50 {
			first = first[:47] + "..."
		}
		parts = append(parts, first)
	}

	if !p.UpdatedAt.IsZero() {
		parts = append(parts, "Edited: "+p.UpdatedAt.Format("2006-01-02 15:04"))
	}

	if len(p.Tags) > 0 {
		parts = append(parts, "Tags: "+strings.Join(p.Tags, ", "))
	}

	return cleanString(strings.Join(parts, " • "))
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			return line
		}
	}
	return ""
}

// cleanString removes characters that break single-line list rendering
func cleanString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(' ')
		case r >= 32 && r != 127:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
