package ui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// SyntaxGuide documents the problem markdown understood by the compiler
const SyntaxGuide = `# Problem syntax

Each directive starts a line with ` + "`#name`" + `. Text after the name is the
block content; with nothing after it, the next paragraph is used.
Everything else is copied into the document as text, so ` + "`#$x^2$`" + ` or
` + "`#hashtag`" + ` stay literal.

| Directive | Produces |
|---|---|
| ` + "`#title Kinematics`" + ` | centered bold title |
| ` + "`#problem A ball is dropped...`" + ` | problem description paragraph |
| ` + "`#eq`" + ` | one numbered equation (next paragraph) |
| ` + "`#align`" + ` | aligned equations, every line up to the next directive |
| ` + "`#question How long does it fall?`" + ` | a lettered question |
| ` + "`#part(a) Find the peak height.`" + ` | a question labelled (a) |
| ` + "`#solution`" + ` | solution paragraph |
| ` + "`#bullet Assume no drag`" + ` | an itemized point |
| ` + "`#figure [ramp.png][The ramp]`" + ` | a figure with an optional caption |

## Example

` + "```" + `
#title Free fall
#problem A ball is dropped from a height $h$.
#eq
y(t) = h - \frac{1}{2} g t^2
#question When does it reach the ground?
#solution
Set $y = 0$ and solve for $t$.
` + "```" + `

Use ` + "`&`" + ` to mark alignment points inside ` + "`#align`" + ` blocks:

` + "```" + `
#align
v &= v_0 + a t \\
x &= x_0 + v_0 t + \frac{1}{2} a t^2
` + "```" + `

## Templates and choices

Template-built problems are edited as a fillings file: slot ids mapped to
text, to a nested ` + "`template:`/`fillings:`" + ` pair, or to a list of those.
The ` + "`multiple_choice`" + ` template takes a ` + "`choices`" + ` list of ` + "`choice`" + `
instances, each with a ` + "`text`" + ` slot:

` + "```yaml" + `
description: Which force keeps the moon in orbit?
choices:
  - template: choice
    fillings:
      text: Gravity
  - template: choice
    fillings:
      text: Friction
` + "```" + `

Run ` + "`pocket-problem template scaffold <id>`" + ` for a starting file.
`

// createGlamourRenderer creates a glamour renderer suited to the terminal background
func createGlamourRenderer(wordWrap int) (*glamour.TermRenderer, error) {
	if style := os.Getenv("GLAMOUR_STYLE"); style != "" {
		return glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wordWrap),
		)
	}

	profile := termenv.ColorProfile()

	var styleOption glamour.TermRendererOption
	switch {
	case profile != termenv.TrueColor && profile != termenv.ANSI256:
		styleOption = glamour.WithAutoStyle()
	case lipgloss.HasDarkBackground():
		styleOption = glamour.WithStandardStyle("dark")
	default:
		styleOption = glamour.WithStandardStyle("light")
	}

	return glamour.NewTermRenderer(
		styleOption,
		glamour.WithColorProfile(profile),
		glamour.WithWordWrap(wordWrap),
	)
}

// RenderSyntaxGuide renders SyntaxGuide for a terminal of the given width
func RenderSyntaxGuide(width int) (string, error) {
	r, err := createGlamourRenderer(width)
	if err != nil {
		return "", err
	}
	return r.Render(SyntaxGuide)
}
