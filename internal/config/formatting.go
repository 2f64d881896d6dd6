package config

import (
	"fmt"
	"strconv"
	"strings"
)

// FormattingConfig holds the options the emitter reads. It is loaded from
// config.json and treated as read-only for the duration of a compile.
type FormattingConfig struct {
	Fonts          FontConfig        `json:"fonts"`
	Spacing        SpacingConfig     `json:"spacing"`
	Styling        StylingConfig     `json:"styling"`
	Margins        MarginConfig      `json:"margins"`
	CustomCommands map[string]string `json:"custom_commands,omitempty"` // block skeleton overrides keyed by block name
}

// FontConfig controls the document font size and per-block scale factors
type FontConfig struct {
	BaseFontSize       string  `json:"base_font_size"`
	GlobalScale        float64 `json:"global_scale"`
	ProblemHeaderScale float64 `json:"problem_header_scale"`
	QuestionScale      float64 `json:"question_scale"`
	EquationScale      float64 `json:"equation_scale"`
}

// SpacingConfig holds LaTeX lengths (line spacing is a stretch factor)
type SpacingConfig struct {
	LineSpacing      string `json:"line_spacing"`
	AboveEquation    string `json:"above_equation"`
	BelowEquation    string `json:"below_equation"`
	ParagraphSpacing string `json:"paragraph_spacing"`
}

// StylingConfig holds heading text for problem and solution blocks
type StylingConfig struct {
	ProblemHeading  string `json:"problem_heading"`
	SolutionHeading string `json:"solution_heading"`
}

// MarginConfig holds page margins as LaTeX lengths
type MarginConfig struct {
	Top    string `json:"top"`
	Right  string `json:"right"`
	Bottom string `json:"bottom"`
	Left   string `json:"left"`
}

// Default returns the built-in formatting configuration
func Default() FormattingConfig {
	return FormattingConfig{
		Fonts: FontConfig{
			BaseFontSize:       "12pt",
			GlobalScale:        0.8,
			ProblemHeaderScale: 1.2,
			QuestionScale:      1.0,
			EquationScale:      1.0,
		},
		Spacing: SpacingConfig{
			LineSpacing:      "1.5",
			AboveEquation:    "12pt",
			BelowEquation:    "12pt",
			ParagraphSpacing: "6pt",
		},
		Styling: StylingConfig{
			ProblemHeading:  "",
			SolutionHeading: "Solution",
		},
		Margins: MarginConfig{
			Top:    "0.75in",
			Right:  "0.75in",
			Bottom: "0.75in",
			Left:   "0.75in",
		},
		CustomCommands: map[string]string{},
	}
}

// Clone returns a deep copy
func (c FormattingConfig) Clone() FormattingConfig {
	out := c
	out.CustomCommands = make(map[string]string, len(c.CustomCommands))
	for k, v := range c.CustomCommands {
		out.CustomCommands[k] = v
	}
	return out
}

// BaseFontPoints parses the base font size ("12pt", "12") into points
func (c FormattingConfig) BaseFontPoints() float64 {
	s := strings.TrimSuffix(strings.TrimSpace(c.Fonts.BaseFontSize), "pt")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 12
	}
	return v
}

// CustomCommand returns the skeleton override for a block name. Keys are
// accepted with or without a leading '#'.
func (c FormattingConfig) CustomCommand(name string) (string, bool) {
	if cmd, ok := c.CustomCommands[name]; ok {
		return cmd, true
	}
	cmd, ok := c.CustomCommands["#"+name]
	return cmd, ok
}

// Validate checks the values the emitter relies on
func (c FormattingConfig) Validate() error {
	if _, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(c.Fonts.BaseFontSize), "pt"), 64); err != nil {
		return fmt.Errorf("fonts.base_font_size: %q is not a point size", c.Fonts.BaseFontSize)
	}

	scales := map[string]float64{
		"fonts.global_scale":         c.Fonts.GlobalScale,
		"fonts.problem_header_scale": c.Fonts.ProblemHeaderScale,
		"fonts.question_scale":       c.Fonts.QuestionScale,
		"fonts.equation_scale":       c.Fonts.EquationScale,
	}
	for name, v := range scales {
		if v <= 0 {
			return fmt.Errorf("%s: must be positive, got %v", name, v)
		}
	}

	if v, err := strconv.ParseFloat(strings.TrimSpace(c.Spacing.LineSpacing), 64); err != nil || v <= 0 {
		return fmt.Errorf("spacing.line_spacing: %q is not a positive number", c.Spacing.LineSpacing)
	}
	return nil
}
