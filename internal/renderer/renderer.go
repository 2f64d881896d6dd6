// Package renderer emits LaTeX from an assembled document.
//
// Every block type has a fixed skeleton containing #NAME# sentinels. User
// content is escaped (text) or passed through (math) and spliced into the
// skeleton with Fill, never through a formatting verb, so braces, percent
// signs and '#' in content cannot be read as syntax. Emission never fails.
package renderer

import (
	"math"
	"strconv"
	"strings"

	"github.com/dpshade/pocket-problem/internal/config"
	"github.com/dpshade/pocket-problem/internal/models"
)

// Skeleton names, also the keys accepted in custom_commands
const (
	SkeletonTitle       = "title"
	SkeletonProblem     = "problem"
	SkeletonDescription = "description"
	SkeletonSolution    = "solution"
	SkeletonQuestion    = "question"
	SkeletonEq          = "eq"
	SkeletonAlign       = "align"
	SkeletonRaw         = "raw"
	SkeletonBullet      = "bullet"
	SkeletonChoice      = "choice"
	SkeletonFigure      = "figure"
)

// DefaultSkeletons are used for any block without a custom_commands override
var DefaultSkeletons = map[string]string{
	SkeletonTitle:       `\problemheader{#TEXT#}`,
	SkeletonProblem:     "\\problemheader{#HEADING#}\n#TEXT#",
	SkeletonDescription: `#TEXT#`,
	SkeletonSolution:    "\\problemheader{#HEADING#}\n#TEXT#",
	SkeletonQuestion:    `\questiontext{#TEXT#}`,
	SkeletonEq:          "\\begin{equation}\n#TEXT#\n\\end{equation}",
	SkeletonAlign:       "\\begin{align}\n#TEXT#\n\\end{align}",
	SkeletonRaw:         `#TEXT#`,
	SkeletonBullet:      `\item #TEXT#`,
	SkeletonChoice:      `\item #TEXT#`,
	SkeletonFigure:      "\\begin{figure}[h]\n\\centering\n\\includegraphics[width=0.7\\textwidth]{#PATH#}#CAPTION#\n\\end{figure}",
}

const equationWrapper = "\\vspace{#ABOVE#}\n{\\equationsize\n#BODY#\n}\n\\vspace{#BELOW#}"

const (
	itemizeBegin = `\begin{itemize}`
	itemizeEnd   = `\end{itemize}`
	choicesBegin = `\begin{enumerate}[label=(\Alph*)]`
	choicesEnd   = `\end{enumerate}`
)

const documentSkeleton = `\documentclass[#SIZE#pt]{#CLASS#}
\usepackage[fleqn]{amsmath}
\usepackage{amssymb}
\usepackage{graphicx}
\usepackage{geometry}
\usepackage{setspace}
\usepackage{enumitem}

\geometry{
    top=#TOP#,
    right=#RIGHT#,
    bottom=#BOTTOM#,
    left=#LEFT#
}

\setstretch{#LINESPACING#}
\setlength{\mathindent}{3em}
\setlength{\parindent}{0pt}
\setlength{\parskip}{#PARSKIP#}
\setcounter{secnumdepth}{0}

\newcommand{\problemheader}[1]{{\fontsize{#HEADER_SIZE#pt}{#HEADER_SKIP#pt}\selectfont\textbf{#1}}\par}
\newcommand{\questiontext}[1]{{\fontsize{#QUESTION_SIZE#pt}{#QUESTION_SKIP#pt}\selectfont #1}\par}
\newcommand{\equationsize}{\fontsize{#EQUATION_SIZE#pt}{#EQUATION_SKIP#pt}\selectfont}

\begin{document}
\fontsize{#FONT_SIZE#pt}{#FONT_SKIP#pt}\selectfont

#CONTENT#

\end{document}
`

// standardSizes are the class option sizes offered by article and extarticle
var standardSizes = []float64{8, 9, 10, 11, 12, 14, 17, 20}

// LaTeXRenderer emits documents with one formatting configuration
type LaTeXRenderer struct {
	cfg config.FormattingConfig
}

// NewLaTeXRenderer creates a renderer. cfg is read, never modified.
func NewLaTeXRenderer(cfg config.FormattingConfig) *LaTeXRenderer {
	return &LaTeXRenderer{cfg: cfg}
}

// Emit renders blocks as a complete LaTeX document
func Emit(blocks []models.Block, cfg config.FormattingConfig) string {
	return NewLaTeXRenderer(cfg).Render(blocks)
}

// Render returns the full document: preamble, body and \end{document}
func (r *LaTeXRenderer) Render(blocks []models.Block) string {
	values := r.preambleValues()
	values["CONTENT"] = r.Body(blocks)
	return Fill(documentSkeleton, values)
}

// Body returns the LaTeX for blocks without the preamble
func (r *LaTeXRenderer) Body(blocks []models.Block) string {
	var parts []string

	for i := 0; i < len(blocks); {
		b := blocks[i]

		if b.Type == models.BlockBullet || b.Type == models.BlockChoice {
			j := i
			for j < len(blocks) && blocks[j].Type == b.Type {
				j++
			}
			parts = append(parts, r.list(blocks[i:j]))
			i = j
			continue
		}

		var prev *models.Block
		if i > 0 {
			prev = &blocks[i-1]
		}
		parts = append(parts, r.block(b, prev))
		i++
	}

	return strings.Join(parts, "\n\n")
}

func (r *LaTeXRenderer) block(b models.Block, prev *models.Block) string {
	switch b.Type {
	case models.BlockTitle:
		return r.fill(SkeletonTitle, map[string]string{"TEXT": EscapeText(b.Content)})

	case models.BlockDescription:
		if prev != nil && prev.Type == models.BlockTitle {
			return r.fill(SkeletonDescription, map[string]string{"TEXT": EscapeText(b.Content)})
		}
		return r.fill(SkeletonProblem, map[string]string{
			"HEADING": EscapeText(r.cfg.Styling.ProblemHeading),
			"TEXT":    EscapeText(b.Content),
		})

	case models.BlockSolution:
		return r.fill(SkeletonSolution, map[string]string{
			"HEADING": EscapeText(r.cfg.Styling.SolutionHeading),
			"TEXT":    EscapeText(b.Content),
		})

	case models.BlockQuestion:
		text := EscapeText(b.Content)
		switch {
		case strings.TrimSpace(b.Content) == "":
			text = EscapeText(b.Label)
		case models.IsPartLabel(b.Label) && !strings.HasPrefix(b.Content, b.Label):
			text = `\textbf{` + EscapeText(b.Label) + `} ` + text
		}
		return r.fill(SkeletonQuestion, map[string]string{"TEXT": text})

	case models.BlockEquation:
		return r.equation(b)

	case models.BlockFigure:
		caption := ""
		if b.Label != "" {
			caption = "\n\\caption{" + EscapeText(b.Label) + "}"
		}
		path, ok := EscapePath(b.Ref)
		if !ok {
			return "\\begin{figure}[h]\n\\centering\n\\fbox{" + textEscaper.Replace(b.Ref) + "}" + caption + "\n\\end{figure}"
		}
		return r.fill(SkeletonFigure, map[string]string{
			"PATH":    path,
			"CAPTION": caption,
		})

	case models.BlockBullet, models.BlockChoice:
		return r.list([]models.Block{b})

	default:
		// raw and anything unrecognized is plain text
		return r.fill(SkeletonRaw, map[string]string{"TEXT": EscapeText(b.Content)})
	}
}

func (r *LaTeXRenderer) equation(b models.Block) string {
	content := strings.TrimSpace(b.Content)

	name := SkeletonEq
	if b.IsAligned() {
		name = SkeletonAlign
		content = alignLines(content)
	}

	return Fill(equationWrapper, map[string]string{
		"ABOVE": r.cfg.Spacing.AboveEquation,
		"BELOW": r.cfg.Spacing.BelowEquation,
		"BODY":  r.fill(name, map[string]string{"TEXT": content}),
	})
}

// alignLines joins the rows of an align body with \\ where the author did
// not already end the row with one
func alignLines(content string) string {
	var rows []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, line)
	}
	for i := 0; i < len(rows)-1; i++ {
		if !strings.HasSuffix(rows[i], `\\`) {
			rows[i] += ` \\`
		}
	}
	return strings.Join(rows, "\n")
}

func (r *LaTeXRenderer) list(items []models.Block) string {
	name, begin, end := SkeletonBullet, itemizeBegin, itemizeEnd
	if items[0].Type == models.BlockChoice {
		name, begin, end = SkeletonChoice, choicesBegin, choicesEnd
	}

	lines := []string{begin}
	for _, item := range items {
		lines = append(lines, r.fill(name, map[string]string{"TEXT": EscapeText(item.Content)}))
	}
	lines = append(lines, end)
	return strings.Join(lines, "\n")
}

// fill applies the skeleton for name, preferring a custom_commands override
func (r *LaTeXRenderer) fill(name string, values map[string]string) string {
	skeleton, ok := r.cfg.CustomCommand(name)
	if !ok {
		skeleton = DefaultSkeletons[name]
	}
	return strings.TrimRight(Fill(skeleton, values), "\n")
}

func (r *LaTeXRenderer) preambleValues() map[string]string {
	size := r.EffectiveFontSize()
	class, classSize := DocumentClass(size)

	header := size * r.cfg.Fonts.ProblemHeaderScale
	question := size * r.cfg.Fonts.QuestionScale
	equation := size * r.cfg.Fonts.EquationScale

	return map[string]string{
		"SIZE":          formatPoints(classSize),
		"CLASS":         class,
		"TOP":           r.cfg.Margins.Top,
		"RIGHT":         r.cfg.Margins.Right,
		"BOTTOM":        r.cfg.Margins.Bottom,
		"LEFT":          r.cfg.Margins.Left,
		"LINESPACING":   r.cfg.Spacing.LineSpacing,
		"PARSKIP":       r.cfg.Spacing.ParagraphSpacing,
		"HEADER_SIZE":   formatPoints(header),
		"HEADER_SKIP":   formatPoints(header * 1.2),
		"QUESTION_SIZE": formatPoints(question),
		"QUESTION_SKIP": formatPoints(question * 1.2),
		"EQUATION_SIZE": formatPoints(equation),
		"EQUATION_SKIP": formatPoints(equation * 1.2),
		"FONT_SIZE":     formatPoints(size),
		"FONT_SKIP":     formatPoints(size * 1.2),
	}
}

// EffectiveFontSize is the base font size scaled by global_scale
func (r *LaTeXRenderer) EffectiveFontSize() float64 {
	scale := r.cfg.Fonts.GlobalScale
	if scale <= 0 {
		scale = 1
	}
	return r.cfg.BaseFontPoints() * scale
}

// DocumentClass picks the class option size nearest to size. article only
// offers 10, 11 and 12pt; every other size needs extarticle.
func DocumentClass(size float64) (string, float64) {
	closest := standardSizes[0]
	for _, s := range standardSizes[1:] {
		if math.Abs(s-size) < math.Abs(closest-size) {
			closest = s
		}
	}

	if closest >= 10 && closest <= 12 {
		return "article", closest
	}
	return "extarticle", closest
}

func formatPoints(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}
