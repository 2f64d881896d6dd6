package renderer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpshade/pocket-problem/internal/assembler"
	"github.com/dpshade/pocket-problem/internal/config"
	"github.com/dpshade/pocket-problem/internal/models"
	"github.com/dpshade/pocket-problem/internal/tokenizer"
)

func emitSource(source string) string {
	doc := assembler.Assemble(assembler.Tokens(tokenizer.Tokenize(source)))
	return Emit(doc.Blocks, config.Default())
}

// braceDepthOK reports whether unescaped braces in s are balanced
func braceDepthOK(s string) bool {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

func TestEmitEndToEndOrder(t *testing.T) {
	out := emitSource(`#problem
#eq "2x + 3 = 7"
#question "What is the value of x?"
#solution
#eq "2x = 4"
Dividing both sides by 2 gives
#eq "x = 2"
`)

	fragments := []string{
		`\problemheader{}`,
		"2x + 3 = 7",
		`\questiontext{What is the value of x?}`,
		`\problemheader{Solution}`,
		"2x = 4",
		"Dividing both sides by 2 gives",
		"x = 2",
	}

	pos := 0
	for _, f := range fragments {
		idx := strings.Index(out[pos:], f)
		require.GreaterOrEqual(t, idx, 0, "fragment %q missing or out of order", f)
		pos += idx + len(f)
	}

	assert.Equal(t, 3, strings.Count(out, `\begin{equation}`))
	assert.True(t, strings.HasPrefix(out, `\documentclass[`))
	assert.True(t, strings.HasSuffix(out, "\\end{document}\n"))
	assert.True(t, braceDepthOK(out))
}

func TestEmitQuestionLabelSurvives(t *testing.T) {
	out := emitSource("#question\nWhat is the value of x?")

	assert.Contains(t, out, `\questiontext{What is the value of x?}`)
	assert.NotContains(t, out, `\questiontext{1}`)
	assert.NotContains(t, out, `\questiontext{}`)
}

func TestEmitQuestionFallsBackToLabel(t *testing.T) {
	r := NewLaTeXRenderer(config.Default())
	out := r.Body([]models.Block{{Type: models.BlockQuestion, Label: "Why?"}})
	assert.Equal(t, `\questiontext{Why?}`, out)
}

func TestEmitEscapesText(t *testing.T) {
	r := NewLaTeXRenderer(config.Default())

	out := r.Body([]models.Block{{
		Type:    models.BlockRaw,
		Content: `50% of {a} \ b & c_1 costs $5 #3 ^ ~`,
	}})

	assert.Equal(t, `50\% of \{a\} \textbackslash{} b \& c\_1 costs \$5 \#3 \^{} \~{}`, out)
	assert.True(t, braceDepthOK(out))
}

func TestEmitUnbalancedUserBracesStayBalanced(t *testing.T) {
	for _, content := range []string{"}}}", "{{{", "\\", "{%}"} {
		out := Emit([]models.Block{
			{Type: models.BlockDescription, Content: content},
			{Type: models.BlockQuestion, Content: content, Label: content},
		}, config.Default())
		assert.True(t, braceDepthOK(out), content)
	}
}

func TestEmitSentinelsInContentAreNotExpanded(t *testing.T) {
	out := Emit([]models.Block{
		{Type: models.BlockEquation, Subtype: models.EquationSingle, Content: "#TEXT# + #CONTENT#"},
		{Type: models.BlockRaw, Content: "#CONTENT#"},
	}, config.Default())

	assert.Contains(t, out, "#TEXT# + #CONTENT#")
	assert.Contains(t, out, `\#CONTENT\#`)
	assert.Equal(t, 1, strings.Count(out, `\begin{document}`))
}

func TestEmitInlineMathVerbatim(t *testing.T) {
	r := NewLaTeXRenderer(config.Default())
	out := r.Body([]models.Block{{Type: models.BlockRaw, Content: "Since #$x^2 \\geq 0$ for all x_i"}})
	assert.Equal(t, `Since $x^2 \geq 0$ for all x\_i`, out)
}

func TestEmitUnsafeInlineMathIsEscaped(t *testing.T) {
	r := NewLaTeXRenderer(config.Default())
	tests := []struct {
		in, want string
	}{
		{"Cost is #$x}$ dollars", `Cost is \#\$x\}\$ dollars`},
		{"#${x$ and", `\#\$\{x\$ and`},
		{"#$50%$ off", `\#\$50\%\$ off`},
		{`#$a\$ b`, `\#\$a\textbackslash{}\$ b`},
		{`#$\{x$`, `$\{x$`},
		{"#$f(x)_{n}$", "$f(x)_{n}$"},
	}
	for _, tt := range tests {
		out := r.Body([]models.Block{{Type: models.BlockRaw, Content: tt.in}})
		assert.Equal(t, tt.want, out, tt.in)
	}

	out := emitSource("#problem\nCost is #$x}$ dollars")
	assert.True(t, braceDepthOK(out))
}

func TestEmitEquationContentIsVerbatim(t *testing.T) {
	r := NewLaTeXRenderer(config.Default())
	out := r.Body([]models.Block{{
		Type: models.BlockEquation, Subtype: models.EquationSingle,
		Content: `\frac{a}{b} = 50\%`,
	}})
	assert.Contains(t, out, "\\begin{equation}\n\\frac{a}{b} = 50\\%\n\\end{equation}")
	assert.Contains(t, out, `\vspace{12pt}`)
	assert.Contains(t, out, `\equationsize`)
}

func TestEmitConsecutiveEqAreSeparateEnvironments(t *testing.T) {
	out := emitSource("#eq a = b\n#eq c = d")
	assert.Equal(t, 2, strings.Count(out, `\begin{equation}`))
	assert.NotContains(t, out, `\begin{align}`)
}

func TestEmitAlign(t *testing.T) {
	out := emitSource("#align\nx &= 1 + 1\n  &= 2 \\\\\n  &= 4 - 2")
	assert.Contains(t, out, "\\begin{align}\nx &= 1 + 1 \\\\\n  &= 2 \\\\\n  &= 4 - 2\n\\end{align}")
	assert.NotContains(t, out, `\begin{equation}`)
}

func TestEmitListsGroupConsecutiveItems(t *testing.T) {
	r := NewLaTeXRenderer(config.Default())
	out := r.Body([]models.Block{
		{Type: models.BlockBullet, Content: "one"},
		{Type: models.BlockBullet, Content: "two"},
		{Type: models.BlockChoice, Content: "4"},
		{Type: models.BlockChoice, Content: "7"},
	})

	assert.Equal(t, strings.Join([]string{
		`\begin{itemize}`, `\item one`, `\item two`, `\end{itemize}`,
		"",
		`\begin{enumerate}[label=(\Alph*)]`, `\item 4`, `\item 7`, `\end{enumerate}`,
	}, "\n"), out)
}

func TestEmitTitleThenDescription(t *testing.T) {
	r := NewLaTeXRenderer(config.Default())
	out := r.Body([]models.Block{
		{Type: models.BlockTitle, Content: "Kinematics"},
		{Type: models.BlockDescription, Content: "A car accelerates."},
	})
	assert.Equal(t, "\\problemheader{Kinematics}\n\nA car accelerates.", out)
}

func TestEmitFigure(t *testing.T) {
	r := NewLaTeXRenderer(config.Default())
	out := r.Body([]models.Block{{Type: models.BlockFigure, Ref: "car_1.png", Label: "A car"}})
	assert.Contains(t, out, `\includegraphics[width=0.7\textwidth]{car_1.png}`)
	assert.Contains(t, out, `\caption{A car}`)
}

func TestEmitFigurePathIsSanitized(t *testing.T) {
	r := NewLaTeXRenderer(config.Default())

	out := r.Body([]models.Block{{Type: models.BlockFigure, Ref: "plots/50%#1.png"}})
	assert.Contains(t, out, `\includegraphics[width=0.7\textwidth]{plots/50\%\#1.png}`)

	out = r.Body([]models.Block{{Type: models.BlockFigure, Ref: `figs\ramp.png`}})
	assert.Contains(t, out, `{figs/ramp.png}`)

	out = emitSource("#figure[50%_{a.png][Plot]")
	assert.NotContains(t, out, `\includegraphics`)
	assert.Contains(t, out, `\fbox{50\%\_\{a.png}`)
	assert.Contains(t, out, `\caption{Plot}`)
	assert.True(t, braceDepthOK(out))
}

func TestEmitParts(t *testing.T) {
	out := emitSource("#part(a) Find x.\n#part(b)")
	assert.Contains(t, out, `\questiontext{\textbf{(a)} Find x.}`)
	assert.Contains(t, out, `\questiontext{(b)}`)
	assert.NotContains(t, out, `\#part`)
}

func TestEmitCustomCommands(t *testing.T) {
	cfg := config.Default()
	cfg.CustomCommands["#question"] = `\textbf{Q:} #TEXT#`
	cfg.CustomCommands["solution"] = `\section*{#HEADING#} #TEXT# #UNKNOWN# #1`
	cfg.Styling.SolutionHeading = "Answer"

	r := NewLaTeXRenderer(cfg)
	out := r.Body([]models.Block{
		{Type: models.BlockQuestion, Content: "Why?"},
		{Type: models.BlockSolution, Content: "Because."},
	})
	assert.Equal(t, "\\textbf{Q:} Why?\n\n\\section*{Answer} Because. #UNKNOWN# #1", out)
}

func TestPreambleFollowsConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Margins.Left = "1in"
	cfg.Spacing.LineSpacing = "2"
	cfg.Spacing.ParagraphSpacing = "10pt"

	out := Emit(nil, cfg)

	// 12pt * 0.8 rounds to the nearest standard size, 10pt
	assert.True(t, strings.HasPrefix(out, `\documentclass[10pt]{article}`))
	assert.Contains(t, out, "left=1in")
	assert.Contains(t, out, `\setstretch{2}`)
	assert.Contains(t, out, `\setlength{\parskip}{10pt}`)
	assert.Contains(t, out, `\textbf{#1}`)
	assert.Contains(t, out, `\fontsize{9.6pt}{11.5pt}\selectfont`)
	assert.True(t, braceDepthOK(out))
}

func TestDocumentClass(t *testing.T) {
	tests := []struct {
		size  float64
		class string
		opt   float64
	}{
		{9.6, "article", 10},
		{12, "article", 12},
		{8.1, "extarticle", 8},
		{13.5, "extarticle", 14},
		{16, "extarticle", 17},
		{40, "extarticle", 20},
	}
	for _, tt := range tests {
		class, opt := DocumentClass(tt.size)
		assert.Equal(t, tt.class, class, tt.size)
		assert.Equal(t, tt.opt, opt, tt.size)
	}
}

func TestFill(t *testing.T) {
	values := map[string]string{"TEXT": "#NAME#", "NAME": "x"}

	assert.Equal(t, "a #NAME# b", Fill("a #TEXT# b", values))
	assert.Equal(t, "#1 #x# ## #", Fill("#1 #x# ## #", values))
	assert.Equal(t, "#x", Fill("##NAME#", values))
	assert.Equal(t, "#OTHER#", Fill("#OTHER#", values))
	assert.Equal(t, "#TEXT", Fill("#TEXT", values))
}
