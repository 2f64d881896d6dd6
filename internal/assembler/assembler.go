// Package assembler builds the linear document model handed to the emitter.
//
// A document comes from exactly one source: tokenized free-form markdown or
// the blocks produced by resolving a template. The two paths never merge.
package assembler

import (
	"strings"

	"github.com/dpshade/pocket-problem/internal/models"
)

// Source is one of Tokens or Resolved
type Source interface {
	blocks() []models.Block
}

// Tokens is the free-form markdown path
type Tokens []models.Token

// Resolved is the template path
type Resolved []models.Block

var directiveBlocks = map[models.Directive]models.BlockType{
	models.DirectiveProblem:  models.BlockDescription,
	models.DirectiveSolution: models.BlockSolution,
	models.DirectiveQuestion: models.BlockQuestion,
	models.DirectiveEq:       models.BlockEquation,
	models.DirectiveAlign:    models.BlockEquation,
	models.DirectiveTitle:    models.BlockTitle,
	models.DirectiveBullet:   models.BlockBullet,
	models.DirectiveFigure:   models.BlockFigure,
	models.DirectivePart:     models.BlockQuestion,
}

// Assemble builds a document from src. It never fails: content outside any
// directive becomes raw text and out-of-order directives are kept as written.
func Assemble(src Source) *models.Document {
	doc := &models.Document{}
	if src == nil {
		return doc
	}
	doc.Blocks = src.blocks()
	for i := range doc.Blocks {
		doc.Blocks[i].Index = i
	}
	return doc
}

func (r Resolved) blocks() []models.Block {
	out := make([]models.Block, len(r))
	copy(out, r)
	return out
}

func (t Tokens) blocks() []models.Block {
	var (
		blocks  []models.Block
		pending []string
	)

	flush := func() {
		if text, ok := rawText(pending); ok {
			blocks = append(blocks, models.Block{Type: models.BlockRaw, Content: text})
		}
		pending = nil
	}

	for i := 0; i < len(t); {
		tok := t[i]
		i++

		if !tok.IsDirective() {
			pending = append(pending, tok.Text)
			continue
		}
		flush()

		var content string
		switch tok.Directive {
		case models.DirectiveAlign:
			content, i = t.absorbAll(tok.Text, i)
		case models.DirectivePart:
			label, inline, _ := models.ParsePart(tok.Text)
			content, i = t.absorbParagraph(inline, i)
			blocks = append(blocks, models.Block{Type: models.BlockQuestion, Content: content, Label: label})
			continue
		default:
			content, i = t.absorbParagraph(tok.Text, i)
		}
		blocks = append(blocks, directiveBlock(tok.Directive, content))
	}
	flush()

	return blocks
}

// absorbParagraph returns the directive's inline text, or when there is none
// the next paragraph of content lines, and the index after what it consumed
func (t Tokens) absorbParagraph(inline string, i int) (string, int) {
	if inline != "" {
		return inline, i
	}

	j := i
	for j < len(t) && t[j].IsBlank() {
		j++
	}

	var lines []string
	for j < len(t) && !t[j].IsDirective() && !t[j].IsBlank() {
		lines = append(lines, t[j].Text)
		j++
	}
	if len(lines) == 0 {
		return "", i
	}
	return strings.Join(lines, "\n"), j
}

// absorbAll takes every non-blank content line up to the next directive
func (t Tokens) absorbAll(inline string, i int) (string, int) {
	var lines []string
	if inline != "" {
		lines = append(lines, inline)
	}
	for i < len(t) && !t[i].IsDirective() {
		if !t[i].IsBlank() {
			lines = append(lines, t[i].Text)
		}
		i++
	}
	return strings.Join(lines, "\n"), i
}

func directiveBlock(d models.Directive, content string) models.Block {
	block := models.Block{
		Type:    directiveBlocks[d],
		Content: content,
	}

	switch d {
	case models.DirectiveEq:
		block.Subtype = models.EquationSingle
	case models.DirectiveAlign:
		block.Subtype = models.EquationAligned
	case models.DirectiveQuestion:
		block.Label = models.FirstLine(content)
	case models.DirectiveFigure:
		block.Ref, block.Label = models.ParseFigure(content)
		block.Content = ""
	}
	return block
}

// rawText joins pending lines with blank lines trimmed from both ends
func rawText(lines []string) (string, bool) {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	if start == end {
		return "", false
	}
	return strings.Join(lines[start:end], "\n"), true
}
