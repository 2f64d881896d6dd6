package models

import "strings"

// BlockType is the role a block plays in the assembled document
type BlockType string

const (
	BlockTitle       BlockType = "title"
	BlockDescription BlockType = "description"
	BlockEquation    BlockType = "equation"
	BlockQuestion    BlockType = "question"
	BlockSolution    BlockType = "solution"
	BlockRaw         BlockType = "raw"
	BlockBullet      BlockType = "bullet"
	BlockChoice      BlockType = "choice"
	BlockFigure      BlockType = "figure"
)

// Valid reports whether t is a known block type
func (t BlockType) Valid() bool {
	switch t {
	case BlockTitle, BlockDescription, BlockEquation, BlockQuestion, BlockSolution,
		BlockRaw, BlockBullet, BlockChoice, BlockFigure:
		return true
	}
	return false
}

// EquationSubtype selects the math environment of an equation block
type EquationSubtype string

const (
	EquationSingle  EquationSubtype = "single"
	EquationAligned EquationSubtype = "aligned"
)

// Block is the minimal unit of an assembled document
type Block struct {
	Type    BlockType       `json:"type"`
	Content string          `json:"content"`
	Index   int             `json:"index"`
	Subtype EquationSubtype `json:"subtype,omitempty"` // equation blocks only
	Label   string          `json:"label,omitempty"`   // question label, figure caption
	Ref     string          `json:"ref,omitempty"`     // figure path
}

// IsAligned returns true for equation blocks using the multi-line environment
func (b Block) IsAligned() bool {
	return b.Type == BlockEquation && b.Subtype == EquationAligned
}

// Document is the ordered block sequence handed to the emitter
type Document struct {
	Blocks []Block `json:"blocks"`
}

// Len returns the number of blocks
func (d *Document) Len() int {
	return len(d.Blocks)
}

// Types returns the block types in presentation order
func (d *Document) Types() []BlockType {
	types := make([]BlockType, len(d.Blocks))
	for i, b := range d.Blocks {
		types[i] = b.Type
	}
	return types
}

// FirstLine returns the first line of s, used as a question's label
func FirstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// ParseFigure splits "[path][caption]" figure text. A bare path without
// brackets is accepted and yields an empty caption.
func ParseFigure(text string) (path, caption string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "[") {
		return text, ""
	}

	end := strings.IndexByte(text, ']')
	if end < 0 {
		return strings.TrimSpace(text[1:]), ""
	}
	path = strings.TrimSpace(text[1:end])

	rest := strings.TrimSpace(text[end+1:])
	if strings.HasPrefix(rest, "[") {
		rest = strings.TrimSuffix(rest[1:], "]")
	}
	return path, strings.TrimSpace(rest)
}

// ParsePart splits "(a) text" part text into the label "(a)" and the rest.
// The label holds one or more letters or digits. ok is false when text does
// not start with a label.
func ParsePart(text string) (label, rest string, ok bool) {
	if !strings.HasPrefix(text, "(") {
		return "", "", false
	}
	end := strings.IndexByte(text, ')')
	if end < 2 {
		return "", "", false
	}
	for _, c := range text[1:end] {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return "", "", false
		}
	}
	return text[:end+1], strings.TrimSpace(text[end+1:]), true
}

// IsPartLabel reports whether label is a bare part marker such as "(b)"
func IsPartLabel(label string) bool {
	_, rest, ok := ParsePart(label)
	return ok && rest == ""
}
