package models

import "fmt"

// TokenKind distinguishes directive lines from literal content lines
type TokenKind int

const (
	TokenContent TokenKind = iota
	TokenDirective
)

func (k TokenKind) String() string {
	switch k {
	case TokenDirective:
		return "directive"
	case TokenContent:
		return "content"
	default:
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
}

// Directive is the name of a recognized #-marker
type Directive string

const (
	DirectiveProblem  Directive = "problem"
	DirectiveSolution Directive = "solution"
	DirectiveQuestion Directive = "question"
	DirectiveEq       Directive = "eq"
	DirectiveAlign    Directive = "align"
	DirectiveTitle    Directive = "title"
	DirectiveBullet   Directive = "bullet"
	DirectiveFigure   Directive = "figure"
	DirectivePart     Directive = "part"
)

// Directives lists every recognized directive. Anything else that starts
// with '#' is content.
var Directives = []Directive{
	DirectiveProblem,
	DirectiveSolution,
	DirectiveQuestion,
	DirectiveEq,
	DirectiveAlign,
	DirectiveTitle,
	DirectiveBullet,
	DirectiveFigure,
	DirectivePart,
}

// LookupDirective reports whether name is a recognized directive
func LookupDirective(name string) (Directive, bool) {
	for _, d := range Directives {
		if string(d) == name {
			return d, true
		}
	}
	return "", false
}

// Token is one logical line of problem source
type Token struct {
	Kind      TokenKind
	Directive Directive // empty for content tokens
	Text      string
	Line      int // 1-indexed
}

// IsDirective returns true if this token opens a block
func (t Token) IsDirective() bool {
	return t.Kind == TokenDirective
}

// IsBlank returns true for content lines holding only whitespace
func (t Token) IsBlank() bool {
	if t.Kind != TokenContent {
		return false
	}
	for _, r := range t.Text {
		if r != ' ' && r != '\t' {
			return false
		}
	}
	return true
}

// String returns a human-readable representation of the token
func (t Token) String() string {
	if t.Kind == TokenDirective {
		return fmt.Sprintf("Token{#%s %q @ line %d}", t.Directive, t.Text, t.Line)
	}
	return fmt.Sprintf("Token{content %q @ line %d}", t.Text, t.Line)
}
