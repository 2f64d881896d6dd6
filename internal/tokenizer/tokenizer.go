// Package tokenizer splits problem source into directive and content lines.
//
// A line whose first non-blank characters are '#' followed by a recognized
// directive name opens a block. The name must be followed by the end of the
// line or whitespace. "#figure" may also be followed by '[', and "#part"
// must be followed by a label such as "(a)". Every other
// line, including blank lines and "#word" lines with an unknown name, is
// content. Tokenize never fails.
package tokenizer

import (
	"strings"

	"github.com/dpshade/pocket-problem/internal/models"
)

// Tokenize splits source into one token per line
func Tokenize(source string) []models.Token {
	source = strings.ReplaceAll(source, "\r\n", "\n")
	source = strings.ReplaceAll(source, "\r", "\n")
	if source == "" {
		return nil
	}

	lines := strings.Split(source, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	tokens := make([]models.Token, 0, len(lines))
	for i, line := range lines {
		tokens = append(tokens, tokenizeLine(line, i+1))
	}
	return tokens
}

func tokenizeLine(line string, lineNumber int) models.Token {
	line = strings.TrimRight(line, " \t")

	if d, rest, ok := parseDirective(line); ok {
		return models.Token{
			Kind:      models.TokenDirective,
			Directive: d,
			Text:      unquote(strings.TrimSpace(rest)),
			Line:      lineNumber,
		}
	}

	return models.Token{
		Kind: models.TokenContent,
		Text: line,
		Line: lineNumber,
	}
}

// parseDirective recognizes "#name rest". ok is false for anything that
// must be treated as literal content.
func parseDirective(line string) (models.Directive, string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}

	body := trimmed[1:]
	end := 0
	for end < len(body) && isNameByte(body[end]) {
		end++
	}
	if end == 0 {
		return "", "", false
	}

	d, known := models.LookupDirective(body[:end])
	if !known {
		return "", "", false
	}

	rest := body[end:]
	if d == models.DirectivePart {
		if _, _, ok := models.ParsePart(rest); !ok {
			return "", "", false
		}
		return d, rest, true
	}

	switch {
	case rest == "":
	case rest[0] == ' ' || rest[0] == '\t':
	case rest[0] == '[' && d == models.DirectiveFigure:
	default:
		// "#eqn", "#eq:" and friends stay literal
		return "", "", false
	}
	return d, rest, true
}

func isNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

// unquote strips one pair of surrounding double quotes
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
