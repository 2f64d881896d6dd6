package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFigure(t *testing.T) {
	tests := []struct {
		in, path, caption string
	}{
		{"[triangle.png][A right triangle]", "triangle.png", "A right triangle"},
		{"[triangle.png]", "triangle.png", ""},
		{"triangle.png", "triangle.png", ""},
		{"  [a.png] [Caption with ] bracket]  ", "a.png", "Caption with ] bracket"},
		{"[broken", "broken", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		path, caption := ParseFigure(tt.in)
		assert.Equal(t, tt.path, path, tt.in)
		assert.Equal(t, tt.caption, caption, tt.in)
	}
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "What is x?", FirstLine("What is x?\nShow your work."))
	assert.Equal(t, "single", FirstLine("single"))
	assert.Equal(t, "", FirstLine(""))
}

func TestParsePart(t *testing.T) {
	tests := []struct {
		in, label, rest string
		ok              bool
	}{
		{"(a) Find x.", "(a)", "Find x.", true},
		{"(b)", "(b)", "", true},
		{"(12)Show it", "(12)", "Show it", true},
		{"() empty", "", "", false},
		{"(a b) spaced", "", "", false},
		{"(a", "", "", false},
		{"a) no open", "", "", false},
	}
	for _, tt := range tests {
		label, rest, ok := ParsePart(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.label, label, tt.in)
		assert.Equal(t, tt.rest, rest, tt.in)
	}

	assert.True(t, IsPartLabel("(c)"))
	assert.False(t, IsPartLabel("(c) more"))
	assert.False(t, IsPartLabel("What is x?"))
}
