package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFillings(t *testing.T) {
	fillings, err := ParseFillings([]byte(`
description: A block slides down a ramp.
title: ""
choices:
  - template: choice
    fillings:
      text: 3 m/s
      note: "  "
  - template: choice
    fillings:
      text: 5 m/s
diagram:
  template: figure
  fillings:
    path: ramp.png
    caption: ""
`))
	require.NoError(t, err)

	assert.Equal(t, Literal("A block slides down a ramp."), fillings["description"])
	assert.NotContains(t, fillings, "title")

	choices := fillings["choices"]
	require.Equal(t, FillingList, choices.Kind)
	require.Len(t, choices.Items, 2)
	assert.Equal(t, Fillings{"text": Literal("3 m/s")}, choices.Items[0].Fillings)

	diagram := fillings["diagram"]
	assert.Equal(t, FillingNested, diagram.Kind)
	assert.Equal(t, "figure", diagram.TemplateID)
	assert.Equal(t, Fillings{"path": Literal("ramp.png")}, diagram.Fillings)
}

func TestParseFillingsErrors(t *testing.T) {
	_, err := ParseFillings([]byte("steps:\n  - fillings:\n      a: b\n"))
	assert.ErrorContains(t, err, "requires a template")

	_, err = ParseFillings([]byte("description: [unclosed"))
	assert.Error(t, err)
}

func TestFillingsJSON(t *testing.T) {
	in := Fillings{
		"description": Literal("x"),
		"parts":       List(Nested("part", Fillings{"question": Literal("Why?")})),
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"description":"x","parts":[{"template":"part","fillings":{"question":"Why?"}}]}`, string(data))

	var out Fillings
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}
