package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpshade/pocket-problem/internal/errors"
	"github.com/dpshade/pocket-problem/internal/models"
	"github.com/dpshade/pocket-problem/internal/registry"
)

func newResolver(t *testing.T, extra ...*models.TemplateDefinition) *Resolver {
	t.Helper()
	reg := registry.NewWithBuiltins()
	for _, def := range extra {
		require.NoError(t, reg.Register(def))
	}
	return New(reg)
}

func TestResolveBasic(t *testing.T) {
	r := newResolver(t)

	blocks, err := r.Resolve("basic", models.Fillings{
		"description": models.Literal("Solve the equation:"),
		"equation":    models.Literal("2x + 3 = 7"),
		"question":    models.Literal("What is the value of x?"),
	})
	require.NoError(t, err)
	require.Len(t, blocks, 3)

	assert.Equal(t, models.BlockDescription, blocks[0].Type)
	assert.Equal(t, "Solve the equation:", blocks[0].Content)

	assert.Equal(t, models.BlockEquation, blocks[1].Type)
	assert.Equal(t, models.EquationSingle, blocks[1].Subtype)
	assert.Equal(t, "2x + 3 = 7", blocks[1].Content)

	assert.Equal(t, models.BlockQuestion, blocks[2].Type)
	assert.Equal(t, "What is the value of x?", blocks[2].Label)

	for i, b := range blocks {
		assert.Equal(t, i, b.Index)
	}
}

func TestResolveLiteralContentIsNotInterpreted(t *testing.T) {
	r := newResolver(t)

	blocks, err := r.Resolve("basic", models.Fillings{
		"description": models.Literal("#question not a directive\n#eq x"),
		"equation":    models.Literal("x"),
		"question":    models.Literal("Why?"),
	})
	require.NoError(t, err)
	assert.Equal(t, "#question not a directive\n#eq x", blocks[0].Content)
	assert.Equal(t, models.BlockDescription, blocks[0].Type)
}

func TestResolveMissingRequiredSlot(t *testing.T) {
	r := newResolver(t)

	tests := []struct {
		name     string
		fillings models.Fillings
	}{
		{"absent", models.Fillings{
			"description": models.Literal("d"),
			"question":    models.Literal("q"),
		}},
		{"whitespace only", models.Fillings{
			"description": models.Literal("d"),
			"equation":    models.Literal("  \n\t"),
			"question":    models.Literal("q"),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve("basic", tt.fillings)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeMissingRequiredSlot))
			appErr := errors.GetAppError(err)
			assert.Equal(t, "basic", appErr.TemplateID())
			assert.Equal(t, "equation", appErr.SlotID())
			assert.Equal(t, []string{"basic"}, appErr.Path())
		})
	}
}

func TestResolveOptionalSlotOmitted(t *testing.T) {
	r := newResolver(t)

	blocks, err := r.Resolve("image", models.Fillings{
		"description": models.Literal("Look at the triangle."),
		"image":       models.Literal("[triangle.png][A right triangle]"),
		"question":    models.Literal("Find the hypotenuse."),
	})
	require.NoError(t, err)
	require.Len(t, blocks, 3)

	assert.Equal(t, models.BlockFigure, blocks[1].Type)
	assert.Equal(t, "triangle.png", blocks[1].Ref)
	assert.Equal(t, "A right triangle", blocks[1].Label)
	assert.Equal(t, models.BlockQuestion, blocks[2].Type)
}

func TestResolveUnknownTemplate(t *testing.T) {
	r := newResolver(t)

	_, err := r.Resolve("nope", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeUnknownTemplate))
	assert.Equal(t, "nope", errors.GetAppError(err).TemplateID())
}

func TestResolveUnknownNestedTemplate(t *testing.T) {
	r := newResolver(t)

	_, err := r.Resolve("worked_solution", models.Fillings{
		"problem": models.Nested("missing", nil),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeUnknownTemplate))
	assert.Equal(t, []string{"worked_solution", "missing"}, errors.GetAppError(err).Path())
}

func TestResolveListsSpliceInOrder(t *testing.T) {
	r := newResolver(t)

	blocks, err := r.Resolve("multiple_choice", models.Fillings{
		"description": models.Literal("Pick one."),
		"question":    models.Literal("Which is prime?"),
		"choices": models.List(
			models.Nested("choice", models.Fillings{"text": models.Literal("4")}),
			models.Nested("choice", models.Fillings{"text": models.Literal("7")}),
			models.Nested("choice", models.Fillings{"text": models.Literal("9")}),
		),
	})
	require.NoError(t, err)

	var types []models.BlockType
	var choices []string
	for _, b := range blocks {
		types = append(types, b.Type)
		if b.Type == models.BlockChoice {
			choices = append(choices, b.Content)
		}
	}
	assert.Equal(t, []models.BlockType{
		models.BlockDescription, models.BlockQuestion,
		models.BlockChoice, models.BlockChoice, models.BlockChoice,
	}, types)
	assert.Equal(t, []string{"4", "7", "9"}, choices)
}

func TestResolveNestedSplicesAtSlotPosition(t *testing.T) {
	r := newResolver(t)

	blocks, err := r.Resolve("worked_solution", models.Fillings{
		"problem": models.Nested("basic", models.Fillings{
			"description": models.Literal("Solve:"),
			"equation":    models.Literal("x^2 = 4"),
			"question":    models.Literal("What is x?"),
		}),
		"solution": models.Literal("Take square roots."),
		"steps": models.List(
			models.Nested("step", models.Fillings{"equation": models.Literal("x = \\pm 2")}),
		),
	})
	require.NoError(t, err)

	require.Len(t, blocks, 5)
	assert.Equal(t, models.BlockDescription, blocks[0].Type)
	assert.Equal(t, models.BlockEquation, blocks[1].Type)
	assert.Equal(t, models.BlockQuestion, blocks[2].Type)
	assert.Equal(t, models.BlockSolution, blocks[3].Type)
	assert.Equal(t, models.BlockEquation, blocks[4].Type)
	assert.True(t, blocks[4].IsAligned())
	assert.Equal(t, 4, blocks[4].Index)
}

func TestResolveDirectCycle(t *testing.T) {
	r := newResolver(t, &models.TemplateDefinition{
		ID:    "A",
		Slots: []models.SlotSpec{{ID: "sub", Kind: models.SlotTemplateRef, Required: true}},
	})

	_, err := r.Resolve("A", models.Fillings{
		"sub": models.Nested("A", models.Fillings{
			"sub": models.Nested("A", nil),
		}),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeCyclicTemplateReference))
	appErr := errors.GetAppError(err)
	assert.Equal(t, []string{"A", "A"}, appErr.Path())
	assert.Equal(t, "A -> A", appErr.Details)
}

func TestResolveIndirectCycle(t *testing.T) {
	r := newResolver(t,
		&models.TemplateDefinition{ID: "a", Slots: []models.SlotSpec{{ID: "next", Kind: models.SlotTemplateRef}}},
		&models.TemplateDefinition{ID: "b", Slots: []models.SlotSpec{{ID: "next", Kind: models.SlotTemplateRef}}},
	)

	_, err := r.Resolve("a", models.Fillings{
		"next": models.Nested("b", models.Fillings{
			"next": models.Nested("a", nil),
		}),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeCyclicTemplateReference))
	assert.Equal(t, "a -> b -> a", errors.GetAppError(err).Details)
}

func TestResolveSiblingReuseIsNotACycle(t *testing.T) {
	r := newResolver(t)

	blocks, err := r.Resolve("multi_part", models.Fillings{
		"description": models.Literal("A ball is thrown upward."),
		"parts": models.List(
			models.Nested("part", models.Fillings{"question": models.Literal("Max height?")}),
			models.Nested("part", models.Fillings{
				"question": models.Literal("Time of flight?"),
				"solution": models.Literal("2 s"),
			}),
		),
	})
	require.NoError(t, err)
	assert.Len(t, blocks, 4)
}

func TestResolveInvalidFillingKind(t *testing.T) {
	r := newResolver(t)

	tests := []struct {
		name     string
		template string
		fillings models.Fillings
		slot     string
	}{
		{"nested into text", "basic", models.Fillings{
			"description": models.Nested("choice", nil),
		}, "description"},
		{"literal into ref", "worked_solution", models.Fillings{
			"problem": models.Literal("oops"),
		}, "problem"},
		{"literal into list", "multiple_choice", models.Fillings{
			"description": models.Literal("d"),
			"question":    models.Literal("q"),
			"choices":     models.Literal("A, B, C"),
		}, "choices"},
		{"literal list item", "multiple_choice", models.Fillings{
			"description": models.Literal("d"),
			"question":    models.Literal("q"),
			"choices":     models.List(models.Literal("A")),
		}, "choices"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(tt.template, tt.fillings)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidSlotFilling))
			assert.Equal(t, tt.slot, errors.GetAppError(err).SlotID())
		})
	}
}

func TestResolveIgnoresUnknownFillingKeys(t *testing.T) {
	r := newResolver(t)

	blocks, err := r.Resolve("choice", models.Fillings{
		"text":  models.Literal("42"),
		"extra": models.Literal("ignored"),
	})
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "42", blocks[0].Content)
}

func TestResolveEmptyRequiredList(t *testing.T) {
	r := newResolver(t)

	_, err := r.Resolve("multiple_choice", models.Fillings{
		"description": models.Literal("d"),
		"question":    models.Literal("q"),
		"choices":     models.List(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeMissingRequiredSlot))
}
