package registry

import "github.com/dpshade/pocket-problem/internal/models"

// Builtins returns fresh copies of the built-in template catalog. The first
// four are the templates offered by the authoring dialog; the rest are
// building blocks referenced from their list and ref slots.
func Builtins() []*models.TemplateDefinition {
	return []*models.TemplateDefinition{
		{
			ID:          "basic",
			Name:        "Basic Problem",
			Description: "Description, one equation and a question",
			Slots: []models.SlotSpec{
				{ID: "title", Kind: models.SlotText, Label: "Title", Role: models.BlockTitle},
				{ID: "description", Kind: models.SlotText, Label: "Problem Description", Required: true, Role: models.BlockDescription},
				{ID: "equation", Kind: models.SlotEquation, Label: "Equation", Required: true},
				{ID: "question", Kind: models.SlotText, Label: "Question", Required: true, Role: models.BlockQuestion},
			},
		},
		{
			ID:          "two_equations",
			Name:        "Two Equations",
			Description: "Description, two equations and a question",
			Slots: []models.SlotSpec{
				{ID: "description", Kind: models.SlotText, Label: "Problem Description", Required: true, Role: models.BlockDescription},
				{ID: "equation1", Kind: models.SlotEquation, Label: "First Equation", Required: true},
				{ID: "equation2", Kind: models.SlotEquation, Label: "Second Equation", Required: true},
				{ID: "question", Kind: models.SlotText, Label: "Question", Required: true, Role: models.BlockQuestion},
			},
		},
		{
			ID:          "image",
			Name:        "Problem with Image",
			Description: "Description, a figure and a question",
			Slots: []models.SlotSpec{
				{ID: "description", Kind: models.SlotText, Label: "Problem Description", Required: true, Role: models.BlockDescription},
				{ID: "image", Kind: models.SlotText, Label: "Image Path", Required: true, Role: models.BlockFigure, Default: "figure.png"},
				{ID: "additional_text", Kind: models.SlotText, Label: "Additional Text", Role: models.BlockRaw},
				{ID: "question", Kind: models.SlotText, Label: "Question", Required: true, Role: models.BlockQuestion},
			},
		},
		{
			ID:          "multiple_choice",
			Name:        "Multiple Choice",
			Description: "Description, optional equation, question and lettered choices",
			Slots: []models.SlotSpec{
				{ID: "description", Kind: models.SlotText, Label: "Problem Description", Required: true, Role: models.BlockDescription},
				{ID: "equation", Kind: models.SlotEquation, Label: "Equation"},
				{ID: "question", Kind: models.SlotText, Label: "Question", Required: true, Role: models.BlockQuestion},
				{ID: "choices", Kind: models.SlotTemplateRefList, Label: "Choices", Required: true, Default: "choice"},
			},
		},
		{
			ID:   "choice",
			Name: "Choice",
			Slots: []models.SlotSpec{
				{ID: "text", Kind: models.SlotText, Label: "Choice", Required: true, Role: models.BlockChoice},
			},
		},
		{
			ID:          "multi_part",
			Name:        "Multi-part Problem",
			Description: "Shared setup followed by several parts",
			Slots: []models.SlotSpec{
				{ID: "description", Kind: models.SlotText, Label: "Problem Description", Required: true, Role: models.BlockDescription},
				{ID: "equation", Kind: models.SlotEquation, Label: "Equation"},
				{ID: "parts", Kind: models.SlotTemplateRefList, Label: "Parts", Required: true, Default: "part"},
			},
		},
		{
			ID:   "part",
			Name: "Part",
			Slots: []models.SlotSpec{
				{ID: "question", Kind: models.SlotText, Label: "Question", Required: true, Role: models.BlockQuestion},
				{ID: "solution", Kind: models.SlotText, Label: "Solution", Role: models.BlockSolution},
			},
		},
		{
			ID:          "worked_solution",
			Name:        "Worked Solution",
			Description: "Any problem template followed by a stepwise solution",
			Slots: []models.SlotSpec{
				{ID: "problem", Kind: models.SlotTemplateRef, Label: "Problem", Required: true, Default: "basic"},
				{ID: "solution", Kind: models.SlotText, Label: "Solution", Role: models.BlockSolution},
				{ID: "steps", Kind: models.SlotTemplateRefList, Label: "Steps", Default: "step"},
			},
		},
		{
			ID:   "step",
			Name: "Step",
			Slots: []models.SlotSpec{
				{ID: "explanation", Kind: models.SlotText, Label: "Explanation", Role: models.BlockRaw},
				{ID: "equation", Kind: models.SlotEquation, Label: "Equation", Required: true, Aligned: true},
			},
		},
	}
}
