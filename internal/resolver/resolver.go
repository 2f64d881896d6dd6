// Package resolver expands a filled-in template tree into a flat block
// sequence.
//
// Slots are walked in declared order. Literal fillings become one block each;
// nested instances are resolved recursively and spliced in place, so the
// result never contains an intermediate tree. Slot content is always literal:
// directives inside a filling are not interpreted.
package resolver

import (
	"fmt"
	"strings"

	"github.com/dpshade/pocket-problem/internal/errors"
	"github.com/dpshade/pocket-problem/internal/models"
)

// Lookup finds template definitions by id
type Lookup interface {
	Lookup(id string) (*models.TemplateDefinition, error)
}

// Resolver is stateless between calls; the registry it reads is shared
type Resolver struct {
	templates Lookup
}

// New creates a resolver reading definitions from templates
func New(templates Lookup) *Resolver {
	return &Resolver{templates: templates}
}

// Resolve expands templateID with fillings. Block indices are assigned in
// output order.
func (r *Resolver) Resolve(templateID string, fillings models.Fillings) ([]models.Block, error) {
	var s stack
	blocks, err := r.expand(templateID, fillings, &s)
	if err != nil {
		return nil, err
	}
	for i := range blocks {
		blocks[i].Index = i
	}
	return blocks, nil
}

// expand resolves one template instance. s holds the ids currently being
// expanded; a template that is already on it is a cycle.
func (r *Resolver) expand(templateID string, fillings models.Fillings, s *stack) ([]models.Block, error) {
	if s.contains(templateID) {
		return nil, errors.CyclicTemplateReferenceError(s.with(templateID))
	}

	def, err := r.templates.Lookup(templateID)
	if err != nil {
		if errors.Is(err, errors.ErrCodeUnknownTemplate) {
			return nil, errors.UnknownTemplateError(templateID, s.with(templateID))
		}
		return nil, err
	}

	s.push(templateID)
	defer s.pop()

	var blocks []models.Block
	for _, slot := range def.Slots {
		filling, ok := fillings[slot.ID]

		switch slot.Kind {
		case models.SlotText, models.SlotEquation:
			if ok && filling.Kind != models.FillingLiteral {
				return nil, r.invalid(def, slot, fmt.Sprintf("expects literal content, got %s", filling.Kind), s)
			}
			if !ok || strings.TrimSpace(filling.Content) == "" {
				if slot.Required {
					return nil, errors.MissingRequiredSlotError(def.ID, slot.ID, s.path())
				}
				continue
			}
			blocks = append(blocks, literalBlock(slot, filling.Content))

		case models.SlotTemplateRef:
			if !ok {
				if slot.Required {
					return nil, errors.MissingRequiredSlotError(def.ID, slot.ID, s.path())
				}
				continue
			}
			if filling.Kind != models.FillingNested {
				return nil, r.invalid(def, slot, fmt.Sprintf("expects a template instance, got %s", filling.Kind), s)
			}
			sub, err := r.expandNested(def, slot, filling, s)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, sub...)

		case models.SlotTemplateRefList:
			if ok && filling.Kind != models.FillingList {
				return nil, r.invalid(def, slot, fmt.Sprintf("expects a list of template instances, got %s", filling.Kind), s)
			}
			if !ok || len(filling.Items) == 0 {
				if slot.Required {
					return nil, errors.MissingRequiredSlotError(def.ID, slot.ID, s.path())
				}
				continue
			}
			for i, item := range filling.Items {
				if item.Kind != models.FillingNested {
					return nil, r.invalid(def, slot, fmt.Sprintf("item %d is a %s, not a template instance", i+1, item.Kind), s)
				}
				sub, err := r.expandNested(def, slot, item, s)
				if err != nil {
					return nil, err
				}
				blocks = append(blocks, sub...)
			}

		default:
			return nil, r.invalid(def, slot, fmt.Sprintf("unknown slot kind '%s'", slot.Kind), s)
		}
	}
	return blocks, nil
}

func (r *Resolver) expandNested(def *models.TemplateDefinition, slot models.SlotSpec, f models.SlotFilling, s *stack) ([]models.Block, error) {
	if f.TemplateID == "" {
		return nil, r.invalid(def, slot, "template instance has no template id", s)
	}
	return r.expand(f.TemplateID, f.Fillings, s)
}

func (r *Resolver) invalid(def *models.TemplateDefinition, slot models.SlotSpec, reason string, s *stack) error {
	return errors.InvalidSlotFillingError(def.ID, slot.ID, reason, s.path())
}

func literalBlock(slot models.SlotSpec, content string) models.Block {
	block := models.Block{
		Type:    slot.BlockType(),
		Content: content,
		Subtype: slot.Subtype(),
	}

	switch block.Type {
	case models.BlockQuestion:
		block.Label = models.FirstLine(content)
	case models.BlockFigure:
		block.Ref, block.Label = models.ParseFigure(content)
		block.Content = ""
	}
	return block
}

// stack is the expansion path of one Resolve call
type stack struct {
	ids []string
}

func (s *stack) push(id string) { s.ids = append(s.ids, id) }

func (s *stack) pop() { s.ids = s.ids[:len(s.ids)-1] }

func (s *stack) contains(id string) bool {
	for _, v := range s.ids {
		if v == id {
			return true
		}
	}
	return false
}

// path returns a copy of the current path
func (s *stack) path() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// with returns the current path followed by id
func (s *stack) with(id string) []string {
	return append(s.path(), id)
}
