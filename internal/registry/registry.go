// Package registry holds the catalog of template definitions.
//
// The registry is populated once at start-up (built-in catalog plus any user
// templates found in the library) and is read by every compile. Registration
// takes an exclusive lock; Lookup and List share a read lock.
package registry

import (
	"sync"

	"github.com/dpshade/pocket-problem/internal/errors"
	"github.com/dpshade/pocket-problem/internal/models"
)

// Registry maps template ids to definitions
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]*models.TemplateDefinition
	order []string
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		defs: make(map[string]*models.TemplateDefinition),
	}
}

// NewWithBuiltins creates a registry holding the built-in catalog
func NewWithBuiltins() *Registry {
	r := New()
	for _, def := range Builtins() {
		if err := r.Register(def); err != nil {
			// the catalog is static; a failure here is a programming error
			panic(err)
		}
	}
	return r
}

// Register adds a definition. It fails with DUPLICATE_TEMPLATE_ID if the id
// is taken, leaving the registry unchanged.
func (r *Registry) Register(def *models.TemplateDefinition) error {
	if err := Validate(def); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.ID]; exists {
		return errors.DuplicateTemplateIDError(def.ID)
	}
	r.defs[def.ID] = def
	r.order = append(r.order, def.ID)
	return nil
}

// Unregister removes a definition. Definitions already handed out stay valid.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[id]; !exists {
		return errors.UnknownTemplateError(id, nil)
	}
	delete(r.defs, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Lookup returns the definition registered under id
func (r *Registry) Lookup(id string) (*models.TemplateDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[id]
	if !ok {
		return nil, errors.UnknownTemplateError(id, nil)
	}
	return def, nil
}

// Has reports whether id is registered
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[id]
	return ok
}

// List returns all definitions in registration order
func (r *Registry) List() []*models.TemplateDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*models.TemplateDefinition, 0, len(r.order))
	for _, id := range r.order {
		defs = append(defs, r.defs[id])
	}
	return defs
}

// Len returns the number of registered templates
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Validate checks a definition without registering it
func Validate(def *models.TemplateDefinition) error {
	if def == nil {
		return errors.InvalidTemplateError("", "definition is nil")
	}
	if def.ID == "" {
		return errors.InvalidTemplateError("", "id is required")
	}

	seen := make(map[string]bool, len(def.Slots))
	for _, slot := range def.Slots {
		if slot.ID == "" {
			return errors.InvalidTemplateError(def.ID, "slot id is required")
		}
		if seen[slot.ID] {
			return errors.InvalidTemplateError(def.ID, "duplicate slot '"+slot.ID+"'")
		}
		seen[slot.ID] = true

		if !slot.Kind.Valid() {
			return errors.InvalidTemplateError(def.ID, "slot '"+slot.ID+"' has unknown kind '"+string(slot.Kind)+"'")
		}
		if slot.Role != "" && !slot.Role.Valid() {
			return errors.InvalidTemplateError(def.ID, "slot '"+slot.ID+"' has unknown role '"+string(slot.Role)+"'")
		}
	}
	return nil
}
