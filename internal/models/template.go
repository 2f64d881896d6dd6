package models

// SlotKind declares what a slot accepts
type SlotKind string

const (
	SlotText            SlotKind = "text"
	SlotEquation        SlotKind = "equation"
	SlotTemplateRef     SlotKind = "template-ref"
	SlotTemplateRefList SlotKind = "template-ref-list"
)

// AcceptsLiteral returns true for slots filled with raw content
func (k SlotKind) AcceptsLiteral() bool {
	return k == SlotText || k == SlotEquation
}

// Valid reports whether k is one of the known slot kinds
func (k SlotKind) Valid() bool {
	switch k {
	case SlotText, SlotEquation, SlotTemplateRef, SlotTemplateRefList:
		return true
	}
	return false
}

// TemplateDefinition is a reusable tree of slot declarations. Definitions
// are owned by the registry and must not be mutated once registered.
type TemplateDefinition struct {
	ID          string     `yaml:"id" json:"id"`
	Name        string     `yaml:"name,omitempty" json:"name,omitempty"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Slots       []SlotSpec `yaml:"slots" json:"slots"`

	FilePath string `yaml:"-" json:"-"` // set for user templates loaded from disk
}

// Slot returns the slot with the given id
func (d *TemplateDefinition) Slot(id string) (SlotSpec, bool) {
	for _, s := range d.Slots {
		if s.ID == id {
			return s, true
		}
	}
	return SlotSpec{}, false
}

// Title returns the display name, falling back to the id
func (d *TemplateDefinition) Title() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// SlotSpec is a named, typed hole in a template
type SlotSpec struct {
	ID       string    `yaml:"id" json:"id"`
	Kind     SlotKind  `yaml:"kind" json:"kind"`
	Label    string    `yaml:"label,omitempty" json:"label,omitempty"`
	Required bool      `yaml:"required" json:"required"`
	Role     BlockType `yaml:"role,omitempty" json:"role,omitempty"`       // block produced by a text slot
	Aligned  bool      `yaml:"aligned,omitempty" json:"aligned,omitempty"` // equation slots only
	Default  string    `yaml:"default,omitempty" json:"default,omitempty"` // prefill text, or the template id scaffolded into ref slots
}

// BlockType returns the type of block a literal filling of this slot produces
func (s SlotSpec) BlockType() BlockType {
	if s.Kind == SlotEquation {
		return BlockEquation
	}
	if s.Role == "" {
		return BlockRaw
	}
	return s.Role
}

// Subtype returns the equation subtype for equation slots
func (s SlotSpec) Subtype() EquationSubtype {
	if s.Kind != SlotEquation {
		return ""
	}
	if s.Aligned {
		return EquationAligned
	}
	return EquationSingle
}

// DisplayLabel returns the label, falling back to the id
func (s SlotSpec) DisplayLabel() string {
	if s.Label != "" {
		return s.Label
	}
	return s.ID
}
