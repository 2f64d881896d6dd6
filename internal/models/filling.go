package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FillingKind tags the variant held by a SlotFilling
type FillingKind int

const (
	FillingLiteral FillingKind = iota
	FillingNested
	FillingList
)

func (k FillingKind) String() string {
	switch k {
	case FillingLiteral:
		return "literal"
	case FillingNested:
		return "nested template"
	case FillingList:
		return "template list"
	default:
		return fmt.Sprintf("FillingKind(%d)", int(k))
	}
}

// Fillings maps slot ids to the values supplied for them
type Fillings map[string]SlotFilling

// SlotFilling is the user-supplied value for one slot instance.
//
// In YAML and JSON a scalar decodes to a literal, a mapping with a
// "template" key to a nested instance, and a sequence to a list of
// nested instances:
//
//	description: Solve for x.
//	steps:
//	  - template: step
//	    fillings:
//	      equation: 2x = 4
type SlotFilling struct {
	Kind       FillingKind
	Content    string        // FillingLiteral
	TemplateID string        // FillingNested
	Fillings   Fillings      // FillingNested
	Items      []SlotFilling // FillingList
}

// Literal creates a literal filling
func Literal(content string) SlotFilling {
	return SlotFilling{Kind: FillingLiteral, Content: content}
}

// Nested creates a nested template instance
func Nested(templateID string, fillings Fillings) SlotFilling {
	return SlotFilling{Kind: FillingNested, TemplateID: templateID, Fillings: fillings}
}

// List creates a list of nested template instances
func List(items ...SlotFilling) SlotFilling {
	return SlotFilling{Kind: FillingList, Items: items}
}

// nestedFilling is the wire shape of a nested instance
type nestedFilling struct {
	Template string   `yaml:"template" json:"template"`
	Fillings Fillings `yaml:"fillings,omitempty" json:"fillings,omitempty"`
}

// UnmarshalYAML implements yaml.Unmarshaler
func (f *SlotFilling) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*f = Literal(value.Value)
		return nil
	case yaml.SequenceNode:
		var items []SlotFilling
		if err := value.Decode(&items); err != nil {
			return err
		}
		*f = List(items...)
		return nil
	case yaml.MappingNode:
		var n nestedFilling
		if err := value.Decode(&n); err != nil {
			return err
		}
		if n.Template == "" {
			return fmt.Errorf("line %d: nested filling requires a template", value.Line)
		}
		*f = Nested(n.Template, n.Fillings)
		return nil
	case yaml.AliasNode:
		return f.UnmarshalYAML(value.Alias)
	default:
		return fmt.Errorf("line %d: unsupported filling", value.Line)
	}
}

// MarshalYAML implements yaml.Marshaler
func (f SlotFilling) MarshalYAML() (interface{}, error) {
	switch f.Kind {
	case FillingNested:
		return nestedFilling{Template: f.TemplateID, Fillings: f.Fillings}, nil
	case FillingList:
		items := f.Items
		if items == nil {
			items = []SlotFilling{}
		}
		return items, nil
	default:
		return f.Content, nil
	}
}

// UnmarshalJSON implements json.Unmarshaler
func (f *SlotFilling) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty filling")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = Literal(s)
	case '[':
		var items []SlotFilling
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*f = List(items...)
	case '{':
		var n nestedFilling
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		if n.Template == "" {
			return fmt.Errorf("nested filling requires a template")
		}
		*f = Nested(n.Template, n.Fillings)
	case 'n':
		*f = Literal("")
	default:
		// numbers and booleans are literal text
		*f = Literal(string(data))
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (f SlotFilling) MarshalJSON() ([]byte, error) {
	v, _ := f.MarshalYAML()
	return json.Marshal(v)
}

// ParseFillings decodes a YAML fillings document. Blank literals are
// dropped so optional slots left empty in a scaffold count as unfilled.
func ParseFillings(data []byte) (Fillings, error) {
	var fillings Fillings
	if err := yaml.Unmarshal(data, &fillings); err != nil {
		return nil, err
	}
	return fillings.withoutBlanks(), nil
}

func (f Fillings) withoutBlanks() Fillings {
	for id, filling := range f {
		switch filling.Kind {
		case FillingLiteral:
			if strings.TrimSpace(filling.Content) == "" {
				delete(f, id)
			}
		case FillingNested:
			filling.Fillings.withoutBlanks()
		case FillingList:
			for _, item := range filling.Items {
				item.Fillings.withoutBlanks()
			}
		}
	}
	return f
}
