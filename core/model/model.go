package model

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrUnknownEntity is returned for entity names the model does not declare.
var ErrUnknownEntity = errors.New("unknown entity")

// DefaultIdentifier is the record key holding the unique identifier when an
// entity does not name one.
const DefaultIdentifier = "id"

// Attribute types.
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeBool   = "bool"
	TypeAny    = "any"
)

// Attribute describes one field of an entity.
type Attribute struct {
	Type  string `yaml:"type"`
	Rules string `yaml:"rules"`
}

// Entity describes one kind of persisted object.
type Entity struct {
	Name       string               `yaml:"name"`
	Identifier string               `yaml:"identifier"`
	Attributes map[string]Attribute `yaml:"attributes"`
}

// AttributeNames returns the declared attribute names, sorted.
func (e *Entity) AttributeNames() []string {
	names := make([]string, 0, len(e.Attributes))
	for name := range e.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Model is a set of entities.
type Model struct {
	entities map[string]*Entity
	names    []string
	validate *validator.Validate
}

type file struct {
	Entities []*Entity `yaml:"entities"`
}

// Load reads and parses a model file.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	return Parse(data)
}

// Parse parses a YAML model definition.
func Parse(data []byte) (*Model, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}

	m := &Model{
		entities: make(map[string]*Entity, len(f.Entities)),
		validate: validator.New(),
	}
	for i, e := range f.Entities {
		if e == nil || e.Name == "" {
			return nil, fmt.Errorf("entity %d has no name", i)
		}
		if _, dup := m.entities[e.Name]; dup {
			return nil, fmt.Errorf("entity %q declared twice", e.Name)
		}
		if e.Identifier == "" {
			e.Identifier = DefaultIdentifier
		}
		if e.Attributes == nil {
			e.Attributes = make(map[string]Attribute)
		}
		for name, attr := range e.Attributes {
			if name == e.Identifier {
				return nil, fmt.Errorf("entity %q: attribute %q shadows the identifier", e.Name, name)
			}
			if attr.Type == "" {
				attr.Type = TypeAny
				e.Attributes[name] = attr
			}
			if !validType(attr.Type) {
				return nil, fmt.Errorf("entity %q: attribute %q has unknown type %q", e.Name, name, attr.Type)
			}
		}
		m.entities[e.Name] = e
		m.names = append(m.names, e.Name)
	}
	sort.Strings(m.names)
	return m, nil
}

func validType(t string) bool {
	switch t {
	case TypeString, TypeInt, TypeFloat, TypeBool, TypeAny:
		return true
	default:
		return false
	}
}

// Entity returns the named entity.
func (m *Model) Entity(name string) (*Entity, error) {
	e, ok := m.entities[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownEntity)
	}
	return e, nil
}

// Names returns the declared entity names, sorted.
func (m *Model) Names() []string {
	return append([]string(nil), m.names...)
}
