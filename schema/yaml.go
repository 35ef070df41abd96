package schema

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// The YAML schema file format. Tables and fields are lists, not maps, so
// declaration order survives the round trip; the diff planner's statement
// ordering depends on it.

type yamlSchema struct {
	Tables []*yamlTable `yaml:"tables"`
}

type yamlTable struct {
	Name        string           `yaml:"name"`
	Comment     string           `yaml:"comment,omitempty"`
	Schemafull  bool             `yaml:"schemafull"`
	Permissions *yamlPermissions `yaml:"permissions,omitempty"`
	Fields      []*yamlField     `yaml:"fields,omitempty"`
	Indexes     []*yamlIndex     `yaml:"indexes,omitempty"`
	Events      []*yamlEvent     `yaml:"events,omitempty"`
}

type yamlField struct {
	Name          string           `yaml:"name"`
	Type          string           `yaml:"type"`
	Required      bool             `yaml:"required,omitempty"`
	Default       string           `yaml:"default,omitempty"`
	DefaultAlways bool             `yaml:"default_always,omitempty"`
	Value         string           `yaml:"value,omitempty"`
	Readonly      bool             `yaml:"readonly,omitempty"`
	Permissions   *yamlPermissions `yaml:"permissions,omitempty"`
	Reference     string           `yaml:"reference,omitempty"`
	OnDelete      string           `yaml:"on_delete,omitempty"`
	OnDeleteThen  string           `yaml:"on_delete_then,omitempty"`
	Asserts       []string         `yaml:"asserts,omitempty"`
	MinLen        *int             `yaml:"minlen,omitempty"`
	MaxLen        *int             `yaml:"maxlen,omitempty"`
	Min           *float64         `yaml:"min,omitempty"`
	Max           *float64         `yaml:"max,omitempty"`
	Pattern       string           `yaml:"pattern,omitempty"`
	Enum          []string         `yaml:"enum,omitempty"`
	Elem          *yamlField       `yaml:"elem,omitempty"`
	Fields        []*yamlField     `yaml:"fields,omitempty"`
	Comment       string           `yaml:"comment,omitempty"`
}

type yamlPermissions struct {
	Full   bool   `yaml:"full,omitempty"`
	None   bool   `yaml:"none,omitempty"`
	Select string `yaml:"select,omitempty"`
	Create string `yaml:"create,omitempty"`
	Update string `yaml:"update,omitempty"`
	Delete string `yaml:"delete,omitempty"`
}

type yamlIndex struct {
	Name   string      `yaml:"name"`
	Fields []string    `yaml:"fields"`
	Unique bool        `yaml:"unique,omitempty"`
	Search *yamlSearch `yaml:"search,omitempty"`
}

type yamlSearch struct {
	Analyzer   string   `yaml:"analyzer,omitempty"`
	K1         *float64 `yaml:"k1,omitempty"`
	B          *float64 `yaml:"b,omitempty"`
	Highlights bool     `yaml:"highlights,omitempty"`
}

type yamlEvent struct {
	Name string `yaml:"name"`
	When string `yaml:"when"`
	Then string `yaml:"then"`
}

// LoadFile reads a YAML schema file and validates it.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return Load(data)
}

// Load parses a YAML schema document and validates it.
func Load(data []byte) (*Schema, error) {
	var ys yamlSchema
	if err := yaml.Unmarshal(data, &ys); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	s := &Schema{}
	for _, yt := range ys.Tables {
		t := &Table{
			Name:        yt.Name,
			Comment:     yt.Comment,
			Schemafull:  yt.Schemafull,
			Permissions: yt.Permissions.toPermissions(),
		}
		for _, yf := range yt.Fields {
			f, err := yf.toField()
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", yt.Name, err)
			}
			t.Fields = append(t.Fields, f)
		}
		for _, yi := range yt.Indexes {
			idx := &Index{Name: yi.Name, Fields: yi.Fields, Unique: yi.Unique}
			if yi.Search != nil {
				idx.Search = &Search{
					Analyzer:   yi.Search.Analyzer,
					K1:         yi.Search.K1,
					B:          yi.Search.B,
					Highlights: yi.Search.Highlights,
				}
			}
			t.Indexes = append(t.Indexes, idx)
		}
		for _, ye := range yt.Events {
			t.Events = append(t.Events, &Event{Name: ye.Name, When: ye.When, Then: ye.Then})
		}
		s.Tables = append(s.Tables, t)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dump renders a schema as YAML, the inverse of Load.
func Dump(s *Schema) ([]byte, error) {
	ys := yamlSchema{}
	for _, t := range s.Tables {
		yt := &yamlTable{
			Name:        t.Name,
			Comment:     t.Comment,
			Schemafull:  t.Schemafull,
			Permissions: toYAMLPermissions(t.Permissions),
		}
		for _, f := range t.Fields {
			yt.Fields = append(yt.Fields, toYAMLField(f))
		}
		for _, idx := range t.Indexes {
			yi := &yamlIndex{Name: idx.Name, Fields: idx.Fields, Unique: idx.Unique}
			if idx.Search != nil {
				yi.Search = &yamlSearch{
					Analyzer:   idx.Search.Analyzer,
					K1:         idx.Search.K1,
					B:          idx.Search.B,
					Highlights: idx.Search.Highlights,
				}
			}
			yt.Indexes = append(yt.Indexes, yi)
		}
		for _, ev := range t.Events {
			yt.Events = append(yt.Events, &yamlEvent{Name: ev.Name, When: ev.When, Then: ev.Then})
		}
		ys.Tables = append(ys.Tables, yt)
	}
	return yaml.Marshal(&ys)
}

func (yp *yamlPermissions) toPermissions() *Permissions {
	if yp == nil {
		return nil
	}
	return &Permissions{
		Full:   yp.Full,
		None:   yp.None,
		Select: yp.Select,
		Create: yp.Create,
		Update: yp.Update,
		Delete: yp.Delete,
	}
}

func toYAMLPermissions(p *Permissions) *yamlPermissions {
	if p == nil {
		return nil
	}
	return &yamlPermissions{
		Full:   p.Full,
		None:   p.None,
		Select: p.Select,
		Create: p.Create,
		Update: p.Update,
		Delete: p.Delete,
	}
}

func (yf *yamlField) toField() (*Field, error) {
	f := &Field{
		Name:          yf.Name,
		Required:      yf.Required,
		Default:       yf.Default,
		DefaultAlways: yf.DefaultAlways,
		Value:         yf.Value,
		Readonly:      yf.Readonly,
		Permissions:   yf.Permissions.toPermissions(),
		Reference:     yf.Reference,
		OnDelete:      onDeleteFor(yf.OnDelete),
		OnDeleteThen:  yf.OnDeleteThen,
		Asserts:       yf.Asserts,
		MinLen:        yf.MinLen,
		MaxLen:        yf.MaxLen,
		Min:           yf.Min,
		Max:           yf.Max,
		Pattern:       yf.Pattern,
		Enum:          yf.Enum,
		Comment:       yf.Comment,
	}

	switch yf.Type {
	case "string", "":
		f.Type = TypeString
	case "number", "int", "float":
		f.Type = TypeNumber
	case "bool":
		f.Type = TypeBool
	case "datetime":
		f.Type = TypeDatetime
	case "object":
		f.Type = TypeObject
	case "array":
		f.Type = TypeArray
	case "record":
		f.Type = TypeRecord
	default:
		return nil, fmt.Errorf("field %s: unknown type %q", yf.Name, yf.Type)
	}

	if yf.Elem != nil {
		elem, err := yf.Elem.toField()
		if err != nil {
			return nil, err
		}
		elem.Required = true
		f.Elem = elem
	}
	for _, c := range yf.Fields {
		cf, err := c.toField()
		if err != nil {
			return nil, err
		}
		f.Fields = append(f.Fields, cf)
	}
	return f, nil
}

func toYAMLField(f *Field) *yamlField {
	yf := &yamlField{
		Name:          f.Name,
		Type:          f.Type.String(),
		Required:      f.Required,
		Default:       f.Default,
		DefaultAlways: f.DefaultAlways,
		Value:         f.Value,
		Readonly:      f.Readonly,
		Permissions:   toYAMLPermissions(f.Permissions),
		Reference:     f.Reference,
		Asserts:       f.Asserts,
		MinLen:        f.MinLen,
		MaxLen:        f.MaxLen,
		Min:           f.Min,
		Max:           f.Max,
		Pattern:       f.Pattern,
		Enum:          f.Enum,
		Comment:       f.Comment,
	}
	if f.OnDelete != OnDeleteNone {
		yf.OnDelete = strings.ToLower(f.OnDelete.String())
		yf.OnDeleteThen = f.OnDeleteThen
	}
	if f.Elem != nil {
		yf.Elem = toYAMLField(f.Elem)
	}
	for _, c := range f.Fields {
		yf.Fields = append(yf.Fields, toYAMLField(c))
	}
	return yf
}
