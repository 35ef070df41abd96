package schema

import (
	"fmt"
	"reflect"
	"sync"
	"unicode"
)

// TableNamer lets a model type override its table name.
type TableNamer interface {
	TableName() string
}

var tableCache sync.Map

// FromStruct builds a Table descriptor from a tagged Go struct. Results are
// cached per type; the returned descriptor must not be mutated.
func FromStruct(value any) (*Table, error) {
	if value == nil {
		return nil, fmt.Errorf("value is nil")
	}

	typ := reflect.TypeOf(value)
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("value must be a struct or pointer to struct, got %s", typ.Kind())
	}

	key := typ.PkgPath() + "." + typ.Name()
	if cached, ok := tableCache.Load(key); ok {
		return cached.(*Table), nil
	}

	t, err := parseStruct(typ)
	if err != nil {
		return nil, err
	}
	if namer, ok := value.(TableNamer); ok {
		t.Name = namer.TableName()
	}

	tableCache.Store(key, t)
	return t, nil
}

// FieldName resolves the schema field name a struct field maps to: the tag
// name when present, the snake-cased Go name otherwise.
func FieldName(sf reflect.StructField) string {
	tag := ParseTag(sf.Tag.Get("surgo"))
	if tag.Skip {
		return ""
	}
	if tag.Name != "" {
		return tag.Name
	}
	return camelToSnake(sf.Name)
}

func parseStruct(typ reflect.Type) (*Table, error) {
	t := &Table{
		Name:       camelToSnake(typ.Name()),
		Schemafull: true,
	}

	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := ParseTag(sf.Tag.Get("surgo"))
		if tag.Skip {
			continue
		}

		name := tag.Name
		if name == "" {
			name = camelToSnake(sf.Name)
		}
		if name == "id" {
			// The record id is managed by the database, not the schema.
			continue
		}

		f, err := fieldFor(sf.Type, tag)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", typ.Name(), sf.Name, err)
		}
		f.Name = name
		t.Fields = append(t.Fields, f)

		if tag.Unique {
			t.Indexes = append(t.Indexes, &Index{
				Name:   t.Name + "_" + name + "_unique",
				Fields: []string{name},
				Unique: true,
			})
		} else if tag.Index {
			t.Indexes = append(t.Indexes, &Index{
				Name:   t.Name + "_" + name + "_idx",
				Fields: []string{name},
			})
		}
	}

	return t, nil
}

func fieldFor(typ reflect.Type, tag *Tag) (*Field, error) {
	f := &Field{
		Required:      tag.Required,
		Readonly:      tag.Readonly,
		Default:       tag.Default,
		DefaultAlways: tag.DefaultAlways,
		Value:         tag.Value,
		MinLen:        tag.MinLen,
		MaxLen:        tag.MaxLen,
		Min:           tag.Min,
		Max:           tag.Max,
		Pattern:       tag.Pattern,
		Enum:          tag.Enum,
		Comment:       tag.Comment,
	}
	if tag.Assert != "" {
		f.Asserts = []string{tag.Assert}
	}

	elemTag := &Tag{Reference: tag.Reference, OnDelete: tag.OnDelete}

	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}

	switch {
	case tag.Reference != "" && typ.Kind() != reflect.Slice:
		f.Type = TypeRecord
		f.Reference = tag.Reference
		f.OnDelete = onDeleteFor(tag.OnDelete)
	case typ.Kind() == reflect.String:
		f.Type = TypeString
	case typ.Kind() == reflect.Bool:
		f.Type = TypeBool
	case isNumeric(typ.Kind()):
		f.Type = TypeNumber
	case typ.Kind() == reflect.Struct && typ.Name() == "Time":
		f.Type = TypeDatetime
	case typ.Kind() == reflect.Struct:
		f.Type = TypeObject
		nested, err := parseStruct(typ)
		if err != nil {
			return nil, err
		}
		f.Fields = nested.Fields
	case typ.Kind() == reflect.Map:
		f.Type = TypeObject
	case typ.Kind() == reflect.Slice:
		f.Type = TypeArray
		elem, err := fieldFor(typ.Elem(), elemTag)
		if err != nil {
			return nil, err
		}
		f.Elem = elem
	default:
		return nil, fmt.Errorf("unsupported type %s", typ)
	}

	return f, nil
}

func onDeleteFor(s string) OnDelete {
	switch s {
	case "reject":
		return OnDeleteReject
	case "cascade":
		return OnDeleteCascade
	case "ignore":
		return OnDeleteIgnore
	case "unset":
		return OnDeleteUnset
	case "then":
		return OnDeleteThen
	}
	return OnDeleteNone
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func camelToSnake(s string) string {
	if s == "ID" {
		return "id"
	}
	var res []rune
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(rune(s[i-1])) || (i+1 < len(s) && unicode.IsLower(rune(s[i+1])))) {
				res = append(res, '_')
			}
			res = append(res, unicode.ToLower(r))
		} else {
			res = append(res, r)
		}
	}
	return string(res)
}
