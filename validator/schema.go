package validator

import (
	"fmt"
	"reflect"

	"github.com/corvids/surgo/schema"
)

// ForField derives the client-side rules a field descriptor implies. The
// set mirrors the assertions the definition compiler emits, so a value that
// passes here will not be rejected by a schema-generated constraint.
func ForField(f *schema.Field) []Rule {
	var rules []Rule
	if f.Required && f.Default == "" && f.Value == "" {
		rules = append(rules, Required)
	}
	if f.MinLen != nil {
		rules = append(rules, MinLen(*f.MinLen).Optional())
	}
	if f.MaxLen != nil {
		rules = append(rules, MaxLen(*f.MaxLen).Optional())
	}
	if f.Min != nil {
		rules = append(rules, Min(*f.Min).Optional())
	}
	if f.Max != nil {
		rules = append(rules, Max(*f.Max).Optional())
	}
	if f.Pattern != "" {
		rules = append(rules, Regexp(f.Pattern).Optional())
	}
	if len(f.Enum) > 0 {
		rules = append(rules, In(f.Enum...).Optional())
	}
	return rules
}

// ForTable derives a rule map for every top-level field of a table.
func ForTable(t *schema.Table) Rules {
	rules := Rules{}
	for _, f := range t.Fields {
		if r := ForField(f); len(r) > 0 {
			rules[f.Name] = r
		}
	}
	return rules
}

// ValidateStruct checks a struct value against the rules its table
// descriptor implies.
func ValidateStruct(t *schema.Table, value any) error {
	if t == nil {
		return nil
	}
	rules := ForTable(t)
	if len(rules) == 0 {
		return nil
	}
	return rules.Validate(value)
}

// fieldValues flattens a struct into schema-field-name → value.
func fieldValues(value any) (map[string]any, error) {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, fmt.Errorf("value is nil")
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Map {
		out := make(map[string]any, rv.Len())
		for _, k := range rv.MapKeys() {
			out[fmt.Sprintf("%v", k.Interface())] = rv.MapIndex(k).Interface()
		}
		return out, nil
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("value must be a struct, map or pointer, got %s", rv.Kind())
	}

	typ := rv.Type()
	out := make(map[string]any, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := schema.FieldName(sf)
		if name == "" {
			continue
		}
		out[name] = rv.Field(i).Interface()
	}
	return out, nil
}
