// Package validator checks record values before they are written. Rules can
// be declared by hand or derived from a table descriptor, so the same
// constraints the database enforces server-side are caught client-side
// first.
package validator

import (
	"fmt"
	"reflect"
	"strings"
)

// ValidationErrors is a map of field names to their validation errors.
type ValidationErrors map[string][]error

func (v ValidationErrors) Error() string {
	var sb strings.Builder
	for field, errs := range v {
		for _, err := range errs {
			if sb.Len() > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString(fmt.Sprintf("%s: %v", field, err))
		}
	}
	return sb.String()
}

// Rule is the interface for a single validation rule.
type Rule interface {
	Validate(value any) error
	Msg(msg string) Rule
	Optional() Rule
}

// BaseRule provides common functionality for all rules.
type BaseRule struct {
	msg      string
	optional bool
}

func (r *BaseRule) SetMsg(msg string) {
	r.msg = msg
}

func (r *BaseRule) SetOptional() {
	r.optional = true
}

// ShouldValidate reports whether the rule applies to the value.
func (r *BaseRule) ShouldValidate(value any) bool {
	if r.optional {
		return !isZeroValue(value)
	}
	return true
}

// FormatError returns the custom message if set, otherwise the default.
func (r *BaseRule) FormatError(defaultErr error) error {
	if r.msg != "" {
		return fmt.Errorf("%s", r.msg)
	}
	return defaultErr
}

func isZeroValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.Len() == 0
	case reflect.Bool:
		return !rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return reflect.DeepEqual(v, reflect.Zero(rv.Type()).Interface())
}

// Rules is a map of field names to validation rules.
type Rules map[string][]Rule

// Validate checks a struct value against the rule map. Field names match
// the schema field names the struct maps to.
func (r Rules) Validate(value any) error {
	values, err := fieldValues(value)
	if err != nil {
		return err
	}

	errs := ValidationErrors{}
	for field, rules := range r {
		v := values[field]
		for _, rule := range rules {
			if err := rule.Validate(v); err != nil {
				errs[field] = append(errs[field], err)
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Check validates and returns the errors as a typed map, or nil.
func Check(value any, rules Rules) ValidationErrors {
	err := rules.Validate(value)
	if err == nil {
		return nil
	}
	if ve, ok := err.(ValidationErrors); ok {
		return ve
	}
	return ValidationErrors{"": {err}}
}

// FirstMsg returns one human-readable message from a validation error.
func FirstMsg(err error) string {
	ve, ok := err.(ValidationErrors)
	if !ok {
		return err.Error()
	}
	for field, errs := range ve {
		if len(errs) > 0 {
			if field == "" {
				return errs[0].Error()
			}
			return fmt.Sprintf("%s: %v", field, errs[0])
		}
	}
	return ""
}
