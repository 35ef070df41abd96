package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"time"
)

// --- Required ---

type requiredRule struct {
	BaseRule
}

func (r *requiredRule) Validate(v any) error {
	if isZeroValue(v) {
		return r.FormatError(fmt.Errorf("is required"))
	}
	return nil
}

func (r *requiredRule) Msg(msg string) Rule { nr := *r; nr.SetMsg(msg); return &nr }
func (r *requiredRule) Optional() Rule      { nr := *r; nr.SetOptional(); return &nr }

var Required Rule = &requiredRule{}

// --- MinLen / MaxLen ---

type minLenRule struct {
	BaseRule
	min int
}

func (r *minLenRule) Validate(v any) error {
	if !r.ShouldValidate(v) {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	if len([]rune(s)) < r.min {
		return r.FormatError(fmt.Errorf("must be at least %d characters", r.min))
	}
	return nil
}

func (r *minLenRule) Msg(msg string) Rule { nr := *r; nr.SetMsg(msg); return &nr }
func (r *minLenRule) Optional() Rule      { nr := *r; nr.SetOptional(); return &nr }

// MinLen requires a string of at least n characters.
func MinLen(n int) Rule { return &minLenRule{min: n} }

type maxLenRule struct {
	BaseRule
	max int
}

func (r *maxLenRule) Validate(v any) error {
	if !r.ShouldValidate(v) {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	if len([]rune(s)) > r.max {
		return r.FormatError(fmt.Errorf("must be at most %d characters", r.max))
	}
	return nil
}

func (r *maxLenRule) Msg(msg string) Rule { nr := *r; nr.SetMsg(msg); return &nr }
func (r *maxLenRule) Optional() Rule      { nr := *r; nr.SetOptional(); return &nr }

// MaxLen requires a string of at most n characters.
func MaxLen(n int) Rule { return &maxLenRule{max: n} }

// --- Range ---

type rangeRule struct {
	BaseRule
	min, max float64
	hasMin   bool
	hasMax   bool
}

func (r *rangeRule) Validate(v any) error {
	if !r.ShouldValidate(v) {
		return nil
	}
	n, ok := toFloat(v)
	if !ok {
		return nil
	}
	if r.hasMin && n < r.min {
		return r.FormatError(fmt.Errorf("must be >= %v", r.min))
	}
	if r.hasMax && n > r.max {
		return r.FormatError(fmt.Errorf("must be <= %v", r.max))
	}
	return nil
}

func (r *rangeRule) Msg(msg string) Rule { nr := *r; nr.SetMsg(msg); return &nr }
func (r *rangeRule) Optional() Rule      { nr := *r; nr.SetOptional(); return &nr }

// Range bounds a numeric value inclusively on both sides.
func Range(min, max float64) Rule {
	return &rangeRule{min: min, max: max, hasMin: true, hasMax: true}
}

// Min bounds a numeric value from below.
func Min(min float64) Rule { return &rangeRule{min: min, hasMin: true} }

// Max bounds a numeric value from above.
func Max(max float64) Rule { return &rangeRule{max: max, hasMax: true} }

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// --- In ---

type inRule struct {
	BaseRule
	set []string
}

func (r *inRule) Validate(v any) error {
	if !r.ShouldValidate(v) {
		return nil
	}
	s := fmt.Sprintf("%v", v)
	for _, item := range r.set {
		if s == item {
			return nil
		}
	}
	return r.FormatError(fmt.Errorf("must be one of %v", r.set))
}

func (r *inRule) Msg(msg string) Rule { nr := *r; nr.SetMsg(msg); return &nr }
func (r *inRule) Optional() Rule      { nr := *r; nr.SetOptional(); return &nr }

// In requires the value to be one of the given literals.
func In(set ...string) Rule { return &inRule{set: set} }

// --- Regexp ---

type regexpRule struct {
	BaseRule
	re *regexp.Regexp
}

func (r *regexpRule) Validate(v any) error {
	if !r.ShouldValidate(v) {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	if !r.re.MatchString(s) {
		return r.FormatError(fmt.Errorf("must match %s", r.re))
	}
	return nil
}

func (r *regexpRule) Msg(msg string) Rule { nr := *r; nr.SetMsg(msg); return &nr }
func (r *regexpRule) Optional() Rule      { nr := *r; nr.SetOptional(); return &nr }

// Regexp requires a string matching the pattern.
func Regexp(pattern string) Rule {
	return &regexpRule{re: regexp.MustCompile(pattern)}
}

// --- Datetime ---

type datetimeRule struct {
	BaseRule
	layout string
}

func (r *datetimeRule) Validate(v any) error {
	if !r.ShouldValidate(v) {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	if _, err := time.Parse(r.layout, s); err != nil {
		return r.FormatError(fmt.Errorf("must be a valid datetime (%s)", r.layout))
	}
	return nil
}

func (r *datetimeRule) Msg(msg string) Rule { nr := *r; nr.SetMsg(msg); return &nr }
func (r *datetimeRule) Optional() Rule      { nr := *r; nr.SetOptional(); return &nr }

// Datetime requires a string parsing with the given layout.
func Datetime(layout string) Rule { return &datetimeRule{layout: layout} }
