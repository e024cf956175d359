// Package validation collects field violations before any storage call.
package validation

import (
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Violations maps a field path (json naming, e.g. "items[0].discount") to a
// violation code.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Merge copies other into v; existing entries win.
func (v Violations) Merge(other Violations) {
	for k, code := range other {
		if _, ok := v[k]; !ok {
			v[k] = code
		}
	}
}

func RangeFloat(field string, val, minVal, maxVal float64, v Violations) {
	if math.IsNaN(val) || val < minVal || val > maxVal {
		v[field] = "out_of_range"
	}
}

// Number parses raw user input as a finite decimal number. Blank input is
// "required"; anything else that does not parse is "not_a_number".
func Number(field, raw string, v Violations) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		v[field] = "required"
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		v[field] = "not_a_number"
		return 0, false
	}
	return f, true
}

var validate = newValidator()

func newValidator() *validator.Validate {
	vd := validator.New(validator.WithRequiredStructEnabled())
	vd.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return vd
}

// Struct runs the struct's `validate` tags and returns the violations, keyed
// by json field path without the top-level type name.
func Struct(s any) Violations {
	v := make(Violations)
	err := validate.Struct(s)
	if err == nil {
		return v
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v["_"] = "invalid"
		return v
	}
	for _, fe := range fieldErrs {
		key := fe.Namespace()
		if _, rest, ok := strings.Cut(key, "."); ok {
			key = rest
		}
		if _, exists := v[key]; !exists {
			v[key] = code(fe)
		}
	}
	return v
}

func code(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return "required"
		}
		return "too_small"
	case "gte", "lte", "gt", "lt":
		return "out_of_range"
	default:
		return fe.Tag()
	}
}
