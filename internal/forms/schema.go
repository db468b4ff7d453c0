package forms

import (
	"fmt"
	"sort"
	"strings"

	"dealtrack/internal/core"
)

// FieldErrors maps a field key (possibly dotted, e.g. "fees.0.label") to a
// human-readable message. Validation never panics or aborts; it accumulates
// per-field state the renderer surfaces next to the offending input.
type FieldErrors map[string]string

func (e FieldErrors) Has(name string) bool { return e[name] != "" }

// ForPrefix returns the keys under a dotted prefix, e.g. fee-row errors for
// the "fees" field.
func (e FieldErrors) ForPrefix(prefix string) []string {
	var keys []string
	for k := range e {
		if k == prefix || strings.HasPrefix(k, prefix+".") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// CheckFunc inspects a set field value and records problems under the field's
// key (or a dotted sub-key). It is only invoked when the field holds a value.
type CheckFunc func(name string, value any, out FieldErrors)

// FieldRule is the validation contract of a single field within a schema.
type FieldRule struct {
	Required bool
	Message  string // required-violation message, defaults to "Required"
	Checks   []CheckFunc
}

// Schema is the single source of truth for a variant's full form shape.
// Per-step validation runs the whole schema and filters the report down to
// the step's field set, so there is exactly one validator per variant.
type Schema struct {
	order []string
	rules map[string]FieldRule
}

func NewSchema() *Schema {
	return &Schema{rules: make(map[string]FieldRule)}
}

// Field registers a rule. Registration order is preserved so error iteration
// is deterministic.
func (s *Schema) Field(name string, rule FieldRule) *Schema {
	if _, exists := s.rules[name]; !exists {
		s.order = append(s.order, name)
	}
	s.rules[name] = rule
	return s
}

// Has reports whether the schema knows the field.
func (s *Schema) Has(name string) bool {
	_, ok := s.rules[name]
	return ok
}

// Validate checks all fields against current values. visible may be nil; when
// provided, hidden fields are treated as optional and their checks are
// skipped — their values are preserved but unobservable until the condition
// holds again.
func (s *Schema) Validate(v Values, visible func(string) bool) FieldErrors {
	out := make(FieldErrors)
	for _, name := range s.order {
		rule := s.rules[name]
		if visible != nil && !visible(name) {
			continue
		}
		val, set := v[name]
		if !set || isBlank(val) {
			if rule.Required {
				msg := rule.Message
				if msg == "" {
					msg = "Required"
				}
				out[name] = msg
			}
			continue
		}
		for _, check := range rule.Checks {
			check(name, val, out)
		}
	}
	return out
}

// ValidateFields runs the full schema, then reports only errors addressed to
// the given field names (including dotted sub-keys such as fee rows).
func (s *Schema) ValidateFields(v Values, names []string, visible func(string) bool) FieldErrors {
	all := s.Validate(v, visible)
	if len(all) == 0 {
		return all
	}
	out := make(FieldErrors)
	for _, name := range names {
		for _, key := range all.ForPrefix(name) {
			out[key] = all[key]
		}
	}
	return out
}

func isBlank(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

/* ---------- Check constructors ---------- */

// OneOf restricts a string field to an allowed set.
func OneOf(allowed ...string) CheckFunc {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	return func(name string, value any, out FieldErrors) {
		s, ok := value.(string)
		if !ok {
			out[name] = "Invalid value"
			return
		}
		if _, ok := set[s]; !ok {
			out[name] = "Invalid choice"
		}
	}
}

// NonNegativeCents validates an integer minor-unit amount.
func NonNegativeCents() CheckFunc {
	return func(name string, value any, out FieldErrors) {
		n, ok := value.(int64)
		if !ok {
			out[name] = "Invalid amount"
			return
		}
		if n < 0 {
			out[name] = "Must not be negative"
		}
	}
}

// PercentRange validates a plain number between 0 and 100.
func PercentRange() CheckFunc {
	return func(name string, value any, out FieldErrors) {
		f, ok := value.(float64)
		if !ok {
			out[name] = "Invalid percent"
			return
		}
		if f < 0 || f > 100 {
			out[name] = "Must be between 0 and 100"
		}
	}
}

// ISODate validates a timezone-naive yyyy-mm-dd string.
func ISODate() CheckFunc {
	return func(name string, value any, out FieldErrors) {
		s, ok := value.(string)
		if !ok || !core.IsISODate(s) {
			out[name] = "Invalid date"
		}
	}
}

// FeeRows validates every repeater row independently, addressing errors to
// the row ("fees.2") so a single bad row blocks its step without hiding the
// rest.
func FeeRows() CheckFunc {
	return func(name string, value any, out FieldErrors) {
		rows, ok := value.([]core.FeeRow)
		if !ok {
			out[name] = "Invalid fees"
			return
		}
		for i, row := range rows {
			if err := row.Validate(); err != nil {
				out[fmt.Sprintf("%s.%d", name, i)] = err.Error()
			}
		}
	}
}
