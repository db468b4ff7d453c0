package forms

import (
	"fmt"

	"dealtrack/internal/core"
)

// VariantSpec is a complete wizard definition for one transaction type:
// ordered steps, the full-shape validator, reset defaults, and the pure
// transform from validated form values to a flat persistence payload.
// Variants are constructed once at startup and never mutated.
type VariantSpec struct {
	Type      core.TransactionType
	Schema    *Schema
	Defaults  Values
	Steps     []StepSpec
	ToPayload func(Values) core.Payload
}

// Validate checks the cross-piece invariants: every step is well formed and
// every gated field name is validatable by the schema.
func (v VariantSpec) Validate() error {
	if !v.Type.Valid() {
		return fmt.Errorf("variant type %q: %w", v.Type, core.ErrInvalidType)
	}
	if v.Schema == nil || v.ToPayload == nil {
		return fmt.Errorf("variant %q is missing schema or payload transform", v.Type)
	}
	seen := make(map[string]struct{}, len(v.Steps))
	for _, step := range v.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("variant %q: %w", v.Type, err)
		}
		if _, dup := seen[step.ID]; dup {
			return fmt.Errorf("variant %q: duplicate step id %q", v.Type, step.ID)
		}
		seen[step.ID] = struct{}{}
		for _, name := range step.FieldNames {
			if !v.Schema.Has(name) {
				return fmt.Errorf("variant %q: step %q gates field %q unknown to schema", v.Type, step.ID, name)
			}
		}
	}
	return nil
}

// fieldSpec finds a field by name across all steps.
func (v VariantSpec) fieldSpec(name string) (FieldSpec, bool) {
	for _, step := range v.Steps {
		for _, f := range step.Fields {
			if f.Name == name {
				return f, true
			}
		}
	}
	return FieldSpec{}, false
}

// visibleFn resolves conditional visibility against current values for use by
// schema validation. Fields without a spec (schema-only) count as visible.
func (v VariantSpec) visibleFn(values Values) func(string) bool {
	return func(name string) bool {
		f, ok := v.fieldSpec(name)
		if !ok {
			return true
		}
		return f.Visible(values)
	}
}
