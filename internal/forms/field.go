// Package forms implements the schema-driven multi-step wizard that powers
// the add/edit transaction flow: declarative field and step specifications
// per transaction type, a variant-agnostic form controller, and an HTML
// renderer dispatching on field kind.
package forms

import (
	"errors"
	"fmt"
)

// Kind selects which interactive widget and value transform apply to a field.
type Kind string

const (
	KindText         Kind = "text"
	KindSelect       Kind = "select"
	KindDate         Kind = "date"
	KindCurrency     Kind = "currency"
	KindPercent      Kind = "percent"
	KindRadioCards   Kind = "radio-cards"
	KindSegmented    Kind = "segmented"
	KindFees         Kind = "fees"
	KindSectionTitle Kind = "section-title"
)

// Width is a purely presentational layout hint.
type Width string

const (
	WidthFull      Width = "full"
	WidthHalf      Width = "1/2"
	WidthThird     Width = "1/3"
	WidthTwoThirds Width = "2/3"
)

// Option is one selectable choice. Disabled options render visible but
// non-interactive; they preview not-yet-supported transaction types.
type Option struct {
	Value    string
	Label    string
	Disabled bool
}

// Condition gates a field's visibility on a sibling field's current value.
// Hidden fields keep whatever value they hold but are excluded from required
// checks until the condition holds again.
type Condition struct {
	Field  string
	Equals string
}

// FieldSpec declaratively describes one form input. Specs are built once at
// startup per variant and never mutated.
type FieldSpec struct {
	Name        string
	Kind        Kind
	Label       string
	Title       string // section-title heading
	Description string
	Placeholder string
	Width       Width
	Options     []Option
	Disabled    bool
	VisibleWhen *Condition
}

var errMissingOptions = errors.New("choice field requires non-empty options")

// Validate checks a field definition: value-bearing fields need a name and
// choice kinds need options.
func (f FieldSpec) Validate() error {
	if f.Kind == KindSectionTitle {
		return nil
	}
	if f.Name == "" {
		return fmt.Errorf("field of kind %q has no name", f.Kind)
	}
	switch f.Kind {
	case KindSelect, KindRadioCards, KindSegmented:
		if len(f.Options) == 0 {
			return fmt.Errorf("field %q: %w", f.Name, errMissingOptions)
		}
	}
	return nil
}

// Visible evaluates the field's condition against current form state.
// Unconditional fields are always visible.
func (f FieldSpec) Visible(v Values) bool {
	if f.VisibleWhen == nil {
		return true
	}
	got, _ := v.String(f.VisibleWhen.Field)
	return got == f.VisibleWhen.Equals
}

// StepSpec is one page of the wizard. FieldNames is the gate list: the field
// keys that must pass validation before the user may advance past this step.
// It is a subset of the value-bearing fields (section titles never appear).
type StepSpec struct {
	ID          string
	Title       string
	Description string
	Fields      []FieldSpec
	FieldNames  []string
}

// Validate checks internal consistency of the step definition.
func (s StepSpec) Validate() error {
	if s.ID == "" {
		return errors.New("step requires an id")
	}
	byName := make(map[string]FieldSpec, len(s.Fields))
	for _, f := range s.Fields {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("step %q: %w", s.ID, err)
		}
		if f.Name != "" {
			byName[f.Name] = f
		}
	}
	for _, name := range s.FieldNames {
		f, ok := byName[name]
		if !ok {
			return fmt.Errorf("step %q gates unknown field %q", s.ID, name)
		}
		if f.Kind == KindSectionTitle {
			return fmt.Errorf("step %q gates section title %q", s.ID, name)
		}
	}
	return nil
}
