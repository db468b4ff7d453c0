package forms

import (
	"errors"
	"fmt"

	"dealtrack/internal/core"
)

// StepState is the derived indicator state of one wizard step.
type StepState string

const (
	StepPending   StepState = "pending"
	StepActive    StepState = "active"
	StepCompleted StepState = "completed"
)

// ValidationError carries the per-field report of a failed submit. It is a
// normal, expected outcome: the caller re-renders with Errors and the wizard
// stays open.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("form validation failed for %d field(s)", len(e.Fields))
}

// Controller drives wizard navigation and validation state for an arbitrary
// variant without knowing concrete field semantics. One controller instance
// exclusively owns the form values of one open wizard; all operations are
// synchronous against in-memory state.
type Controller struct {
	variant    VariantSpec
	stepIdx    int
	values     Values
	errs       FieldErrors
	generation uint64
}

// NewController builds a controller positioned on the first step of variant,
// seeded from its defaults merged under initial data (initial wins — used by
// edit flows). initial may be nil.
func NewController(variant VariantSpec, initial Values) *Controller {
	c := &Controller{}
	c.SelectVariant(variant, initial)
	return c
}

// SelectVariant resets the wizard onto a (possibly different) variant,
// discarding in-progress edits: values become variant defaults merged under
// initial, the step index returns to 0, and the generation counter bumps so
// results from superseded asynchronous work can be recognized as stale.
func (c *Controller) SelectVariant(variant VariantSpec, initial Values) {
	c.variant = variant
	c.values = variant.Defaults.Clone().Merge(initial)
	c.stepIdx = 0
	c.errs = nil
	c.generation++
}

// Generation identifies the current variant selection. Callers performing
// asynchronous persistence compare generations on completion and discard
// results that no longer match.
func (c *Controller) Generation() uint64 { return c.generation }

func (c *Controller) Variant() VariantSpec { return c.variant }
func (c *Controller) StepIndex() int       { return c.stepIdx }
func (c *Controller) CurrentStep() StepSpec {
	return c.variant.Steps[c.stepIdx]
}
func (c *Controller) IsLast() bool {
	return c.stepIdx == len(c.variant.Steps)-1
}

// Errors returns the field errors surfaced by the last GoNext or Submit.
func (c *Controller) Errors() FieldErrors { return c.errs }

// Values exposes the live form state. The map is owned by the controller;
// callers mutate it only through Set/Unset and the fee operations.
func (c *Controller) Values() Values { return c.values }

// Set stores a field value. Empty strings are legitimate values and are not
// coerced to unset.
func (c *Controller) Set(name string, value any) {
	c.values[name] = value
}

// Unset removes a field entirely, returning it to the "never entered" state.
func (c *Controller) Unset(name string) {
	delete(c.values, name)
}

// GoNext validates the current step's gate list. On failure the index stays
// put and per-field errors become visible. On success it advances, except on
// the last step where it is a no-op (submission is a separate operation).
// It reports whether the wizard advanced.
func (c *Controller) GoNext() bool {
	step := c.CurrentStep()
	errs := c.variant.Schema.ValidateFields(c.values, step.FieldNames, c.variant.visibleFn(c.values))
	if len(errs) > 0 {
		c.errs = errs
		return false
	}
	c.errs = nil
	if c.IsLast() {
		return false
	}
	c.stepIdx++
	return true
}

// GoBack retreats one step. Users may always go back; no validation runs.
func (c *Controller) GoBack() {
	if c.stepIdx > 0 {
		c.stepIdx--
	}
}

// Submit validates the entire schema — not just the current step, guarding
// against stale state on skipped steps — then applies the variant's payload
// transform and hands the result to onValid. Validation failure returns a
// *ValidationError without touching the step index; onValid's error (the
// persistence outcome) propagates unchanged so the wizard can stay open for a
// retry without re-entering data.
func (c *Controller) Submit(onValid func(core.Payload) error) error {
	errs := c.variant.Schema.Validate(c.values, c.variant.visibleFn(c.values))
	if len(errs) > 0 {
		c.errs = errs
		return &ValidationError{Fields: errs}
	}
	c.errs = nil
	return onValid(c.variant.ToPayload(c.values.Clone()))
}

// StepStates derives the indicator row: completed before the current index,
// active at it, pending after. Retreating un-completes later steps.
func (c *Controller) StepStates() []StepState {
	states := make([]StepState, len(c.variant.Steps))
	for i := range states {
		switch {
		case i < c.stepIdx:
			states[i] = StepCompleted
		case i == c.stepIdx:
			states[i] = StepActive
		default:
			states[i] = StepPending
		}
	}
	return states
}

// IsValidationError reports whether err is a submit-side validation failure
// as opposed to a persistence error.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
