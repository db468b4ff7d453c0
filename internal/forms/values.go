package forms

import "dealtrack/internal/core"

// Values is the in-memory form state of one open wizard. Keys are field
// names; a missing key means "unset", which is distinct from an empty string
// or a zero amount. A Values map is exclusively owned by one Controller.
type Values map[string]any

// Clone copies the map and deep-copies the fee slices so nothing holding the
// copy can reach back into live form state, not even through a row's amount
// pointers. Emptiness is preserved: an empty fee list stays an empty non-nil
// slice, so the payload encodes it as [] rather than null.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		if fees, ok := val.([]core.FeeRow); ok {
			out[k] = cloneFees(fees)
			continue
		}
		out[k] = val
	}
	return out
}

func cloneFees(fees []core.FeeRow) []core.FeeRow {
	if fees == nil {
		return nil
	}
	out := make([]core.FeeRow, len(fees))
	for i, row := range fees {
		if row.AmountCents != nil {
			row.AmountCents = core.Int64Ptr(*row.AmountCents)
		}
		if row.Percent != nil {
			row.Percent = core.Float64Ptr(*row.Percent)
		}
		out[i] = row
	}
	return out
}

// Merge overlays other on top of v, other winning on conflicting keys.
// Used for edit flows where stored row data seeds the wizard.
func (v Values) Merge(other Values) Values {
	for k, val := range other {
		v[k] = val
	}
	return v
}

// String returns the value under name when it is a set, string-typed field.
func (v Values) String(name string) (string, bool) {
	s, ok := v[name].(string)
	return s, ok
}

// Int64 returns a set integer-cents field.
func (v Values) Int64(name string) (int64, bool) {
	n, ok := v[name].(int64)
	return n, ok
}

// Float64 returns a set percent field.
func (v Values) Float64(name string) (float64, bool) {
	f, ok := v[name].(float64)
	return f, ok
}

// Fees returns the fee rows under name, or nil when unset.
func (v Values) Fees(name string) []core.FeeRow {
	fees, _ := v[name].([]core.FeeRow)
	return fees
}

// IsSet reports whether the field holds any value. Empty strings count as
// set: "typed and deleted back to empty" is still user input.
func (v Values) IsSet(name string) bool {
	_, ok := v[name]
	return ok
}
