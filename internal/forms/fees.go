package forms

import (
	"github.com/google/uuid"

	"dealtrack/internal/core"
)

// NewFeeRow builds a repeater row with the standard defaults: USD unit,
// pre-split basis, both amount fields unset. The client-generated ID only
// stabilizes list rendering; the backend assigns real identity on persist.
func NewFeeRow() core.FeeRow {
	return core.FeeRow{
		ID:    uuid.NewString(),
		Unit:  core.FeeUnitUSD,
		Basis: core.FeeBasisPreSplit,
	}
}

// AppendFee adds a fresh row to the end of the fee list under field and
// returns it.
func (c *Controller) AppendFee(field string) core.FeeRow {
	row := NewFeeRow()
	c.values[field] = append(c.values.Fees(field), row)
	return row
}

// RemoveFee deletes the row at idx; remaining rows shift down. Out-of-range
// indexes are ignored.
func (c *Controller) RemoveFee(field string, idx int) {
	fees := c.values.Fees(field)
	if idx < 0 || idx >= len(fees) {
		return
	}
	c.values[field] = append(fees[:idx:idx], fees[idx+1:]...)
}

// SetFeeUnit switches a row's unit and clears the now-irrelevant counterpart
// amount, so a stale dual state can never reach submission.
func (c *Controller) SetFeeUnit(field string, idx int, unit core.FeeUnit) {
	c.updateFee(field, idx, func(row *core.FeeRow) {
		if row.Unit == unit {
			return
		}
		row.Unit = unit
		switch unit {
		case core.FeeUnitUSD:
			row.Percent = nil
		case core.FeeUnitPercent:
			row.AmountCents = nil
		}
	})
}

// SetFeeLabel updates a row's label in place.
func (c *Controller) SetFeeLabel(field string, idx int, label string) {
	c.updateFee(field, idx, func(row *core.FeeRow) { row.Label = label })
}

// SetFeeBasis updates which commission base the fee applies against.
func (c *Controller) SetFeeBasis(field string, idx int, basis core.FeeBasis) {
	c.updateFee(field, idx, func(row *core.FeeRow) { row.Basis = basis })
}

// SetFeeAmountCents stores a USD amount; nil returns the field to unset.
func (c *Controller) SetFeeAmountCents(field string, idx int, cents *int64) {
	c.updateFee(field, idx, func(row *core.FeeRow) { row.AmountCents = cents })
}

// SetFeePercent stores a percent amount; nil returns the field to unset.
func (c *Controller) SetFeePercent(field string, idx int, percent *float64) {
	c.updateFee(field, idx, func(row *core.FeeRow) { row.Percent = percent })
}

func (c *Controller) updateFee(field string, idx int, fn func(*core.FeeRow)) {
	fees := c.values.Fees(field)
	if idx < 0 || idx >= len(fees) {
		return
	}
	fn(&fees[idx])
	c.values[field] = fees
}
