package http

import (
	"net/url"
	"testing"

	"dealtrack/internal/core"
	"dealtrack/internal/forms"
)

func buyerController() *forms.Controller {
	variant := forms.DefaultRegistry().Lookup(core.TypeBuyer)
	return forms.NewController(variant, nil)
}

// detailsStep returns the buyer details step, which carries text, currency,
// date and percent fields.
func detailsStep(t *testing.T, ctrl *forms.Controller) forms.StepSpec {
	t.Helper()
	for _, step := range ctrl.Variant().Steps {
		if step.ID == "buyer" {
			return step
		}
	}
	t.Fatal("buyer variant has no details step")
	return forms.StepSpec{}
}

func commissionStep(t *testing.T, ctrl *forms.Controller) forms.StepSpec {
	t.Helper()
	for _, step := range ctrl.Variant().Steps {
		if step.ID == "commission" {
			return step
		}
	}
	t.Fatal("buyer variant has no commission step")
	return forms.StepSpec{}
}

func TestApplyStepValuesTypedParsing(t *testing.T) {
	ctrl := buyerController()
	form := url.Values{}
	form.Set("buyer_full_name", "  Jane Doe  ")
	form.Set("budget_cents", "350,000.00")
	form.Set("agreement_start_date", "2026-05-01")

	errs := applyStepValues(ctrl, detailsStep(t, ctrl), form)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}

	if got, _ := ctrl.Values().String("buyer_full_name"); got != "Jane Doe" {
		t.Fatalf("buyer_full_name = %q", got)
	}
	if got, _ := ctrl.Values().Int64("budget_cents"); got != 35000000 {
		t.Fatalf("budget_cents = %d, want 35000000", got)
	}
	if got, _ := ctrl.Values().String("agreement_start_date"); got != "2026-05-01" {
		t.Fatalf("agreement_start_date = %q", got)
	}
}

func TestApplyStepValuesSanitizesMarkup(t *testing.T) {
	ctrl := buyerController()
	form := url.Values{}
	form.Set("buyer_full_name", `<script>alert(1)</script>Jane`)

	applyStepValues(ctrl, detailsStep(t, ctrl), form)

	got, _ := ctrl.Values().String("buyer_full_name")
	if got != "Jane" {
		t.Fatalf("buyer_full_name = %q, want markup stripped", got)
	}
}

func TestApplyStepValuesParseErrors(t *testing.T) {
	ctrl := buyerController()
	form := url.Values{}
	form.Set("budget_cents", "lots of money")

	errs := applyStepValues(ctrl, detailsStep(t, ctrl), form)
	if errs["budget_cents"] == "" {
		t.Fatal("expected parse error for budget_cents")
	}
	// Failed parses never write a value.
	if ctrl.Values().IsSet("budget_cents") {
		t.Fatal("unparsable amount stored")
	}
}

func TestApplyStepValuesAbsentAndBlankKeys(t *testing.T) {
	ctrl := buyerController()
	ctrl.Set("buyer_full_name", "Jane Doe")
	ctrl.Set("budget_cents", int64(100))

	// Absent key: untouched. Blank key: unset.
	form := url.Values{}
	form.Set("budget_cents", "")
	applyStepValues(ctrl, detailsStep(t, ctrl), form)

	if got, _ := ctrl.Values().String("buyer_full_name"); got != "Jane Doe" {
		t.Fatalf("absent key changed value: %q", got)
	}
	if ctrl.Values().IsSet("budget_cents") {
		t.Fatal("blank key should unset the field")
	}
}

func TestApplyFeeRowsRebuildsSlice(t *testing.T) {
	ctrl := buyerController()
	form := url.Values{}
	form.Set("fees.0.id", "row-a")
	form.Set("fees.0.label", "Transaction fee")
	form.Set("fees.0.unit", "usd")
	form.Set("fees.0.amount", "295.00")
	form.Set("fees.0.basis", "pre_split")
	form.Set("fees.1.id", "row-b")
	form.Set("fees.1.label", "Franchise")
	form.Set("fees.1.unit", "percent")
	form.Set("fees.1.amount", "1.5")
	form.Set("fees.1.basis", "post_split")

	errs := applyStepValues(ctrl, commissionStep(t, ctrl), form)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	fees := ctrl.Values().Fees("fees")
	if len(fees) != 2 {
		t.Fatalf("fees = %d rows, want 2", len(fees))
	}
	if fees[0].ID != "row-a" || fees[0].AmountCents == nil || *fees[0].AmountCents != 29500 {
		t.Fatalf("row 0 = %+v", fees[0])
	}
	if fees[0].Percent != nil {
		t.Fatal("usd row carries percent")
	}
	if fees[1].Unit != core.FeeUnitPercent || fees[1].Percent == nil || *fees[1].Percent != 1.5 {
		t.Fatalf("row 1 = %+v", fees[1])
	}
	if fees[1].Basis != core.FeeBasisPostSplit {
		t.Fatalf("row 1 basis = %q", fees[1].Basis)
	}
}

func TestApplyFeeRowsAssignsMissingIDs(t *testing.T) {
	ctrl := buyerController()
	form := url.Values{}
	form.Set("fees.0.label", "New fee")
	form.Set("fees.0.unit", "usd")

	applyStepValues(ctrl, commissionStep(t, ctrl), form)

	fees := ctrl.Values().Fees("fees")
	if len(fees) != 1 || fees[0].ID == "" {
		t.Fatalf("fees = %+v, want one row with generated id", fees)
	}
}

func TestApplyFeeRowsParseErrorAddressesRow(t *testing.T) {
	ctrl := buyerController()
	form := url.Values{}
	form.Set("fees.0.label", "Bad fee")
	form.Set("fees.0.unit", "usd")
	form.Set("fees.0.amount", "not-a-number")

	errs := applyStepValues(ctrl, commissionStep(t, ctrl), form)
	if errs["fees.0"] == "" {
		t.Fatalf("errs = %v, want fees.0 addressed", errs)
	}
}

func TestApplyFeeRowsNoKeysLeavesValue(t *testing.T) {
	ctrl := buyerController()
	seed := []core.FeeRow{{ID: "keep", Label: "Kept", Unit: core.FeeUnitUSD, Basis: core.FeeBasisPreSplit}}
	ctrl.Set("fees", seed)

	applyStepValues(ctrl, commissionStep(t, ctrl), url.Values{})

	fees := ctrl.Values().Fees("fees")
	if len(fees) != 1 || fees[0].ID != "keep" {
		t.Fatalf("fees = %+v, want untouched", fees)
	}
}
