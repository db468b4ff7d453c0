package forms

import (
	"strings"
	"testing"

	"dealtrack/internal/core"
)

func TestRenderFieldHiddenRendersNothing(t *testing.T) {
	r := NewRenderer()
	f := FieldSpec{
		Name: "lead_source_other", Kind: KindText, Label: "Other lead source",
		VisibleWhen: &Condition{Field: "lead_source", Equals: "other"},
	}

	out, err := r.RenderField(f, Values{"lead_source": "soi", "lead_source_other": "kept"}, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "" {
		t.Fatalf("hidden field rendered %q", out)
	}

	out, err = r.RenderField(f, Values{"lead_source": "other", "lead_source_other": "kept"}, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(string(out), `value="kept"`) {
		t.Fatalf("visible field missing preserved value: %s", out)
	}
}

func TestRenderRadioCardsShowsDisabledOptions(t *testing.T) {
	r := NewRenderer()
	f := FieldSpec{Name: "type", Kind: KindRadioCards, Label: "Type", Options: transactionTypeOptions()}

	out, err := r.RenderField(f, Values{"type": "buyer"}, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(out)
	if !strings.Contains(html, "Landlord") {
		t.Fatal("disabled option not rendered at all")
	}
	if !strings.Contains(html, `value="landlord" disabled`) {
		t.Fatalf("landlord option not disabled: %s", html)
	}
	if !strings.Contains(html, `value="buyer" checked`) {
		t.Fatalf("current value not checked: %s", html)
	}
}

func TestRenderCurrencyFormatsCents(t *testing.T) {
	r := NewRenderer()
	f := FieldSpec{Name: "budget_cents", Kind: KindCurrency, Label: "Budget"}

	out, err := r.RenderField(f, Values{"budget_cents": int64(35000000)}, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(string(out), `value="$350,000.00"`) {
		t.Fatalf("currency display value missing: %s", out)
	}

	// Unset renders an empty input, not $0.00.
	out, err = r.RenderField(f, Values{}, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(string(out), `value=""`) {
		t.Fatalf("unset currency should render empty: %s", out)
	}
}

func TestRenderFieldError(t *testing.T) {
	r := NewRenderer()
	f := FieldSpec{Name: "buyer_full_name", Kind: KindText, Label: "Buyer full name"}

	out, err := r.RenderField(f, Values{}, FieldErrors{"buyer_full_name": "Buyer name is required"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(out)
	if !strings.Contains(html, "has-error") {
		t.Fatalf("error class missing: %s", html)
	}
	if !strings.Contains(html, "Buyer name is required") {
		t.Fatalf("error message missing: %s", html)
	}
}

func TestRenderFeesRepeater(t *testing.T) {
	r := NewRenderer()
	f := FieldSpec{Name: "fees", Kind: KindFees, Label: "Fees"}
	rows := []core.FeeRow{
		{ID: "a", Label: "Transaction fee", Unit: core.FeeUnitUSD, Basis: core.FeeBasisPreSplit, AmountCents: core.Int64Ptr(29500)},
		{ID: "b", Label: "Marketing", Unit: core.FeeUnitPercent, Basis: core.FeeBasisPostSplit, Percent: core.Float64Ptr(1.5)},
	}

	out, err := r.RenderField(f, Values{"fees": rows}, FieldErrors{"fees.1": "Amount is required"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(out)
	for _, want := range []string{
		`data-fee-id="a"`,
		`value="$295.00"`,
		`name="fees.0.label"`,
		`name="fees.1.amount"`,
		`value="1.5"`,
		"Amount is required",
		"fee-add",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("missing %q in:\n%s", want, html)
		}
	}
}

func TestRenderStepSkipsHiddenAndKeepsOrder(t *testing.T) {
	r := NewRenderer()
	v := BuyerVariant()
	step := v.Steps[2] // commission

	out, err := r.RenderStep(step, v.Defaults.Clone(), nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(out)
	if strings.Contains(html, "lead_source_other") {
		t.Fatal("hidden conditional field rendered")
	}
	if !strings.Contains(html, `name="lead_source"`) {
		t.Fatal("lead_source missing")
	}
	if strings.Index(html, "buyer_agent_pct") > strings.Index(html, `name="lead_source"`) {
		t.Fatal("fields out of declaration order")
	}
}

func TestRenderUnknownKindErrors(t *testing.T) {
	r := NewRenderer()
	if _, err := r.RenderField(FieldSpec{Name: "x", Kind: "bogus"}, Values{}, nil); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
