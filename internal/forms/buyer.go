package forms

import "dealtrack/internal/core"

// BuyerVariant defines the four-step buyer-representation wizard: deal type,
// client details, commission terms, and status.
func BuyerVariant() VariantSpec {
	schema := NewSchema().
		Field("type", FieldRule{Required: true, Checks: []CheckFunc{OneOf(optionValues(transactionTypeOptions())...)}}).
		Field("buyer_full_name", FieldRule{Required: true, Message: "Buyer name is required"}).
		Field("budget_cents", FieldRule{Checks: []CheckFunc{NonNegativeCents()}}).
		Field("agreement_start_date", FieldRule{Checks: []CheckFunc{ISODate()}}).
		Field("agreement_end_date", FieldRule{Checks: []CheckFunc{ISODate()}}).
		Field("buyer_agent_pct", FieldRule{Checks: []CheckFunc{PercentRange()}}).
		Field("broker_share_pct", FieldRule{Checks: []CheckFunc{PercentRange()}}).
		Field("fees", FieldRule{Checks: []CheckFunc{FeeRows()}}).
		Field("lead_source", FieldRule{Checks: []CheckFunc{OneOf(optionValues(leadSourceOptions())...)}}).
		Field("lead_source_other", FieldRule{Required: true, Message: "Please describe the lead source"}).
		Field("status", FieldRule{Required: true, Checks: []CheckFunc{OneOf(optionValues(statusOptions())...)}})

	steps := []StepSpec{
		{
			ID:    "type",
			Title: "Transaction type",
			Fields: []FieldSpec{
				{Name: "type", Kind: KindRadioCards, Label: "What kind of deal is this?", Options: transactionTypeOptions()},
			},
			FieldNames: []string{"type"},
		},
		{
			ID:          "buyer",
			Title:       "Buyer details",
			Description: "Who are you representing and on what terms?",
			Fields: []FieldSpec{
				{Name: "buyer_full_name", Kind: KindText, Label: "Buyer full name", Placeholder: "Jane Doe", Width: WidthFull},
				{Name: "budget_cents", Kind: KindCurrency, Label: "Budget", Placeholder: "$0.00", Width: WidthHalf},
				{Name: "agreement_start_date", Kind: KindDate, Label: "Agreement start", Width: WidthHalf},
				{Name: "agreement_end_date", Kind: KindDate, Label: "Agreement end", Width: WidthHalf},
			},
			FieldNames: []string{"buyer_full_name", "budget_cents", "agreement_start_date", "agreement_end_date"},
		},
		{
			ID:    "commission",
			Title: "Commission",
			Fields: []FieldSpec{
				{Kind: KindSectionTitle, Title: "Commission split"},
				{Name: "buyer_agent_pct", Kind: KindPercent, Label: "Buyer agent %", Width: WidthHalf},
				{Name: "broker_share_pct", Kind: KindPercent, Label: "Broker split %", Width: WidthHalf},
				{Kind: KindSectionTitle, Title: "Fees"},
				{Name: "fees", Kind: KindFees, Label: "Transaction fees", Width: WidthFull},
				{Kind: KindSectionTitle, Title: "Lead"},
				{Name: "lead_source", Kind: KindSelect, Label: "Lead source", Options: leadSourceOptions(), Width: WidthHalf},
				{Name: "lead_source_other", Kind: KindText, Label: "Other lead source", Placeholder: "Where did this lead come from?",
					Width: WidthHalf, VisibleWhen: &Condition{Field: "lead_source", Equals: "other"}},
			},
			FieldNames: []string{"buyer_agent_pct", "broker_share_pct", "fees", "lead_source", "lead_source_other"},
		},
		{
			ID:    "status",
			Title: "Status",
			Fields: []FieldSpec{
				{Name: "status", Kind: KindSegmented, Label: "Current status", Options: statusOptions()},
			},
			FieldNames: []string{"status"},
		},
	}

	return VariantSpec{
		Type:   core.TypeBuyer,
		Schema: schema,
		Defaults: Values{
			"type":   string(core.TypeBuyer),
			"status": string(core.StatusActive),
			"fees":   []core.FeeRow{},
		},
		Steps:     steps,
		ToPayload: buyerPayload,
	}
}

func buyerPayload(v Values) core.Payload {
	p := core.Payload{"currency": "USD"}
	copyString(v, p, "type", "type")
	copyString(v, p, "status", "status")
	copyString(v, p, "buyer_full_name", "client_name")
	copyCents(v, p, "budget_cents", "buyer_budget")
	copyString(v, p, "agreement_start_date", "agreement_start_date")
	copyString(v, p, "agreement_end_date", "agreement_end_date")
	copyPercent(v, p, "buyer_agent_pct", "buyer_agent_percentage")
	copyPercent(v, p, "broker_share_pct", "broker_split_percentage")
	resolveLeadSource(v, p)
	p["fees"] = v.Fees("fees")
	return p
}
