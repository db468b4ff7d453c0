package forms

import "dealtrack/internal/core"

// SellerVariant defines the listing-side wizard: deal type, property details,
// listing terms, and status.
func SellerVariant() VariantSpec {
	schema := NewSchema().
		Field("type", FieldRule{Required: true, Checks: []CheckFunc{OneOf(optionValues(transactionTypeOptions())...)}}).
		Field("owner_full_name", FieldRule{Required: true, Message: "Owner name is required"}).
		Field("property_type", FieldRule{Checks: []CheckFunc{OneOf(optionValues(propertyTypeOptions())...)}}).
		Field("address_line", FieldRule{}).
		Field("city", FieldRule{}).
		Field("zip_code", FieldRule{}).
		Field("state", FieldRule{Checks: []CheckFunc{OneOf(usStates...)}}).
		Field("list_price_cents", FieldRule{Checks: []CheckFunc{NonNegativeCents()}}).
		Field("list_date", FieldRule{Checks: []CheckFunc{ISODate()}}).
		Field("expiration_date", FieldRule{Checks: []CheckFunc{ISODate()}}).
		Field("listing_agent_pct", FieldRule{Checks: []CheckFunc{PercentRange()}}).
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
			ID:          "property",
			Title:       "Property",
			Description: "The owner and the property being listed.",
			Fields: []FieldSpec{
				{Name: "owner_full_name", Kind: KindText, Label: "Owner full name", Placeholder: "Jane Doe", Width: WidthFull},
				{Name: "property_type", Kind: KindSelect, Label: "Property type", Options: propertyTypeOptions(), Width: WidthHalf},
				{Name: "address_line", Kind: KindText, Label: "Street address", Placeholder: "123 Main St", Width: WidthFull},
				{Name: "city", Kind: KindText, Label: "City", Width: WidthThird},
				{Name: "zip_code", Kind: KindText, Label: "ZIP", Width: WidthThird},
				{Name: "state", Kind: KindSelect, Label: "State", Options: stateOptions(), Width: WidthThird},
			},
			FieldNames: []string{"owner_full_name", "property_type", "address_line", "city", "zip_code", "state"},
		},
		{
			ID:    "listing",
			Title: "Listing terms",
			Fields: []FieldSpec{
				{Kind: KindSectionTitle, Title: "Listing"},
				{Name: "list_price_cents", Kind: KindCurrency, Label: "List price", Placeholder: "$0.00", Width: WidthHalf},
				{Name: "list_date", Kind: KindDate, Label: "Listing date", Width: WidthHalf},
				{Name: "expiration_date", Kind: KindDate, Label: "Expiration date", Width: WidthHalf},
				{Kind: KindSectionTitle, Title: "Commission split"},
				{Name: "listing_agent_pct", Kind: KindPercent, Label: "Listing agent %", Width: WidthHalf},
				{Name: "broker_share_pct", Kind: KindPercent, Label: "Broker split %", Width: WidthHalf},
				{Kind: KindSectionTitle, Title: "Fees"},
				{Name: "fees", Kind: KindFees, Label: "Transaction fees", Width: WidthFull},
				{Kind: KindSectionTitle, Title: "Lead"},
				{Name: "lead_source", Kind: KindSelect, Label: "Lead source", Options: leadSourceOptions(), Width: WidthHalf},
				{Name: "lead_source_other", Kind: KindText, Label: "Other lead source", Placeholder: "Where did this lead come from?",
					Width: WidthHalf, VisibleWhen: &Condition{Field: "lead_source", Equals: "other"}},
			},
			FieldNames: []string{
				"list_price_cents", "list_date", "expiration_date",
				"listing_agent_pct", "broker_share_pct", "fees", "lead_source", "lead_source_other",
			},
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
		Type:   core.TypeSeller,
		Schema: schema,
		Defaults: Values{
			"type":          string(core.TypeSeller),
			"status":        string(core.StatusActive),
			"property_type": "single_family_home",
			"fees":          []core.FeeRow{},
		},
		Steps:     steps,
		ToPayload: sellerPayload,
	}
}

func sellerPayload(v Values) core.Payload {
	p := core.Payload{"currency": "USD"}
	copyString(v, p, "type", "type")
	copyString(v, p, "status", "status")
	copyString(v, p, "owner_full_name", "client_name")
	copyString(v, p, "property_type", "property_type")
	copyString(v, p, "address_line", "property_address")
	copyString(v, p, "city", "city")
	copyString(v, p, "zip_code", "zip")
	copyString(v, p, "state", "state")
	copyCents(v, p, "list_price_cents", "list_price")
	copyString(v, p, "list_date", "listing_date")
	copyString(v, p, "expiration_date", "expiration_date")
	copyPercent(v, p, "listing_agent_pct", "listing_agent_percentage")
	copyPercent(v, p, "broker_share_pct", "broker_split_percentage")
	resolveLeadSource(v, p)
	p["fees"] = v.Fees("fees")
	return p
}
