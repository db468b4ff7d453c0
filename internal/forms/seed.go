package forms

import "dealtrack/internal/core"

// SeedValues turns a stored transaction back into wizard values: the inverse
// of the variant payload transforms, used to pre-fill the edit flow. Only set
// columns become values, so "never entered" stays unset in the re-opened
// form. A lead source that is not one of the predefined options was folded
// from the free-text "other" answer and unfolds back into it.
func SeedValues(t core.Transaction) Values {
	v := Values{
		"type":   string(t.Type),
		"status": string(t.Status),
	}
	setStr := func(key, val string) {
		if val != "" {
			v[key] = val
		}
	}
	setCents := func(key string, c *int64) {
		if c != nil {
			v[key] = *c
		}
	}
	setPct := func(key string, p *float64) {
		if p != nil {
			v[key] = *p
		}
	}

	if t.LeadSource != "" {
		if knownLeadSource(t.LeadSource) {
			v["lead_source"] = t.LeadSource
		} else {
			v["lead_source"] = "other"
			v["lead_source_other"] = t.LeadSource
		}
	}
	setPct("broker_share_pct", t.BrokerSplitPct)
	if t.Fees != nil {
		v["fees"] = append([]core.FeeRow(nil), t.Fees...)
	}

	switch t.Type {
	case core.TypeSeller:
		setStr("owner_full_name", t.ClientName)
		setStr("property_type", t.PropertyType)
		setStr("address_line", t.PropertyAddress)
		setStr("city", t.City)
		setStr("zip_code", t.Zip)
		setStr("state", t.State)
		setCents("list_price_cents", t.ListPriceCents)
		setStr("list_date", t.ListingDate)
		setStr("expiration_date", t.ExpirationDate)
		setPct("listing_agent_pct", t.ListingAgentPct)
	default:
		setStr("buyer_full_name", t.ClientName)
		setCents("budget_cents", t.BuyerBudgetCents)
		setStr("agreement_start_date", t.AgreementStart)
		setStr("agreement_end_date", t.AgreementEnd)
		setPct("buyer_agent_pct", t.BuyerAgentPct)
	}
	return v
}

func knownLeadSource(s string) bool {
	for _, o := range leadSourceOptions() {
		if o.Value == s {
			return true
		}
	}
	return false
}
