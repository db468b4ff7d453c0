package forms

import "dealtrack/internal/core"

// Option sets shared by the buyer and seller variants. Tenant and landlord
// deals are previewed but not yet supported, hence the disabled cards.

func transactionTypeOptions() []Option {
	return []Option{
		{Value: "buyer", Label: "Buyer"},
		{Value: "seller", Label: "Seller"},
		{Value: "tenant", Label: "Tenant", Disabled: true},
		{Value: "landlord", Label: "Landlord", Disabled: true},
	}
}

func statusOptions() []Option {
	return []Option{
		{Value: "active", Label: "Active"},
		{Value: "pending", Label: "Pending"},
		{Value: "closed", Label: "Closed"},
	}
}

func leadSourceOptions() []Option {
	return []Option{
		{Value: "expired_cancelled", Label: "Expired/Cancelled"},
		{Value: "open_house", Label: "Open House"},
		{Value: "soi", Label: "SOI (Sphere of influence)"},
		{Value: "other", Label: "Other"},
	}
}

func propertyTypeOptions() []Option {
	return []Option{
		{Value: "single_family_home", Label: "Single-Family Home"},
		{Value: "condo", Label: "Condo"},
		{Value: "townhouse", Label: "Townhouse"},
		{Value: "multi_family", Label: "Multi-Family"},
		{Value: "vacant_land", Label: "Vacant Land"},
		{Value: "commercial", Label: "Commercial"},
		{Value: "other", Label: "Other"},
	}
}

var usStates = []string{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DC", "DE", "FL", "GA", "HI", "IA", "ID", "IL", "IN", "KS", "KY",
	"LA", "MA", "MD", "ME", "MI", "MN", "MO", "MS", "MT", "NC", "ND", "NE", "NH", "NJ", "NM", "NV", "NY", "OH",
	"OK", "OR", "PA", "RI", "SC", "SD", "TN", "TX", "UT", "VA", "VT", "WA", "WI", "WV",
}

func stateOptions() []Option {
	out := make([]Option, len(usStates))
	for i, s := range usStates {
		out[i] = Option{Value: s, Label: s}
	}
	return out
}

func optionValues(opts []Option) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Value
	}
	return out
}

/* ---------- Payload assembly helpers ---------- */

func copyString(v Values, p core.Payload, from, to string) {
	if s, ok := v.String(from); ok && s != "" {
		p[to] = s
	}
}

func copyCents(v Values, p core.Payload, from, to string) {
	if n, ok := v.Int64(from); ok {
		p[to] = n
	}
}

func copyPercent(v Values, p core.Payload, from, to string) {
	if f, ok := v.Float64(from); ok {
		p[to] = f
	}
}

// resolveLeadSource folds the free-text "other" answer into the lead_source
// key; lead_source_other is wizard scaffolding and never leaks into payloads.
func resolveLeadSource(v Values, p core.Payload) {
	ls, ok := v.String("lead_source")
	if !ok || ls == "" {
		return
	}
	if ls == "other" {
		if other, ok := v.String("lead_source_other"); ok && other != "" {
			p["lead_source"] = other
			return
		}
	}
	p["lead_source"] = ls
}
