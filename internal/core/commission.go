package core

import "math"

// GrossCommissionCents computes the deal's GCI from its price basis and the
// agent-side percentage: list price for listing deals, buyer budget otherwise.
// Returns nil when either input is unset.
func GrossCommissionCents(t Transaction) *int64 {
	var price *int64
	var pct *float64
	if t.Type == TypeSeller {
		price, pct = t.ListPriceCents, t.ListingAgentPct
	} else {
		price, pct = t.BuyerBudgetCents, t.BuyerAgentPct
	}
	if price == nil || pct == nil {
		return nil
	}
	gci := int64(math.Round(float64(*price) * *pct / 100))
	return &gci
}

// AgentNetCents computes the agent's take-home from the GCI: pre-split fees
// come off the gross, the broker split is applied, then post-split fees come
// off the agent's share. Percent fees apply against the amount current at
// their basis. Returns nil when the GCI is not computable.
func AgentNetCents(t Transaction) *int64 {
	gciPtr := t.GCICents
	if gciPtr == nil {
		gciPtr = GrossCommissionCents(t)
	}
	if gciPtr == nil {
		return nil
	}

	amount := float64(*gciPtr)
	amount -= feeTotal(t.Fees, FeeBasisPreSplit, amount)

	if t.BrokerSplitPct != nil {
		amount = amount * *t.BrokerSplitPct / 100
	}

	amount -= feeTotal(t.Fees, FeeBasisPostSplit, amount)

	net := int64(math.Round(amount))
	return &net
}

func feeTotal(fees []FeeRow, basis FeeBasis, base float64) float64 {
	var total float64
	for _, f := range fees {
		if f.Basis != basis {
			continue
		}
		switch f.Unit {
		case FeeUnitUSD:
			if f.AmountCents != nil {
				total += float64(*f.AmountCents)
			}
		case FeeUnitPercent:
			if f.Percent != nil {
				total += base * *f.Percent / 100
			}
		}
	}
	return total
}
