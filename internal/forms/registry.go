package forms

import "dealtrack/internal/core"

// Registry maps a transaction-type discriminant to its variant. Unknown keys
// fall back to the designated default variant — deliberate defensive
// behavior, not an error path.
type Registry struct {
	variants map[core.TransactionType]VariantSpec
	fallback core.TransactionType
}

// NewRegistry builds a registry with the given fallback type. The fallback
// variant must be among those registered.
func NewRegistry(fallback core.TransactionType, variants ...VariantSpec) *Registry {
	r := &Registry{
		variants: make(map[core.TransactionType]VariantSpec, len(variants)),
		fallback: fallback,
	}
	for _, v := range variants {
		r.variants[v.Type] = v
	}
	return r
}

// Lookup returns the variant for t, or the fallback variant when t is not
// registered.
func (r *Registry) Lookup(t core.TransactionType) VariantSpec {
	if v, ok := r.variants[t]; ok {
		return v
	}
	return r.variants[r.fallback]
}

// Types lists registered discriminants in registration-independent order of
// the canonical type constants.
func (r *Registry) Types() []core.TransactionType {
	ordered := []core.TransactionType{core.TypeBuyer, core.TypeSeller, core.TypeTenant, core.TypeLandlord}
	var out []core.TransactionType
	for _, t := range ordered {
		if _, ok := r.variants[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// DefaultRegistry wires the production variants with the buyer fallback.
func DefaultRegistry() *Registry {
	return NewRegistry(core.TypeBuyer, BuyerVariant(), SellerVariant())
}
