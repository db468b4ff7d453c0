// Package http provides HTTP server and handler implementations.
//
// This file translates posted wizard forms into typed controller values.
// Every field kind has one parse rule; a value that fails to parse becomes
// a field error addressed exactly like a validation error, so the renderer
// surfaces both the same way.

package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"dealtrack/internal/core"
	"dealtrack/internal/forms"
)

// applyStepValues writes the posted form values for one wizard step into the
// controller. A key absent from the form leaves the current value untouched:
// hidden conditional fields and unselected radio groups submit nothing, and
// both must keep whatever the controller already holds. A present-but-blank
// key unsets the field, which is how "typed and deleted again" reads.
func applyStepValues(ctrl *forms.Controller, step forms.StepSpec, form url.Values) forms.FieldErrors {
	errs := make(forms.FieldErrors)
	for _, f := range step.Fields {
		if f.Kind == forms.KindSectionTitle {
			continue
		}
		if f.Kind == forms.KindFees {
			applyFeeRows(ctrl, f.Name, form, errs)
			continue
		}
		if !form.Has(f.Name) {
			continue
		}
		raw := strings.TrimSpace(form.Get(f.Name))
		if raw == "" {
			ctrl.Unset(f.Name)
			continue
		}
		switch f.Kind {
		case forms.KindCurrency:
			cents, err := core.ParseCurrencyToCents(raw)
			if err != nil {
				errs[f.Name] = "Enter a valid amount"
				continue
			}
			ctrl.Set(f.Name, cents)
		case forms.KindPercent:
			pct, err := core.ParsePercent(raw)
			if err != nil {
				errs[f.Name] = "Enter a valid percentage"
				continue
			}
			ctrl.Set(f.Name, pct)
		default:
			ctrl.Set(f.Name, sanitizeText(raw))
		}
	}
	return errs
}

// applyFeeRows rebuilds the fee slice from its dotted form keys
// (fees.0.label, fees.0.unit, ...). Row identity survives the round trip via
// a hidden id input; rows the browser no longer posts are gone.
func applyFeeRows(ctrl *forms.Controller, field string, form url.Values, errs forms.FieldErrors) {
	if !hasFeeKeys(field, form) {
		return
	}

	var rows []core.FeeRow
	for idx := 0; ; idx++ {
		prefix := fmt.Sprintf("%s.%d.", field, idx)
		if !form.Has(prefix+"unit") && !form.Has(prefix+"label") {
			break
		}

		row := core.FeeRow{
			ID:    strings.TrimSpace(form.Get(prefix + "id")),
			Label: sanitizeText(form.Get(prefix + "label")),
			Unit:  core.FeeUnitUSD,
			Basis: core.FeeBasisPreSplit,
		}
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		if u := strings.TrimSpace(form.Get(prefix + "unit")); u == string(core.FeeUnitPercent) {
			row.Unit = core.FeeUnitPercent
		}
		if b := strings.TrimSpace(form.Get(prefix + "basis")); b == string(core.FeeBasisPostSplit) {
			row.Basis = core.FeeBasisPostSplit
		}

		key := fmt.Sprintf("%s.%d", field, idx)
		if raw := strings.TrimSpace(form.Get(prefix + "amount")); raw != "" {
			switch row.Unit {
			case core.FeeUnitPercent:
				pct, err := core.ParsePercent(raw)
				if err != nil {
					errs[key] = "Enter a valid percentage"
				} else {
					row.Percent = &pct
				}
			default:
				cents, err := core.ParseCurrencyToCents(raw)
				if err != nil {
					errs[key] = "Enter a valid amount"
				} else {
					row.AmountCents = &cents
				}
			}
		}

		rows = append(rows, row)
	}
	if rows == nil {
		rows = []core.FeeRow{}
	}
	ctrl.Set(field, rows)
}

func hasFeeKeys(field string, form url.Values) bool {
	prefix := field + "."
	for key := range form {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireDeleteOrPOST is a convenience function for DELETE/POST handlers.
func RequireDeleteOrPOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodDelete, http.MethodPost)
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}
