package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"dealtrack/internal/core"
)

// sanitizePolicy strips all markup from free-text inputs. Client names,
// addresses and fee labels are plain text everywhere they surface, so the
// strict policy applies to every text field uniformly.
var sanitizePolicy = bluemonday.StrictPolicy()

// sanitizeText normalizes one free-text form value: markup stripped,
// control characters removed, surrounding whitespace trimmed.
func sanitizeText(s string) string {
	s = sanitizePolicy.Sanitize(s)
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// formatDollars renders cents for display ("$1,234.56"); nil renders blank.
func formatDollars(cents *int64) string {
	if cents == nil {
		return ""
	}
	return core.FormatCentsToCurrency(*cents)
}

// parseIndex parses a non-negative row index from a form value.
func parseIndex(s string) (int, bool) {
	idx, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

// isHTMX reports whether the request came from an htmx swap rather than a
// full-page navigation.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
