// Package core holds the transaction domain model and money handling.
//
// Monetary amounts are stored as integer cents end to end; decimal strings
// typed by users are parsed once at the edge and never touch floats.
package core

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnparsableAmount is returned when an input carries no usable numeric
// value. Callers treat it as "unset", which is distinct from an explicit $0.00.
var ErrUnparsableAmount = errors.New("unparsable amount")

// ParseCurrencyToCents converts a user-typed currency string to integer cents.
//
// All characters except digits and separators are stripped, the decimal
// separator is normalized (both "1,234.56" and "1234,56" parse), and the
// result is rounded to the nearest cent. Signs are stripped with the rest, so
// the result is always non-negative. Empty or digit-free input returns
// ErrUnparsableAmount.
func ParseCurrencyToCents(s string) (int64, error) {
	raw := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			return r
		}
		return -1
	}, s)
	if strings.Trim(raw, ".,") == "" {
		return 0, ErrUnparsableAmount
	}

	normalized := normalizeSeparators(raw)
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return 0, ErrUnparsableAmount
	}
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}

// normalizeSeparators rewrites raw (digits plus '.'/',') into a plain decimal
// string. When both separators appear, the one occurring last is the decimal
// point. A lone separator followed by exactly three digits is grouping
// ("1,000" is one thousand, not one point zero); one or two trailing digits
// make it a decimal point.
func normalizeSeparators(raw string) string {
	lastDot := strings.LastIndexByte(raw, '.')
	lastComma := strings.LastIndexByte(raw, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			return strings.ReplaceAll(raw, ",", "")
		}
		return strings.Replace(strings.ReplaceAll(raw, ".", ""), ",", ".", 1)
	case lastComma >= 0:
		return normalizeSingle(raw, ',', lastComma)
	case lastDot >= 0:
		return normalizeSingle(raw, '.', lastDot)
	default:
		return raw
	}
}

func normalizeSingle(raw string, sep byte, last int) string {
	frac := len(raw) - last - 1
	if strings.Count(raw, string(sep)) > 1 || frac == 3 || frac == 0 {
		// grouping separator (or dangling), drop it
		return strings.ReplaceAll(raw, string(sep), "")
	}
	return raw[:last] + "." + raw[last+1:]
}

// FormatCentsToCurrency renders integer cents as a USD display string with
// thousands grouping, e.g. 35000000 -> "$350,000.00". The output re-parses to
// the same cents value through ParseCurrencyToCents.
func FormatCentsToCurrency(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	rem := cents % 100
	if rem < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(rem, 10))
	return b.String()
}

// ParsePercent converts a typed percentage to a plain number. Everything but
// digits and the decimal point is stripped; range checks belong to the form
// schema, not here.
func ParsePercent(s string) (float64, error) {
	raw := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
	if strings.Trim(raw, ".") == "" {
		return 0, ErrUnparsableAmount
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, ErrUnparsableAmount
	}
	return v, nil
}
