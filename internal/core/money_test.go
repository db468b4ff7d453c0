package core

import "testing"

func TestParseCurrencyToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"$ 1,000.00", 100000, true},
		{"350,000.00", 35000000, true},
		{"1.000,50", 100050, true}, // European grouping
		{"1,000", 100000, true},    // grouping, not decimal
		{"0.01", 1, true},
		{"0", 0, true}, // explicit zero is a value, not unset
		{" 2.50 ", 250, true},
		{"12.3", 1230, true},
		{"", 0, false},
		{"$", 0, false},
		{"abc", 0, false},
		{"..,,", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseCurrencyToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q: expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q: expected error, got %d", tc.in, got)
		}
	}
}

func TestCurrencyRoundTrip(t *testing.T) {
	// FormatCentsToCurrency output must re-parse to the identical cents value.
	inputs := []string{"0.99", "1", "12.34", "999.99", "1000", "350,000.00", "1234567.89"}
	for _, in := range inputs {
		cents, err := ParseCurrencyToCents(in)
		if err != nil {
			t.Fatalf("%q: unexpected parse error: %v", in, err)
		}
		formatted := FormatCentsToCurrency(cents)
		back, err := ParseCurrencyToCents(formatted)
		if err != nil {
			t.Fatalf("%q -> %q: reparse error: %v", in, formatted, err)
		}
		if back != cents {
			t.Fatalf("%q -> %q: got %d cents, want %d", in, formatted, back, cents)
		}
	}
}

func TestFormatCentsToCurrency(t *testing.T) {
	cases := []struct {
		in  int64
		out string
	}{
		{0, "$0.00"},
		{1, "$0.01"},
		{123, "$1.23"},
		{100000, "$1,000.00"},
		{35000000, "$350,000.00"},
		{-2500, "-$25.00"},
	}
	for _, tc := range cases {
		if got := FormatCentsToCurrency(tc.in); got != tc.out {
			t.Fatalf("%d: expected %q, got %q", tc.in, tc.out, got)
		}
	}
}

func TestParsePercent(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1.5", 1.5, true},
		{"1.5%", 1.5, true},
		{"100", 100, true},
		{"0", 0, true},
		{"", 0, false},
		{"%", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, err := ParsePercent(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q: expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q: expected error", tc.in)
		}
	}
}
