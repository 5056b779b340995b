package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMoneyFromDecimalExact(t *testing.T) {
	cases := []struct {
		raw   string
		cents Money
		ok    bool
	}{
		{"12.34", 1234, true},
		{"12.340", 1234, true}, // Trailing zero is still exact
		{"5", 500, true},
		{"0.01", 1, true},
		{"12.345", 0, false}, // Sub-cent precision must be rejected, not truncated
		{"0.001", 0, false},
		{"99.999", 0, false},
	}
	for _, tc := range cases {
		d, err := decimal.NewFromString(tc.raw)
		if err != nil {
			t.Fatalf("parse %q failed: %v", tc.raw, err)
		}
		m, ok := MoneyFromDecimalExact(d)
		if ok != tc.ok {
			t.Fatalf("%q: ok=%v want %v", tc.raw, ok, tc.ok)
		}
		if ok && m != tc.cents {
			t.Fatalf("%q: got %d cents want %d", tc.raw, m, tc.cents)
		}
	}
}

func TestMoneyString(t *testing.T) {
	if got := Money(1234).String(); got != "12.34" {
		t.Fatalf("got %q want 12.34", got)
	}
	if got := Money(5).String(); got != "0.05" {
		t.Fatalf("got %q want 0.05", got)
	}
	if got := Money(0).String(); got != "0.00" {
		t.Fatalf("got %q want 0.00", got)
	}
}
