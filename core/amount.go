package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const monetaryPrecision int32 = 4 // 4 decimal places for bid values (0.0001 precision)

// NoBidder is the sentinel for "no current leader" / "no account".
const NoBidder = ""

// ZeroAmount is the additive identity for monetary values.
var ZeroAmount = decimal.Zero

// ParseAmount parses a monetary amount from its string form (config, wire).
// The amount must be non-negative.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount %q is negative", s)
	}
	return d, nil
}

// MeetsMinimumRaise returns true if bid is at least highBid + minIncrement.
// Uses decimal arithmetic with monetaryPrecision to avoid representation noise
// in values that arrived through floats or wire formats.
func MeetsMinimumRaise(bid, highBid, minIncrement decimal.Decimal) bool {
	bidRounded := bid.Round(monetaryPrecision)
	required := highBid.Add(minIncrement).Round(monetaryPrecision)

	return bidRounded.GreaterThanOrEqual(required)
}
