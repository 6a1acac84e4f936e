package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundState is the lifecycle phase of the auction round.
type RoundState string

const (
	// StateIdle: no round open; the next accepted bid opens one.
	StateIdle RoundState = "idle"
	// StateActive: a round is open and its deadline has not passed.
	StateActive RoundState = "active"
	// StateExpired: the deadline has passed but the round is not finalized.
	// Still holding the winning bid; a valid and necessary state.
	StateExpired RoundState = "expired"
)

// AuctionRound holds the live round state. It is exclusively owned by the
// Engine: only Bid and Finalize mutate it.
type AuctionRound struct {
	deadline   time.Time // zero iff no round is open
	highBid    decimal.Decimal
	highBidder string
}

// State derives the lifecycle phase at the given instant.
func (r *AuctionRound) State(now time.Time) RoundState {
	switch {
	case r.deadline.IsZero():
		return StateIdle
	case now.Before(r.deadline):
		return StateActive
	default:
		return StateExpired
	}
}

// reset returns the round to idle. Must happen before any settlement side
// effect so a nested or repeated finalize sees an idle round.
func (r *AuctionRound) reset() {
	r.deadline = time.Time{}
	r.highBid = decimal.Zero
	r.highBidder = NoBidder
}
