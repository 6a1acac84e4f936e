package core

import (
	"fmt"
	"math"
	"sync"
)

// Mintable is the external token-ownership component the issuance gate mints
// through. Implementations create exactly the id they are given or fail with
// no partial state.
type Mintable interface {
	Create(id uint64, owner string) error
	IsIssuanceOpen() bool
}

// SupplyLedger tracks how many tokens of the series have been issued and the
// optional hard cap. Ids are 1-based and gapless: token N is the Nth issued.
type SupplyLedger struct {
	mu     sync.Mutex
	issued uint64
	cap    uint64 // 0 means unlimited
}

// NewSupplyLedger creates a ledger for a series capped at cap tokens
// (0 = unlimited).
func NewSupplyLedger(cap uint64) *SupplyLedger {
	return &SupplyLedger{cap: cap}
}

// Issued returns the number of tokens created so far.
func (s *SupplyLedger) Issued() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issued
}

// Cap returns the hard cap (0 = unlimited).
func (s *SupplyLedger) Cap() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cap
}

// NextID returns the id the next issuance will mint.
func (s *SupplyLedger) NextID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issued + 1
}

// Exhausted returns true iff the cap is set and reached.
func (s *SupplyLedger) Exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exhaustedLocked()
}

func (s *SupplyLedger) exhaustedLocked() bool {
	return s.cap != 0 && s.issued >= s.cap
}

// restore overwrites the counters from a snapshot. Owned by Engine.Restore.
func (s *SupplyLedger) restore(issued, cap uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued = issued
	s.cap = cap
}

// IssuanceGate is the only path through which tokens are created. It holds
// the supply ledger exclusively and pairs the capacity check, the external
// mint, and the counter advance under one lock.
type IssuanceGate struct {
	ledger *SupplyLedger
	minter Mintable
}

func NewIssuanceGate(ledger *SupplyLedger, minter Mintable) *IssuanceGate {
	return &IssuanceGate{ledger: ledger, minter: minter}
}

// CapacityExhausted reports whether no further token can ever be issued.
func (g *IssuanceGate) CapacityExhausted() bool {
	return g.ledger.Exhausted()
}

// NextID returns the id the next issuance will mint.
func (g *IssuanceGate) NextID() uint64 {
	return g.ledger.NextID()
}

// IssueNext mints the next id of the series to recipient and advances the
// ledger. Either both the external mint and the advance happen, or neither:
// a failing mint leaves the counter untouched.
func (g *IssuanceGate) IssueNext(recipient string) (uint64, error) {
	g.ledger.mu.Lock()
	defer g.ledger.mu.Unlock()

	if g.ledger.exhaustedLocked() {
		return 0, fmt.Errorf("%w: %d of %d issued", ErrSupplyExhausted, g.ledger.issued, g.ledger.cap)
	}
	if g.ledger.issued == math.MaxUint64 {
		return 0, fmt.Errorf("token id counter would overflow at %d issued", g.ledger.issued)
	}

	id := g.ledger.issued + 1
	if err := g.minter.Create(id, recipient); err != nil {
		return 0, fmt.Errorf("mint token %d to %s: %w", id, recipient, err)
	}
	g.ledger.issued = id
	return id, nil
}
