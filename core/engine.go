package core

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ProceedsSink receives the winning bid of a settled round along with routing
// metadata. Implementations consume the value synchronously or fail
// atomically.
type ProceedsSink interface {
	Route(amount decimal.Decimal, destination string) error
}

// AccountSink routes proceeds out of house custody into a ledger account.
type AccountSink struct {
	native  *NativeLedger
	custody string
}

func NewAccountSink(native *NativeLedger, custody string) *AccountSink {
	return &AccountSink{native: native, custody: custody}
}

func (s *AccountSink) Route(amount decimal.Decimal, destination string) error {
	if amount.IsZero() {
		return nil
	}
	if err := s.native.Transfer(s.custody, destination, amount); err != nil {
		return fmt.Errorf("route proceeds to %s: %w", destination, err)
	}
	return nil
}

// Config carries the tunable parameters of the auction engine.
type Config struct {
	// Custody is the ledger account holding escrowed bids.
	Custody string

	// ProceedsAccount is the routing destination for winning bids.
	ProceedsAccount string

	// MinIncrement is the minimum raise over the current high bid.
	// Also the minimum first bid, since the high bid starts at zero.
	MinIncrement decimal.Decimal

	// RoundDuration is the bidding window opened by the first bid of a round.
	RoundDuration time.Duration

	// ReceiveBudget is the spend allowance for recipient receive hooks.
	ReceiveBudget uint64
}

func (c Config) withDefaults() Config {
	if c.Custody == "" {
		c.Custody = "house:escrow"
	}
	if c.ProceedsAccount == "" {
		c.ProceedsAccount = "house:proceeds"
	}
	if c.MinIncrement.IsZero() {
		c.MinIncrement = decimal.NewFromFloat(0.01)
	}
	if c.RoundDuration == 0 {
		c.RoundDuration = 24 * time.Hour
	}
	if c.ReceiveBudget == 0 {
		c.ReceiveBudget = DefaultReceiveBudget
	}
	return c
}

// reentryGuard rejects nested invocations of the engine's mutating
// operations. Callers serialize those operations externally (the daemon holds
// one lock per request), so a second call arriving while one is running can
// only be a recipient receive hook calling back in; it fails immediately
// rather than blocking.
type reentryGuard struct {
	mu      sync.Mutex
	entered bool
}

func (g *reentryGuard) enter() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.entered {
		return ErrReentrantCall
	}
	g.entered = true
	return nil
}

func (g *reentryGuard) exit() {
	g.mu.Lock()
	g.entered = false
	g.mu.Unlock()
}

// Settlement is the outcome of a successful Finalize.
type Settlement struct {
	TokenID   uint64
	Winner    string
	Amount    decimal.Decimal
	Minted    bool // false when the round was abandoned and the bid refunded
	SettledAt time.Time
}

// Engine composes the auction round with the issuance gate: the high bid of
// an expired round buys the next token id of the series, and settling a round
// re-opens bidding for the following one.
//
// Accessors are safe to call from any goroutine, including from receive
// hooks. Mutating operations (Bid, Finalize, Restore) must be serialized by
// the caller; a nested call from a receive hook fails with ErrReentrantCall.
type Engine struct {
	mu       sync.RWMutex // guards round fields; never held across external calls
	guard    reentryGuard
	cfg      Config
	round    AuctionRound
	native   *NativeLedger
	transfer *ValueTransfer
	gate     *IssuanceGate
	minter   Mintable
	sink     ProceedsSink
	events   *EventLog
	clock    func() time.Time
}

func NewEngine(cfg Config, native *NativeLedger, wrapped WrappedAsset, supply *SupplyLedger, minter Mintable, sink ProceedsSink, events *EventLog) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:      cfg,
		native:   native,
		transfer: NewValueTransfer(native, wrapped, cfg.Custody, cfg.ReceiveBudget),
		gate:     NewIssuanceGate(supply, minter),
		minter:   minter,
		sink:     sink,
		events:   events,
		clock:    time.Now,
	}
}

// WithClock overrides the engine clock for deterministic tests.
func (e *Engine) WithClock(clock func() time.Time) {
	if clock == nil {
		return
	}
	e.clock = clock
}

// State derives the round's lifecycle phase at the current instant.
func (e *Engine) State() RoundState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.round.State(e.clock())
}

// Deadline returns the open round's deadline, zero when idle.
func (e *Engine) Deadline() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.round.deadline
}

// HighBid returns the current leading amount, zero when idle.
func (e *Engine) HighBid() decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.round.highBid
}

// HighBidder returns the current leader, NoBidder when idle.
func (e *Engine) HighBidder() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.round.highBidder
}

// NextTokenID returns the id the next settlement will mint.
func (e *Engine) NextTokenID() uint64 {
	return e.gate.NextID()
}

// Bid escrows amount from bidder as the new high bid. The first accepted bid
// opens a round with a fresh deadline; an accepted bid refunds the superseded
// bidder in the same call. Valid while idle or active, rejected once the
// round has expired.
func (e *Engine) Bid(bidder string, amount decimal.Decimal) error {
	if err := e.guard.enter(); err != nil {
		return err
	}
	defer e.guard.exit()

	if bidder == NoBidder {
		return fmt.Errorf("bidder account required")
	}

	now := e.clock()
	if !e.round.deadline.IsZero() && !now.Before(e.round.deadline) {
		return fmt.Errorf("%w: deadline %s passed", ErrAuctionOver, e.round.deadline.Format(time.RFC3339))
	}
	if !MeetsMinimumRaise(amount, e.round.highBid, e.cfg.MinIncrement) {
		return fmt.Errorf("%w: offered %s against high bid %s (+%s minimum)",
			ErrBidTooLow, amount.String(), e.round.highBid.String(), e.cfg.MinIncrement.String())
	}
	if bidder == e.round.highBidder {
		return fmt.Errorf("%w: %s", ErrAlreadyHighestBidder, bidder)
	}

	// A round may only open while a token remains to be contested. Checked
	// before any state is committed.
	opening := e.round.deadline.IsZero()
	if opening && e.gate.CapacityExhausted() {
		return fmt.Errorf("%w: no token left to contest", ErrSupplyExhausted)
	}

	if err := e.native.Transfer(bidder, e.cfg.Custody, amount); err != nil {
		return fmt.Errorf("escrow bid: %w", err)
	}

	// Commit the new high bid before any external transfer runs.
	e.mu.Lock()
	previousBid, previousBidder := e.round.highBid, e.round.highBidder
	e.round.highBid, e.round.highBidder = amount, bidder
	if opening {
		e.round.deadline = now.Add(e.cfg.RoundDuration)
	}
	e.mu.Unlock()

	// Settle the superseded bid exactly once, as the last state-touching
	// action. Both transfer tiers failing aborts the whole bid: the previous
	// leader keeps the lead and the new bid is returned.
	if previousBidder != NoBidder && previousBid.IsPositive() {
		if err := e.transfer.Send(previousBidder, previousBid); err != nil {
			e.mu.Lock()
			e.round.highBid, e.round.highBidder = previousBid, previousBidder
			if opening {
				e.round.deadline = time.Time{}
			}
			e.mu.Unlock()
			if rerr := e.native.Transfer(e.cfg.Custody, bidder, amount); rerr != nil {
				log.Printf("ERROR: Failed to return escrow to %s after aborted bid: %v", bidder, rerr)
			}
			return fmt.Errorf("refund superseded bid: %w", err)
		}
	}

	e.events.Append(Event{Type: EventBidAccepted, Bidder: bidder, Amount: amount.String()})
	if opening {
		e.events.Append(Event{
			Type:     EventAuctionStarted,
			Deadline: e.round.deadline,
			TokenID:  e.gate.NextID(),
		})
		log.Printf("INFO: Auction round opened for token %d, deadline %s",
			e.gate.NextID(), e.round.deadline.Format(time.RFC3339))
	}
	return nil
}

// Finalize settles an expired round: the winning bid is routed to proceeds
// and the contested token id is minted to the winner, after which the engine
// is idle and the next Bid opens a fresh round. When issuance is closed or
// capacity is gone, the round is abandoned and the winning bid refunded
// instead. Callable by anyone.
func (e *Engine) Finalize() (*Settlement, error) {
	if err := e.guard.enter(); err != nil {
		return nil, err
	}
	defer e.guard.exit()

	now := e.clock()
	if e.round.deadline.IsZero() {
		return nil, ErrAuctionAlreadyFinalized
	}
	if now.Before(e.round.deadline) {
		return nil, fmt.Errorf("%w: deadline %s", ErrAuctionNotOver, e.round.deadline.Format(time.RFC3339))
	}

	// Capture and reset before any settlement side effect, so a reentrant or
	// repeated finalize sees an idle round.
	e.mu.Lock()
	deadline := e.round.deadline
	winner, winningBid := e.round.highBidder, e.round.highBid
	e.round.reset()
	e.mu.Unlock()

	restore := func() {
		e.mu.Lock()
		e.round.deadline = deadline
		e.round.highBid = winningBid
		e.round.highBidder = winner
		e.mu.Unlock()
	}

	if !e.minter.IsIssuanceOpen() || e.gate.CapacityExhausted() {
		if err := e.transfer.Send(winner, winningBid); err != nil {
			restore()
			return nil, fmt.Errorf("refund abandoned round: %w", err)
		}
		log.Printf("INFO: Round abandoned, %s refunded to %s (issuance closed)", winningBid.String(), winner)
		return &Settlement{Winner: winner, Amount: winningBid, Minted: false, SettledAt: now}, nil
	}

	// Mint before routing: a failing mint restores the round with the bid
	// still in custody, so finalize can be retried once the ownership
	// component recovers.
	id, err := e.gate.IssueNext(winner)
	if err != nil {
		restore()
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if err := e.sink.Route(winningBid, e.cfg.ProceedsAccount); err != nil {
		// The token is already minted; the round cannot reopen against an
		// issued id. The winning bid stays in custody for the operator.
		log.Printf("ERROR: Token %d minted to %s but proceeds stuck in custody: %v", id, winner, err)
		return nil, fmt.Errorf("route proceeds after mint: %w", err)
	}

	e.events.Append(Event{Type: EventAuctionSettled, Bidder: winner, Amount: winningBid.String(), TokenID: id})
	log.Printf("INFO: Round settled: token %d minted to %s for %s", id, winner, winningBid.String())
	return &Settlement{TokenID: id, Winner: winner, Amount: winningBid, Minted: true, SettledAt: now}, nil
}
