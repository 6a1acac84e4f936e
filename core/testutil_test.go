package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// amt builds a decimal amount from its string form, failing the test on typos.
func amt(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad amount literal %q: %v", s, err)
	}
	return d
}

// fakeClock is a manually advanced time source for deterministic expiry.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// stubMinter is a Mintable test double recording created tokens.
type stubMinter struct {
	open    bool
	created map[uint64]string
	failure error // returned by Create when set
}

func newStubMinter() *stubMinter {
	return &stubMinter{open: true, created: make(map[uint64]string)}
}

func (m *stubMinter) Create(id uint64, owner string) error {
	if m.failure != nil {
		return m.failure
	}
	m.created[id] = owner
	return nil
}

func (m *stubMinter) IsIssuanceOpen() bool {
	return m.open
}

const (
	custodyAccount  = "house:escrow"
	proceedsAccount = "house:proceeds"
)

// testHouse wires a complete in-memory auction house for engine tests.
type testHouse struct {
	ledger *NativeLedger
	vault  *WrappedVault
	supply *SupplyLedger
	minter *stubMinter
	events *EventLog
	engine *Engine
	clock  *fakeClock
}

// newTestHouse builds a house with the given cap (0 = unlimited), a 0.1
// minimum raise, a one-hour round, and three funded bidders.
func newTestHouse(t *testing.T, cap uint64) *testHouse {
	t.Helper()
	ledger := NewNativeLedger()
	vault := NewWrappedVault(ledger)
	supply := NewSupplyLedger(cap)
	minter := newStubMinter()
	events := NewEventLog()
	clock := newFakeClock()

	cfg := Config{
		Custody:         custodyAccount,
		ProceedsAccount: proceedsAccount,
		MinIncrement:    amt(t, "0.1"),
		RoundDuration:   time.Hour,
	}
	sink := NewAccountSink(ledger, custodyAccount)
	engine := NewEngine(cfg, ledger, vault, supply, minter, sink, events)
	engine.WithClock(clock.Now)
	events.WithClock(clock.Now)

	for _, bidder := range []string{"alice", "bob", "carol"} {
		ledger.Credit(bidder, amt(t, "100"))
	}

	return &testHouse{
		ledger: ledger,
		vault:  vault,
		supply: supply,
		minter: minter,
		events: events,
		engine: engine,
		clock:  clock,
	}
}
