package core

import (
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func TestBid_FirstBidOpensRound(t *testing.T) {
	h := newTestHouse(t, 0)

	check.Equal(t, StateIdle, h.engine.State())
	assert.NoError(t, h.engine.Bid("alice", amt(t, "1.0")))

	check.Equal(t, StateActive, h.engine.State())
	check.Equal(t, "alice", h.engine.HighBidder())
	check.True(t, h.engine.HighBid().Equal(amt(t, "1.0")))
	check.True(t, h.engine.Deadline().Equal(h.clock.Now().Add(time.Hour)))

	// Escrow moved out of the bidder's account.
	check.True(t, h.ledger.Balance("alice").Equal(amt(t, "99")))
	check.True(t, h.ledger.Balance(custodyAccount).Equal(amt(t, "1.0")))

	started := h.events.EventsOfType(EventAuctionStarted)
	assert.Equal(t, 1, len(started))
	check.Equal(t, uint64(1), started[0].TokenID)
	check.True(t, started[0].Deadline.Equal(h.engine.Deadline()))
}

func TestBid_OutbidRefundsPreviousBidder(t *testing.T) {
	h := newTestHouse(t, 0)

	// Scenario: A bids 1.0; B bids 1.1 before expiry; A's 1.0 comes back.
	assert.NoError(t, h.engine.Bid("alice", amt(t, "1.0")))
	assert.NoError(t, h.engine.Bid("bob", amt(t, "1.1")))

	check.Equal(t, "bob", h.engine.HighBidder())
	check.True(t, h.engine.HighBid().Equal(amt(t, "1.1")))
	check.True(t, h.ledger.Balance("alice").Equal(amt(t, "100")))
	check.True(t, h.ledger.Balance("bob").Equal(amt(t, "98.9")))
	// Only the live high bid remains escrowed.
	check.True(t, h.ledger.Balance(custodyAccount).Equal(amt(t, "1.1")))
}

func TestBid_MinimumRaise(t *testing.T) {
	h := newTestHouse(t, 0)
	assert.NoError(t, h.engine.Bid("alice", amt(t, "1.0")))

	// Matching the high bid exactly is always rejected.
	err := h.engine.Bid("bob", amt(t, "1.0"))
	check.True(t, errors.Is(err, ErrBidTooLow))

	// Raising by less than the increment is rejected.
	err = h.engine.Bid("bob", amt(t, "1.05"))
	check.True(t, errors.Is(err, ErrBidTooLow))

	// Exactly highBid + increment is always accepted.
	check.NoError(t, h.engine.Bid("bob", amt(t, "1.1")))
}

func TestBid_FirstBidOfZeroRejected(t *testing.T) {
	h := newTestHouse(t, 0)

	err := h.engine.Bid("alice", decimal.Zero)
	check.True(t, errors.Is(err, ErrBidTooLow))
	check.Equal(t, StateIdle, h.engine.State())
}

func TestBid_LeaderCannotRebid(t *testing.T) {
	h := newTestHouse(t, 0)
	assert.NoError(t, h.engine.Bid("alice", amt(t, "1.0")))

	err := h.engine.Bid("alice", amt(t, "2.0"))
	check.True(t, errors.Is(err, ErrAlreadyHighestBidder))
	check.True(t, h.engine.HighBid().Equal(amt(t, "1.0")))
}

func TestBid_RejectedAfterExpiry(t *testing.T) {
	h := newTestHouse(t, 0)
	assert.NoError(t, h.engine.Bid("alice", amt(t, "1.0")))

	h.clock.Advance(time.Hour)
	check.Equal(t, StateExpired, h.engine.State())

	err := h.engine.Bid("bob", amt(t, "5.0"))
	check.True(t, errors.Is(err, ErrAuctionOver))

	// Round state untouched by the rejected bid.
	check.Equal(t, "alice", h.engine.HighBidder())
	check.True(t, h.engine.HighBid().Equal(amt(t, "1.0")))
	check.True(t, h.ledger.Balance("bob").Equal(amt(t, "100")))
}

func TestBid_InsufficientFunds(t *testing.T) {
	h := newTestHouse(t, 0)

	err := h.engine.Bid("alice", amt(t, "500"))
	check.True(t, errors.Is(err, ErrInsufficientFunds))
	check.Equal(t, StateIdle, h.engine.State())
}

func TestFinalize_MintsAndRoutesProceeds(t *testing.T) {
	h := newTestHouse(t, 0)
	assert.NoError(t, h.engine.Bid("alice", amt(t, "1.0")))
	assert.NoError(t, h.engine.Bid("bob", amt(t, "1.1")))
	h.clock.Advance(time.Hour)

	settlement, err := h.engine.Finalize()
	assert.NoError(t, err)
	assert.NotNil(t, settlement)

	check.True(t, settlement.Minted)
	check.Equal(t, uint64(1), settlement.TokenID)
	check.Equal(t, "bob", settlement.Winner)
	check.True(t, settlement.Amount.Equal(amt(t, "1.1")))

	check.Equal(t, "bob", h.minter.created[1])
	check.True(t, h.ledger.Balance(proceedsAccount).Equal(amt(t, "1.1")))
	check.True(t, h.ledger.Balance(custodyAccount).IsZero())
	check.Equal(t, StateIdle, h.engine.State())

	settled := h.events.EventsOfType(EventAuctionSettled)
	assert.Equal(t, 1, len(settled))
	check.Equal(t, uint64(1), settled[0].TokenID)
	check.Equal(t, "bob", settled[0].Bidder)
}

func TestFinalize_BeforeExpiryRejected(t *testing.T) {
	h := newTestHouse(t, 0)
	assert.NoError(t, h.engine.Bid("alice", amt(t, "1.0")))

	_, err := h.engine.Finalize()
	check.True(t, errors.Is(err, ErrAuctionNotOver))
	check.Equal(t, StateActive, h.engine.State())
}

func TestFinalize_Idempotent(t *testing.T) {
	h := newTestHouse(t, 0)
	assert.NoError(t, h.engine.Bid("alice", amt(t, "1.0")))
	h.clock.Advance(time.Hour)

	_, err := h.engine.Finalize()
	assert.NoError(t, err)

	// A second finalize without an intervening bid fails and mutates nothing.
	issuedBefore := h.supply.Issued()
	proceedsBefore := h.ledger.Balance(proceedsAccount)

	_, err = h.engine.Finalize()
	check.True(t, errors.Is(err, ErrAuctionAlreadyFinalized))
	check.Equal(t, issuedBefore, h.supply.Issued())
	check.True(t, h.ledger.Balance(proceedsAccount).Equal(proceedsBefore))
}

func TestFinalize_MintFailureLeavesRoundRetryable(t *testing.T) {
	h := newTestHouse(t, 0)
	assert.NoError(t, h.engine.Bid("alice", amt(t, "2.0")))
	h.clock.Advance(time.Hour)

	h.minter.failure = errors.New("ownership component offline")
	_, err := h.engine.Finalize()
	check.Error(t, err)

	// Nothing moved: the bid is still in custody, no proceeds routed, no
	// token issued, and the round is still expired and awaiting settlement.
	check.Equal(t, StateExpired, h.engine.State())
	check.Equal(t, "alice", h.engine.HighBidder())
	check.True(t, h.engine.HighBid().Equal(amt(t, "2.0")))
	check.True(t, h.ledger.Balance(custodyAccount).Equal(amt(t, "2.0")))
	check.True(t, h.ledger.Balance(proceedsAccount).IsZero())
	check.True(t, h.ledger.Balance("alice").Equal(amt(t, "98")))
	check.Equal(t, uint64(0), h.supply.Issued())

	// Once the component recovers, the same round settles in full.
	h.minter.failure = nil
	settlement, err := h.engine.Finalize()
	assert.NoError(t, err)
	check.True(t, settlement.Minted)
	check.Equal(t, uint64(1), settlement.TokenID)
	check.Equal(t, "alice", h.minter.created[1])
	check.True(t, h.ledger.Balance(proceedsAccount).Equal(amt(t, "2.0")))
	check.True(t, h.ledger.Balance(custodyAccount).IsZero())
}

func TestEngineAccessors_SafeDuringBids(t *testing.T) {
	h := newTestHouse(t, 0)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_ = h.engine.State()
			_ = h.engine.HighBid()
			_ = h.engine.HighBidder()
			_ = h.engine.Deadline()
		}
	}()

	bidders := []string{"alice", "bob", "carol"}
	for i := 0; i < 9; i++ {
		amount := amt(t, "0.1").Mul(decimal.NewFromInt(int64(i + 1)))
		assert.NoError(t, h.engine.Bid(bidders[i%3], amount))
	}
	<-done

	check.Equal(t, "carol", h.engine.HighBidder())
	check.True(t, h.engine.HighBid().Equal(amt(t, "0.9")))
}

func TestFinalize_IssuanceClosedRefundsWinner(t *testing.T) {
	h := newTestHouse(t, 0)
	assert.NoError(t, h.engine.Bid("alice", amt(t, "2.0")))
	h.clock.Advance(time.Hour)

	h.minter.open = false

	settlement, err := h.engine.Finalize()
	assert.NoError(t, err)
	check.False(t, settlement.Minted)
	check.Equal(t, "alice", settlement.Winner)

	// The round is abandoned with funds returned, not value destroyed.
	check.True(t, h.ledger.Balance("alice").Equal(amt(t, "100")))
	check.True(t, h.ledger.Balance(proceedsAccount).IsZero())
	check.Equal(t, uint64(0), h.supply.Issued())
	check.Equal(t, StateIdle, h.engine.State())
}

func TestCappedSeries_ThreeTokensThenExhausted(t *testing.T) {
	h := newTestHouse(t, 3)
	bidders := []string{"alice", "bob", "carol"}

	for i, bidder := range bidders {
		assert.NoError(t, h.engine.Bid(bidder, amt(t, "1.0")))
		h.clock.Advance(2 * time.Hour)

		settlement, err := h.engine.Finalize()
		assert.NoError(t, err)
		check.True(t, settlement.Minted)
		check.Equal(t, uint64(i+1), settlement.TokenID)
		check.Equal(t, bidder, settlement.Winner)
		check.Equal(t, bidder, h.minter.created[uint64(i+1)])
	}

	check.Equal(t, uint64(3), h.supply.Issued())
	check.True(t, h.supply.Exhausted())

	// No fourth round can open.
	err := h.engine.Bid("alice", amt(t, "1.0"))
	check.True(t, errors.Is(err, ErrSupplyExhausted))
	check.Equal(t, StateIdle, h.engine.State())
	check.True(t, h.ledger.Balance(custodyAccount).IsZero())
}

func TestContestedTokenIDMatchesMintedID(t *testing.T) {
	h := newTestHouse(t, 0)

	for round := 0; round < 3; round++ {
		assert.NoError(t, h.engine.Bid("alice", amt(t, "1.0")))
		h.clock.Advance(2 * time.Hour)
		settlement, err := h.engine.Finalize()
		assert.NoError(t, err)

		started := h.events.EventsOfType(EventAuctionStarted)
		assert.Equal(t, round+1, len(started))
		check.Equal(t, settlement.TokenID, started[round].TokenID)
	}
}

func TestHighBidStrictlyIncreasingByIncrement(t *testing.T) {
	h := newTestHouse(t, 0)

	bids := []struct {
		bidder string
		amount string
	}{
		{"alice", "0.1"},
		{"bob", "0.2"},
		{"alice", "0.5"},
		{"carol", "0.6"},
		{"bob", "2.0"},
	}

	previous := decimal.Zero
	for _, b := range bids {
		assert.NoError(t, h.engine.Bid(b.bidder, amt(t, b.amount)))
		high := h.engine.HighBid()
		check.True(t, high.GreaterThanOrEqual(previous.Add(amt(t, "0.1"))))
		previous = high
	}
	// Exactly one live escrow obligation: the current high bid.
	check.True(t, h.ledger.Balance(custodyAccount).Equal(previous))
}

func TestBid_ReentrantCallFromRefundHookRejected(t *testing.T) {
	h := newTestHouse(t, 0)

	// alice's receive hook tries to re-enter the engine while her refund is
	// being pushed.
	var reentrantErr error
	h.ledger.SetHook("alice", func(_ *ReceiveBudget, _ decimal.Decimal) error {
		reentrantErr = h.engine.Bid("alice", amt(t, "50"))
		return nil
	})

	assert.NoError(t, h.engine.Bid("alice", amt(t, "1.0")))
	assert.NoError(t, h.engine.Bid("bob", amt(t, "1.1")))

	assert.NotNil(t, reentrantErr)
	check.True(t, errors.Is(reentrantErr, ErrReentrantCall))

	// The outer bid and refund settled normally.
	check.Equal(t, "bob", h.engine.HighBidder())
	check.True(t, h.ledger.Balance("alice").Equal(amt(t, "100")))
}

func TestFinalize_ReentrantCallFromRefundHookRejected(t *testing.T) {
	h := newTestHouse(t, 0)
	assert.NoError(t, h.engine.Bid("alice", amt(t, "1.0")))
	h.clock.Advance(time.Hour)
	h.minter.open = false

	var reentrantErr error
	h.ledger.SetHook("alice", func(_ *ReceiveBudget, _ decimal.Decimal) error {
		_, reentrantErr = h.engine.Finalize()
		return nil
	})

	settlement, err := h.engine.Finalize()
	assert.NoError(t, err)
	check.False(t, settlement.Minted)

	assert.NotNil(t, reentrantErr)
	check.True(t, errors.Is(reentrantErr, ErrReentrantCall))
	check.True(t, h.ledger.Balance("alice").Equal(amt(t, "100")))
}

func TestRefund_RejectingRecipientGetsWrappedBalance(t *testing.T) {
	h := newTestHouse(t, 0)

	// alice's receive hook always reverts; her refund must arrive as wrapped
	// balance of exactly the refund amount.
	h.ledger.SetHook("alice", func(_ *ReceiveBudget, _ decimal.Decimal) error {
		return errors.New("receiver reverts")
	})

	assert.NoError(t, h.engine.Bid("alice", amt(t, "1.0")))
	assert.NoError(t, h.engine.Bid("bob", amt(t, "1.1")))

	check.True(t, h.ledger.Balance("alice").Equal(amt(t, "99")))
	check.True(t, h.vault.BalanceOf("alice").Equal(amt(t, "1.0")))
	check.Equal(t, "bob", h.engine.HighBidder())
}

func TestBid_RefundFailureAbortsBid(t *testing.T) {
	h := newTestHouse(t, 0)

	// Replace the wrapped asset with one that always fails, so both refund
	// tiers fail for a rejecting recipient.
	h.engine.transfer.wrapped = failingWrappedAsset{}
	h.ledger.SetHook("alice", func(_ *ReceiveBudget, _ decimal.Decimal) error {
		return errors.New("receiver reverts")
	})

	assert.NoError(t, h.engine.Bid("alice", amt(t, "1.0")))

	err := h.engine.Bid("bob", amt(t, "1.1"))
	check.True(t, errors.Is(err, ErrTransferFailure))

	// Stuck funds abort the whole bid: alice keeps the lead, bob his money.
	check.Equal(t, "alice", h.engine.HighBidder())
	check.True(t, h.engine.HighBid().Equal(amt(t, "1.0")))
	check.True(t, h.ledger.Balance("bob").Equal(amt(t, "100")))
	check.True(t, h.ledger.Balance(custodyAccount).Equal(amt(t, "1.0")))
}

func TestNewRoundOpensAfterSettlement(t *testing.T) {
	h := newTestHouse(t, 0)
	assert.NoError(t, h.engine.Bid("alice", amt(t, "1.0")))
	h.clock.Advance(time.Hour)
	_, err := h.engine.Finalize()
	assert.NoError(t, err)

	// The next bid starts a fresh round with a freshly computed deadline.
	assert.NoError(t, h.engine.Bid("bob", amt(t, "0.1")))
	check.Equal(t, StateActive, h.engine.State())
	check.True(t, h.engine.Deadline().Equal(h.clock.Now().Add(time.Hour)))
	check.Equal(t, uint64(2), h.engine.NextTokenID())
}
