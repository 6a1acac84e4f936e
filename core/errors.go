package core

import "errors"

// Failure taxonomy for the auction house. Every error is a synchronous failure
// of a single call and leaves all state exactly as it was before the call.
var (
	// ErrAuctionOver rejects bids once the active round's deadline has passed.
	// The round must be finalized before new bids are accepted.
	ErrAuctionOver = errors.New("auction round is over")

	// ErrAuctionNotOver rejects finalize while the round is still active.
	ErrAuctionNotOver = errors.New("auction round has not ended")

	// ErrAuctionAlreadyFinalized rejects finalize when no round is open.
	ErrAuctionAlreadyFinalized = errors.New("no auction round to finalize")

	// ErrBidTooLow rejects bids below the current high bid plus the minimum raise.
	ErrBidTooLow = errors.New("bid below minimum raise")

	// ErrAlreadyHighestBidder rejects a leader re-bidding against themselves.
	ErrAlreadyHighestBidder = errors.New("bidder already holds the high bid")

	// ErrSupplyExhausted rejects issuance (and round opening) once the cap is reached.
	ErrSupplyExhausted = errors.New("token supply exhausted")

	// ErrTransferFailure means both the direct push and the wrapped-asset
	// fallback failed. Fatal to the enclosing operation; never absorbed.
	ErrTransferFailure = errors.New("value transfer failed on both paths")

	// ErrMetadataImmutable rejects metadata changes after the freeze.
	ErrMetadataImmutable = errors.New("token metadata is frozen")

	// ErrUnauthorized rejects privileged operations from the wrong caller.
	ErrUnauthorized = errors.New("caller not authorized")

	// ErrReentrantCall rejects a nested invocation of a guarded operation.
	ErrReentrantCall = errors.New("reentrant call rejected")

	// ErrInsufficientFunds rejects a debit the account cannot cover.
	ErrInsufficientFunds = errors.New("insufficient native balance")
)
