package core

import (
	"fmt"
	"log"

	"github.com/shopspring/decimal"
)

// DefaultReceiveBudget is the spend allowance granted to receive hooks during
// a direct push. Enough for trivial bookkeeping, too little for anything that
// could re-run auction logic to completion.
const DefaultReceiveBudget uint64 = 10

// ValueTransfer pushes native value out of the house's custody with a strict
// receive allowance, falling back to the wrapped asset when the direct path
// fails. Callers must treat an error as fatal to the enclosing operation:
// both paths failing means the funds could not be moved at all.
type ValueTransfer struct {
	native  *NativeLedger
	wrapped WrappedAsset
	custody string
	budget  uint64
}

func NewValueTransfer(native *NativeLedger, wrapped WrappedAsset, custody string, budget uint64) *ValueTransfer {
	if budget == 0 {
		budget = DefaultReceiveBudget
	}
	return &ValueTransfer{
		native:  native,
		wrapped: wrapped,
		custody: custody,
		budget:  budget,
	}
}

// Send moves amount from house custody to recipient. A zero amount is a
// successful no-op. The direct push runs the recipient's receive hook under
// the configured budget; if it fails for any reason the amount is deposited
// into the wrapped asset and transferred as wrapped balance instead.
// Fails with ErrTransferFailure only when both tiers fail.
func (t *ValueTransfer) Send(recipient string, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	if amount.IsNegative() {
		return fmt.Errorf("send amount %s is negative", amount.String())
	}

	directErr := t.native.PushWithBudget(t.custody, recipient, amount, t.budget)
	if directErr == nil {
		return nil
	}
	log.Printf("INFO: Direct transfer of %s to %s failed, falling back to wrapped asset: %v",
		amount.String(), recipient, directErr)

	if err := t.wrapped.Deposit(t.custody, amount); err != nil {
		return fmt.Errorf("%w: direct: %v; wrapped deposit: %v", ErrTransferFailure, directErr, err)
	}
	if !t.wrapped.Transfer(t.custody, recipient, amount) {
		return fmt.Errorf("%w: direct: %v; wrapped transfer rejected", ErrTransferFailure, directErr)
	}
	return nil
}
