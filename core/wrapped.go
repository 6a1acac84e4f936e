package core

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// WrappedAsset is the fungible fallback representation of native value. When a
// direct push to a recipient fails, the amount is deposited here instead and
// moved with an ordinary balance transfer that runs no recipient code.
type WrappedAsset interface {
	// Deposit converts native value held by account into wrapped balance.
	Deposit(account string, amount decimal.Decimal) error

	// Transfer moves wrapped balance between accounts. Returns false if the
	// sender's wrapped balance does not cover the amount.
	Transfer(from, to string, amount decimal.Decimal) bool

	// BalanceOf returns the wrapped balance of an account.
	BalanceOf(account string) decimal.Decimal
}

// wrappedReserve is the ledger account holding the native value backing all
// outstanding wrapped balances.
const wrappedReserve = "wrapped:reserve"

// WrappedVault is the in-process WrappedAsset implementation. Every wrapped
// unit is backed one-to-one by native value parked in the reserve account.
type WrappedVault struct {
	mu       sync.Mutex
	native   *NativeLedger
	balances map[string]decimal.Decimal
}

func NewWrappedVault(native *NativeLedger) *WrappedVault {
	return &WrappedVault{
		native:   native,
		balances: make(map[string]decimal.Decimal),
	}
}

func (v *WrappedVault) Deposit(account string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("deposit amount %s is not positive", amount.String())
	}
	if err := v.native.Transfer(account, wrappedReserve, amount); err != nil {
		return fmt.Errorf("back wrapped deposit: %w", err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.balances[account] = v.balances[account].Add(amount)
	return nil
}

func (v *WrappedVault) Transfer(from, to string, amount decimal.Decimal) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	balance := v.balances[from]
	if balance.LessThan(amount) {
		return false
	}
	v.balances[from] = balance.Sub(amount)
	v.balances[to] = v.balances[to].Add(amount)
	return true
}

func (v *WrappedVault) BalanceOf(account string) decimal.Decimal {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balances[account]
}
