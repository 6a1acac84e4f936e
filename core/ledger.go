package core

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// ReceiveBudget is the spend allowance granted to a recipient's receive hook
// during a direct value push. The allowance is sized to permit trivial
// bookkeeping and to starve anything heavier.
type ReceiveBudget struct {
	remaining uint64
}

// Spend consumes units from the budget. Overrunning the budget fails the
// enclosing direct transfer.
func (b *ReceiveBudget) Spend(units uint64) error {
	if units > b.remaining {
		b.remaining = 0
		return fmt.Errorf("receive budget exhausted (requested %d)", units)
	}
	b.remaining -= units
	return nil
}

// Remaining reports the unspent allowance.
func (b *ReceiveBudget) Remaining() uint64 {
	return b.remaining
}

// ReceiveHook is untrusted recipient code run when value is pushed directly to
// an account. Returning an error rejects the transfer.
type ReceiveHook func(budget *ReceiveBudget, amount decimal.Decimal) error

// NativeLedger tracks native value balances per account. It is the custody
// substrate for bid escrow, refunds, and proceeds routing.
type NativeLedger struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
	hooks    map[string]ReceiveHook
}

func NewNativeLedger() *NativeLedger {
	return &NativeLedger{
		balances: make(map[string]decimal.Decimal),
		hooks:    make(map[string]ReceiveHook),
	}
}

// Credit adds amount to an account without running its receive hook.
func (l *NativeLedger) Credit(account string, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = l.balances[account].Add(amount)
}

// Debit removes amount from an account, failing with ErrInsufficientFunds if
// the balance does not cover it.
func (l *NativeLedger) Debit(account string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debitLocked(account, amount)
}

func (l *NativeLedger) debitLocked(account string, amount decimal.Decimal) error {
	balance := l.balances[account]
	if balance.LessThan(amount) {
		return fmt.Errorf("%w: account %s holds %s, needs %s",
			ErrInsufficientFunds, account, balance.String(), amount.String())
	}
	l.balances[account] = balance.Sub(amount)
	return nil
}

// Balance returns the current balance of an account.
func (l *NativeLedger) Balance(account string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// Transfer moves amount between accounts atomically, without running the
// recipient's receive hook.
func (l *NativeLedger) Transfer(from, to string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.debitLocked(from, amount); err != nil {
		return err
	}
	l.balances[to] = l.balances[to].Add(amount)
	return nil
}

// SetHook registers recipient code to run on direct pushes to account.
// A nil hook clears the registration.
func (l *NativeLedger) SetHook(account string, hook ReceiveHook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if hook == nil {
		delete(l.hooks, account)
		return
	}
	l.hooks[account] = hook
}

// PushWithBudget performs a direct value push from one account to another,
// running the recipient's receive hook (if any) under the given budget.
// A hook error or budget overrun fails the push with no balance change.
// The hook runs outside the ledger lock so that reentrant calls reach the
// engine's guard instead of deadlocking here.
func (l *NativeLedger) PushWithBudget(from, to string, amount decimal.Decimal, budget uint64) error {
	l.mu.Lock()
	balance := l.balances[from]
	hook := l.hooks[to]
	l.mu.Unlock()

	if balance.LessThan(amount) {
		return fmt.Errorf("%w: account %s holds %s, needs %s",
			ErrInsufficientFunds, from, balance.String(), amount.String())
	}
	if hook != nil {
		b := &ReceiveBudget{remaining: budget}
		if err := hook(b, amount); err != nil {
			return fmt.Errorf("receive hook for %s rejected transfer: %w", to, err)
		}
	}
	return l.Transfer(from, to, amount)
}
