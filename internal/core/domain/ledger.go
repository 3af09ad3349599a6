package domain

import (
	"errors"
	"fmt"

	"wallet-ledger/pkg/money"
)

// ErrLedgerMismatch is wrapped by every VerifyLedger failure.
var ErrLedgerMismatch = errors.New("ledger mismatch")

// VerifyLedger replays the wallet's history oldest first and checks that
// every balanceAfter follows from its predecessor, that no balance goes
// negative, and that the last entry matches the current balance. When the
// full history is loaded the replay starts from the starting balance, so
// balance == startingBalance + credits - debits is checked as well.
func VerifyLedger(w *Wallet) error {
	n := len(w.Transactions)
	if w.Balance.IsNegative() {
		return fmt.Errorf("%w: negative balance %s", ErrLedgerMismatch, w.Balance)
	}
	if int64(n) > w.TransactionCount {
		return fmt.Errorf("%w: %d entries loaded but count is %d", ErrLedgerMismatch, n, w.TransactionCount)
	}
	if n == 0 {
		if w.TransactionCount == 0 && w.Balance.Cmp(w.StartingBalance) != 0 {
			return fmt.Errorf("%w: balance %s without history, starting balance %s",
				ErrLedgerMismatch, w.Balance, w.StartingBalance)
		}
		return nil
	}

	complete := int64(n) == w.TransactionCount
	oldest := w.Transactions[n-1]

	var running money.Amount
	if complete {
		running = w.StartingBalance
	} else {
		running = oldest.BalanceAfter.Sub(oldest.Signed())
	}

	for i := n - 1; i >= 0; i-- {
		t := w.Transactions[i]
		if !t.Amount.IsPositive() {
			return fmt.Errorf("%w: entry %s has non-positive amount %s", ErrLedgerMismatch, t.ID, t.Amount)
		}
		if i < n-1 && t.CreatedAt.Before(w.Transactions[i+1].CreatedAt) {
			return fmt.Errorf("%w: entry %s is out of order", ErrLedgerMismatch, t.ID)
		}
		running = running.Add(t.Signed())
		if t.BalanceAfter.Cmp(running) != 0 {
			return fmt.Errorf("%w: entry %s balanceAfter %s, replay gives %s",
				ErrLedgerMismatch, t.ID, t.BalanceAfter, running)
		}
		if running.IsNegative() {
			return fmt.Errorf("%w: entry %s drives balance negative", ErrLedgerMismatch, t.ID)
		}
	}

	if running.Cmp(w.Balance) != 0 {
		return fmt.Errorf("%w: replay gives %s, balance is %s", ErrLedgerMismatch, running, w.Balance)
	}
	return nil
}
