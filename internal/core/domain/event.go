package domain

import (
	"time"

	"wallet-ledger/pkg/money"

	"github.com/google/uuid"
)

const (
	EventWalletCredited = "wallet.credited"
	EventWalletDebited  = "wallet.debited"
)

// LedgerEvent is published after a transaction commits.
type LedgerEvent struct {
	WalletID      uuid.UUID       `json:"walletId"`
	OwnerKey      string          `json:"ownerKey"`
	TransactionID uuid.UUID       `json:"transactionId"`
	Type          TransactionType `json:"type"`
	Amount        money.Amount    `json:"amount"`
	BalanceAfter  money.Amount    `json:"balanceAfter"`
	Reference     string          `json:"reference,omitempty"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// NewLedgerEvent builds the event for a committed transaction.
func NewLedgerEvent(w *Wallet, t *Transaction) LedgerEvent {
	return LedgerEvent{
		WalletID:      w.ID,
		OwnerKey:      w.OwnerKey,
		TransactionID: t.ID,
		Type:          t.Type,
		Amount:        t.Amount,
		BalanceAfter:  t.BalanceAfter,
		Reference:     t.Reference,
		OccurredAt:    t.CreatedAt,
	}
}

// RoutingKey is the topic the event is published under.
func (e LedgerEvent) RoutingKey() string {
	if e.Type == TransactionTypeDebit {
		return EventWalletDebited
	}
	return EventWalletCredited
}
