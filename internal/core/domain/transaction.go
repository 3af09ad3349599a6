package domain

import (
	"time"

	"wallet-ledger/pkg/money"

	"github.com/google/uuid"
)

// TransactionType is the direction of a ledger entry.
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

const (
	DefaultRedeemDescription = "Wallet redemption"
	DefaultGrantDescription  = "Wallet grant"

	MaxReferenceLength = 128
)

// Transaction is an immutable ledger entry. CreatedAt is stamped by the
// store when the entry is appended.
type Transaction struct {
	ID           uuid.UUID       `json:"id"`
	WalletID     uuid.UUID       `json:"walletId"`
	Type         TransactionType `json:"type"`
	Amount       money.Amount    `json:"amount"`
	Description  string          `json:"description"`
	Reference    string          `json:"reference,omitempty"`
	Metadata     map[string]any  `json:"metadata,omitempty"`
	BalanceAfter money.Amount    `json:"balanceAfter"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Signed returns the amount with the sign it contributes to the balance.
func (t Transaction) Signed() money.Amount {
	if t.Type == TransactionTypeDebit {
		return money.Zero.Sub(t.Amount)
	}
	return t.Amount
}

// Clone copies the transaction including its metadata map.
func (t Transaction) Clone() Transaction {
	if t.Metadata != nil {
		md := make(map[string]any, len(t.Metadata))
		for k, v := range t.Metadata {
			md[k] = v
		}
		t.Metadata = md
	}
	return t
}

// EntryOptions carry the optional caller-supplied fields of a new entry.
type EntryOptions struct {
	Description string
	Reference   string
	Metadata    map[string]any
}
