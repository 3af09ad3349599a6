package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"wallet-ledger/pkg/money"

	"github.com/google/uuid"
)

var (
	ErrNonPositiveAmount = errors.New("amount must be positive")
	// ErrInvalidMutation is returned by Append when the entry does not
	// reconcile with the wallet it is being appended to.
	ErrInvalidMutation = errors.New("mutation does not reconcile with wallet")
)

// InsufficientBalanceError is returned when a debit exceeds the balance.
type InsufficientBalanceError struct {
	Balance   money.Amount
	Requested money.Amount
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %s, need %s", e.Balance, e.Requested)
}

// Shortfall is how much more the wallet would need to hold.
func (e *InsufficientBalanceError) Shortfall() money.Amount {
	return e.Requested.Sub(e.Balance)
}

// Wallet is one owner's credit balance within a tenant. Transactions holds
// the newest entries first, truncated to the configured history size;
// TransactionCount counts every entry ever appended.
type Wallet struct {
	ID               uuid.UUID     `json:"id"`
	OwnerKey         string        `json:"ownerKey"`
	UserID           string        `json:"userId,omitempty"`
	Email            string        `json:"email,omitempty"`
	TenantID         string        `json:"tenantId"`
	Role             string        `json:"role"`
	Balance          money.Amount  `json:"balance"`
	StartingBalance  money.Amount  `json:"startingBalance"`
	Transactions     []Transaction `json:"transactions"`
	TransactionCount int64         `json:"transactionCount"`
	Version          int64         `json:"version"`
	CreatedAt        time.Time     `json:"createdAt"`
	LastUpdated      time.Time     `json:"lastUpdated"`
}

// NewWallet describes a wallet to provision.
type NewWallet struct {
	OwnerKey        string
	UserID          string
	Email           string
	TenantID        string
	Role            string
	StartingBalance money.Amount
}

// PrepareWallet normalises the classification and derives the owner key.
func PrepareWallet(owner Owner, tenant, role string, starting money.Amount) (NewWallet, error) {
	key, err := OwnerKey(owner, tenant)
	if err != nil {
		return NewWallet{}, err
	}
	return NewWallet{
		OwnerKey:        key,
		UserID:          strings.TrimSpace(owner.UserID),
		Email:           strings.ToLower(strings.TrimSpace(owner.Email)),
		TenantID:        NormalizeTenant(tenant),
		Role:            NormalizeRole(role),
		StartingBalance: starting,
	}, nil
}

// Build materialises the record at creation time.
func (n NewWallet) Build(now time.Time) *Wallet {
	return &Wallet{
		ID:              uuid.New(),
		OwnerKey:        n.OwnerKey,
		UserID:          n.UserID,
		Email:           n.Email,
		TenantID:        n.TenantID,
		Role:            n.Role,
		Balance:         n.StartingBalance,
		StartingBalance: n.StartingBalance,
		Transactions:    []Transaction{},
		CreatedAt:       now,
		LastUpdated:     now,
	}
}

// Clone returns a deep copy.
func (w *Wallet) Clone() *Wallet {
	if w == nil {
		return nil
	}
	cp := *w
	cp.Transactions = make([]Transaction, len(w.Transactions))
	for i, t := range w.Transactions {
		cp.Transactions[i] = t.Clone()
	}
	return &cp
}

// Debit lowers the balance by amount and returns the pending entry. The
// entry is not in the history until a store appends it.
func (w *Wallet) Debit(amount money.Amount, opts EntryOptions) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrNonPositiveAmount
	}
	if w.Balance.LessThan(amount) {
		return nil, &InsufficientBalanceError{Balance: w.Balance, Requested: amount}
	}
	w.Balance = w.Balance.Sub(amount)
	return w.entry(TransactionTypeDebit, amount, opts, DefaultRedeemDescription), nil
}

// Credit raises the balance by amount and returns the pending entry.
func (w *Wallet) Credit(amount money.Amount, opts EntryOptions) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrNonPositiveAmount
	}
	w.Balance = w.Balance.Add(amount)
	return w.entry(TransactionTypeCredit, amount, opts, DefaultGrantDescription), nil
}

func (w *Wallet) entry(typ TransactionType, amount money.Amount, opts EntryOptions, defaultDesc string) *Transaction {
	desc := strings.TrimSpace(opts.Description)
	if desc == "" {
		desc = defaultDesc
	}
	return &Transaction{
		ID:           uuid.New(),
		WalletID:     w.ID,
		Type:         typ,
		Amount:       amount,
		Description:  desc,
		Reference:    strings.TrimSpace(opts.Reference),
		Metadata:     opts.Metadata,
		BalanceAfter: w.Balance,
	}
}

// Append commits a pending entry produced by Debit or Credit: it stamps
// the entry, prepends it to the history and advances the version. The
// history is cut to maxHistory entries when maxHistory > 0.
func (w *Wallet) Append(tx *Transaction, now time.Time, maxHistory int) error {
	if tx == nil {
		return fmt.Errorf("%w: no transaction", ErrInvalidMutation)
	}
	if !tx.Amount.IsPositive() {
		return fmt.Errorf("%w: %v", ErrInvalidMutation, ErrNonPositiveAmount)
	}
	if tx.BalanceAfter.Cmp(w.Balance) != 0 {
		return fmt.Errorf("%w: balanceAfter %s, balance %s", ErrInvalidMutation, tx.BalanceAfter, w.Balance)
	}
	if w.Balance.IsNegative() {
		return fmt.Errorf("%w: negative balance %s", ErrInvalidMutation, w.Balance)
	}

	tx.WalletID = w.ID
	tx.CreatedAt = now
	w.Transactions = append([]Transaction{tx.Clone()}, w.Transactions...)
	w.TrimHistory(maxHistory)
	w.TransactionCount++
	w.Version++
	w.LastUpdated = now
	return nil
}

// TrimHistory drops all but the newest max entries. max <= 0 keeps all.
func (w *Wallet) TrimHistory(max int) {
	if max > 0 && len(w.Transactions) > max {
		w.Transactions = w.Transactions[:max]
	}
}

// FindReference returns the entry in the loaded history with the given
// reference, or nil.
func (w *Wallet) FindReference(ref string) *Transaction {
	if ref == "" {
		return nil
	}
	for i := range w.Transactions {
		if w.Transactions[i].Reference == ref {
			return &w.Transactions[i]
		}
	}
	return nil
}
