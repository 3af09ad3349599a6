package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"errors"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
)

var (
	// ErrVersionConflict means another writer advanced the wallet past the
	// expected version. The caller should re-read and retry.
	ErrVersionConflict = errors.New("wallet version conflict")
	// ErrDuplicateReference means the wallet already holds an entry with
	// the mutation's reference. Nothing was written.
	ErrDuplicateReference = errors.New("duplicate transaction reference")
)

// Mutator receives a private copy of the wallet, adjusts its balance and
// returns the single entry to append (see domain.Wallet.Debit/Credit).
// Returning an error aborts the update with nothing persisted.
type Mutator func(w *domain.Wallet) (*domain.Transaction, error)

// WalletStore persists wallets. AtomicUpdate is the only mutation path.
type WalletStore interface {
	// Get returns nil, nil when no wallet exists for ownerKey.
	Get(ctx context.Context, ownerKey string) (*domain.Wallet, error)
	// CreateIfAbsent provisions the wallet exactly once; concurrent callers
	// all receive the single stored record.
	CreateIfAbsent(ctx context.Context, nw domain.NewWallet) (*domain.Wallet, error)
	// AtomicUpdate applies mutate only if the stored version equals
	// expectedVersion, committing the entry, Version+1 and LastUpdated as
	// one unit. Returns ErrVersionConflict without calling mutate otherwise.
	AtomicUpdate(ctx context.Context, ownerKey string, expectedVersion int64, mutate Mutator) (*domain.Wallet, *domain.Transaction, error)
	// FindByReference returns nil, nil when the wallet has no such entry.
	FindByReference(ctx context.Context, walletID uuid.UUID, reference string) (*domain.Transaction, error)
}

// AuditRepository persists audit rows.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}
