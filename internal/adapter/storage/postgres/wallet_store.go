package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation      = "23505"
	referenceUniqueIndex = "wallet_transactions_wallet_reference_key"
	walletColumns        = `id, owner_key, user_id, email, tenant_id, role, balance, starting_balance, transaction_count, version, created_at, last_updated`
	walletTxColumns      = `id, wallet_id, type, amount, description, reference, metadata, balance_after, created_at`
)

// WalletStore implements ports.WalletStore on PostgreSQL. The version
// check is an UPDATE ... WHERE version = $n committed in the same database
// transaction as the entry insert; no row locks are taken.
type WalletStore struct {
	pool       Pool
	maxHistory int
	now        func() time.Time
}

var _ ports.WalletStore = (*WalletStore)(nil)

// NewWalletStore creates a WalletStore whose reads load at most maxHistory
// transactions per wallet.
func NewWalletStore(pool Pool, maxHistory int) *WalletStore {
	return &WalletStore{
		pool:       pool,
		maxHistory: maxHistory,
		now:        func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Get loads the wallet row and its newest transactions.
func (s *WalletStore) Get(ctx context.Context, ownerKey string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_key = $1`

	w, err := scanWallet(s.pool.QueryRow(ctx, query, ownerKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}

	if err := s.loadHistory(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// loadHistory reads entries up to the wallet row's transaction_count so the
// history never runs ahead of the balance it was read with.
func (s *WalletStore) loadHistory(ctx context.Context, w *domain.Wallet) error {
	w.Transactions = []domain.Transaction{}
	if w.TransactionCount == 0 {
		return nil
	}

	limit := int64(s.maxHistory)
	if limit <= 0 {
		limit = w.TransactionCount
	}

	query := `SELECT ` + walletTxColumns + ` FROM wallet_transactions
		WHERE wallet_id = $1 AND seq <= $2
		ORDER BY seq DESC
		LIMIT $3`

	rows, err := s.pool.Query(ctx, query, w.ID, w.TransactionCount, limit)
	if err != nil {
		return fmt.Errorf("list wallet transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return fmt.Errorf("scan wallet transaction: %w", err)
		}
		w.Transactions = append(w.Transactions, *t)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate wallet transactions: %w", err)
	}
	return nil
}

// CreateIfAbsent inserts the wallet unless the owner key already exists,
// then returns whichever row won.
func (s *WalletStore) CreateIfAbsent(ctx context.Context, nw domain.NewWallet) (*domain.Wallet, error) {
	w := nw.Build(s.now())

	query := `INSERT INTO wallets (` + walletColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, $9, $10)
		ON CONFLICT (owner_key) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		w.ID, w.OwnerKey, w.UserID, w.Email, w.TenantID, w.Role,
		w.Balance.Minor(), w.StartingBalance.Minor(), w.CreatedAt, w.LastUpdated,
	)
	if err != nil {
		return nil, fmt.Errorf("insert wallet: %w", err)
	}

	stored, err := s.Get(ctx, nw.OwnerKey)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("wallet %q missing after insert", nw.OwnerKey)
	}
	return stored, nil
}

// AtomicUpdate runs mutate against a copy of the current row, then writes
// the new balance guarded by the expected version together with the entry.
func (s *WalletStore) AtomicUpdate(ctx context.Context, ownerKey string, expectedVersion int64, mutate ports.Mutator) (*domain.Wallet, *domain.Transaction, error) {
	current, err := s.Get(ctx, ownerKey)
	if err != nil {
		return nil, nil, err
	}
	if current == nil {
		return nil, nil, fmt.Errorf("wallet %q not found", ownerKey)
	}
	if current.Version != expectedVersion {
		return nil, nil, ports.ErrVersionConflict
	}

	working := current.Clone()
	entry, err := mutate(working)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	if err := working.Append(entry, now, s.maxHistory); err != nil {
		return nil, nil, err
	}

	metadata, err := marshalMetadata(entry.Metadata)
	if err != nil {
		return nil, nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin wallet update: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE wallets
		SET balance = $1, version = version + 1, last_updated = $2, transaction_count = transaction_count + 1
		WHERE id = $3 AND version = $4`,
		working.Balance.Minor(), now, working.ID, expectedVersion,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("update wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil, ports.ErrVersionConflict
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO wallet_transactions (id, wallet_id, seq, type, amount, description, reference, metadata, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, working.ID, working.TransactionCount, string(entry.Type), entry.Amount.Minor(),
		entry.Description, nullableString(entry.Reference), metadata, entry.BalanceAfter.Minor(), now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == referenceUniqueIndex {
			return nil, nil, ports.ErrDuplicateReference
		}
		return nil, nil, fmt.Errorf("insert wallet transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit wallet update: %w", err)
	}

	return working, entry, nil
}

// FindByReference returns the wallet's entry carrying reference, or nil.
func (s *WalletStore) FindByReference(ctx context.Context, walletID uuid.UUID, reference string) (*domain.Transaction, error) {
	if reference == "" {
		return nil, nil
	}
	query := `SELECT ` + walletTxColumns + ` FROM wallet_transactions WHERE wallet_id = $1 AND reference = $2`

	t, err := scanTransaction(s.pool.QueryRow(ctx, query, walletID, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find transaction by reference: %w", err)
	}
	return t, nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var (
		w                 domain.Wallet
		balance, starting int64
	)
	err := row.Scan(
		&w.ID, &w.OwnerKey, &w.UserID, &w.Email, &w.TenantID, &w.Role,
		&balance, &starting, &w.TransactionCount, &w.Version, &w.CreatedAt, &w.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	w.Balance = money.FromMinor(balance)
	w.StartingBalance = money.FromMinor(starting)
	w.CreatedAt = w.CreatedAt.UTC()
	w.LastUpdated = w.LastUpdated.UTC()
	return &w, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t                    domain.Transaction
		typ                  string
		amount, balanceAfter int64
		reference            *string
		metadata             []byte
	)
	err := row.Scan(
		&t.ID, &t.WalletID, &typ, &amount, &t.Description,
		&reference, &metadata, &balanceAfter, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Type = domain.TransactionType(typ)
	t.Amount = money.FromMinor(amount)
	t.BalanceAfter = money.FromMinor(balanceAfter)
	t.CreatedAt = t.CreatedAt.UTC()
	if reference != nil {
		t.Reference = *reference
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &t, nil
}

func marshalMetadata(md map[string]any) ([]byte, error) {
	if len(md) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return b, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
