package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*WalletStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	s := NewWalletStore(mock, 150)
	s.now = func() time.Time { return testTime }
	return s, mock
}

func walletRow(id uuid.UUID, ownerKey string, balance, count, version int64) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "owner_key", "user_id", "email", "tenant_id", "role", "balance",
		"starting_balance", "transaction_count", "version", "created_at", "last_updated",
	}).AddRow(
		id, ownerKey, "", "a@example.com", "vendor", "member", balance,
		int64(20000000), count, version, testTime, testTime,
	)
}

func txRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "wallet_id", "type", "amount", "description", "reference", "metadata", "balance_after", "created_at",
	})
}

func TestWalletStore_Get_NotFound(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE owner_key").
		WithArgs("vendor:ghost@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	w, err := s.Get(context.Background(), "vendor:ghost@example.com")
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletStore_Get_WithHistory(t *testing.T) {
	s, mock := newTestStore(t)
	id := uuid.New()
	ref := "inv-1"

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE owner_key").
		WithArgs("vendor:a@example.com").
		WillReturnRows(walletRow(id, "vendor:a@example.com", 19850000, 1, 1))
	mock.ExpectQuery("(?s)SELECT .+ FROM wallet_transactions").
		WithArgs(id, int64(1), int64(150)).
		WillReturnRows(txRows().AddRow(
			uuid.New(), id, "debit", int64(150000), "Wallet redemption",
			&ref, []byte(`{"listing":"L1"}`), int64(19850000), testTime,
		))

	w, err := s.Get(context.Background(), "vendor:a@example.com")
	require.NoError(t, err)
	require.NotNil(t, w)

	assert.Equal(t, "198500.00", w.Balance.String())
	assert.Equal(t, "200000.00", w.StartingBalance.String())
	assert.Equal(t, int64(1), w.Version)
	require.Len(t, w.Transactions, 1)
	assert.Equal(t, domain.TransactionTypeDebit, w.Transactions[0].Type)
	assert.Equal(t, "1500.00", w.Transactions[0].Amount.String())
	assert.Equal(t, "inv-1", w.Transactions[0].Reference)
	assert.Equal(t, "L1", w.Transactions[0].Metadata["listing"])
	assert.NoError(t, domain.VerifyLedger(w))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletStore_CreateIfAbsent(t *testing.T) {
	s, mock := newTestStore(t)
	nw, err := domain.PrepareWallet(domain.Owner{Email: "a@example.com"}, "vendor", "member", money.FromInt(200000))
	require.NoError(t, err)
	winner := uuid.New()

	mock.ExpectExec("(?s)INSERT INTO wallets .+ON CONFLICT \\(owner_key\\) DO NOTHING").
		WithArgs(pgxmock.AnyArg(), nw.OwnerKey, "", "a@example.com", "vendor", "member",
			int64(20000000), int64(20000000), testTime, testTime).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery("SELECT .+ FROM wallets WHERE owner_key").
		WithArgs(nw.OwnerKey).
		WillReturnRows(walletRow(winner, nw.OwnerKey, 20000000, 0, 0))

	w, err := s.CreateIfAbsent(context.Background(), nw)
	require.NoError(t, err)
	assert.Equal(t, winner, w.ID, "losing insert reads the existing row")
	assert.Empty(t, w.Transactions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletStore_CreateIfAbsent_InsertError(t *testing.T) {
	s, mock := newTestStore(t)
	nw, _ := domain.PrepareWallet(domain.Owner{UserID: "u1"}, "basic", "", money.FromInt(1))

	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	_, err := s.CreateIfAbsent(context.Background(), nw)
	assert.ErrorContains(t, err, "insert wallet")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectFreshWallet(mock pgxmock.PgxPoolIface, id uuid.UUID, version int64) {
	mock.ExpectQuery("SELECT .+ FROM wallets WHERE owner_key").
		WithArgs("vendor:a@example.com").
		WillReturnRows(walletRow(id, "vendor:a@example.com", 20000000, 0, version))
}

func redeem(amount string, ref string) ports.Mutator {
	return func(w *domain.Wallet) (*domain.Transaction, error) {
		return w.Debit(money.MustParse(amount), domain.EntryOptions{Reference: ref})
	}
}

func TestWalletStore_AtomicUpdate_Commits(t *testing.T) {
	s, mock := newTestStore(t)
	id := uuid.New()

	expectFreshWallet(mock, id, 0)
	mock.ExpectBegin()
	mock.ExpectExec("(?s)UPDATE wallets\\s+SET balance = \\$1, version = version \\+ 1").
		WithArgs(int64(19850000), testTime, id, int64(0)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO wallet_transactions").
		WithArgs(pgxmock.AnyArg(), id, int64(1), "debit", int64(150000), "Wallet redemption",
			(*string)(nil), []byte(nil), int64(19850000), testTime).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	w, tx, err := s.AtomicUpdate(context.Background(), "vendor:a@example.com", 0, redeem("1500", ""))
	require.NoError(t, err)

	assert.Equal(t, "198500.00", w.Balance.String())
	assert.Equal(t, int64(1), w.Version)
	assert.Equal(t, int64(1), w.TransactionCount)
	assert.Equal(t, testTime, w.LastUpdated)
	assert.Equal(t, testTime, tx.CreatedAt)
	assert.Equal(t, id, tx.WalletID)
	assert.NoError(t, domain.VerifyLedger(w))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletStore_AtomicUpdate_StaleVersionSkipsMutator(t *testing.T) {
	s, mock := newTestStore(t)
	expectFreshWallet(mock, uuid.New(), 3)

	called := false
	_, _, err := s.AtomicUpdate(context.Background(), "vendor:a@example.com", 2,
		func(w *domain.Wallet) (*domain.Transaction, error) {
			called = true
			return nil, nil
		})

	assert.ErrorIs(t, err, ports.ErrVersionConflict)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletStore_AtomicUpdate_LostRace(t *testing.T) {
	s, mock := newTestStore(t)
	id := uuid.New()

	expectFreshWallet(mock, id, 0)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets").
		WithArgs(int64(19850000), testTime, id, int64(0)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	_, _, err := s.AtomicUpdate(context.Background(), "vendor:a@example.com", 0, redeem("1500", ""))
	assert.ErrorIs(t, err, ports.ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletStore_AtomicUpdate_DuplicateReference(t *testing.T) {
	s, mock := newTestStore(t)
	id := uuid.New()
	ref := "order-9"

	expectFreshWallet(mock, id, 0)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO wallet_transactions").
		WithArgs(pgxmock.AnyArg(), id, int64(1), "debit", int64(100), "Wallet redemption",
			&ref, []byte(nil), int64(19999900), testTime).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "wallet_transactions_wallet_reference_key"})
	mock.ExpectRollback()

	_, _, err := s.AtomicUpdate(context.Background(), "vendor:a@example.com", 0, redeem("1", ref))
	assert.ErrorIs(t, err, ports.ErrDuplicateReference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletStore_AtomicUpdate_MutatorErrorWritesNothing(t *testing.T) {
	s, mock := newTestStore(t)
	expectFreshWallet(mock, uuid.New(), 0)

	_, _, err := s.AtomicUpdate(context.Background(), "vendor:a@example.com", 0, redeem("300000", ""))

	var insufficient *domain.InsufficientBalanceError
	assert.True(t, errors.As(err, &insufficient))
	assert.NoError(t, mock.ExpectationsWereMet(), "no transaction may be opened")
}

func TestWalletStore_AtomicUpdate_NotFound(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectQuery("SELECT .+ FROM wallets").
		WithArgs("vendor:ghost").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, _, err := s.AtomicUpdate(context.Background(), "vendor:ghost", 0, redeem("1", ""))
	assert.ErrorContains(t, err, "not found")
}

func TestWalletStore_FindByReference(t *testing.T) {
	s, mock := newTestStore(t)
	walletID := uuid.New()
	txID := uuid.New()
	ref := "grant-42"

	mock.ExpectQuery("SELECT .+ FROM wallet_transactions WHERE wallet_id = \\$1 AND reference = \\$2").
		WithArgs(walletID, ref).
		WillReturnRows(txRows().AddRow(
			txID, walletID, "credit", int64(500000), "Wallet grant",
			&ref, []byte(nil), int64(20500000), testTime,
		))

	tx, err := s.FindByReference(context.Background(), walletID, ref)
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, txID, tx.ID)
	assert.Equal(t, domain.TransactionTypeCredit, tx.Type)
	assert.Equal(t, "205000.00", tx.BalanceAfter.String())
	assert.Nil(t, tx.Metadata)

	none, err := s.FindByReference(context.Background(), walletID, "")
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.NoError(t, mock.ExpectationsWereMet())
}
