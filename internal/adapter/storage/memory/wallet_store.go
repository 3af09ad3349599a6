// Package memory is a process-local WalletStore, used by the memory store
// driver and by tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
)

// WalletStore keeps full histories in memory and hands out trimmed copies.
// Updates are compare-and-swap on the wallet version; the mutator runs
// outside the lock.
type WalletStore struct {
	mu         sync.RWMutex
	byOwner    map[string]*domain.Wallet
	ownerByID  map[uuid.UUID]string
	maxHistory int
	now        func() time.Time
}

var _ ports.WalletStore = (*WalletStore)(nil)

// Option configures a WalletStore.
type Option func(*WalletStore)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *WalletStore) { s.now = now }
}

// NewWalletStore returns an empty store whose reads return at most
// maxHistory transactions.
func NewWalletStore(maxHistory int, opts ...Option) *WalletStore {
	s := &WalletStore{
		byOwner:    make(map[string]*domain.Wallet),
		ownerByID:  make(map[uuid.UUID]string),
		maxHistory: maxHistory,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *WalletStore) Get(ctx context.Context, ownerKey string) (*domain.Wallet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.byOwner[ownerKey]
	if !ok {
		return nil, nil
	}
	return s.view(w), nil
}

func (s *WalletStore) CreateIfAbsent(ctx context.Context, nw domain.NewWallet) (*domain.Wallet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.byOwner[nw.OwnerKey]; ok {
		return s.view(w), nil
	}
	w := nw.Build(s.now())
	s.byOwner[w.OwnerKey] = w
	s.ownerByID[w.ID] = w.OwnerKey
	return s.view(w), nil
}

func (s *WalletStore) AtomicUpdate(ctx context.Context, ownerKey string, expectedVersion int64, mutate ports.Mutator) (*domain.Wallet, *domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	current, ok := s.byOwner[ownerKey]
	if !ok {
		s.mu.RUnlock()
		return nil, nil, fmt.Errorf("wallet %q not found", ownerKey)
	}
	if current.Version != expectedVersion {
		s.mu.RUnlock()
		return nil, nil, ports.ErrVersionConflict
	}
	working := current.Clone()
	s.mu.RUnlock()

	tx, err := mutate(working)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	latest := s.byOwner[ownerKey]
	if latest.Version != expectedVersion {
		return nil, nil, ports.ErrVersionConflict
	}
	if tx != nil && latest.FindReference(tx.Reference) != nil {
		return nil, nil, ports.ErrDuplicateReference
	}
	if err := working.Append(tx, s.now(), 0); err != nil {
		return nil, nil, err
	}

	s.byOwner[ownerKey] = working
	committed := *tx
	return s.view(working), &committed, nil
}

func (s *WalletStore) FindByReference(ctx context.Context, walletID uuid.UUID, reference string) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.ownerByID[walletID]
	if !ok {
		return nil, nil
	}
	if t := s.byOwner[key].FindReference(reference); t != nil {
		cp := t.Clone()
		return &cp, nil
	}
	return nil, nil
}

// Len returns the number of wallets held.
func (s *WalletStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byOwner)
}

// view is what callers see: a copy with the history cut to maxHistory.
func (s *WalletStore) view(w *domain.Wallet) *domain.Wallet {
	cp := w.Clone()
	cp.TrimHistory(s.maxHistory)
	return cp
}
