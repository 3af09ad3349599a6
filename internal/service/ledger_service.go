package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/money"

	"github.com/rs/zerolog"
)

const defaultMaxRetries = 5

// LedgerConfig holds the ledger's tunables.
type LedgerConfig struct {
	StartingBalance money.Amount
	MaxRetries      int
}

// LedgerServiceImpl implements ports.LedgerService on top of a WalletStore
// using optimistic concurrency. Cache and events are optional.
type LedgerServiceImpl struct {
	store  ports.WalletStore
	cache  ports.WalletCache
	events ports.EventPublisher
	cfg    LedgerConfig
	log    zerolog.Logger
}

var _ ports.LedgerService = (*LedgerServiceImpl)(nil)

// NewLedgerService creates a new LedgerServiceImpl. cache and events may be nil.
func NewLedgerService(
	store ports.WalletStore,
	cache ports.WalletCache,
	events ports.EventPublisher,
	cfg LedgerConfig,
	log zerolog.Logger,
) *LedgerServiceImpl {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	return &LedgerServiceImpl{
		store:  store,
		cache:  cache,
		events: events,
		cfg:    cfg,
		log:    log,
	}
}

// GetMyWallet returns the caller's wallet, provisioning it on first access.
func (s *LedgerServiceImpl) GetMyWallet(ctx context.Context, caller domain.Caller) (bool, *domain.Wallet, error) {
	if !caller.Eligible() {
		return false, nil, nil
	}

	nw, err := domain.PrepareWallet(caller.Owner, caller.TenantID, caller.Role, s.cfg.StartingBalance)
	if err != nil {
		return false, nil, apperror.ErrInvalidToken()
	}

	if w := s.cached(ctx, nw.OwnerKey); w != nil {
		return true, w, nil
	}

	w, err := s.provision(ctx, nw)
	if err != nil {
		return false, nil, err
	}
	s.remember(ctx, w)
	return true, w, nil
}

// LookupWallet returns an existing wallet without provisioning it.
func (s *LedgerServiceImpl) LookupWallet(ctx context.Context, owner domain.Owner, tenantID string) (*domain.Wallet, error) {
	key, err := domain.OwnerKey(owner, tenantID)
	if err != nil {
		return nil, apperror.ErrInvalidTarget()
	}

	if w := s.cached(ctx, key); w != nil {
		return w, nil
	}

	w, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, s.storageError(err, key, "lookup wallet")
	}
	if w == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	s.remember(ctx, w)
	return w, nil
}

// Redeem debits the caller's own wallet.
func (s *LedgerServiceImpl) Redeem(ctx context.Context, req ports.RedeemRequest) (*ports.LedgerResult, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	caller := req.Caller
	if !caller.Eligible() {
		return nil, apperror.ErrNotEligible()
	}

	nw, err := domain.PrepareWallet(caller.Owner, caller.TenantID, caller.Role, s.cfg.StartingBalance)
	if err != nil {
		return nil, apperror.ErrInvalidToken()
	}

	opts := req.Options
	return s.apply(ctx, nw, domain.TransactionTypeDebit, opts.Reference, func(w *domain.Wallet) (*domain.Transaction, error) {
		return w.Debit(amount, opts)
	})
}

// Grant credits the target's wallet, provisioning it with the request's
// tenant and role when it does not exist yet.
func (s *LedgerServiceImpl) Grant(ctx context.Context, req ports.GrantRequest) (*ports.LedgerResult, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	nw, err := domain.PrepareWallet(req.Target, req.TenantID, req.Role, s.cfg.StartingBalance)
	if err != nil {
		return nil, apperror.ErrInvalidTarget()
	}

	opts := req.Options
	return s.apply(ctx, nw, domain.TransactionTypeCredit, opts.Reference, func(w *domain.Wallet) (*domain.Transaction, error) {
		return w.Credit(amount, opts)
	})
}

// apply runs the read, mutate, compare-and-swap loop for one ledger entry.
func (s *LedgerServiceImpl) apply(
	ctx context.Context,
	nw domain.NewWallet,
	typ domain.TransactionType,
	reference string,
	mutate ports.Mutator,
) (*ports.LedgerResult, error) {
	w, err := s.provision(ctx, nw)
	if err != nil {
		return nil, err
	}

	reference = strings.TrimSpace(reference)
	if reference != "" {
		res, err := s.replay(ctx, w, typ, reference)
		if err != nil || res != nil {
			return res, err
		}
	}

	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		updated, tx, err := s.store.AtomicUpdate(ctx, nw.OwnerKey, w.Version, mutate)
		switch {
		case err == nil:
			s.committed(ctx, updated, tx)
			return &ports.LedgerResult{Wallet: updated, Transaction: tx}, nil

		case errors.Is(err, ports.ErrVersionConflict):
			s.log.Debug().
				Str("owner_key", nw.OwnerKey).
				Int64("expected_version", w.Version).
				Int("attempt", attempt).
				Msg("wallet version conflict, retrying")

			if w, err = s.reload(ctx, nw.OwnerKey); err != nil {
				return nil, err
			}
			// The winner may have committed this very reference.
			if reference != "" {
				res, err := s.replay(ctx, w, typ, reference)
				if err != nil || res != nil {
					return res, err
				}
			}

		case errors.Is(err, ports.ErrDuplicateReference):
			if w, err = s.reload(ctx, nw.OwnerKey); err != nil {
				return nil, err
			}
			res, err := s.replay(ctx, w, typ, reference)
			if err != nil {
				return nil, err
			}
			if res == nil {
				return nil, apperror.InternalError(fmt.Errorf("reference %q reported duplicate but not found", reference))
			}
			return res, nil

		default:
			return nil, s.mutationError(err, nw.OwnerKey)
		}
	}

	s.log.Warn().
		Str("owner_key", nw.OwnerKey).
		Int("attempts", s.cfg.MaxRetries).
		Msg("wallet update retries exhausted")
	return nil, apperror.ErrConcurrencyExhausted(s.cfg.MaxRetries)
}

// provision returns the stored wallet, creating it on first use.
func (s *LedgerServiceImpl) provision(ctx context.Context, nw domain.NewWallet) (*domain.Wallet, error) {
	w, err := s.store.Get(ctx, nw.OwnerKey)
	if err != nil {
		return nil, s.storageError(err, nw.OwnerKey, "get wallet")
	}
	if w != nil {
		return w, nil
	}

	w, err = s.store.CreateIfAbsent(ctx, nw)
	if err != nil {
		return nil, s.storageError(err, nw.OwnerKey, "provision wallet")
	}
	s.log.Info().
		Str("owner_key", w.OwnerKey).
		Str("wallet_id", w.ID.String()).
		Str("tenant", w.TenantID).
		Msg("wallet provisioned")
	return w, nil
}

func (s *LedgerServiceImpl) reload(ctx context.Context, ownerKey string) (*domain.Wallet, error) {
	w, err := s.store.Get(ctx, ownerKey)
	if err != nil {
		return nil, s.storageError(err, ownerKey, "reload wallet")
	}
	if w == nil {
		return nil, s.storageError(errors.New("wallet disappeared"), ownerKey, "reload wallet")
	}
	return w, nil
}

// replay returns the already committed entry for reference, or nil when
// the wallet has none. A reference reused for the other entry type is
// rejected.
func (s *LedgerServiceImpl) replay(ctx context.Context, w *domain.Wallet, typ domain.TransactionType, reference string) (*ports.LedgerResult, error) {
	tx, err := s.store.FindByReference(ctx, w.ID, reference)
	if err != nil {
		return nil, s.storageError(err, w.OwnerKey, "find reference")
	}
	if tx == nil {
		return nil, nil
	}
	if tx.Type != typ {
		return nil, apperror.Validation(fmt.Sprintf("reference %q is already used by a %s entry", reference, tx.Type))
	}

	s.log.Info().
		Str("owner_key", w.OwnerKey).
		Str("transaction_id", tx.ID.String()).
		Str("reference", reference).
		Msg("ledger entry replayed")
	return &ports.LedgerResult{Wallet: w, Transaction: tx, Replayed: true}, nil
}

// committed runs the best-effort side effects of a committed entry.
func (s *LedgerServiceImpl) committed(ctx context.Context, w *domain.Wallet, tx *domain.Transaction) {
	s.log.Info().
		Str("owner_key", w.OwnerKey).
		Str("wallet_id", w.ID.String()).
		Str("transaction_id", tx.ID.String()).
		Str("type", string(tx.Type)).
		Str("amount", tx.Amount.String()).
		Str("balance", w.Balance.String()).
		Int64("version", w.Version).
		Msg("ledger entry committed")

	// The entry is durable; a canceled request must not skip these.
	ctx = context.WithoutCancel(ctx)

	// Set never moves an entry back to an older version, so a reader that
	// loaded the wallet before this commit cannot restore its copy.
	if s.cache != nil {
		if err := s.cache.Set(ctx, w); err != nil {
			s.log.Warn().Err(err).Str("owner_key", w.OwnerKey).Msg("wallet cache write-through failed")
			if err := s.cache.Invalidate(ctx, w.OwnerKey); err != nil {
				s.log.Warn().Err(err).Str("owner_key", w.OwnerKey).Msg("wallet cache invalidation failed")
			}
		}
	}
	if s.events != nil {
		if err := s.events.Publish(ctx, domain.NewLedgerEvent(w, tx)); err != nil {
			s.log.Warn().Err(err).Str("transaction_id", tx.ID.String()).Msg("ledger event publish failed")
		}
	}
}

func (s *LedgerServiceImpl) cached(ctx context.Context, ownerKey string) *domain.Wallet {
	if s.cache == nil {
		return nil
	}
	w, err := s.cache.Get(ctx, ownerKey)
	if err != nil {
		s.log.Warn().Err(err).Str("owner_key", ownerKey).Msg("wallet cache read failed")
		return nil
	}
	return w
}

func (s *LedgerServiceImpl) remember(ctx context.Context, w *domain.Wallet) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, w); err != nil {
		s.log.Warn().Err(err).Str("owner_key", w.OwnerKey).Msg("wallet cache write failed")
	}
}

func (s *LedgerServiceImpl) mutationError(err error, ownerKey string) error {
	var insufficient *domain.InsufficientBalanceError
	switch {
	case errors.As(err, &insufficient):
		return apperror.ErrInsufficientBalance(insufficient.Shortfall())
	case errors.Is(err, domain.ErrNonPositiveAmount):
		return apperror.ErrInvalidAmount("amount must be greater than zero")
	default:
		return s.storageError(err, ownerKey, "update wallet")
	}
}

func (s *LedgerServiceImpl) storageError(err error, ownerKey, op string) error {
	s.log.Error().Err(err).Str("owner_key", ownerKey).Str("op", op).Msg("wallet store failure")
	return apperror.ErrStorageUnavailable(fmt.Errorf("%s: %w", op, err))
}

// parseAmount validates a raw amount before any store access.
func parseAmount(raw string) (money.Amount, error) {
	amount, err := money.Parse(raw)
	switch {
	case errors.Is(err, money.ErrEmpty) && strings.TrimSpace(raw) == "":
		return money.Zero, apperror.ErrInvalidAmount("amount is required")
	case errors.Is(err, money.ErrOutOfRange):
		return money.Zero, apperror.ErrInvalidAmount("amount is out of range")
	case err != nil:
		return money.Zero, apperror.ErrInvalidAmount("amount must be numeric")
	case !amount.IsPositive():
		return money.Zero, apperror.ErrInvalidAmount("amount must be greater than zero")
	}
	return amount, nil
}
