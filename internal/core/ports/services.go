package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"
)

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(claims TokenClaims) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the identity asserted by a verified token.
type TokenClaims struct {
	UserID   string
	Email    string
	Role     string
	TenantID string
	Admin    bool
}

// Caller converts the claims into the explicit identity passed to the ledger.
func (c TokenClaims) Caller() domain.Caller {
	return domain.Caller{
		Owner:    domain.Owner{UserID: c.UserID, Email: c.Email},
		Role:     c.Role,
		TenantID: c.TenantID,
		Admin:    c.Admin,
	}
}

// WalletCache is a best-effort read cache in front of the WalletStore.
// A miss returns nil, nil. Set keeps an entry whose version is newer than
// the wallet given.
type WalletCache interface {
	Get(ctx context.Context, ownerKey string) (*domain.Wallet, error)
	Set(ctx context.Context, w *domain.Wallet) error
	Invalidate(ctx context.Context, ownerKey string) error
}

// EventPublisher emits ledger events after commit.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LedgerEvent) error
	Close() error
}

// RateLimiter counts requests per key in fixed windows.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// AuditService records audit entries without blocking the caller.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// --- Service Ports (Business Logic) ---

// LedgerService defines the wallet ledger operations.
type LedgerService interface {
	// GetMyWallet returns false, nil, nil for an ineligible caller and
	// auto-provisions the wallet otherwise.
	GetMyWallet(ctx context.Context, caller domain.Caller) (bool, *domain.Wallet, error)
	Redeem(ctx context.Context, req RedeemRequest) (*LedgerResult, error)
	Grant(ctx context.Context, req GrantRequest) (*LedgerResult, error)
	// LookupWallet never provisions; a missing wallet is WalletNotFound.
	LookupWallet(ctx context.Context, owner domain.Owner, tenantID string) (*domain.Wallet, error)
}

// RedeemRequest is a caller debiting their own wallet. Amount is raw input.
type RedeemRequest struct {
	Caller  domain.Caller
	Amount  string
	Options domain.EntryOptions
}

// GrantRequest credits Target's wallet. TenantID and Role only apply when
// the wallet has to be provisioned.
type GrantRequest struct {
	Target   domain.Owner
	Amount   string
	TenantID string
	Role     string
	Options  domain.EntryOptions
}

// LedgerResult is the outcome of a redeem or grant. Replayed is set when
// the reference matched an existing entry and nothing was appended.
type LedgerResult struct {
	Wallet      *domain.Wallet
	Transaction *domain.Transaction
	Replayed    bool
}
