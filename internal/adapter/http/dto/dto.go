package dto

import (
	"bytes"
	"encoding/json"
	"fmt"

	"wallet-ledger/internal/core/domain"
)

// Amount accepts a JSON number or a JSON string and keeps the raw text.
// Parsing and range checks happen in the ledger so that every entry point
// reports the same InvalidAmount error.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
	case len(data) > 0 && (data[0] == '-' || (data[0] >= '0' && data[0] <= '9')):
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*a = Amount(n.String())
	default:
		return fmt.Errorf("amount must be a number or a string, got %s", data)
	}
	return nil
}

// RedeemRequest is the request body for POST /wallets/me/redeem.
type RedeemRequest struct {
	Amount      Amount         `json:"amount"`
	Description string         `json:"description" binding:"max=500"`
	Reference   string         `json:"reference" binding:"omitempty,wallet_ref"`
	Metadata    map[string]any `json:"metadata"`
}

// Options converts the optional entry fields.
func (r RedeemRequest) Options() domain.EntryOptions {
	return domain.EntryOptions{
		Description: r.Description,
		Reference:   r.Reference,
		Metadata:    r.Metadata,
	}
}

// GrantRequest is the request body for POST /wallets/grant. One of Email
// or UID identifies the target; TenantID and Role only apply when the
// wallet is created by this grant.
type GrantRequest struct {
	Email       string         `json:"email" binding:"omitempty,email,max=254"`
	UID         string         `json:"uid" binding:"omitempty,safe_id,max=128"`
	Amount      Amount         `json:"amount"`
	Description string         `json:"description" binding:"max=500"`
	Reference   string         `json:"reference" binding:"omitempty,wallet_ref"`
	Metadata    map[string]any `json:"metadata"`
	TenantID    string         `json:"tenantId" binding:"omitempty,safe_id,max=64"`
	Role        string         `json:"role" binding:"omitempty,safe_id,max=64"`
}

func (r GrantRequest) Target() domain.Owner {
	return domain.Owner{UserID: r.UID, Email: r.Email}
}

func (r GrantRequest) Options() domain.EntryOptions {
	return domain.EntryOptions{
		Description: r.Description,
		Reference:   r.Reference,
		Metadata:    r.Metadata,
	}
}

// LookupQuery is the query string of GET /wallets/admin/lookup.
type LookupQuery struct {
	Email    string `form:"email" binding:"omitempty,email,max=254"`
	UID      string `form:"uid" binding:"omitempty,safe_id,max=128"`
	TenantID string `form:"tenantId" binding:"omitempty,safe_id,max=64"`
}

func (q LookupQuery) Owner() domain.Owner {
	return domain.Owner{UserID: q.UID, Email: q.Email}
}

// MyWalletResponse is the response body for GET /wallets/me. Wallet is null
// when the caller is not eligible.
type MyWalletResponse struct {
	Eligible bool           `json:"eligible"`
	Wallet   *domain.Wallet `json:"wallet"`
}

// LedgerResponse is the response body for redeem and grant.
type LedgerResponse struct {
	Wallet      *domain.Wallet      `json:"wallet"`
	Transaction *domain.Transaction `json:"transaction"`
	Replayed    bool                `json:"replayed,omitempty"`
}

// LookupResponse is the response body for the admin lookup.
type LookupResponse struct {
	Wallet *domain.Wallet `json:"wallet"`
}
