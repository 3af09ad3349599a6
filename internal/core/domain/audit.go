package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionRedeem AuditAction = "WALLET_REDEEM"
	AuditActionGrant  AuditAction = "WALLET_GRANT"
	AuditActionLookup AuditAction = "WALLET_LOOKUP"
)

// AuditLog records a single audited wallet action.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	Actor        string      `json:"actor"` // caller subject, see Owner.Subject
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
