package domain

import (
	"errors"
	"strings"
)

// ErrNoOwnerIdentity is returned for an Owner with neither email nor user id.
var ErrNoOwnerIdentity = errors.New("owner has neither email nor user id")

// Owner is a weak reference to the identity holding a wallet.
type Owner struct {
	UserID string
	Email  string
}

// Subject is the tenant-independent part of the owner key: the lower-cased
// email when present, else "uid:<UserID>".
func (o Owner) Subject() (string, error) {
	if email := strings.ToLower(strings.TrimSpace(o.Email)); email != "" {
		return email, nil
	}
	if uid := strings.TrimSpace(o.UserID); uid != "" {
		return "uid:" + uid, nil
	}
	return "", ErrNoOwnerIdentity
}

// OwnerKey identifies the single wallet of an owner within a tenant.
func OwnerKey(o Owner, tenant string) (string, error) {
	subject, err := o.Subject()
	if err != nil {
		return "", err
	}
	return NormalizeTenant(tenant) + ":" + subject, nil
}

// Caller is the authenticated identity behind a request, resolved once from
// the verified token and passed explicitly into every ledger call.
type Caller struct {
	Owner
	Role     string
	TenantID string
	Admin    bool
}

// Eligible applies IsEligible to the caller's classification.
func (c Caller) Eligible() bool {
	return IsEligible(c.Role, c.TenantID)
}
