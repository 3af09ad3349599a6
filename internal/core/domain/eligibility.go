package domain

import "strings"

const (
	RoleVendor  = "vendor"
	RoleMember  = "member"
	RoleStartup = "startup"

	TenantVendor  = "vendor"
	TenantBasic   = "basic"
	TenantStartup = "startup"

	// DefaultRole and DefaultTenant stand in for absent classification.
	DefaultRole   = RoleMember
	DefaultTenant = TenantVendor
)

var (
	eligibleRoles = map[string]struct{}{
		RoleVendor:  {},
		RoleMember:  {},
		RoleStartup: {},
	}
	eligibleTenants = map[string]struct{}{
		TenantVendor:  {},
		TenantBasic:   {},
		TenantStartup: {},
	}
)

// NormalizeRole trims and lower-cases role. An empty role becomes
// DefaultRole; anything else is returned as-is so unknown roles stay unknown.
func NormalizeRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if r == "" {
		return DefaultRole
	}
	return r
}

// NormalizeTenant is NormalizeRole for tenants, defaulting to DefaultTenant.
func NormalizeTenant(tenant string) string {
	t := strings.ToLower(strings.TrimSpace(tenant))
	if t == "" {
		return DefaultTenant
	}
	return t
}

// IsEligible reports whether the (role, tenant) pair may hold and spend a
// wallet. Both must be recognised.
func IsEligible(role, tenant string) bool {
	_, roleOK := eligibleRoles[NormalizeRole(role)]
	_, tenantOK := eligibleTenants[NormalizeTenant(tenant)]
	return roleOK && tenantOK
}
