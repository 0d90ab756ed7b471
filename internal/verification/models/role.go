package models

import (
	"strings"

	dErrors "verigate/pkg/domain-errors"
)

// Role is a capability a user can be verified for and act as.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleMerchant Role = "merchant"
	RoleDriver   Role = "driver"
)

// AllRoles lists every known role in display order.
func AllRoles() []Role {
	return []Role{RoleCustomer, RoleMerchant, RoleDriver}
}

func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleMerchant, RoleDriver:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole normalizes and validates a role name.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !r.IsValid() {
		return "", UnknownRoleError(raw)
	}
	return r, nil
}

// UnknownRoleError is returned for role names outside AllRoles.
func UnknownRoleError(raw string) error {
	return dErrors.New(dErrors.CodeValidation, "unknown role").
		WithReason(ReasonUnknownRole).
		WithDetail("role", raw)
}
