// Package authz implements the store-scoped permission gate consulted by the
// billing services before any mutating operation.
package authz

import (
	"github.com/google/uuid"
	"github.com/velotrack/workshop-api/internal/auth"
	"github.com/velotrack/workshop-api/internal/domain"
)

// Permission names an action that can be gated per role
type Permission string

const (
	PermQuotationsCreate Permission = "quotations:create"
	PermQuotationsRead   Permission = "quotations:read"
	PermQuotationsUpdate Permission = "quotations:update"
	PermQuotationsSend   Permission = "quotations:send"
	PermInvoicesCreate   Permission = "invoices:create"
	PermInvoicesRead     Permission = "invoices:read"
	PermInvoicesUpdate   Permission = "invoices:update"
	PermInvoicesCancel   Permission = "invoices:cancel"
	PermPaymentsRecord   Permission = "payments:record"
	PermSweepsRun        Permission = "sweeps:run"
)

// Gate decides whether an actor may perform an action against a store
type Gate interface {
	// CanAct returns nil when the action is allowed and a ForbiddenError
	// otherwise
	CanAct(actor *auth.ActorContext, storeID uuid.UUID, perm Permission) error
}

// DefaultRolePermissions is the built-in role to permission mapping, used
// when configuration does not override a role
var DefaultRolePermissions = map[domain.RoleType][]Permission{
	domain.RoleStoreStaff: {
		PermQuotationsCreate, PermQuotationsRead, PermQuotationsUpdate, PermQuotationsSend,
		PermInvoicesCreate, PermInvoicesRead, PermInvoicesUpdate,
		PermPaymentsRecord,
	},
	domain.RoleCustomer: {
		PermQuotationsRead,
		PermInvoicesRead,
	},
}

// RoleGate grants permissions per role. Admins bypass all checks, store
// owners bypass checks for stores they belong to, everyone else needs both
// store membership and a role carrying the permission.
type RoleGate struct {
	rolePermissions map[domain.RoleType]map[Permission]bool
}

// NewRoleGate builds a gate from a role to permission mapping, typically
// loaded from configuration. Roles absent from the mapping fall back to
// DefaultRolePermissions.
func NewRoleGate(overrides map[string][]string) *RoleGate {
	perms := make(map[domain.RoleType]map[Permission]bool)
	for role, list := range DefaultRolePermissions {
		perms[role] = permissionSet(list)
	}
	for roleName, list := range overrides {
		role := domain.RoleType(roleName)
		if !role.IsValid() {
			continue
		}
		set := make(map[Permission]bool, len(list))
		for _, p := range list {
			set[Permission(p)] = true
		}
		perms[role] = set
	}
	return &RoleGate{rolePermissions: perms}
}

func permissionSet(list []Permission) map[Permission]bool {
	set := make(map[Permission]bool, len(list))
	for _, p := range list {
		set[p] = true
	}
	return set
}

// CanAct implements Gate
func (g *RoleGate) CanAct(actor *auth.ActorContext, storeID uuid.UUID, perm Permission) error {
	if actor == nil {
		return domain.NewForbiddenError("no authenticated actor")
	}
	if actor.IsAdmin() {
		return nil
	}

	// Customers act on their own documents; ownership is enforced by the
	// services, so membership in the store is not required for them.
	if !actor.HasRole(domain.RoleCustomer) && !actor.IsMemberOf(storeID) {
		return domain.NewForbiddenError("actor does not belong to this store")
	}

	if actor.HasRole(domain.RoleStoreOwner) && actor.IsMemberOf(storeID) {
		return nil
	}

	for _, role := range actor.Roles {
		if g.rolePermissions[role][perm] {
			return nil
		}
	}
	return domain.NewForbiddenError("insufficient permissions for " + string(perm))
}
