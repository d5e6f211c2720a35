package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velotrack/workshop-api/internal/auth"
	"github.com/velotrack/workshop-api/internal/domain"
)

func TestRoleGateAdminBypass(t *testing.T) {
	gate := NewRoleGate(nil)
	admin := &auth.ActorContext{UserID: uuid.New(), Roles: []domain.RoleType{domain.RoleAdmin}}

	// Admins pass every check, including for stores they do not belong to
	assert.NoError(t, gate.CanAct(admin, uuid.New(), PermQuotationsCreate))
	assert.NoError(t, gate.CanAct(admin, uuid.New(), PermSweepsRun))
}

func TestRoleGateStoreOwnerBypass(t *testing.T) {
	gate := NewRoleGate(nil)
	storeID := uuid.New()
	owner := &auth.ActorContext{
		UserID:   uuid.New(),
		Roles:    []domain.RoleType{domain.RoleStoreOwner},
		StoreIDs: []uuid.UUID{storeID},
	}

	assert.NoError(t, gate.CanAct(owner, storeID, PermInvoicesCancel))
	assert.NoError(t, gate.CanAct(owner, storeID, PermSweepsRun))

	var fErr *domain.ForbiddenError
	err := gate.CanAct(owner, uuid.New(), PermInvoicesCancel)
	require.ErrorAs(t, err, &fErr, "owner bypass must not extend to other stores")
}

func TestRoleGateStaffPermissions(t *testing.T) {
	gate := NewRoleGate(nil)
	storeID := uuid.New()
	staff := &auth.ActorContext{
		UserID:   uuid.New(),
		Roles:    []domain.RoleType{domain.RoleStoreStaff},
		StoreIDs: []uuid.UUID{storeID},
	}

	assert.NoError(t, gate.CanAct(staff, storeID, PermQuotationsCreate))
	assert.NoError(t, gate.CanAct(staff, storeID, PermPaymentsRecord))

	var fErr *domain.ForbiddenError
	assert.ErrorAs(t, gate.CanAct(staff, storeID, PermInvoicesCancel), &fErr)
	assert.ErrorAs(t, gate.CanAct(staff, storeID, PermSweepsRun), &fErr)
	assert.ErrorAs(t, gate.CanAct(staff, uuid.New(), PermQuotationsCreate), &fErr, "membership is required")
}

func TestRoleGateCustomer(t *testing.T) {
	gate := NewRoleGate(nil)
	customer := &auth.ActorContext{UserID: uuid.New(), Roles: []domain.RoleType{domain.RoleCustomer}}

	// Customers read documents without store membership; ownership is
	// checked downstream by the services
	assert.NoError(t, gate.CanAct(customer, uuid.New(), PermQuotationsRead))

	var fErr *domain.ForbiddenError
	assert.ErrorAs(t, gate.CanAct(customer, uuid.New(), PermQuotationsCreate), &fErr)
	assert.ErrorAs(t, gate.CanAct(customer, uuid.New(), PermPaymentsRecord), &fErr)
}

func TestRoleGateConfigOverrides(t *testing.T) {
	gate := NewRoleGate(map[string][]string{
		"store_staff": {"invoices:cancel"},
		"janitor":     {"quotations:create"}, // unknown role, ignored
	})
	storeID := uuid.New()
	staff := &auth.ActorContext{
		UserID:   uuid.New(),
		Roles:    []domain.RoleType{domain.RoleStoreStaff},
		StoreIDs: []uuid.UUID{storeID},
	}

	// The override replaces the default set wholesale
	assert.NoError(t, gate.CanAct(staff, storeID, PermInvoicesCancel))

	var fErr *domain.ForbiddenError
	assert.ErrorAs(t, gate.CanAct(staff, storeID, PermQuotationsCreate), &fErr)
}

func TestRoleGateNilActor(t *testing.T) {
	gate := NewRoleGate(nil)

	var fErr *domain.ForbiddenError
	assert.ErrorAs(t, gate.CanAct(nil, uuid.New(), PermQuotationsRead), &fErr)
}
