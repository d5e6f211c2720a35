package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestQuotationStatusHelpers(t *testing.T) {
	tests := []struct {
		status   QuotationStatus
		valid    bool
		editable bool
		terminal bool
		active   bool
	}{
		{QuotationStatusDraft, true, true, false, true},
		{QuotationStatusSent, true, true, false, true},
		{QuotationStatusApproved, true, false, true, false},
		{QuotationStatusRejected, true, false, true, false},
		{QuotationStatusExpired, true, false, true, false},
		{QuotationStatus("unknown"), false, false, false, false},
	}

	for _, tc := range tests {
		t.Run(string(tc.status), func(t *testing.T) {
			if got := tc.status.IsValid(); got != tc.valid {
				t.Errorf("IsValid() = %v, want %v", got, tc.valid)
			}
			if got := tc.status.IsEditable(); got != tc.editable {
				t.Errorf("IsEditable() = %v, want %v", got, tc.editable)
			}
			if got := tc.status.IsTerminal(); got != tc.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tc.terminal)
			}
			if got := tc.status.IsActive(); got != tc.active {
				t.Errorf("IsActive() = %v, want %v", got, tc.active)
			}
		})
	}
}

func TestPaymentStatusHelpers(t *testing.T) {
	tests := []struct {
		status   PaymentStatus
		valid    bool
		terminal bool
		accepts  bool
	}{
		{PaymentStatusPending, true, false, true},
		{PaymentStatusPartial, true, false, true},
		{PaymentStatusOverdue, true, false, true},
		{PaymentStatusPaid, true, true, false},
		{PaymentStatusCancelled, true, true, false},
		{PaymentStatus("unknown"), false, false, false},
	}

	for _, tc := range tests {
		t.Run(string(tc.status), func(t *testing.T) {
			if got := tc.status.IsValid(); got != tc.valid {
				t.Errorf("IsValid() = %v, want %v", got, tc.valid)
			}
			if got := tc.status.IsTerminal(); got != tc.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tc.terminal)
			}
			if got := tc.status.AcceptsPayments(); got != tc.accepts {
				t.Errorf("AcceptsPayments() = %v, want %v", got, tc.accepts)
			}
		})
	}
}

func TestQuotationIsExpiredAt(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		validUntil time.Time
		expired    bool
	}{
		{"window still open", now.Add(time.Hour), false},
		{"window just passed", now.Add(-time.Second), true},
		{"boundary is not expired", now, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := &Quotation{ValidUntil: tc.validUntil}
			if got := q.IsExpiredAt(now); got != tc.expired {
				t.Errorf("IsExpiredAt() = %v, want %v", got, tc.expired)
			}
		})
	}
}

func TestInvoiceRemainingAmount(t *testing.T) {
	tests := []struct {
		name     string
		total    string
		paid     string
		expected string
	}{
		{"nothing paid", "81.00", "0", "81"},
		{"partially paid", "81.00", "50.00", "31"},
		{"fully paid", "81.00", "81.00", "0"},
		{"overpaid clamps to zero", "81.00", "90.00", "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inv := &Invoice{
				Total:      decimal.RequireFromString(tc.total),
				PaidAmount: decimal.RequireFromString(tc.paid),
			}
			if got := inv.RemainingAmount(); !got.Equal(decimal.RequireFromString(tc.expected)) {
				t.Errorf("RemainingAmount() = %s, want %s", got, tc.expected)
			}
		})
	}
}

func TestInvoiceIsOverdue(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		status  PaymentStatus
		dueDate time.Time
		overdue bool
	}{
		{"pending before due date", PaymentStatusPending, now.Add(24 * time.Hour), false},
		{"pending past due date", PaymentStatusPending, now.Add(-24 * time.Hour), true},
		{"partial past due date", PaymentStatusPartial, now.Add(-24 * time.Hour), true},
		{"flagged overdue regardless of date", PaymentStatusOverdue, now.Add(24 * time.Hour), true},
		{"paid never overdue", PaymentStatusPaid, now.Add(-24 * time.Hour), false},
		{"cancelled never overdue", PaymentStatusCancelled, now.Add(-24 * time.Hour), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inv := &Invoice{PaymentStatus: tc.status, DueDate: tc.dueDate}
			if got := inv.IsOverdue(now); got != tc.overdue {
				t.Errorf("IsOverdue() = %v, want %v", got, tc.overdue)
			}
		})
	}
}

func TestInvoiceIsDueSoon(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		status  PaymentStatus
		dueDate time.Time
		dueSoon bool
	}{
		{"due in two days", PaymentStatusPending, now.Add(48 * time.Hour), true},
		{"due in a week", PaymentStatusPending, now.Add(7 * 24 * time.Hour), false},
		{"already past due", PaymentStatusPending, now.Add(-time.Hour), false},
		{"paid is never due soon", PaymentStatusPaid, now.Add(48 * time.Hour), false},
		{"cancelled is never due soon", PaymentStatusCancelled, now.Add(48 * time.Hour), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inv := &Invoice{PaymentStatus: tc.status, DueDate: tc.dueDate}
			if got := inv.IsDueSoon(now, 3); got != tc.dueSoon {
				t.Errorf("IsDueSoon() = %v, want %v", got, tc.dueSoon)
			}
		})
	}
}

func TestRoleTypeIsValid(t *testing.T) {
	for _, role := range []RoleType{RoleAdmin, RoleStoreOwner, RoleStoreStaff, RoleCustomer} {
		if !role.IsValid() {
			t.Errorf("IsValid(%q) = false, want true", role)
		}
	}
	if RoleType("superuser").IsValid() {
		t.Error("IsValid(superuser) = true, want false")
	}
}
