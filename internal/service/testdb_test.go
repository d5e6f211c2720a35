package service_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/velotrack/workshop-api/internal/auth"
	"github.com/velotrack/workshop-api/internal/authz"
	"github.com/velotrack/workshop-api/internal/database"
	"github.com/velotrack/workshop-api/internal/domain"
	"github.com/velotrack/workshop-api/internal/repository"
	"github.com/velotrack/workshop-api/internal/service"
)

// Integration tests for the lifecycle services.
// Requires a running PostgreSQL database; skipped when unavailable.

func setupTestDB(t *testing.T) *gorm.DB {
	host := getEnvOrDefault("DATABASE_HOST", "localhost")
	port := getEnvOrDefault("DATABASE_PORT", "5432")
	user := getEnvOrDefault("DATABASE_USER", "workshop_user")
	password := getEnvOrDefault("DATABASE_PASSWORD", "workshop_password")
	dbname := getEnvOrDefault("DATABASE_NAME", "workshop_test")

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		host, port, user, password, dbname)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Skipf("Skipping integration test: database not available: %v", err)
	}
	if err := db.Exec("SELECT 1").Error; err != nil {
		t.Skipf("Skipping integration test: database not reachable: %v", err)
	}

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func setupServices(t *testing.T, db *gorm.DB) (*service.QuotationService, *service.InvoiceService, *testFixtures) {
	log := zap.NewNop()

	quotationRepo := repository.NewQuotationRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	requestRepo := repository.NewServiceRequestRepository(db)
	recordRepo := repository.NewServiceRecordRepository(db)
	numberSequenceRepo := repository.NewNumberSequenceRepository(db)

	numberSvc := service.NewNumberSequenceService(numberSequenceRepo, log)
	gate := authz.NewRoleGate(nil)

	quotationSvc := service.NewQuotationService(db, quotationRepo, requestRepo, numberSvc, gate, 30, log)
	invoiceSvc := service.NewInvoiceService(db, invoiceRepo, recordRepo, quotationRepo, numberSvc, gate, 14, log)

	fixtures := &testFixtures{db: db}
	t.Cleanup(func() { fixtures.cleanup(t) })

	return quotationSvc, invoiceSvc, fixtures
}

type testFixtures struct {
	db *gorm.DB
}

func (f *testFixtures) createUser(t *testing.T, roles ...domain.RoleType) *domain.User {
	roleStrings := make(pq.StringArray, len(roles))
	for i, r := range roles {
		roleStrings[i] = string(r)
	}
	user := &domain.User{
		Email:       fmt.Sprintf("user-%s@test.velotrack.io", uuid.New().String()[:8]),
		DisplayName: "Test User",
		Roles:       roleStrings,
		IsActive:    true,
	}
	require.NoError(t, repository.NewUserRepository(f.db).Create(context.Background(), user))
	return user
}

func (f *testFixtures) createStore(t *testing.T, ownerID uuid.UUID) *domain.Store {
	store := &domain.Store{
		Name:     "Test Workshop",
		OwnerID:  ownerID,
		Email:    "shop@test.velotrack.io",
		IsActive: true,
	}
	require.NoError(t, repository.NewStoreRepository(f.db).Create(context.Background(), store))
	return store
}

func (f *testFixtures) createServiceRequest(t *testing.T, storeID, customerID uuid.UUID, status domain.ServiceRequestStatus) *domain.ServiceRequest {
	request := &domain.ServiceRequest{
		StoreID:     storeID,
		CustomerID:  customerID,
		BikeID:      uuid.New(),
		Description: "Test brake adjustment",
		Status:      status,
	}
	require.NoError(t, f.db.Create(request).Error)
	return request
}

func (f *testFixtures) createServiceRecord(t *testing.T, storeID, requestID uuid.UUID, status domain.ServiceRecordStatus) *domain.ServiceRecord {
	record := &domain.ServiceRecord{
		StoreID:          storeID,
		ServiceRequestID: requestID,
		TechnicianID:     uuid.New(),
		Status:           status,
	}
	if status == domain.ServiceRecordStatusCompleted {
		now := time.Now()
		record.CompletedAt = &now
	}
	require.NoError(t, f.db.Create(record).Error)
	return record
}

// forceValidUntil moves a quotation's validity window, bypassing the service
// so lapsed states can be simulated
func (f *testFixtures) forceValidUntil(t *testing.T, quotationID uuid.UUID, validUntil time.Time) {
	require.NoError(t, f.db.Exec("UPDATE quotations SET valid_until = ? WHERE id = ?", validUntil, quotationID).Error)
}

// forceDueDate moves an invoice's due date, bypassing the service
func (f *testFixtures) forceDueDate(t *testing.T, invoiceID uuid.UUID, dueDate time.Time) {
	require.NoError(t, f.db.Exec("UPDATE invoices SET due_date = ? WHERE id = ?", dueDate, invoiceID).Error)
}

func (f *testFixtures) requestStatus(t *testing.T, requestID uuid.UUID) domain.ServiceRequestStatus {
	var request domain.ServiceRequest
	require.NoError(t, f.db.First(&request, "id = ?", requestID).Error)
	return request.Status
}

func (f *testFixtures) cleanup(t *testing.T) {
	tables := []string{
		"invoices",
		"quotations",
		"service_records",
		"service_requests",
		"number_sequences",
		"stores",
		"users",
	}
	for _, table := range tables {
		if err := f.db.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			t.Logf("Note: could not clean table %s: %v", table, err)
		}
	}
}

func staffContext(userID uuid.UUID, storeIDs ...uuid.UUID) context.Context {
	return auth.WithActorContext(context.Background(), &auth.ActorContext{
		UserID:      userID,
		DisplayName: "Staff User",
		Email:       "staff@test.velotrack.io",
		Roles:       []domain.RoleType{domain.RoleStoreStaff},
		StoreIDs:    storeIDs,
	})
}

func customerContext(userID uuid.UUID) context.Context {
	return auth.WithActorContext(context.Background(), &auth.ActorContext{
		UserID:      userID,
		DisplayName: "Customer User",
		Email:       "customer@test.velotrack.io",
		Roles:       []domain.RoleType{domain.RoleCustomer},
	})
}

func adminContext() context.Context {
	return auth.WithActorContext(context.Background(), &auth.ActorContext{
		UserID:      uuid.New(),
		DisplayName: "Admin User",
		Email:       "admin@test.velotrack.io",
		Roles:       []domain.RoleType{domain.RoleAdmin},
	})
}
