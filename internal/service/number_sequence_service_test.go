package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/velotrack/workshop-api/internal/repository"
	"github.com/velotrack/workshop-api/internal/service"
)

func TestNumberSequenceService_GenerateNumbers(t *testing.T) {
	db := setupTestDB(t)
	fixtures := &testFixtures{db: db}
	t.Cleanup(func() { fixtures.cleanup(t) })

	svc := service.NewNumberSequenceService(repository.NewNumberSequenceRepository(db), zap.NewNop())
	ctx := context.Background()
	year := time.Now().Year()

	t.Run("quotation numbers increment per year", func(t *testing.T) {
		first, err := svc.GenerateQuotationNumber(ctx)
		require.NoError(t, err)
		second, err := svc.GenerateQuotationNumber(ctx)
		require.NoError(t, err)

		assert.Equal(t, fmt.Sprintf("Q-%d-0001", year), first)
		assert.Equal(t, fmt.Sprintf("Q-%d-0002", year), second)
	})

	t.Run("invoice numbers use their own sequence", func(t *testing.T) {
		number, err := svc.GenerateInvoiceNumber(ctx)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("INV-%d-0001", year), number)
	})

	t.Run("concurrent generation never duplicates", func(t *testing.T) {
		const n = 10
		numbers := make(chan string, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				number, err := svc.GenerateQuotationNumber(ctx)
				assert.NoError(t, err)
				numbers <- number
			}()
		}
		wg.Wait()
		close(numbers)

		seen := make(map[string]bool)
		for number := range numbers {
			assert.False(t, seen[number], "duplicate number %s", number)
			seen[number] = true
		}
	})
}
