package waitlist

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/seirennn/tradeworkstation-waitlist/internal/log"
	"github.com/seirennn/tradeworkstation-waitlist/internal/models"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/circuitbreaker"
	apperrors "github.com/seirennn/tradeworkstation-waitlist/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "waitlist.db")), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.ModelRegistry...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

func TestWaitlistRepository_CreateRecord(t *testing.T) {
	db := newTestDB(t)
	repo := NewWaitlistRepository(db, NewPersistenceBreaker(log.NewLoggerWithJSONOutput()))
	ctx := context.Background()

	record := &models.WaitlistRecord{Email: "trader@example.com"}
	require.NoError(t, repo.CreateRecord(ctx, record))
	assert.NotZero(t, record.ID)
	assert.False(t, record.CreatedAt.IsZero())

	err := repo.CreateRecord(ctx, &models.WaitlistRecord{Email: "trader@example.com"})
	assert.Equal(t, apperrors.ErrorTypeConflict, apperrors.GetErrorType(err))

	// Emails are stored exactly as submitted.
	require.NoError(t, repo.CreateRecord(ctx, &models.WaitlistRecord{Email: "Trader@Example.com"}))

	var count int64
	require.NoError(t, db.Model(&models.WaitlistRecord{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	err = repo.CreateRecord(ctx, nil)
	assert.Equal(t, apperrors.ErrorTypeInvalidRequest, apperrors.GetErrorType(err))
}

func TestWaitlistRepository_DuplicatesDoNotTripBreaker(t *testing.T) {
	breaker := NewPersistenceBreaker(log.NewLoggerWithJSONOutput())
	repo := NewWaitlistRepository(newTestDB(t), breaker)
	ctx := context.Background()

	require.NoError(t, repo.CreateRecord(ctx, &models.WaitlistRecord{Email: "a@b.co"}))
	for i := 0; i < 10; i++ {
		err := repo.CreateRecord(ctx, &models.WaitlistRecord{Email: "a@b.co"})
		require.Equal(t, apperrors.ErrorTypeConflict, apperrors.GetErrorType(err))
	}

	assert.Equal(t, circuitbreaker.Closed, breaker.State())
}

func TestWaitlistRepository_BreakerOpensOnStoreFailures(t *testing.T) {
	db := newTestDB(t)
	breaker := NewPersistenceBreaker(log.NewLoggerWithJSONOutput())
	repo := NewWaitlistRepository(db, breaker)
	ctx := context.Background()

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	for i := 0; i < circuitbreaker.DefaultConfig().FailureThreshold; i++ {
		err := repo.CreateRecord(ctx, &models.WaitlistRecord{Email: "a@b.co"})
		require.Equal(t, apperrors.ErrorTypeDatabaseError, apperrors.GetErrorType(err))
	}
	require.Equal(t, circuitbreaker.Open, breaker.State())

	err = repo.CreateRecord(ctx, &models.WaitlistRecord{Email: "a@b.co"})
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, apperrors.ErrorTypeDatabaseError, apperrors.GetErrorType(err))
}
