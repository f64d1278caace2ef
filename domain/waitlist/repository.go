package waitlist

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=waitlist

import (
	"context"
	"errors"

	"github.com/seirennn/tradeworkstation-waitlist/internal/log"
	"github.com/seirennn/tradeworkstation-waitlist/internal/models"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/circuitbreaker"
	apperrors "github.com/seirennn/tradeworkstation-waitlist/pkg/errors"
	"gorm.io/gorm"
)

type WaitlistRepository interface {
	// CreateRecord inserts a waitlist record. An email that is already stored yields
	// a CONFLICT AppError.
	CreateRecord(ctx context.Context, record *models.WaitlistRecord) error
}

type waitlistRepository struct {
	db      *gorm.DB
	breaker circuitbreaker.CircuitBreaker
}

func NewWaitlistRepository(db *gorm.DB, breaker circuitbreaker.CircuitBreaker) WaitlistRepository {
	return &waitlistRepository{db: db, breaker: breaker}
}

// NewPersistenceBreaker opens after repeated store failures. Duplicates and cancelled
// requests are not failures.
func NewPersistenceBreaker(logger *log.Logger) circuitbreaker.CircuitBreaker {
	cfg := circuitbreaker.DefaultConfig()
	cfg.IsFailure = func(err error) bool {
		return err != nil && !isDuplicateKey(err) && !errors.Is(err, context.Canceled)
	}
	cfg.OnStateChange = func(from, to circuitbreaker.CircuitState) {
		if to == circuitbreaker.Open {
			logger.Error("Waitlist store circuit opened", "from", from.String(), "recovery_timeout", cfg.RecoveryTimeout.String())
			return
		}
		logger.Info("Waitlist store circuit state changed", "from", from.String(), "to", to.String())
	}
	return circuitbreaker.NewCircuitBreaker(cfg)
}

func (wr *waitlistRepository) CreateRecord(ctx context.Context, record *models.WaitlistRecord) error {
	if record == nil {
		return apperrors.NewInvalidRequestError("record cannot be nil", nil)
	}

	err := wr.breaker.Call(func() error {
		return wr.db.WithContext(ctx).Create(record).Error
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return apperrors.NewDatabaseError("waitlist store is unavailable", err)
	case isDuplicateKey(err):
		return apperrors.NewConflictError("email is already on the waitlist", err)
	default:
		return apperrors.NewDatabaseError("unable to create waitlist record", err)
	}
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || apperrors.IsDuplicateKeyError(err)
}
