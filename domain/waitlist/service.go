package waitlist

//go:generate mockgen -destination=mock_limiter.go -package=waitlist github.com/seirennn/tradeworkstation-waitlist/pkg/ratelimit WindowLimiter

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/seirennn/tradeworkstation-waitlist/internal/log"
	apperrors "github.com/seirennn/tradeworkstation-waitlist/pkg/errors"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/ratelimit"
)

var errEmptySubmission = errors.New("submission body is empty or unreadable")

type WaitlistService interface {
	// Join runs one submission through the quota check, validation and persistence.
	// A nil req means the body could not be decoded; it still consumes quota.
	Join(ctx context.Context, identity string, req *JoinRequest) (*JoinResponse, error)
}

type waitlistService struct {
	logger     *log.Logger
	repository WaitlistRepository
	limiter    ratelimit.WindowLimiter
	validate   *validator.Validate
}

func NewWaitlistService(logger *log.Logger, repository WaitlistRepository, limiter ratelimit.WindowLimiter) WaitlistService {
	return &waitlistService{
		logger:     logger,
		repository: repository,
		limiter:    limiter,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *waitlistService) Join(ctx context.Context, identity string, req *JoinRequest) (*JoinResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if err := s.checkQuota(ctx, logger, identity); err != nil {
		return nil, err
	}

	if err := s.validateRequest(req); err != nil {
		logger.Info("Rejected waitlist submission",
			"identity", identity,
			"validation_errors", apperrors.FormatValidationErrors(err, req),
		)
		return nil, apperrors.NewInvalidRequestError(MessageInvalidEmail, err)
	}

	if err := s.repository.CreateRecord(ctx, ToWaitlistRecord(req)); err != nil {
		if apperrors.GetErrorType(err) == apperrors.ErrorTypeConflict {
			logger.Info("Waitlist submission already on the list", "identity", identity)
			return &JoinResponse{Message: MessageAlreadyJoined, Duplicate: true}, nil
		}

		logger.Error("Failed to persist waitlist submission", "identity", identity, "error", err)
		return nil, apperrors.NewInternalServerError(MessageInternalError, err)
	}

	logger.Info("Waitlist submission accepted", "identity", identity)
	return &JoinResponse{Message: MessageJoined}, nil
}

// checkQuota fails open when the limiter itself errors.
func (s *waitlistService) checkQuota(ctx context.Context, logger *log.Logger, identity string) error {
	decision, err := s.limiter.Allow(ctx, identity)
	if err != nil {
		logger.Warn("Waitlist rate limiter error, allowing submission", "identity", identity, "error", err)
		return nil
	}

	if decision.Allowed {
		return nil
	}

	limit, window := s.limiter.GetLimitDetails()
	logger.Warn("Waitlist submission rate limited",
		"identity", identity,
		"count", decision.Count,
		"reset_at", decision.ResetAt,
		"retry_after", decision.RetryAfter,
	)

	return apperrors.NewRateLimitExceededError(MessageRateLimited, &ratelimit.ExceededError{
		Identity:   identity,
		Limit:      limit,
		Window:     window,
		ResetAt:    decision.ResetAt,
		RetryAfter: decision.RetryAfter,
	})
}

func (s *waitlistService) validateRequest(req *JoinRequest) error {
	if req == nil {
		return errEmptySubmission
	}
	return s.validate.Struct(req)
}
