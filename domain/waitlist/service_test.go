package waitlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/seirennn/tradeworkstation-waitlist/internal/log"
	"github.com/seirennn/tradeworkstation-waitlist/internal/models"
	apperrors "github.com/seirennn/tradeworkstation-waitlist/pkg/errors"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	testingclock "k8s.io/utils/clock/testing"
)

func newJoinLimiter(t *testing.T, fakeClock *testingclock.FakeClock, maxEntries int) *ratelimit.MemoryWindowLimiter {
	t.Helper()

	limiter, err := ratelimit.NewMemoryWindowLimiter(ratelimit.WindowConfig{
		MaxAttempts: 5,
		Window:      30 * time.Minute,
		MaxEntries:  maxEntries,
		Clock:       fakeClock,
	})
	require.NoError(t, err)
	return limiter
}

func newTestClock() *testingclock.FakeClock {
	return testingclock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestWaitlistService_Join(t *testing.T) {
	logger := log.NewLoggerWithJSONOutput()

	t.Run("accepted submission is stored as submitted", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockRepo := NewMockWaitlistRepository(ctrl)
		service := NewWaitlistService(logger, mockRepo, newJoinLimiter(t, newTestClock(), 500))

		mockRepo.EXPECT().
			CreateRecord(gomock.Any(), &models.WaitlistRecord{Email: "Trader@Example.com"}).
			Return(nil)

		result, err := service.Join(context.Background(), "203.0.113.7", &JoinRequest{Email: "Trader@Example.com"})

		require.NoError(t, err)
		assert.Equal(t, MessageJoined, result.Message)
		assert.False(t, result.Duplicate)
	})

	t.Run("duplicate email is reported as success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockRepo := NewMockWaitlistRepository(ctrl)
		service := NewWaitlistService(logger, mockRepo, newJoinLimiter(t, newTestClock(), 500))

		mockRepo.EXPECT().
			CreateRecord(gomock.Any(), gomock.Any()).
			Return(apperrors.NewConflictError("email is already on the waitlist", nil))

		result, err := service.Join(context.Background(), "203.0.113.7", &JoinRequest{Email: "a@b.co"})

		require.NoError(t, err)
		assert.Equal(t, MessageAlreadyJoined, result.Message)
		assert.True(t, result.Duplicate)
	})

	t.Run("store failure maps to internal error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockRepo := NewMockWaitlistRepository(ctrl)
		service := NewWaitlistService(logger, mockRepo, newJoinLimiter(t, newTestClock(), 500))

		storeErr := errors.New("connection reset by peer")
		mockRepo.EXPECT().
			CreateRecord(gomock.Any(), gomock.Any()).
			Return(apperrors.NewDatabaseError("unable to create waitlist record", storeErr))

		result, err := service.Join(context.Background(), "203.0.113.7", &JoinRequest{Email: "a@b.co"})

		assert.Nil(t, result)
		assert.Equal(t, apperrors.ErrorTypeInternalServerError, apperrors.GetErrorType(err))
		assert.Equal(t, MessageInternalError, apperrors.GetHumanReadableMessage(err))
		assert.ErrorIs(t, err, storeErr)
	})

	t.Run("invalid email is rejected without touching the store", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockRepo := NewMockWaitlistRepository(ctrl)
		service := NewWaitlistService(logger, mockRepo, newJoinLimiter(t, newTestClock(), 500))

		for _, req := range []*JoinRequest{{Email: "not-an-email"}, {Email: ""}, nil} {
			result, err := service.Join(context.Background(), "203.0.113.7", req)

			assert.Nil(t, result)
			assert.Equal(t, apperrors.StatusBadRequest, apperrors.HTTPStatusCode(err))
			assert.Equal(t, MessageInvalidEmail, apperrors.GetHumanReadableMessage(err))
		}
	})
}

func TestWaitlistService_Join_InvalidSubmissionsConsumeQuota(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := NewMockWaitlistRepository(ctrl)
	limiter := newJoinLimiter(t, newTestClock(), 500)
	service := NewWaitlistService(log.NewLoggerWithJSONOutput(), mockRepo, limiter)

	for i := 0; i < 5; i++ {
		_, err := service.Join(context.Background(), "198.51.100.1", &JoinRequest{Email: "not-an-email"})
		require.Equal(t, apperrors.StatusBadRequest, apperrors.HTTPStatusCode(err))
	}

	// A valid email is now rejected by the quota before validation or persistence.
	_, err := service.Join(context.Background(), "198.51.100.1", &JoinRequest{Email: "a@b.co"})
	assert.Equal(t, apperrors.StatusTooManyRequests, apperrors.HTTPStatusCode(err))
}

func TestWaitlistService_Join_RateLimitedCarriesResetTime(t *testing.T) {
	fakeClock := newTestClock()
	ctrl := gomock.NewController(t)
	mockRepo := NewMockWaitlistRepository(ctrl)
	service := NewWaitlistService(log.NewLoggerWithJSONOutput(), mockRepo, newJoinLimiter(t, fakeClock, 500))

	mockRepo.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).Return(nil).Times(5)

	for i := 0; i < 5; i++ {
		_, err := service.Join(context.Background(), "198.51.100.2", &JoinRequest{Email: "a@b.co"})
		require.NoError(t, err)
	}

	_, err := service.Join(context.Background(), "198.51.100.2", &JoinRequest{Email: "a@b.co"})
	require.Error(t, err)
	assert.Equal(t, MessageRateLimited, apperrors.GetHumanReadableMessage(err))

	var exceeded *ratelimit.ExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, fakeClock.Now().Add(30*time.Minute), exceeded.ResetAt)
	assert.Equal(t, 30*time.Minute, exceeded.RetryAfter)
	assert.Equal(t, 5, exceeded.Limit)

	// The window opens again once it has elapsed.
	fakeClock.Step(30 * time.Minute)
	mockRepo.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).Return(nil)

	result, err := service.Join(context.Background(), "198.51.100.2", &JoinRequest{Email: "a@b.co"})
	require.NoError(t, err)
	assert.Equal(t, MessageJoined, result.Message)
}

func TestWaitlistService_Join_LimiterErrorFailsOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := NewMockWaitlistRepository(ctrl)
	mockLimiter := NewMockWindowLimiter(ctrl)
	service := NewWaitlistService(log.NewLoggerWithJSONOutput(), mockRepo, mockLimiter)

	mockLimiter.EXPECT().
		Allow(gomock.Any(), "203.0.113.50").
		Return(ratelimit.Decision{}, errors.New("rate limiter Redis error: connection refused"))
	mockRepo.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).Return(nil)

	result, err := service.Join(context.Background(), "203.0.113.50", &JoinRequest{Email: "a@b.co"})

	require.NoError(t, err)
	assert.Equal(t, MessageJoined, result.Message)
}

func TestWaitlistService_Join_DeniedDecisionFromLimiter(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := NewMockWaitlistRepository(ctrl)
	mockLimiter := NewMockWindowLimiter(ctrl)
	service := NewWaitlistService(log.NewLoggerWithJSONOutput(), mockRepo, mockLimiter)

	resetAt := time.Now().Add(10 * time.Minute)
	mockLimiter.EXPECT().Allow(gomock.Any(), "unknown").Return(ratelimit.Decision{Allowed: false, Count: 5, ResetAt: resetAt}, nil)
	mockLimiter.EXPECT().GetLimitDetails().Return(5, 30*time.Minute)

	_, err := service.Join(context.Background(), "unknown", &JoinRequest{Email: "a@b.co"})

	assert.Equal(t, apperrors.ErrorTypeRateLimitExceeded, apperrors.GetErrorType(err))
}
