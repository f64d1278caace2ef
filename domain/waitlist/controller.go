package waitlist

import (
	"errors"
	"net/http"
	"runtime/debug"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/seirennn/tradeworkstation-waitlist/config/router"
	apperrors "github.com/seirennn/tradeworkstation-waitlist/pkg/errors"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/ratelimit"
)

const (
	outcomeAccepted    = "accepted"
	outcomeDuplicate   = "duplicate"
	outcomeInvalid     = "invalid"
	outcomeRateLimited = "rate_limited"
	outcomeError       = "error"
)

// NewJoinController mounts POST /api/join on top of service. The route skips the
// router-wide per-IP limiter because the service enforces the per-identity quota, and
// router rejections keep the {"error": ...} body clients expect.
func NewJoinController(service WaitlistService) *router.RESTController {
	return router.NewRESTController(
		"WaitlistController",
		"/api",
		func(rs *router.RouterService, c *router.RESTController) {
			submissions := newSubmissionCounter(rs.MetricsRegisterer())

			rs.AddPostHandler(c, nil, "join", joinHandler(service, submissions))
		},
		router.WithoutRouterRateLimit(),
		router.WithRejectionRenderer(renderJoinRejection),
	)
}

// renderJoinRejection maps router-level rejections onto the join contract. An oversized
// body is a malformed submission.
func renderJoinRejection(status int, _ string) (int, any) {
	switch status {
	case http.StatusTooManyRequests:
		return http.StatusTooManyRequests, ErrorResponse{Error: MessageRateLimited}
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return http.StatusBadRequest, ErrorResponse{Error: MessageInvalidEmail}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: MessageInternalError}
	}
}

func newSubmissionCounter(reg prometheus.Registerer) *prometheus.CounterVec {
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_submissions_total",
			Help: "Waitlist submissions by outcome.",
		},
		[]string{"outcome"},
	)

	if err := reg.Register(counter); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		panic(err)
	}

	return counter
}

func joinHandler(service WaitlistService, submissions *prometheus.CounterVec) router.HandlerFunction {
	return func(ctx *router.RequestContext) (result *router.ServiceResult) {
		logger := router.GetLogger(ctx)

		defer func() {
			if r := recover(); r != nil {
				logger.Error("Recovered from panic in join handler", "panic", r, "stack", string(debug.Stack()))
				submissions.WithLabelValues(outcomeError).Inc()
				result = router.RawResult(http.StatusInternalServerError, ErrorResponse{Error: MessageInternalError})
			}
		}()

		identity := ExtractIdentity(ctx.GetHeader("X-Forwarded-For"))

		var req *JoinRequest
		var body JoinRequest
		if err := ctx.ShouldBindJSON(&body); err != nil {
			logger.Info("Failed to bind join request", "identity", identity, "error", err)
		} else {
			req = &body
		}

		response, err := service.Join(ctx.Request.Context(), identity, req)
		if err != nil {
			status, outcome, message := classifyJoinError(err)

			var exceeded *ratelimit.ExceededError
			if errors.As(err, &exceeded) {
				ctx.Header("Retry-After", strconv.Itoa(exceeded.RetryAfterSeconds()))
			}

			submissions.WithLabelValues(outcome).Inc()
			return router.RawResult(status, ErrorResponse{Error: message})
		}

		if response.Duplicate {
			submissions.WithLabelValues(outcomeDuplicate).Inc()
		} else {
			submissions.WithLabelValues(outcomeAccepted).Inc()
		}

		return router.RawResult(http.StatusOK, response)
	}
}

// classifyJoinError collapses everything that is not a client error into the generic
// 500 body so store details never reach the caller.
func classifyJoinError(err error) (int, string, string) {
	switch apperrors.HTTPStatusCode(err) {
	case http.StatusTooManyRequests:
		return http.StatusTooManyRequests, outcomeRateLimited, MessageRateLimited
	case http.StatusBadRequest:
		return http.StatusBadRequest, outcomeInvalid, MessageInvalidEmail
	default:
		return http.StatusInternalServerError, outcomeError, MessageInternalError
	}
}
