package backend

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"github.com/xela07ax/libra-console/internal/domain"
	"github.com/xela07ax/libra-console/internal/infra"
	"github.com/xela07ax/libra-console/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Backend - контракт бэкенда библиотеки, который нужен workflow.
type Backend interface {
	FetchPending(ctx context.Context) ([]domain.BorrowRequest, error)
	SubmitDecision(ctx context.Context, d domain.Decision) error
}

// Guarded оборачивает Backend лимитером и предохранителем.
// Ретраев здесь нет: повтор решения делает только оператор, вручную.
type Guarded struct {
	next    Backend
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewGuarded собирает обёртку. onStateChange (может быть nil) получает true, когда предохранитель открыт.
func NewGuarded(next Backend, cfg infra.BackendConfig, m *metrics.Metrics, logger *zap.Logger, onStateChange func(open bool)) *Guarded {
	logger = logger.Named("backend-guard")
	if m == nil {
		m = metrics.New(nil)
	}

	failures := cfg.CBConsecutiveFailures
	if failures == 0 {
		failures = 5
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "library-backend",
		MaxRequests: cfg.CBMaxRequests,
		Interval:    cfg.CBInterval,
		Timeout:     cfg.CBTimeout, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Отказ бэкенда по данным - не поломка бэкенда
		IsSuccessful: func(err error) bool {
			return err == nil || domain.IsValidation(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			open := to == gobreaker.StateOpen
			state := 0.0
			if open {
				state = 1
			}
			m.CircuitBreakerState.WithLabelValues(name).Set(state)
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			if onStateChange != nil {
				onStateChange(open)
			}
		},
	})

	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &Guarded{
		next:    next,
		cb:      cb,
		limiter: rate.NewLimiter(limit, burst),
		metrics: m,
		logger:  logger,
	}
}

func (g *Guarded) FetchPending(ctx context.Context) ([]domain.BorrowRequest, error) {
	res, err := g.call(ctx, OpFetchPending, func() (interface{}, error) {
		return g.next.FetchPending(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.([]domain.BorrowRequest), nil
}

func (g *Guarded) SubmitDecision(ctx context.Context, d domain.Decision) error {
	_, err := g.call(ctx, OpSubmitDecision, func() (interface{}, error) {
		return nil, g.next.SubmitDecision(ctx, d)
	})
	return err
}

func (g *Guarded) call(ctx context.Context, op string, fn func() (interface{}, error)) (interface{}, error) {
	start := time.Now()

	// 1. Rate Limiter
	if err := g.limiter.Wait(ctx); err != nil {
		g.metrics.BackendErrors.WithLabelValues("rate_limit").Inc()
		return nil, &domain.TransportError{Op: op, Cause: err}
	}

	// 2. Circuit Breaker
	res, err := g.cb.Execute(fn)

	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		status = "breaker_open"
		g.metrics.BackendErrors.WithLabelValues(status).Inc()
		err = &domain.TransportError{Op: op, Cause: err}
	case domain.IsValidation(err):
		status = "validation"
		g.metrics.BackendErrors.WithLabelValues(status).Inc()
	default:
		status = "transport"
		g.metrics.BackendErrors.WithLabelValues(status).Inc()
	}
	g.metrics.BackendDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())

	return res, err
}
