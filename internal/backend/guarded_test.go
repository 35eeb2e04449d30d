package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/libra-console/internal/domain"
	"github.com/xela07ax/libra-console/internal/infra"
	"github.com/xela07ax/libra-console/internal/metrics"
	"go.uber.org/zap"
)

// scriptedBackend возвращает заданную ошибку и считает вызовы
type scriptedBackend struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (s *scriptedBackend) FetchPending(_ context.Context) ([]domain.BorrowRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []domain.BorrowRequest{{ID: "1", Status: domain.StatusPending}}, nil
}

func (s *scriptedBackend) SubmitDecision(_ context.Context, _ domain.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

func guardConfig() infra.BackendConfig {
	return infra.BackendConfig{
		CBMaxRequests:         1,
		CBTimeout:             time.Minute,
		CBConsecutiveFailures: 3,
	}
}

func TestGuarded_PassThrough(t *testing.T) {
	next := &scriptedBackend{}
	g := NewGuarded(next, guardConfig(), nil, zap.NewNop(), nil)

	got, err := g.FetchPending(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.NoError(t, g.SubmitDecision(context.Background(), domain.Decision{RequestID: "1"}))
	assert.Equal(t, 2, next.calls)
}

func TestGuarded_BreakerOpensOnTransportFailures(t *testing.T) {
	next := &scriptedBackend{err: &domain.TransportError{Op: OpSubmitDecision, StatusCode: 502, Cause: errors.New("bad gateway")}}
	m := metrics.New(prometheus.NewRegistry())

	var mu sync.Mutex
	var states []bool
	g := NewGuarded(next, guardConfig(), m, zap.NewNop(), func(open bool) {
		mu.Lock()
		states = append(states, open)
		mu.Unlock()
	})

	for i := 0; i < 3; i++ {
		err := g.SubmitDecision(context.Background(), domain.Decision{RequestID: "1"})
		assert.True(t, domain.IsTransport(err))
	}

	// Предохранитель открыт: бэкенд больше не дёргаем, ошибка остаётся транспортной
	err := g.SubmitDecision(context.Background(), domain.Decision{RequestID: "1"})
	assert.True(t, domain.IsTransport(err))
	assert.Equal(t, 3, next.calls)

	mu.Lock()
	assert.Equal(t, []bool{true}, states)
	mu.Unlock()
}

func TestGuarded_ValidationDoesNotTrip(t *testing.T) {
	next := &scriptedBackend{err: &domain.ValidationError{Op: OpSubmitDecision, StatusCode: 404, Message: "unknown"}}
	g := NewGuarded(next, guardConfig(), nil, zap.NewNop(), nil)

	for i := 0; i < 10; i++ {
		err := g.SubmitDecision(context.Background(), domain.Decision{RequestID: "1"})
		assert.True(t, domain.IsValidation(err))
	}
	assert.Equal(t, 10, next.calls)
}

func TestGuarded_NoRetry(t *testing.T) {
	next := &scriptedBackend{err: &domain.TransportError{Op: OpSubmitDecision, Cause: errors.New("reset")}}
	g := NewGuarded(next, guardConfig(), nil, zap.NewNop(), nil)

	_ = g.SubmitDecision(context.Background(), domain.Decision{RequestID: "1"})
	assert.Equal(t, 1, next.calls)
}

func TestGuarded_RateLimitHonoursContext(t *testing.T) {
	cfg := guardConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	next := &scriptedBackend{}
	g := NewGuarded(next, cfg, nil, zap.NewNop(), nil)

	_, err := g.FetchPending(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.FetchPending(ctx)
	assert.True(t, domain.IsTransport(err))
	assert.Equal(t, 1, next.calls)
}

func TestGuarded_MissingPendingEndpointTripsBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	var opened bool
	g := NewGuarded(NewClient(testConfig(srv.URL), nil, zap.NewNop()), guardConfig(), nil, zap.NewNop(), func(open bool) {
		opened = open
	})

	for i := 0; i < 3; i++ {
		_, err := g.FetchPending(context.Background())
		assert.True(t, domain.IsTransport(err))
	}
	assert.True(t, opened)
}
