package approval

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/xela07ax/libra-console/internal/domain"
	"github.com/xela07ax/libra-console/internal/metrics"
	"github.com/xela07ax/libra-console/internal/notify"
	"github.com/xela07ax/libra-console/internal/queue"
	"go.uber.org/zap"
)

const loadFailedMessage = "Failed to load pending borrow requests."

type Options struct {
	SearchDebounce       time.Duration
	ReconcileAfterCommit bool
}

// Session - рабочая сессия администратора: очередь, поиск и координатор решений.
// Очередь принадлежит только сессии.
type Session struct {
	repo        Repository
	queue       *queue.Queue
	coordinator *Coordinator
	notifier    notify.Notifier
	metrics     *metrics.Metrics
	debouncer   *queue.Debouncer
	logger      *zap.Logger

	mu    sync.RWMutex
	query string // активный поисковый запрос после debounce
}

func NewSession(repo Repository, notifier notify.Notifier, recorder Recorder, m *metrics.Metrics, logger *zap.Logger, opts Options) *Session {
	if m == nil {
		m = metrics.New(nil)
	}
	if notifier == nil {
		notifier = notify.Fanout{}
	}
	q := queue.New()
	s := &Session{
		repo:      repo,
		queue:     q,
		notifier:  notifier,
		metrics:   m,
		debouncer: queue.NewDebouncer(opts.SearchDebounce),
		logger:    logger.Named("session"),
	}
	s.coordinator = NewCoordinator(repo, q, notifier, recorder, m, logger)
	if opts.ReconcileAfterCommit {
		s.coordinator.reconcile = s.reload
	}
	return s
}

// Load полностью перечитывает очередь из бэкенда. При ошибке оператор получает
// одно уведомление, а очередь остаётся прежней до ручного повтора.
func (s *Session) Load(ctx context.Context) error {
	if err := s.reload(ctx); err != nil {
		s.notifier.Notify(ctx, notify.New(domain.LevelError, "", loadFailedMessage))
		return err
	}
	return nil
}

// reload - Load без уведомления: используется для сверки после коммита
func (s *Session) reload(ctx context.Context) error {
	entries, err := s.repo.FetchPending(ctx)
	if err != nil {
		s.logger.Error("failed to fetch pending queue", zap.Error(err))
		return fmt.Errorf("load pending queue: %w", err)
	}
	if err := s.queue.Replace(entries); err != nil {
		s.logger.Error("backend returned inconsistent queue", zap.Error(err))
		return fmt.Errorf("load pending queue: %w", err)
	}

	s.metrics.QueueSize.Set(float64(len(entries)))
	s.logger.Debug("pending queue replaced", zap.Int("count", len(entries)))
	return nil
}

// Search фильтрует текущий снимок очереди немедленно, без debounce.
func (s *Session) Search(query string) iter.Seq[domain.BorrowRequest] {
	return queue.Filter(s.queue.Snapshot(), query)
}

// Type - ввод в строку поиска. Активный запрос меняется после паузы в наборе.
func (s *Session) Type(query string) {
	s.debouncer.Trigger(func() {
		s.mu.Lock()
		s.query = query
		s.mu.Unlock()
	})
}

func (s *Session) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// View - то, что сейчас показывает таблица: очередь по активному запросу.
func (s *Session) View() iter.Seq[domain.BorrowRequest] {
	return s.Search(s.Query())
}

func (s *Session) Get(id string) (domain.BorrowRequest, bool) {
	return s.queue.Get(id)
}

func (s *Session) Coordinator() *Coordinator {
	return s.coordinator
}

func (s *Session) Close() {
	s.debouncer.Stop()
}
