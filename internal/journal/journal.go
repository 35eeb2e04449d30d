package journal

/*
Файл journal.go - асинхронный журнал решений по заявкам на выдачу.

- Record никогда не блокирует путь коммита: событие кладётся в буферизованный канал,
  при переполнении сбрасывается с записью в лог (Load Shedding).
- Воркер копит записи и пишет их пачкой по таймеру или при достижении batchSize.
- Stop закрывает вход и дожидается финального flush (Drain Pattern).
*/

import (
	"context"
	"sync"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/google/uuid"
	"github.com/xela07ax/libra-console/internal/domain"
	"github.com/xela07ax/libra-console/internal/metrics"
	"go.uber.org/zap"
)

const (
	defaultBufferSize    = 1000
	defaultFlushInterval = time.Second
	batchSize            = 100
	flushAttempts        = 3
)

// Storage определяет, куда физически сохраняются записи
type Storage interface {
	WriteBatch(ctx context.Context, records []domain.DecisionRecord) error
}

type Journal struct {
	ch            chan domain.DecisionRecord
	repo          Storage
	logger        *zap.Logger
	metrics       *metrics.Metrics
	flushInterval time.Duration
	wg            sync.WaitGroup

	mu     sync.RWMutex // защищает закрытие канала от параллельных Record
	closed bool
}

func New(repo Storage, bufferSize int, flushInterval time.Duration, m *metrics.Metrics, logger *zap.Logger) *Journal {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &Journal{
		ch:            make(chan domain.DecisionRecord, bufferSize),
		repo:          repo,
		logger:        logger.Named("journal"),
		metrics:       m,
		flushInterval: flushInterval,
	}
}

func (j *Journal) Start() {
	j.wg.Add(1)
	go j.worker()
}

// Stop «запирает» вход в канал и ждёт, пока воркер всё допишет.
func (j *Journal) Stop() {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return
	}
	j.closed = true
	close(j.ch)
	j.mu.Unlock()

	j.logger.Info("stopping journal: flushing buffer...")
	j.wg.Wait()
	j.logger.Info("journal stopped gracefully")
}

func (j *Journal) Record(rec domain.DecisionRecord) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		j.logger.Warn("decision record dropped: journal is stopping", zap.String("request_id", rec.RequestID))
		return
	}

	select {
	case j.ch <- rec:
		j.metrics.JournalBufferFill.Set(float64(len(j.ch)))
	default:
		// Буфер переполнен: запись теряется, но след остаётся в логе
		j.logger.Error("journal_buffer_overflow",
			zap.String("request_id", rec.RequestID),
			zap.String("outcome", string(rec.Outcome)))
	}
}

func (j *Journal) worker() {
	defer j.wg.Done()

	batch := make([]domain.DecisionRecord, 0, batchSize)
	ticker := time.NewTicker(j.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: контекст приложения к этому моменту может быть уже закрыт
		r := retry.New(
			retry.Context(context.Background()),
			retry.Attempts(flushAttempts),
			retry.DelayType(retry.BackOffDelay),
		)
		if err := r.Do(func() error {
			return j.repo.WriteBatch(context.Background(), batch)
		}); err != nil {
			j.logger.Error("journal flush failed", zap.Int("records", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
		j.metrics.JournalBufferFill.Set(float64(len(j.ch)))
	}

	for {
		select {
		case rec, ok := <-j.ch:
			if !ok {
				flush() // Финальный сброс
				return
			}
			batch = append(batch, rec)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
