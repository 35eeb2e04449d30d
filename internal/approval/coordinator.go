package approval

/*
Файл coordinator.go - конечный автомат решения по заявке:
IDLE -> AWAITING_CONFIRMATION -> COMMITTING -> IDLE.

- Взведённым может быть только одно решение на всю сессию: новый Arm вытесняет прежний.
- Confirm забирает решение атомарно, поэтому повторное нажатие «Подтвердить» не даёт
  второго вызова SubmitDecision.
- Сетевой вызов идёт вне мьютекса: коммиты разных заявок могут лететь параллельно.
- Повторов нет: после отказа оператор взводит решение заново.
- Отключение клиента не отменяет уже начатый коммит.
*/

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xela07ax/libra-console/internal/domain"
	"github.com/xela07ax/libra-console/internal/infra/auth"
	"github.com/xela07ax/libra-console/internal/metrics"
	"github.com/xela07ax/libra-console/internal/notify"
	"github.com/xela07ax/libra-console/internal/queue"
	"go.uber.org/zap"
)

type State string

const (
	StateIdle                 State = "IDLE"
	StateAwaitingConfirmation State = "AWAITING_CONFIRMATION"
	StateCommitting           State = "COMMITTING"
)

// Repository описывает, что workflow нужно от бэкенда библиотеки
type Repository interface {
	FetchPending(ctx context.Context) ([]domain.BorrowRequest, error)
	SubmitDecision(ctx context.Context, d domain.Decision) error
}

// Recorder принимает записи журнала решений (см. пакет journal)
type Recorder interface {
	Record(rec domain.DecisionRecord)
}

// Outcome - итог подтверждённого решения
type Outcome struct {
	Intent domain.DecisionIntent `json:"intent"`
	Status domain.BorrowStatus   `json:"status"`
}

type Coordinator struct {
	mu         sync.Mutex
	armed      *domain.DecisionIntent
	committing map[string]domain.DecisionIntent // id -> решение, по которому идёт коммит

	repo      Repository
	queue     *queue.Queue
	notifier  notify.Notifier
	recorder  Recorder
	metrics   *metrics.Metrics
	reconcile func(ctx context.Context) error // перечитать очередь после успешного коммита
	logger    *zap.Logger
	now       func() time.Time
}

func NewCoordinator(repo Repository, q *queue.Queue, notifier notify.Notifier, recorder Recorder, m *metrics.Metrics, logger *zap.Logger) *Coordinator {
	if m == nil {
		m = metrics.New(nil)
	}
	if notifier == nil {
		notifier = notify.Fanout{}
	}
	return &Coordinator{
		committing: make(map[string]domain.DecisionIntent),
		repo:       repo,
		queue:      q,
		notifier:   notifier,
		recorder:   recorder,
		metrics:    m,
		logger:     logger.Named("coordinator"),
		now:        time.Now,
	}
}

// Arm взводит решение по заявке. Прежнее взведённое решение отбрасывается без коммита.
func (c *Coordinator) Arm(id string, approve bool) (domain.DecisionIntent, error) {
	req, ok := c.queue.Get(id)
	if !ok {
		return domain.DecisionIntent{}, fmt.Errorf("arm %s: %w", id, domain.ErrRequestNotFound)
	}
	if req.Status != domain.StatusPending {
		return domain.DecisionIntent{}, fmt.Errorf("arm %s: %w", id, domain.ErrAlreadyProcessed)
	}

	intent := domain.DecisionIntent{Request: req, Approve: approve, ArmedAt: c.now()}

	c.mu.Lock()
	if _, busy := c.committing[id]; busy {
		c.mu.Unlock()
		return domain.DecisionIntent{}, fmt.Errorf("arm %s: %w", id, domain.ErrCommitInFlight)
	}
	replaced := c.armed
	c.armed = &intent
	c.mu.Unlock()

	if replaced != nil {
		c.logger.Debug("armed decision replaced",
			zap.String("previous_request_id", replaced.Request.ID),
			zap.Bool("previous_approve", replaced.Approve),
			zap.String("request_id", id))
	}
	return intent, nil
}

// Cancel отбрасывает взведённое решение. Очередь и бэкенд не трогаются.
func (c *Coordinator) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	discarded := c.armed != nil
	c.armed = nil
	return discarded
}

// Armed текущее решение, ожидающее подтверждения
func (c *Coordinator) Armed() (domain.DecisionIntent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.armed == nil {
		return domain.DecisionIntent{}, false
	}
	return *c.armed, true
}

// StateOf состояние автомата для конкретной заявки
func (c *Coordinator) StateOf(id string) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.committing[id]; ok {
		return StateCommitting
	}
	if c.armed != nil && c.armed.Request.ID == id {
		return StateAwaitingConfirmation
	}
	return StateIdle
}

// Confirm коммитит взведённое решение ровно одним вызовом SubmitDecision.
// Любой исход возвращает заявку в IDLE; при ошибке очередь остаётся нетронутой.
func (c *Coordinator) Confirm(ctx context.Context) (Outcome, error) {
	// 1. Атомарно забираем решение: второй Confirm его уже не увидит
	c.mu.Lock()
	if c.armed == nil {
		c.mu.Unlock()
		return Outcome{}, domain.ErrNothingArmed
	}
	intent := *c.armed
	c.armed = nil
	id := intent.Request.ID
	c.committing[id] = intent
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.committing, id)
		c.mu.Unlock()
	}()

	// Коммит в полёте не отменяется: бэкенд мог уже принять решение.
	// Значения контекста (оператор) сохраняются, время ограничивает backend.timeout.
	ctx = context.WithoutCancel(ctx)

	start := c.now()
	decision := intent.Decision()

	// 2. Очередь могла обновиться, пока решение ждало подтверждения
	current, ok := c.queue.Get(id)
	if !ok || current.Status != domain.StatusPending {
		c.finish(ctx, intent, domain.OutcomeStale, start, domain.ErrStaleIntent)
		return Outcome{}, fmt.Errorf("confirm %s: %w", id, domain.ErrStaleIntent)
	}
	if c.queue.Ambiguous(current) {
		c.logger.Warn("backend identifies requests by member/title/phone: another pending request shares it",
			zap.String("request_id", id))
	}

	// 3. Commit
	if err := c.repo.SubmitDecision(ctx, decision); err != nil {
		c.finish(ctx, intent, domain.OutcomeFailed, start, err)
		return Outcome{}, fmt.Errorf("confirm %s: %w", id, err)
	}

	// 4. Reconcile: точечный патч статуса
	status := intent.TargetStatus()
	if err := c.queue.ApplyDecision(id, status); err != nil {
		// Параллельный Replace уже убрал или обновил запись - это нормально
		c.logger.Info("local patch skipped", zap.String("request_id", id), zap.Error(err))
	}
	c.finish(ctx, intent, domain.OutcomeCommitted, start, nil)

	if c.reconcile != nil {
		if err := c.reconcile(ctx); err != nil {
			c.logger.Warn("reconcile after commit failed", zap.String("request_id", id), zap.Error(err))
		}
	}

	return Outcome{Intent: intent, Status: status}, nil
}

// finish уведомляет оператора, пишет журнал и метрики
func (c *Coordinator) finish(ctx context.Context, intent domain.DecisionIntent, outcome domain.DecisionOutcome, start time.Time, err error) {
	decision := intent.Decision()
	c.metrics.DecisionsTotal.WithLabelValues(decision.Action(), string(outcome)).Inc()

	if outcome == domain.OutcomeCommitted {
		c.notifier.Notify(ctx, notify.New(domain.LevelSuccess, decision.RequestID, successMessage(intent)))
		c.logger.Info("borrow decision committed",
			zap.String("request_id", decision.RequestID),
			zap.String("action", decision.Action()))
	} else {
		c.notifier.Notify(ctx, notify.New(domain.LevelError, decision.RequestID, failureMessage(err)))
		c.logger.Error("borrow decision not committed",
			zap.String("request_id", decision.RequestID),
			zap.String("action", decision.Action()),
			zap.String("outcome", string(outcome)),
			zap.Error(err))
	}

	if c.recorder == nil {
		return
	}
	rec := domain.DecisionRecord{
		RequestID:   decision.RequestID,
		MemberName:  decision.MemberName,
		BookTitle:   decision.BookTitle,
		PhoneNumber: decision.PhoneNumber,
		Decision:    intent.TargetStatus(),
		Outcome:     outcome,
		Operator:    auth.OperatorFromContext(ctx),
		DurationMs:  c.now().Sub(start).Milliseconds(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	c.recorder.Record(rec)
}

func successMessage(intent domain.DecisionIntent) string {
	if intent.Approve {
		return fmt.Sprintf("Borrow request %q has been approved.", intent.Request.BookTitle)
	}
	return fmt.Sprintf("Borrow request %q has been rejected.", intent.Request.BookTitle)
}

func failureMessage(err error) string {
	if errors.Is(err, domain.ErrStaleIntent) {
		return "Borrow request is no longer pending; reload the list and try again."
	}
	return "Failed to update borrow request status."
}
