package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/libra-console/internal/domain"
	"go.uber.org/zap"
)

// Notifier доставляет toast оператору. Доставка best-effort: ошибки только логируются.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

// New собирает уведомление с ID и временем создания.
func New(level domain.NotificationLevel, requestID, message string) domain.Notification {
	return domain.Notification{
		ID:        uuid.New().String(),
		Level:     level,
		Message:   message,
		RequestID: requestID,
		CreatedAt: time.Now(),
	}
}

// Fanout рассылает уведомление всем получателям по очереди.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, n domain.Notification) {
	for _, target := range f {
		if target != nil {
			target.Notify(ctx, n)
		}
	}
}

// LogNotifier пишет toasts в журнал сервиса.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notify")}
}

func (l *LogNotifier) Notify(_ context.Context, n domain.Notification) {
	fields := []zap.Field{
		zap.String("notification_id", n.ID),
		zap.String("request_id", n.RequestID),
		zap.String("message", n.Message),
	}
	if n.Level == domain.LevelError {
		l.logger.Warn("operator notified", fields...)
		return
	}
	l.logger.Info("operator notified", fields...)
}
