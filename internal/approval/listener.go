package approval

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ListenQueueSignals - «живучая» подписка на сигнал об изменении очереди в бэкенде.
// На каждом успешном (пере)подключении очередь перечитывается целиком, чтобы не
// пропустить сигналы, пришедшие, пока подписки не было.
func ListenQueueSignals(ctx context.Context, rdb *redis.Client, logger *zap.Logger, channel string, s *Session) {
	listenResilient(ctx, rdb, logger.Named("queue-signals"), channel,
		func() error { return s.reload(ctx) },
		func(string) {
			if err := s.Load(ctx); err != nil {
				logger.Warn("queue reload on signal failed", zap.Error(err))
			}
		},
	)
}

func listenResilient(
	ctx context.Context,
	rdb *redis.Client,
	logger *zap.Logger,
	channel string,
	onReconnect func() error, // Синхронизация при переподключении
	onMessage func(payload string),
) {
	for {
		if ctx.Err() != nil {
			return
		}

		pubsub := rdb.Subscribe(ctx, channel)

		// Проверка успешности подписки
		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			logger.Error("failed to subscribe", zap.String("chan", channel), zap.Error(err))
			if !sleepCtx(ctx, 5*time.Second) {
				return
			}
			continue
		}

		if err := onReconnect(); err != nil {
			logger.Error("sync failed on reconnect", zap.Error(err))
		}

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break loop // Канал закрыт, идём на переподключение
				}
				onMessage(msg.Payload)
			}
		}

		pubsub.Close()
		if !sleepCtx(ctx, time.Second) {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
