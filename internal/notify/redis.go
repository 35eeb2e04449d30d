package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/libra-console/internal/domain"
	"go.uber.org/zap"
)

// RedisNotifier транслирует toasts в Pub/Sub, чтобы их видели все открытые экраны и инстансы консоли.
type RedisNotifier struct {
	rdb     *redis.Client
	channel string
	logger  *zap.Logger
}

func NewRedisNotifier(rdb *redis.Client, channel string, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, channel: channel, logger: logger.Named("notify-redis")}
}

func (r *RedisNotifier) Notify(ctx context.Context, n domain.Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		r.logger.Error("failed to encode notification", zap.Error(err))
		return
	}

	// Контекст запроса может быть уже отменён, а toast всё равно должен уйти
	if err := r.rdb.Publish(context.WithoutCancel(ctx), r.channel, payload).Err(); err != nil {
		r.logger.Warn("notification signal delivery failed",
			zap.String("channel", r.channel),
			zap.String("notification_id", n.ID),
			zap.Error(err))
	}
}
