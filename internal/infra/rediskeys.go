package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "libra"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanNotifications - toasts консоли для других вкладок/инстансов.
	RedisChanNotifications = RedisNamespace + ":console:notifications"
	// RedisChanQueueChanged - бэкенд сообщает, что очередь заявок изменилась.
	RedisChanQueueChanged = RedisNamespace + ":borrow-requests:changed"
)
