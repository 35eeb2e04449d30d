package notify

import (
	"context"
	"sync"

	"github.com/xela07ax/libra-console/internal/domain"
)

// Feed - ограниченная лента последних уведомлений, которую экран опрашивает по HTTP.
type Feed struct {
	mu    sync.RWMutex
	items []domain.Notification // кольцевой буфер
	next  int
	full  bool
}

func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = 50
	}
	return &Feed{items: make([]domain.Notification, capacity)}
}

func (f *Feed) Notify(_ context.Context, n domain.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items[f.next] = n
	f.next = (f.next + 1) % len(f.items)
	if f.next == 0 {
		f.full = true
	}
}

// Recent возвращает до limit последних уведомлений, новые первыми. limit <= 0 - все.
func (f *Feed) Recent(limit int) []domain.Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()

	size := f.next
	if f.full {
		size = len(f.items)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]domain.Notification, 0, limit)
	for i := 1; i <= limit; i++ {
		pos := (f.next - i + len(f.items)) % len(f.items)
		out = append(out, f.items[pos])
	}
	return out
}
