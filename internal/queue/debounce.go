package queue

import (
	"sync"
	"time"
)

// DefaultDebounce задержка пересчёта фильтра после последнего нажатия клавиши
const DefaultDebounce = 500 * time.Millisecond

// Debouncer откладывает вызов до тех пор, пока триггеры не затихнут на interval.
// Ограничивает только частоту пересчётов, на корректность фильтра не влияет.
type Debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	timer    *time.Timer
	stopped  bool
}

func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Trigger заменяет отложенный вызов новым. При interval <= 0 fn выполняется сразу.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	if d.interval <= 0 {
		d.timer = nil
		fn()
		return
	}
	d.timer = time.AfterFunc(d.interval, fn)
}

// Stop отменяет отложенный вызов и игнорирует все последующие.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
