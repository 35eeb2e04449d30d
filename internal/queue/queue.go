package queue

import (
	"errors"
	"fmt"
	"sync"

	"github.com/xela07ax/libra-console/internal/domain"
)

var (
	ErrDuplicateID = errors.New("duplicate borrow request id in queue")
	ErrNotPending  = errors.New("borrow request enters the queue only as pending")
)

// Queue - in-memory проекция очереди заявок, которую видит оператор.
// Мутируется только двумя способами: Replace (полная перезагрузка) и ApplyDecision
// (точечный патч статуса). Читатели получают копию, поэтому никогда не видят
// частично обновлённую запись.
type Queue struct {
	mu      sync.RWMutex
	entries []domain.BorrowRequest
	index   map[string]int // id -> позиция в entries
}

func New() *Queue {
	return &Queue{index: make(map[string]int)}
}

// Replace атомарно подменяет всю очередь. При нарушении инвариантов текущая очередь не трогается.
func (q *Queue) Replace(entries []domain.BorrowRequest) error {
	next := make([]domain.BorrowRequest, len(entries))
	index := make(map[string]int, len(entries))

	for i, e := range entries {
		if e.Status == "" {
			e.Status = domain.StatusPending
		}
		if e.Status != domain.StatusPending {
			return fmt.Errorf("%w: id %s has status %s", ErrNotPending, e.ID, e.Status)
		}
		if _, dup := index[e.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
		}
		index[e.ID] = i
		next[i] = e
	}

	q.mu.Lock()
	q.entries = next
	q.index = index
	q.mu.Unlock()
	return nil
}

// ApplyDecision меняет только Status записи с данным id. Остальные поля и записи не трогаются.
// ErrRequestNotFound - штатная ситуация, если параллельный Replace уже убрал запись.
func (q *Queue) ApplyDecision(id string, status domain.BorrowStatus) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	pos, ok := q.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrRequestNotFound, id)
	}
	if err := q.entries[pos].CanTransitionTo(status); err != nil {
		return fmt.Errorf("apply decision %s: %w", id, err)
	}
	q.entries[pos].Status = status
	return nil
}

// Snapshot упорядоченная копия очереди только для чтения.
func (q *Queue) Snapshot() []domain.BorrowRequest {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]domain.BorrowRequest, len(q.entries))
	copy(out, q.entries)
	return out
}

func (q *Queue) Get(id string) (domain.BorrowRequest, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	pos, ok := q.index[id]
	if !ok {
		return domain.BorrowRequest{}, false
	}
	return q.entries[pos], true
}

func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.entries)
}

// Ambiguous сообщает, есть ли другая ожидающая заявка с тем же кортежем (имя, книга, телефон).
// Бэкенд различает заявки только по нему, поэтому такие заявки для него неразличимы.
func (q *Queue) Ambiguous(req domain.BorrowRequest) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, e := range q.entries {
		if e.ID == req.ID || e.Status != domain.StatusPending {
			continue
		}
		if e.MemberName == req.MemberName && e.BookTitle == req.BookTitle && e.PhoneNumber == req.PhoneNumber {
			return true
		}
	}
	return false
}
