package approval

import (
	"context"
	"sync"

	"github.com/xela07ax/libra-console/internal/domain"
)

// fakeBackend - бэкенд в памяти со счётчиком вызовов
type fakeBackend struct {
	mu        sync.Mutex
	pending   []domain.BorrowRequest
	fetchErr  error
	submitErr error
	fetches   int
	submitted []domain.Decision

	// Если задан, SubmitDecision ждёт, пока тест его не отпустит
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeBackend) FetchPending(_ context.Context) ([]domain.BorrowRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]domain.BorrowRequest, len(f.pending))
	copy(out, f.pending)
	return out, nil
}

func (f *fakeBackend) SubmitDecision(ctx context.Context, d domain.Decision) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.submitted = append(f.submitted, d)
	if f.submitErr != nil {
		return f.submitErr
	}
	// Бэкенд убирает обработанную заявку из очереди ожидающих
	for i, e := range f.pending {
		if e.ID == d.RequestID {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeBackend) submits() []domain.Decision {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Decision(nil), f.submitted...)
}

func (f *fakeBackend) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

type recordingNotifier struct {
	mu    sync.Mutex
	items []domain.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, item domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, item)
}

func (n *recordingNotifier) all() []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Notification(nil), n.items...)
}

type memoryRecorder struct {
	mu      sync.Mutex
	records []domain.DecisionRecord
}

func (r *memoryRecorder) Record(rec domain.DecisionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func (r *memoryRecorder) all() []domain.DecisionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.DecisionRecord(nil), r.records...)
}

func libraryQueue() []domain.BorrowRequest {
	return []domain.BorrowRequest{
		{ID: "r1", MemberName: "Alice Smith", BookTitle: "Dune", PhoneNumber: "555-0101", Status: domain.StatusPending},
		{ID: "r2", MemberName: "Bob Jones", BookTitle: "Emma", PhoneNumber: "555-0202", Status: domain.StatusPending},
	}
}
