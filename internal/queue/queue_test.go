package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/libra-console/internal/domain"
)

func sampleQueue() []domain.BorrowRequest {
	return []domain.BorrowRequest{
		{ID: "1", MemberName: "Alice Smith", BookTitle: "Dune", PhoneNumber: "555-0101"},
		{ID: "2", MemberName: "Bob Jones", BookTitle: "Emma", PhoneNumber: "555-0202", Status: domain.StatusPending},
		{ID: "3", MemberName: "Carol White", BookTitle: "Ulysses", PhoneNumber: "555-0303"},
	}
}

func TestQueue_Replace(t *testing.T) {
	q := New()
	require.NoError(t, q.Replace(sampleQueue()))

	snap := q.Snapshot()
	require.Len(t, snap, 3)
	for i, id := range []string{"1", "2", "3"} {
		assert.Equal(t, id, snap[i].ID, "order must follow the backend")
		assert.Equal(t, domain.StatusPending, snap[i].Status, "blank status becomes pending")
	}

	// Полная замена, а не слияние
	require.NoError(t, q.Replace([]domain.BorrowRequest{{ID: "9", MemberName: "Zed"}}))
	assert.Equal(t, 1, q.Len())
	_, ok := q.Get("1")
	assert.False(t, ok)
}

func TestQueue_ReplaceRejectsBrokenInput(t *testing.T) {
	q := New()
	require.NoError(t, q.Replace(sampleQueue()))

	dup := append(sampleQueue(), domain.BorrowRequest{ID: "2"})
	assert.ErrorIs(t, q.Replace(dup), ErrDuplicateID)

	processed := []domain.BorrowRequest{{ID: "7", Status: domain.StatusApproved}}
	assert.ErrorIs(t, q.Replace(processed), ErrNotPending)

	// Текущая очередь не тронута
	assert.Equal(t, 3, q.Len())
}

func TestQueue_ApplyDecision(t *testing.T) {
	q := New()
	require.NoError(t, q.Replace(sampleQueue()))
	before := q.Snapshot()

	require.NoError(t, q.ApplyDecision("2", domain.StatusApproved))

	after := q.Snapshot()
	require.Len(t, after, 3)
	assert.Equal(t, domain.StatusApproved, after[1].Status)

	// Меняется только статус одной записи
	patched := after[1]
	patched.Status = before[1].Status
	assert.Equal(t, before[1], patched)
	assert.Equal(t, before[0], after[0])
	assert.Equal(t, before[2], after[2])

	// Финальный статус не меняется
	assert.ErrorIs(t, q.ApplyDecision("2", domain.StatusRejected), domain.ErrAlreadyProcessed)
	assert.ErrorIs(t, q.ApplyDecision("1", domain.StatusPending), domain.ErrInvalidTransition)
	assert.ErrorIs(t, q.ApplyDecision("404", domain.StatusApproved), domain.ErrRequestNotFound)

	got, _ := q.Get("2")
	assert.Equal(t, domain.StatusApproved, got.Status)
}

func TestQueue_SnapshotIsACopy(t *testing.T) {
	q := New()
	require.NoError(t, q.Replace(sampleQueue()))

	snap := q.Snapshot()
	snap[0].MemberName = "Mallory"
	snap[0].Status = domain.StatusRejected

	got, ok := q.Get("1")
	require.True(t, ok)
	assert.Equal(t, "Alice Smith", got.MemberName)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestQueue_Ambiguous(t *testing.T) {
	q := New()
	entries := sampleQueue()
	twin := entries[0]
	twin.ID = "1b"
	require.NoError(t, q.Replace(append(entries, twin)))

	first, _ := q.Get("1")
	assert.True(t, q.Ambiguous(first))

	second, _ := q.Get("2")
	assert.False(t, q.Ambiguous(second))

	// Обработанный двойник больше не мешает
	require.NoError(t, q.ApplyDecision("1b", domain.StatusRejected))
	assert.False(t, q.Ambiguous(first))
}

func TestQueue_ConcurrentAccess(t *testing.T) {
	q := New()
	require.NoError(t, q.Replace(sampleQueue()))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = q.Replace(sampleQueue())
		}()
		go func() {
			defer wg.Done()
			for _, e := range q.Snapshot() {
				// Читатель всегда видит целую запись
				assert.NotEmpty(t, e.MemberName)
			}
			_ = q.ApplyDecision("3", domain.StatusApproved)
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, q.Len())
}
