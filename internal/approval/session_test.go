package approval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/libra-console/internal/domain"
	"go.uber.org/zap"
)

func collectIDs(s *Session, query string) []string {
	out := make([]string, 0)
	for e := range s.Search(query) {
		out = append(out, e.ID)
	}
	return out
}

func TestSession_Load(t *testing.T) {
	backend := &fakeBackend{pending: libraryQueue()}
	notifier := &recordingNotifier{}
	s := NewSession(backend, notifier, nil, nil, zap.NewNop(), Options{})
	defer s.Close()

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, []string{"r1", "r2"}, collectIDs(s, ""))
	assert.Empty(t, notifier.all())
}

func TestSession_LoadFailureKeepsQueue(t *testing.T) {
	backend := &fakeBackend{pending: libraryQueue()}
	notifier := &recordingNotifier{}
	s := NewSession(backend, notifier, nil, nil, zap.NewNop(), Options{})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	backend.mu.Lock()
	backend.fetchErr = &domain.TransportError{Op: "fetch_pending", Cause: errors.New("timeout")}
	backend.mu.Unlock()

	err := s.Load(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsTransport(err))

	// Одно уведомление и прежняя очередь
	notes := notifier.all()
	require.Len(t, notes, 1)
	assert.Equal(t, domain.LevelError, notes[0].Level)
	assert.Equal(t, "Failed to load pending borrow requests.", notes[0].Message)
	assert.Equal(t, []string{"r1", "r2"}, collectIDs(s, ""))
}

func TestSession_LoadRejectsInconsistentQueue(t *testing.T) {
	dup := append(libraryQueue(), libraryQueue()[0])
	s := NewSession(&fakeBackend{pending: dup}, nil, nil, nil, zap.NewNop(), Options{})
	defer s.Close()

	assert.Error(t, s.Load(context.Background()))
	assert.Empty(t, collectIDs(s, ""))
}

func TestSession_SearchAndType(t *testing.T) {
	s := NewSession(&fakeBackend{pending: libraryQueue()}, nil, nil, nil, zap.NewNop(), Options{})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	assert.Equal(t, []string{"r2"}, collectIDs(s, "bob"))

	// Без debounce активный запрос меняется сразу
	s.Type("dune")
	assert.Equal(t, "dune", s.Query())
	var view []string
	for e := range s.View() {
		view = append(view, e.ID)
	}
	assert.Equal(t, []string{"r1"}, view)
}

func TestSession_TypeDebounced(t *testing.T) {
	s := NewSession(&fakeBackend{}, nil, nil, nil, zap.NewNop(), Options{SearchDebounce: 20 * time.Millisecond})
	defer s.Close()

	s.Type("a")
	s.Type("al")
	s.Type("ali")
	assert.Equal(t, "", s.Query(), "query applies only after a pause")

	assert.Eventually(t, func() bool { return s.Query() == "ali" }, time.Second, 5*time.Millisecond)
}

func TestSession_ReconcileAfterCommit(t *testing.T) {
	backend := &fakeBackend{pending: libraryQueue()}
	s := NewSession(backend, nil, nil, nil, zap.NewNop(), Options{ReconcileAfterCommit: true})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	_, err := s.Coordinator().Arm("r2", false)
	require.NoError(t, err)
	_, err = s.Coordinator().Confirm(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, backend.fetchCount())
	assert.Equal(t, []string{"r1"}, collectIDs(s, ""))
}

func TestSession_NoReconcileKeepsPatchedRow(t *testing.T) {
	backend := &fakeBackend{pending: libraryQueue()}
	s := NewSession(backend, nil, nil, nil, zap.NewNop(), Options{})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	_, err := s.Coordinator().Arm("r2", true)
	require.NoError(t, err)
	_, err = s.Coordinator().Confirm(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, backend.fetchCount())
	got, ok := s.Get("r2")
	require.True(t, ok)
	assert.Equal(t, domain.StatusApproved, got.Status)
}

func TestSession_DecidedRowVisibility(t *testing.T) {
	tests := []struct {
		name      string
		reconcile bool
		want      []domain.BorrowStatus
	}{
		{"local patch keeps the decided row", false, []domain.BorrowStatus{domain.StatusApproved}},
		{"reconcile follows the backend, which drops decided rows", true, []domain.BorrowStatus{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{pending: libraryQueue()}
			s := NewSession(backend, nil, nil, nil, zap.NewNop(), Options{ReconcileAfterCommit: tt.reconcile})
			defer s.Close()
			require.NoError(t, s.Load(context.Background()))

			_, err := s.Coordinator().Arm("r1", true)
			require.NoError(t, err)
			_, err = s.Coordinator().Confirm(context.Background())
			require.NoError(t, err)

			got := make([]domain.BorrowStatus, 0)
			for e := range s.Search("dun") {
				got = append(got, e.Status)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
