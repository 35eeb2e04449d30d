package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBorrowRequest_CanTransitionTo(t *testing.T) {
	pending := BorrowRequest{ID: "1", Status: StatusPending}

	assert.NoError(t, pending.CanTransitionTo(StatusApproved))
	assert.NoError(t, pending.CanTransitionTo(StatusRejected))
	assert.ErrorIs(t, pending.CanTransitionTo(StatusPending), ErrInvalidTransition)

	for _, final := range []BorrowStatus{StatusApproved, StatusRejected} {
		done := BorrowRequest{ID: "2", Status: final}
		assert.ErrorIs(t, done.CanTransitionTo(StatusApproved), ErrAlreadyProcessed)
		assert.ErrorIs(t, done.CanTransitionTo(StatusRejected), ErrAlreadyProcessed)
	}
}

func TestBorrowStatus_Label(t *testing.T) {
	assert.Equal(t, "Pending", StatusPending.Label())
	assert.Equal(t, "Approved", StatusApproved.Label())
	assert.Equal(t, "Rejected", StatusRejected.Label())
	assert.Equal(t, "Pending", BorrowStatus("").Label())
}

func TestLoanDate_JSON(t *testing.T) {
	var got struct {
		Short LoanDate `json:"short"`
		Full  LoanDate `json:"full"`
		Null  LoanDate `json:"null"`
	}
	raw := `{"short":"2024-03-01","full":"2024-03-15T10:30:00.000Z","null":null}`
	require.NoError(t, json.Unmarshal([]byte(raw), &got))

	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got.Short.Time)
	assert.Equal(t, time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), got.Full.Time)
	assert.True(t, got.Null.IsZero())

	out, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"short":"2024-03-01","full":"2024-03-15","null":null}`, string(out))

	var bad LoanDate
	assert.Error(t, json.Unmarshal([]byte(`"01/03/2024"`), &bad))
}

func TestDecisionIntent(t *testing.T) {
	req := BorrowRequest{ID: "a1", MemberName: "Alice", BookTitle: "Dune", PhoneNumber: "555-0101", Status: StatusPending}

	approve := DecisionIntent{Request: req, Approve: true}
	assert.Equal(t, StatusApproved, approve.TargetStatus())
	assert.Equal(t, "Are you sure you want to approve this borrow request?", approve.Prompt())
	assert.Equal(t, Decision{RequestID: "a1", MemberName: "Alice", BookTitle: "Dune", PhoneNumber: "555-0101", Approve: true}, approve.Decision())
	assert.Equal(t, "approve", approve.Decision().Action())

	reject := DecisionIntent{Request: req}
	assert.Equal(t, StatusRejected, reject.TargetStatus())
	assert.Equal(t, "Are you sure you want to reject this borrow request?", reject.Prompt())
	assert.Equal(t, "reject", reject.Decision().Action())
}

func TestBackendErrors(t *testing.T) {
	cause := errors.New("connection refused")
	tErr := error(&TransportError{Op: "fetch_pending", Cause: cause})
	vErr := error(&ValidationError{Op: "submit_decision", StatusCode: 422, Message: "unknown request"})

	assert.True(t, IsTransport(tErr))
	assert.False(t, IsValidation(tErr))
	assert.ErrorIs(t, tErr, cause)

	wrapped := errors.Join(errors.New("confirm"), vErr)
	assert.True(t, IsValidation(wrapped))
	assert.False(t, IsTransport(wrapped))
}
