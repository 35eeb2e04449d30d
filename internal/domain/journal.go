package domain

import "time"

type DecisionOutcome string

const (
	OutcomeCommitted DecisionOutcome = "COMMITTED"
	OutcomeFailed    DecisionOutcome = "FAILED"
	OutcomeStale     DecisionOutcome = "STALE" // Заявка исчезла из очереди до коммита
)

// DecisionRecord - запись журнала решений (Accountability): кто, что и с каким итогом.
type DecisionRecord struct {
	ID          string          `json:"id"`
	RequestID   string          `json:"request_id"`
	MemberName  string          `json:"member_name"`
	BookTitle   string          `json:"book_title"`
	PhoneNumber string          `json:"phone_number"`
	Decision    BorrowStatus    `json:"decision"`
	Outcome     DecisionOutcome `json:"outcome"`
	Operator    string          `json:"operator,omitempty"`
	Error       string          `json:"error,omitempty"`
	DurationMs  int64           `json:"duration_ms"`
	CreatedAt   time.Time       `json:"created_at"`
}
