package domain

import (
	"errors"
	"strings"
	"time"
)

// Статусы State Machine заявки на выдачу
type BorrowStatus string

const (
	StatusPending  BorrowStatus = "PENDING"
	StatusApproved BorrowStatus = "APPROVED"
	StatusRejected BorrowStatus = "REJECTED"
)

// Label возвращает подпись для колонки статуса в таблице.
func (s BorrowStatus) Label() string {
	switch s {
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	default:
		return "Pending"
	}
}

var (
	ErrInvalidTransition = errors.New("invalid borrow status transition")
	ErrAlreadyProcessed  = errors.New("borrow request already processed")
)

// BorrowRequest - одна заявка читателя, ожидающая решения администратора.
type BorrowRequest struct {
	ID          string `json:"id"` // _id из бэкенда, стабилен на всё время жизни заявки
	MemberName  string `json:"member_name"`
	BookTitle   string `json:"book_title"`
	PhoneNumber string `json:"phone_number"`

	TransactionDate LoanDate `json:"transaction_date"` // Дата начала выдачи
	DueDate         LoanDate `json:"due_date"`         // Ожидаемая дата возврата

	Status BorrowStatus `json:"status"`
}

// CanTransitionTo проверяет правила конечного автомата: PENDING -> APPROVED|REJECTED, один раз.
func (r *BorrowRequest) CanTransitionTo(next BorrowStatus) error {
	if r.Status != StatusPending {
		return ErrAlreadyProcessed
	}
	if next != StatusApproved && next != StatusRejected {
		return ErrInvalidTransition
	}
	return nil
}

// LoanDate принимает и RFC3339, и короткий формат YYYY-MM-DD.
type LoanDate struct {
	time.Time
}

const shortDateLayout = "2006-01-02"

func (d *LoanDate) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(shortDateLayout, raw)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d LoanDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(shortDateLayout) + `"`), nil
}
