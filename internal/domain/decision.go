package domain

import "time"

// DecisionIntent - «взведённое» решение оператора: живёт между выбором действия
// и подтверждением (или отменой). Не персистится.
type DecisionIntent struct {
	Request BorrowRequest `json:"request"`
	Approve bool          `json:"approve"`
	ArmedAt time.Time     `json:"armed_at"`
}

// TargetStatus статус, в который перейдёт заявка после успешного коммита.
func (i DecisionIntent) TargetStatus() BorrowStatus {
	if i.Approve {
		return StatusApproved
	}
	return StatusRejected
}

// Prompt текст модального окна подтверждения
func (i DecisionIntent) Prompt() string {
	if i.Approve {
		return "Are you sure you want to approve this borrow request?"
	}
	return "Are you sure you want to reject this borrow request?"
}

// Decision собирает полезную нагрузку для бэкенда.
func (i DecisionIntent) Decision() Decision {
	return Decision{
		RequestID:   i.Request.ID,
		MemberName:  i.Request.MemberName,
		BookTitle:   i.Request.BookTitle,
		PhoneNumber: i.Request.PhoneNumber,
		Approve:     i.Approve,
	}
}

// Decision - то, что уходит в бэкенд. Бэкенд исторически идентифицирует заявку
// по кортежу (имя, книга, телефон), RequestID передаётся дополнительно.
type Decision struct {
	RequestID   string
	MemberName  string
	BookTitle   string
	PhoneNumber string
	Approve     bool
}

// Action короткое имя действия для логов и метрик
func (d Decision) Action() string {
	if d.Approve {
		return "approve"
	}
	return "reject"
}
