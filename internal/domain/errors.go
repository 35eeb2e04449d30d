package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRequestNotFound = errors.New("borrow request not found")
	ErrNothingArmed    = errors.New("no decision is awaiting confirmation")
	ErrCommitInFlight  = errors.New("decision for this borrow request is already being committed")
	ErrStaleIntent     = errors.New("armed decision no longer matches the pending queue")
)

// TransportError - бэкенд недоступен: сеть, таймаут, 5xx, открытый Circuit Breaker.
type TransportError struct {
	Op         string
	StatusCode int // 0, если ответа не было вовсе
	Cause      error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: backend responded %d: %v", e.Op, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("%s: backend unreachable: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// ValidationError - бэкенд отверг решение (неизвестный или неоднозначный кортеж).
type ValidationError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: rejected by backend (%d): %s", e.Op, e.StatusCode, e.Message)
}

// IsTransport / IsValidation - короткие обёртки над errors.As для хендлеров и метрик.
func IsTransport(err error) bool {
	var tErr *TransportError
	return errors.As(err, &tErr)
}

func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
