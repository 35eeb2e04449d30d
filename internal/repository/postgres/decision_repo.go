package postgres

/*
Файл decision_repo.go хранит журнал решений по заявкам на выдачу (borrow_decisions):
кто из операторов, что решил и чем закончился коммит в бэкенде.
*/

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres
	"github.com/xela07ax/libra-console/internal/domain"
)

const decisionColumns = "id, request_id, member_name, book_title, phone_number, decision, outcome, operator, error, duration_ms, created_at"

// Количество колонок в таблице borrow_decisions
const decisionFields = 11

const defaultHistoryLimit = 100

type DecisionRepo struct {
	db *sql.DB
}

// NewDecisionRepo открывает пул соединений. Доступность проверяется отдельно через Ping.
func NewDecisionRepo(connString string, maxConns int) (*DecisionRepo, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	return &DecisionRepo{db: db}, nil
}

// NewDecisionRepoFromDB использует уже открытый *sql.DB
func NewDecisionRepoFromDB(db *sql.DB) *DecisionRepo {
	return &DecisionRepo{db: db}
}

func (r *DecisionRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *DecisionRepo) Close() error {
	return r.db.Close()
}

// WriteBatch пакетная вставка одним запросом.
func (r *DecisionRepo) WriteBatch(ctx context.Context, records []domain.DecisionRecord) error {
	if len(records) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(records))
	vals := make([]interface{}, 0, len(records)*decisionFields)

	for i, rec := range records {
		p := i * decisionFields
		holders := make([]string, decisionFields)
		for f := range holders {
			holders[f] = fmt.Sprintf("$%d", p+f+1)
		}
		placeholders = append(placeholders, "("+strings.Join(holders, ", ")+")")

		vals = append(vals,
			rec.ID, rec.RequestID, rec.MemberName, rec.BookTitle, rec.PhoneNumber,
			string(rec.Decision), string(rec.Outcome), nullString(rec.Operator), nullString(rec.Error),
			rec.DurationMs, rec.CreatedAt,
		)
	}

	query := fmt.Sprintf("INSERT INTO borrow_decisions (%s) VALUES %s", decisionColumns, strings.Join(placeholders, ", "))

	if _, err := r.db.ExecContext(ctx, query, vals...); err != nil {
		return fmt.Errorf("postgres: failed to write decision batch: %w", err)
	}
	return nil
}

// FetchDecisions история решений, новые первыми. Пустой requestID - по всем заявкам.
func (r *DecisionRepo) FetchDecisions(ctx context.Context, requestID string, limit int) ([]domain.DecisionRecord, error) {
	if limit <= 0 || limit > defaultHistoryLimit {
		limit = defaultHistoryLimit
	}

	query := "SELECT " + decisionColumns + " FROM borrow_decisions"
	var args []interface{}
	if requestID != "" {
		query += " WHERE request_id = $1"
		args = append(args, requestID)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query decisions: %w", err)
	}
	defer rows.Close()

	// Пустой слайс, чтобы в JSON был [] вместо null
	results := make([]domain.DecisionRecord, 0)
	for rows.Next() {
		var rec domain.DecisionRecord
		var decision, outcome string
		var operator, errText sql.NullString

		if err := rows.Scan(
			&rec.ID, &rec.RequestID, &rec.MemberName, &rec.BookTitle, &rec.PhoneNumber,
			&decision, &outcome, &operator, &errText, &rec.DurationMs, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan decision: %w", err)
		}
		rec.Decision = domain.BorrowStatus(decision)
		rec.Outcome = domain.DecisionOutcome(outcome)
		rec.Operator = operator.String
		rec.Error = errText.String
		results = append(results, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return results, nil
}

func nullString(s string) driver.Valuer {
	return sql.NullString{String: s, Valid: s != ""}
}
