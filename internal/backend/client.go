package backend

/*
Файл client.go - клиент REST-бэкенда библиотеки. Консоль не хранит заявки сама:
бэкенд является источником правды, а клиент лишь читает очередь ожидающих заявок
и отправляет решения оператора.
*/

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/xela07ax/libra-console/internal/domain"
	"github.com/xela07ax/libra-console/internal/infra"
	"go.uber.org/zap"
)

const (
	OpFetchPending   = "fetch_pending"
	OpSubmitDecision = "submit_decision"

	// Сколько тела ответа с ошибкой тащим в сообщение
	maxErrorBody = 512
)

// HTTPClient позволяет подменить транспорт в тестах
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL      string
	token        string
	pendingPath  string
	decisionPath string
	http         HTTPClient
	logger       *zap.Logger
}

func NewClient(cfg infra.BackendConfig, httpClient HTTPClient, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		token:        cfg.Token,
		pendingPath:  cfg.PendingPath,
		decisionPath: cfg.DecisionPath,
		http:         httpClient,
		logger:       logger.Named("backend-client"),
	}
}

// pendingDTO - форма записи в ответе GET /borrow-requests/pending
type pendingDTO struct {
	ID              string          `json:"_id"`
	MemberName      string          `json:"memberName"`
	BookTitle       string          `json:"bookTitle"`
	PhoneNumber     string          `json:"phoneNumber"`
	TransactionDate domain.LoanDate `json:"transactionDate"`
	DueDate         domain.LoanDate `json:"dueDate"`
}

// decisionDTO - тело POST /borrow-requests/decision. Поле isAprove написано так, как его ждёт бэкенд.
type decisionDTO struct {
	ID          string `json:"_id,omitempty"`
	Name        string `json:"name"`
	Title       string `json:"title"`
	PhoneNumber string `json:"phoneNumber"`
	IsApprove   bool   `json:"isAprove"`
}

// FetchPending возвращает текущую очередь. Все записи считаются PENDING.
func (c *Client) FetchPending(ctx context.Context) ([]domain.BorrowRequest, error) {
	resp, err := c.do(ctx, OpFetchPending, http.MethodGet, c.pendingPath, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var items []pendingDTO
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, &domain.TransportError{Op: OpFetchPending, StatusCode: resp.StatusCode, Cause: fmt.Errorf("decode body: %w", err)}
	}

	// Пустой слайс, а не nil: фронт получит [], а не null
	out := make([]domain.BorrowRequest, 0, len(items))
	for _, it := range items {
		out = append(out, domain.BorrowRequest{
			ID:              it.ID,
			MemberName:      it.MemberName,
			BookTitle:       it.BookTitle,
			PhoneNumber:     it.PhoneNumber,
			TransactionDate: it.TransactionDate,
			DueDate:         it.DueDate,
			Status:          domain.StatusPending,
		})
	}

	c.logger.Debug("pending queue fetched", zap.Int("count", len(out)))
	return out, nil
}

// SubmitDecision фиксирует решение. Тело ответа не используется, важен только HTTP статус.
func (c *Client) SubmitDecision(ctx context.Context, d domain.Decision) error {
	body, err := json.Marshal(decisionDTO{
		ID:          d.RequestID,
		Name:        d.MemberName,
		Title:       d.BookTitle,
		PhoneNumber: d.PhoneNumber,
		IsApprove:   d.Approve,
	})
	if err != nil {
		return fmt.Errorf("%s: marshal body: %w", OpSubmitDecision, err)
	}

	resp, err := c.do(ctx, OpSubmitDecision, http.MethodPost, c.decisionPath, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Info("decision submitted",
		zap.String("request_id", d.RequestID),
		zap.String("action", d.Action()))
	return nil
}

// do выполняет запрос и классифицирует ошибки: всё, что не 2xx, превращается
// в TransportError или ValidationError.
func (c *Client) do(ctx context.Context, op, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Op: op, Cause: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	text := strings.TrimSpace(string(msg))

	// Отказ по данным бывает только у решения. Любой не-2xx на чтении очереди -
	// транспортная ошибка (в том числе 404 от неверного pending_path).
	if op == OpSubmitDecision && rejectsDecision(resp.StatusCode) {
		return nil, &domain.ValidationError{Op: op, StatusCode: resp.StatusCode, Message: text}
	}
	return nil, &domain.TransportError{Op: op, StatusCode: resp.StatusCode, Cause: fmt.Errorf("%s", text)}
}

func rejectsDecision(status int) bool {
	switch status {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity:
		return true
	}
	return false
}
