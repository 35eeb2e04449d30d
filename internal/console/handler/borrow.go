package handler

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/libra-console/internal/approval"
	"github.com/xela07ax/libra-console/internal/domain"
	"go.uber.org/zap"
)

// BorrowWorkflow Описываем, что нам нужно от сессии согласования
type BorrowWorkflow interface {
	Load(ctx context.Context) error
	Search(query string) iter.Seq[domain.BorrowRequest]
	Type(query string)
	View() iter.Seq[domain.BorrowRequest]
	Coordinator() *approval.Coordinator
}

// NotificationFeed лента toasts для экрана
type NotificationFeed interface {
	Recent(limit int) []domain.Notification
}

type BorrowHandler struct {
	workflow BorrowWorkflow
	feed     NotificationFeed
	logger   *zap.Logger
}

func NewBorrowHandler(w BorrowWorkflow, feed NotificationFeed, logger *zap.Logger) *BorrowHandler {
	return &BorrowHandler{workflow: w, feed: feed, logger: logger.Named("borrow-handler")}
}

// borrowRow - строка таблицы заявок
type borrowRow struct {
	domain.BorrowRequest
	StatusLabel string         `json:"status_label"`
	State       approval.State `json:"state"`
}

// List возвращает строки таблицы.
// GET /v1/borrow-requests?q=... (без q - по активному запросу из строки поиска)
func (h *BorrowHandler) List(w http.ResponseWriter, r *http.Request) {
	seq := h.workflow.View()
	if values := r.URL.Query(); values.Has("q") {
		seq = h.workflow.Search(values.Get("q"))
	}

	coordinator := h.workflow.Coordinator()
	rows := make([]borrowRow, 0)
	for req := range seq {
		rows = append(rows, borrowRow{
			BorrowRequest: req,
			StatusLabel:   req.Status.Label(),
			State:         coordinator.StateOf(req.ID),
		})
	}

	writeJSON(w, http.StatusOK, rows)
}

type searchRequest struct {
	Query string `json:"query"`
}

// Search - ввод в строку поиска (с debounce).
// PUT /v1/borrow-requests/search
func (h *BorrowHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.workflow.Type(req.Query)
	w.WriteHeader(http.StatusAccepted)
}

// Refresh ручная перезагрузка очереди.
// POST /v1/borrow-requests/refresh
func (h *BorrowHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.workflow.Load(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type intentResponse struct {
	domain.DecisionIntent
	Prompt string `json:"prompt"`
}

// Approve / Reject взводят решение и возвращают текст окна подтверждения.
// POST /v1/borrow-requests/{id}/approve
func (h *BorrowHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.arm(w, r, true)
}

// POST /v1/borrow-requests/{id}/reject
func (h *BorrowHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.arm(w, r, false)
}

func (h *BorrowHandler) arm(w http.ResponseWriter, r *http.Request, approve bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	intent, err := h.workflow.Coordinator().Arm(id, approve)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, intentResponse{DecisionIntent: intent, Prompt: intent.Prompt()})
}

// GetDecision текущее решение, ожидающее подтверждения.
// GET /v1/decision
func (h *BorrowHandler) GetDecision(w http.ResponseWriter, r *http.Request) {
	intent, ok := h.workflow.Coordinator().Armed()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, intentResponse{DecisionIntent: intent, Prompt: intent.Prompt()})
}

// Cancel закрывает окно подтверждения без коммита.
// DELETE /v1/decision
func (h *BorrowHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.workflow.Coordinator().Cancel()
	w.WriteHeader(http.StatusNoContent)
}

type outcomeResponse struct {
	approval.Outcome
	StatusLabel string `json:"status_label"`
}

// Confirm коммитит решение в бэкенд.
// POST /v1/decision/confirm
func (h *BorrowHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.workflow.Coordinator().Confirm(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeResponse{Outcome: outcome, StatusLabel: outcome.Status.Label()})
}

// Notifications последние toasts, новые первыми.
// GET /v1/notifications?limit=20
func (h *BorrowHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.feed.Recent(queryInt(r, "limit")))
}

// writeError разделяет типы ошибок (404, 409, 422, 502)
func (h *BorrowHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrRequestNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNothingArmed),
		errors.Is(err, domain.ErrCommitInFlight),
		errors.Is(err, domain.ErrAlreadyProcessed),
		errors.Is(err, domain.ErrStaleIntent):
		status = http.StatusConflict
	case domain.IsValidation(err):
		status = http.StatusUnprocessableEntity
	case domain.IsTransport(err):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("unexpected workflow error", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
