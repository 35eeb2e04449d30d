package handler

import (
	"context"
	"net/http"

	"github.com/xela07ax/libra-console/internal/domain"
)

// DecisionHistory описывает чтение журнала решений
type DecisionHistory interface {
	FetchDecisions(ctx context.Context, requestID string, limit int) ([]domain.DecisionRecord, error)
}

type DecisionHandler struct {
	history DecisionHistory
}

func NewDecisionHandler(h DecisionHistory) *DecisionHandler {
	return &DecisionHandler{history: h}
}

// List возвращает историю решений с фильтром по заявке.
// GET /v1/decisions?request_id=...&limit=...
func (h *DecisionHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.history.FetchDecisions(r.Context(), r.URL.Query().Get("request_id"), queryInt(r, "limit"))
	if err != nil {
		http.Error(w, "Failed to fetch decision history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
