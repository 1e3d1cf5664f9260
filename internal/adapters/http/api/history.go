package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

const defaultHistoryLimit = 10

// HistoryDependencies defines the interface for reading recorded predictions.
type HistoryDependencies interface {
	History(ctx context.Context, n int) ([]Prediction, error)
	Lookup(ctx context.Context, id string) (Prediction, error)
}

// HistoryHandler handles history requests.
type HistoryHandler struct {
	deps     HistoryDependencies
	maxLimit int
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps HistoryDependencies, maxLimit int) *HistoryHandler {
	return &HistoryHandler{deps: deps, maxLimit: maxLimit}
}

// HandleHistory handles GET /history?limit=N requests. limit defaults to 10.
func (h *HistoryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_history"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n := min(defaultHistoryLimit, h.maxLimit)
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > h.maxLimit {
			fail(w, WrapKind(op, ErrBadRequest, fmt.Errorf("limit must be an integer in 1..%d", h.maxLimit)))
			return
		}
		n = v
	}
	preds, err := h.deps.History(r.Context(), n)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	if preds == nil {
		preds = []Prediction{}
	}
	writeJSON(w, http.StatusOK, preds)
}

// HandleLookup handles GET /history/{id} requests.
func (h *HistoryHandler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_prediction"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := r.PathValue("id")
	if id == "" {
		fail(w, NewKind(op, ErrBadRequest))
		return
	}
	pred, err := h.deps.Lookup(r.Context(), id)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, pred)
}
