package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/sackline/internal/adapters/mq/queue"
	"github.com/okian/sackline/internal/adapters/mq/worker"
	"github.com/okian/sackline/internal/domain/scenario"
)

const maxPredictBody = 1 << 20

// PredictDependencies defines the interface for scoring scenarios.
type PredictDependencies interface {
	Predict(ctx context.Context, sc scenario.Scenario) (Prediction, error)
}

// PredictHandler handles prediction requests.
type PredictHandler struct {
	deps PredictDependencies
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps PredictDependencies) *PredictHandler {
	return &PredictHandler{deps: deps}
}

// HandlePredict handles POST /predict requests.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_predict"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPredictBody))
	dec.DisallowUnknownFields()
	var sc scenario.Scenario
	if err := dec.Decode(&sc); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	pred, err := h.deps.Predict(r.Context(), sc)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, pred)
	case errors.Is(err, queue.ErrFull):
		fail(w, WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, worker.ErrStopped):
		fail(w, WrapKind(op, ErrUnavailable, err))
	default:
		fail(w, Wrap(op, err))
	}
}
