package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lfarias/zoomrank/internal/models"
	"github.com/lfarias/zoomrank/internal/storage"
)

// RunSource provides persisted ranking runs to the API. *storage.Store
// satisfies it; tests use a stub.
type RunSource interface {
	LatestRun(ctx context.Context) (*storage.Run, []*models.Product, error)
	GetRun(ctx context.Context, id uuid.UUID) (*storage.Run, []*models.Product, error)
}

type Handlers struct {
	runs   RunSource
	logger *slog.Logger
}

func NewHandlers(runs RunSource, logger *slog.Logger) *Handlers {
	return &Handlers{
		runs:   runs,
		logger: logger.With("component", "api"),
	}
}

// RunResponse is a run plus its ranked products.
type RunResponse struct {
	Run      *storage.Run      `json:"run"`
	Products []*models.Product `json:"products"`
}

// GetLatestRun serves the most recent ranking.
func (h *Handlers) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	run, products, err := h.runs.LatestRun(r.Context())
	if err != nil {
		if errors.Is(err, storage.ErrRunNotFound) {
			h.respondError(w, http.StatusNotFound, "no ranking runs yet")
			return
		}
		h.logger.Error("failed to load latest run", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load latest run")
		return
	}

	h.respondJSON(w, http.StatusOK, RunResponse{Run: run, Products: products})
}

// GetRun serves one ranking run by ID.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid run ID")
		return
	}

	run, products, err := h.runs.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrRunNotFound) {
			h.respondError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.Error("failed to load run", "run_id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load run")
		return
	}

	h.respondJSON(w, http.StatusOK, RunResponse{Run: run, Products: products})
}

// Health is a liveness probe.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
