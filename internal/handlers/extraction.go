package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/driftsync/driftsync-api/internal/orchestrator"
	"github.com/driftsync/driftsync-api/internal/statestore"
)

type ExtractionHandler struct {
	orchestrator *orchestrator.Orchestrator
	logger       zerolog.Logger
}

func NewExtractionHandler(orch *orchestrator.Orchestrator, logger zerolog.Logger) *ExtractionHandler {
	return &ExtractionHandler{orchestrator: orch, logger: logger}
}

// Create submits a new extraction job and starts its workflow.
func (h *ExtractionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	job, err := h.orchestrator.Submit(r.Context(), req)
	if err != nil {
		h.logger.Error().Err(err).Str("table", req.TableName).Msg("failed to submit extraction")
		http.Error(w, "Failed to submit extraction: "+err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

// Get returns the full job record.
func (h *ExtractionHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]
	job, err := h.orchestrator.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, statestore.ErrNotFound) {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to get job")
		http.Error(w, "Failed to get job", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Status returns a minimal status view, falling back to workflow
// visibility when the record has been evicted.
func (h *ExtractionHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]
	status, err := h.orchestrator.Status(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, statestore.ErrNotFound) {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to get job status")
		http.Error(w, "Failed to get job status", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// List returns retained jobs partitioned into active and completed.
func (h *ExtractionHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.orchestrator.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list jobs")
		http.Error(w, "Failed to list jobs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
