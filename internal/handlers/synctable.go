package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/driftsync/driftsync-api/internal/models"
	"github.com/driftsync/driftsync-api/internal/orchestrator"
	"github.com/driftsync/driftsync-api/internal/repository"
)

type SyncTableHandler struct {
	repo    repository.SyncTableRepository
	sources repository.SourceRepository
	logger  zerolog.Logger
}

type syncTableRequest struct {
	SourceID     int64  `json:"source_id"`
	TableName    string `json:"table_name"`
	IsActive     *bool  `json:"is_active"`
	CursorColumn string `json:"cursor_column"`
	BatchSize    int    `json:"batch_size"`
	SyncInterval int    `json:"sync_interval"`
}

func NewSyncTableHandler(repo repository.SyncTableRepository, sources repository.SourceRepository, logger zerolog.Logger) *SyncTableHandler {
	return &SyncTableHandler{repo: repo, sources: sources, logger: logger}
}

func (h *SyncTableHandler) List(w http.ResponseWriter, r *http.Request) {
	tables, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list sync tables")
		http.Error(w, "Failed to list sync tables", http.StatusInternalServerError)
		return
	}
	if tables == nil {
		tables = []*models.SyncTable{}
	}
	writeJSON(w, http.StatusOK, tables)
}

func (h *SyncTableHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid sync table ID", http.StatusBadRequest)
		return
	}
	table, err := h.repo.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to get sync table", http.StatusInternalServerError)
		return
	}
	if table == nil {
		http.Error(w, "Sync table not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

func (h *SyncTableHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req syncTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	req.TableName = strings.TrimSpace(req.TableName)
	if req.SourceID <= 0 || req.TableName == "" {
		http.Error(w, "source_id and table_name are required", http.StatusBadRequest)
		return
	}
	if req.BatchSize == 0 {
		req.BatchSize = orchestrator.DefaultBatchSize
	}
	if req.BatchSize < orchestrator.MinBatchSize || req.BatchSize > orchestrator.MaxBatchSize {
		http.Error(w, "batch_size out of range", http.StatusBadRequest)
		return
	}
	if req.SyncInterval <= 0 {
		req.SyncInterval = 3600
	}

	source, err := h.sources.Get(r.Context(), req.SourceID)
	if err != nil {
		http.Error(w, "Failed to verify source", http.StatusInternalServerError)
		return
	}
	if source == nil {
		http.Error(w, "Source not found", http.StatusNotFound)
		return
	}

	table := &models.SyncTable{
		SourceID:     req.SourceID,
		TableName:    req.TableName,
		IsActive:     true,
		CursorColumn: strings.TrimSpace(req.CursorColumn),
		BatchSize:    req.BatchSize,
		SyncInterval: req.SyncInterval,
	}
	if req.IsActive != nil {
		table.IsActive = *req.IsActive
	}

	created, err := h.repo.Create(r.Context(), table)
	if err != nil {
		h.logger.Error().Err(err).Int64("source_id", req.SourceID).Str("table", req.TableName).Msg("failed to register sync table")
		http.Error(w, "Failed to register sync table: "+err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *SyncTableHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid sync table ID", http.StatusBadRequest)
		return
	}
	table, err := h.repo.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to get sync table", http.StatusInternalServerError)
		return
	}
	if table == nil {
		http.Error(w, "Sync table not found", http.StatusNotFound)
		return
	}

	var req syncTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if name := strings.TrimSpace(req.TableName); name != "" {
		table.TableName = name
	}
	if req.IsActive != nil {
		table.IsActive = *req.IsActive
	}
	if req.CursorColumn != "" {
		table.CursorColumn = strings.TrimSpace(req.CursorColumn)
	}
	if req.BatchSize != 0 {
		if req.BatchSize < orchestrator.MinBatchSize || req.BatchSize > orchestrator.MaxBatchSize {
			http.Error(w, "batch_size out of range", http.StatusBadRequest)
			return
		}
		table.BatchSize = req.BatchSize
	}
	if req.SyncInterval > 0 {
		table.SyncInterval = req.SyncInterval
	}

	updated, err := h.repo.Update(r.Context(), table)
	if err != nil {
		http.Error(w, "Failed to update sync table: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *SyncTableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid sync table ID", http.StatusBadRequest)
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		http.Error(w, "Failed to delete sync table: "+err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SyncTableHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid sync table ID", http.StatusBadRequest)
		return
	}
	table, err := h.repo.Toggle(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to toggle sync table: "+err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, table)
}
