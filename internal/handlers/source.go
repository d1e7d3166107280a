package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/driftsync/driftsync-api/internal/models"
	"github.com/driftsync/driftsync-api/internal/repository"
	"github.com/driftsync/driftsync-api/internal/schema"
)

type SourceHandler struct {
	repo    repository.SourceRepository
	schemas *schema.Service
	logger  zerolog.Logger
}

type sourceRequest struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
	IsActive *bool  `json:"is_active"`
}

func NewSourceHandler(repo repository.SourceRepository, schemas *schema.Service, logger zerolog.Logger) *SourceHandler {
	return &SourceHandler{repo: repo, schemas: schemas, logger: logger}
}

func (h *SourceHandler) List(w http.ResponseWriter, r *http.Request) {
	sources, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list sources")
		http.Error(w, "Failed to list sources", http.StatusInternalServerError)
		return
	}
	if sources == nil {
		sources = []*models.Source{}
	}
	writeJSON(w, http.StatusOK, sources)
}

func (h *SourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	source, ok := h.fetch(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, source)
}

func (h *SourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := validateSourceRequest(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	source := &models.Source{
		Name:     req.Name,
		Host:     req.Host,
		Port:     req.Port,
		Database: req.Database,
		User:     req.User,
		Password: req.Password,
		IsActive: true,
	}
	if req.IsActive != nil {
		source.IsActive = *req.IsActive
	}

	created, err := h.repo.Create(r.Context(), source)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create source")
		http.Error(w, "Failed to create source: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *SourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	source, ok := h.fetch(w, r)
	if !ok {
		return
	}

	var req sourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if req.Name != "" {
		source.Name = req.Name
	}
	if req.Host != "" {
		source.Host = req.Host
	}
	if req.Port != 0 {
		source.Port = req.Port
	}
	if req.Database != "" {
		source.Database = req.Database
	}
	if req.User != "" {
		source.User = req.User
	}
	if req.Password != "" {
		source.Password = req.Password
	}
	if req.IsActive != nil {
		source.IsActive = *req.IsActive
	}

	updated, err := h.repo.Update(r.Context(), source)
	if err != nil {
		h.logger.Error().Err(err).Int64("source_id", source.ID).Msg("failed to update source")
		http.Error(w, "Failed to update source: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *SourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid source ID", http.StatusBadRequest)
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.logger.Error().Err(err).Int64("source_id", id).Msg("failed to delete source")
		http.Error(w, "Failed to delete source: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TestConnection opens a throwaway session against the source and reports
// whether it answers.
func (h *SourceHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	source, ok := h.fetch(w, r)
	if !ok {
		return
	}

	inspector, err := schema.NewInspector(source)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	defer inspector.Close()

	if err := inspector.CheckConnection(r.Context()); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *SourceHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	source, ok := h.fetch(w, r)
	if !ok {
		return
	}

	inspector, err := schema.NewInspector(source)
	if err != nil {
		http.Error(w, "Failed to connect to source: "+err.Error(), http.StatusBadGateway)
		return
	}
	defer inspector.Close()

	tables, err := inspector.FetchTables(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Int64("source_id", source.ID).Msg("failed to fetch tables")
		http.Error(w, "Failed to fetch tables: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"tables": tables})
}

func (h *SourceHandler) ListColumns(w http.ResponseWriter, r *http.Request) {
	source, ok := h.fetch(w, r)
	if !ok {
		return
	}
	tableName := strings.TrimSpace(mux.Vars(r)["table"])
	if tableName == "" {
		http.Error(w, "Table name is required", http.StatusBadRequest)
		return
	}

	inspector, err := schema.NewInspector(source)
	if err != nil {
		http.Error(w, "Failed to connect to source: "+err.Error(), http.StatusBadGateway)
		return
	}
	defer inspector.Close()

	columns, err := inspector.FetchColumns(r.Context(), tableName)
	if err != nil {
		h.logger.Error().Err(err).Int64("source_id", source.ID).Str("table", tableName).Msg("failed to fetch columns")
		http.Error(w, "Failed to fetch columns: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]models.ColumnSchema{"columns": columns})
}

// CaptureSchema takes a fresh snapshot and persists it when it differs from
// the current version.
func (h *SourceHandler) CaptureSchema(w http.ResponseWriter, r *http.Request) {
	source, ok := h.fetch(w, r)
	if !ok {
		return
	}

	result, err := h.schemas.CaptureSnapshot(r.Context(), source)
	if err != nil {
		h.logger.Error().Err(err).Int64("source_id", source.ID).Msg("failed to capture schema")
		http.Error(w, "Failed to capture schema: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *SourceHandler) CurrentSchema(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid source ID", http.StatusBadRequest)
		return
	}
	version, err := h.schemas.Current(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to load schema: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if version == nil {
		http.Error(w, "No schema captured for source", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, version)
}

func (h *SourceHandler) SchemaVersions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid source ID", http.StatusBadRequest)
		return
	}
	versions, err := h.schemas.Versions(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to list schema versions: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if versions == nil {
		versions = []*models.SchemaVersion{}
	}
	writeJSON(w, http.StatusOK, versions)
}

// SchemaDiff compares two stored versions, given as ?from=N&to=M.
func (h *SourceHandler) SchemaDiff(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid source ID", http.StatusBadRequest)
		return
	}
	from, err1 := strconv.Atoi(r.URL.Query().Get("from"))
	to, err2 := strconv.Atoi(r.URL.Query().Get("to"))
	if err1 != nil || err2 != nil {
		http.Error(w, "Query parameters from and to are required", http.StatusBadRequest)
		return
	}

	diff, err := h.schemas.Compare(r.Context(), id, from, to)
	if err != nil {
		http.Error(w, "Failed to diff schema versions: "+err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, diff)
}

func (h *SourceHandler) fetch(w http.ResponseWriter, r *http.Request) (*models.Source, bool) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid source ID", http.StatusBadRequest)
		return nil, false
	}
	source, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Int64("source_id", id).Msg("failed to get source")
		http.Error(w, "Failed to get source", http.StatusInternalServerError)
		return nil, false
	}
	if source == nil {
		http.Error(w, "Source not found", http.StatusNotFound)
		return nil, false
	}
	return source, true
}

func validateSourceRequest(req *sourceRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Host = strings.TrimSpace(req.Host)
	req.Database = strings.TrimSpace(req.Database)
	req.User = strings.TrimSpace(req.User)
	if req.Name == "" || req.Host == "" || req.Database == "" || req.User == "" {
		return errors.New("name, host, database and user are required")
	}
	if req.Port == 0 {
		req.Port = 5432
	}
	return nil
}
