package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/driftsync/driftsync-api/internal/models"
	"github.com/driftsync/driftsync-api/internal/repository"
	"github.com/driftsync/driftsync-api/internal/scheduler"
)

type ScheduleHandler struct {
	repo   repository.ScheduleRepository
	logger zerolog.Logger
}

type scheduleRequest struct {
	Name           string `json:"name"`
	ScheduleType   string `json:"schedule_type"`
	CronExpression string `json:"cron_expression"`
	Timezone       string `json:"timezone"`
	IsActive       *bool  `json:"is_active"`
}

func NewScheduleHandler(repo repository.ScheduleRepository, logger zerolog.Logger) *ScheduleHandler {
	return &ScheduleHandler{repo: repo, logger: logger}
}

func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list schedules")
		http.Error(w, "Failed to list schedules", http.StatusInternalServerError)
		return
	}
	if schedules == nil {
		schedules = []*models.Schedule{}
	}
	writeJSON(w, http.StatusOK, schedules)
}

func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid schedule ID", http.StatusBadRequest)
		return
	}
	schedule, err := h.repo.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to get schedule", http.StatusInternalServerError)
		return
	}
	if schedule == nil {
		http.Error(w, "Schedule not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	schedule, err := scheduleFromRequest(&req, &models.Schedule{IsActive: true, Timezone: "UTC"})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if schedule.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	created, err := h.repo.Create(r.Context(), schedule)
	if err != nil {
		h.logger.Error().Err(err).Str("schedule", schedule.Name).Msg("failed to create schedule")
		http.Error(w, "Failed to create schedule: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid schedule ID", http.StatusBadRequest)
		return
	}
	schedule, err := h.repo.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to get schedule", http.StatusInternalServerError)
		return
	}
	if schedule == nil {
		http.Error(w, "Schedule not found", http.StatusNotFound)
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if _, err := scheduleFromRequest(&req, schedule); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.repo.Update(r.Context(), schedule)
	if err != nil {
		http.Error(w, "Failed to update schedule: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid schedule ID", http.StatusBadRequest)
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		http.Error(w, "Failed to delete schedule: "+err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ScheduleHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid schedule ID", http.StatusBadRequest)
		return
	}
	schedule, err := h.repo.Toggle(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to toggle schedule: "+err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

// scheduleFromRequest merges the request into the schedule and keeps
// next_run_at consistent with the cron expression. Cron expressions are
// validated at write time so the scheduler loop never sees a bad one.
func scheduleFromRequest(req *scheduleRequest, schedule *models.Schedule) (*models.Schedule, error) {
	if name := strings.TrimSpace(req.Name); name != "" {
		schedule.Name = name
	}
	if req.ScheduleType != "" {
		switch models.ScheduleType(req.ScheduleType) {
		case models.ScheduleManual, models.ScheduleCron:
			schedule.ScheduleType = models.ScheduleType(req.ScheduleType)
		default:
			return nil, errInvalidScheduleType
		}
	}
	if schedule.ScheduleType == "" {
		schedule.ScheduleType = models.ScheduleManual
	}
	if tz := strings.TrimSpace(req.Timezone); tz != "" {
		schedule.Timezone = tz
	}
	if expr := strings.TrimSpace(req.CronExpression); expr != "" {
		schedule.CronExpression = expr
	}
	if req.IsActive != nil {
		schedule.IsActive = *req.IsActive
	}

	if schedule.ScheduleType == models.ScheduleCron {
		if schedule.CronExpression == "" {
			return nil, errMissingCron
		}
		next, err := scheduler.NextRun(schedule.CronExpression, schedule.Timezone, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		schedule.NextRunAt = &next
	} else {
		schedule.NextRunAt = nil
	}
	return schedule, nil
}

var (
	errInvalidScheduleType = errors.New("schedule_type must be manual or cron")
	errMissingCron         = errors.New("cron_expression is required for cron schedules")
)
