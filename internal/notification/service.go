package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/driftsync/driftsync-api/internal/models"
	"github.com/driftsync/driftsync-api/internal/repository"
	"github.com/rs/zerolog"
)

type Event struct {
	Event    models.NotificationEvent
	Severity models.NotificationSeverity
	Title    string
	Message  string
	Metadata map[string]interface{}
}

type Service interface {
	Publish(ctx context.Context, evt Event) (models.Notification, error)
	NotifyExtractionStarted(ctx context.Context, jobID, tableName string) error
	NotifyExtractionCompleted(ctx context.Context, jobID, tableName string, extractedRecords int64) error
	NotifyExtractionFailed(ctx context.Context, jobID, tableName, reason string) error
	NotifySchemaDrift(ctx context.Context, sourceID int64, version int, summary string) error
	ListRecent(ctx context.Context, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID string) (models.Notification, error)
}

type service struct {
	repo      repository.NotificationRepository
	logger    zerolog.Logger
	notifiers []Notifier
}

func NewService(repo repository.NotificationRepository, logger zerolog.Logger, notifiers ...Notifier) Service {
	active := make([]Notifier, 0, len(notifiers))
	for _, notifier := range notifiers {
		if notifier != nil {
			active = append(active, notifier)
		}
	}
	return &service{
		repo:      repo,
		logger:    logger.With().Str("component", "notification_service").Logger(),
		notifiers: active,
	}
}

func (s *service) Publish(ctx context.Context, evt Event) (models.Notification, error) {
	if evt.Event == "" {
		return models.Notification{}, fmt.Errorf("event type is required")
	}
	if evt.Severity == "" {
		evt.Severity = models.NotificationSeverityInfo
	}
	title := strings.TrimSpace(evt.Title)
	message := strings.TrimSpace(evt.Message)
	if title == "" {
		title = string(evt.Event)
	}
	params := repository.CreateNotificationParams{
		Event:    evt.Event,
		Severity: evt.Severity,
		Title:    title,
		Message:  message,
		Metadata: evt.Metadata,
	}

	notif, err := s.repo.Create(ctx, params)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", string(evt.Event)).Msg("failed to persist notification")
		return models.Notification{}, err
	}
	for _, notifier := range s.notifiers {
		if err := notifier.Notify(ctx, notif); err != nil {
			s.logger.Warn().
				Err(err).
				Str("notification_id", notif.ID).
				Str("event_type", string(notif.EventType)).
				Str("channel", notifier.Name()).
				Msg("failed to deliver notification")
		}
	}
	return notif, nil
}

func (s *service) NotifyExtractionStarted(ctx context.Context, jobID, tableName string) error {
	_, err := s.Publish(ctx, Event{
		Event:    models.NotificationEventExtractionStarted,
		Severity: models.NotificationSeverityInfo,
		Title:    fmt.Sprintf("Extraction started: %s", tableName),
		Message:  fmt.Sprintf("Extraction job %s for table %s has started.", jobID, tableName),
		Metadata: map[string]interface{}{
			"job_id": jobID,
			"table":  tableName,
		},
	})
	return err
}

func (s *service) NotifyExtractionCompleted(ctx context.Context, jobID, tableName string, extractedRecords int64) error {
	metadata := map[string]interface{}{
		"job_id": jobID,
		"table":  tableName,
	}
	if extractedRecords > 0 {
		metadata["extracted_records"] = extractedRecords
	}
	_, err := s.Publish(ctx, Event{
		Event:    models.NotificationEventExtractionCompleted,
		Severity: models.NotificationSeverityInfo,
		Title:    fmt.Sprintf("Extraction completed: %s", tableName),
		Message:  fmt.Sprintf("Extraction job %s for table %s completed with %d records.", jobID, tableName, extractedRecords),
		Metadata: metadata,
	})
	return err
}

func (s *service) NotifyExtractionFailed(ctx context.Context, jobID, tableName, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Unknown error"
	}
	_, err := s.Publish(ctx, Event{
		Event:    models.NotificationEventExtractionFailed,
		Severity: models.NotificationSeverityError,
		Title:    fmt.Sprintf("Extraction failed: %s", tableName),
		Message:  fmt.Sprintf("Extraction job %s for table %s failed: %s", jobID, tableName, reason),
		Metadata: map[string]interface{}{
			"job_id": jobID,
			"table":  tableName,
			"reason": reason,
		},
	})
	return err
}

func (s *service) NotifySchemaDrift(ctx context.Context, sourceID int64, version int, summary string) error {
	_, err := s.Publish(ctx, Event{
		Event:    models.NotificationEventSchemaDrift,
		Severity: models.NotificationSeverityWarning,
		Title:    fmt.Sprintf("Schema drift detected on source %d", sourceID),
		Message:  summary,
		Metadata: map[string]interface{}{
			"source_id": sourceID,
			"version":   version,
		},
	})
	return err
}

func (s *service) ListRecent(ctx context.Context, limit int) ([]models.Notification, error) {
	return s.repo.ListRecent(ctx, limit)
}

func (s *service) MarkRead(ctx context.Context, notificationID string) (models.Notification, error) {
	return s.repo.MarkRead(ctx, notificationID)
}
