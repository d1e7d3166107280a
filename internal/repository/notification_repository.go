package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/driftsync/driftsync-api/internal/models"
)

const (
	notificationColumns = "id, event_type, severity, title, message, metadata, created_at, read_at"
	defaultRecentLimit  = 25
	maxRecentLimit      = 100
)

type CreateNotificationParams struct {
	Event    models.NotificationEvent
	Severity models.NotificationSeverity
	Title    string
	Message  string
	Metadata map[string]interface{}
}

type NotificationRepository interface {
	Create(ctx context.Context, params CreateNotificationParams) (models.Notification, error)
	ListRecent(ctx context.Context, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID string) (models.Notification, error)
}

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, params CreateNotificationParams) (models.Notification, error) {
	var metadata interface{}
	if len(params.Metadata) > 0 {
		encoded, err := json.Marshal(params.Metadata)
		if err != nil {
			return models.Notification{}, fmt.Errorf("marshal metadata: %w", err)
		}
		metadata = encoded
	}

	row := r.db.QueryRowContext(ctx,
		`INSERT INTO notifications (event_type, severity, title, message, metadata)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+notificationColumns,
		params.Event, params.Severity, params.Title, params.Message, metadata)
	return scanNotification(row)
}

func (r *notificationRepository) ListRecent(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > maxRecentLimit {
		limit = defaultRecentLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		notif, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, notif)
	}
	return notifications, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, notificationID string) (models.Notification, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE notifications SET read_at = NOW() WHERE id = $1 RETURNING `+notificationColumns,
		notificationID)
	return scanNotification(row)
}

func scanNotification(row rowScanner) (models.Notification, error) {
	var (
		notif    models.Notification
		metadata []byte
		readAt   sql.NullTime
	)
	err := row.Scan(&notif.ID, &notif.EventType, &notif.Severity, &notif.Title,
		&notif.Message, &metadata, &notif.CreatedAt, &readAt)
	if err != nil {
		return models.Notification{}, err
	}

	if len(metadata) > 0 {
		notif.Metadata = metadata
	}
	if readAt.Valid {
		at := readAt.Time
		notif.ReadAt = &at
	}
	return notif, nil
}
