package notification

import (
	"context"

	"github.com/driftsync/driftsync-api/internal/models"
	"github.com/rs/zerolog"
)

// LogNotifier emits every published notification to the structured log.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "log_notifier").Logger()}
}

func (n *LogNotifier) Name() string {
	return "log"
}

func (n *LogNotifier) Notify(_ context.Context, notif models.Notification) error {
	n.logger.Info().
		Str("notification_id", notif.ID).
		Str("event_type", string(notif.EventType)).
		Str("severity", string(notif.Severity)).
		Str("title", notif.Title).
		Msg(notif.Message)
	return nil
}
