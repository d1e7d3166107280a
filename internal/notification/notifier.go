package notification

import (
	"context"

	"github.com/driftsync/driftsync-api/internal/models"
)

// Notifier is a delivery channel for persisted notifications. Delivery is
// best effort; a failed channel never fails the publish.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, notification models.Notification) error
}
