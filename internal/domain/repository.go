package domain

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the port for notification persistence.
// Every method maps to one stored procedure and runs as one transaction.
// Implementations live in infrastructure/postgres and infrastructure/memory.
type Repository interface {
	// List returns one page of the user's notifications and the total matching count.
	List(ctx context.Context, q ListQuery) ([]*Notification, int64, error)

	// GetByID returns the notification if it exists and belongs to userID, nil otherwise.
	GetByID(ctx context.Context, userID, id uuid.UUID) (*Notification, error)

	// MarkRead moves an unread notification to read. Already read or archived rows are
	// returned unchanged. Returns nil when the row is absent or not owned.
	MarkRead(ctx context.Context, userID, id uuid.UUID) (*Notification, error)

	// MarkReadBulk marks the selected unread rows as read and returns how many changed.
	MarkReadBulk(ctx context.Context, userID uuid.UUID, sel BulkSelection) (int64, error)

	// Delete archives (permanent=false) or removes (permanent=true) a notification.
	Delete(ctx context.Context, userID, id uuid.UUID, permanent bool) (DeleteResult, error)

	// CountUnread aggregates unread notifications, excluding premium-exclusive types
	// entirely unless includePremium is set.
	CountUnread(ctx context.Context, userID uuid.UUID, includePremium bool) (*UnreadCount, error)

	// Create stores a notification. A nil result means storage declined it.
	Create(ctx context.Context, input CreateNotificationInput) (*Notification, error)

	// PurgeArchived removes archived notifications older than the given number of days.
	PurgeArchived(ctx context.Context, olderThanDays int) (int64, error)
}

// SettingsRepository defines the port for per-user notification preferences.
type SettingsRepository interface {
	// GetOrCreate returns the user's preferences, inserting the defaults first if absent.
	// Safe under concurrent first access.
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*Preferences, error)

	// Update applies a partial update (creating defaults first if needed).
	Update(ctx context.Context, userID uuid.UUID, patch PreferencesPatch) (*Preferences, error)
}
