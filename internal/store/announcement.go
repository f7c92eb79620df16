package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/coursework/internal/domain"
)

// AnnouncementStore defines the interface for announcement persistence.
type AnnouncementStore interface {
	// Create inserts an announcement and sets announcement.ID.
	Create(ctx context.Context, announcement *domain.Announcement) error

	// GetByID retrieves an announcement by id.
	// Returns ErrAnnouncementNotFound if it does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Announcement, error)

	// ListByCourse returns the announcements of a course, newest first.
	ListByCourse(ctx context.Context, courseID int64) ([]*domain.Announcement, error)

	WithTx(tx *sql.Tx) AnnouncementStore
}

// NotificationStore defines the interface for notification persistence.
type NotificationStore interface {
	// CreateMany inserts all notifications with a single statement and sets
	// their ids. An empty slice is a no-op.
	CreateMany(ctx context.Context, notifications []*domain.Notification) error

	// GetByID retrieves a notification by id.
	// Returns ErrNotificationNotFound if it does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Notification, error)

	// MarkRead sets the read flag.
	// Returns ErrNotificationNotFound if it does not exist.
	MarkRead(ctx context.Context, id int64) error

	// Delete removes a notification.
	// Returns ErrNotificationNotFound if it does not exist.
	Delete(ctx context.Context, id int64) error

	// CountUnread returns the number of unread notifications of a recipient.
	CountUnread(ctx context.Context, recipientID int64) (int, error)

	// ListByAnnouncement returns the notifications of an announcement ordered
	// by recipient id.
	ListByAnnouncement(ctx context.Context, announcementID int64) ([]*domain.Notification, error)

	// ListFeed returns up to limit notifications of a recipient joined with
	// their announcements, newest first.
	ListFeed(ctx context.Context, recipientID int64, limit int) ([]domain.FeedItem, error)

	WithTx(tx *sql.Tx) NotificationStore
}
