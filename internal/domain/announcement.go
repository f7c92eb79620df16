package domain

import (
	"strings"
	"time"
)

// Announcement is a message posted to every active member of a course.
type Announcement struct {
	ID        int64     `json:"id"`
	CourseID  int64     `json:"course_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAnnouncement validates title and message and builds an Announcement.
func NewAnnouncement(courseID int64, title, message string, now time.Time) (*Announcement, error) {
	title = strings.TrimSpace(title)
	message = strings.TrimSpace(message)
	if title == "" {
		return nil, NewValidationError("title", "is required", nil)
	}
	if len(title) > 200 {
		return nil, NewValidationError("title", "must be at most 200", nil)
	}
	if message == "" {
		return nil, NewValidationError("message", "is required", nil)
	}
	return &Announcement{
		CourseID:  courseID,
		Title:     title,
		Message:   message,
		CreatedAt: now.UTC(),
	}, nil
}

// Notification links a recipient student profile to an announcement. It is
// created only by the fan-out and mutated only by its recipient.
type Notification struct {
	ID             int64     `json:"id"`
	RecipientID    int64     `json:"recipient_id"`
	AnnouncementID int64     `json:"announcement_id"`
	Read           bool      `json:"read"`
	SentAt         time.Time `json:"sent_at"`
}

// OwnerID implements OwnedResource.
func (n *Notification) OwnerID() int64 { return n.RecipientID }

// FeedItem is a notification joined with its announcement.
type FeedItem struct {
	NotificationID int64     `json:"notification_id"`
	AnnouncementID int64     `json:"announcement_id"`
	CourseID       int64     `json:"course_id"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	Read           bool      `json:"read"`
	SentAt         time.Time `json:"sent_at"`
}
