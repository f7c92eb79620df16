package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/phrazzld/coursework/internal/domain"
	"github.com/phrazzld/coursework/internal/platform/logger"
	"github.com/phrazzld/coursework/internal/store"
)

// NotificationFanout creates the notifications of an announcement.
// Calling it twice for the same announcement creates duplicates, so each
// workflow calls it exactly once inside its unit of work.
type NotificationFanout struct {
	clock   clock.Clock
	metrics *Metrics
	logger  *slog.Logger
}

// NewNotificationFanout creates a NotificationFanout.
func NewNotificationFanout(clk clock.Clock, metrics *Metrics, log *slog.Logger) *NotificationFanout {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = slog.Default()
	}
	return &NotificationFanout{
		clock:   clk,
		metrics: metrics,
		logger:  log.With("component", "notification_fanout"),
	}
}

// Notify sends announcementID to every student actively enrolled in courseID
// at call time. s must be bound to the caller's transaction. It returns the
// recipients in ascending order.
func (f *NotificationFanout) Notify(ctx context.Context, s store.Stores, courseID, announcementID int64) ([]int64, error) {
	recipients, err := s.Enrollments.ActiveStudentIDs(ctx, courseID)
	if err != nil {
		return nil, classify(err, "enrollment", courseID)
	}
	if err := f.NotifyRecipients(ctx, s, announcementID, recipients); err != nil {
		return nil, err
	}
	return recipients, nil
}

// NotifyRecipients creates one unread notification of announcementID per
// recipient with a single bulk insert.
func (f *NotificationFanout) NotifyRecipients(ctx context.Context, s store.Stores, announcementID int64, recipientIDs []int64) error {
	if len(recipientIDs) == 0 {
		return nil
	}

	sentAt := f.clock.Now().UTC().Truncate(time.Microsecond)
	notifications := make([]*domain.Notification, len(recipientIDs))
	for i, id := range recipientIDs {
		notifications[i] = &domain.Notification{
			RecipientID:    id,
			AnnouncementID: announcementID,
			SentAt:         sentAt,
		}
	}

	if err := s.Notifications.CreateMany(ctx, notifications); err != nil {
		return classify(err, "notification", announcementID)
	}

	f.metrics.addNotifications(len(notifications))
	logger.FromContextOrDefault(ctx, f.logger).Debug("notifications fanned out",
		slog.Int64("announcement_id", announcementID),
		slog.Int("recipients", len(notifications)))
	return nil
}
