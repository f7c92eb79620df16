package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/phrazzld/coursework/internal/domain"
	"github.com/phrazzld/coursework/internal/platform/logger"
	"github.com/phrazzld/coursework/internal/store"
)

// AnnouncementStore implements store.AnnouncementStore.
type AnnouncementStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewAnnouncementStore creates an AnnouncementStore. If logger is nil, a default logger will be used.
func NewAnnouncementStore(db store.DBTX, logger *slog.Logger) *AnnouncementStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnnouncementStore{
		db:     db,
		logger: logger.With(slog.String("component", "announcement_store")),
	}
}

var _ store.AnnouncementStore = (*AnnouncementStore)(nil)

// Create implements store.AnnouncementStore.Create.
func (s *AnnouncementStore) Create(ctx context.Context, a *domain.Announcement) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO announcements (course_id, title, message, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, a.CourseID, a.Title, a.Message, a.CreatedAt).Scan(&a.ID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to create announcement",
			slog.Int64("course_id", a.CourseID),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.AnnouncementStore.GetByID.
func (s *AnnouncementStore) GetByID(ctx context.Context, id int64) (*domain.Announcement, error) {
	var a domain.Announcement
	err := s.db.QueryRowContext(ctx, `
		SELECT id, course_id, title, message, created_at
		FROM announcements
		WHERE id = $1
	`, id).Scan(&a.ID, &a.CourseID, &a.Title, &a.Message, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAnnouncementNotFound
		}
		return nil, MapError(err)
	}
	return &a, nil
}

// ListByCourse implements store.AnnouncementStore.ListByCourse.
func (s *AnnouncementStore) ListByCourse(ctx context.Context, courseID int64) ([]*domain.Announcement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, course_id, title, message, created_at
		FROM announcements
		WHERE course_id = $1
		ORDER BY created_at DESC, id DESC
	`, courseID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := []*domain.Announcement{}
	for rows.Next() {
		var a domain.Announcement
		if err := rows.Scan(&a.ID, &a.CourseID, &a.Title, &a.Message, &a.CreatedAt); err != nil {
			return nil, MapError(err)
		}
		out = append(out, &a)
	}
	return out, MapError(rows.Err())
}

// WithTx implements store.AnnouncementStore.WithTx.
func (s *AnnouncementStore) WithTx(tx *sql.Tx) store.AnnouncementStore {
	return &AnnouncementStore{db: tx, logger: s.logger}
}

// NotificationStore implements store.NotificationStore.
type NotificationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewNotificationStore creates a NotificationStore. If logger is nil, a default logger will be used.
func NewNotificationStore(db store.DBTX, logger *slog.Logger) *NotificationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationStore{
		db:     db,
		logger: logger.With(slog.String("component", "notification_store")),
	}
}

var _ store.NotificationStore = (*NotificationStore)(nil)

// maxNotificationBatch keeps one INSERT under SQLite's bound parameter limit.
const maxNotificationBatch = 10000

// CreateMany implements store.NotificationStore.CreateMany. Recipients up to
// maxNotificationBatch go out in a single multi-row INSERT.
func (s *NotificationStore) CreateMany(ctx context.Context, notifications []*domain.Notification) error {
	for start := 0; start < len(notifications); start += maxNotificationBatch {
		end := min(start+maxNotificationBatch, len(notifications))
		if err := s.insertBatch(ctx, notifications[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *NotificationStore) insertBatch(ctx context.Context, batch []*domain.Notification) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var b strings.Builder
	b.WriteString(`INSERT INTO notifications (recipient_id, announcement_id, is_read, sent_at) VALUES `)
	args := make([]any, 0, len(batch)*4)
	byRecipient := make(map[int64]*domain.Notification, len(batch))
	for i, n := range batch {
		if i > 0 {
			b.WriteString(", ")
		}
		base := i * 4
		b.WriteString("($")
		b.WriteString(strconv.Itoa(base + 1))
		b.WriteString(", $")
		b.WriteString(strconv.Itoa(base + 2))
		b.WriteString(", $")
		b.WriteString(strconv.Itoa(base + 3))
		b.WriteString(", $")
		b.WriteString(strconv.Itoa(base + 4))
		b.WriteString(")")
		args = append(args, n.RecipientID, n.AnnouncementID, n.Read, n.SentAt)
		byRecipient[n.RecipientID] = n
	}
	b.WriteString(` RETURNING id, recipient_id`)

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		log.Error("failed to insert notifications",
			slog.Int("count", len(batch)),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id, recipientID int64
		if err := rows.Scan(&id, &recipientID); err != nil {
			return MapError(err)
		}
		if n, ok := byRecipient[recipientID]; ok {
			n.ID = id
		}
	}
	if err := rows.Err(); err != nil {
		return MapError(err)
	}

	log.Debug("notifications inserted", slog.Int("count", len(batch)))
	return nil
}

// GetByID implements store.NotificationStore.GetByID.
func (s *NotificationStore) GetByID(ctx context.Context, id int64) (*domain.Notification, error) {
	var n domain.Notification
	err := s.db.QueryRowContext(ctx, `
		SELECT id, recipient_id, announcement_id, is_read, sent_at
		FROM notifications
		WHERE id = $1
	`, id).Scan(&n.ID, &n.RecipientID, &n.AnnouncementID, &n.Read, &n.SentAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotificationNotFound
		}
		return nil, MapError(err)
	}
	return &n, nil
}

// MarkRead implements store.NotificationStore.MarkRead.
func (s *NotificationStore) MarkRead(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = $1 WHERE id = $2`, true, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrNotificationNotFound)
}

// Delete implements store.NotificationStore.Delete.
func (s *NotificationStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrNotificationNotFound)
}

// CountUnread implements store.NotificationStore.CountUnread.
func (s *NotificationStore) CountUnread(ctx context.Context, recipientID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND is_read = $2`,
		recipientID, false,
	).Scan(&n)
	if err != nil {
		return 0, MapError(err)
	}
	return n, nil
}

// ListByAnnouncement implements store.NotificationStore.ListByAnnouncement.
func (s *NotificationStore) ListByAnnouncement(ctx context.Context, announcementID int64) ([]*domain.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipient_id, announcement_id, is_read, sent_at
		FROM notifications
		WHERE announcement_id = $1
		ORDER BY recipient_id
	`, announcementID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := []*domain.Notification{}
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.AnnouncementID, &n.Read, &n.SentAt); err != nil {
			return nil, MapError(err)
		}
		out = append(out, &n)
	}
	return out, MapError(rows.Err())
}

// ListFeed implements store.NotificationStore.ListFeed.
func (s *NotificationStore) ListFeed(ctx context.Context, recipientID int64, limit int) ([]domain.FeedItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.id, a.id, a.course_id, a.title, a.message, n.is_read, n.sent_at
		FROM notifications n
		JOIN announcements a ON a.id = n.announcement_id
		WHERE n.recipient_id = $1
		ORDER BY n.sent_at DESC, n.id DESC
		LIMIT $2
	`, recipientID, limit)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.FeedItem{}
	for rows.Next() {
		var f domain.FeedItem
		if err := rows.Scan(
			&f.NotificationID,
			&f.AnnouncementID,
			&f.CourseID,
			&f.Title,
			&f.Message,
			&f.Read,
			&f.SentAt,
		); err != nil {
			return nil, MapError(err)
		}
		out = append(out, f)
	}
	return out, MapError(rows.Err())
}

// WithTx implements store.NotificationStore.WithTx.
func (s *NotificationStore) WithTx(tx *sql.Tx) store.NotificationStore {
	return &NotificationStore{db: tx, logger: s.logger}
}
