package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/phrazzld/coursework/internal/domain"
	"github.com/phrazzld/coursework/internal/platform/logger"
	"github.com/phrazzld/coursework/internal/store"
)

// EnrollmentStore implements store.EnrollmentStore.
type EnrollmentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewEnrollmentStore creates an EnrollmentStore. If logger is nil, a default logger will be used.
func NewEnrollmentStore(db store.DBTX, logger *slog.Logger) *EnrollmentStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EnrollmentStore{
		db:     db,
		logger: logger.With(slog.String("component", "enrollment_store")),
	}
}

var _ store.EnrollmentStore = (*EnrollmentStore)(nil)

// Create implements store.EnrollmentStore.Create.
func (s *EnrollmentStore) Create(ctx context.Context, e *domain.Enrollment) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO enrollments (student_id, course_id, status, enrolled_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, e.StudentID, e.CourseID, string(e.Status), e.EnrolledAt).Scan(&e.ID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to create enrollment",
			slog.Int64("student_id", e.StudentID),
			slog.Int64("course_id", e.CourseID),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

// Get implements store.EnrollmentStore.Get.
func (s *EnrollmentStore) Get(ctx context.Context, studentID, courseID int64) (*domain.Enrollment, error) {
	var e domain.Enrollment
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, student_id, course_id, status, enrolled_at
		FROM enrollments
		WHERE student_id = $1 AND course_id = $2
	`, studentID, courseID).Scan(&e.ID, &e.StudentID, &e.CourseID, &status, &e.EnrolledAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrEnrollmentNotFound
		}
		return nil, MapError(err)
	}
	e.Status = domain.EnrollmentStatus(status)
	return &e, nil
}

// UpdateStatus implements store.EnrollmentStore.UpdateStatus.
func (s *EnrollmentStore) UpdateStatus(ctx context.Context, id int64, status domain.EnrollmentStatus) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE enrollments SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrEnrollmentNotFound)
}

// CountActive implements store.EnrollmentStore.CountActive.
func (s *EnrollmentStore) CountActive(ctx context.Context, courseID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = $2`,
		courseID, string(domain.EnrollmentEnrolled),
	).Scan(&n)
	if err != nil {
		return 0, MapError(err)
	}
	return n, nil
}

// ActiveStudentIDs implements store.EnrollmentStore.ActiveStudentIDs.
func (s *EnrollmentStore) ActiveStudentIDs(ctx context.Context, courseID int64) ([]int64, error) {
	return queryIDs(ctx, s.db, `
		SELECT student_id FROM enrollments
		WHERE course_id = $1 AND status = $2
		ORDER BY student_id
	`, courseID, string(domain.EnrollmentEnrolled))
}

// ListRoster implements store.EnrollmentStore.ListRoster.
func (s *EnrollmentStore) ListRoster(ctx context.Context, courseID int64) ([]domain.RosterEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT st.id, u.id, u.username, u.name, u.email, st.level, st.major, e.enrolled_at
		FROM enrollments e
		JOIN students st ON st.id = e.student_id
		JOIN users u ON u.id = st.user_id
		WHERE e.course_id = $1 AND e.status = $2
		ORDER BY u.name, st.id
	`, courseID, string(domain.EnrollmentEnrolled))
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.RosterEntry{}
	for rows.Next() {
		var r domain.RosterEntry
		if err := rows.Scan(
			&r.StudentID,
			&r.UserID,
			&r.Username,
			&r.Name,
			&r.Email,
			&r.Level,
			&r.Major,
			&r.EnrolledAt,
		); err != nil {
			return nil, MapError(err)
		}
		out = append(out, r)
	}
	return out, MapError(rows.Err())
}

// ActiveCourseIDs implements store.EnrollmentStore.ActiveCourseIDs.
func (s *EnrollmentStore) ActiveCourseIDs(ctx context.Context, studentID int64) ([]int64, error) {
	return queryIDs(ctx, s.db, `
		SELECT course_id FROM enrollments
		WHERE student_id = $1 AND status = $2
		ORDER BY course_id
	`, studentID, string(domain.EnrollmentEnrolled))
}

// WithTx implements store.EnrollmentStore.WithTx.
func (s *EnrollmentStore) WithTx(tx *sql.Tx) store.EnrollmentStore {
	return &EnrollmentStore{db: tx, logger: s.logger}
}

func queryIDs(ctx context.Context, db store.DBTX, query string, args ...any) ([]int64, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, MapError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return ids, nil
}
