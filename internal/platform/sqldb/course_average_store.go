package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/coursework/internal/domain"
	"github.com/phrazzld/coursework/internal/platform/logger"
	"github.com/phrazzld/coursework/internal/store"
)

// CourseAverageStore implements store.CourseAverageStore.
type CourseAverageStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewCourseAverageStore creates a CourseAverageStore. If logger is nil, a default logger will be used.
func NewCourseAverageStore(db store.DBTX, logger *slog.Logger) *CourseAverageStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CourseAverageStore{
		db:     db,
		logger: logger.With(slog.String("component", "course_average_store")),
	}
}

var _ store.CourseAverageStore = (*CourseAverageStore)(nil)

// Lock implements store.CourseAverageStore.Lock. The upsert is a write in
// both dialects: PostgreSQL row-locks the aggregate, SQLite takes its
// database write lock. Concurrent writers for the same key queue here.
func (s *CourseAverageStore) Lock(ctx context.Context, studentID, courseID int64, now time.Time) (int64, error) {
	var version int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO course_averages
		    (student_id, course_id, average_score, average_percent, graded_count, version, updated_at)
		VALUES ($1, $2, 0, 0, 0, 1, $3)
		ON CONFLICT (student_id, course_id) DO UPDATE
		SET version = course_averages.version + 1
		RETURNING version
	`, studentID, courseID, now.UTC()).Scan(&version)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to lock course average",
			slog.Int64("student_id", studentID),
			slog.Int64("course_id", courseID),
			slog.String("error", err.Error()))
		return 0, MapError(err)
	}
	return version, nil
}

// Get implements store.CourseAverageStore.Get.
func (s *CourseAverageStore) Get(ctx context.Context, studentID, courseID int64) (*domain.CourseAverage, error) {
	var avg domain.CourseAverage
	err := s.db.QueryRowContext(ctx, `
		SELECT student_id, course_id, average_score, average_percent, graded_count, version, updated_at
		FROM course_averages
		WHERE student_id = $1 AND course_id = $2
	`, studentID, courseID).Scan(
		&avg.StudentID,
		&avg.CourseID,
		&avg.AverageScore,
		&avg.AveragePercent,
		&avg.GradedCount,
		&avg.Version,
		&avg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCourseAverageNotFound
		}
		return nil, MapError(err)
	}
	return &avg, nil
}

// CompareAndSet implements store.CourseAverageStore.CompareAndSet.
func (s *CourseAverageStore) CompareAndSet(ctx context.Context, avg *domain.CourseAverage, expectedVersion int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE course_averages
		SET average_score = $1,
		    average_percent = $2,
		    graded_count = $3,
		    updated_at = $4,
		    version = version + 1
		WHERE student_id = $5 AND course_id = $6 AND version = $7
	`,
		avg.AverageScore,
		avg.AveragePercent,
		avg.GradedCount,
		avg.UpdatedAt.UTC(),
		avg.StudentID,
		avg.CourseID,
		expectedVersion,
	)
	if err != nil {
		return MapError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		log.Warn("course average version changed",
			slog.Int64("student_id", avg.StudentID),
			slog.Int64("course_id", avg.CourseID),
			slog.Int64("expected_version", expectedVersion))
		return fmt.Errorf("%w: course average (%d, %d) is no longer at version %d",
			store.ErrConflict, avg.StudentID, avg.CourseID, expectedVersion)
	}

	avg.Version = expectedVersion + 1
	return nil
}

// Delete implements store.CourseAverageStore.Delete.
func (s *CourseAverageStore) Delete(ctx context.Context, studentID, courseID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM course_averages WHERE student_id = $1 AND course_id = $2`,
		studentID, courseID)
	return MapError(err)
}

// ListTranscript implements store.CourseAverageStore.ListTranscript.
// Courses without any grade yet are listed with a zero average.
func (s *CourseAverageStore) ListTranscript(ctx context.Context, studentID int64) ([]domain.TranscriptEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.code, c.name,
		       COALESCE(ca.average_percent, 0),
		       COALESCE(ca.graded_count, 0)
		FROM enrollments e
		JOIN courses c ON c.id = e.course_id
		LEFT JOIN course_averages ca
		       ON ca.student_id = e.student_id AND ca.course_id = e.course_id
		WHERE e.student_id = $1 AND e.status = $2
		ORDER BY c.code
	`, studentID, string(domain.EnrollmentEnrolled))
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.TranscriptEntry{}
	for rows.Next() {
		var e domain.TranscriptEntry
		if err := rows.Scan(&e.CourseID, &e.CourseCode, &e.CourseName, &e.AveragePercent, &e.GradedCount); err != nil {
			return nil, MapError(err)
		}
		out = append(out, e)
	}
	return out, MapError(rows.Err())
}

// WithTx implements store.CourseAverageStore.WithTx.
func (s *CourseAverageStore) WithTx(tx *sql.Tx) store.CourseAverageStore {
	return &CourseAverageStore{db: tx, logger: s.logger}
}
