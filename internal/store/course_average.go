package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/coursework/internal/domain"
)

// CourseAverageStore defines the interface for the per-(student, course)
// grade aggregate. Writers serialize on the aggregate row: Lock first, then
// CompareAndSet with the version Lock returned.
type CourseAverageStore interface {
	// Lock creates the aggregate row if missing, bumps its version and
	// returns the new version. The row stays write-locked until the
	// transaction ends.
	Lock(ctx context.Context, studentID, courseID int64, now time.Time) (int64, error)

	// Get retrieves the aggregate of a student in a course.
	// Returns ErrCourseAverageNotFound if there is none.
	Get(ctx context.Context, studentID, courseID int64) (*domain.CourseAverage, error)

	// CompareAndSet writes avg if the stored version still equals
	// expectedVersion, incrementing the version. On success avg.Version holds
	// the new version. Returns ErrConflict if another writer got there first.
	CompareAndSet(ctx context.Context, avg *domain.CourseAverage, expectedVersion int64) error

	// Delete removes the aggregate. Deleting a missing row is not an error.
	Delete(ctx context.Context, studentID, courseID int64) error

	// ListTranscript returns one entry per course the student is actively
	// enrolled in, ordered by course code.
	ListTranscript(ctx context.Context, studentID int64) ([]domain.TranscriptEntry, error)

	WithTx(tx *sql.Tx) CourseAverageStore
}
