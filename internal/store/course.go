package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/coursework/internal/domain"
)

// CourseStore defines the interface for course persistence.
type CourseStore interface {
	// Create inserts a course and sets course.ID.
	// Returns ErrCourseCodeExists if the code is taken.
	Create(ctx context.Context, course *domain.Course) error

	// GetByID retrieves a course by id.
	// Returns ErrCourseNotFound if the course does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Course, error)

	// List returns every course ordered by code.
	List(ctx context.Context) ([]*domain.Course, error)

	// Search returns the courses whose code or name contains query,
	// ignoring case, ordered by code.
	Search(ctx context.Context, query string) ([]*domain.Course, error)

	// ListByInstructor returns the courses taught by an instructor profile,
	// ordered by code.
	ListByInstructor(ctx context.Context, instructorID int64) ([]*domain.Course, error)

	// Lock takes a write lock on the course row for the rest of the
	// transaction. Only meaningful on a transaction-bound store.
	// Returns ErrCourseNotFound if the course does not exist.
	Lock(ctx context.Context, id int64) error

	WithTx(tx *sql.Tx) CourseStore
}

// EnrollmentStore defines the interface for enrollment persistence.
// There is at most one enrollment per (student, course).
type EnrollmentStore interface {
	// Create inserts an enrollment and sets enrollment.ID.
	// Returns ErrDuplicate if the student already has an enrollment in the course.
	Create(ctx context.Context, enrollment *domain.Enrollment) error

	// Get retrieves the enrollment of a student in a course.
	// Returns ErrEnrollmentNotFound if there is none.
	Get(ctx context.Context, studentID, courseID int64) (*domain.Enrollment, error)

	// UpdateStatus sets the status of an enrollment.
	// Returns ErrEnrollmentNotFound if it does not exist.
	UpdateStatus(ctx context.Context, id int64, status domain.EnrollmentStatus) error

	// CountActive returns the number of enrolled students in a course.
	CountActive(ctx context.Context, courseID int64) (int, error)

	// ActiveStudentIDs returns the student profile ids enrolled in a course,
	// in ascending order.
	ActiveStudentIDs(ctx context.Context, courseID int64) ([]int64, error)

	// ListRoster returns the actively enrolled students of a course with
	// their identity, ordered by name.
	ListRoster(ctx context.Context, courseID int64) ([]domain.RosterEntry, error)

	// ActiveCourseIDs returns the ids of the courses a student is enrolled in,
	// in ascending order.
	ActiveCourseIDs(ctx context.Context, studentID int64) ([]int64, error)

	WithTx(tx *sql.Tx) EnrollmentStore
}
