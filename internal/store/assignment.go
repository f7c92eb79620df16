package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/coursework/internal/domain"
)

// AssignmentStore defines the interface for assignment persistence.
type AssignmentStore interface {
	// Create inserts an assignment and sets assignment.ID.
	// Returns ErrInvalidEntity if the course does not exist.
	Create(ctx context.Context, assignment *domain.Assignment) error

	// GetByID retrieves an assignment by id.
	// Returns ErrAssignmentNotFound if it does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Assignment, error)

	// ListByCourse returns the assignments of a course ordered by due date.
	ListByCourse(ctx context.Context, courseID int64) ([]*domain.Assignment, error)

	// ListProgress returns every assignment of a course ordered by due date,
	// each with the student's submission id, grade and feedback if present.
	// Status is left for the caller to resolve.
	ListProgress(ctx context.Context, studentID, courseID int64) ([]domain.AssignmentProgress, error)

	// ListDeadlines returns the assignments due in (from, to] across the
	// courses a student is actively enrolled in, ordered by due date.
	ListDeadlines(ctx context.Context, studentID int64, from, to time.Time) ([]domain.Deadline, error)

	// Delete removes an assignment and, by cascade, its submissions and grades.
	// Returns ErrAssignmentNotFound if it does not exist.
	Delete(ctx context.Context, id int64) error

	WithTx(tx *sql.Tx) AssignmentStore
}

// SubmissionStore defines the interface for submission persistence.
// There is at most one submission per (assignment, student).
type SubmissionStore interface {
	// Create inserts a submission and sets submission.ID.
	// Returns ErrDuplicate if the student already submitted.
	Create(ctx context.Context, submission *domain.Submission) error

	// GetByID retrieves a submission by id.
	// Returns ErrSubmissionNotFound if it does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Submission, error)

	// GetByAssignmentAndStudent retrieves a student's submission for an assignment.
	// Returns ErrSubmissionNotFound if there is none.
	GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID int64) (*domain.Submission, error)

	// UpdateContent replaces the content and submission time.
	// Returns ErrSubmissionNotFound if it does not exist.
	UpdateContent(ctx context.Context, id int64, content string, submittedAt time.Time) error

	// UpdateStatus sets the grading status.
	// Returns ErrSubmissionNotFound if it does not exist.
	UpdateStatus(ctx context.Context, id int64, status domain.SubmissionStatus) error

	WithTx(tx *sql.Tx) SubmissionStore
}

// GradeStore defines the interface for grade persistence.
type GradeStore interface {
	// Upsert inserts or replaces the grade of grade.SubmissionID and sets grade.ID.
	Upsert(ctx context.Context, grade *domain.Grade) error

	// GetBySubmission retrieves the grade of a submission.
	// Returns ErrGradeNotFound if the submission is ungraded.
	GetBySubmission(ctx context.Context, submissionID int64) (*domain.Grade, error)

	// ListScores returns every grade of a student in a course together with
	// the max score of its assignment.
	ListScores(ctx context.Context, studentID, courseID int64) ([]domain.GradedScore, error)

	WithTx(tx *sql.Tx) GradeStore
}
