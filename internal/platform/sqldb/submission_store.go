package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/phrazzld/coursework/internal/domain"
	"github.com/phrazzld/coursework/internal/platform/logger"
	"github.com/phrazzld/coursework/internal/store"
)

// SubmissionStore implements store.SubmissionStore.
type SubmissionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewSubmissionStore creates a SubmissionStore. If logger is nil, a default logger will be used.
func NewSubmissionStore(db store.DBTX, logger *slog.Logger) *SubmissionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionStore{
		db:     db,
		logger: logger.With(slog.String("component", "submission_store")),
	}
}

var _ store.SubmissionStore = (*SubmissionStore)(nil)

const submissionColumns = `id, assignment_id, student_id, content, status, submitted_at`

func scanSubmission(row interface{ Scan(...any) error }) (*domain.Submission, error) {
	var sub domain.Submission
	var status string
	if err := row.Scan(
		&sub.ID,
		&sub.AssignmentID,
		&sub.StudentID,
		&sub.Content,
		&status,
		&sub.SubmittedAt,
	); err != nil {
		return nil, err
	}
	sub.Status = domain.SubmissionStatus(status)
	return &sub, nil
}

// Create implements store.SubmissionStore.Create.
func (s *SubmissionStore) Create(ctx context.Context, sub *domain.Submission) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO submissions (assignment_id, student_id, content, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, sub.AssignmentID, sub.StudentID, sub.Content, string(sub.Status), sub.SubmittedAt).Scan(&sub.ID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to create submission",
			slog.Int64("assignment_id", sub.AssignmentID),
			slog.Int64("student_id", sub.StudentID),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.SubmissionStore.GetByID.
func (s *SubmissionStore) GetByID(ctx context.Context, id int64) (*domain.Submission, error) {
	sub, err := scanSubmission(s.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSubmissionNotFound
		}
		return nil, MapError(err)
	}
	return sub, nil
}

// GetByAssignmentAndStudent implements store.SubmissionStore.GetByAssignmentAndStudent.
func (s *SubmissionStore) GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID int64) (*domain.Submission, error) {
	sub, err := scanSubmission(s.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE assignment_id = $1 AND student_id = $2`,
		assignmentID, studentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSubmissionNotFound
		}
		return nil, MapError(err)
	}
	return sub, nil
}

// UpdateContent implements store.SubmissionStore.UpdateContent.
func (s *SubmissionStore) UpdateContent(ctx context.Context, id int64, content string, submittedAt time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE submissions SET content = $1, submitted_at = $2 WHERE id = $3`,
		content, submittedAt, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrSubmissionNotFound)
}

// UpdateStatus implements store.SubmissionStore.UpdateStatus.
func (s *SubmissionStore) UpdateStatus(ctx context.Context, id int64, status domain.SubmissionStatus) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE submissions SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrSubmissionNotFound)
}

// WithTx implements store.SubmissionStore.WithTx.
func (s *SubmissionStore) WithTx(tx *sql.Tx) store.SubmissionStore {
	return &SubmissionStore{db: tx, logger: s.logger}
}
