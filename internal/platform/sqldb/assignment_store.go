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

// AssignmentStore implements store.AssignmentStore.
type AssignmentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewAssignmentStore creates an AssignmentStore. If logger is nil, a default logger will be used.
func NewAssignmentStore(db store.DBTX, logger *slog.Logger) *AssignmentStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AssignmentStore{
		db:     db,
		logger: logger.With(slog.String("component", "assignment_store")),
	}
}

var _ store.AssignmentStore = (*AssignmentStore)(nil)

const assignmentColumns = `id, course_id, title, description, type, due_date, max_score`

func scanAssignment(row interface{ Scan(...any) error }) (*domain.Assignment, error) {
	var a domain.Assignment
	var typ string
	if err := row.Scan(
		&a.ID,
		&a.CourseID,
		&a.Title,
		&a.Description,
		&typ,
		&a.DueDate,
		&a.MaxScore,
	); err != nil {
		return nil, err
	}
	a.Type = domain.AssignmentType(typ)
	return &a, nil
}

// Create implements store.AssignmentStore.Create.
func (s *AssignmentStore) Create(ctx context.Context, a *domain.Assignment) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO assignments (course_id, title, description, type, due_date, max_score)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, a.CourseID, a.Title, a.Description, string(a.Type), a.DueDate.UTC(), a.MaxScore).Scan(&a.ID)
	if err != nil {
		log.Warn("failed to create assignment",
			slog.Int64("course_id", a.CourseID),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	log.Debug("assignment created",
		slog.Int64("assignment_id", a.ID),
		slog.Int64("course_id", a.CourseID))
	return nil
}

// GetByID implements store.AssignmentStore.GetByID.
func (s *AssignmentStore) GetByID(ctx context.Context, id int64) (*domain.Assignment, error) {
	a, err := scanAssignment(s.db.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAssignmentNotFound
		}
		return nil, MapError(err)
	}
	return a, nil
}

// ListByCourse implements store.AssignmentStore.ListByCourse.
func (s *AssignmentStore) ListByCourse(ctx context.Context, courseID int64) ([]*domain.Assignment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE course_id = $1 ORDER BY due_date, id`,
		courseID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, MapError(err)
		}
		out = append(out, a)
	}
	return out, MapError(rows.Err())
}

// ListProgress implements store.AssignmentStore.ListProgress.
func (s *AssignmentStore) ListProgress(ctx context.Context, studentID, courseID int64) ([]domain.AssignmentProgress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.course_id, a.title, a.description, a.type, a.due_date, a.max_score,
		       sub.id, g.value, g.feedback
		FROM assignments a
		LEFT JOIN submissions sub ON sub.assignment_id = a.id AND sub.student_id = $1
		LEFT JOIN grades g ON g.submission_id = sub.id
		WHERE a.course_id = $2
		ORDER BY a.due_date, a.id
	`, studentID, courseID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.AssignmentProgress{}
	for rows.Next() {
		var (
			p            domain.AssignmentProgress
			typ          string
			submissionID sql.NullInt64
			grade        sql.NullFloat64
			feedback     sql.NullString
		)
		if err := rows.Scan(
			&p.Assignment.ID,
			&p.Assignment.CourseID,
			&p.Assignment.Title,
			&p.Assignment.Description,
			&typ,
			&p.Assignment.DueDate,
			&p.Assignment.MaxScore,
			&submissionID,
			&grade,
			&feedback,
		); err != nil {
			return nil, MapError(err)
		}
		p.Assignment.Type = domain.AssignmentType(typ)
		p.SubmissionID = submissionID.Int64
		if grade.Valid {
			p.Grade = &grade.Float64
		}
		p.Feedback = feedback.String
		out = append(out, p)
	}
	return out, MapError(rows.Err())
}

// ListDeadlines implements store.AssignmentStore.ListDeadlines.
func (s *AssignmentStore) ListDeadlines(ctx context.Context, studentID int64, from, to time.Time) ([]domain.Deadline, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.title, c.code, a.due_date
		FROM assignments a
		JOIN courses c ON c.id = a.course_id
		JOIN enrollments e ON e.course_id = a.course_id
		WHERE e.student_id = $1
		  AND e.status = $2
		  AND a.due_date > $3
		  AND a.due_date <= $4
		ORDER BY a.due_date, a.id
	`, studentID, string(domain.EnrollmentEnrolled), from.UTC(), to.UTC())
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.Deadline{}
	for rows.Next() {
		var d domain.Deadline
		if err := rows.Scan(&d.AssignmentID, &d.AssignmentTitle, &d.CourseCode, &d.DueDate); err != nil {
			return nil, MapError(err)
		}
		out = append(out, d)
	}
	return out, MapError(rows.Err())
}

// Delete implements store.AssignmentStore.Delete.
func (s *AssignmentStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete assignment",
			slog.Int64("assignment_id", id),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrAssignmentNotFound)
}

// WithTx implements store.AssignmentStore.WithTx.
func (s *AssignmentStore) WithTx(tx *sql.Tx) store.AssignmentStore {
	return &AssignmentStore{db: tx, logger: s.logger}
}
