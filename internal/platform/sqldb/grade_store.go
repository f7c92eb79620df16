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

// GradeStore implements store.GradeStore.
type GradeStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewGradeStore creates a GradeStore. If logger is nil, a default logger will be used.
func NewGradeStore(db store.DBTX, logger *slog.Logger) *GradeStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GradeStore{
		db:     db,
		logger: logger.With(slog.String("component", "grade_store")),
	}
}

var _ store.GradeStore = (*GradeStore)(nil)

// Upsert implements store.GradeStore.Upsert.
func (s *GradeStore) Upsert(ctx context.Context, g *domain.Grade) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO grades (submission_id, value, feedback, graded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (submission_id) DO UPDATE
		SET value = excluded.value,
		    feedback = excluded.feedback,
		    graded_at = excluded.graded_at
		RETURNING id
	`, g.SubmissionID, g.Value, g.Feedback, g.GradedAt).Scan(&g.ID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to upsert grade",
			slog.Int64("submission_id", g.SubmissionID),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

// GetBySubmission implements store.GradeStore.GetBySubmission.
func (s *GradeStore) GetBySubmission(ctx context.Context, submissionID int64) (*domain.Grade, error) {
	var g domain.Grade
	err := s.db.QueryRowContext(ctx, `
		SELECT id, submission_id, value, feedback, graded_at
		FROM grades
		WHERE submission_id = $1
	`, submissionID).Scan(&g.ID, &g.SubmissionID, &g.Value, &g.Feedback, &g.GradedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrGradeNotFound
		}
		return nil, MapError(err)
	}
	return &g, nil
}

// ListScores implements store.GradeStore.ListScores.
func (s *GradeStore) ListScores(ctx context.Context, studentID, courseID int64) ([]domain.GradedScore, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.value, a.max_score
		FROM grades g
		JOIN submissions sub ON sub.id = g.submission_id
		JOIN assignments a ON a.id = sub.assignment_id
		WHERE sub.student_id = $1 AND a.course_id = $2
		ORDER BY g.id
	`, studentID, courseID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	scores := []domain.GradedScore{}
	for rows.Next() {
		var sc domain.GradedScore
		if err := rows.Scan(&sc.Value, &sc.MaxScore); err != nil {
			return nil, MapError(err)
		}
		scores = append(scores, sc)
	}
	return scores, MapError(rows.Err())
}

// WithTx implements store.GradeStore.WithTx.
func (s *GradeStore) WithTx(tx *sql.Tx) store.GradeStore {
	return &GradeStore{db: tx, logger: s.logger}
}
