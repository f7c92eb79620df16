package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/phrazzld/coursework/internal/domain"
	"github.com/phrazzld/coursework/internal/platform/logger"
	"github.com/phrazzld/coursework/internal/store"
)

// CourseStore implements store.CourseStore.
type CourseStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewCourseStore creates a CourseStore. If logger is nil, a default logger will be used.
func NewCourseStore(db store.DBTX, logger *slog.Logger) *CourseStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CourseStore{
		db:     db,
		logger: logger.With(slog.String("component", "course_store")),
	}
}

var _ store.CourseStore = (*CourseStore)(nil)

// Create implements store.CourseStore.Create.
func (s *CourseStore) Create(ctx context.Context, course *domain.Course) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO courses (code, name, description, credits, semester, max_students, instructor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`,
		course.Code,
		course.Name,
		course.Description,
		course.Credits,
		course.Semester,
		course.MaxStudents,
		course.InstructorID,
	).Scan(&course.ID)
	if err != nil {
		log.Warn("failed to create course",
			slog.String("code", course.Code),
			slog.String("error", err.Error()))
		return MapUniqueViolation(err, "code", store.ErrCourseCodeExists)
	}

	log.Debug("course created",
		slog.Int64("course_id", course.ID),
		slog.String("code", course.Code))
	return nil
}

const courseColumns = `id, code, name, description, credits, semester, max_students, instructor_id`

func scanCourse(row interface{ Scan(...any) error }) (*domain.Course, error) {
	var c domain.Course
	if err := row.Scan(
		&c.ID,
		&c.Code,
		&c.Name,
		&c.Description,
		&c.Credits,
		&c.Semester,
		&c.MaxStudents,
		&c.InstructorID,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID implements store.CourseStore.GetByID.
func (s *CourseStore) GetByID(ctx context.Context, id int64) (*domain.Course, error) {
	c, err := scanCourse(s.db.QueryRowContext(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCourseNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get course",
			slog.Int64("course_id", id),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return c, nil
}

// List implements store.CourseStore.List.
func (s *CourseStore) List(ctx context.Context) ([]*domain.Course, error) {
	return s.list(ctx, `SELECT `+courseColumns+` FROM courses ORDER BY code`)
}

// Search implements store.CourseStore.Search. LIKE wildcards in query match
// literally.
func (s *CourseStore) Search(ctx context.Context, query string) ([]*domain.Course, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
	return s.list(ctx, `
		SELECT `+courseColumns+` FROM courses
		WHERE LOWER(code) LIKE $1 ESCAPE '\' OR LOWER(name) LIKE $1 ESCAPE '\'
		ORDER BY code
	`, pattern)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListByInstructor implements store.CourseStore.ListByInstructor.
func (s *CourseStore) ListByInstructor(ctx context.Context, instructorID int64) ([]*domain.Course, error) {
	return s.list(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE instructor_id = $1 ORDER BY code`, instructorID)
}

func (s *CourseStore) list(ctx context.Context, query string, args ...any) ([]*domain.Course, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list courses",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := []*domain.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, MapError(err)
		}
		out = append(out, c)
	}
	return out, MapError(rows.Err())
}

// Lock implements store.CourseStore.Lock. A no-op write is used instead of
// SELECT ... FOR UPDATE so that SQLite also takes its write lock here.
func (s *CourseStore) Lock(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE courses SET max_students = max_students WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrCourseNotFound)
}

// WithTx implements store.CourseStore.WithTx.
func (s *CourseStore) WithTx(tx *sql.Tx) store.CourseStore {
	return &CourseStore{db: tx, logger: s.logger}
}
