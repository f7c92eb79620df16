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

// StudentStore implements store.StudentStore.
type StudentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewStudentStore creates a StudentStore. If logger is nil, a default logger will be used.
func NewStudentStore(db store.DBTX, logger *slog.Logger) *StudentStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StudentStore{
		db:     db,
		logger: logger.With(slog.String("component", "student_store")),
	}
}

var _ store.StudentStore = (*StudentStore)(nil)

// Create implements store.StudentStore.Create.
func (s *StudentStore) Create(ctx context.Context, profile *domain.StudentProfile) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var birthdate sql.NullTime
	if !profile.Birthdate.IsZero() {
		birthdate = sql.NullTime{Time: profile.Birthdate.UTC(), Valid: true}
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO students (user_id, level, birthdate, major)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, profile.UserID, profile.Level, birthdate, profile.Major).Scan(&profile.ID)
	if err != nil {
		log.Warn("failed to create student profile",
			slog.Int64("user_id", profile.UserID),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

func (s *StudentStore) getBy(ctx context.Context, column string, id int64) (*domain.StudentProfile, error) {
	var p domain.StudentProfile
	var birthdate sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, level, birthdate, major FROM students WHERE `+column+` = $1`, id,
	).Scan(&p.ID, &p.UserID, &p.Level, &birthdate, &p.Major)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrStudentNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get student profile",
			slog.String("by", column),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	if birthdate.Valid {
		p.Birthdate = birthdate.Time
	}
	return &p, nil
}

// GetByID implements store.StudentStore.GetByID.
func (s *StudentStore) GetByID(ctx context.Context, id int64) (*domain.StudentProfile, error) {
	return s.getBy(ctx, "id", id)
}

// GetByUserID implements store.StudentStore.GetByUserID.
func (s *StudentStore) GetByUserID(ctx context.Context, userID int64) (*domain.StudentProfile, error) {
	return s.getBy(ctx, "user_id", userID)
}

// WithTx implements store.StudentStore.WithTx.
func (s *StudentStore) WithTx(tx *sql.Tx) store.StudentStore {
	return &StudentStore{db: tx, logger: s.logger}
}

// InstructorStore implements store.InstructorStore.
type InstructorStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewInstructorStore creates an InstructorStore. If logger is nil, a default logger will be used.
func NewInstructorStore(db store.DBTX, logger *slog.Logger) *InstructorStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InstructorStore{
		db:     db,
		logger: logger.With(slog.String("component", "instructor_store")),
	}
}

var _ store.InstructorStore = (*InstructorStore)(nil)

// Create implements store.InstructorStore.Create.
func (s *InstructorStore) Create(ctx context.Context, profile *domain.InstructorProfile) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO instructors (user_id, department)
		VALUES ($1, $2)
		RETURNING id
	`, profile.UserID, profile.Department).Scan(&profile.ID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to create instructor profile",
			slog.Int64("user_id", profile.UserID),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

func (s *InstructorStore) getBy(ctx context.Context, column string, id int64) (*domain.InstructorProfile, error) {
	var p domain.InstructorProfile
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, department FROM instructors WHERE `+column+` = $1`, id,
	).Scan(&p.ID, &p.UserID, &p.Department)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrInstructorNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get instructor profile",
			slog.String("by", column),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return &p, nil
}

// GetByID implements store.InstructorStore.GetByID.
func (s *InstructorStore) GetByID(ctx context.Context, id int64) (*domain.InstructorProfile, error) {
	return s.getBy(ctx, "id", id)
}

// GetByUserID implements store.InstructorStore.GetByUserID.
func (s *InstructorStore) GetByUserID(ctx context.Context, userID int64) (*domain.InstructorProfile, error) {
	return s.getBy(ctx, "user_id", userID)
}

// WithTx implements store.InstructorStore.WithTx.
func (s *InstructorStore) WithTx(tx *sql.Tx) store.InstructorStore {
	return &InstructorStore{db: tx, logger: s.logger}
}
