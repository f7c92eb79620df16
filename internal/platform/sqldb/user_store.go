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

// UserStore implements store.UserStore.
type UserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewUserStore creates a UserStore. If logger is nil, a default logger will be used.
func NewUserStore(db store.DBTX, logger *slog.Logger) *UserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserStore{
		db:     db,
		logger: logger.With(slog.String("component", "user_store")),
	}
}

var _ store.UserStore = (*UserStore)(nil)

const userColumns = `id, username, name, email, gender, password_hash, role, created_at`

// Create implements store.UserStore.Create.
func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO users (username, name, email, gender, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		user.Username,
		user.Name,
		user.Email,
		user.Gender,
		user.PasswordHash,
		string(user.Role),
		user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("duplicate user identity",
				slog.String("username", user.Username),
				slog.String("error", err.Error()))
			if strings.Contains(violatedColumn(err), "email") {
				return MapUniqueViolation(err, "email", store.ErrEmailExists)
			}
			return MapUniqueViolation(err, "username", store.ErrUsernameExists)
		}
		log.Error("failed to create user",
			slog.String("error", err.Error()),
			slog.String("username", user.Username))
		return MapError(err)
	}

	log.Debug("user created", slog.Int64("user_id", user.ID))
	return nil
}

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	var role string
	if err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Name,
		&u.Email,
		&u.Gender,
		&u.PasswordHash,
		&role,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}

func (s *UserStore) getBy(ctx context.Context, column string, value any) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		log.Error("failed to get user",
			slog.String("by", column),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return user, nil
}

// GetByID implements store.UserStore.GetByID.
func (s *UserStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.getBy(ctx, "id", id)
}

// GetByUsername implements store.UserStore.GetByUsername.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.getBy(ctx, "username", username)
}

// GetByEmail implements store.UserStore.GetByEmail.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getBy(ctx, "email", email)
}

// List implements store.UserStore.List.
func (s *UserStore) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, MapError(err)
		}
		out = append(out, u)
	}
	return out, MapError(rows.Err())
}

// Update implements store.UserStore.Update.
func (s *UserStore) Update(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET username = $1, name = $2, email = $3, gender = $4
		WHERE id = $5
	`, user.Username, user.Name, user.Email, user.Gender, user.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			if strings.Contains(violatedColumn(err), "email") {
				return MapUniqueViolation(err, "email", store.ErrEmailExists)
			}
			return MapUniqueViolation(err, "username", store.ErrUsernameExists)
		}
		log.Error("failed to update user",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrUserNotFound)
}

// Delete implements store.UserStore.Delete.
func (s *UserStore) Delete(ctx context.Context, id int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete user",
			slog.Int64("user_id", id),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrUserNotFound)
}

// WithTx implements store.UserStore.WithTx.
func (s *UserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &UserStore{db: tx, logger: s.logger}
}
