package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/coursework/internal/domain"
)

// UserStore defines the interface for identity row persistence.
type UserStore interface {
	// Create inserts a new user and sets user.ID.
	// Returns ErrUsernameExists or ErrEmailExists if either is taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by id.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByUsername retrieves a user by username.
	// Returns ErrUserNotFound if the user does not exist.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetByEmail retrieves a user by email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// List returns every user ordered by id.
	List(ctx context.Context) ([]*domain.User, error)

	// Update writes the username, name, email and gender of user.
	// Returns ErrUserNotFound, ErrUsernameExists or ErrEmailExists.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user and, by cascade, its role profile.
	// Returns ErrUserNotFound if the user does not exist.
	Delete(ctx context.Context, id int64) error

	// WithTx returns a new UserStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) UserStore
}

// StudentStore defines the interface for student profile persistence.
type StudentStore interface {
	// Create inserts a student profile and sets profile.ID.
	// Returns ErrInvalidEntity if the user does not exist.
	Create(ctx context.Context, profile *domain.StudentProfile) error

	// GetByID retrieves a student profile by profile id.
	// Returns ErrStudentNotFound if it does not exist.
	GetByID(ctx context.Context, id int64) (*domain.StudentProfile, error)

	// GetByUserID retrieves the student profile of a user.
	// Returns ErrStudentNotFound if it does not exist.
	GetByUserID(ctx context.Context, userID int64) (*domain.StudentProfile, error)

	WithTx(tx *sql.Tx) StudentStore
}

// InstructorStore defines the interface for instructor profile persistence.
type InstructorStore interface {
	// Create inserts an instructor profile and sets profile.ID.
	// Returns ErrInvalidEntity if the user does not exist.
	Create(ctx context.Context, profile *domain.InstructorProfile) error

	// GetByID retrieves an instructor profile by profile id.
	// Returns ErrInstructorNotFound if it does not exist.
	GetByID(ctx context.Context, id int64) (*domain.InstructorProfile, error)

	// GetByUserID retrieves the instructor profile of a user.
	// Returns ErrInstructorNotFound if it does not exist.
	GetByUserID(ctx context.Context, userID int64) (*domain.InstructorProfile, error)

	WithTx(tx *sql.Tx) InstructorStore
}
