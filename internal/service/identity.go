package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/phrazzld/coursework/internal/domain"
	"github.com/phrazzld/coursework/internal/events"
	"github.com/phrazzld/coursework/internal/service/auth"
	"github.com/phrazzld/coursework/internal/store"
)

// Session is the result of a successful login.
type Session struct {
	Principal domain.Principal
	Token     string
	ExpiresAt time.Time
}

var errInvalidCredentials = &domain.AuthorizationError{Reason: "invalid username or password"}

// Register creates an identity row and the role profile that references it.
// Both inserts share one unit of work, so a failed profile insert leaves no
// identity row behind.
func (o *Orchestrator) Register(
	ctx context.Context,
	identity domain.IdentityData,
	profile domain.ProfileData,
	role domain.Role,
) (_ domain.Principal, err error) {
	ctx, finish := o.start(ctx, SagaRegister, nil)
	defer func() { err = finish(err) }()

	if !role.Valid() {
		return nil, domain.NewValidationError("role", "must be one of: student instructor admin", nil)
	}
	identity.Normalize()
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	if err := profile.ValidateFor(role); err != nil {
		return nil, err
	}
	if err := o.checkUsernameFree(ctx, identity.Username, 0); err != nil {
		return nil, err
	}

	hash, err := o.hasher.Hash(identity.Password)
	if err != nil {
		return nil, domain.NewInfrastructureError("hash credential", err)
	}

	user := &domain.User{
		Username:     identity.Username,
		Name:         identity.Name,
		Email:        identity.Email,
		Gender:       identity.Gender,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    o.now(),
	}
	var (
		student    *domain.StudentProfile
		instructor *domain.InstructorProfile
	)

	steps := []store.Step{
		o.step("insert_user", func(ctx context.Context, s store.Stores) error {
			return classify(s.Users.Create(ctx, user), "user", 0)
		}),
	}
	switch role {
	case domain.RoleStudent:
		steps = append(steps, o.step("insert_student_profile", func(ctx context.Context, s store.Stores) error {
			student = &domain.StudentProfile{
				UserID:    user.ID,
				Level:     profile.Level,
				Birthdate: profile.Birthdate.UTC(),
				Major:     strings.TrimSpace(profile.Major),
			}
			return classify(s.Students.Create(ctx, student), "student", 0)
		}))
	case domain.RoleInstructor:
		steps = append(steps, o.step("insert_instructor_profile", func(ctx context.Context, s store.Stores) error {
			instructor = &domain.InstructorProfile{
				UserID:     user.ID,
				Department: strings.TrimSpace(profile.Department),
			}
			return classify(s.Instructors.Create(ctx, instructor), "instructor", 0)
		}))
	}

	if err := o.uow.Run(ctx, SagaRegister, steps...); err != nil {
		return nil, err
	}

	o.emit(ctx, events.TypeUserRegistered, events.EntityPayload{ID: user.ID})
	return buildPrincipal(user, student, instructor), nil
}

// checkUsernameFree fails with the username validation error when another
// user than self holds username. It reads outside the transaction; the
// unique constraint still settles races.
func (o *Orchestrator) checkUsernameFree(ctx context.Context, username string, self int64) error {
	existing, err := store.RetryRead(ctx, o.retry, func(ctx context.Context) (*domain.User, error) {
		return o.stores.Users.GetByUsername(ctx, username)
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return classify(err, "user", 0)
	case existing.ID == self:
		return nil
	default:
		return classify(store.ErrUsernameExists, "user", existing.ID)
	}
}

// Login checks identifier (a username or an email address) and secret and
// issues a session token. Unknown identifiers and wrong secrets fail with the
// same authorization error.
func (o *Orchestrator) Login(ctx context.Context, identifier, secret string) (_ *Session, err error) {
	ctx, finish := o.start(ctx, SagaLogin, nil)
	defer func() { err = finish(err) }()

	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, domain.NewValidationError("username", "is required", nil)
	}
	if secret == "" {
		return nil, domain.NewValidationError("password", "is required", nil)
	}

	user, err := get(ctx, o, "user", 0, func(ctx context.Context) (*domain.User, error) {
		if strings.Contains(identifier, "@") {
			return o.stores.Users.GetByEmail(ctx, strings.ToLower(identifier))
		}
		return o.stores.Users.GetByUsername(ctx, identifier)
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := o.hasher.Compare(user.PasswordHash, secret); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, errInvalidCredentials
		}
		return nil, domain.NewInfrastructureError("compare credential", err)
	}

	principal, err := o.loadPrincipal(ctx, user)
	if err != nil {
		return nil, err
	}

	token, err := o.tokens.Generate(ctx, user.ID, user.Role)
	if err != nil {
		return nil, domain.NewInfrastructureError("issue session token", err)
	}
	claims, err := o.tokens.Validate(ctx, token)
	if err != nil {
		return nil, domain.NewInfrastructureError("issue session token", err)
	}

	return &Session{Principal: principal, Token: token, ExpiresAt: claims.ExpiresAt}, nil
}

// Authenticate resolves the principal of a session token issued by Login.
func (o *Orchestrator) Authenticate(ctx context.Context, token string) (_ domain.Principal, err error) {
	ctx, finish := o.start(ctx, SagaAuthenticate, nil)
	defer func() { err = finish(err) }()

	claims, err := o.tokens.Validate(ctx, token)
	if err != nil {
		reason := "invalid session"
		if errors.Is(err, auth.ErrExpiredToken) {
			reason = "session expired"
		}
		return nil, &domain.AuthorizationError{Reason: reason}
	}

	user, err := get(ctx, o, "user", claims.UserID, func(ctx context.Context) (*domain.User, error) {
		return o.stores.Users.GetByID(ctx, claims.UserID)
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, &domain.AuthorizationError{Reason: "invalid session"}
	}
	if err != nil {
		return nil, err
	}
	if user.Role != claims.Role {
		return nil, &domain.AuthorizationError{PrincipalID: user.ID, Reason: "invalid session"}
	}

	return o.loadPrincipal(ctx, user)
}

func (o *Orchestrator) loadPrincipal(ctx context.Context, user *domain.User) (domain.Principal, error) {
	switch user.Role {
	case domain.RoleStudent:
		profile, err := get(ctx, o, "student", user.ID, func(ctx context.Context) (*domain.StudentProfile, error) {
			return o.stores.Students.GetByUserID(ctx, user.ID)
		})
		if err != nil {
			return nil, err
		}
		return buildPrincipal(user, profile, nil), nil
	case domain.RoleInstructor:
		profile, err := get(ctx, o, "instructor", user.ID, func(ctx context.Context) (*domain.InstructorProfile, error) {
			return o.stores.Instructors.GetByUserID(ctx, user.ID)
		})
		if err != nil {
			return nil, err
		}
		return buildPrincipal(user, nil, profile), nil
	default:
		return buildPrincipal(user, nil, nil), nil
	}
}

func buildPrincipal(user *domain.User, student *domain.StudentProfile, instructor *domain.InstructorProfile) domain.Principal {
	identity := domain.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Name:     user.Name,
		Email:    user.Email,
		Role:     user.Role,
	}
	switch {
	case student != nil:
		return domain.Student{
			Identity:         identity,
			StudentProfileID: student.ID,
			Level:            student.Level,
			Birthdate:        student.Birthdate,
			Major:            student.Major,
		}
	case instructor != nil:
		return domain.Instructor{
			Identity:            identity,
			InstructorProfileID: instructor.ID,
			Department:          instructor.Department,
		}
	default:
		return domain.Admin{Identity: identity}
	}
}
