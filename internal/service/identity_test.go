package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/coursework/internal/domain"
	"github.com/phrazzld/coursework/internal/events"
	"github.com/phrazzld/coursework/internal/service"
	"github.com/phrazzld/coursework/internal/store"
	"github.com/phrazzld/coursework/internal/testdb"
)

func identity(username string) domain.IdentityData {
	return domain.IdentityData{
		Username: username,
		Name:     "Ada Lovelace",
		Email:    " " + username + "@Example.com ",
		Password: "correct-horse",
	}
}

var studentProfile = domain.ProfileData{
	Level:     2,
	Birthdate: time.Date(2004, 3, 1, 0, 0, 0, 0, time.UTC),
	Major:     "Mathematics",
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("student", func(t *testing.T) {
		env := newEnv(t)

		p, err := env.svc.Workflows.Register(ctx, identity("ada"), studentProfile, domain.RoleStudent)
		require.NoError(t, err)

		student, ok := p.(domain.Student)
		require.True(t, ok, "got %T", p)
		assert.NotZero(t, student.UserID)
		assert.NotZero(t, student.StudentProfileID)
		assert.Equal(t, "ada@example.com", student.Email)
		assert.Equal(t, "Mathematics", student.Major)

		profile, err := env.stores.Students.GetByUserID(ctx, student.UserID)
		require.NoError(t, err)
		assert.Equal(t, student.StudentProfileID, profile.ID)
		assert.Equal(t, []string{events.TypeUserRegistered}, env.events.types())
	})

	t.Run("instructor", func(t *testing.T) {
		env := newEnv(t)

		p, err := env.svc.Workflows.Register(ctx, identity("grace"),
			domain.ProfileData{Department: "Computing"}, domain.RoleInstructor)
		require.NoError(t, err)

		instructor, ok := p.(domain.Instructor)
		require.True(t, ok, "got %T", p)
		assert.NotZero(t, instructor.InstructorProfileID)
		assert.Equal(t, "Computing", instructor.Department)
	})

	t.Run("admin", func(t *testing.T) {
		env := newEnv(t)

		p, err := env.svc.Workflows.Register(ctx, identity("root"), domain.ProfileData{}, domain.RoleAdmin)
		require.NoError(t, err)
		_, ok := p.(domain.Admin)
		assert.True(t, ok, "got %T", p)
	})
}

func TestRegisterRejectsInput(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		data    domain.IdentityData
		profile domain.ProfileData
		role    domain.Role
		field   string
	}{
		{"unknown_role", identity("ada"), studentProfile, "janitor", "role"},
		{"bad_email", func() domain.IdentityData { d := identity("ada"); d.Email = "nope"; return d }(), studentProfile, domain.RoleStudent, "email"},
		{"short_password", func() domain.IdentityData { d := identity("ada"); d.Password = "short"; return d }(), studentProfile, domain.RoleStudent, "password"},
		{"student_without_major", identity("ada"), domain.ProfileData{Level: 1}, domain.RoleStudent, "major"},
		{"instructor_without_department", identity("ada"), domain.ProfileData{}, domain.RoleInstructor, "department"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t)

			_, err := env.svc.Workflows.Register(ctx, tt.data, tt.profile, tt.role)
			require.Error(t, err)

			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, domain.CategoryInlineField, domain.CategoryOf(err))
			assert.Zero(t, testdb.Count(t, env.db, "users", ""))
			assert.Empty(t, env.events.types())
		})
	}
}

func TestRegisterDuplicateIdentity(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)

	_, err := env.svc.Workflows.Register(ctx, identity("ada"), studentProfile, domain.RoleStudent)
	require.NoError(t, err)

	_, err = env.svc.Workflows.Register(ctx, identity("ada"), studentProfile, domain.RoleStudent)
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Equal(t, "username", ve.Field)

	again := identity("ada2")
	again.Email = "ada@example.com"
	_, err = env.svc.Workflows.Register(ctx, again, studentProfile, domain.RoleStudent)
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Equal(t, "email", ve.Field)

	renamed := identity("ada")
	renamed.Email = "other@example.com"
	_, err = env.svc.Workflows.Register(ctx, renamed, studentProfile, domain.RoleStudent)
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Equal(t, "username", ve.Field)

	assert.Equal(t, 1, testdb.Count(t, env.db, "users", ""))
}

func TestRegisterProfileFailureLeavesNoIdentity(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		role     domain.Role
		profile  domain.ProfileData
		override func(*service.Dependencies)
		step     string
	}{
		{
			name:    "student_profile",
			role:    domain.RoleStudent,
			profile: studentProfile,
			override: func(d *service.Dependencies) {
				d.Stores.Students = failingStudents{d.Stores.Students}
			},
			step: "insert_student_profile",
		},
		{
			name:    "instructor_profile",
			role:    domain.RoleInstructor,
			profile: domain.ProfileData{Department: "Computing"},
			override: func(d *service.Dependencies) {
				d.Stores.Instructors = failingInstructors{d.Stores.Instructors}
			},
			step: "insert_instructor_profile",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t, tt.override)

			_, err := env.svc.Workflows.Register(ctx, identity("ada"), tt.profile, tt.role)
			require.Error(t, err)
			assert.ErrorIs(t, err, errInjected)
			assert.Equal(t, domain.KindInfrastructure, domain.KindOf(err))

			var we *service.WorkflowError
			require.True(t, errors.As(err, &we))
			assert.Equal(t, service.SagaRegister, we.Saga)
			assert.Equal(t, tt.step, we.Step)

			_, err = env.stores.Users.GetByUsername(ctx, "ada")
			assert.ErrorIs(t, err, store.ErrUserNotFound)
			_, err = env.stores.Users.GetByEmail(ctx, "ada@example.com")
			assert.ErrorIs(t, err, store.ErrUserNotFound)
			assert.Zero(t, testdb.Count(t, env.db, "users", ""))
			assert.Empty(t, env.events.types())
		})
	}
}

func TestLoginAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)

	registered, err := env.svc.Workflows.Register(ctx, identity("ada"), studentProfile, domain.RoleStudent)
	require.NoError(t, err)

	for _, identifier := range []string{"ada", "ADA@example.com"} {
		session, err := env.svc.Workflows.Login(ctx, identifier, "correct-horse")
		require.NoError(t, err, identifier)
		assert.Equal(t, registered, session.Principal)
		assert.Equal(t, env.clock.Now().Add(time.Hour).Unix(), session.ExpiresAt.Unix())

		p, err := env.svc.Workflows.Authenticate(ctx, session.Token)
		require.NoError(t, err)
		assert.Equal(t, registered, p)
	}

	t.Run("wrong_password_and_unknown_user_look_alike", func(t *testing.T) {
		_, errWrong := env.svc.Workflows.Login(ctx, "ada", "incorrect")
		_, errUnknown := env.svc.Workflows.Login(ctx, "nobody", "incorrect")

		require.Error(t, errWrong)
		require.Error(t, errUnknown)
		assert.ErrorIs(t, errWrong, domain.ErrUnauthorized)
		assert.ErrorIs(t, errUnknown, domain.ErrUnauthorized)
		assert.Equal(t, domain.UserMessage(errWrong), domain.UserMessage(errUnknown))
	})

	t.Run("empty_identifier", func(t *testing.T) {
		_, err := env.svc.Workflows.Login(ctx, "  ", "x")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("expired_session", func(t *testing.T) {
		session, err := env.svc.Workflows.Login(ctx, "ada", "correct-horse")
		require.NoError(t, err)

		env.clock.Add(2 * time.Hour)
		_, err = env.svc.Workflows.Authenticate(ctx, session.Token)
		var authErr *domain.AuthorizationError
		require.True(t, errors.As(err, &authErr), "got %v", err)
		assert.Equal(t, "session expired", authErr.Reason)
	})

	t.Run("garbage_token", func(t *testing.T) {
		_, err := env.svc.Workflows.Authenticate(ctx, "garbage")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestRejectedWorkflowIsLogged(t *testing.T) {
	env := newEnv(t)

	_, err := env.svc.Workflows.Register(context.Background(), identity("ada"), studentProfile, "janitor")
	require.Error(t, err)

	entries, err := env.logs.Entries()
	require.NoError(t, err)

	var found bool
	for _, e := range entries {
		if e["msg"] == "workflow rejected" && e["saga"] == service.SagaRegister {
			found = true
			assert.Equal(t, "INFO", e["level"])
		}
	}
	assert.True(t, found, "no rejection log in %s", env.logs.String())
}
