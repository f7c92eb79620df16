package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/coursework/internal/domain"
)

func TestCheckOwnership(t *testing.T) {
	t.Parallel()

	assert.NoError(t, CheckOwnership(5, 5))

	pairs := [][2]int64{{5, 6}, {6, 5}, {0, 1}, {1, 0}, {-1, 1}, {10, 3}}
	for _, p := range pairs {
		err := CheckOwnership(p[0], p[1])
		require.Error(t, err, "owner %d principal %d", p[0], p[1])

		var authErr *domain.AuthorizationError
		require.True(t, errors.As(err, &authErr))
		assert.Equal(t, p[0], authErr.OwnerID)
		assert.Equal(t, p[1], authErr.PrincipalID)
		assert.Equal(t, domain.KindAuthorization, domain.KindOf(err))
	}
}

func TestCheckOwned(t *testing.T) {
	t.Parallel()

	course := &domain.Course{ID: 3, InstructorID: 10}
	assert.NoError(t, CheckOwned(course, 10))
	assert.ErrorIs(t, CheckOwned(course, 11), domain.ErrUnauthorized)

	n := &domain.Notification{ID: 1, RecipientID: 101}
	assert.NoError(t, CheckOwned(n, 101))
	assert.ErrorIs(t, CheckOwned(n, 102), domain.ErrUnauthorized)
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	student := domain.Student{Identity: domain.Identity{UserID: 1, Role: domain.RoleStudent}, StudentProfileID: 101}
	instructor := domain.Instructor{Identity: domain.Identity{UserID: 2, Role: domain.RoleInstructor}, InstructorProfileID: 10}
	admin := domain.Admin{Identity: domain.Identity{UserID: 3, Role: domain.RoleAdmin}}

	assert.NoError(t, RequireRole(admin, domain.RoleAdmin, domain.RoleInstructor))
	assert.NoError(t, RequireRole(instructor, domain.RoleAdmin, domain.RoleInstructor))
	assert.ErrorIs(t, RequireRole(student, domain.RoleAdmin, domain.RoleInstructor), domain.ErrUnauthorized)
	assert.ErrorIs(t, RequireRole(nil, domain.RoleAdmin), domain.ErrUnauthorized)

	s, err := RequireStudent(student)
	require.NoError(t, err)
	assert.Equal(t, int64(101), s.StudentProfileID)
	_, err = RequireStudent(instructor)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	i, err := RequireInstructor(instructor)
	require.NoError(t, err)
	assert.Equal(t, int64(10), i.InstructorProfileID)
	_, err = RequireInstructor(admin)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = RequireInstructor(nil)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
