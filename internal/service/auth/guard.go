package auth

import (
	"github.com/phrazzld/coursework/internal/domain"
)

// CheckOwnership returns an *domain.AuthorizationError unless principalID
// owns the resource owned by ownerID. It performs no I/O.
func CheckOwnership(ownerID, principalID int64) error {
	if ownerID != principalID {
		return &domain.AuthorizationError{
			OwnerID:     ownerID,
			PrincipalID: principalID,
			Reason:      "not the owner",
		}
	}
	return nil
}

// CheckOwned is CheckOwnership for a loaded resource.
func CheckOwned(resource domain.OwnedResource, principalID int64) error {
	return CheckOwnership(resource.OwnerID(), principalID)
}

// RequireStudent returns p as a Student or an authorization error.
func RequireStudent(p domain.Principal) (domain.Student, error) {
	s, ok := p.(domain.Student)
	if !ok {
		return domain.Student{}, roleError(p, domain.RoleStudent)
	}
	return s, nil
}

// RequireInstructor returns p as an Instructor or an authorization error.
func RequireInstructor(p domain.Principal) (domain.Instructor, error) {
	i, ok := p.(domain.Instructor)
	if !ok {
		return domain.Instructor{}, roleError(p, domain.RoleInstructor)
	}
	return i, nil
}

// RequireRole returns an authorization error unless p has one of roles.
func RequireRole(p domain.Principal, roles ...domain.Role) error {
	if p == nil {
		return &domain.AuthorizationError{Reason: "not signed in"}
	}
	have := p.UserIdentity().Role
	for _, r := range roles {
		if have == r {
			return nil
		}
	}
	return &domain.AuthorizationError{
		PrincipalID: p.UserIdentity().UserID,
		Reason:      "role " + string(have) + " is not permitted",
	}
}

func roleError(p domain.Principal, want domain.Role) error {
	if p == nil {
		return &domain.AuthorizationError{Reason: "not signed in"}
	}
	return &domain.AuthorizationError{
		PrincipalID: p.UserIdentity().UserID,
		Reason:      "requires role " + string(want),
	}
}
