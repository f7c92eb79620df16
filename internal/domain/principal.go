package domain

import "time"

// Role is the account type of a user.
type Role string

// Supported roles.
const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the supported roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	default:
		return false
	}
}

// Identity holds the fields every principal shares, taken from the users row.
type Identity struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// Principal is the authenticated identity performing an action. It is one of
// Student, Instructor or Admin and is immutable for the duration of a
// workflow.
type Principal interface {
	UserIdentity() Identity
	principal()
}

// Student is a principal with a student profile.
type Student struct {
	Identity
	StudentProfileID int64     `json:"student_profile_id"`
	Level            int       `json:"level"`
	Birthdate        time.Time `json:"birthdate"`
	Major            string    `json:"major"`
}

// Instructor is a principal with an instructor profile.
type Instructor struct {
	Identity
	InstructorProfileID int64  `json:"instructor_profile_id"`
	Department          string `json:"department"`
}

// Admin is a principal without a role profile.
type Admin struct {
	Identity
}

// UserIdentity implements Principal.
func (s Student) UserIdentity() Identity { return s.Identity }

// UserIdentity implements Principal.
func (i Instructor) UserIdentity() Identity { return i.Identity }

// UserIdentity implements Principal.
func (a Admin) UserIdentity() Identity { return a.Identity }

func (Student) principal()    {}
func (Instructor) principal() {}
func (Admin) principal()      {}
