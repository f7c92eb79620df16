package domain

import (
	"strings"
	"time"
)

// User is an identity row. Every principal has exactly one.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Gender       string    `json:"gender"`
	PasswordHash string    `json:"-"` // Never expose password hash in JSON
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// StudentProfile is the role profile row of a student.
type StudentProfile struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Level     int       `json:"level"`
	Birthdate time.Time `json:"birthdate"`
	Major     string    `json:"major"`
}

// InstructorProfile is the role profile row of an instructor.
type InstructorProfile struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	Department string `json:"department"`
}

// IdentityData is the registration input for the identity row.
type IdentityData struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Gender   string `json:"gender" validate:"max=20"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// ProfileData is the registration input for the role profile row. Only the
// fields of the chosen role are used.
type ProfileData struct {
	Level      int       `json:"level"`
	Birthdate  time.Time `json:"birthdate"`
	Major      string    `json:"major"`
	Department string    `json:"department"`
}

// ProfileUpdate carries the identity fields to change. Nil fields keep their
// current value.
type ProfileUpdate struct {
	Username *string `json:"username,omitempty"`
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Gender   *string `json:"gender,omitempty"`
}

type profileFields struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Gender   string `json:"gender" validate:"max=20"`
}

// ApplyTo returns a copy of user with the update applied, normalized like
// registration input and validated. An update without fields is rejected.
func (u ProfileUpdate) ApplyTo(user User) (*User, error) {
	if u.Username == nil && u.Name == nil && u.Email == nil && u.Gender == nil {
		return nil, NewValidationError("", "no fields to update", nil)
	}

	d := IdentityData{Username: user.Username, Name: user.Name, Email: user.Email, Gender: user.Gender}
	if u.Username != nil {
		d.Username = *u.Username
	}
	if u.Name != nil {
		d.Name = *u.Name
	}
	if u.Email != nil {
		d.Email = *u.Email
	}
	if u.Gender != nil {
		d.Gender = *u.Gender
	}
	d.Normalize()
	if err := ValidateStruct(profileFields{
		Username: d.Username,
		Name:     d.Name,
		Email:    d.Email,
		Gender:   d.Gender,
	}); err != nil {
		return nil, err
	}

	user.Username = d.Username
	user.Name = d.Name
	user.Email = d.Email
	user.Gender = d.Gender
	return &user, nil
}

// Normalize trims whitespace and lower-cases the email.
func (d *IdentityData) Normalize() {
	d.Username = strings.TrimSpace(d.Username)
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.Gender = strings.TrimSpace(d.Gender)
}

// Validate checks the identity fields.
func (d IdentityData) Validate() error {
	return ValidateStruct(d)
}

// ValidateFor checks the profile fields required by role.
func (p ProfileData) ValidateFor(role Role) error {
	switch role {
	case RoleStudent:
		if p.Level < 1 || p.Level > 8 {
			return NewValidationError("level", "must be between 1 and 8", nil)
		}
		if strings.TrimSpace(p.Major) == "" {
			return NewValidationError("major", "is required", nil)
		}
	case RoleInstructor:
		if strings.TrimSpace(p.Department) == "" {
			return NewValidationError("department", "is required", nil)
		}
	case RoleAdmin:
	default:
		return NewValidationError("role", "must be one of: student instructor admin", nil)
	}
	return nil
}
