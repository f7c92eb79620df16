package domain

import (
	"strings"
	"time"
)

// Course is a catalog entry owned by one instructor profile.
type Course struct {
	ID           int64  `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Credits      int    `json:"credits"`
	Semester     string `json:"semester"`
	MaxStudents  int    `json:"max_students"`
	InstructorID int64  `json:"instructor_id"`
}

// OwnerID implements OwnedResource.
func (c *Course) OwnerID() int64 { return c.InstructorID }

// CourseFields is the input for creating a course.
type CourseFields struct {
	Code         string `json:"code" validate:"required,max=20"`
	Name         string `json:"name" validate:"required,max=100"`
	Description  string `json:"description"`
	Credits      int    `json:"credits" validate:"gte=0,lte=12"`
	Semester     string `json:"semester" validate:"required,max=20"`
	MaxStudents  int    `json:"max_students" validate:"gte=0"`
	InstructorID int64  `json:"instructor_id"`
}

// Defaults applied to course creation when a field is left zero.
const (
	DefaultCredits     = 3
	DefaultMaxStudents = 30
)

// NewCourse validates fields and builds a Course. A zero Credits or
// MaxStudents takes the default.
func NewCourse(fields CourseFields) (*Course, error) {
	fields.Code = strings.ToUpper(strings.TrimSpace(fields.Code))
	fields.Name = strings.TrimSpace(fields.Name)
	if err := ValidateStruct(fields); err != nil {
		return nil, err
	}
	if fields.Credits == 0 {
		fields.Credits = DefaultCredits
	}
	if fields.MaxStudents == 0 {
		fields.MaxStudents = DefaultMaxStudents
	}
	return &Course{
		Code:         fields.Code,
		Name:         fields.Name,
		Description:  fields.Description,
		Credits:      fields.Credits,
		Semester:     fields.Semester,
		MaxStudents:  fields.MaxStudents,
		InstructorID: fields.InstructorID,
	}, nil
}

// EnrollmentStatus is the state of a student's enrollment in a course.
type EnrollmentStatus string

// Enrollment statuses. Only enrolled counts as active.
const (
	EnrollmentEnrolled EnrollmentStatus = "enrolled"
	EnrollmentDropped  EnrollmentStatus = "dropped"
)

// Enrollment links a student profile to a course.
type Enrollment struct {
	ID         int64            `json:"id"`
	StudentID  int64            `json:"student_id"`
	CourseID   int64            `json:"course_id"`
	Status     EnrollmentStatus `json:"status"`
	EnrolledAt time.Time        `json:"enrolled_at"`
}

// OwnerID implements OwnedResource.
func (e *Enrollment) OwnerID() int64 { return e.StudentID }

// Active reports whether the enrollment counts toward the roster.
func (e *Enrollment) Active() bool { return e.Status == EnrollmentEnrolled }

// RosterEntry is one actively enrolled student of a course.
type RosterEntry struct {
	StudentID  int64     `json:"student_id"`
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Level      int       `json:"level"`
	Major      string    `json:"major"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// OwnedResource is any persisted entity with an owning profile id.
type OwnedResource interface {
	OwnerID() int64
}
