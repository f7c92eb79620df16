package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// AssignmentType is the kind of coursework.
type AssignmentType string

// Allowed assignment types.
const (
	AssignmentQuiz     AssignmentType = "quiz"
	AssignmentProject  AssignmentType = "project"
	AssignmentHomework AssignmentType = "homework"
	AssignmentExam     AssignmentType = "exam"
)

// DefaultMaxScore is used when an assignment is created without a max score.
const DefaultMaxScore = 100

// Assignment is a piece of graded coursework in a course.
type Assignment struct {
	ID          int64          `json:"id"`
	CourseID    int64          `json:"course_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Type        AssignmentType `json:"type"`
	DueDate     time.Time      `json:"due_date"`
	MaxScore    int            `json:"max_score"`
}

// AssignmentFields is the input for creating an assignment.
type AssignmentFields struct {
	Title       string         `json:"title" validate:"required,max=200"`
	Description string         `json:"description"`
	Type        AssignmentType `json:"type" validate:"required,oneof=quiz project homework exam"`
	DueDate     time.Time      `json:"due_date"`
	MaxScore    int            `json:"max_score" validate:"gte=0"`
}

// NewAssignment validates fields against now and builds an Assignment for
// courseID. A zero MaxScore takes DefaultMaxScore.
func NewAssignment(courseID int64, fields AssignmentFields, now time.Time) (*Assignment, error) {
	fields.Title = strings.TrimSpace(fields.Title)
	fields.Type = AssignmentType(strings.ToLower(strings.TrimSpace(string(fields.Type))))
	if err := ValidateStruct(fields); err != nil {
		return nil, err
	}
	if fields.DueDate.IsZero() {
		return nil, NewValidationError("due_date", "is required", nil)
	}
	if !fields.DueDate.After(now) {
		return nil, NewValidationError("due_date", "must be in the future", nil)
	}
	if fields.MaxScore == 0 {
		fields.MaxScore = DefaultMaxScore
	}
	return &Assignment{
		CourseID:    courseID,
		Title:       fields.Title,
		Description: fields.Description,
		Type:        fields.Type,
		DueDate:     fields.DueDate.UTC(),
		MaxScore:    fields.MaxScore,
	}, nil
}

// SubmissionStatus is the grading state of a submission.
type SubmissionStatus string

// Submission statuses.
const (
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionGraded    SubmissionStatus = "graded"
)

// Submission is one student's answer to one assignment.
type Submission struct {
	ID           int64            `json:"id"`
	AssignmentID int64            `json:"assignment_id"`
	StudentID    int64            `json:"student_id"`
	Content      string           `json:"content"`
	Status       SubmissionStatus `json:"status"`
	SubmittedAt  time.Time        `json:"submitted_at"`
}

// OwnerID implements OwnedResource.
func (s *Submission) OwnerID() int64 { return s.StudentID }

// Grade is the instructor's score for a submission. There is at most one per
// submission.
type Grade struct {
	ID           int64     `json:"id"`
	SubmissionID int64     `json:"submission_id"`
	Value        float64   `json:"grade_value"`
	Feedback     string    `json:"feedback"`
	GradedAt     time.Time `json:"graded_at"`
}

// ProgressStatus is where a student stands on one assignment.
type ProgressStatus string

// Progress statuses.
const (
	ProgressPending   ProgressStatus = "pending"
	ProgressSubmitted ProgressStatus = "submitted"
	ProgressOverdue   ProgressStatus = "overdue"
)

// AssignmentProgress is an assignment of a course together with one
// student's submission and grade. SubmissionID is zero and Grade nil while
// the corresponding row does not exist.
type AssignmentProgress struct {
	Assignment   Assignment     `json:"assignment"`
	Status       ProgressStatus `json:"status"`
	SubmissionID int64          `json:"submission_id,omitempty"`
	Grade        *float64       `json:"grade,omitempty"`
	Feedback     string         `json:"feedback,omitempty"`
}

// ResolveStatus sets Status as of now: submitted once a submission exists,
// otherwise overdue after the due date and pending until then.
func (p *AssignmentProgress) ResolveStatus(now time.Time) {
	switch {
	case p.SubmissionID != 0:
		p.Status = ProgressSubmitted
	case p.Assignment.DueDate.Before(now):
		p.Status = ProgressOverdue
	default:
		p.Status = ProgressPending
	}
}

// ValidateGradeValue checks that value lies in [0, maxScore].
func ValidateGradeValue(value float64, maxScore int) error {
	if math.IsNaN(value) || value < 0 || value > float64(maxScore) {
		return NewValidationError("grade_value",
			"must be between 0 and "+strconv.Itoa(maxScore), nil)
	}
	return nil
}
