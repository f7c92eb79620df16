package domain

import "time"

// CourseAverage is the persisted running average of one student's grades in
// one course. It is derived state: every write of a grade recomputes it in the
// same transaction from the full set of that student's grades in the course.
type CourseAverage struct {
	StudentID      int64     `json:"student_id"`
	CourseID       int64     `json:"course_id"`
	AverageScore   float64   `json:"average_score"`
	AveragePercent float64   `json:"average_percent"`
	GradedCount    int       `json:"graded_count"`
	Version        int64     `json:"version"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// GradedScore is one grade together with the max score of its assignment.
type GradedScore struct {
	Value    float64
	MaxScore int
}

// ComputeCourseAverage returns the mean raw grade value and the mean
// percentage of max score over scores. Both are zero for no scores.
func ComputeCourseAverage(scores []GradedScore) (averageScore, averagePercent float64) {
	if len(scores) == 0 {
		return 0, 0
	}
	var sum, pct float64
	for _, s := range scores {
		sum += s.Value
		if s.MaxScore > 0 {
			pct += s.Value / float64(s.MaxScore) * 100
		}
	}
	n := float64(len(scores))
	return sum / n, pct / n
}

// LetterGrade converts a percentage to a letter.
func LetterGrade(percent float64) string {
	switch {
	case percent >= 90:
		return "A"
	case percent >= 80:
		return "B"
	case percent >= 70:
		return "C"
	case percent >= 60:
		return "D"
	default:
		return "F"
	}
}

// TranscriptEntry is one active course on a student's transcript.
type TranscriptEntry struct {
	CourseID       int64   `json:"course_id"`
	CourseCode     string  `json:"course_code"`
	CourseName     string  `json:"course_name"`
	AveragePercent float64 `json:"average_percent"`
	GradedCount    int     `json:"graded_count"`
	LetterGrade    string  `json:"letter_grade"`
}

// Deadline is an upcoming assignment due date shown on the dashboard.
type Deadline struct {
	AssignmentID    int64     `json:"assignment_id"`
	AssignmentTitle string    `json:"assignment_title"`
	CourseCode      string    `json:"course_code"`
	DueDate         time.Time `json:"due_date"`
}
