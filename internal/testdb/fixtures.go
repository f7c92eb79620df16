package testdb

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Epoch is the fixed timestamp fixtures are created at.
var Epoch = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

func exec(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	_, err := db.Exec(query, args...)
	require.NoError(t, err, "fixture: %s", query)
}

// InsertUser inserts a users row with id userID.
func InsertUser(t *testing.T, db *sql.DB, userID int64, role string) {
	t.Helper()
	exec(t, db, `
		INSERT INTO users (id, username, name, email, gender, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, '', 'x', $5, $6)
	`, userID,
		fmt.Sprintf("user%d", userID),
		fmt.Sprintf("User %d", userID),
		fmt.Sprintf("user%d@example.com", userID),
		role,
		Epoch)
}

// InsertStudent inserts a student profile with id profileID owned by a new
// user with the same id.
func InsertStudent(t *testing.T, db *sql.DB, profileID int64) {
	t.Helper()
	InsertUser(t, db, profileID, "student")
	exec(t, db, `INSERT INTO students (id, user_id, level, major) VALUES ($1, $2, 1, 'Undeclared')`,
		profileID, profileID)
}

// InsertInstructor inserts an instructor profile with id profileID owned by
// a new user with the same id.
func InsertInstructor(t *testing.T, db *sql.DB, profileID int64) {
	t.Helper()
	InsertUser(t, db, profileID, "instructor")
	exec(t, db, `INSERT INTO instructors (id, user_id, department) VALUES ($1, $2, 'General')`,
		profileID, profileID)
}

// InsertCourse inserts a course taught by instructorID.
func InsertCourse(t *testing.T, db *sql.DB, courseID, instructorID int64, maxStudents int) {
	t.Helper()
	exec(t, db, `
		INSERT INTO courses (id, code, name, description, credits, semester, max_students, instructor_id)
		VALUES ($1, $2, $3, '', 3, 'Fall', $4, $5)
	`, courseID, fmt.Sprintf("C%d", courseID), fmt.Sprintf("Course %d", courseID), maxStudents, instructorID)
}

// Enroll inserts an active enrollment.
func Enroll(t *testing.T, db *sql.DB, studentID, courseID int64) {
	t.Helper()
	exec(t, db, `
		INSERT INTO enrollments (student_id, course_id, status, enrolled_at)
		VALUES ($1, $2, 'enrolled', $3)
	`, studentID, courseID, Epoch)
}

// InsertAssignment inserts an assignment due at due with the given max score.
func InsertAssignment(t *testing.T, db *sql.DB, assignmentID, courseID int64, maxScore int, due time.Time) {
	t.Helper()
	exec(t, db, `
		INSERT INTO assignments (id, course_id, title, description, type, due_date, max_score)
		VALUES ($1, $2, $3, '', 'homework', $4, $5)
	`, assignmentID, courseID, fmt.Sprintf("Assignment %d", assignmentID), due.UTC(), maxScore)
}

// InsertSubmission inserts an ungraded submission.
func InsertSubmission(t *testing.T, db *sql.DB, submissionID, assignmentID, studentID int64) {
	t.Helper()
	exec(t, db, `
		INSERT INTO submissions (id, assignment_id, student_id, content, status, submitted_at)
		VALUES ($1, $2, $3, 'answer', 'submitted', $4)
	`, submissionID, assignmentID, studentID, Epoch)
}
