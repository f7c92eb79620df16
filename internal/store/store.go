package store

import "database/sql"

// Stores bundles every repository of the application.
type Stores struct {
	Users         UserStore
	Students      StudentStore
	Instructors   InstructorStore
	Courses       CourseStore
	Enrollments   EnrollmentStore
	Assignments   AssignmentStore
	Submissions   SubmissionStore
	Grades        GradeStore
	Announcements AnnouncementStore
	Notifications NotificationStore
	Averages      CourseAverageStore
}

// WithTx returns a copy of the bundle with every store bound to tx.
func (s Stores) WithTx(tx *sql.Tx) Stores {
	return Stores{
		Users:         s.Users.WithTx(tx),
		Students:      s.Students.WithTx(tx),
		Instructors:   s.Instructors.WithTx(tx),
		Courses:       s.Courses.WithTx(tx),
		Enrollments:   s.Enrollments.WithTx(tx),
		Assignments:   s.Assignments.WithTx(tx),
		Submissions:   s.Submissions.WithTx(tx),
		Grades:        s.Grades.WithTx(tx),
		Announcements: s.Announcements.WithTx(tx),
		Notifications: s.Notifications.WithTx(tx),
		Averages:      s.Averages.WithTx(tx),
	}
}
