package sqldb

import (
	"log/slog"

	"github.com/phrazzld/coursework/internal/store"
)

// NewStores builds every store over db.
func NewStores(db store.DBTX, logger *slog.Logger) store.Stores {
	return store.Stores{
		Users:         NewUserStore(db, logger),
		Students:      NewStudentStore(db, logger),
		Instructors:   NewInstructorStore(db, logger),
		Courses:       NewCourseStore(db, logger),
		Enrollments:   NewEnrollmentStore(db, logger),
		Assignments:   NewAssignmentStore(db, logger),
		Submissions:   NewSubmissionStore(db, logger),
		Grades:        NewGradeStore(db, logger),
		Announcements: NewAnnouncementStore(db, logger),
		Notifications: NewNotificationStore(db, logger),
		Averages:      NewCourseAverageStore(db, logger),
	}
}
