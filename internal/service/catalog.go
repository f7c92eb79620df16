package service

import (
	"context"
	"errors"
	"strings"

	"github.com/phrazzld/coursework/internal/domain"
	"github.com/phrazzld/coursework/internal/service/auth"
	"github.com/phrazzld/coursework/internal/store"
)

var anyRole = []domain.Role{domain.RoleStudent, domain.RoleInstructor, domain.RoleAdmin}

// AllCourses lists the course catalog ordered by code. Any signed-in
// principal may browse it.
func (r *Reports) AllCourses(ctx context.Context, p domain.Principal) ([]*domain.Course, error) {
	if err := auth.RequireRole(p, anyRole...); err != nil {
		return nil, r.fail(ctx, "all_courses", err)
	}
	courses, err := store.RetryRead(ctx, r.retry, r.stores.Courses.List)
	if err != nil {
		return nil, r.fail(ctx, "all_courses", classify(err, "course", 0))
	}
	return courses, nil
}

// SearchCourses lists the courses whose code or name contains query,
// ignoring case. A blank query matches the whole catalog.
func (r *Reports) SearchCourses(ctx context.Context, p domain.Principal, query string) ([]*domain.Course, error) {
	if err := auth.RequireRole(p, anyRole...); err != nil {
		return nil, r.fail(ctx, "search_courses", err)
	}
	query = strings.TrimSpace(query)
	if len(query) > 100 {
		return nil, r.fail(ctx, "search_courses", domain.NewValidationError("query", "must be at most 100", nil))
	}
	courses, err := store.RetryRead(ctx, r.retry, func(ctx context.Context) ([]*domain.Course, error) {
		return r.stores.Courses.Search(ctx, query)
	})
	if err != nil {
		return nil, r.fail(ctx, "search_courses", classify(err, "course", 0))
	}
	return courses, nil
}

// CoursesByInstructor lists the courses taught by an instructor profile.
func (r *Reports) CoursesByInstructor(ctx context.Context, p domain.Principal, instructorID int64) ([]*domain.Course, error) {
	if err := auth.RequireRole(p, anyRole...); err != nil {
		return nil, r.fail(ctx, "courses_by_instructor", err)
	}
	_, err := store.RetryRead(ctx, r.retry, func(ctx context.Context) (*domain.InstructorProfile, error) {
		return r.stores.Instructors.GetByID(ctx, instructorID)
	})
	if err != nil {
		return nil, r.fail(ctx, "courses_by_instructor", classify(err, "instructor", instructorID))
	}
	courses, err := store.RetryRead(ctx, r.retry, func(ctx context.Context) ([]*domain.Course, error) {
		return r.stores.Courses.ListByInstructor(ctx, instructorID)
	})
	if err != nil {
		return nil, r.fail(ctx, "courses_by_instructor", classify(err, "course", instructorID))
	}
	return courses, nil
}

// CourseRoster lists the active students of a course. Only the instructor
// who teaches it may see the roster.
func (r *Reports) CourseRoster(ctx context.Context, p domain.Principal, courseID int64) ([]domain.RosterEntry, error) {
	instructor, err := auth.RequireInstructor(p)
	if err != nil {
		return nil, r.fail(ctx, "course_roster", err)
	}
	course, err := r.course(ctx, courseID)
	if err != nil {
		return nil, r.fail(ctx, "course_roster", err)
	}
	if err := auth.CheckOwned(course, instructor.InstructorProfileID); err != nil {
		return nil, r.fail(ctx, "course_roster", err)
	}

	roster, err := store.RetryRead(ctx, r.retry, func(ctx context.Context) ([]domain.RosterEntry, error) {
		return r.stores.Enrollments.ListRoster(ctx, courseID)
	})
	if err != nil {
		return nil, r.fail(ctx, "course_roster", classify(err, "enrollment", courseID))
	}
	return roster, nil
}

// CourseAssignments lists the assignments of a course by due date. See
// requireMember for who may read them.
func (r *Reports) CourseAssignments(ctx context.Context, p domain.Principal, courseID int64) ([]*domain.Assignment, error) {
	if err := r.requireMember(ctx, p, courseID); err != nil {
		return nil, r.fail(ctx, "course_assignments", err)
	}
	assignments, err := store.RetryRead(ctx, r.retry, func(ctx context.Context) ([]*domain.Assignment, error) {
		return r.stores.Assignments.ListByCourse(ctx, courseID)
	})
	if err != nil {
		return nil, r.fail(ctx, "course_assignments", classify(err, "assignment", courseID))
	}
	if assignments == nil {
		assignments = []*domain.Assignment{}
	}
	return assignments, nil
}

// CourseAnnouncements lists the announcements of a course, newest first.
// See requireMember for who may read them.
func (r *Reports) CourseAnnouncements(ctx context.Context, p domain.Principal, courseID int64) ([]*domain.Announcement, error) {
	if err := r.requireMember(ctx, p, courseID); err != nil {
		return nil, r.fail(ctx, "course_announcements", err)
	}
	list, err := store.RetryRead(ctx, r.retry, func(ctx context.Context) ([]*domain.Announcement, error) {
		return r.stores.Announcements.ListByCourse(ctx, courseID)
	})
	if err != nil {
		return nil, r.fail(ctx, "course_announcements", classify(err, "announcement", courseID))
	}
	return list, nil
}

// AssignmentStatuses lists every assignment of a course the acting student
// is enrolled in, each marked pending, submitted or overdue and carrying the
// grade and feedback once graded.
func (r *Reports) AssignmentStatuses(ctx context.Context, p domain.Principal, courseID int64) ([]domain.AssignmentProgress, error) {
	student, err := auth.RequireStudent(p)
	if err != nil {
		return nil, r.fail(ctx, "assignment_statuses", err)
	}
	if err := r.requireMember(ctx, student, courseID); err != nil {
		return nil, r.fail(ctx, "assignment_statuses", err)
	}

	progress, err := store.RetryRead(ctx, r.retry, func(ctx context.Context) ([]domain.AssignmentProgress, error) {
		return r.stores.Assignments.ListProgress(ctx, student.StudentProfileID, courseID)
	})
	if err != nil {
		return nil, r.fail(ctx, "assignment_statuses", classify(err, "assignment", courseID))
	}
	now := r.clock.Now().UTC()
	for i := range progress {
		progress[i].ResolveStatus(now)
	}
	return progress, nil
}

// requireMember admits the instructor who teaches the course, its actively
// enrolled students and admins.
func (r *Reports) requireMember(ctx context.Context, p domain.Principal, courseID int64) error {
	if err := auth.RequireRole(p, anyRole...); err != nil {
		return err
	}
	course, err := r.course(ctx, courseID)
	if err != nil {
		return err
	}

	switch who := p.(type) {
	case domain.Instructor:
		return auth.CheckOwned(course, who.InstructorProfileID)
	case domain.Student:
		enrollment, err := store.RetryRead(ctx, r.retry, func(ctx context.Context) (*domain.Enrollment, error) {
			return r.stores.Enrollments.Get(ctx, who.StudentProfileID, courseID)
		})
		if errors.Is(err, store.ErrNotFound) || (err == nil && !enrollment.Active()) {
			return &domain.AuthorizationError{PrincipalID: who.UserID, Reason: "not enrolled in the course"}
		}
		return classify(err, "enrollment", courseID)
	default:
		return nil
	}
}

func (r *Reports) course(ctx context.Context, courseID int64) (*domain.Course, error) {
	course, err := store.RetryRead(ctx, r.retry, func(ctx context.Context) (*domain.Course, error) {
		return r.stores.Courses.GetByID(ctx, courseID)
	})
	if err != nil {
		return nil, classify(err, "course", courseID)
	}
	return course, nil
}

// Users lists every account without credentials. Admins only.
func (r *Reports) Users(ctx context.Context, p domain.Principal) ([]*domain.User, error) {
	if err := auth.RequireRole(p, domain.RoleAdmin); err != nil {
		return nil, r.fail(ctx, "list_users", err)
	}
	users, err := store.RetryRead(ctx, r.retry, r.stores.Users.List)
	if err != nil {
		return nil, r.fail(ctx, "list_users", classify(err, "user", 0))
	}
	for _, u := range users {
		u.PasswordHash = ""
	}
	return users, nil
}
