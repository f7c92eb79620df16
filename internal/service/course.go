package service

import (
	"context"
	"errors"

	"github.com/phrazzld/coursework/internal/domain"
	"github.com/phrazzld/coursework/internal/events"
	"github.com/phrazzld/coursework/internal/service/auth"
	"github.com/phrazzld/coursework/internal/store"
)

// CreateCourse adds a course to the catalog. An instructor always creates
// courses of their own; an admin must name the owning instructor profile.
func (o *Orchestrator) CreateCourse(
	ctx context.Context,
	p domain.Principal,
	fields domain.CourseFields,
) (_ *domain.Course, err error) {
	ctx, finish := o.start(ctx, SagaCreateCourse, p)
	defer func() { err = finish(err) }()

	if err := auth.RequireRole(p, domain.RoleAdmin, domain.RoleInstructor); err != nil {
		return nil, err
	}

	if instructor, ok := p.(domain.Instructor); ok {
		if fields.InstructorID != 0 {
			if err := auth.CheckOwnership(fields.InstructorID, instructor.InstructorProfileID); err != nil {
				return nil, err
			}
		}
		fields.InstructorID = instructor.InstructorProfileID
	} else {
		if fields.InstructorID <= 0 {
			return nil, domain.NewValidationError("instructor_id", "is required", nil)
		}
		if _, err := get(ctx, o, "instructor", fields.InstructorID, func(ctx context.Context) (*domain.InstructorProfile, error) {
			return o.stores.Instructors.GetByID(ctx, fields.InstructorID)
		}); err != nil {
			return nil, err
		}
	}

	course, err := domain.NewCourse(fields)
	if err != nil {
		return nil, err
	}

	if err := o.uow.Run(ctx, SagaCreateCourse,
		o.step("insert_course", func(ctx context.Context, s store.Stores) error {
			return classify(s.Courses.Create(ctx, course), "course", 0)
		}),
	); err != nil {
		return nil, err
	}

	o.emit(ctx, events.TypeCourseCreated, events.EntityPayload{
		ID:      course.ID,
		ActorID: p.UserIdentity().UserID,
	})
	return course, nil
}

// Enroll adds the acting student to a course, or reactivates a dropped
// enrollment. Capacity is checked under the course lock, and the student's
// course average is rebuilt from any grades kept from an earlier enrollment.
func (o *Orchestrator) Enroll(ctx context.Context, p domain.Principal, courseID int64) (_ *domain.Enrollment, err error) {
	ctx, finish := o.start(ctx, SagaEnroll, p)
	defer func() { err = finish(err) }()

	student, err := auth.RequireStudent(p)
	if err != nil {
		return nil, err
	}
	studentID := student.StudentProfileID

	course, err := get(ctx, o, "course", courseID, func(ctx context.Context) (*domain.Course, error) {
		return o.stores.Courses.GetByID(ctx, courseID)
	})
	if err != nil {
		return nil, err
	}

	now := o.now()
	var enrollment *domain.Enrollment

	err = o.uow.Run(ctx, SagaEnroll,
		o.step("lock_course", func(ctx context.Context, s store.Stores) error {
			return classify(s.Courses.Lock(ctx, course.ID), "course", course.ID)
		}),
		o.step("enroll", func(ctx context.Context, s store.Stores) error {
			existing, err := s.Enrollments.Get(ctx, studentID, course.ID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return classify(err, "enrollment", course.ID)
			}
			if existing != nil {
				if err := auth.CheckOwned(existing, studentID); err != nil {
					return err
				}
				if existing.Active() {
					return domain.NewValidationError("course_id", "is already enrolled", nil)
				}
			}

			active, err := s.Enrollments.CountActive(ctx, course.ID)
			if err != nil {
				return classify(err, "enrollment", course.ID)
			}
			if active >= course.MaxStudents {
				return domain.NewValidationError("course_id", "is full", nil)
			}

			if existing != nil {
				if err := s.Enrollments.UpdateStatus(ctx, existing.ID, domain.EnrollmentEnrolled); err != nil {
					return classify(err, "enrollment", existing.ID)
				}
				existing.Status = domain.EnrollmentEnrolled
				enrollment = existing
				return nil
			}

			enrollment = &domain.Enrollment{
				StudentID:  studentID,
				CourseID:   course.ID,
				Status:     domain.EnrollmentEnrolled,
				EnrolledAt: now,
			}
			return classify(s.Enrollments.Create(ctx, enrollment), "enrollment", course.ID)
		}),
		o.step("refresh_average", func(ctx context.Context, s store.Stores) error {
			return refreshAverage(ctx, s, studentID, course.ID, now)
		}),
	)
	if err != nil {
		return nil, err
	}

	o.emit(ctx, events.TypeEnrollmentChanged, events.EntityPayload{
		ID:       enrollment.ID,
		CourseID: course.ID,
		ActorID:  p.UserIdentity().UserID,
	})
	return enrollment, nil
}

// DropEnrollment withdraws the acting student from a course and removes the
// course average, which only exists for active enrollments. Grades are kept.
func (o *Orchestrator) DropEnrollment(ctx context.Context, p domain.Principal, courseID int64) (err error) {
	ctx, finish := o.start(ctx, SagaDropEnrollment, p)
	defer func() { err = finish(err) }()

	student, err := auth.RequireStudent(p)
	if err != nil {
		return err
	}

	enrollment, err := get(ctx, o, "enrollment", courseID, func(ctx context.Context) (*domain.Enrollment, error) {
		return o.stores.Enrollments.Get(ctx, student.StudentProfileID, courseID)
	})
	if err != nil {
		return err
	}
	if err := auth.CheckOwned(enrollment, student.StudentProfileID); err != nil {
		return err
	}
	if !enrollment.Active() {
		return domain.NewValidationError("course_id", "is not an active enrollment", nil)
	}

	err = o.uow.Run(ctx, SagaDropEnrollment,
		o.step("lock_course", func(ctx context.Context, s store.Stores) error {
			return classify(s.Courses.Lock(ctx, courseID), "course", courseID)
		}),
		o.step("drop_enrollment", func(ctx context.Context, s store.Stores) error {
			return classify(s.Enrollments.UpdateStatus(ctx, enrollment.ID, domain.EnrollmentDropped), "enrollment", enrollment.ID)
		}),
		o.step("delete_average", func(ctx context.Context, s store.Stores) error {
			return classify(s.Averages.Delete(ctx, enrollment.StudentID, courseID), "course average", courseID)
		}),
	)
	if err != nil {
		return err
	}

	o.emit(ctx, events.TypeEnrollmentChanged, events.EntityPayload{
		ID:       enrollment.ID,
		CourseID: courseID,
		ActorID:  p.UserIdentity().UserID,
	})
	return nil
}
