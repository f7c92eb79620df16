package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/phrazzld/coursework/internal/domain"
	"github.com/phrazzld/coursework/internal/events"
	"github.com/phrazzld/coursework/internal/service/auth"
	"github.com/phrazzld/coursework/internal/store"
)

// dueDateLayout formats due dates in system announcements.
const dueDateLayout = "Mon Jan 2 2006 15:04 MST"

// CreateAssignment adds an assignment to a course owned by the acting
// instructor and announces it to every active student. The assignment, its
// announcement and the notifications are written in one unit of work.
func (o *Orchestrator) CreateAssignment(
	ctx context.Context,
	p domain.Principal,
	courseID int64,
	fields domain.AssignmentFields,
) (_ *domain.Assignment, err error) {
	ctx, finish := o.start(ctx, SagaCreateAssignment, p)
	defer func() { err = finish(err) }()

	instructor, err := auth.RequireInstructor(p)
	if err != nil {
		return nil, err
	}

	course, err := get(ctx, o, "course", courseID, func(ctx context.Context) (*domain.Course, error) {
		return o.stores.Courses.GetByID(ctx, courseID)
	})
	if err != nil {
		return nil, err
	}
	if err := auth.CheckOwnership(course.InstructorID, instructor.InstructorProfileID); err != nil {
		return nil, err
	}

	now := o.now()
	assignment, err := domain.NewAssignment(course.ID, fields, now)
	if err != nil {
		return nil, err
	}

	var (
		announcement *domain.Announcement
		recipients   []int64
	)
	err = o.uow.Run(ctx, SagaCreateAssignment,
		o.step("insert_assignment", func(ctx context.Context, s store.Stores) error {
			return classify(s.Assignments.Create(ctx, assignment), "assignment", 0)
		}),
		o.step("insert_announcement", func(ctx context.Context, s store.Stores) error {
			announcement = &domain.Announcement{
				CourseID: course.ID,
				Title:    "New Assignment: " + assignment.Title,
				Message: fmt.Sprintf("%s %s is due %s (max score %d).",
					course.Code, assignment.Type, assignment.DueDate.Format(dueDateLayout), assignment.MaxScore),
				CreatedAt: now,
			}
			return classify(s.Announcements.Create(ctx, announcement), "announcement", 0)
		}),
		o.step("fanout", func(ctx context.Context, s store.Stores) error {
			var err error
			recipients, err = o.fanout.Notify(ctx, s, course.ID, announcement.ID)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}

	o.emit(ctx, events.TypeAssignmentCreated, events.EntityPayload{
		ID:       assignment.ID,
		CourseID: course.ID,
		ActorID:  p.UserIdentity().UserID,
	})
	o.emit(ctx, events.TypeNotificationsCreated, events.RecipientsPayload{RecipientIDs: recipients})
	return assignment, nil
}

// DeleteAssignment removes an assignment of a course owned by the acting
// instructor together with its submissions and grades, and rebuilds the
// course average of every active student.
func (o *Orchestrator) DeleteAssignment(ctx context.Context, p domain.Principal, assignmentID int64) (err error) {
	ctx, finish := o.start(ctx, SagaDeleteAssignment, p)
	defer func() { err = finish(err) }()

	instructor, err := auth.RequireInstructor(p)
	if err != nil {
		return err
	}

	assignment, err := get(ctx, o, "assignment", assignmentID, func(ctx context.Context) (*domain.Assignment, error) {
		return o.stores.Assignments.GetByID(ctx, assignmentID)
	})
	if err != nil {
		return err
	}
	course, err := get(ctx, o, "course", assignment.CourseID, func(ctx context.Context) (*domain.Course, error) {
		return o.stores.Courses.GetByID(ctx, assignment.CourseID)
	})
	if err != nil {
		return err
	}
	if err := auth.CheckOwnership(course.InstructorID, instructor.InstructorProfileID); err != nil {
		return err
	}

	now := o.now()
	err = o.uow.Run(ctx, SagaDeleteAssignment,
		o.step("lock_course", func(ctx context.Context, s store.Stores) error {
			return classify(s.Courses.Lock(ctx, course.ID), "course", course.ID)
		}),
		o.step("delete_assignment", func(ctx context.Context, s store.Stores) error {
			return classify(s.Assignments.Delete(ctx, assignment.ID), "assignment", assignment.ID)
		}),
		o.step("refresh_averages", func(ctx context.Context, s store.Stores) error {
			students, err := s.Enrollments.ActiveStudentIDs(ctx, course.ID)
			if err != nil {
				return classify(err, "enrollment", course.ID)
			}
			for _, studentID := range students {
				if err := refreshAverage(ctx, s, studentID, course.ID, now); err != nil {
					return err
				}
			}
			return nil
		}),
	)
	if err != nil {
		return err
	}

	o.emit(ctx, events.TypeAssignmentDeleted, events.EntityPayload{
		ID:       assignment.ID,
		CourseID: course.ID,
		ActorID:  p.UserIdentity().UserID,
	})
	return nil
}

// SubmitAssignment records the acting student's answer. A student has one
// submission per assignment; submitting again replaces the content until the
// submission is graded or the due date passes.
func (o *Orchestrator) SubmitAssignment(
	ctx context.Context,
	p domain.Principal,
	assignmentID int64,
	content string,
) (_ *domain.Submission, err error) {
	ctx, finish := o.start(ctx, SagaSubmitAssignment, p)
	defer func() { err = finish(err) }()

	student, err := auth.RequireStudent(p)
	if err != nil {
		return nil, err
	}
	studentID := student.StudentProfileID

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.NewValidationError("content", "is required", nil)
	}

	assignment, err := get(ctx, o, "assignment", assignmentID, func(ctx context.Context) (*domain.Assignment, error) {
		return o.stores.Assignments.GetByID(ctx, assignmentID)
	})
	if err != nil {
		return nil, err
	}

	enrollment, err := get(ctx, o, "enrollment", assignment.CourseID, func(ctx context.Context) (*domain.Enrollment, error) {
		return o.stores.Enrollments.Get(ctx, studentID, assignment.CourseID)
	})
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if enrollment == nil || !enrollment.Active() {
		return nil, &domain.AuthorizationError{PrincipalID: studentID, Reason: "not enrolled in the course"}
	}

	now := o.now()
	if now.After(assignment.DueDate) {
		return nil, domain.NewValidationError("due_date", "has passed", nil)
	}

	existing, err := get(ctx, o, "submission", assignmentID, func(ctx context.Context) (*domain.Submission, error) {
		return o.stores.Submissions.GetByAssignmentAndStudent(ctx, assignmentID, studentID)
	})
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		if err := auth.CheckOwned(existing, studentID); err != nil {
			return nil, err
		}
		if existing.Status == domain.SubmissionGraded {
			return nil, domain.NewValidationError("submission", "is already graded", nil)
		}
	}

	var submission *domain.Submission
	err = o.uow.Run(ctx, SagaSubmitAssignment,
		o.step("save_submission", func(ctx context.Context, s store.Stores) error {
			if existing == nil {
				submission = &domain.Submission{
					AssignmentID: assignment.ID,
					StudentID:    studentID,
					Content:      content,
					Status:       domain.SubmissionSubmitted,
					SubmittedAt:  now,
				}
				return classify(s.Submissions.Create(ctx, submission), "submission", assignment.ID)
			}

			if err := s.Submissions.UpdateContent(ctx, existing.ID, content, now); err != nil {
				return classify(err, "submission", existing.ID)
			}
			// Grading may have landed since the check above.
			current, err := s.Submissions.GetByID(ctx, existing.ID)
			if err != nil {
				return classify(err, "submission", existing.ID)
			}
			if current.Status == domain.SubmissionGraded {
				return domain.NewValidationError("submission", "is already graded", nil)
			}
			submission = current
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	o.emit(ctx, events.TypeAssignmentSubmitted, events.EntityPayload{
		ID:       submission.ID,
		CourseID: assignment.CourseID,
		ActorID:  p.UserIdentity().UserID,
	})
	return submission, nil
}
