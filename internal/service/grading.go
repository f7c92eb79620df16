package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/phrazzld/coursework/internal/domain"
	"github.com/phrazzld/coursework/internal/events"
	"github.com/phrazzld/coursework/internal/service/auth"
	"github.com/phrazzld/coursework/internal/store"
)

// SubmitGrade records the acting instructor's grade for a submission in one
// of their courses. In one unit of work it upserts the grade, marks the
// submission graded, rebuilds the student's course average from all of their
// grades in the course and notifies the student. A student who is no longer
// enrolled keeps the grade but gets no course average.
//
// The course average row is locked before anything else is written, so
// concurrent grades for the same student and course serialize on it.
func (o *Orchestrator) SubmitGrade(
	ctx context.Context,
	p domain.Principal,
	submissionID int64,
	value float64,
	feedback string,
) (_ *domain.Grade, err error) {
	ctx, finish := o.start(ctx, SagaSubmitGrade, p)
	defer func() { err = finish(err) }()

	instructor, err := auth.RequireInstructor(p)
	if err != nil {
		return nil, err
	}

	submission, err := get(ctx, o, "submission", submissionID, func(ctx context.Context) (*domain.Submission, error) {
		return o.stores.Submissions.GetByID(ctx, submissionID)
	})
	if err != nil {
		return nil, err
	}
	assignment, err := get(ctx, o, "assignment", submission.AssignmentID, func(ctx context.Context) (*domain.Assignment, error) {
		return o.stores.Assignments.GetByID(ctx, submission.AssignmentID)
	})
	if err != nil {
		return nil, err
	}
	course, err := get(ctx, o, "course", assignment.CourseID, func(ctx context.Context) (*domain.Course, error) {
		return o.stores.Courses.GetByID(ctx, assignment.CourseID)
	})
	if err != nil {
		return nil, err
	}

	if err := auth.CheckOwnership(course.InstructorID, instructor.InstructorProfileID); err != nil {
		return nil, err
	}
	if err := domain.ValidateGradeValue(value, assignment.MaxScore); err != nil {
		return nil, err
	}

	now := o.now()
	studentID := submission.StudentID
	grade := &domain.Grade{
		SubmissionID: submission.ID,
		Value:        value,
		Feedback:     strings.TrimSpace(feedback),
		GradedAt:     now,
	}
	var version int64

	err = o.uow.Run(ctx, SagaSubmitGrade,
		o.step("lock_average", func(ctx context.Context, s store.Stores) error {
			var err error
			version, err = lockAverage(ctx, s, studentID, course.ID, now)
			return err
		}),
		o.step("upsert_grade", func(ctx context.Context, s store.Stores) error {
			return classify(s.Grades.Upsert(ctx, grade), "grade", submission.ID)
		}),
		o.step("mark_graded", func(ctx context.Context, s store.Stores) error {
			return classify(s.Submissions.UpdateStatus(ctx, submission.ID, domain.SubmissionGraded), "submission", submission.ID)
		}),
		o.step("recompute_average", func(ctx context.Context, s store.Stores) error {
			enrollment, err := s.Enrollments.Get(ctx, studentID, course.ID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return classify(err, "enrollment", studentID)
			}
			if enrollment == nil || !enrollment.Active() {
				return classify(s.Averages.Delete(ctx, studentID, course.ID), "course average", course.ID)
			}
			_, err = recomputeAverage(ctx, s, studentID, course.ID, version, now)
			return err
		}),
		o.step("notify_student", func(ctx context.Context, s store.Stores) error {
			announcement := &domain.Announcement{
				CourseID: course.ID,
				Title:    "Grade posted: " + assignment.Title,
				Message: fmt.Sprintf("You scored %s out of %d on %s.",
					strconv.FormatFloat(value, 'f', -1, 64), assignment.MaxScore, assignment.Title),
				CreatedAt: now,
			}
			if err := s.Announcements.Create(ctx, announcement); err != nil {
				return classify(err, "announcement", 0)
			}
			return o.fanout.NotifyRecipients(ctx, s, announcement.ID, []int64{studentID})
		}),
	)
	if err != nil {
		return nil, err
	}

	o.emit(ctx, events.TypeGradeRecorded, events.EntityPayload{
		ID:       grade.ID,
		CourseID: course.ID,
		ActorID:  p.UserIdentity().UserID,
	})
	o.emit(ctx, events.TypeNotificationsCreated, events.RecipientsPayload{RecipientIDs: []int64{studentID}})
	return grade, nil
}
