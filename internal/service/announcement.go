package service

import (
	"context"

	"github.com/phrazzld/coursework/internal/domain"
	"github.com/phrazzld/coursework/internal/events"
	"github.com/phrazzld/coursework/internal/service/auth"
	"github.com/phrazzld/coursework/internal/store"
)

// CreateAnnouncement posts a message to a course owned by the acting
// instructor and notifies every student enrolled at that moment.
func (o *Orchestrator) CreateAnnouncement(
	ctx context.Context,
	p domain.Principal,
	courseID int64,
	title, message string,
) (_ *domain.Announcement, err error) {
	ctx, finish := o.start(ctx, SagaCreateAnnouncement, p)
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

	announcement, err := domain.NewAnnouncement(course.ID, title, message, o.now())
	if err != nil {
		return nil, err
	}

	var recipients []int64
	err = o.uow.Run(ctx, SagaCreateAnnouncement,
		o.step("insert_announcement", func(ctx context.Context, s store.Stores) error {
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

	o.emit(ctx, events.TypeNotificationsCreated, events.RecipientsPayload{RecipientIDs: recipients})
	return announcement, nil
}
