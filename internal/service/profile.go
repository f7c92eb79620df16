package service

import (
	"context"

	"github.com/phrazzld/coursework/internal/domain"
	"github.com/phrazzld/coursework/internal/events"
	"github.com/phrazzld/coursework/internal/service/auth"
	"github.com/phrazzld/coursework/internal/store"
)

// UpdateProfile changes the identity fields of the acting user's own
// account. The returned user carries no password hash.
func (o *Orchestrator) UpdateProfile(
	ctx context.Context,
	p domain.Principal,
	userID int64,
	update domain.ProfileUpdate,
) (_ *domain.User, err error) {
	ctx, finish := o.start(ctx, SagaUpdateProfile, p)
	defer func() { err = finish(err) }()

	if err := auth.RequireRole(p, anyRole...); err != nil {
		return nil, err
	}
	if err := auth.CheckOwnership(userID, p.UserIdentity().UserID); err != nil {
		return nil, err
	}

	user, err := get(ctx, o, "user", userID, func(ctx context.Context) (*domain.User, error) {
		return o.stores.Users.GetByID(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	updated, err := update.ApplyTo(*user)
	if err != nil {
		return nil, err
	}
	if updated.Username != user.Username {
		if err := o.checkUsernameFree(ctx, updated.Username, user.ID); err != nil {
			return nil, err
		}
	}

	err = o.uow.Run(ctx, SagaUpdateProfile,
		o.step("update_user", func(ctx context.Context, s store.Stores) error {
			return classify(s.Users.Update(ctx, updated), "user", userID)
		}),
	)
	if err != nil {
		return nil, err
	}

	o.emit(ctx, events.TypeUserUpdated, events.EntityPayload{ID: userID, ActorID: userID})
	updated.PasswordHash = ""
	return updated, nil
}

// DeleteAccount removes the acting user's own account together with its
// role profile and everything that belongs to the profile. An instructor
// who still teaches courses cannot be deleted.
func (o *Orchestrator) DeleteAccount(ctx context.Context, p domain.Principal, userID int64) (err error) {
	ctx, finish := o.start(ctx, SagaDeleteAccount, p)
	defer func() { err = finish(err) }()

	if err := auth.RequireRole(p, anyRole...); err != nil {
		return err
	}
	if err := auth.CheckOwnership(userID, p.UserIdentity().UserID); err != nil {
		return err
	}

	if _, err := get(ctx, o, "user", userID, func(ctx context.Context) (*domain.User, error) {
		return o.stores.Users.GetByID(ctx, userID)
	}); err != nil {
		return err
	}
	if instructor, ok := p.(domain.Instructor); ok {
		courses, err := get(ctx, o, "course", instructor.InstructorProfileID, func(ctx context.Context) ([]*domain.Course, error) {
			return o.stores.Courses.ListByInstructor(ctx, instructor.InstructorProfileID)
		})
		if err != nil {
			return err
		}
		if len(courses) > 0 {
			return domain.NewValidationError("account", "still teaches courses", nil)
		}
	}

	err = o.uow.Run(ctx, SagaDeleteAccount,
		o.step("delete_user", func(ctx context.Context, s store.Stores) error {
			return classify(s.Users.Delete(ctx, userID), "user", userID)
		}),
	)
	if err != nil {
		return err
	}

	o.emit(ctx, events.TypeUserDeleted, events.EntityPayload{ID: userID, ActorID: userID})
	return nil
}
