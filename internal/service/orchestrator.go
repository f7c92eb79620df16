package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/phrazzld/coursework/internal/domain"
	"github.com/phrazzld/coursework/internal/events"
	"github.com/phrazzld/coursework/internal/platform/logger"
	"github.com/phrazzld/coursework/internal/redact"
	"github.com/phrazzld/coursework/internal/service/auth"
	"github.com/phrazzld/coursework/internal/store"
)

const tracerName = "github.com/phrazzld/coursework/internal/service"

// Workflow names, used for logs, spans and metrics.
const (
	SagaRegister           = "register"
	SagaLogin              = "login"
	SagaAuthenticate       = "authenticate"
	SagaUpdateProfile      = "update_profile"
	SagaDeleteAccount      = "delete_account"
	SagaCreateCourse       = "create_course"
	SagaEnroll             = "enroll"
	SagaDropEnrollment     = "drop_enrollment"
	SagaCreateAssignment   = "create_assignment"
	SagaDeleteAssignment   = "delete_assignment"
	SagaSubmitAssignment   = "submit_assignment"
	SagaSubmitGrade        = "submit_grade"
	SagaCreateAnnouncement = "create_announcement"
)

// EventBus is the emitter workflows publish committed changes to.
type EventBus interface {
	events.EventEmitter
	Subscribe(handler events.EventHandler, types ...string) (cancel func())
}

// Dependencies are the collaborators of every service. Stores must not be
// bound to a transaction.
type Dependencies struct {
	Stores     store.Stores
	UnitOfWork *store.UnitOfWork
	Hasher     auth.CredentialHasher
	Tokens     *auth.TokenService
	Clock      clock.Clock
	Events     EventBus
	Metrics    *Metrics
	Logger     *slog.Logger

	// ReadRetry bounds retries of idempotent reads.
	ReadRetry store.RetryPolicy
	// UnreadCacheTTL is how long an unread count is served from memory.
	UnreadCacheTTL time.Duration
}

func (d *Dependencies) validate() error {
	switch {
	case d.UnitOfWork == nil:
		return errors.New("unit of work cannot be nil")
	case d.Hasher == nil:
		return errors.New("credential hasher cannot be nil")
	case d.Tokens == nil:
		return errors.New("token service cannot be nil")
	case d.Stores.Users == nil || d.Stores.Students == nil || d.Stores.Instructors == nil ||
		d.Stores.Courses == nil || d.Stores.Enrollments == nil || d.Stores.Assignments == nil ||
		d.Stores.Submissions == nil || d.Stores.Grades == nil || d.Stores.Announcements == nil ||
		d.Stores.Notifications == nil || d.Stores.Averages == nil:
		return errors.New("every store must be set")
	}
	return nil
}

// Services is the container handed to the interactive layer.
type Services struct {
	Workflows *Orchestrator
	Inbox     *Inbox
	Reports   *Reports
}

// New builds every service and subscribes the inbox to workflow events.
func New(deps Dependencies) (*Services, error) {
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Events == nil {
		deps.Events = events.NewBus(deps.Logger)
	}
	if deps.ReadRetry == (store.RetryPolicy{}) {
		deps.ReadRetry = store.DefaultRetryPolicy()
	}
	if deps.UnreadCacheTTL <= 0 {
		deps.UnreadCacheTTL = 30 * time.Second
	}

	inbox := NewInbox(deps)
	deps.Events.Subscribe(inbox, events.TypeNotificationsCreated)

	return &Services{
		Workflows: NewOrchestrator(deps),
		Inbox:     inbox,
		Reports:   NewReports(deps),
	}, nil
}

// Orchestrator runs the write workflows. Every workflow checks roles,
// ownership and input before its first write and performs all of its writes
// in one unit of work.
type Orchestrator struct {
	stores  store.Stores
	uow     *store.UnitOfWork
	hasher  auth.CredentialHasher
	tokens  *auth.TokenService
	clock   clock.Clock
	events  events.EventEmitter
	fanout  *NotificationFanout
	metrics *Metrics
	retry   store.RetryPolicy
	tracer  trace.Tracer
	logger  *slog.Logger
}

// NewOrchestrator creates an Orchestrator. Use New unless the other services
// are not needed.
func NewOrchestrator(deps Dependencies) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Events == nil {
		deps.Events = events.NewBus(deps.Logger)
	}
	return &Orchestrator{
		stores:  deps.Stores,
		uow:     deps.UnitOfWork,
		hasher:  deps.Hasher,
		tokens:  deps.Tokens,
		clock:   deps.Clock,
		events:  deps.Events,
		fanout:  NewNotificationFanout(deps.Clock, deps.Metrics, deps.Logger),
		metrics: deps.Metrics,
		retry:   deps.ReadRetry,
		tracer:  otel.Tracer(tracerName),
		logger:  deps.Logger.With("component", "orchestrator"),
	}
}

// start opens the span and logger of one workflow run. The returned finish
// must be deferred with the named error result; it converts that error into
// a *WorkflowError and records the outcome.
func (o *Orchestrator) start(
	ctx context.Context,
	saga string,
	p domain.Principal,
) (context.Context, func(error) error) {
	started := time.Now()

	attrs := []attribute.KeyValue{attribute.String("saga", saga)}
	log := logger.FromContextOrDefault(ctx, o.logger).With(slog.String("saga", saga))
	if p != nil {
		id := p.UserIdentity()
		attrs = append(attrs, attribute.Int64("user_id", id.UserID), attribute.String("role", string(id.Role)))
		log = log.With(slog.Int64("user_id", id.UserID), slog.String("role", string(id.Role)))
	}

	ctx, span := o.tracer.Start(ctx, saga, trace.WithAttributes(attrs...))
	ctx = logger.WithLogger(ctx, log)

	return ctx, func(err error) error {
		defer span.End()

		if err != nil {
			var we *WorkflowError
			if !errors.As(err, &we) {
				we = newWorkflowError(saga, err)
			}
			err = we
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logFailure(log, we)
		} else {
			log.Debug("workflow completed", slog.Duration("elapsed", time.Since(started)))
		}

		o.metrics.observeSaga(saga, started, err)
		return err
	}
}

func logFailure(log *slog.Logger, we *WorkflowError) {
	attrs := []any{slog.String("step", we.Step), slog.String("error", redact.Error(we.Err))}
	switch domain.KindOf(we) {
	case domain.KindValidation, domain.KindAuthorization, domain.KindNotFound:
		log.Info("workflow rejected", attrs...)
	case domain.KindConflict:
		log.Warn("workflow conflicted", attrs...)
	default:
		log.Error("workflow failed", attrs...)
	}
}

// step binds fn to the transaction of the unit of work.
func (o *Orchestrator) step(name string, fn func(ctx context.Context, s store.Stores) error) store.Step {
	return store.Step{
		Name: name,
		Do: func(ctx context.Context, tx *sql.Tx) error {
			return fn(ctx, o.stores.WithTx(tx))
		},
	}
}

// emit publishes a domain event for a committed workflow. Failures are
// logged; the workflow has already succeeded.
func (o *Orchestrator) emit(ctx context.Context, eventType string, payload any) {
	event, err := events.NewEvent(eventType, payload, o.clock.Now().UTC())
	if err != nil {
		logger.FromContextOrDefault(ctx, o.logger).Error("failed to build event",
			"error", err,
			"event_type", eventType)
		return
	}
	if err := o.events.EmitEvent(ctx, event); err != nil {
		logger.FromContextOrDefault(ctx, o.logger).Warn("event handler failed",
			"error", err,
			"event_id", event.ID,
			"event_type", eventType)
	}
}

// now returns the current time in UTC truncated to microseconds, the
// precision both databases keep.
func (o *Orchestrator) now() time.Time {
	return o.clock.Now().UTC().Truncate(time.Microsecond)
}

// get reads one entity outside any transaction, retrying transient failures,
// and classifies a failure against entity and id.
func get[T any](ctx context.Context, o *Orchestrator, entity string, id int64, read func(ctx context.Context) (T, error)) (T, error) {
	v, err := store.RetryRead(ctx, o.retry, read)
	if err != nil {
		return v, classify(err, entity, id)
	}
	return v, nil
}
