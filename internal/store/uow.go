package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/phrazzld/coursework/internal/platform/logger"
)

const tracerName = "github.com/phrazzld/coursework/internal/store"

// Step is one unit of a multi-step write. Do runs inside the shared
// transaction. Compensate, when set, undoes effects of Do that live outside
// the transaction; it runs only if a later step or the commit fails.
type Step struct {
	Name       string
	Do         TxFn
	Compensate func(ctx context.Context) error
}

// StepError reports which step of a unit of work failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// UnitOfWork runs a sequence of steps in one database transaction: either
// every step's writes become visible or none do.
type UnitOfWork struct {
	db        *sql.DB
	txOptions *sql.TxOptions
	mapError  func(error) error
	tracer    trace.Tracer
}

// UnitOfWorkOption configures a UnitOfWork.
type UnitOfWorkOption func(*UnitOfWork)

// WithTxOptions sets the options every transaction is opened with.
func WithTxOptions(opts *sql.TxOptions) UnitOfWorkOption {
	return func(u *UnitOfWork) {
		u.txOptions = opts
	}
}

// WithErrorMapper translates driver errors (from steps and from commit) into
// store errors before they are returned.
func WithErrorMapper(fn func(error) error) UnitOfWorkOption {
	return func(u *UnitOfWork) {
		if fn != nil {
			u.mapError = fn
		}
	}
}

// WithTracer replaces the global otel tracer.
func WithTracer(tracer trace.Tracer) UnitOfWorkOption {
	return func(u *UnitOfWork) {
		if tracer != nil {
			u.tracer = tracer
		}
	}
}

// NewUnitOfWork creates a UnitOfWork over db.
func NewUnitOfWork(db *sql.DB, opts ...UnitOfWorkOption) *UnitOfWork {
	u := &UnitOfWork{
		db:       db,
		mapError: func(err error) error { return err },
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// DB returns the underlying connection pool.
func (u *UnitOfWork) DB() *sql.DB {
	return u.db
}

// Run executes steps in order inside a single transaction. The first failing
// step aborts the rest and rolls everything back; compensations of the steps
// that already completed then run in reverse order. The returned error is the
// step or commit error; compensation failures are logged and joined to it.
func (u *UnitOfWork) Run(ctx context.Context, name string, steps ...Step) error {
	ctx, span := u.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.Int("uow.steps", len(steps)),
	))
	defer span.End()

	log := logger.FromContext(ctx).With(slog.String("unit_of_work", name))
	completed := make([]Step, 0, len(steps))

	err := RunInTransaction(ctx, u.db, u.txOptions, func(ctx context.Context, tx *sql.Tx) error {
		for _, step := range steps {
			if err := u.runStep(ctx, tx, step); err != nil {
				return err
			}
			completed = append(completed, step)
		}
		return nil
	})
	if err == nil {
		return nil
	}

	err = u.mapError(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.Debug("unit of work rolled back", slog.String("error", err.Error()))

	if cerr := compensate(ctx, log, completed); cerr != nil {
		return errors.Join(err, cerr)
	}
	return err
}

func (u *UnitOfWork) runStep(ctx context.Context, tx *sql.Tx, step Step) error {
	ctx, span := u.tracer.Start(ctx, step.Name)
	defer span.End()

	if err := step.Do(ctx, tx); err != nil {
		err = u.mapError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &StepError{Step: step.Name, Err: err}
	}
	return nil
}

func compensate(ctx context.Context, log *slog.Logger, completed []Step) error {
	var errs []error
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			log.Error("compensation failed",
				slog.String("step", step.Name),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("compensate %s: %w", step.Name, err))
		}
	}
	return errors.Join(errs...)
}
