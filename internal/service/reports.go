package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/phrazzld/coursework/internal/domain"
	"github.com/phrazzld/coursework/internal/platform/logger"
	"github.com/phrazzld/coursework/internal/service/auth"
	"github.com/phrazzld/coursework/internal/store"
)

// DeadlineWindow is how far ahead the dashboard lists due dates.
const DeadlineWindow = 7 * 24 * time.Hour

// Dashboard summarizes a student's current standing.
type Dashboard struct {
	EnrolledCourses int               `json:"enrolled_courses"`
	AveragePercent  float64           `json:"average_percent"`
	Upcoming        []domain.Deadline `json:"upcoming"`
}

// Reports answers read-only questions about a student's coursework, served
// from the persisted course averages.
type Reports struct {
	stores store.Stores
	clock  clock.Clock
	retry  store.RetryPolicy
	logger *slog.Logger
}

// NewReports creates Reports.
func NewReports(deps Dependencies) *Reports {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.ReadRetry == (store.RetryPolicy{}) {
		deps.ReadRetry = store.DefaultRetryPolicy()
	}
	return &Reports{
		stores: deps.Stores,
		clock:  deps.Clock,
		retry:  deps.ReadRetry,
		logger: deps.Logger.With("component", "reports"),
	}
}

// Transcript lists every active course of the acting student with its
// average and letter grade, ordered by course code.
func (r *Reports) Transcript(ctx context.Context, p domain.Principal) ([]domain.TranscriptEntry, error) {
	student, err := auth.RequireStudent(p)
	if err != nil {
		return nil, r.fail(ctx, "transcript", err)
	}

	entries, err := r.transcript(ctx, student.StudentProfileID)
	if err != nil {
		return nil, r.fail(ctx, "transcript", err)
	}
	return entries, nil
}

// StudentDashboard returns the enrolled course count, the mean of the graded
// course averages and the deadlines of the next DeadlineWindow.
func (r *Reports) StudentDashboard(ctx context.Context, p domain.Principal) (*Dashboard, error) {
	student, err := auth.RequireStudent(p)
	if err != nil {
		return nil, r.fail(ctx, "dashboard", err)
	}
	id := student.StudentProfileID

	entries, err := r.transcript(ctx, id)
	if err != nil {
		return nil, r.fail(ctx, "dashboard", err)
	}

	now := r.clock.Now().UTC()
	upcoming, err := store.RetryRead(ctx, r.retry, func(ctx context.Context) ([]domain.Deadline, error) {
		return r.stores.Assignments.ListDeadlines(ctx, id, now, now.Add(DeadlineWindow))
	})
	if err != nil {
		return nil, r.fail(ctx, "dashboard", classify(err, "assignment", id))
	}

	d := &Dashboard{EnrolledCourses: len(entries), Upcoming: upcoming}
	var sum float64
	var graded int
	for _, e := range entries {
		if e.GradedCount > 0 {
			sum += e.AveragePercent
			graded++
		}
	}
	if graded > 0 {
		d.AveragePercent = sum / float64(graded)
	}
	return d, nil
}

func (r *Reports) transcript(ctx context.Context, studentID int64) ([]domain.TranscriptEntry, error) {
	entries, err := store.RetryRead(ctx, r.retry, func(ctx context.Context) ([]domain.TranscriptEntry, error) {
		return r.stores.Averages.ListTranscript(ctx, studentID)
	})
	if err != nil {
		return nil, classify(err, "course average", studentID)
	}
	for i := range entries {
		if entries[i].GradedCount > 0 {
			entries[i].LetterGrade = domain.LetterGrade(entries[i].AveragePercent)
		}
	}
	return entries, nil
}

func (r *Reports) fail(ctx context.Context, op string, err error) error {
	we := newWorkflowError(op, err)
	logFailure(logger.FromContextOrDefault(ctx, r.logger).With(slog.String("saga", op)), we)
	return we
}
