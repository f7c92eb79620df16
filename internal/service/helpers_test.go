package service_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/phrazzld/coursework/internal/config"
	"github.com/phrazzld/coursework/internal/domain"
	"github.com/phrazzld/coursework/internal/events"
	"github.com/phrazzld/coursework/internal/platform/logger"
	"github.com/phrazzld/coursework/internal/platform/sqldb"
	"github.com/phrazzld/coursework/internal/service"
	"github.com/phrazzld/coursework/internal/service/auth"
	"github.com/phrazzld/coursework/internal/store"
	"github.com/phrazzld/coursework/internal/testdb"
)

const testJWTSecret = "service-test-secret-long-enough-for-hs256"

// testEnv is a fully wired service stack over a private database.
type testEnv struct {
	db       *sql.DB
	stores   store.Stores
	svc      *service.Services
	clock    *clock.Mock
	events   *recordingHandler
	registry *prometheus.Registry
	logs     *logger.TestLogBuffer
}

func newEnv(t *testing.T, overrides ...func(*service.Dependencies)) *testEnv {
	t.Helper()

	db, dialect := testdb.New(t)
	log, logs := logger.NewCapture()

	clk := clock.NewMock()
	clk.Set(testdb.Epoch)

	tokens, err := auth.NewTokenService(config.AuthConfig{
		JWTSecret:     testJWTSecret,
		TokenLifetime: time.Hour,
	}, clk)
	require.NoError(t, err)

	stores := sqldb.NewStores(db, log)
	emitter := events.NewBus(log)
	recorder := &recordingHandler{}
	emitter.Subscribe(recorder)
	registry := prometheus.NewRegistry()

	deps := service.Dependencies{
		Stores: stores,
		UnitOfWork: store.NewUnitOfWork(db,
			store.WithTxOptions(dialect.TxOptions()),
			store.WithErrorMapper(sqldb.MapError)),
		Hasher:  auth.NewBcryptHasher(bcrypt.MinCost),
		Tokens:  tokens,
		Clock:   clk,
		Events:  emitter,
		Metrics: service.NewMetrics(registry),
		Logger:  log,
		ReadRetry: store.RetryPolicy{
			MaxRetries:      1,
			InitialInterval: time.Millisecond,
		},
		UnreadCacheTTL: time.Minute,
	}
	for _, o := range overrides {
		o(&deps)
	}

	svc, err := service.New(deps)
	require.NoError(t, err)

	return &testEnv{
		db:       db,
		stores:   stores,
		svc:      svc,
		clock:    clk,
		events:   recorder,
		registry: registry,
		logs:     logs,
	}
}

func studentP(id int64) domain.Student {
	return domain.Student{
		Identity:         domain.Identity{UserID: id, Username: "student", Role: domain.RoleStudent},
		StudentProfileID: id,
	}
}

func instructorP(id int64) domain.Instructor {
	return domain.Instructor{
		Identity:            domain.Identity{UserID: id, Username: "instructor", Role: domain.RoleInstructor},
		InstructorProfileID: id,
	}
}

func adminP(id int64) domain.Admin {
	return domain.Admin{Identity: domain.Identity{UserID: id, Username: "admin", Role: domain.RoleAdmin}}
}

// seedCourse creates instructor instructorID teaching courseID with the
// given students actively enrolled.
func seedCourse(t *testing.T, db *sql.DB, instructorID, courseID int64, students ...int64) {
	t.Helper()
	testdb.InsertInstructor(t, db, instructorID)
	testdb.InsertCourse(t, db, courseID, instructorID, 30)
	for _, s := range students {
		testdb.InsertStudent(t, db, s)
		testdb.Enroll(t, db, s, courseID)
	}
}

func notificationRecipients(t *testing.T, db *sql.DB, courseID int64) []int64 {
	t.Helper()
	rows, err := db.Query(`
		SELECT n.recipient_id
		FROM notifications n
		JOIN announcements a ON a.id = n.announcement_id
		WHERE a.course_id = $1
		ORDER BY n.recipient_id
	`, courseID)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	ids := []int64{}
	for rows.Next() {
		var id int64
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	return ids
}

// recordingHandler captures every emitted event.
type recordingHandler struct {
	mu     sync.Mutex
	events []*events.Event
}

func (h *recordingHandler) HandleEvent(ctx context.Context, e *events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return nil
}

func (h *recordingHandler) types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.events))
	for i, e := range h.events {
		out[i] = e.Type
	}
	return out
}

var errInjected = errors.New("injected failure")

// failingStudents fails every profile insert.
type failingStudents struct {
	store.StudentStore
}

func (f failingStudents) Create(ctx context.Context, profile *domain.StudentProfile) error {
	return errInjected
}

func (f failingStudents) WithTx(tx *sql.Tx) store.StudentStore {
	return failingStudents{f.StudentStore.WithTx(tx)}
}

// failingInstructors fails every profile insert.
type failingInstructors struct {
	store.InstructorStore
}

func (f failingInstructors) Create(ctx context.Context, profile *domain.InstructorProfile) error {
	return errInjected
}

func (f failingInstructors) WithTx(tx *sql.Tx) store.InstructorStore {
	return failingInstructors{f.InstructorStore.WithTx(tx)}
}

// failingNotifications fails every bulk insert.
type failingNotifications struct {
	store.NotificationStore
}

func (f failingNotifications) CreateMany(ctx context.Context, n []*domain.Notification) error {
	return errInjected
}

func (f failingNotifications) WithTx(tx *sql.Tx) store.NotificationStore {
	return failingNotifications{f.NotificationStore.WithTx(tx)}
}

// failingAverages fails every compare-and-set.
type failingAverages struct {
	store.CourseAverageStore
	err error
}

func (f failingAverages) CompareAndSet(ctx context.Context, avg *domain.CourseAverage, expected int64) error {
	return f.err
}

func (f failingAverages) WithTx(tx *sql.Tx) store.CourseAverageStore {
	return failingAverages{f.CourseAverageStore.WithTx(tx), f.err}
}
