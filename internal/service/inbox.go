package service

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/phrazzld/coursework/internal/domain"
	"github.com/phrazzld/coursework/internal/events"
	"github.com/phrazzld/coursework/internal/platform/logger"
	"github.com/phrazzld/coursework/internal/service/auth"
	"github.com/phrazzld/coursework/internal/store"
)

// Feed page sizes.
const (
	DefaultFeedLimit = 50
	MaxFeedLimit     = 200
)

const unreadCacheCapacity = 10000

// Inbox serves a student's notifications. Only the recipient may read or
// change a notification.
type Inbox struct {
	stores  store.Stores
	uow     *store.UnitOfWork
	unread  *ttlcache.Cache[int64, int]
	retry   store.RetryPolicy

	// gen counts invalidations per recipient. A count read from the
	// database is cached only if no invalidation happened during the read.
	mu  sync.Mutex
	gen map[int64]uint64

	metrics *Metrics
	logger  *slog.Logger
}

var _ events.EventHandler = (*Inbox)(nil)

// NewInbox creates an Inbox. Unread counts are cached for
// deps.UnreadCacheTTL and dropped whenever a workflow changes the inbox of
// their recipient.
func NewInbox(deps Dependencies) *Inbox {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	retry := deps.ReadRetry
	if retry == (store.RetryPolicy{}) {
		retry = store.DefaultRetryPolicy()
	}
	ttl := deps.UnreadCacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Inbox{
		stores: deps.Stores,
		uow:    deps.UnitOfWork,
		unread: ttlcache.New(
			ttlcache.WithCapacity[int64, int](unreadCacheCapacity),
			ttlcache.WithTTL[int64, int](ttl),
		),
		retry:   retry,
		gen:     make(map[int64]uint64),
		metrics: deps.Metrics,
		logger:  log.With("component", "inbox"),
	}
}

// StartEviction removes expired counts in the background until ctx is done.
func (i *Inbox) StartEviction(ctx context.Context) {
	go i.unread.Start()

	<-ctx.Done()

	i.unread.Stop()
}

// UnreadCount returns the number of unread notifications of the acting
// student.
func (i *Inbox) UnreadCount(ctx context.Context, p domain.Principal) (int, error) {
	student, err := auth.RequireStudent(p)
	if err != nil {
		return 0, i.fail(ctx, "unread_count", err)
	}
	id := student.StudentProfileID

	if item := i.unread.Get(id); item != nil {
		i.metrics.cacheLookup(true)
		return item.Value(), nil
	}
	i.metrics.cacheLookup(false)

	i.mu.Lock()
	gen := i.gen[id]
	i.mu.Unlock()

	count, err := store.RetryRead(ctx, i.retry, func(ctx context.Context) (int, error) {
		return i.stores.Notifications.CountUnread(ctx, id)
	})
	if err != nil {
		return 0, i.fail(ctx, "unread_count", classify(err, "notification", id))
	}

	i.mu.Lock()
	if i.gen[id] == gen {
		i.unread.Set(id, count, ttlcache.DefaultTTL)
	}
	i.mu.Unlock()
	return count, nil
}

// Feed returns up to limit notifications of the acting student, newest
// first. A limit outside (0, MaxFeedLimit] uses DefaultFeedLimit.
func (i *Inbox) Feed(ctx context.Context, p domain.Principal, limit int) ([]domain.FeedItem, error) {
	student, err := auth.RequireStudent(p)
	if err != nil {
		return nil, i.fail(ctx, "feed", err)
	}
	if limit <= 0 || limit > MaxFeedLimit {
		limit = DefaultFeedLimit
	}

	items, err := store.RetryRead(ctx, i.retry, func(ctx context.Context) ([]domain.FeedItem, error) {
		return i.stores.Notifications.ListFeed(ctx, student.StudentProfileID, limit)
	})
	if err != nil {
		return nil, i.fail(ctx, "feed", classify(err, "notification", student.StudentProfileID))
	}
	return items, nil
}

// MarkRead marks a notification of the acting student as read.
func (i *Inbox) MarkRead(ctx context.Context, p domain.Principal, notificationID int64) error {
	return i.mutate(ctx, "mark_notification_read", p, notificationID,
		func(ctx context.Context, s store.Stores) error {
			return s.Notifications.MarkRead(ctx, notificationID)
		})
}

// DeleteNotification removes a notification of the acting student. Other
// recipients of the same announcement keep theirs.
func (i *Inbox) DeleteNotification(ctx context.Context, p domain.Principal, notificationID int64) error {
	return i.mutate(ctx, "delete_notification", p, notificationID,
		func(ctx context.Context, s store.Stores) error {
			return s.Notifications.Delete(ctx, notificationID)
		})
}

func (i *Inbox) mutate(
	ctx context.Context,
	op string,
	p domain.Principal,
	notificationID int64,
	write func(ctx context.Context, s store.Stores) error,
) error {
	student, err := auth.RequireStudent(p)
	if err != nil {
		return i.fail(ctx, op, err)
	}

	n, err := store.RetryRead(ctx, i.retry, func(ctx context.Context) (*domain.Notification, error) {
		return i.stores.Notifications.GetByID(ctx, notificationID)
	})
	if err != nil {
		return i.fail(ctx, op, classify(err, "notification", notificationID))
	}
	if err := auth.CheckOwned(n, student.StudentProfileID); err != nil {
		return i.fail(ctx, op, err)
	}

	err = i.uow.Run(ctx, op, store.Step{
		Name: op,
		Do: func(ctx context.Context, tx *sql.Tx) error {
			return classify(write(ctx, i.stores.WithTx(tx)), "notification", notificationID)
		},
	})
	if err != nil {
		return i.fail(ctx, op, err)
	}

	i.invalidate(n.RecipientID)
	return nil
}

// HandleEvent implements events.EventHandler by dropping the cached counts
// of the recipients of a committed workflow.
func (i *Inbox) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeNotificationsCreated {
		return nil
	}
	var payload events.RecipientsPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return err
	}
	for _, id := range payload.RecipientIDs {
		i.invalidate(id)
	}
	return nil
}

func (i *Inbox) invalidate(recipientID int64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.gen[recipientID]++
	i.unread.Delete(recipientID)
}

func (i *Inbox) fail(ctx context.Context, op string, err error) error {
	we := newWorkflowError(op, err)
	logFailure(logger.FromContextOrDefault(ctx, i.logger).With(slog.String("saga", op)), we)
	return we
}
