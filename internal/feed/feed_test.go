package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-portal/internal/event"
	"hostel-portal/internal/model"
)

type fakeSource struct {
	mu        sync.Mutex
	inbox     []model.Notification
	inboxErrs int
	polls     int
	read      []string
	readAll   int
}

func (s *fakeSource) Inbox(context.Context) ([]model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls++
	if s.inboxErrs > 0 {
		s.inboxErrs--
		return nil, errors.New("inbox unavailable")
	}
	out := make([]model.Notification, len(s.inbox))
	copy(out, s.inbox)
	return out, nil
}

func (s *fakeSource) MarkNotificationRead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.read = append(s.read, id)
	return nil
}

func (s *fakeSource) MarkAllNotificationsRead(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readAll++
	return nil
}

func (s *fakeSource) setInbox(items ...model.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbox = items
}

func (s *fakeSource) pollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

type fakeConn struct {
	incoming  chan model.Notification
	closeOnce sync.Once
	done      chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		incoming: make(chan model.Notification, 10),
		done:     make(chan struct{}),
	}
}

func (c *fakeConn) ReadNotification() (model.Notification, error) {
	select {
	case n := <-c.incoming:
		return n, nil
	case <-c.done:
		return model.Notification{}, errors.New("connection closed")
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func note(id string, title string) model.Notification {
	return model.Notification{ID: id, Title: title}
}

func noteAt(id string, title string, at time.Time) model.Notification {
	return model.Notification{ID: id, Title: title, CreatedAt: at}
}

func startFeed(t *testing.T, source *fakeSource, conn *fakeConn) *Feed {
	t.Helper()

	dial := func(context.Context) (Conn, error) { return conn, nil }
	f := New(source, dial, event.NewBus(), "sess-1", 20*time.Millisecond)
	f.Start(context.Background())
	t.Cleanup(f.Close)
	return f
}

func TestFeed_DeduplicatesAcrossPushAndPoll(t *testing.T) {
	source := &fakeSource{}
	conn := newFakeConn()
	f := startFeed(t, source, conn)

	// The same notification arrives over the socket and in the next poll.
	conn.incoming <- note("n1", "room inspection")
	source.setInbox(note("n2", "mess menu"), note("n1", "room inspection"))

	require.Eventually(t, func() bool {
		return len(f.Items()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	items := f.Items()
	assert.Equal(t, "n2", items[0].ID)
	assert.Equal(t, "n1", items[1].ID)
}

func TestFeed_PollRunsWhileSocketIsHealthy(t *testing.T) {
	source := &fakeSource{}
	conn := newFakeConn()
	f := startFeed(t, source, conn)

	// The socket stays silent; the poll alone must still pick this up.
	source.setInbox(note("n1", "fee reminder"))

	require.Eventually(t, func() bool {
		return len(f.Items()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, conn.closed())
	assert.GreaterOrEqual(t, source.pollCount(), 2)
}

func TestFeed_NewArrivalsPrependNewestFirst(t *testing.T) {
	source := &fakeSource{}
	conn := newFakeConn()
	f := startFeed(t, source, conn)

	conn.incoming <- note("n1", "first")
	require.Eventually(t, func() bool { return len(f.Items()) == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.incoming <- note("n2", "second")
	require.Eventually(t, func() bool { return len(f.Items()) == 2 }, 2*time.Second, 10*time.Millisecond)

	items := f.Items()
	assert.Equal(t, "n2", items[0].ID)
	assert.Equal(t, "n1", items[1].ID)
}

func TestFeed_PollBacklogStaysBelowNewerPushedItems(t *testing.T) {
	now := time.Now()
	source := &fakeSource{inboxErrs: 1}
	conn := newFakeConn()
	f := startFeed(t, source, conn)

	// The initial inbox load failed, so the socket delivers the newest
	// notification before any backlog has been fetched.
	conn.incoming <- noteAt("n-new", "curfew change", now)
	require.Eventually(t, func() bool { return len(f.Items()) == 1 }, 2*time.Second, 10*time.Millisecond)

	// The next poll catches up and includes the older backlog.
	source.setInbox(
		noteAt("n-new", "curfew change", now),
		noteAt("n-old", "laundry schedule", now.Add(-time.Hour)),
	)

	require.Eventually(t, func() bool { return len(f.Items()) == 2 }, 2*time.Second, 10*time.Millisecond)

	items := f.Items()
	require.Equal(t, "n-new", items[0].ID)
	require.Equal(t, "n-old", items[1].ID)
}

func TestFeed_PublishesArrivalEvents(t *testing.T) {
	source := &fakeSource{}
	conn := newFakeConn()
	bus := event.NewBus()
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	dial := func(context.Context) (Conn, error) { return conn, nil }
	f := New(source, dial, bus, "sess-1", 20*time.Millisecond)
	f.Start(context.Background())
	defer f.Close()

	conn.incoming <- note("n1", "water outage")

	select {
	case e := <-events:
		assert.Equal(t, event.TypeNotificationReceived, e.Type)
		assert.Equal(t, "sess-1", e.SessionID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
	}
}

func TestFeed_MarkReadIsLocalFirst(t *testing.T) {
	source := &fakeSource{}
	source.setInbox(note("n1", "notice"), note("n2", "notice"))
	conn := newFakeConn()
	f := startFeed(t, source, conn)

	require.Eventually(t, func() bool { return len(f.Items()) == 2 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, 2, f.Unread())

	f.MarkRead("n1")
	assert.Equal(t, 1, f.Unread())

	require.Eventually(t, func() bool {
		source.mu.Lock()
		defer source.mu.Unlock()
		return len(source.read) == 1 && source.read[0] == "n1"
	}, 2*time.Second, 10*time.Millisecond)

	f.MarkAllRead()
	assert.Equal(t, 0, f.Unread())
	require.Eventually(t, func() bool {
		source.mu.Lock()
		defer source.mu.Unlock()
		return source.readAll == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFeed_CloseStopsBothInputs(t *testing.T) {
	source := &fakeSource{}
	conn := newFakeConn()

	dial := func(context.Context) (Conn, error) { return conn, nil }
	bus := event.NewBus()
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	f := New(source, dial, bus, "sess-1", 20*time.Millisecond)
	f.Start(context.Background())

	require.Eventually(t, func() bool { return source.pollCount() >= 1 }, 2*time.Second, 10*time.Millisecond)

	f.Close()
	assert.True(t, conn.closed())

	polls := source.pollCount()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, polls, source.pollCount())

	stopped := false
	for !stopped {
		select {
		case e := <-events:
			if e.Type == event.TypeFeedStopped {
				stopped = true
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no feed stop event")
		}
	}

	// Idempotent.
	f.Close()
}
