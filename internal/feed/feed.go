// Package feed maintains a per-session notification feed. It merges two
// independent inputs, a push connection to the upstream notification
// socket and a fixed-interval poll of the inbox, into one deduplicated
// newest-first list. The poll runs whether or not the socket is healthy.
package feed

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"hostel-portal/internal/event"
	"hostel-portal/internal/model"
)

// Source is the inbox slice of the upstream client.
type Source interface {
	Inbox(ctx context.Context) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
}

// Conn is one live push connection.
type Conn interface {
	ReadNotification() (model.Notification, error)
	Close() error
}

// DialFunc opens a push connection for the feed's session.
type DialFunc func(ctx context.Context) (Conn, error)

const redialDelay = 5 * time.Second

type Feed struct {
	source    Source
	dial      DialFunc
	bus       event.Bus
	sessionID string
	pollEvery time.Duration

	mu     sync.Mutex
	items  []model.Notification
	seen   map[string]struct{}
	closed bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(source Source, dial DialFunc, bus event.Bus, sessionID string, pollEvery time.Duration) *Feed {
	return &Feed{
		source:    source,
		dial:      dial,
		bus:       bus,
		sessionID: sessionID,
		pollEvery: pollEvery,
		seen:      map[string]struct{}{},
	}
}

// Start loads the inbox once, then runs the push reader and the poll loop
// until Close. The initial load failing is not fatal, the poll will catch
// up.
func (f *Feed) Start(ctx context.Context) {
	ctx, f.cancel = context.WithCancel(ctx)

	if items, err := f.source.Inbox(ctx); err == nil {
		f.merge(items)
	} else {
		slog.Warn("initial inbox load failed", "session", f.sessionID, "error", err)
	}

	f.wg.Add(2)
	go f.pollLoop(ctx)
	go f.pushLoop(ctx)
}

func (f *Feed) pollLoop(ctx context.Context) {
	defer f.wg.Done()

	ticker := time.NewTicker(f.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			items, err := f.source.Inbox(ctx)
			if err != nil {
				slog.Debug("inbox poll failed", "session", f.sessionID, "error", err)
				continue
			}
			f.merge(items)
		}
	}
}

func (f *Feed) pushLoop(ctx context.Context) {
	defer f.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := f.dial(ctx)
		if err != nil {
			slog.Debug("push dial failed", "session", f.sessionID, "error", err)
			if !sleepCtx(ctx, redialDelay) {
				return
			}
			continue
		}

		f.readConn(ctx, conn)

		if !sleepCtx(ctx, redialDelay) {
			return
		}
	}
}

func (f *Feed) readConn(ctx context.Context, conn Conn) {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		n, err := conn.ReadNotification()
		if err != nil {
			conn.Close()
			return
		}
		f.merge([]model.Notification{n})
	}
}

// merge folds incoming notifications into the feed. Already known IDs are
// skipped, so a notification arriving over both the socket and the poll
// shows up exactly once. The feed is kept newest first by creation time,
// so backlog caught up by a poll never lands above a newer pushed item.
func (f *Feed) merge(incoming []model.Notification) {
	f.mu.Lock()

	var fresh []model.Notification
	for _, n := range incoming {
		if n.ID == "" {
			continue
		}
		if _, ok := f.seen[n.ID]; ok {
			continue
		}
		f.seen[n.ID] = struct{}{}
		fresh = append(fresh, n)
	}
	if len(fresh) > 0 {
		f.items = append(fresh, f.items...)
		sort.SliceStable(f.items, func(i, j int) bool {
			return f.items[i].CreatedAt.After(f.items[j].CreatedAt)
		})
	}
	f.mu.Unlock()

	for _, n := range fresh {
		f.bus.Publish(event.Event{
			Type:      event.TypeNotificationReceived,
			SessionID: f.sessionID,
			Payload:   n,
		})
	}
}

// Items returns a copy of the feed, newest first.
func (f *Feed) Items() []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]model.Notification, len(f.items))
	copy(out, f.items)
	return out
}

// Unread counts the notifications not yet marked read.
func (f *Feed) Unread() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, item := range f.items {
		if !item.Read {
			n++
		}
	}
	return n
}

// MarkRead flips a notification locally right away and reports the change
// upstream without waiting on it.
func (f *Feed) MarkRead(id string) {
	f.mu.Lock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Read = true
			break
		}
	}
	f.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := f.source.MarkNotificationRead(ctx, id); err != nil {
			slog.Debug("mark read failed", "session", f.sessionID, "id", id, "error", err)
		}
	}()
}

// MarkAllRead flips every notification locally, then reports upstream.
func (f *Feed) MarkAllRead() {
	f.mu.Lock()
	for i := range f.items {
		f.items[i].Read = true
	}
	f.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := f.source.MarkAllNotificationsRead(ctx); err != nil {
			slog.Debug("mark all read failed", "session", f.sessionID, "error", err)
		}
	}()
}

// Close stops both inputs. Safe to call more than once.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.mu.Unlock()

	if f.cancel != nil {
		f.cancel()
	}
	f.wg.Wait()

	f.bus.Publish(event.Event{
		Type:      event.TypeFeedStopped,
		SessionID: f.sessionID,
	})
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
