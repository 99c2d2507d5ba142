package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"hostel-portal/internal/event"
	"hostel-portal/internal/feed"
	"hostel-portal/internal/listview"
	"hostel-portal/internal/model"
	"hostel-portal/internal/session"
	"hostel-portal/internal/ui"
	"hostel-portal/internal/upstream"
	"hostel-portal/internal/wizard"
)

// SessionState is everything the portal keeps in memory for one signed-in
// browser: the cached list views, open wizard drafts, the live
// notification feed and the shell's interface state. It exists from first
// use until the session ends.
type SessionState struct {
	sessionID string

	Students        *listview.Cache[model.StudentRecord]
	StaffComplaints *listview.Cache[model.Complaint]
	MyComplaints    *listview.Cache[model.Complaint]
	Stock           *listview.Cache[model.StockItem]
	Wizards         *wizard.Store
	Sidebar         *ui.Sidebar

	feedOnce sync.Once
	feed     *feed.Feed
}

// Registry owns the SessionState instances, keyed by session ID.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*SessionState

	client      *upstream.Client
	bus         event.Bus
	pollEvery   time.Duration
	previewRoot string
}

func NewRegistry(client *upstream.Client, bus event.Bus, pollEvery time.Duration, previewRoot string) *Registry {
	return &Registry{
		sessions:    map[string]*SessionState{},
		client:      client,
		bus:         bus,
		pollEvery:   pollEvery,
		previewRoot: previewRoot,
	}
}

// ForSession returns the session's state, creating it on first use.
func (r *Registry) ForSession(sessionID string) *SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st, ok := r.sessions[sessionID]; ok {
		return st
	}

	st := &SessionState{
		sessionID:       sessionID,
		Students:        listview.NewCache(func(s model.StudentRecord) string { return s.ID }),
		StaffComplaints: listview.NewCache(func(c model.Complaint) string { return c.ID }),
		MyComplaints:    listview.NewCache(func(c model.Complaint) string { return c.ID }),
		Stock:           listview.NewCache(func(s model.StockItem) string { return s.ID }),
		Wizards:         wizard.NewStore(r.previewRoot),
		Sidebar:         ui.NewSidebar(),
	}
	r.sessions[sessionID] = st
	return st
}

// Feed returns the session's notification feed, starting it on first use.
func (r *Registry) Feed(st *SessionState) *feed.Feed {
	st.feedOnce.Do(func() {
		src := sessionSource{client: r.client, sessionID: st.sessionID}
		st.feed = feed.New(src, src.dial, r.bus, st.sessionID, r.pollEvery)
		st.feed.Start(context.Background())
	})
	return st.feed
}

// Drop tears down one session's state: the feed stops, open drafts release
// their staged files, cached lists are discarded.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	st, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	if !ok {
		return
	}
	if st.feed != nil {
		st.feed.Close()
	}
	st.Wizards.CloseAll()
	slog.Debug("session state dropped", "session", sessionID)
}

// Watch reacts to session expiry signals until the context ends. When the
// upstream rejects a credential, the owning session's state goes with it.
func (r *Registry) Watch(ctx context.Context) {
	events, unsubscribe := r.bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if e.Type == event.TypeSessionExpired && e.SessionID != "" {
				r.Drop(e.SessionID)
			}
		}
	}
}

// sessionIDFrom reads the session ID the guard stored on the request.
// Guarded routes always have one; elsewhere it is empty.
func sessionIDFrom(r *http.Request) string {
	id, _ := session.IDFromContext(r.Context())
	return id
}

// sessionSource binds upstream calls made outside a request, feed polls
// and read receipts, to their session so the credential rides along.
type sessionSource struct {
	client    *upstream.Client
	sessionID string
}

func (s sessionSource) Inbox(ctx context.Context) ([]model.Notification, error) {
	return s.client.Inbox(session.ContextWithID(ctx, s.sessionID))
}

func (s sessionSource) MarkNotificationRead(ctx context.Context, id string) error {
	return s.client.MarkNotificationRead(session.ContextWithID(ctx, s.sessionID), id)
}

func (s sessionSource) MarkAllNotificationsRead(ctx context.Context) error {
	return s.client.MarkAllNotificationsRead(session.ContextWithID(ctx, s.sessionID))
}

func (s sessionSource) dial(ctx context.Context) (feed.Conn, error) {
	return s.client.DialPush(session.ContextWithID(ctx, s.sessionID))
}
