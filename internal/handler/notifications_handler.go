package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"hostel-portal/internal/websocket"
)

type NotificationsHandler struct {
	registry *Registry
	hub      *websocket.Hub
}

func NewNotificationsHandler(registry *Registry, hub *websocket.Hub) *NotificationsHandler {
	return &NotificationsHandler{registry: registry, hub: hub}
}

// List returns the session's merged feed, newest first, plus the unread
// count for the bell badge. First access spins the feed up.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	st := h.registry.ForSession(sessionIDFrom(r))
	f := h.registry.Feed(st)

	writeSuccess(w, http.StatusOK, map[string]any{
		"items":  f.Items(),
		"unread": f.Unread(),
	}, nil)
}

// MarkRead flips one notification. The response reflects the local state;
// the upstream receipt happens in the background.
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	st := h.registry.ForSession(sessionIDFrom(r))
	f := h.registry.Feed(st)

	f.MarkRead(chi.URLParam(r, "id"))
	writeSuccess(w, http.StatusOK, map[string]any{"unread": f.Unread()}, nil)
}

func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	st := h.registry.ForSession(sessionIDFrom(r))
	f := h.registry.Feed(st)

	f.MarkAllRead()
	writeSuccess(w, http.StatusOK, map[string]any{"unread": 0}, nil)
}

// Stream upgrades the request so the browser hears about new arrivals and
// session expiry without polling the portal. The feed keeps running
// whether or not any browser socket is attached.
func (h *NotificationsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFrom(r)
	st := h.registry.ForSession(sessionID)
	h.registry.Feed(st)

	h.hub.Serve(w, r, sessionID)
}
