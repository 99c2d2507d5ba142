package handler

import (
	"net/http"
	"time"

	"hostel-portal/internal/audit"
	"hostel-portal/internal/upstream"
	"hostel-portal/pkg/apierror"
)

// PagesHandler serves the presentational routes. Most of them proxy the
// upstream payload through untouched; the portal adds no shape of its own
// there.
type PagesHandler struct {
	client *upstream.Client
	trail  *audit.Repository
}

func NewPagesHandler(client *upstream.Client, trail *audit.Repository) *PagesHandler {
	return &PagesHandler{client: client, trail: trail}
}

func (h *PagesHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	payload, err := h.client.Dashboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, payload, nil)
}

func (h *PagesHandler) Meals(w http.ResponseWriter, r *http.Request) {
	payload, err := h.client.Meals(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, payload, nil)
}

func (h *PagesHandler) Notices(w http.ResponseWriter, r *http.Request) {
	payload, err := h.client.Notices(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, payload, nil)
}

func (h *PagesHandler) Fees(w http.ResponseWriter, r *http.Request) {
	payload, err := h.client.Fees(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, payload, nil)
}

// Analytics summarizes the local audit trail for the staff activity page.
// Window defaults to the last 30 days.
func (h *PagesHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	if h.trail == nil {
		writeError(w, apierror.New("NOT_CONFIGURED", "analytics requires the audit database", "", http.StatusServiceUnavailable))
		return
	}

	days := queryInt(r, "days", 30)
	if days < 1 {
		days = 1
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	summary, err := h.trail.Summarize(r.Context(), since)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, summary, nil)
}

// Activity lists raw audit entries with the trail's filters.
func (h *PagesHandler) Activity(w http.ResponseWriter, r *http.Request) {
	if h.trail == nil {
		writeError(w, apierror.New("NOT_CONFIGURED", "activity requires the audit database", "", http.StatusServiceUnavailable))
		return
	}

	q := r.URL.Query()
	entries, meta, err := h.trail.List(r.Context(), audit.Query{
		Action: q.Get("action"),
		Actor:  q.Get("actor"),
		From:   q.Get("from"),
		To:     q.Get("to"),
		Page:   queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", 50),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, entries, &meta)
}
