package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hostel-portal/internal/audit"
	"hostel-portal/internal/listview"
	"hostel-portal/internal/model"
	"hostel-portal/internal/upstream"
	"hostel-portal/pkg/apierror"
)

type ComplaintsHandler struct {
	client   *upstream.Client
	registry *Registry
	audit    *audit.Recorder
}

func NewComplaintsHandler(client *upstream.Client, registry *Registry, recorder *audit.Recorder) *ComplaintsHandler {
	return &ComplaintsHandler{client: client, registry: registry, audit: recorder}
}

// List serves the staff complaints view with its four independent
// filters. "all" (or absence) disables a dropdown filter.
func (h *ComplaintsHandler) List(w http.ResponseWriter, r *http.Request) {
	st := h.stateFor(r)

	force := r.URL.Query().Get("refresh") == "true"
	if err := st.StaffComplaints.Load(r.Context(), h.client.ListStaffComplaints, force); err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	items := listview.Apply(st.StaffComplaints.Items(),
		listview.Search(q.Get("q"), func(c model.Complaint) []string {
			return []string{c.Title, c.Description, c.StudentRoll}
		}),
		listview.Exact(q.Get("category"), func(c model.Complaint) string { return c.Category }),
		listview.Exact(q.Get("severity"), func(c model.Complaint) string { return c.Severity }),
		listview.Exact(q.Get("status"), func(c model.Complaint) string { return c.Status }),
	)

	page := listview.Paginate(items, queryInt(r, "page", 1), perPage)
	writeSuccess(w, http.StatusOK, page.Items, pageMeta(page))
}

// Filters exposes the closed category, severity and status sets so the
// dropdowns never drift from what the views filter on.
func (h *ComplaintsHandler) Filters(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{
		"categories": model.ComplaintCategories,
		"severities": model.ComplaintSeverities,
		"statuses":   model.ComplaintStatuses,
	}, nil)
}

// Get re-fetches the complaint and folds the canonical copy back into the
// cached view, replacing the possibly stale row in place.
func (h *ComplaintsHandler) Get(w http.ResponseWriter, r *http.Request) {
	st := h.stateFor(r)

	complaint, err := h.client.GetStaffComplaint(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	st.StaffComplaints.Replace(complaint)
	writeSuccess(w, http.StatusOK, complaint, nil)
}

// Create registers a complaint on behalf of a student. Title and
// description are required; documents ride along as multipart files.
func (h *ComplaintsHandler) Create(w http.ResponseWriter, r *http.Request) {
	st := h.stateFor(r)

	form, err := complaintForm(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	complaint, err := h.client.CreateStaffComplaint(r.Context(), form)
	if err != nil {
		h.audit.Record(r.Context(), "complaint.create", "", audit.OutcomeFailed, nil)
		writeError(w, err)
		return
	}

	st.StaffComplaints.Prepend(complaint)
	h.audit.Record(r.Context(), "complaint.create", complaint.ID, audit.OutcomeOK,
		map[string]any{"category": complaint.Category, "severity": complaint.Severity})
	writeSuccess(w, http.StatusCreated, complaint, nil)
}

// Resolve flips the row to resolved in the cached view right away and puts
// the previous state back if the remote call fails.
func (h *ComplaintsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	st := h.stateFor(r)
	id := chi.URLParam(r, "id")

	err := st.StaffComplaints.Patch(r.Context(), id,
		func(c *model.Complaint) { c.Status = model.StatusResolved },
		func(ctx context.Context) error { return h.client.ResolveStaffComplaint(ctx, id) })
	if err != nil {
		h.audit.Record(r.Context(), "complaint.resolve", id, audit.OutcomeFailed, nil)
		writeError(w, err)
		return
	}

	h.audit.Record(r.Context(), "complaint.resolve", id, audit.OutcomeOK, nil)
	writeSuccess(w, http.StatusOK, map[string]string{"status": model.StatusResolved}, nil)
}

// MyList serves the student's own complaints.
func (h *ComplaintsHandler) MyList(w http.ResponseWriter, r *http.Request) {
	st := h.stateFor(r)

	force := r.URL.Query().Get("refresh") == "true"
	if err := st.MyComplaints.Load(r.Context(), h.client.ListMyComplaints, force); err != nil {
		writeError(w, err)
		return
	}

	items := listview.Apply(st.MyComplaints.Items(),
		listview.Exact(r.URL.Query().Get("status"), func(c model.Complaint) string { return c.Status }))

	page := listview.Paginate(items, queryInt(r, "page", 1), perPage)
	writeSuccess(w, http.StatusOK, page.Items, pageMeta(page))
}

// MyCreate files a complaint as the signed-in student.
func (h *ComplaintsHandler) MyCreate(w http.ResponseWriter, r *http.Request) {
	st := h.stateFor(r)

	form, err := complaintForm(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	complaint, err := h.client.CreateMyComplaint(r.Context(), form)
	if err != nil {
		writeError(w, err)
		return
	}

	st.MyComplaints.Prepend(complaint)
	writeSuccess(w, http.StatusCreated, complaint, nil)
}

func (h *ComplaintsHandler) stateFor(r *http.Request) *SessionState {
	return h.registry.ForSession(sessionIDFrom(r))
}

// complaintForm validates and assembles the outgoing complaint payload
// from a multipart request.
func complaintForm(w http.ResponseWriter, r *http.Request) (*upstream.Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, apierror.New("BAD_REQUEST", "invalid multipart body", "", http.StatusBadRequest)
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" || description == "" {
		return nil, apierror.New("VALIDATION_FAILED", "title and description are required", "title, description", 422)
	}

	form := upstream.NewForm()
	form.AddField("title", title)
	form.AddField("description", description)
	for _, field := range []string{"category", "severity", "studentRoll"} {
		if v := strings.TrimSpace(r.FormValue(field)); v != "" {
			form.AddField(field, v)
		}
	}

	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["documents"] {
			f, err := header.Open()
			if err != nil {
				return nil, apierror.New("BAD_REQUEST", "unreadable file part", header.Filename, http.StatusBadRequest)
			}
			form.AddFile("documents", header.Filename, f)
		}
	}

	return form, nil
}
