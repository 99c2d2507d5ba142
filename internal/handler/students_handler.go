package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hostel-portal/internal/audit"
	"hostel-portal/internal/listview"
	"hostel-portal/internal/model"
	"hostel-portal/internal/upstream"
)

const perPage = 8

type StudentsHandler struct {
	client   *upstream.Client
	registry *Registry
	audit    *audit.Recorder
}

func NewStudentsHandler(client *upstream.Client, registry *Registry, recorder *audit.Recorder) *StudentsHandler {
	return &StudentsHandler{client: client, registry: registry, audit: recorder}
}

// List serves the student roster view: remote collection cached per
// session, filtered by the search box, windowed to eight rows.
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	st := h.stateFor(r)

	force := r.URL.Query().Get("refresh") == "true"
	if err := st.Students.Load(r.Context(), h.client.ListStudents, force); err != nil {
		writeError(w, err)
		return
	}

	items := listview.Apply(st.Students.Items(),
		listview.Search(r.URL.Query().Get("q"), func(s model.StudentRecord) []string {
			return []string{s.Name, s.Email, s.RollNo, s.Department, s.Hostel, s.RoomNumber}
		}))

	page := listview.Paginate(items, queryInt(r, "page", 1), perPage)
	writeSuccess(w, http.StatusOK, page.Items, pageMeta(page))
}

// Get re-fetches one record so the detail view never trusts a stale row.
func (h *StudentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	record, err := h.client.GetStudent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, record, nil)
}

// Delete removes the row from the cached view immediately and restores the
// exact previous ordering if the remote delete fails.
func (h *StudentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	st := h.stateFor(r)
	id := chi.URLParam(r, "id")

	err := st.Students.Delete(r.Context(), id, func(ctx context.Context) error {
		return h.client.DeleteStudent(ctx, id)
	})
	if err != nil {
		h.audit.Record(r.Context(), "student.delete", id, audit.OutcomeFailed, nil)
		writeError(w, err)
		return
	}

	h.audit.Record(r.Context(), "student.delete", id, audit.OutcomeOK, nil)
	writeSuccess(w, http.StatusOK, map[string]string{"deleted": id}, nil)
}

func (h *StudentsHandler) stateFor(r *http.Request) *SessionState {
	return h.registry.ForSession(sessionIDFrom(r))
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
