package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hostel-portal/internal/audit"
	"hostel-portal/internal/upstream"
	"hostel-portal/internal/wizard"
	"hostel-portal/pkg/apierror"
)

// editCloseDelay is how long a successfully saved edit stays readable
// before the draft closes itself.
const editCloseDelay = 500 * time.Millisecond

const maxUploadBytes = 16 << 20

type WizardHandler struct {
	client   *upstream.Client
	registry *Registry
	audit    *audit.Recorder
}

func NewWizardHandler(client *upstream.Client, registry *Registry, recorder *audit.Recorder) *WizardHandler {
	return &WizardHandler{client: client, registry: registry, audit: recorder}
}

// StartCreate opens a blank draft at the first step.
func (h *WizardHandler) StartCreate(w http.ResponseWriter, r *http.Request) {
	st := h.registry.ForSession(sessionIDFrom(r))
	draft := st.Wizards.StartCreate()
	writeSuccess(w, http.StatusCreated, draft.State(), nil)
}

// StartEdit fetches the record fresh and opens a prefilled draft.
func (h *WizardHandler) StartEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.client.GetStudent(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	st := h.registry.ForSession(sessionIDFrom(r))
	draft := st.Wizards.StartEdit(id, record)
	writeSuccess(w, http.StatusCreated, draft.State(), nil)
}

func (h *WizardHandler) State(w http.ResponseWriter, r *http.Request) {
	draft, err := h.draft(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, draft.State(), nil)
}

// SetField applies one named update, including dotted address paths.
func (h *WizardHandler) SetField(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	draft, err := h.draft(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	if err := draft.SetField(payload.Field, payload.Value); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, draft.State(), nil)
}

func (h *WizardHandler) SetSameAddress(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	draft, err := h.draft(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	draft.SetSameAddress(payload.Enabled)
	writeSuccess(w, http.StatusOK, draft.State(), nil)
}

func (h *WizardHandler) Next(w http.ResponseWriter, r *http.Request) {
	draft, err := h.draft(r)
	if err != nil {
		writeError(w, err)
		return
	}
	draft.Next()
	writeSuccess(w, http.StatusOK, draft.State(), nil)
}

func (h *WizardHandler) Back(w http.ResponseWriter, r *http.Request) {
	draft, err := h.draft(r)
	if err != nil {
		writeError(w, err)
		return
	}
	draft.Back()
	writeSuccess(w, http.StatusOK, draft.State(), nil)
}

// Upload stages a document into one of the draft's file slots.
func (h *WizardHandler) Upload(w http.ResponseWriter, r *http.Request) {
	draft, err := h.draft(r)
	if err != nil {
		writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid multipart body", "", http.StatusBadRequest))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "missing file part", "file", http.StatusBadRequest))
		return
	}
	defer file.Close()

	att, err := draft.AttachFile(chi.URLParam(r, "field"), header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, att, nil)
}

func (h *WizardHandler) RemoveFile(w http.ResponseWriter, r *http.Request) {
	draft, err := h.draft(r)
	if err != nil {
		writeError(w, err)
		return
	}
	draft.RemoveFile(chi.URLParam(r, "field"))
	writeSuccess(w, http.StatusOK, draft.State(), nil)
}

// Submit saves the draft. A successful edit leaves the draft around for a
// beat, then closes it on its own; a create stays open so the caller can
// read the saved record and close explicitly.
func (h *WizardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	st := h.registry.ForSession(sessionIDFrom(r))
	draft, err := st.Wizards.Get(chi.URLParam(r, "draftID"))
	if err != nil {
		writeError(w, err)
		return
	}

	saved, err := draft.Submit(r.Context(), h.client)
	if err != nil {
		h.audit.Record(r.Context(), "student."+string(draft.Mode()), saved.ID, audit.OutcomeFailed,
			map[string]any{"message": wizard.FailureMessage(err)})

		var apiErr *apierror.APIError
		if !errors.As(err, &apiErr) {
			err = apierror.New("SAVE_FAILED", wizard.FailureMessage(err), "", http.StatusBadGateway)
		}
		writeError(w, err)
		return
	}

	// The roster view should show the result without a refetch.
	if draft.Mode() == wizard.ModeEdit {
		st.Students.Replace(saved)
		st.Wizards.ScheduleClose(draft.ID(), editCloseDelay)
	} else {
		st.Students.Prepend(saved)
	}

	h.audit.Record(r.Context(), "student."+string(draft.Mode()), saved.ID, audit.OutcomeOK,
		map[string]any{"rollNo": saved.RollNo})
	writeSuccess(w, http.StatusOK, saved, nil)
}

func (h *WizardHandler) Close(w http.ResponseWriter, r *http.Request) {
	st := h.registry.ForSession(sessionIDFrom(r))
	st.Wizards.Close(chi.URLParam(r, "draftID"))
	writeSuccess(w, http.StatusOK, map[string]string{"status": "closed"}, nil)
}

func (h *WizardHandler) draft(r *http.Request) (*wizard.Draft, error) {
	st := h.registry.ForSession(sessionIDFrom(r))
	return st.Wizards.Get(chi.URLParam(r, "draftID"))
}
