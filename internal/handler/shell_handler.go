package handler

import (
	"encoding/json"
	"net/http"

	"hostel-portal/pkg/apierror"
)

// ShellHandler owns the navigation chrome state that persists across
// views within a session.
type ShellHandler struct {
	registry *Registry
}

func NewShellHandler(registry *Registry) *ShellHandler {
	return &ShellHandler{registry: registry}
}

func (h *ShellHandler) Sidebar(w http.ResponseWriter, r *http.Request) {
	st := h.registry.ForSession(sessionIDFrom(r))
	writeSuccess(w, http.StatusOK, map[string]bool{"open": st.Sidebar.Open()}, nil)
}

func (h *ShellHandler) SetSidebar(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload struct {
		Open bool `json:"open"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	st := h.registry.ForSession(sessionIDFrom(r))
	st.Sidebar.Set(payload.Open)
	writeSuccess(w, http.StatusOK, map[string]bool{"open": st.Sidebar.Open()}, nil)
}

func (h *ShellHandler) ToggleSidebar(w http.ResponseWriter, r *http.Request) {
	st := h.registry.ForSession(sessionIDFrom(r))
	writeSuccess(w, http.StatusOK, map[string]bool{"open": st.Sidebar.Toggle()}, nil)
}
