package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"hostel-portal/internal/audit"
	"hostel-portal/internal/session"
	"hostel-portal/internal/upstream"
	"hostel-portal/pkg/apierror"
)

type AuthHandler struct {
	client     *upstream.Client
	sessions   *session.Store
	registry   *Registry
	audit      *audit.Recorder
	cookieName string
	cookieTTL  time.Duration
}

func NewAuthHandler(client *upstream.Client, sessions *session.Store, registry *Registry,
	recorder *audit.Recorder, cookieName string, cookieTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		client:     client,
		sessions:   sessions,
		registry:   registry,
		audit:      recorder,
		cookieName: cookieName,
		cookieTTL:  cookieTTL,
	}
}

// Login exchanges the submitted credentials for an upstream token, stashes
// it under a fresh session ID and hands the browser only the opaque
// cookie. The token itself never reaches the client.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload upstream.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}
	payload.Email = strings.TrimSpace(payload.Email)
	if payload.Email == "" || payload.Password == "" {
		writeError(w, apierror.New("BAD_REQUEST", "email and password are required", "", http.StatusBadRequest))
		return
	}

	result, err := h.client.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	sessionID := uuid.NewString()
	if err := h.sessions.Save(r.Context(), sessionID, result.Token); err != nil {
		writeError(w, err)
		return
	}

	h.setCookie(w, sessionID, h.cookieTTL)
	identity := h.sessions.CurrentIdentity(r.Context(), sessionID)

	h.audit.Record(session.ContextWithIdentity(r.Context(), identity),
		"auth.login", payload.Email, audit.OutcomeOK, nil)

	writeSuccess(w, http.StatusOK, map[string]any{
		"user":     result.User,
		"identity": identity,
	}, nil)
}

// Signup registers a new account upstream and signs the browser straight
// in when the response carries a token.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload upstream.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}
	payload.Name = strings.TrimSpace(payload.Name)
	payload.Email = strings.TrimSpace(payload.Email)
	if payload.Name == "" || payload.Email == "" || payload.Password == "" {
		writeError(w, apierror.New("BAD_REQUEST", "name, email and password are required", "", http.StatusBadRequest))
		return
	}

	result, err := h.client.Register(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	if result.Token == "" {
		writeSuccess(w, http.StatusCreated, map[string]any{"user": result.User}, nil)
		return
	}

	sessionID := uuid.NewString()
	if err := h.sessions.Save(r.Context(), sessionID, result.Token); err != nil {
		writeError(w, err)
		return
	}
	h.setCookie(w, sessionID, h.cookieTTL)

	writeSuccess(w, http.StatusCreated, map[string]any{
		"user":     result.User,
		"identity": h.sessions.CurrentIdentity(r.Context(), sessionID),
	}, nil)
}

// Logout drops the stored credential and the session's state, then clears
// the cookie. The upstream is told best effort.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := session.IDFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("no active session"))
		return
	}

	h.audit.Record(r.Context(), "auth.logout", "", audit.OutcomeOK, nil)

	if err := h.client.Logout(r.Context()); err != nil {
		// The local teardown proceeds regardless.
		_ = err
	}

	_ = h.sessions.Clear(r.Context(), sessionID)
	h.registry.Drop(sessionID)
	h.setCookie(w, "", -time.Hour)

	writeSuccess(w, http.StatusOK, map[string]string{"status": "signed out"}, nil)
}

// Me reports the identity decoded from the stored credential.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := session.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("no active session"))
		return
	}
	writeSuccess(w, http.StatusOK, identity, nil)
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
