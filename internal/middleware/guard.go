package middleware

import (
	"context"
	"net/http"
	"strings"

	"hostel-portal/internal/model"
	"hostel-portal/internal/session"
)

// SessionValidator is the slice of the session store the guard needs.
type SessionValidator interface {
	IsValid(ctx context.Context, sessionID string) bool
	CurrentIdentity(ctx context.Context, sessionID string) *session.Identity
}

// Guard gates every navigation. It keeps no state between requests: each
// evaluation re-reads the session store, so a credential purged elsewhere
// is noticed on the very next navigation.
type Guard struct {
	sessions   SessionValidator
	cookieName string
	loginPath  string
}

func NewGuard(sessions SessionValidator, cookieName string) *Guard {
	return &Guard{sessions: sessions, cookieName: cookieName, loginPath: "/login"}
}

// RequireSession redirects to the login entry point when the session is
// absent, undecodable, or expired. On success the session ID and identity
// ride the request context.
func (g *Guard) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := g.sessionID(r)
		if sessionID == "" || !g.sessions.IsValid(r.Context(), sessionID) {
			http.Redirect(w, r, g.loginPath, http.StatusSeeOther)
			return
		}

		ctx := session.ContextWithID(r.Context(), sessionID)
		if identity := g.sessions.CurrentIdentity(ctx, sessionID); identity != nil {
			ctx = session.ContextWithIdentity(ctx, identity)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles renders a forbidden notice in place when the session is
// valid but the role is not in the allowed set. An empty set allows any
// authenticated identity. No redirect: the URL stays where it was.
func (g *Guard) RequireRoles(allowedRoles ...string) func(http.Handler) http.Handler {
	roleSet := map[string]struct{}{}
	for _, role := range allowedRoles {
		roleSet[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := session.IdentityFromContext(r.Context())
			if !ok {
				writeGuardError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			if len(roleSet) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			if _, allowed := roleSet[strings.ToLower(identity.Role)]; !allowed {
				writeGuardError(w, http.StatusForbidden, "FORBIDDEN", "not authorized for this area")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (g *Guard) sessionID(r *http.Request) string {
	cookie, err := r.Cookie(g.cookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func writeGuardError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonEncode(w, model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    code,
			Message: message,
		},
	})
}
