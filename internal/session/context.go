package session

import "context"

type contextKey string

const (
	idContextKey       contextKey = "session_id"
	identityContextKey contextKey = "session_identity"
)

func ContextWithID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, idContextKey, sessionID)
}

func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(idContextKey).(string)
	return id, ok && id != ""
}

func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	return identity, ok && identity != nil
}
