package session

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const keyPrefix = "portal:credential:"

// Identity is the claim set derived from a credential. Role enforcement is
// the route guard's job; the store only decodes.
type Identity struct {
	Subject string `json:"sub"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Role    string `json:"role"`
}

// Store holds one upstream credential per portal session. The credential is
// issued and signed by the remote API; the portal cannot verify the
// signature, so claims are decoded without verification and only the expiry
// is enforced locally.
type Store struct {
	kv     KV
	ttl    time.Duration
	parser *jwt.Parser
	now    func() time.Time
}

func NewStore(kv KV, ttl time.Duration) *Store {
	return &Store{
		kv:     kv,
		ttl:    ttl,
		parser: jwt.NewParser(),
		now:    time.Now,
	}
}

func (s *Store) Save(ctx context.Context, sessionID string, credential string) error {
	return s.kv.Set(ctx, keyPrefix+sessionID, credential, s.ttl)
}

func (s *Store) Clear(ctx context.Context, sessionID string) error {
	return s.kv.Del(ctx, keyPrefix+sessionID)
}

// Credential returns the raw stored credential, if any.
func (s *Store) Credential(ctx context.Context, sessionID string) (string, bool) {
	credential, ok, err := s.kv.Get(ctx, keyPrefix+sessionID)
	if err != nil {
		slog.Warn("session store read failed", "error", err)
		return "", false
	}

	return credential, ok && strings.TrimSpace(credential) != ""
}

// IsValid reports whether the session holds a decodable, unexpired
// credential. An undecodable or expired credential is purged as a side
// effect, so the next evaluation starts from a clean slate.
func (s *Store) IsValid(ctx context.Context, sessionID string) bool {
	credential, ok := s.Credential(ctx, sessionID)
	if !ok {
		return false
	}

	expiry, err := s.decodeExpiry(credential)
	if err != nil {
		s.purge(ctx, sessionID, "undecodable credential")
		return false
	}

	if !expiry.IsZero() && !expiry.After(s.now()) {
		s.purge(ctx, sessionID, "expired credential")
		return false
	}

	return true
}

// CurrentIdentity returns the decoded claims, or nil when there is no
// credential or it cannot be decoded. No role or expiry enforcement here.
func (s *Store) CurrentIdentity(ctx context.Context, sessionID string) *Identity {
	credential, ok := s.Credential(ctx, sessionID)
	if !ok {
		return nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := s.parser.ParseUnverified(credential, claims); err != nil {
		return nil
	}

	identity := &Identity{}
	identity.Subject, _ = claims["sub"].(string)
	identity.Name, _ = claims["name"].(string)
	identity.Email, _ = claims["email"].(string)
	identity.Role, _ = claims["role"].(string)
	return identity
}

func (s *Store) decodeExpiry(credential string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := s.parser.ParseUnverified(credential, claims); err != nil {
		return time.Time{}, err
	}

	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return time.Time{}, nil
	}

	return expiry.Time, nil
}

func (s *Store) purge(ctx context.Context, sessionID string, reason string) {
	if err := s.Clear(ctx, sessionID); err != nil {
		slog.Warn("failed to purge session credential", "session_id", sessionID, "error", err)
		return
	}
	slog.Info("session credential purged", "session_id", sessionID, "reason", reason)
}
