package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-portal/internal/event"
	"hostel-portal/internal/model"
	"hostel-portal/internal/session"
	"hostel-portal/pkg/apierror"
)

func testCredential(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "stf-1",
		"role": "staff",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *session.Store, *event.InMemoryBus, func()) {
	t.Helper()
	server := httptest.NewServer(handler)
	sessions := session.NewStore(session.NewMemoryKV(), time.Hour)
	bus := event.NewBus()
	client := NewClient(server.URL, 5*time.Second, sessions, bus)
	return client, sessions, bus, server.Close
}

func TestClient_AttachesCredential(t *testing.T) {
	var gotAuth string
	client, sessions, _, closeServer := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	defer closeServer()

	credential := testCredential(t)
	ctx := session.ContextWithID(context.Background(), "sid")
	require.NoError(t, sessions.Save(ctx, "sid", credential))

	_, err := client.ListStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+credential, gotAuth)
}

func TestClient_NoCredentialNoHeader(t *testing.T) {
	var gotAuth string
	client, _, _, closeServer := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"token":"abc"}`))
	}))
	defer closeServer()

	_, err := client.Login(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClient_PurgedCredentialFailsWithoutCalling(t *testing.T) {
	reached := false
	client, _, _, closeServer := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))
	defer closeServer()

	// Session-bound call, but nothing stored under the session ID.
	ctx := session.ContextWithID(context.Background(), "sid")
	_, err := client.ListStudents(ctx)

	assert.ErrorIs(t, err, model.ErrSessionNotFound)
	assert.False(t, reached)
}

func TestClient_UnauthorizedClearsSessionAndSignals(t *testing.T) {
	client, sessions, bus, closeServer := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"token revoked"}`))
	}))
	defer closeServer()

	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	ctx := session.ContextWithID(context.Background(), "sid")
	require.NoError(t, sessions.Save(ctx, "sid", testCredential(t)))

	_, err := client.ListStaffComplaints(ctx)
	require.Error(t, err)

	// The original failure propagates with the server's message.
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "UNAUTHORIZED", apiErr.Code)
	assert.Equal(t, "token revoked", apiErr.Message)

	// Side effect: credential purged.
	_, ok := sessions.Credential(ctx, "sid")
	assert.False(t, ok)

	// Side effect: typed signal for the top-level listener.
	select {
	case e := <-events:
		assert.Equal(t, event.TypeSessionExpired, e.Type)
		assert.Equal(t, "sid", e.SessionID)
	case <-time.After(time.Second):
		t.Fatal("expected session.expired event")
	}
}

func TestClient_OtherErrorsPassThrough(t *testing.T) {
	client, sessions, _, closeServer := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"roll number already exists"}`))
	}))
	defer closeServer()

	ctx := session.ContextWithID(context.Background(), "sid")
	require.NoError(t, sessions.Save(ctx, "sid", testCredential(t)))

	_, err := client.CreateStockItem(ctx, model.StockItem{Category: "mess", Name: "Rice"})
	require.Error(t, err)

	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.HTTPStatus)
	assert.Equal(t, "roll number already exists", apiErr.Message)

	// Non-401 failures must not touch the session.
	_, ok := sessions.Credential(ctx, "sid")
	assert.True(t, ok)
}

func TestClient_GenericMessageWhenBodyUnparseable(t *testing.T) {
	client, _, _, closeServer := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>boom</html>"))
	}))
	defer closeServer()

	_, err := client.ListStudents(context.Background())
	require.Error(t, err)

	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "upstream request failed", apiErr.Message)
}

func TestClient_PerCallDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	sessions := session.NewStore(session.NewMemoryKV(), time.Hour)
	client := NewClient(server.URL, 50*time.Millisecond, sessions, event.NewBus())

	start := time.Now()
	_, err := client.ListStudents(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUpstreamUnreachable)
	assert.Less(t, time.Since(start), 2*time.Second)
}
