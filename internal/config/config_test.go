package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.UpstreamBaseURL)
	assert.Equal(t, "portal_session", cfg.SessionCookie)
	assert.Equal(t, 30*time.Second, cfg.FeedPollInterval)
	assert.Positive(t, cfg.UpstreamTimeout)
}

func TestLoad_RedisIsOptIn(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.RedisAddr)

	t.Setenv("REDIS_ADDR", "redis.internal:6379")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6379", cfg.RedisAddr)
}

func TestLoad_OverridesAndTrailingSlash(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", "https://hostel.example.com/")
	t.Setenv("FEED_POLL_INTERVAL", "5s")
	t.Setenv("AUTH_RATE_LIMIT_RPM", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://hostel.example.com", cfg.UpstreamBaseURL)
	assert.Equal(t, 5*time.Second, cfg.FeedPollInterval)
	assert.Equal(t, 3, cfg.AuthRateLimitRPM)
}

func TestValidate_RejectsBadUpstream(t *testing.T) {
	cfg := &Config{
		ServerPort:       "8080",
		UpstreamBaseURL:  "ftp://nope",
		UpstreamTimeout:  time.Second,
		RequestTimeout:   time.Second,
		SessionCookie:    "portal_session",
		FeedPollInterval: time.Second,
		PreviewRoot:      "./state/previews",
	}

	assert.Error(t, cfg.Validate())
}

func TestLoad_BadDurationFallsBack(t *testing.T) {
	t.Setenv("UPSTREAM_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.UpstreamTimeout)
}
