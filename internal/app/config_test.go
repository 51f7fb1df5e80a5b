package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userdir/userdir/internal/observability"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":3001", cfg.AppAddr)
	assert.Equal(t, 600*time.Second, cfg.CacheTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.CacheOpTimeout)
	assert.Equal(t, time.Hour, cfg.JWTExpiresIn)
	assert.True(t, cfg.DBMigrate)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Empty(t, cfg.OTelEndpoint)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_EXPIRES_IN", "15m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("APP_ENV", "production")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.JWTExpiresIn)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.IsProduction())
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestRouterHealthz(t *testing.T) {
	cfg := &Config{RateLimitPerMinute: 100}

	ok := NewRouter(RouterParams{Logger: NewLogger(cfg), Config: cfg, Database: stubPinger{}})
	res := httptest.NewRecorder()
	ok.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"status":"ok"}`, res.Body.String())
	assert.Equal(t, "nosniff", res.Header().Get("X-Content-Type-Options"))

	down := NewRouter(RouterParams{Logger: NewLogger(cfg), Config: cfg, Database: stubPinger{err: errors.New("refused")}})
	res = httptest.NewRecorder()
	down.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
}

func TestRouterCORSReflectsOrigin(t *testing.T) {
	cfg := &Config{CORSAllowedOrigins: []string{"*"}}
	router := NewRouter(RouterParams{Logger: NewLogger(cfg), Config: cfg})

	req := httptest.NewRequest(http.MethodOptions, "/users", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, "https://app.example", res.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", res.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRouterExposesMetrics(t *testing.T) {
	cfg := &Config{}
	router := NewRouter(RouterParams{Logger: NewLogger(cfg), Config: cfg, Metrics: observability.NewMetrics()})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `userdir_http_requests_total{code="200",route="/healthz"} 1`)
}

func TestInTestModeFromEnv(t *testing.T) {
	t.Setenv("USERDIR_TEST_MODE", "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv("USERDIR_TEST_MODE", "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}

func TestNewLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, &Config{LogFormat: "json", AppEnv: "production"}).Info("hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "userdir", record["service"])

	buf.Reset()
	newLogger(&buf, &Config{LogFormat: "json", AppEnv: "production"}).Debug("hidden")
	assert.Empty(t, buf.String())
}
