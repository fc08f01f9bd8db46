package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costoptimizer/backend/internal/config"
	"github.com/costoptimizer/backend/internal/container"
	"github.com/costoptimizer/backend/internal/jobs"
	"github.com/costoptimizer/backend/internal/testutil"
)

func TestNewLogger_Formats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(config.LoggingConfig{Level: "info", Format: "json"}, &buf).Info("hello", "k", "v")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "v", entry["k"])

	buf.Reset()
	newLogger(config.LoggingConfig{Level: "info", Format: "text"}, &buf).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "warn"}, &buf)
	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func newTestContainer(t *testing.T) (*container.Container, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS cloud_costs")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS idx_cloud_costs_key")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS users")).WillReturnResult(sqlmock.NewResult(0, 0))

	cfg := &config.Config{
		Server: config.ServerConfig{AllowedOrigins: []string{"*"}},
		Auth:   config.AuthConfig{JWTSecret: "secret", TokenExpiry: 30 * time.Minute},
		Jobs: config.JobsConfig{
			AnomalyCheckSchedule: "0 0 3 * * *",
			Timeout:              time.Minute,
		},
		Rules: config.DefaultRules(),
	}

	ctr, err := container.NewWithDB(context.Background(), cfg, db, nil, nil, testutil.Logger())
	require.NoError(t, err)
	return ctr, mock
}

func TestRouter_PublicRoutes(t *testing.T) {
	ctr, _ := newTestContainer(t)
	router := newRouter(ctr)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cloud Cost Optimizer Dashboard API")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	ctr, _ := newTestContainer(t)
	router := newRouter(ctr)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/costs/daily"},
		{http.MethodPost, "/costs/fetch"},
		{http.MethodGet, "/recommendations"},
		{http.MethodGet, "/ai-recommendations"},
		{http.MethodPost, "/budget/simulate"},
		{http.MethodGet, "/monitoring/health"},
		{http.MethodGet, "/monitoring/performance"},
		{http.MethodGet, "/monitoring/savings"},
		{http.MethodPost, "/monitoring/savings"},
		{http.MethodGet, "/jobs"},
		{http.MethodPost, "/jobs/anomaly-check/run"},
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(route.method, route.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", route.method, route.path)
	}
}

func TestRouter_AuthenticatedJobsList(t *testing.T) {
	ctr, mock := newTestContainer(t)
	router := newRouter(ctr)

	token, err := ctr.JWTManager().GenerateToken("alice")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = $1")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at"}).
			AddRow(uuid.NewString(), "alice", "alice@example.com", "hash", time.Now()))

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Jobs []struct {
			Name string `json:"name"`
		} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Jobs, 1)
	assert.Equal(t, "anomaly-check", body.Jobs[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchOnce_WithoutProvider(t *testing.T) {
	ctr, _ := newTestContainer(t)

	err := fetchOnce(context.Background(), ctr)
	assert.ErrorIs(t, err, jobs.ErrNoProvider)
}
