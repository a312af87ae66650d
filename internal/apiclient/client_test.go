package apiclient

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-123"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil, testLogger())
	accessToken, err := c.Login(context.Background(), "owner@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", accessToken)
}

func TestBearerInjection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL, func() (string, error) { return "tok-123", nil }, testLogger())
	projects, err := c.ListProjects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestAPIErrorParsing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusGone)
		_, _ = w.Write([]byte(`{"error":{"code":"FEEDBACK_WINDOW_CLOSED","message":"Приём фидбека завершён"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil, testLogger())
	_, err := c.PublicProject(context.Background(), "x7k2m9pq")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusGone, apiErr.StatusCode)
	assert.Equal(t, "FEEDBACK_WINDOW_CLOSED", apiErr.Code)
	assert.True(t, IsStatus(err, http.StatusGone))
	assert.False(t, IsStatus(err, http.StatusNotFound))
}

func TestAPIErrorNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	}))
	defer srv.Close()

	c := New(srv.URL, nil, testLogger())
	_, err := c.Me(context.Background())
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "UNKNOWN", apiErr.Code)
}

func TestSubmitFeedback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/public/x7k2m9pq/feedback", r.URL.Path)
		// Публичная отправка не требует авторизации
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"fb-1","type":"BUG","status":"NEW","created_at":"2026-01-15T10:00:00Z"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil, testLogger())
	receipt, err := c.SubmitFeedback(context.Background(), "x7k2m9pq", FeedbackSubmit{
		Type:        "BUG",
		Description: "Кнопка не работает",
	})
	require.NoError(t, err)
	assert.Equal(t, "fb-1", receipt.ID)
	assert.Equal(t, "NEW", receipt.Status)
}

func TestUpdateFeedbackStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/feedback/fb-1/status", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"fb-1","status":"ACCEPTED","allowed_transitions":["RESOLVED"]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, func() (string, error) { return "tok-123", nil }, testLogger())
	f, err := c.UpdateFeedbackStatus(context.Background(), "fb-1", "ACCEPTED", nil)
	require.NoError(t, err)
	assert.Equal(t, "ACCEPTED", f.Status)
	assert.Equal(t, []string{"RESOLVED"}, f.AllowedTransitions)
}

func TestErrorLogging(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"Проект не найден"}}`))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	c := New(srv.URL, nil, logger)
	_, err := c.GetProject(context.Background(), "ghost")
	require.Error(t, err)

	// Неуспешный запрос оставляет диагностическую запись
	assert.Contains(t, buf.String(), "/api/projects/ghost")
	assert.Contains(t, buf.String(), "status=404")
}
