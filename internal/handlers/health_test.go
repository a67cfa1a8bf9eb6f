package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type stubHealthRepository struct {
	err error
}

func (s *stubHealthRepository) Ping(context.Context) error { return s.err }

func TestHealthzReportsBuildInfo(t *testing.T) {
	started := time.Date(2025, 5, 1, 11, 0, 0, 0, time.UTC)
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	h := NewHealthHandlers(
		WithHealthBuildInfo(BuildInfo{
			Version:     "1.2.3",
			CommitSHA:   "abc1234",
			Environment: "test",
			StartedAt:   started,
		}),
		WithHealthClock(func() time.Time { return now }),
	)

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["status"] != "ok" {
		t.Errorf("status field = %v", payload["status"])
	}
	if payload["version"] != "1.2.3" || payload["commit"] != "abc1234" {
		t.Errorf("build info missing: %v", payload)
	}
	if payload["uptime"] != "1h0m0s" {
		t.Errorf("uptime = %v", payload["uptime"])
	}
}

func TestHealthzOmitsEmptyBuildInfo(t *testing.T) {
	h := NewHealthHandlers()

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for _, key := range []string{"version", "commit", "environment", "uptime"} {
		if _, ok := payload[key]; ok {
			t.Errorf("expected %s omitted, got %v", key, payload[key])
		}
	}
}

func TestReadyzHealthy(t *testing.T) {
	h := NewHealthHandlers(WithHealthRepository(&stubHealthRepository{}))

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestReadyzDependencyDown(t *testing.T) {
	h := NewHealthHandlers(WithHealthRepository(&stubHealthRepository{
		err: errors.New("firestore: connection refused"),
	}))

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "not_ready") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestReadyzWithoutRepository(t *testing.T) {
	h := NewHealthHandlers()

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
