package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domain "github.com/trailaccess/trailguide/internal/domain"
)

type stubHealthRepository struct {
	report domain.HealthReport
	err    error
}

func (s *stubHealthRepository) Collect(context.Context) (domain.HealthReport, error) {
	return s.report, s.err
}

func TestHealthHandlersHealthz(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start.Add(30 * time.Second)
	handlers := NewHealthHandlers(
		WithHealthStartedAt(start),
		WithHealthClock(func() time.Time { return now }),
	)

	rr := httptest.NewRecorder()
	handlers.Healthz(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body["status"] != domain.HealthStatusOK {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
	if body["uptime"] != "30s" {
		t.Fatalf("expected uptime 30s, got %v", body["uptime"])
	}
}

func TestHealthHandlersReadyz(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		repo       *stubHealthRepository
		wantStatus int
		wantBody   string
	}{
		{
			name: "ok",
			repo: &stubHealthRepository{report: domain.HealthReport{
				Status:      domain.HealthStatusOK,
				GeneratedAt: now,
				Checks: map[string]domain.DependencyHealth{
					"firestore": {Status: domain.HealthStatusOK, Latency: 12 * time.Millisecond, CheckedAt: now},
				},
			}},
			wantStatus: http.StatusOK,
			wantBody:   domain.HealthStatusOK,
		},
		{
			name: "degraded still serves",
			repo: &stubHealthRepository{report: domain.HealthReport{
				Status:      domain.HealthStatusDegraded,
				GeneratedAt: now,
				Checks: map[string]domain.DependencyHealth{
					"firestore": {Status: domain.HealthStatusDegraded, Detail: "permission denied"},
				},
			}},
			wantStatus: http.StatusOK,
			wantBody:   domain.HealthStatusDegraded,
		},
		{
			name: "error",
			repo: &stubHealthRepository{report: domain.HealthReport{
				Status:      domain.HealthStatusError,
				GeneratedAt: now,
				Checks: map[string]domain.DependencyHealth{
					"localstore": {Status: domain.HealthStatusError, Detail: "timeout"},
				},
			}},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   domain.HealthStatusError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handlers := NewHealthHandlers(
				WithHealthRepository(tc.repo),
				WithHealthSession(func() string { return "session-1" }),
			)
			rr := httptest.NewRecorder()
			handlers.Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rr.Code)
			}
			var body readyzResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if body.Status != tc.wantBody {
				t.Fatalf("expected status %s, got %s", tc.wantBody, body.Status)
			}
			if body.SessionID != "session-1" {
				t.Fatalf("expected session id, got %q", body.SessionID)
			}
			if len(body.Checks) != 1 {
				t.Fatalf("expected one check, got %v", body.Checks)
			}
		})
	}
}

func TestHealthHandlersReadyzCollectError(t *testing.T) {
	handlers := NewHealthHandlers(WithHealthRepository(&stubHealthRepository{err: errors.New("boom")}))

	rr := httptest.NewRecorder()
	handlers.Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body["error"] != "health_unavailable" {
		t.Fatalf("unexpected error code %v", body["error"])
	}
}
