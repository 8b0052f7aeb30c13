package handlers

import (
	"context"
	"net/http"
	"time"

	domain "github.com/trailaccess/trailguide/internal/domain"
	"github.com/trailaccess/trailguide/internal/platform/httpx"
	"github.com/trailaccess/trailguide/internal/repositories"
)

const defaultReadyTimeout = 3 * time.Second

// HealthHandlers serves liveness and dependency readiness.
type HealthHandlers struct {
	repo      repositories.HealthRepository
	clock     func() time.Time
	startedAt time.Time
	sessionID func() string
	timeout   time.Duration
}

// HealthOption customises HealthHandlers.
type HealthOption func(*HealthHandlers)

// NewHealthHandlers constructs health handlers. Without a repository, readiness reports ok.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{
		clock:   time.Now,
		timeout: defaultReadyTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.startedAt.IsZero() {
		h.startedAt = h.clock()
	}
	return h
}

// WithHealthRepository sets the dependency prober used by /readyz.
func WithHealthRepository(repo repositories.HealthRepository) HealthOption {
	return func(h *HealthHandlers) {
		h.repo = repo
	}
}

// WithHealthClock injects a custom clock primarily for tests.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// WithHealthStartedAt records the process start used for uptime.
func WithHealthStartedAt(t time.Time) HealthOption {
	return func(h *HealthHandlers) {
		h.startedAt = t
	}
}

// WithHealthSession reports the current session identifier in readiness payloads.
func WithHealthSession(id func() string) HealthOption {
	return func(h *HealthHandlers) {
		h.sessionID = id
	}
}

type healthzResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

type readyzResponse struct {
	Status      string                     `json:"status"`
	SessionID   string                     `json:"session_id,omitempty"`
	Checks      map[string]dependencyCheck `json:"checks"`
	GeneratedAt string                     `json:"generated_at"`
}

type dependencyCheck struct {
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
	CheckedAt string `json:"checked_at,omitempty"`
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock()
	httpx.WriteJSON(w, http.StatusOK, healthzResponse{
		Status:    domain.HealthStatusOK,
		Uptime:    now.Sub(h.startedAt).Round(time.Second).String(),
		Timestamp: now.UTC().Format(time.RFC3339),
	})
}

// Readyz probes dependencies. A degraded dependency still reports 200 since cached data
// can be served; an errored one reports 503.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report := domain.HealthReport{Status: domain.HealthStatusOK, GeneratedAt: h.clock()}
	if h.repo != nil {
		probeCtx, cancel := context.WithTimeout(ctx, h.timeout)
		defer cancel()
		collected, err := h.repo.Collect(probeCtx)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("health_unavailable", err.Error(), http.StatusServiceUnavailable))
			return
		}
		report = collected
	}
	if h.sessionID != nil {
		report.SessionID = h.sessionID()
	}

	payload := readyzResponse{
		Status:      report.Status,
		SessionID:   report.SessionID,
		Checks:      make(map[string]dependencyCheck, len(report.Checks)),
		GeneratedAt: report.GeneratedAt.UTC().Format(time.RFC3339),
	}
	for name, check := range report.Checks {
		payload.Checks[name] = dependencyCheck{
			Status:    check.Status,
			Detail:    check.Detail,
			LatencyMS: check.Latency.Milliseconds(),
			CheckedAt: formatTime(check.CheckedAt),
		}
	}

	status := http.StatusOK
	if report.Status == domain.HealthStatusError {
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, payload)
}
