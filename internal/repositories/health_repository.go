package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	domain "github.com/trailaccess/trailguide/internal/domain"
)

const defaultProbeTimeout = 1500 * time.Millisecond

// Probe checks one dependency of the session.
type Probe struct {
	Name    string
	Timeout time.Duration
	Check   func(context.Context) error
}

// ProbeOption customises the probe-backed health repository.
type ProbeOption func(*probeHealthRepository)

// WithProbeTimeout overrides the timeout applied when a probe omits its own.
func WithProbeTimeout(timeout time.Duration) ProbeOption {
	return func(repo *probeHealthRepository) {
		if timeout > 0 {
			repo.defaultTimeout = timeout
		}
	}
}

// WithProbeClock injects a custom clock primarily for tests.
func WithProbeClock(clock func() time.Time) ProbeOption {
	return func(repo *probeHealthRepository) {
		if clock != nil {
			repo.now = clock
		}
	}
}

// WithSessionID stamps reports with the owning session identifier.
func WithSessionID(id string) ProbeOption {
	return func(repo *probeHealthRepository) {
		repo.sessionID = id
	}
}

type probeHealthRepository struct {
	probes         []Probe
	defaultTimeout time.Duration
	sessionID      string
	now            func() time.Time
}

var _ HealthRepository = (*probeHealthRepository)(nil)

// NewProbeHealthRepository constructs a HealthRepository that runs every probe concurrently.
func NewProbeHealthRepository(probes []Probe, opts ...ProbeOption) (HealthRepository, error) {
	if len(probes) == 0 {
		return nil, errors.New("health repository: at least one probe is required")
	}
	for _, probe := range probes {
		if strings.TrimSpace(probe.Name) == "" {
			return nil, errors.New("health repository: probe missing name")
		}
		if probe.Check == nil {
			return nil, fmt.Errorf("health repository: probe %s missing check function", probe.Name)
		}
	}

	repo := &probeHealthRepository{
		probes:         append([]Probe(nil), probes...),
		defaultTimeout: defaultProbeTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo, nil
}

func (r *probeHealthRepository) Collect(ctx context.Context) (domain.HealthReport, error) {
	if ctx == nil {
		return domain.HealthReport{}, errors.New("health repository: context is required")
	}

	var (
		mu      sync.Mutex
		results = make(map[string]domain.DependencyHealth, len(r.probes))
	)

	// Probes never fail the group; their failures are recorded in the report.
	var group errgroup.Group
	for _, probe := range r.probes {
		group.Go(func() error {
			result := r.run(ctx, probe)
			mu.Lock()
			results[probe.Name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	status := domain.HealthStatusOK
	for _, result := range results {
		if result.Status == domain.HealthStatusError {
			status = domain.HealthStatusError
			break
		}
		if result.Status == domain.HealthStatusDegraded {
			status = domain.HealthStatusDegraded
		}
	}

	return domain.HealthReport{
		Status:      status,
		SessionID:   r.sessionID,
		Checks:      results,
		GeneratedAt: r.now(),
	}, nil
}

func (r *probeHealthRepository) run(ctx context.Context, probe Probe) domain.DependencyHealth {
	timeout := probe.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := r.now()
	err := probe.Check(probeCtx)
	end := r.now()

	result := domain.DependencyHealth{
		Status:    domain.HealthStatusOK,
		Detail:    "ok",
		Latency:   end.Sub(start),
		CheckedAt: end,
	}
	if err == nil && probeCtx.Err() != nil {
		err = probeCtx.Err()
	}
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		result.Status = domain.HealthStatusError
		result.Detail = "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		result.Status = domain.HealthStatusError
		result.Detail = "timeout"
	default:
		result.Status = domain.HealthStatusDegraded
		result.Detail = err.Error()
	}
	return result
}
