package domain

import "time"

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates a dependency failed but the session can still serve cached data.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates a dependency timed out or was cancelled.
	HealthStatusError = "error"
)

// DependencyHealth describes the outcome of an individual dependency probe.
type DependencyHealth struct {
	Status    string
	Detail    string
	Latency   time.Duration
	CheckedAt time.Time
}

// HealthReport aggregates dependency status for the health endpoint.
type HealthReport struct {
	Status      string
	SessionID   string
	Checks      map[string]DependencyHealth
	GeneratedAt time.Time
}
