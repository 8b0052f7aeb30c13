package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/trailaccess/trailguide"

// Tracer returns the module tracer. Spans are dropped unless the embedder installs an SDK
// tracer provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Meter returns the module meter backed by the global meter provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
