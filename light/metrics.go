package light

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const MetricsSubsystem = "light"

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Height of the trusted header.
	TrustedHeight metrics.Gauge
	// Number of headers verified and trusted.
	VerifiedHeaders metrics.Counter
	// Number of times a header could not be verified with the trusted
	// validators and an intermediate one was tried instead.
	BisectionSteps metrics.Counter
	// Number of final verification failures.
	VerificationFailures metrics.Counter
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		TrustedHeight: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "trusted_height",
			Help:      "Height of the latest trusted header.",
		}, labels).With(labelsAndValues...),
		VerifiedHeaders: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "verified_headers",
			Help:      "Number of headers verified.",
		}, labels).With(labelsAndValues...),
		BisectionSteps: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "bisection_steps",
			Help:      "Number of times verification fell back to an intermediate header.",
		}, labels).With(labelsAndValues...),
		VerificationFailures: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "verification_failures",
			Help:      "Number of headers that failed verification.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		TrustedHeight:        discard.NewGauge(),
		VerifiedHeaders:      discard.NewCounter(),
		BisectionSteps:       discard.NewCounter(),
		VerificationFailures: discard.NewCounter(),
	}
}
