// Package metrics provides Prometheus instrumentation for card command
// processing: status words returned, verify outcomes per reference and
// references reaching the blocked state.
package metrics

import (
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all card metrics
	Namespace = "pincard"

	// Label names
	LabelStatusWord = "sw"
	LabelReference  = "reference"
	LabelOutcome    = "outcome"
)

var (
	// CommandsTotal counts processed commands by returned status word.
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "commands_total",
			Help:      "Total number of processed commands by status word",
		},
		[]string{LabelStatusWord},
	)

	// CommandDuration tracks the time spent processing one command.
	CommandDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "command_duration_seconds",
			Help:      "Duration of command processing in seconds",
			Buckets:   []float64{.000001, .00001, .0001, .001, .01},
		},
	)

	// VerifyTotal counts verify attempts that reached a PIN reference.
	VerifyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "verify_total",
			Help:      "Total number of verify attempts by reference and outcome",
		},
		[]string{LabelReference, LabelOutcome},
	)

	// ReferencesBlockedTotal counts references whose retry counter ran out.
	ReferencesBlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "references_blocked_total",
			Help:      "Total number of PIN references that became blocked",
		},
		[]string{LabelReference},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	enabled.Store(true)
}

// RecordCommand records one processed command and its duration in seconds.
func RecordCommand(sw string, duration float64) {
	if !enabled.Load() {
		return
	}
	CommandsTotal.WithLabelValues(sw).Inc()
	CommandDuration.Observe(duration)
}

// RecordVerify records the outcome of a verify attempt on reference.
func RecordVerify(reference, outcome string) {
	if !enabled.Load() {
		return
	}
	VerifyTotal.WithLabelValues(reference, outcome).Inc()
}

// RecordBlocked records reference transitioning to blocked.
func RecordBlocked(reference string) {
	if !enabled.Load() {
		return
	}
	ReferencesBlockedTotal.WithLabelValues(reference).Inc()
}

// WriteTextfile writes the default registry in the text exposition format,
// for collection by the node exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
// Useful for testing or when metrics are not desired.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
