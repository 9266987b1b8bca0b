package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer receives timing measurements from the run orchestrator and the
// retrieval service.
type Observer interface {
	// ObserveGeneration is called once per generated vector.
	ObserveGeneration(d time.Duration)

	// ObserveSort is called after each sorted retrieval. mode names the sort
	// mechanism that was timed, err is nil if successful.
	ObserveSort(mode string, d time.Duration, err error)
}

// Noop discards all observations.
type Noop struct{}

func (Noop) ObserveGeneration(time.Duration)          {}
func (Noop) ObserveSort(string, time.Duration, error) {}

// Basic keeps in-memory counters. Useful for debugging and tests.
type Basic struct {
	Generations     atomic.Int64
	GenerationNanos atomic.Int64
	Sorts           atomic.Int64
	SortErrors      atomic.Int64
	SortNanos       atomic.Int64
}

// ObserveGeneration implements Observer.
func (b *Basic) ObserveGeneration(d time.Duration) {
	b.Generations.Add(1)
	b.GenerationNanos.Add(d.Nanoseconds())
}

// ObserveSort implements Observer.
func (b *Basic) ObserveSort(_ string, d time.Duration, err error) {
	b.Sorts.Add(1)
	b.SortNanos.Add(d.Nanoseconds())
	if err != nil {
		b.SortErrors.Add(1)
	}
}

// Prometheus exposes timings as histograms on its own registry.
type Prometheus struct {
	registry   *prometheus.Registry
	generation prometheus.Histogram
	sort       *prometheus.HistogramVec
	sortErrors *prometheus.CounterVec
}

// NewPrometheus creates the collectors and registers them on a fresh registry.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		generation: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "randvec_generation_seconds",
			Help:    "Time spent generating one vector of unique integers",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		sort: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "randvec_sort_seconds",
			Help:    "Time spent retrieving and ordering one stored vector",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"mode"}),
		sortErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "randvec_sort_errors_total",
			Help: "Sorted retrievals that failed",
		}, []string{"mode"}),
	}
	p.registry.MustRegister(p.generation, p.sort, p.sortErrors)
	return p
}

// Registry returns the registry holding all collectors.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// ObserveGeneration implements Observer.
func (p *Prometheus) ObserveGeneration(d time.Duration) {
	p.generation.Observe(d.Seconds())
}

// ObserveSort implements Observer.
func (p *Prometheus) ObserveSort(mode string, d time.Duration, err error) {
	if err != nil {
		p.sortErrors.WithLabelValues(mode).Inc()
		return
	}
	p.sort.WithLabelValues(mode).Observe(d.Seconds())
}

// WriteTextfile dumps the registry in the Prometheus text format, for pickup
// by a node_exporter textfile collector.
func (p *Prometheus) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.registry)
}

var (
	_ Observer = Noop{}
	_ Observer = (*Basic)(nil)
	_ Observer = (*Prometheus)(nil)
)
