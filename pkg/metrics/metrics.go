// Package metrics exports the decoder counters and the decoded frames as prometheus metrics.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pulsedec/pkg/clock"
	"pulsedec/pkg/decoder"
	"pulsedec/pkg/framing"
)

const namespace = "pulsedec"

// Metrics holds the prometheus registry of one decoder.
type Metrics struct {
	registry  *prometheus.Registry
	frames    *prometheus.CounterVec
	errors    *prometheus.CounterVec
	bitPeriod prometheus.Histogram
	bits      prometheus.Histogram
}

// New registers the metrics of a decoder. The decoder counters are read on every scrape.
func New(p decoder.Protocol, c *decoder.Counters) *Metrics {
	labels := prometheus.Labels{"protocol": string(p)}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "frames_total",
			Help:        "Decoded frames by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "decode_errors_total",
			Help:        "Captures or frames which could not be decoded.",
			ConstLabels: labels,
		}, []string{"reason"}),
		bitPeriod: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "bit_period_samples",
			Help:        "Estimated bit period of the manchester captures in samples.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1, 2, 12),
		}),
		bits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "frame_bits",
			Help:        "Decoded bits per frame.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(8, 2, 10),
		}),
	}

	counter := func(name, help string, v func() uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, func() float64 { return float64(v()) })
	}

	m.registry.MustRegister(
		m.frames, m.errors, m.bitPeriod, m.bits,
		counter("units_total", "Input lines or chunks.", c.Units.Load),
		counter("malformed_total", "Dropped input units.", c.Malformed.Load),
		counter("captures_total", "Sealed captures.", c.Captures.Load),
	)
	return m
}

// ObserveFrame counts a frame.
func (m *Metrics) ObserveFrame(f decoder.Frame) {
	m.frames.WithLabelValues(string(f.Outcome)).Inc()
	m.bits.Observe(float64(f.BitCount))
	if f.BitPeriod > 0 {
		m.bitPeriod.Observe(float64(f.BitPeriod))
	}
}

// ObserveError counts a decoding error by its reason.
func (m *Metrics) ObserveError(err error) {
	m.errors.WithLabelValues(Reason(err)).Inc()
}

// Reason maps a decoding error to a metric label.
func Reason(err error) string {
	switch {
	case errors.Is(err, clock.ErrNoPulseDetected):
		return "no_pulse"
	case errors.Is(err, framing.ErrFrameTruncated):
		return "truncated"
	default:
		return "other"
	}
}

// Handler returns the http handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the registry of the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
