// Package metrics exposes prometheus collectors for channel edits.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes recorded by ObserveEdit and ObserveRecompute.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected" // unsupported method, invalid input
	OutcomeFailed   = "failed"   // store or integrity failure
	OutcomeSkipped  = "skipped"  // recompute only: nothing selected
)

// Dropped selection kinds.
const (
	KindAnchor = "anchor"
	KindPair   = "pair"
)

// Collectors groups the edit pipeline metrics under one registry.
type Collectors struct {
	Registry *prometheus.Registry

	edits    *prometheus.CounterVec
	duration prometheus.Histogram
	dropped  *prometheus.CounterVec
	recomp   *prometheus.CounterVec
}

// New builds a fresh registry with the edit collectors and the Go runtime collectors.
func New() *Collectors {
	c := &Collectors{
		Registry: prometheus.NewRegistry(),
		edits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peakbase",
			Name:      "channel_edits_total",
			Help:      "Channel edits by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "peakbase",
			Name:      "channel_edit_duration_seconds",
			Help:      "Wall time of a channel edit including the store transaction.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peakbase",
			Name:      "dropped_selections_total",
			Help:      "Chosen anchors or pairs that matched no time value.",
		}, []string{"kind"}),
		recomp: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peakbase",
			Name:      "recomputed_channels_total",
			Help:      "Channels processed by experiment recompute, by outcome.",
		}, []string{"outcome"}),
	}
	c.Registry.MustRegister(c.edits, c.duration, c.dropped, c.recomp,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return c
}

// Default is the process-wide collector set.
var Default = New()

// ObserveEdit records one finished edit.
func (c *Collectors) ObserveEdit(outcome string, elapsed time.Duration) {
	c.edits.WithLabelValues(outcome).Inc()
	c.duration.Observe(elapsed.Seconds())
}

// AddDropped counts unmatched selections of a kind.
func (c *Collectors) AddDropped(kind string, n int) {
	if n > 0 {
		c.dropped.WithLabelValues(kind).Add(float64(n))
	}
}

// ObserveRecompute records one channel processed by a recompute.
func (c *Collectors) ObserveRecompute(outcome string) {
	c.recomp.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{Registry: c.Registry})
}
