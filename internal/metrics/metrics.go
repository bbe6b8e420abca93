// Package metrics records per-operation counters and latencies.
//
// Metrics are optional: components take a [Recorder] and treat nil as a
// no-op, so the filesystem runs the same with or without collection.
package metrics

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/brettbedarf/memfs"
)

// Recorder observes the outcome of one filesystem operation.
type Recorder interface {
	ObserveOp(op string, err error, d time.Duration)
}

// Observe calls r.ObserveOp when r is non-nil.
func Observe(r Recorder, op string, err error, start time.Time) {
	if r == nil {
		return
	}
	r.ObserveOp(op, err, time.Since(start))
}

// Prometheus is a Recorder backed by a Prometheus registry.
type Prometheus struct {
	registry *prometheus.Registry
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheus registers the operation metrics on a fresh registry.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	return &Prometheus{
		registry: reg,
		ops: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "memfs_operations_total",
				Help: "Total number of filesystem operations by operation and result",
			},
			[]string{"op", "result"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "memfs_operation_duration_seconds",
				Help:    "Duration of filesystem operations in seconds",
				Buckets: []float64{.00001, .0001, .001, .01, .1, 1},
			},
			[]string{"op"},
		),
	}
}

func (p *Prometheus) ObserveOp(op string, err error, d time.Duration) {
	p.ops.WithLabelValues(op, Result(err)).Inc()
	p.duration.WithLabelValues(op).Observe(d.Seconds())
}

func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// WriteText writes all gathered metrics in the Prometheus text format.
func (p *Prometheus) WriteText(w io.Writer) error {
	families, err := p.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Result maps an operation error to a metric label: "ok", the snake_cased
// domain error code, or "error" for anything else.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	var merr *memfs.Error
	if errors.As(err, &merr) {
		return strings.ReplaceAll(merr.Code.String(), " ", "_")
	}
	return "error"
}
