package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every exported metric.
const Namespace = "chlorine"

// RunLabels identify the run a textfile describes.
type RunLabels struct {
	Bundle string
	RunID  string
}

// Registry builds a registry holding the recorder's current state.
func (r *Recorder) Registry(labels RunLabels) (*prometheus.Registry, error) {
	constLabels := prometheus.Labels{"bundle": labels.Bundle, "run_id": labels.RunID}
	reg := prometheus.NewRegistry()

	summary := r.Summary()

	executed := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   Namespace,
		Name:        "specs_executed",
		Help:        "Number of specs whose body ran",
		ConstLabels: constLabels,
	})
	executed.Set(float64(summary.Executed))

	failed := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   Namespace,
		Name:        "specs_failed",
		Help:        "Number of specs that failed",
		ConstLabels: constLabels,
	})
	failed.Set(float64(summary.Failed))

	percentiles := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   Namespace,
		Name:        "spec_duration_percentile_seconds",
		Help:        "Spec duration percentiles across the run",
		ConstLabels: constLabels,
	}, []string{"percentile"})
	percentiles.WithLabelValues("50").Set(summary.P50.Seconds())
	percentiles.WithLabelValues("95").Set(summary.P95.Seconds())
	percentiles.WithLabelValues("99").Set(summary.P99.Seconds())
	percentiles.WithLabelValues("100").Set(summary.Max.Seconds())

	perSpec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   Namespace,
		Name:        "spec_duration_seconds",
		Help:        "Duration of each executed spec",
		ConstLabels: constLabels,
	}, []string{"spec", "result"})
	for _, t := range r.Specs() {
		result := "pass"
		if t.Failed {
			result = "fail"
		}
		perSpec.WithLabelValues(t.Name, result).Set(t.Duration.Seconds())
	}

	for _, c := range []prometheus.Collector{executed, failed, percentiles, perSpec} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering metric: %w", err)
		}
	}
	return reg, nil
}

// WriteTextfile writes the metrics in the Prometheus text format, suitable
// for the node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string, labels RunLabels) error {
	reg, err := r.Registry(labels)
	if err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("writing metrics file: %w", err)
	}
	return nil
}
