// Package metrics collects spec execution timings for a run and exports them.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Recorder aggregates the durations of executed specs. It is safe for use
// by concurrent workers.
type Recorder struct {
	mu sync.Mutex

	executed atomic.Int64
	failed   atomic.Int64

	// spec durations in microseconds, 1us to 60s, 3 significant digits
	histogram *hdrhistogram.Histogram
	max       time.Duration
	bySpec    map[string]SpecTiming
}

// SpecTiming is the recorded outcome of one spec.
type SpecTiming struct {
	Name     string
	Duration time.Duration
	Failed   bool
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, 3),
		bySpec:    make(map[string]SpecTiming),
	}
}

// Record records one spec execution.
func (r *Recorder) Record(name string, duration time.Duration, failed bool) {
	r.executed.Add(1)
	if failed {
		r.failed.Add(1)
	}

	latencyUs := duration.Microseconds()
	if latencyUs < minLatencyUs {
		latencyUs = minLatencyUs
	}
	if latencyUs > maxLatencyUs {
		latencyUs = maxLatencyUs
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.histogram.RecordValue(latencyUs)
	if duration > r.max {
		r.max = duration
	}
	if name != "" {
		r.bySpec[name] = SpecTiming{Name: name, Duration: duration, Failed: failed}
	}
}

// Summary holds the aggregate timings of a run.
type Summary struct {
	Executed int64
	Failed   int64

	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
	P50  time.Duration
	P95  time.Duration
	P99  time.Duration
}

// Summary returns the current aggregate. It is all zeros before the first Record.
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{
		Executed: r.executed.Load(),
		Failed:   r.failed.Load(),
	}
	if r.histogram.TotalCount() == 0 {
		return s
	}
	s.Min = time.Duration(r.histogram.Min()) * time.Microsecond
	s.Max = r.max
	s.Mean = time.Duration(r.histogram.Mean() * float64(time.Microsecond))
	s.P50 = time.Duration(r.histogram.ValueAtQuantile(50)) * time.Microsecond
	s.P95 = time.Duration(r.histogram.ValueAtQuantile(95)) * time.Microsecond
	s.P99 = time.Duration(r.histogram.ValueAtQuantile(99)) * time.Microsecond
	return s
}

// Specs returns per-spec timings sorted by name.
func (r *Recorder) Specs() []SpecTiming {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]SpecTiming, 0, len(r.bySpec))
	for _, t := range r.bySpec {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
