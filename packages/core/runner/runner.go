package runner

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/chlorine/packages/core/env"
	"github.com/abdul-hamid-achik/chlorine/packages/core/queue"
	"github.com/abdul-hamid-achik/chlorine/packages/core/spec"
	"github.com/abdul-hamid-achik/chlorine/packages/logging"
	"github.com/abdul-hamid-achik/chlorine/packages/metrics"
)

const (
	// DefaultWorkers is the size of the worker pool when none is configured
	DefaultWorkers = 4
)

type Config struct {
	// Name is printed in the bundle header.
	Name string
	// Workers is the size of the parallel pool. Zero or less means
	// DefaultWorkers, or the bundle's Jobs when run with RunBundle; a
	// positive value always wins over the bundle.
	Workers int
	// Diagnostics receives every spec's output block and the summary line.
	Diagnostics io.Writer
	Hooks       spec.Hooks
	// StartRate limits how many specs per second the parallel pass starts.
	// Zero means unlimited.
	StartRate float64
	Logger    *slog.Logger
	Clock     func() time.Time
	// Metrics accumulates spec durations over every run of the Runner.
	// RunResult.Stats only covers its own run.
	Metrics *metrics.Recorder
}

type Runner struct {
	config     *Config
	workersSet bool
	diag       *lockedWriter
	logger     *slog.Logger
	clock      func() time.Time
	metrics    *metrics.Recorder
	limiter    *rate.Limiter
}

func NewRunner(cfg *Config) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}
	workersSet := cfg.Workers > 0
	if !workersSet {
		cfg.Workers = DefaultWorkers
	}

	diag := cfg.Diagnostics
	if diag == nil {
		diag = os.Stderr
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewRecorder()
	}

	r := &Runner{
		config:     cfg,
		workersSet: workersSet,
		diag:       &lockedWriter{w: diag},
		logger:     logger,
		clock:      clock,
		metrics:    recorder,
	}
	if cfg.StartRate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.StartRate), 1)
	}
	return r
}

// Metrics returns the recorder the runner reports spec durations to.
func (r *Runner) Metrics() *metrics.Recorder {
	return r.metrics
}

type RunResult struct {
	ID       uuid.UUID
	Name     string
	Workers  int
	Specs    []*SpecResult
	Started  time.Time
	Duration time.Duration
	Total    int
	Passed   int
	Failed   int
	ExitCode int
	Stats    metrics.Summary
}

type SpecResult struct {
	Index         int
	Name          string
	Options       spec.Options
	Passed        bool
	Aborted       bool
	AssertsPassed int
	AssertsFailed int
	Duration      time.Duration
	// Output is the spec's diagnostic block as written to the stream.
	Output string
}

// settings are the name, pool size and fixtures of one run.
type settings struct {
	name    string
	workers int
	hooks   spec.Hooks
}

// run is the state of one invocation of Run.
type run struct {
	settings
	specs   []spec.Spec
	envs    []*env.Env
	queue   *queue.WorkQueue
	metrics *metrics.Recorder
}

// RunBundle validates the bundle and runs it with the bundle's name, worker
// count and hooks wherever the runner was not configured with its own. The
// Runner's configuration is not modified, so it can run other bundles.
func (r *Runner) RunBundle(b spec.Bundle) (*RunResult, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	st := r.configured()
	if st.name == "" {
		st.name = b.Name
	}
	if b.Jobs > 0 && !r.workersSet {
		st.workers = b.Jobs
	}
	if noHooks(st.hooks) {
		st.hooks = b.Hooks
	}
	return r.execute(b.Specs, st), nil
}

// Run executes every spec exactly once and reports the aggregated result.
// Spec failures are part of the result, never an error.
func (r *Runner) Run(specs []spec.Spec) *RunResult {
	return r.execute(specs, r.configured())
}

func (r *Runner) configured() settings {
	return settings{name: r.config.Name, workers: r.config.Workers, hooks: r.config.Hooks}
}

func (r *Runner) execute(specs []spec.Spec, st settings) *RunResult {
	started := r.clock()
	result := &RunResult{
		ID:      uuid.New(),
		Name:    st.name,
		Workers: st.workers,
		Started: started,
		Total:   len(specs),
	}
	logger := r.logger.With("run", result.ID.String(), "bundle", result.Name)

	rn := &run{
		settings: st,
		specs:    append([]spec.Spec(nil), specs...),
		envs:     make([]*env.Env, len(specs)),
		queue:    queue.New(len(specs)),
		metrics:  metrics.NewRecorder(),
	}
	for i := range rn.envs {
		rn.envs[i] = env.New(r.diag)
	}

	r.diag.WriteString(env.BundleHeader(st.name, st.workers))
	r.once("setup-once", st.hooks.SetupOnce)

	logger.Debug("parallel pass started", "specs", len(specs), "workers", st.workers)
	var g errgroup.Group
	for w := 0; w < st.workers; w++ {
		w := w
		g.Go(func() error {
			n := r.drain(rn, false)
			logger.Debug("worker finished", "worker", w, "claims", n)
			return nil
		})
	}
	_ = g.Wait()

	rn.queue.Reset()
	logger.Debug("serial pass started")
	r.drain(rn, true)

	r.finish(rn, result)
	logger.Debug("run finished", "failed", result.Failed, "duration", result.Duration)
	return result
}

// drain claims indices until the queue is exhausted and returns the number
// of claims it made.
func (r *Runner) drain(rn *run, serialPass bool) int {
	claims := 0
	for {
		i, ok := rn.queue.Claim()
		if !ok {
			return claims
		}
		claims++

		e := rn.envs[i]
		if serialPass {
			e.SetSerialPass(true)
		} else {
			e.Reset()
			e.SetSerialPass(false)
		}
		r.runSpec(rn, rn.specs[i], e)
	}
}

func noHooks(h spec.Hooks) bool {
	return h.Setup == nil && h.Teardown == nil && h.SetupOnce == nil && h.TeardownOnce == nil
}

// throttle blocks until the start limiter admits another spec.
func (r *Runner) throttle() {
	if r.limiter == nil {
		return
	}
	_ = r.limiter.Wait(context.Background())
}

// RunBundle runs specs on a pool of workers, writing to os.Stderr, and
// returns the number of failed specs.
func RunBundle(specs []spec.Spec, workers int) int {
	return NewRunner(&Config{Workers: workers}).Run(specs).ExitCode
}

// lockedWriter serializes writes so concurrent usage errors never
// interleave within a line.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func (l *lockedWriter) WriteString(s string) {
	_, _ = l.Write([]byte(s))
}
