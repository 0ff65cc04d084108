package runner

import (
	"runtime/debug"

	"github.com/abdul-hamid-achik/chlorine/packages/core/env"
	"github.com/abdul-hamid-achik/chlorine/packages/core/spec"
)

// executes reports whether a spec runs in the given pass. Serial specs run
// only in the serial pass and every other spec only in the parallel pass.
func executes(s spec.Spec, serialPass bool) bool {
	return s.Options.Has(spec.Serial) == serialPass
}

// runSpec runs the fixtures and body of s against e, or nothing when the
// spec belongs to the other pass.
func (r *Runner) runSpec(rn *run, s spec.Spec, e *env.Env) {
	if !executes(s, e.SerialPass()) {
		return
	}
	if !e.SerialPass() {
		r.throttle()
	}

	hooks := rn.hooks
	e.Bind()
	defer e.Unbind()
	e.Start(s.Name)

	// a setup that aborts or panics skips the body
	ready := true
	if hooks.Setup != nil && !s.Options.Has(spec.SkipSetup) {
		ready = guard(e, "setup", hooks.Setup)
	}
	if ready && s.Setup != nil {
		ready = guard(e, "spec setup", s.Setup)
	}

	start := r.clock()
	if ready {
		guard(e, "body", s.Body)
	}
	elapsed := r.clock().Sub(start)

	if s.Teardown != nil {
		guard(e, "spec teardown", s.Teardown)
	}
	if hooks.Teardown != nil && !s.Options.Has(spec.SkipTeardown) {
		guard(e, "teardown", hooks.Teardown)
	}

	e.Finish(elapsed)
	rn.metrics.Record(s.Name, elapsed, e.Failed())
	r.metrics.Record(s.Name, elapsed, e.Failed())
}

// guard calls f and recovers an abort or an unexpected panic, which fails
// only the current spec. It reports whether f returned normally.
func guard(e *env.Env, stage string, f spec.Func) (completed bool) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		completed = false
		if !env.IsAbort(v) {
			e.Panicked(stage, v, debug.Stack())
		}
	}()
	f(e)
	return true
}

// once runs a setup-once or teardown-once fixture. A panic is reported to
// the diagnostic stream and does not stop the run.
func (r *Runner) once(stage string, f func()) {
	if f == nil {
		return
	}
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("fixture panicked", "stage", stage, "panic", v)
			r.diag.WriteString(env.ErrorLine("Panicked in %s: %v\n\n", stage, v))
		}
	}()
	f()
}
