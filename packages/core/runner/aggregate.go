package runner

import (
	"github.com/abdul-hamid-achik/chlorine/packages/core/env"
)

// finish drains every Env in spec order, runs the teardown-once fixture and
// writes the summary line. It must only be called after both passes.
func (r *Runner) finish(rn *run, result *RunResult) {
	result.Specs = make([]*SpecResult, len(rn.envs))
	for i, e := range rn.envs {
		out := e.Output()
		if len(out) > 0 {
			_, _ = r.diag.Write(out)
		}

		passed, failed := e.Counts()
		sr := &SpecResult{
			Index:         i,
			Name:          rn.specs[i].Name,
			Options:       rn.specs[i].Options,
			Passed:        !e.Failed(),
			Aborted:       e.Aborted(),
			AssertsPassed: passed,
			AssertsFailed: failed,
			Duration:      e.Elapsed(),
			Output:        string(out),
		}
		result.Specs[i] = sr
		if sr.Passed {
			result.Passed++
		} else {
			result.Failed++
		}
		e.Release()
	}

	r.once("teardown-once", rn.hooks.TeardownOnce)

	result.Duration = r.clock().Sub(result.Started)
	r.diag.WriteString(env.SummaryLine(result.Failed, result.Total, result.Duration))
	result.ExitCode = result.Failed
	result.Stats = rn.metrics.Summary()
}
