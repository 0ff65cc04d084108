package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/chlorine/packages/core/runner"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary  JSONSummary `json:"summary"`
	Runs     []JSONRun   `json:"runs"`
	Duration float64     `json:"duration"`
	Time     string      `json:"time"`
}

// JSONSummary represents the totals across every run
type JSONSummary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// JSONRun represents one execution of a bundle
type JSONRun struct {
	ID       string     `json:"id"`
	Bundle   string     `json:"bundle"`
	Workers  int        `json:"workers"`
	Started  string     `json:"started"`
	Duration float64    `json:"duration"`
	ExitCode int        `json:"exitCode"`
	Stats    JSONStats  `json:"stats"`
	Specs    []JSONSpec `json:"specs"`
}

// JSONStats represents spec duration percentiles in milliseconds
type JSONStats struct {
	Min  float64 `json:"min"`
	Mean float64 `json:"mean"`
	P50  float64 `json:"p50"`
	P95  float64 `json:"p95"`
	P99  float64 `json:"p99"`
	Max  float64 `json:"max"`
}

// JSONSpec represents a single spec result
type JSONSpec struct {
	Index         int      `json:"index"`
	Name          string   `json:"name"`
	Options       string   `json:"options"`
	Passed        bool     `json:"passed"`
	Aborted       bool     `json:"aborted,omitempty"`
	AssertsPassed int      `json:"assertsPassed"`
	AssertsFailed int      `json:"assertsFailed"`
	Duration      float64  `json:"duration"`
	Failures      []string `json:"failures,omitempty"`
	Output        string   `json:"output,omitempty"`
}

// JSONFormatter formats run results as JSON
type JSONFormatter struct {
	writer io.Writer
	runs   []JSONRun
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
		runs:   make([]JSONRun, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatResult(result *runner.RunResult) {
	run := JSONRun{
		ID:       result.ID.String(),
		Bundle:   result.Name,
		Workers:  result.Workers,
		Started:  result.Started.Format(time.RFC3339),
		Duration: millis(result.Duration),
		ExitCode: result.ExitCode,
		Stats: JSONStats{
			Min:  millis(result.Stats.Min),
			Mean: millis(result.Stats.Mean),
			P50:  millis(result.Stats.P50),
			P95:  millis(result.Stats.P95),
			P99:  millis(result.Stats.P99),
			Max:  millis(result.Stats.Max),
		},
		Specs: make([]JSONSpec, 0, len(result.Specs)),
	}

	for _, r := range result.Specs {
		s := JSONSpec{
			Index:         r.Index,
			Name:          r.Name,
			Options:       r.Options.String(),
			Passed:        r.Passed,
			Aborted:       r.Aborted,
			AssertsPassed: r.AssertsPassed,
			AssertsFailed: r.AssertsFailed,
			Duration:      millis(r.Duration),
		}
		// the full block is only kept for failures
		if !r.Passed {
			s.Failures = failureLines(r.Output)
			s.Output = plain(r.Output)
		}
		run.Specs = append(run.Specs, s)
	}

	f.runs = append(f.runs, run)
}

func (f *JSONFormatter) FormatError(err error) {
	// Errors are reported on the diagnostic stream
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	var summary JSONSummary
	for _, run := range f.runs {
		for _, s := range run.Specs {
			summary.Total++
			if s.Passed {
				summary.Passed++
			} else {
				summary.Failed++
			}
		}
	}

	output := JSONOutput{
		Summary:  summary,
		Runs:     f.runs,
		Duration: millis(totalDuration),
		Time:     time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
