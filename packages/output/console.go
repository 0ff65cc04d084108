package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/abdul-hamid-achik/chlorine/packages/core/runner"
	"github.com/abdul-hamid-achik/chlorine/packages/core/spec"
)

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatResult(result *runner.RunResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n", bold("Bundle: "+result.Name))
	fmt.Fprintf(f.writer, "\n")

	for _, r := range result.Specs {
		symbol := green("✓")
		if !r.Passed {
			symbol = red("✗")
		}

		fmt.Fprintf(f.writer, "  %s %s %s", symbol, r.Name, cyan(fmt.Sprintf("(%.3fms)", millis(r.Duration))))
		if r.Options.Has(spec.Serial) {
			fmt.Fprintf(f.writer, " %s", yellow("[serial]"))
		}
		fmt.Fprintf(f.writer, "\n")

		if f.verbose {
			fmt.Fprintf(f.writer, "    Assertions: %d passed, %d failed\n", r.AssertsPassed, r.AssertsFailed)
		}

		if !r.Passed {
			for _, line := range failureLines(r.Output) {
				fmt.Fprintf(f.writer, "    %s %s\n", red("→"), line)
			}
		}
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Specs: ")
	if result.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", result.Passed)))
	}
	if result.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", result.Failed)))
	}
	fmt.Fprintf(f.writer, "%d total\n", result.Total)
	if result.Stats.Executed > 0 {
		fmt.Fprintf(f.writer, "Timing: p50 %.3fms, p95 %.3fms, p99 %.3fms, max %.3fms\n",
			millis(result.Stats.P50), millis(result.Stats.P95), millis(result.Stats.P99), millis(result.Stats.Max))
	}
	fmt.Fprintf(f.writer, "Time:  %dms\n", result.Duration.Milliseconds())
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("chlorine"), version)
}
