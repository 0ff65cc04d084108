package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/acarl005/stripansi"

	"github.com/abdul-hamid-achik/chlorine/packages/core/runner"
)

// Formatter interface for all output formatters
type Formatter interface {
	FormatResult(result *runner.RunResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable interface for formatters that need to flush output
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// Formats lists the names accepted by New.
var Formats = []string{"console", "json", "junit", "tap"}

// New returns the formatter for format writing to w.
func New(format string, w io.Writer, verbose bool) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "console":
		return NewConsoleFormatter(WithWriter(w), WithVerbose(verbose)), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(w)), nil
	case "junit":
		return NewJUnitFormatter(JUnitWithWriter(w)), nil
	case "tap":
		return NewTAPFormatter(TAPWithWriter(w)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// plain strips color codes from a spec's diagnostic block.
func plain(s string) string {
	return stripansi.Strip(s)
}

// failureLines returns the error and failure lines of a spec's diagnostic
// block, without indentation or color.
func failureLines(output string) []string {
	var lines []string
	for _, line := range strings.Split(plain(output), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[ERROR]") || (strings.HasPrefix(line, "[FAIL]") && !strings.Contains(line, "Failed SPEC in")) {
			lines = append(lines, line)
		}
	}
	return lines
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
