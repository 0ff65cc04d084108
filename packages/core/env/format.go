package env

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
)

const tab = "        "

// Separator closes every spec's output block.
var Separator = strings.Repeat("=", 54) + "\n\n"

var (
	infoTag    = color.New(color.Bold, color.FgCyan).SprintFunc()
	errorTag   = color.New(color.Bold, color.FgYellow).SprintFunc()
	passTag    = color.New(color.Bold, color.FgGreen).SprintFunc()
	failTag    = color.New(color.Bold, color.FgRed).SprintFunc()
	cyanBold   = color.New(color.FgCyan, color.Bold).SprintFunc()
	redBold    = color.New(color.FgRed, color.Bold).SprintFunc()
	green      = color.New(color.FgGreen).SprintFunc()
	red        = color.New(color.FgRed).SprintFunc()
	blue       = color.New(color.FgBlue).SprintFunc()
	successTag = color.New(color.Bold, color.FgGreen).SprintFunc()
)

// InfoLine formats an unindented informational line.
func InfoLine(format string, args ...any) string {
	return infoTag("[INFO]") + " " + fmt.Sprintf(format, args...)
}

// ErrorLine formats an unindented error line.
func ErrorLine(format string, args ...any) string {
	return errorTag("[ERROR]") + " " + fmt.Sprintf(format, args...)
}

// BundleHeader is written to the diagnostic stream before any spec runs.
func BundleHeader(name string, workers int) string {
	return InfoLine("Running BUNDLE: %s\n", name) + InfoLine("Using %d workers\n\n", workers)
}

// SummaryLine is the final line of a run.
func SummaryLine(failed, total int, elapsed time.Duration) string {
	passed := total - failed
	paint, tag := green, successTag("[SUCCESS]")
	if failed > 0 {
		paint, tag = red, failTag("[FAILURE]")
	}
	return fmt.Sprintf("%s %s, %s in %.4f s\n\n",
		tag,
		paint(fmt.Sprintf("%d/%d SPECS failed", failed, total)),
		paint(fmt.Sprintf("%d/%d SPECS passed", passed, total)),
		elapsed.Seconds())
}

func executingLine(name string) string {
	return InfoLine("Executing SPEC => %s\n\n", cyanBold(name))
}

func passLine(format string, args ...any) string {
	return tab + passTag("[PASS] ") + " " + fmt.Sprintf(format, args...)
}

func failLine(format string, args ...any) string {
	return tab + failTag("[FAIL] ") + " " + fmt.Sprintf(format, args...)
}

func logLine(format string, args ...any) string {
	return tab + failTag("[LOG]  ") + " " + fmt.Sprintf(format, args...) + "\n"
}

func resultLine(failed bool, elapsed time.Duration, numFailed, numPassed int) string {
	total := numFailed + numPassed
	if failed {
		return failLine("Failed SPEC in %.4f s -> %s, %s\n\n", elapsed.Seconds(),
			red(fmt.Sprintf("%d/%d fail", numFailed, total)),
			red(fmt.Sprintf("%d/%d pass", numPassed, total)))
	}
	return passLine("Passed SPEC in %.4f s -> %s, %s\n\n", elapsed.Seconds(),
		green(fmt.Sprintf("%d/%d fail", numFailed, total)),
		green(fmt.Sprintf("%d/%d pass", numPassed, total)))
}

func assertionLine(expr, file string, line int, msg string) string {
	var b strings.Builder
	b.WriteString(tab + errorTag("[ERROR]") + " ")
	b.WriteString("Assertion Failed: " + redBold(expr) + "\n")
	fmt.Fprintf(&b, "%s%sin %s:%d\n", tab, tab, filepath.Base(file), line)
	b.WriteString(tab + tab + blue(msg) + "\n\n")
	return b.String()
}

func usageLine(op, file string, line int) string {
	return fmt.Sprintf("%s Detecting call to %s() from outside the scope of a SPEC at %s:%d\n\n",
		errorTag("[ERROR]"), op, filepath.Base(file), line)
}
