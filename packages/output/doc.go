// Package output provides report formatters for run results.
//
// Supported output formats:
//   - Console: a colored per-spec summary with timing percentiles
//   - JSON: Machine-readable JSON output
//   - JUnit: JUnit XML format for CI integration
//   - TAP: Test Anything Protocol format
//
// The diagnostic stream written by the runner is independent of these
// reports. Formatters that accumulate results implement Flushable.
package output
