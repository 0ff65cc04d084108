package cmd

// Exit codes for chlorine CLI. A run that completes exits with its number
// of failed specs, capped at ExitMaxFailures.
const (
	// ExitSuccess indicates all specs passed
	ExitSuccess = 0

	// ExitMaxFailures is the largest failure count reported as an exit code
	ExitMaxFailures = 125

	// ExitError indicates the bundle could not be run, e.g. a configuration
	// error or an invalid bundle
	ExitError = 126
)

// exitCode maps a failed spec count to a process exit status.
func exitCode(failed int) int {
	if failed <= 0 {
		return ExitSuccess
	}
	if failed > ExitMaxFailures {
		return ExitMaxFailures
	}
	return failed
}
