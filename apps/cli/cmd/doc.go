// Package cmd implements the chlorine CLI commands using Cobra.
//
// Available commands:
//   - run: Execute the built-in spec bundle
//   - list: Display the specs of the bundle and their options
//   - history: Show past runs recorded in the history database
//   - version: Show chlorine version information
//
// The run command exits with the number of failed specs, so a shell or CI
// job sees zero only when every spec passed.
package cmd
