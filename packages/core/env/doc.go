// Package env holds the per-spec execution environment.
//
// An Env is created once per spec index and reused across both scheduling
// passes. It provides:
//   - Assertion counters (passed and failed)
//   - A buffered, append-only output log
//   - The failure and abort flags
//   - An opaque user-data slot for the spec body
//
// The runner binds an Env for the duration of a spec execution and passes it
// explicitly to the spec body and its fixtures. Calling any operation on a
// nil or unbound Env is a usage error: it is reported to the diagnostic
// stream and the call becomes a no-op.
package env
