package env

import (
	"bytes"
	"io"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

var (
	diagMu  sync.Mutex
	diagOut io.Writer = os.Stderr
)

// SetDiagnostics replaces the process-wide stream that receives usage errors
// raised on a nil Env. It returns the previous writer.
func SetDiagnostics(w io.Writer) io.Writer {
	diagMu.Lock()
	defer diagMu.Unlock()
	prev := diagOut
	diagOut = w
	return prev
}

// Env is the mutable execution context of one spec.
type Env struct {
	mu sync.Mutex

	name       string
	serialPass bool
	failed     bool
	aborted    bool
	numPassed  int
	numFailed  int
	elapsed    time.Duration
	out        bytes.Buffer
	userData   any

	bound atomic.Bool
	diag  io.Writer
}

// New returns an unbound Env whose usage errors go to diag.
func New(diag io.Writer) *Env {
	return &Env{diag: diag}
}

// Reset clears every field except the diagnostic writer.
func (e *Env) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.name = ""
	e.serialPass = false
	e.failed = false
	e.aborted = false
	e.numPassed = 0
	e.numFailed = 0
	e.elapsed = 0
	e.out.Reset()
	e.userData = nil
}

// Bind makes the Env usable by the spec body.
func (e *Env) Bind() { e.bound.Store(true) }

// Unbind ends the current execution. Later calls are usage errors.
func (e *Env) Unbind() { e.bound.Store(false) }

// Bound reports whether a spec execution currently owns the Env.
func (e *Env) Bound() bool { return e != nil && e.bound.Load() }

// usable reports a usage error for op when e is nil or unbound.
func (e *Env) usable(op string) bool {
	if e.Bound() {
		return true
	}
	_, file, line, _ := runtime.Caller(2)
	msg := usageLine(op, file, line)
	if e != nil && e.diag != nil {
		_, _ = io.WriteString(e.diag, msg)
		return false
	}
	diagMu.Lock()
	_, _ = io.WriteString(diagOut, msg)
	diagMu.Unlock()
	return false
}

func (e *Env) appendString(s string) {
	e.mu.Lock()
	e.out.WriteString(s)
	e.mu.Unlock()
}

// Start records the spec name and writes the executing banner.
func (e *Env) Start(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.name = name
	e.out.WriteString(executingLine(name))
}

// Finish stores the elapsed time and closes the block with the separator.
// Unless the spec aborted, the pass/fail summary precedes it. A non-zero
// failed counter sets the failure flag.
func (e *Env) Finish(elapsed time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.elapsed = elapsed
	if e.numFailed > 0 {
		e.failed = true
	}
	if !e.aborted {
		e.out.WriteString(resultLine(e.failed, elapsed, e.numFailed, e.numPassed))
	}
	e.out.WriteString(Separator)
}

// Panicked marks the spec failed after an unexpected panic in stage.
func (e *Env) Panicked(stage string, v any, stack []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.failed = true
	e.out.WriteString(failLine("Panicked in %s: %v\n", stage, v))
	if len(stack) > 0 {
		e.out.WriteString(tab + tab + string(bytes.ReplaceAll(bytes.TrimSpace(stack), []byte("\n"), []byte("\n"+tab+tab))) + "\n")
	}
	e.out.WriteString("\n")
}

// Output returns a copy of the buffered output.
func (e *Env) Output() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return bytes.Clone(e.out.Bytes())
}

// Release drops the output buffer.
func (e *Env) Release() {
	e.mu.Lock()
	e.out = bytes.Buffer{}
	e.mu.Unlock()
}

// SerialPass reports whether the Env was last claimed in the serial pass.
func (e *Env) SerialPass() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.serialPass
}

// SetSerialPass sets the pass marker.
func (e *Env) SetSerialPass(serial bool) {
	e.mu.Lock()
	e.serialPass = serial
	e.mu.Unlock()
}

// Failed reports the failure flag without a usage check.
func (e *Env) Failed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failed
}

// Aborted reports whether the spec body called Abort.
func (e *Env) Aborted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.aborted
}

// Elapsed returns the duration recorded by Finish.
func (e *Env) Elapsed() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsed
}

// Counts returns the passed and failed assertion counters without a usage check.
func (e *Env) Counts() (passed, failed int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.numPassed, e.numFailed
}

// Name returns the name of the running spec.
func (e *Env) Name() string {
	if !e.usable("Name") {
		return ""
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.name
}

// NumPassed returns the number of passed assertions so far.
func (e *Env) NumPassed() int {
	if !e.usable("NumPassed") {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.numPassed
}

// NumFailed returns the number of failed assertions so far.
func (e *Env) NumFailed() int {
	if !e.usable("NumFailed") {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.numFailed
}

// HasFailed reports whether the spec has failed so far, either through a
// failed assertion or an explicit failure.
func (e *Env) HasFailed() bool {
	if !e.usable("HasFailed") {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failed || e.numFailed > 0
}

// IsParallel reports false when the spec runs in the serial pass.
func (e *Env) IsParallel() bool {
	if !e.usable("IsParallel") {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.serialPass
}

// UserData returns the value stored with SetUserData.
func (e *Env) UserData() any {
	if !e.usable("UserData") {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.userData
}

// SetUserData stores a spec-specific value, typically from a setup fixture.
func (e *Env) SetUserData(v any) {
	if !e.usable("SetUserData") {
		return
	}
	e.mu.Lock()
	e.userData = v
	e.mu.Unlock()
}

// Log writes a message to the spec's output.
func (e *Env) Log(format string, args ...any) {
	if !e.usable("Log") {
		return
	}
	e.appendString(logLine(format, args...))
}

type abortSignal struct{}

// IsAbort reports whether a recovered panic value came from Abort.
func IsAbort(v any) bool {
	_, ok := v.(abortSignal)
	return ok
}

// Abort fails the spec and stops the body. Teardown fixtures still run.
// It must be called from the goroutine running the spec body.
func (e *Env) Abort() {
	if !e.usable("Abort") {
		return
	}
	e.mu.Lock()
	e.failed = true
	e.aborted = true
	e.out.WriteString(failLine("Aborted\n\n"))
	e.mu.Unlock()
	panic(abortSignal{})
}
