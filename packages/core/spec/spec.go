// Package spec defines the registration surface of a bundle: named spec
// bodies, their options, and the process-wide fixtures.
//
// A bundle is assembled once before a run and is read-only afterwards.
package spec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/chlorine/packages/core/env"
)

// DefaultJobs is the worker count of a parallel bundle built without one.
const DefaultJobs = 4

var (
	// ErrInvalidSpec is returned for a spec without a name or body.
	ErrInvalidSpec = errors.New("invalid spec")
	// ErrDuplicateSpec is returned when two specs share a name.
	ErrDuplicateSpec = errors.New("duplicate spec name")
)

// Options is a combinable set of per-spec flags.
type Options uint8

const (
	OptionNone Options = 0
	// SkipSetup does not run the bundle's default setup fixture.
	SkipSetup Options = 1 << 0
	// SkipTeardown does not run the bundle's default teardown fixture.
	SkipTeardown Options = 1 << 1
	// SkipSetupAndTeardown skips both default fixtures.
	SkipSetupAndTeardown = SkipSetup | SkipTeardown
	// Serial defers the spec to the single-threaded pass that runs after
	// every parallel spec has finished.
	Serial Options = 1 << 2
)

var optionNames = []struct {
	flag Options
	name string
}{
	{SkipSetup, "skip-setup"},
	{SkipTeardown, "skip-teardown"},
	{Serial, "serial"},
}

// Has reports whether every bit of flag is set.
func (o Options) Has(flag Options) bool {
	return o&flag == flag
}

func (o Options) String() string {
	var parts []string
	for _, n := range optionNames {
		if o.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ParseOptions parses the form produced by Options.String.
func ParseOptions(s string) (Options, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "none" {
		return OptionNone, nil
	}
	var o Options
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		found := false
		for _, n := range optionNames {
			if n.name == part {
				o |= n.flag
				found = true
				break
			}
		}
		if !found {
			return OptionNone, fmt.Errorf("unknown option %q", part)
		}
	}
	return o, nil
}

// Func is a spec body or fixture. The Env is bound for the duration of the call.
type Func func(e *env.Env)

// Spec is one named, independent unit of test logic.
type Spec struct {
	Name     string
	Body     Func
	Setup    Func
	Teardown Func
	Options  Options
}

// SpecOption configures a Spec built with New.
type SpecOption func(*Spec)

// WithSetup registers a fixture run before the body, after the default setup.
func WithSetup(f Func) SpecOption {
	return func(s *Spec) {
		s.Setup = f
	}
}

// WithTeardown registers a fixture run after the body, before the default teardown.
func WithTeardown(f Func) SpecOption {
	return func(s *Spec) {
		s.Teardown = f
	}
}

// WithOptions adds option flags.
func WithOptions(o Options) SpecOption {
	return func(s *Spec) {
		s.Options |= o
	}
}

// New builds a Spec.
func New(name string, body Func, opts ...SpecOption) Spec {
	s := Spec{Name: name, Body: body}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Hooks are the four process-wide fixtures of a bundle. Setup and Teardown
// run around every executing spec unless its options skip them; SetupOnce
// runs before any spec and TeardownOnce after all output is collected.
type Hooks struct {
	Setup        Func
	Teardown     Func
	SetupOnce    func()
	TeardownOnce func()
}

// Bundle is the static list of specs handed to the runner.
type Bundle struct {
	Name  string
	Jobs  int
	Specs []Spec
	Hooks Hooks
}

// NewBundle returns a bundle that runs on a single worker.
func NewBundle(name string, specs ...Spec) Bundle {
	return Bundle{Name: name, Jobs: 1, Specs: specs}
}

// NewParallelBundle returns a bundle with a pool of jobs workers.
func NewParallelBundle(name string, jobs int, specs ...Spec) Bundle {
	if jobs <= 0 {
		jobs = DefaultJobs
	}
	return Bundle{Name: name, Jobs: jobs, Specs: specs}
}

// Validate checks that every spec is named, has a body, and that names are unique.
func (b Bundle) Validate() error {
	seen := make(map[string]int, len(b.Specs))
	for i, s := range b.Specs {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("spec #%d: %w: empty name", i, ErrInvalidSpec)
		}
		if s.Body == nil {
			return fmt.Errorf("spec %q: %w: nil body", s.Name, ErrInvalidSpec)
		}
		if prev, ok := seen[s.Name]; ok {
			return fmt.Errorf("spec %q at #%d and #%d: %w", s.Name, prev, i, ErrDuplicateSpec)
		}
		seen[s.Name] = i
	}
	return nil
}

// Serial returns the number of serial-only specs.
func (b Bundle) Serial() int {
	n := 0
	for _, s := range b.Specs {
		if s.Options.Has(Serial) {
			n++
		}
	}
	return n
}
