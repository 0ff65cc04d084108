package env

import (
	"fmt"
	"os"
	"reflect"
	"runtime"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

// Assert counts cond as a passed or failed assertion. A failure appends the
// asserting expression and its location to the spec output; execution of the
// spec body continues either way.
func (e *Env) Assert(cond bool) bool {
	if !e.usable("Assert") {
		return false
	}
	return e.assert(cond, "", "")
}

// Assertf is Assert with a message appended to the failure diagnostic.
func (e *Env) Assertf(cond bool, format string, args ...any) bool {
	if !e.usable("Assertf") {
		return false
	}
	return e.assert(cond, "", fmt.Sprintf(format, args...))
}

// AssertJSON asserts that the value at path in the JSON document equals want.
// Paths use gjson syntax, e.g. "items.#" or "user.name".
func (e *Env) AssertJSON(doc, path string, want any) bool {
	if !e.usable("AssertJSON") {
		return false
	}
	expr := fmt.Sprintf("%s == %#v", path, want)
	if !gjson.Valid(doc) {
		return e.assert(false, expr, "document is not valid JSON")
	}
	got := gjson.Get(doc, path)
	if !got.Exists() {
		return e.assert(false, expr, fmt.Sprintf("path %q not found", path))
	}
	if jsonEqual(got, want) {
		return e.assert(true, expr, "")
	}
	return e.assert(false, expr, fmt.Sprintf("got %s", got.Raw))
}

// assert must be called directly from an exported assertion method so the
// caller frame points at the spec body.
func (e *Env) assert(cond bool, expr, msg string) bool {
	var file string
	var line int
	if !cond {
		_, file, line, _ = runtime.Caller(2)
		if expr == "" {
			expr = expression(file, line)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if cond {
		e.numPassed++
		return true
	}
	e.numFailed++
	e.out.WriteString(assertionLine(expr, file, line, msg))
	return false
}

func jsonEqual(got gjson.Result, want any) bool {
	switch w := want.(type) {
	case nil:
		return got.Type == gjson.Null
	case string:
		return got.Type == gjson.String && got.Str == w
	case bool:
		return (got.Type == gjson.True || got.Type == gjson.False) && got.Bool() == w
	case int:
		return got.Type == gjson.Number && got.Num == float64(w)
	case int64:
		return got.Type == gjson.Number && got.Num == float64(w)
	case float64:
		return got.Type == gjson.Number && got.Num == w
	default:
		return reflect.DeepEqual(got.Value(), want)
	}
}

var sourceCache sync.Map // file -> []string

// expression returns the argument of the assertion call at file:line, or the
// trimmed source line when it cannot be isolated.
func expression(file string, line int) string {
	lines := sourceLines(file)
	if line < 1 || line > len(lines) {
		return "<unknown>"
	}
	src := strings.TrimSpace(lines[line-1])
	if arg := callArgument(src); arg != "" {
		return arg
	}
	return src
}

func sourceLines(file string) []string {
	if cached, ok := sourceCache.Load(file); ok {
		return cached.([]string)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		sourceCache.Store(file, []string(nil))
		return nil
	}
	lines := strings.Split(string(data), "\n")
	sourceCache.Store(file, lines)
	return lines
}

// callArgument extracts the first argument of an Assert or Assertf call.
func callArgument(src string) string {
	i := strings.Index(src, ".Assert")
	if i < 0 {
		return ""
	}
	open := strings.IndexByte(src[i:], '(')
	if open < 0 {
		return ""
	}
	start := i + open + 1

	depth := 0
	var quote byte
	for j := start; j < len(src); j++ {
		c := src[j]
		if quote != 0 {
			if c == '\\' && quote != '`' {
				j++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth == 0 {
				return strings.TrimSpace(src[start:j])
			}
			depth--
		case ',':
			if depth == 0 {
				return strings.TrimSpace(src[start:j])
			}
		}
	}
	return ""
}
