// Package engine wraps a single embedded JavaScript runtime behind a
// blocking evaluate call. One Engine is constructed per console session
// and never shared or reused; the runtime's global state (declared
// variables, host bindings) must not leak between unrelated clients.
package engine

import (
	"fmt"

	"github.com/dop251/goja"
)

// NoValue is the textual form the runtime produces for a valueless
// evaluation. Callers that render results strip it rather than printing
// a placeholder token.
const NoValue = "undefined"

// Output is the capability exposed into the runtime for script output.
// Implementations must tolerate being called at arbitrary points during
// an evaluation and must never block the evaluating script.
type Output interface {
	Log(msg string)
	Warn(msg string)
	Error(msg string)
}

// bridgeName is the global under which the Output capability is
// registered inside the runtime.
const bridgeName = "repl"

// prelude routes the conventional script output statements to the host
// bridge instead of any runtime-default sink.
const prelude = `
var console = {
	log: function (msg) { repl.log(String(msg)); },
	warn: function (msg) { repl.warn(String(msg)); },
	error: function (msg) { repl.error(String(msg)); }
};
var print = console.log;
`

// Engine owns one JavaScript runtime instance.
type Engine struct {
	vm  *goja.Runtime
	out Output
}

// New constructs a fresh runtime, registers out as the script-callable
// bridge and installs the console wrappers. The bridge methods are
// registered under both casings (log/Log, warn/Warn, error/Error); the
// two forms are aliases of the same three operations.
func New(out Output) (*Engine, error) {
	vm := goja.New()
	e := &Engine{vm: vm, out: out}

	bridge := vm.NewObject()
	type method struct {
		names []string
		fn    func(string)
	}
	for _, m := range []method{
		{[]string{"log", "Log"}, out.Log},
		{[]string{"warn", "Warn"}, out.Warn},
		{[]string{"error", "Error"}, out.Error},
	} {
		fn := m.fn
		call := func(c goja.FunctionCall) goja.Value {
			fn(argText(c))
			return goja.Undefined()
		}
		for _, name := range m.names {
			if err := bridge.Set(name, call); err != nil {
				return nil, fmt.Errorf("failed to register bridge method %s: %w", name, err)
			}
		}
	}

	if err := vm.Set(bridgeName, bridge); err != nil {
		return nil, fmt.Errorf("failed to register bridge object: %w", err)
	}

	if _, err := vm.RunString(prelude); err != nil {
		return nil, fmt.Errorf("failed to install console wrappers: %w", err)
	}

	return e, nil
}

// Evaluate runs src in the engine's runtime and returns the textual form
// of the resulting value. Script exceptions and runtime panics are
// captured and returned as errors; they never propagate to the caller's
// goroutine.
func (e *Engine) Evaluate(src string) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal evaluator fault: %v", r)
		}
	}()

	value, runErr := e.vm.RunString(src)
	if runErr != nil {
		return "", evalError(runErr)
	}
	if value == nil {
		return NoValue, nil
	}
	return value.String(), nil
}

// evalError extracts the script-level message from a runtime error. A
// thrown JS exception reports its thrown value's text; anything else
// (syntax errors, interrupts) reports the error text as-is.
func evalError(err error) error {
	if ex, ok := err.(*goja.Exception); ok {
		return fmt.Errorf("%s", ex.Value().String())
	}
	return err
}

func argText(c goja.FunctionCall) string {
	if len(c.Arguments) == 0 {
		return ""
	}
	return c.Arguments[0].String()
}
