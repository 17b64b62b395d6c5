// Package engine evaluates mesh-building Lisp scripts. It wraps zygomys in
// a sandboxed environment and collects the meshes a script defines into a
// Scene.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chazu/dlfl/pkg/dlfl"
	"github.com/chazu/dlfl/pkg/hull"
	"github.com/chazu/dlfl/pkg/kernel"
	"github.com/chazu/dlfl/pkg/kernel/sdfx"
	"github.com/chazu/dlfl/pkg/meshio"
	"github.com/chazu/dlfl/pkg/pool"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Options configures an Engine. The zero value is usable.
type Options struct {
	// Kernel builds solids. Nil means an sdfx kernel at its default
	// resolution.
	Kernel kernel.Kernel
	// Timeout bounds a single evaluation. Zero means EvalTimeout.
	Timeout time.Duration
	// Weld is the vertex merge distance used when polygonized solids are
	// turned into meshes. Zero means meshio.DefaultWeld.
	Weld float64
	// Epsilon is the hull builder's visibility tolerance. Zero means
	// hull.DefaultEpsilon.
	Epsilon float64
	// Pool options apply to every mesh a script creates.
	Pool []pool.Option
	// Logger receives evaluation logs. Nil means slog.Default().
	Logger *slog.Logger
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use; each
// call to Evaluate creates a fresh sandboxed environment and a fresh ID
// session, so repeated evaluations of the same source are identical.
type Engine struct {
	gen  generation
	opts Options
	log  *slog.Logger
}

// NewEngine creates a new Engine.
func NewEngine(opts Options) *Engine {
	if opts.Kernel == nil {
		opts.Kernel = sdfx.New()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = EvalTimeout
	}
	if opts.Weld <= 0 {
		opts.Weld = meshio.DefaultWeld
	}
	if opts.Epsilon <= 0 {
		opts.Epsilon = hull.DefaultEpsilon
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{opts: opts, log: log}
}

// Evaluate runs source and returns the meshes it defined.
//
// Return semantics:
//   - On success: returns scene + nil errors + nil error
//   - On parse/eval failure: returns nil scene + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Scene, []EvalError, error) {
	return e.EvaluateContext(context.Background(), source)
}

// EvaluateContext is Evaluate with cancellation. Canceling ctx abandons the
// evaluation; the interpreter goroutine runs on until the script ends.
func (e *Engine) EvaluateContext(ctx context.Context, source string) (*Scene, []EvalError, error) {
	gen := e.gen.next()
	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		sc, evalErrs, err := e.evaluate(source)
		ch <- evalResult{scene: sc, errors: evalErrs, err: err}
	}()

	return e.gen.wait(ctx, ch, gen, e.opts.Timeout)
}

func (e *Engine) evaluate(source string) (*Scene, []EvalError, error) {
	sc := newScene(dlfl.NewSession())

	// Empty source is a valid program that produces an empty scene.
	if strings.TrimSpace(source) == "" {
		return sc, nil, nil
	}

	start := time.Now()

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, &builder{opts: e.opts, scene: sc, log: e.log})

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		evalErrs := parseZygomysError(err)
		e.log.Debug("engine: evaluation failed", "error", evalErrs[0].Message, "line", evalErrs[0].Line)
		return nil, evalErrs, nil
	}

	e.log.Debug("engine: evaluated", "meshes", sc.Len(), "elapsed", time.Since(start))
	return sc, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values,
// extracting a line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
