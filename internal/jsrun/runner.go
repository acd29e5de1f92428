// Package jsrun executes playground scripts in an isolated goja runtime and
// routes their console output into a log sink.
package jsrun

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/google/uuid"

	"pkt.systems/potatopad/core"
	"pkt.systems/potatopad/internal/logx"
	"pkt.systems/potatopad/schema"
	"pkt.systems/pslog"
)

// Console receives the log entries produced by a run.
type Console interface {
	ClearConsole()
	AddLog(kind schema.LogKind, text string)
}

// DefaultMaxCallStackSize bounds recursion when Config leaves it unset.
// goja's own limit is effectively unbounded.
const DefaultMaxCallStackSize = 10000

// Config tunes the runtime.
type Config struct {
	// MaxCallStackSize caps JS recursion depth. Zero means DefaultMaxCallStackSize.
	MaxCallStackSize int
}

// Result summarizes a finished run.
type Result struct {
	RunID    schema.RunID  `json:"run_id"`
	Failed   bool          `json:"failed"`
	Entries  int           `json:"entries"`
	Duration time.Duration `json:"duration"`
}

// Runner executes scripts one at a time.
type Runner struct {
	cfg     Config
	running atomic.Bool
}

// New constructs a Runner.
func New(cfg Config) *Runner {
	if cfg.MaxCallStackSize <= 0 {
		cfg.MaxCallStackSize = DefaultMaxCallStackSize
	}
	return &Runner{cfg: cfg}
}

// Run evaluates the editor text. Script failures are reported through the
// console, not the returned error. A nil editor is a no-op.
func (r *Runner) Run(ctx context.Context, editor core.Editor, console Console) (Result, error) {
	if editor == nil {
		return Result{}, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !r.running.CompareAndSwap(false, true) {
		pslog.Ctx(ctx).Warn("run rejected", "reason", "busy")
		return Result{}, schema.ErrRunBusy
	}
	defer r.running.Store(false)

	runID := schema.RunID(uuid.NewString())
	log := logx.WithRun(ctx, runID)
	ctx = logx.ContextWithRunLogger(ctx, log, runID)
	start := time.Now()

	code := editor.Value()
	console.ClearConsole()
	log.Debug("run start", "bytes", len(code))

	counter := &countingConsole{Console: console}
	err := r.evaluate(ctx, code, counter, log)
	res := Result{RunID: runID, Duration: time.Since(start)}
	if err != nil {
		res.Failed = true
		counter.AddLog(schema.LogError, errorText(err))
		log.Info("run failed", "err", err, "duration_ms", res.Duration.Milliseconds())
	} else {
		counter.AddLog(schema.LogSystem, schema.CompletionMessage)
		log.Info("run ok", "duration_ms", res.Duration.Milliseconds())
	}
	res.Entries = counter.entries
	return res, nil
}

// Busy reports whether a run is in flight.
func (r *Runner) Busy() bool {
	return r.running.Load()
}

func (r *Runner) evaluate(ctx context.Context, code string, console Console, log pslog.Logger) error {
	vm := goja.New()
	vm.SetMaxCallStackSize(r.cfg.MaxCallStackSize)
	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ctx.Err())
	})
	defer stop()
	if err := ctx.Err(); err != nil {
		return err
	}

	consoleObj := newConsole(vm, console, log)

	// Only the console parameter is in scope; the runtime has no host bindings.
	fn, err := vm.New(vm.Get("Function"), vm.ToValue("console"), vm.ToValue(code))
	if err != nil {
		return err
	}
	call, ok := goja.AssertFunction(fn)
	if !ok {
		return errors.New("compiled script is not callable")
	}
	_, err = call(goja.Undefined(), consoleObj)
	return err
}

func newConsole(vm *goja.Runtime, console Console, log pslog.Logger) *goja.Object {
	obj := vm.NewObject()
	channel := func(kind schema.LogKind, forward func(string, ...any)) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			text := joinArgs(call.Arguments)
			console.AddLog(kind, text)
			forward("console."+consoleMethod(kind), "text", text)
			return goja.Undefined()
		}
	}
	_ = obj.Set("log", channel(schema.LogInfo, log.Info))
	_ = obj.Set("error", channel(schema.LogError, log.Error))
	_ = obj.Set("warn", channel(schema.LogWarn, log.Warn))
	return obj
}

func consoleMethod(kind schema.LogKind) string {
	if kind == schema.LogInfo {
		return "log"
	}
	return string(kind)
}

// joinArgs mirrors String(arg) for each argument, joined by single spaces.
func joinArgs(args []goja.Value) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		if arg == nil {
			parts[i] = "undefined"
			continue
		}
		parts[i] = arg.String()
	}
	return strings.Join(parts, " ")
}

func errorText(err error) string {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		if value := exc.Value(); value != nil {
			return value.String()
		}
		return exc.Error()
	}
	var overflow *goja.StackOverflowError
	if errors.As(err, &overflow) {
		return "RangeError: Maximum call stack size exceeded"
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return fmt.Sprintf("Error: run interrupted: %v", interrupted.Value())
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("Error: run interrupted: %v", err)
	}
	return err.Error()
}

type countingConsole struct {
	Console
	entries int
}

func (c *countingConsole) ClearConsole() {
	c.entries = 0
	c.Console.ClearConsole()
}

func (c *countingConsole) AddLog(kind schema.LogKind, text string) {
	c.entries++
	c.Console.AddLog(kind, text)
}
