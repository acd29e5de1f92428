package potatopad

import (
	"context"
	"time"

	"pkt.systems/potatopad/core"
	"pkt.systems/potatopad/internal/jsrun"
	"pkt.systems/potatopad/internal/logx"
	"pkt.systems/pslog"
)

// PlaygroundConfig configures a store wired to a runner.
type PlaygroundConfig struct {
	Core   core.Config
	Runner jsrun.Config
	// RunTimeout bounds each run. Zero means no limit.
	RunTimeout time.Duration
}

// Playground is a store with an attached editor buffer and a registered run
// callback.
type Playground struct {
	Store  *core.Store
	Editor *core.TextBuffer
	Runner *jsrun.Runner
}

// NewPlayground builds the store, attaches an in-process editor and registers
// the runner as the run action.
func NewPlayground(cfg PlaygroundConfig, deps core.Deps) (*Playground, error) {
	store, err := core.New(cfg.Core, deps)
	if err != nil {
		return nil, err
	}
	editor := core.NewTextBuffer()
	store.SetEditor(editor)
	runner := jsrun.New(cfg.Runner)
	store.SetRunCodeCallback(runCallback(store, runner, cfg.RunTimeout))
	return &Playground{Store: store, Editor: editor, Runner: runner}, nil
}

func runCallback(store *core.Store, runner *jsrun.Runner, timeout time.Duration) core.RunFunc {
	return func(ctx context.Context) error {
		if ctx == nil {
			ctx = context.Background()
		}
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		res, err := runner.Run(ctx, store.Editor(), store)
		if err != nil {
			return err
		}
		logx.WithRun(ctx, res.RunID).Debug("run finished", "failed", res.Failed, "entries", res.Entries, "duration_ms", res.Duration.Milliseconds())
		return nil
	}
}

// Run replaces the editor text and runs it. A busy playground returns
// schema.ErrRunBusy and keeps the current text.
func (p *Playground) Run(ctx context.Context, code string) error {
	pslog.Ctx(ctx).Debug("playground run", "bytes", len(code))
	return p.Store.SetCodeAndRun(ctx, code)
}
