package logx

import (
	"context"

	"pkt.systems/potatopad/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	runKey contextKey = iota
	remoteKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithRun annotates the logger with the run id if present.
func WithRun(ctx context.Context, runID schema.RunID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if runID != "" {
		if current, ok := ctx.Value(runKey).(schema.RunID); ok && current == runID {
			return log
		}
		log = log.With("run", runID)
	}
	return log
}

// WithRemote annotates the logger with the remote address if present.
func WithRemote(ctx context.Context, remote string) pslog.Logger {
	log := pslog.Ctx(ctx)
	if remote != "" {
		if current, ok := ctx.Value(remoteKey).(string); ok && current == remote {
			return log
		}
		log = log.With("remote", remote)
	}
	return log
}

// WithSnippet annotates the logger with snippet metadata.
func WithSnippet(log pslog.Logger, snippet schema.Snippet) pslog.Logger {
	if snippet.Label != "" {
		log = log.With("snippet", snippet.Label)
	}
	if snippet.Code != "" {
		log = log.With("snippet_bytes", len(snippet.Code))
	}
	return log
}

// ContextWithRun stores the run marker on the context for log de-duplication.
func ContextWithRun(ctx context.Context, runID schema.RunID) context.Context {
	if ctx == nil || runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runKey, runID)
}

// ContextWithRemote stores the remote marker on the context for log de-duplication.
func ContextWithRemote(ctx context.Context, remote string) context.Context {
	if ctx == nil || remote == "" {
		return ctx
	}
	return context.WithValue(ctx, remoteKey, remote)
}

// ContextWithRunLogger attaches the logger and run marker to the context.
func ContextWithRunLogger(ctx context.Context, log pslog.Logger, runID schema.RunID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithRun(ctx, runID)
}

// ContextWithRemoteLogger attaches the logger and remote marker to the context.
func ContextWithRemoteLogger(ctx context.Context, log pslog.Logger, remote string) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithRemote(ctx, remote)
}

// RunFromContext returns the run id stored on the context, if any.
func RunFromContext(ctx context.Context) schema.RunID {
	if ctx == nil {
		return ""
	}
	if runID, ok := ctx.Value(runKey).(schema.RunID); ok {
		return runID
	}
	return ""
}
