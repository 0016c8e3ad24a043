package target

import (
	stdcontext "context"
	"io"

	"go.uber.org/zap"

	"rolegate/internal/artifact"
	"rolegate/internal/config"
	"rolegate/internal/runner"
	"rolegate/internal/workflow"
)

// Context carries shared runtime dependencies into every target.
type Context struct {
	Config    *config.Config
	Workspace *workflow.Workspace
	Artifacts *artifact.Store
	Runner    *runner.Runner
	Log       *zap.Logger
	// Stdout receives user-facing progress lines; defaults to io.Discard so
	// targets never have to nil-check it.
	Stdout io.Writer

	ctx stdcontext.Context
}

// NewContext builds a Context with a fresh artifact store and shell runner.
func NewContext(cfg *config.Config, ws *workflow.Workspace, log *zap.Logger) *Context {
	if log == nil {
		log = zap.NewNop()
	}
	return &Context{
		Config:    cfg,
		Workspace: ws,
		Artifacts: artifact.NewStore(ws),
		Runner:    runner.New(ws.ProjectDir()),
		Log:       log,
		Stdout:    io.Discard,
		ctx:       stdcontext.Background(),
	}
}

// Context returns the cancellation context for the current invocation.
func (c *Context) Context() stdcontext.Context {
	if c.ctx == nil {
		return stdcontext.Background()
	}
	return c.ctx
}

// WithContext binds a cancellation context to a copy of the target context.
func (c *Context) WithContext(ctx stdcontext.Context) *Context {
	clone := *c
	clone.ctx = ctx
	return &clone
}

// WithArtifacts allows dependency injection of a pre-built store.
func (c *Context) WithArtifacts(store *artifact.Store) *Context {
	clone := *c
	clone.Artifacts = store
	return &clone
}

// WithStdout directs progress output to the given writer.
func (c *Context) WithStdout(w io.Writer) *Context {
	clone := *c
	if w == nil {
		w = io.Discard
	}
	clone.Stdout = w
	return &clone
}
