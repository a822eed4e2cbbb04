package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/dag"
	"github.com/specialistvlad/buildgrid/internal/platform"
	"github.com/specialistvlad/buildgrid/internal/session"
	"github.com/specialistvlad/buildgrid/internal/target"
)

// Loader reads target declarations from paths.
type Loader interface {
	Load(ctx context.Context, paths ...string) ([]target.Target, error)
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	facts  platform.Facts
	plan   *dag.Plan

	// current is the session of the run in progress, read by the status server.
	current    atomic.Pointer[session.Session]
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It loads the
// declarations and validates the graph, so a returned App is ready to run.
// Log lines and script output are written to outW.
func NewApp(outW io.Writer, cfg *Config, loader Loader) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	facts, err := cfg.Facts()
	if err != nil {
		return nil, err
	}

	targets, err := loader.Load(ctx, cfg.TargetPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load target declarations: %w", err)
	}
	logger.Debug("Target declarations loaded.", "count", len(targets))

	plan, err := dag.Build(ctx, targets, facts)
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}
	logger.Debug("Dependency graph built.", "targets", plan.Len(), "platform", facts.String())

	return &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		facts:  facts,
		plan:   plan,
	}, nil
}

// Plan returns the validated build plan.
func (a *App) Plan() *dag.Plan {
	return a.plan
}

// Config returns the configuration the app was created with.
func (a *App) Config() *Config {
	return a.config
}

// WriteGraph prints the plan as "text" or "dot".
func (a *App) WriteGraph(w io.Writer, format string) error {
	switch format {
	case "", "text":
		return a.plan.WriteText(w)
	case "dot":
		return a.plan.WriteDOT(w)
	default:
		return fmt.Errorf("invalid graph format %q: must be 'text' or 'dot'", format)
	}
}
