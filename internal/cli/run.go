package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aretw0/storyflow/internal/presentation/tui"
	"github.com/aretw0/storyflow/pkg/domain"
)

// RunOptions contains all the configuration for the Run command.
type RunOptions struct {
	ProjectPath string
	GraphID     string
	StartNodeID string
	Mode        string
	MaxSteps    int
	Interval    time.Duration
	LogLevel    string
	Quiet       bool

	Input  io.Reader
	Output io.Writer
}

// Execute handles the 'run' command: it starts a session on the project and
// reads debugger commands until the input ends or the user quits.
func Execute(opts RunOptions) error {
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	logger, err := createLogger(opts.LogLevel)
	if err != nil {
		return err
	}

	engine, err := createEngine(opts, logger)
	if err != nil {
		return err
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	state, err := engine.Start(sigCtx, "cli", opts.GraphID, opts.StartNodeID)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	if opts.Mode != "" {
		if state, err = engine.SetViewMode(sigCtx, state, domain.ViewMode(opts.Mode)); err != nil {
			return err
		}
	}

	styled := isTerminal(opts.Output)
	if styled && !opts.Quiet {
		tui.PrintBanner(opts.Output)
	}

	repl := NewREPL(engine, state, opts.Output,
		WithStyling(styled),
		WithPlayInterval(opts.Interval),
		WithLogger(logger),
	)
	if !opts.Quiet {
		printSystemMessage(opts.Output, "Session on %q (%s mode). Type 'help' for commands.", state.GraphID, state.ViewMode)
	}

	runErr := repl.Run(sigCtx, opts.Input)
	if sig := sigCtx.Signal(); sig != nil && !opts.Quiet {
		fmt.Fprintln(opts.Output)
		printSystemMessage(opts.Output, "Interrupted at '%s' node.", repl.State().CurrentNodeID)
	}
	return handleExecutionError(runErr)
}
