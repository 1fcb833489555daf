package cli

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/storyflow"
	"github.com/aretw0/storyflow/pkg/observability"
)

// createEngine initializes a storyflow engine with standard CLI conventions.
func createEngine(opts RunOptions, logger *slog.Logger) (*storyflow.Engine, error) {
	engineOpts := []storyflow.Option{
		storyflow.WithLogger(logger),
		storyflow.WithLifecycleHooks(observability.LogHooks(logger)),
	}
	if opts.MaxSteps > 0 {
		engineOpts = append(engineOpts, storyflow.WithMaxSteps(opts.MaxSteps))
	}

	engine, err := storyflow.New(opts.ProjectPath, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}
