package main

import (
	"fmt"
	"os"

	"github.com/aretw0/storyflow"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "storyflow",
	Short:         "storyflow steps through branching narrative flows",
	Long:          `storyflow loads a project of dialogue graphs and variables and lets you execute it step by step, rewind, inspect and override state.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Operator log level on stderr (debug, info, warn, error)")
}

// loadEngine opens the project at path.
func loadEngine(path string, opts ...storyflow.Option) (*storyflow.Engine, error) {
	engine, err := storyflow.New(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing storyflow: %w", err)
	}
	return engine, nil
}
