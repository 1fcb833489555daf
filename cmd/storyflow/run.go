package main

import (
	"time"

	"github.com/aretw0/storyflow/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <project.yaml>",
	Short: "Debug a flow interactively",
	Long:  `Starts a debugging session on a graph of the project and reads commands from stdin. Type 'help' inside the session for the command list.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		graphID, _ := cmd.Flags().GetString("graph")
		startNode, _ := cmd.Flags().GetString("node")
		mode, _ := cmd.Flags().GetString("mode")
		maxSteps, _ := cmd.Flags().GetInt("max-steps")
		interval, _ := cmd.Flags().GetDuration("interval")
		quiet, _ := cmd.Flags().GetBool("quiet")
		logLevel, _ := cmd.Flags().GetString("log-level")

		return cli.Execute(cli.RunOptions{
			ProjectPath: args[0],
			GraphID:     graphID,
			StartNodeID: startNode,
			Mode:        mode,
			MaxSteps:    maxSteps,
			Interval:    interval,
			LogLevel:    logLevel,
			Quiet:       quiet,
			Input:       cmd.InOrStdin(),
			Output:      cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("graph", "g", "", "Graph to start (default: first graph of the project)")
	runCmd.Flags().String("node", "", "Node to start from (default: the graph's entry)")
	runCmd.Flags().StringP("mode", "m", "analysis", "View mode: analysis or player")
	runCmd.Flags().Int("max-steps", 0, "Step limit before execution pauses (default 1000)")
	runCmd.Flags().Duration("interval", 300*time.Millisecond, "Delay between steps of the play command")
	runCmd.Flags().BoolP("quiet", "q", false, "Hide the banner and system messages")
}
