package main

import (
	"context"
	"fmt"

	"github.com/aretw0/storyflow/internal/presentation/graph"
	"github.com/aretw0/storyflow/pkg/adapters/file"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <project.yaml>",
	Short: "Export a flow as a Mermaid diagram",
	Long:  `Outputs a Mermaid diagram (graph TD) of one graph of the project.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		graphID, _ := cmd.Flags().GetString("graph")

		project, err := file.Load(args[0])
		if err != nil {
			return err
		}
		if graphID == "" {
			graphID = project.DefaultGraphID()
		}

		g, err := project.GetGraph(context.Background(), graphID)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("graph", "g", "", "Graph to draw (default: first graph of the project)")
}
