package main

import (
	"context"
	"fmt"

	"github.com/aretw0/storyflow/internal/validator"
	"github.com/aretw0/storyflow/pkg/adapters/file"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <project.yaml>",
	Short: "Check the project for authoring mistakes",
	Long:  `Checks every graph for unknown node types, dangling connections, missing entry nodes, duplicate pins, broken references and unreachable nodes.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := file.Load(args[0])
		if err != nil {
			return err
		}

		report, err := validator.Validate(context.Background(), project)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, issue := range report.Issues {
			fmt.Fprintln(out, issue)
		}
		if err := report.Err(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(out, "Project is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
