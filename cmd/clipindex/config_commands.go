package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bdougie/clipindex/internal/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the clipindex configuration",
	}

	var path string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&path, "path", config.DefaultPath(), "where to write the config")

	cmd.AddCommand(initCmd)
	return cmd
}
