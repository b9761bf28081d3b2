package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tigerroll/surfbatch/internal/app"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List the registered jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		application, err := app.Start(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := application.Stop(); err != nil {
				logger.Errorf("Failed to stop application: %v", err)
			}
		}()
		for _, name := range application.Jobs.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}
