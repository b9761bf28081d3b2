package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tigerroll/surfbatch/internal/app"
	"github.com/tigerroll/surfbatch/pkg/batch/core/application/usecase"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

var statusCmd = &cobra.Command{
	Use:   "status <instanceId>",
	Short: "Print the latest execution of a job instance",
	Long: `Print the latest execution of a job instance and its steps.

Instances are only visible across processes with the sql repository
(surfbatch.repository.type: sql).`,
	Args: cobra.ExactArgs(1),
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

		status, err := application.Explorer.GetInstanceStatus(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), status)
		return nil
	},
}

func printStatus(out io.Writer, status *usecase.InstanceStatus) {
	fmt.Fprintf(out, "InstanceId: %s\n", status.Instance.ID)
	fmt.Fprintf(out, "Job: %s\n", status.Instance.JobName)
	fmt.Fprintf(out, "Executions: %d\n", len(status.Executions))

	latest := status.Latest()
	if latest == nil {
		return
	}
	fmt.Fprintf(out, "ExecutionId: %s\n", latest.ID)
	fmt.Fprintf(out, "Status: %s\n", latest.Status)
	fmt.Fprintf(out, "ExitStatus: %s\n", latest.ExitStatus)
	for _, se := range latest.StepExecutions {
		fmt.Fprintf(out, "  %s %s read=%d write=%d filter=%d commit=%d rollback=%d\n",
			se.StepName, se.Status, se.ReadCount, se.WriteCount, se.FilterCount, se.CommitCount, se.RollbackCount)
	}
}
