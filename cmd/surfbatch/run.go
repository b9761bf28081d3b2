package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tigerroll/surfbatch/internal/app"
	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

var runParams []string

var runCmd = &cobra.Command{
	Use:   "run <job>",
	Short: "Run a job once and print its instance id and status",
	Long: `Run a job once and print its instance id and status.

Parameters are given as key=value. A type may follow the key in parentheses:
string (default), long, double or date (2006-01-02). A key starting with "-" is
non-identifying, i.e. it does not take part in the job instance identity.

  surfbatch run importJob --param input.file=movies.csv --param limit(long)=10`,
	Args: cobra.ExactArgs(1),
	RunE: runJob,
}

func init() {
	runCmd.Flags().StringArrayVarP(&runParams, "param", "p", nil, "job parameter key[(type)]=value (repeatable)")
}

func runJob(cmd *cobra.Command, args []string) error {
	params, err := parseJobParameters(runParams)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	application, err := app.Start(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Stop(); err != nil {
			logger.Errorf("Failed to stop application: %v", err)
		}
	}()

	jobExecution, err := application.RunJob(ctx, args[0], params)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "InstanceId: %s\n", jobExecution.JobInstanceID)
	fmt.Fprintf(out, "Status: %s\n", jobExecution.Status)
	if jobExecution.Status == model.StatusFailed {
		return fmt.Errorf("job '%s' failed: %s", args[0], jobExecution.ExitStatus)
	}
	return nil
}

// parseJobParameters parses [-]key[(type)]=value pairs. A leading "-" marks the
// parameter non-identifying.
func parseJobParameters(pairs []string) (model.JobParameters, error) {
	b := model.NewJobParametersBuilder()
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return model.JobParameters{}, fmt.Errorf("invalid parameter %q: expected key=value", pair)
		}
		key = strings.TrimSpace(key)
		identifying := true
		if strings.HasPrefix(key, "-") {
			identifying = false
			key = strings.TrimPrefix(key, "-")
		}
		typeName := ""
		if open := strings.Index(key, "("); open > 0 && strings.HasSuffix(key, ")") {
			typeName = key[open+1 : len(key)-1]
			key = key[:open]
		}
		p, err := model.ParseJobParameter(typeName, value)
		if err != nil {
			return model.JobParameters{}, fmt.Errorf("parameter %q: %w", key, err)
		}
		p.Identifying = identifying
		b.Add(key, p)
	}
	return b.ToJobParameters(), nil
}
