package main

import (
	"github.com/spf13/cobra"

	"github.com/tigerroll/surfbatch/internal/app"
	config "github.com/tigerroll/surfbatch/pkg/batch/core/config"
)

var (
	configFiles []string
	envFile     string
)

var rootCmd = &cobra.Command{
	Use:           "surfbatch",
	Short:         "Run batch jobs",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&configFiles, "config", nil, "additional YAML configuration file (repeatable)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file loaded before the configuration (default .env)")
	rootCmd.AddCommand(runCmd, jobsCmd, statusCmd)
}

func loadConfig() (*config.Config, error) {
	return app.LoadConfig(envFile, configFiles...)
}
