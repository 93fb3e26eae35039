package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imishinist/finetune-cli/internal/config"
	"github.com/imishinist/finetune-cli/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "finetune-cli",
	Short: "Fine-tuning run launcher",
	Long: `A command line tool that prepares and launches fine-tuning runs for
movie denoising models. It rewrites the run configuration, writes the
derived JSON artifacts, optionally preloads the movies and runs the trainer.
Runs can be mirrored to an MLflow tracking server.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("tracking-uri", "", "MLflow tracking URI (overrides MLFLOW_TRACKING_URI)")
	rootCmd.PersistentFlags().String("experiment-id", "", "Experiment ID (overrides MLFLOW_EXPERIMENT_ID)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides FINETUNE_LOG_LEVEL)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text, json (overrides FINETUNE_LOG_FORMAT)")
	viper.BindPFlag("tracking_uri", rootCmd.PersistentFlags().Lookup("tracking-uri"))
	viper.BindPFlag("experiment_id", rootCmd.PersistentFlags().Lookup("experiment-id"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	// Environment variables
	viper.SetEnvPrefix("MLFLOW")
	viper.AutomaticEnv()

	viper.BindEnv("databricks_host", "DATABRICKS_HOST")
	viper.BindEnv("databricks_token", "DATABRICKS_TOKEN")
	viper.BindEnv("log_level", "FINETUNE_LOG_LEVEL")
	viper.BindEnv("log_format", "FINETUNE_LOG_FORMAT")

	viper.SetDefault("tracking_uri", "http://localhost:5000")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
}

// newLogger writes to standard output, one record per line.
func newLogger(cfg *config.Config) *slog.Logger {
	return logging.Named(logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout), "FineTuning")
}
