package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/imishinist/finetune-cli/internal/config"
	"github.com/imishinist/finetune-cli/internal/finetune"
	_ "github.com/imishinist/finetune-cli/internal/generator"
	"github.com/imishinist/finetune-cli/internal/loader"
	"github.com/imishinist/finetune-cli/internal/logging"
	"github.com/imishinist/finetune-cli/internal/mlflow"
	"github.com/imishinist/finetune-cli/internal/models"
	"github.com/imishinist/finetune-cli/internal/movie"
	"github.com/imishinist/finetune-cli/internal/parser"
	_ "github.com/imishinist/finetune-cli/internal/trainer"
)

var finetuneCmd = &cobra.Command{
	Use:   "finetune",
	Short: "Run a fine-tuning job",
	Long: `Run a fine-tuning job described by a JSON or YAML document.

The document holds run_uid, output_full_args, finetuning_params,
generator_params and test_generator_params. The derived configuration
files are written to finetuning_params.output_dir as
{run_uid}_finetuning.json, {run_uid}_generator.json and
{run_uid}_test_generator.json before training starts.`,
	Example: `  # Run from a JSON document
  finetune-cli finetune --input-json run.json

  # Preload movies and track the run in MLflow
  finetune-cli finetune --input-json run.yaml --cache-data --track --experiment-id 3`,
	RunE: runFinetune,
}

func init() {
	rootCmd.AddCommand(finetuneCmd)
	addFinetuneFlags(finetuneCmd)
}

func addFinetuneFlags(cmd *cobra.Command) {
	cmd.Flags().String("input-json", "", "Run configuration file (JSON/YAML) (required)")
	cmd.Flags().String("run-uid", "", "Override run_uid")
	cmd.Flags().String("output-dir", "", "Override finetuning_params.output_dir")
	cmd.Flags().Bool("output-full-args", false, "Also write {run_uid}_training_full_args.json")
	cmd.Flags().Bool("cache-data", false, "Load all movies into memory before training")
	cmd.Flags().Bool("track", false, "Mirror the run to the MLflow tracking server")
	cmd.MarkFlagRequired("input-json")
}

func runFinetune(cmd *cobra.Command, args []string) error {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := newLogger(cfg)

	inputPath, _ := cmd.Flags().GetString("input-json")
	track, _ := cmd.Flags().GetBool("track")

	doc, err := parser.LoadConfigFile(inputPath)
	if err != nil {
		return err
	}
	if err := applyOverrides(cmd, doc); err != nil {
		return err
	}

	runner := &finetune.Runner{
		Registry: loader.Default,
		Reader:   movie.NewHDF5Reader(),
		Logger:   logger,
	}

	if track {
		if cfg.ExperimentID == "" {
			return fmt.Errorf("experiment ID must be specified via --experiment-id flag or MLFLOW_EXPERIMENT_ID environment variable")
		}
		client, err := mlflow.NewClient(cfg)
		if err != nil {
			return fmt.Errorf("failed to create MLflow client: %w", err)
		}
		runner.Tracker = mlflow.NewTracker(client, cfg.ExperimentID)
		logging.Named(logger, "Tracking").Debug("tracking enabled", "tracking_uri", cfg.TrackingURI, "experiment_id", cfg.ExperimentID)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return runner.Run(ctx, doc)
}

// applyOverrides copies explicitly set flags into the run document.
func applyOverrides(cmd *cobra.Command, doc models.RunConfig) error {
	flags := cmd.Flags()

	if flags.Changed("run-uid") {
		v, _ := flags.GetString("run-uid")
		doc[models.KeyRunUID] = v
	}
	if flags.Changed("output-full-args") {
		v, _ := flags.GetBool("output-full-args")
		doc[models.KeyOutputFullArgs] = v
	}

	if !flags.Changed("output-dir") && !flags.Changed("cache-data") {
		return nil
	}
	ft, err := doc.Finetuning()
	if err != nil {
		return err
	}
	if flags.Changed("output-dir") {
		v, _ := flags.GetString("output-dir")
		ft["output_dir"] = v
	}
	if flags.Changed("cache-data") {
		v, _ := flags.GetBool("cache-data")
		ft["cache_data"] = v
	}
	return nil
}
