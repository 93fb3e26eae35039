package cmd

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/imishinist/finetune-cli/internal/generator"
	"github.com/imishinist/finetune-cli/internal/models"
	"github.com/imishinist/finetune-cli/internal/movie"
	"github.com/imishinist/finetune-cli/internal/trainer"
)

var sampleDataCmd = &cobra.Command{
	Use:   "sample-data",
	Short: "Write a synthetic movie and a run configuration using it",
	Long: `Write a small synthetic movie (movie.h5), a data manifest pointing at it
and a run configuration (finetune.json) that can be passed to
"finetune-cli finetune --input-json" for a smoke run.`,
	RunE: sampleData,
}

func init() {
	rootCmd.AddCommand(sampleDataCmd)

	sampleDataCmd.Flags().String("out", "", "Directory to write into (required)")
	sampleDataCmd.Flags().Int("frames", 64, "Number of frames")
	sampleDataCmd.Flags().Int("size", 8, "Frame height and width in pixels")
	sampleDataCmd.Flags().Float64("noise", 0.1, "Standard deviation of the added noise")
	sampleDataCmd.Flags().Int64("seed", 1, "Random seed")
	sampleDataCmd.MarkFlagRequired("out")
}

type sampleOptions struct {
	Frames int
	Size   int
	Noise  float64
	Seed   int64
}

func sampleData(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("out")
	var opts sampleOptions
	opts.Frames, _ = cmd.Flags().GetInt("frames")
	opts.Size, _ = cmd.Flags().GetInt("size")
	opts.Noise, _ = cmd.Flags().GetFloat64("noise")
	opts.Seed, _ = cmd.Flags().GetInt64("seed")

	configPath, err := writeSampleData(out, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample data to %s\n", out)
	fmt.Fprintf(cmd.OutOrStdout(), "  Run with: finetune-cli finetune --input-json %s\n", configPath)
	return nil
}

// writeSampleData returns the path of the run configuration it wrote.
func writeSampleData(dir string, opts sampleOptions) (string, error) {
	const window = 2
	if opts.Frames < 2*window+2 {
		return "", fmt.Errorf("need at least %d frames, got %d", 2*window+2, opts.Frames)
	}
	if opts.Size <= 0 {
		return "", fmt.Errorf("size must be positive, got %d", opts.Size)
	}

	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	m, err := syntheticMovie(opts)
	if err != nil {
		return "", err
	}
	moviePath := filepath.Join(dir, "movie.h5")
	if err := movie.WriteHDF5(moviePath, m); err != nil {
		return "", err
	}

	manifestPath := filepath.Join(dir, "manifest.json")
	manifest := movie.Manifest{"sample": {Path: moviePath}}
	if err := writeIndentedJSON(manifestPath, manifest); err != nil {
		return "", err
	}

	generatorParams := func(randomize bool) map[string]any {
		return map[string]any{
			"name":       generator.MovieJSONName,
			"data_path":  manifestPath,
			"batch_size": 4,
			"pre_frame":  window,
			"post_frame": window,
			"randomize":  randomize,
			"seed":       opts.Seed,
		}
	}
	doc := models.RunConfig{
		models.KeyRunUID:         "sample",
		models.KeyOutputFullArgs: true,
		models.KeyFinetuningParams: map[string]any{
			"name":                  trainer.MeanInterpolationName,
			"output_dir":            filepath.Join(dir, "out"),
			"loss":                  trainer.LossMAE,
			"model_string":          "",
			"multi_gpus":            false,
			"cache_data":            true,
			"steps_per_epoch":       4,
			"nb_times_through_data": 2,
		},
		models.KeyGeneratorParams:     generatorParams(true),
		models.KeyTestGeneratorParams: generatorParams(false),
	}

	configPath := filepath.Join(dir, "finetune.json")
	if err := writeIndentedJSON(configPath, doc); err != nil {
		return "", err
	}
	return configPath, nil
}

// syntheticMovie is a slow per-pixel sine wave plus gaussian noise.
func syntheticMovie(opts sampleOptions) (*movie.Movie, error) {
	rng := rand.New(rand.NewSource(opts.Seed))
	pixels := opts.Size * opts.Size
	data := make([]float32, 0, opts.Frames*pixels)
	for f := 0; f < opts.Frames; f++ {
		for p := 0; p < pixels; p++ {
			phase := 2 * math.Pi * float64(p) / float64(pixels)
			v := math.Sin(float64(f)/8+phase) + opts.Noise*rng.NormFloat64()
			data = append(data, float32(v))
		}
	}
	return movie.New([]int{opts.Frames, opts.Size, opts.Size}, data)
}

func writeIndentedJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
