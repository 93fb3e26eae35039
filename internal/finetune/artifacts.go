package finetune

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/imishinist/finetune-cli/internal/models"
)

// ArtifactPaths are the files written for one run. FullArgs is empty when
// output_full_args is off.
type ArtifactPaths struct {
	FullArgs      string
	Finetuning    string
	Generator     string
	TestGenerator string
}

// All returns the written paths in write order.
func (p ArtifactPaths) All() []string {
	var paths []string
	for _, path := range []string{p.FullArgs, p.Finetuning, p.Generator, p.TestGenerator} {
		if path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}

// WriteArtifacts serializes the rewritten configuration under
// finetuning_params.output_dir. Files already written stay in place if a
// later write fails.
func WriteArtifacts(cfg models.RunConfig, logger *slog.Logger) (ArtifactPaths, error) {
	var paths ArtifactPaths

	uid, err := cfg.RunUID()
	if err != nil {
		return paths, err
	}
	fullArgs, err := cfg.OutputFullArgs()
	if err != nil {
		return paths, err
	}
	ft, err := cfg.Finetuning()
	if err != nil {
		return paths, err
	}
	gen, err := cfg.Generator()
	if err != nil {
		return paths, err
	}
	testGen, err := cfg.TestGenerator()
	if err != nil {
		return paths, err
	}
	outdir, err := ft.String("output_dir")
	if err != nil {
		return paths, fmt.Errorf("%s: %w", models.KeyFinetuningParams, err)
	}

	if err := os.MkdirAll(outdir, 0755); err != nil {
		return paths, fmt.Errorf("failed to create directory %s: %w", outdir, err)
	}

	if fullArgs {
		path := filepath.Join(outdir, uid+"_training_full_args.json")
		if err := writeJSON(path, cfg, logger); err != nil {
			return paths, err
		}
		paths.FullArgs = path
	}

	steps := []struct {
		path *string
		name string
		v    models.Params
	}{
		{&paths.Finetuning, uid + "_finetuning.json", ft},
		{&paths.Generator, uid + "_generator.json", gen},
		{&paths.TestGenerator, uid + "_test_generator.json", testGen},
	}
	for _, s := range steps {
		path := filepath.Join(outdir, s.name)
		if err := writeJSON(path, s.v, logger); err != nil {
			return paths, err
		}
		*s.path = path
	}

	return paths, nil
}

// writeJSON writes v with 2-space indentation, creating or truncating path.
func writeJSON(path string, v any, logger *slog.Logger) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logger.Info("wrote " + path)
	return nil
}
