package finetune

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imishinist/finetune-cli/internal/logging"
	"github.com/imishinist/finetune-cli/internal/models"
)

func TestWriteArtifactsRoundTrip(t *testing.T) {
	outdir := t.TempDir()
	cfg := sampleConfig(outdir)
	require.NoError(t, Rewrite(cfg))

	paths, err := WriteArtifacts(cfg, logging.Discard())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outdir, "run1_finetuning.json"), paths.Finetuning)
	assert.Equal(t, filepath.Join(outdir, "run1_generator.json"), paths.Generator)
	assert.Equal(t, filepath.Join(outdir, "run1_test_generator.json"), paths.TestGenerator)
	assert.Empty(t, paths.FullArgs)

	for _, tt := range []struct {
		path     string
		section  string
		wantType string
	}{
		{paths.Finetuning, models.KeyFinetuningParams, models.TypeTrainer},
		{paths.Generator, models.KeyGeneratorParams, models.TypeGenerator},
		{paths.TestGenerator, models.KeyTestGeneratorParams, models.TypeGenerator},
	} {
		written, err := os.ReadFile(tt.path)
		require.NoError(t, err)

		want, err := json.Marshal(section(t, cfg, tt.section))
		require.NoError(t, err)
		assert.JSONEq(t, string(want), string(written), tt.path)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(written, &decoded))
		assert.Equal(t, tt.wantType, decoded["type"])
	}
}

func TestWriteArtifactsIndent(t *testing.T) {
	cfg := sampleConfig(t.TempDir())
	require.NoError(t, Rewrite(cfg))

	paths, err := WriteArtifacts(cfg, logging.Discard())
	require.NoError(t, err)

	written, err := os.ReadFile(paths.Generator)
	require.NoError(t, err)
	assert.Contains(t, string(written), "{\n  \"batch_size\": 4,\n")
}

func TestWriteArtifactsFullArgs(t *testing.T) {
	outdir := t.TempDir()
	cfg := sampleConfig(outdir)
	cfg["output_full_args"] = true
	require.NoError(t, Rewrite(cfg))

	paths, err := WriteArtifacts(cfg, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outdir, "run1_training_full_args.json"), paths.FullArgs)
	assert.Len(t, paths.All(), 4)

	written, err := os.ReadFile(paths.FullArgs)
	require.NoError(t, err)
	want, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(written))
}

func TestWriteArtifactsNoFullArgs(t *testing.T) {
	outdir := t.TempDir()
	cfg := sampleConfig(outdir)
	require.NoError(t, Rewrite(cfg))

	paths, err := WriteArtifacts(cfg, logging.Discard())
	require.NoError(t, err)
	assert.Len(t, paths.All(), 3)

	matches, err := filepath.Glob(filepath.Join(outdir, "*_training_full_args.json"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestWriteArtifactsCreatesOutputDir(t *testing.T) {
	outdir := filepath.Join(t.TempDir(), "nested", "out")
	cfg := sampleConfig(outdir)
	require.NoError(t, Rewrite(cfg))

	_, err := WriteArtifacts(cfg, logging.Discard())
	require.NoError(t, err)
	assert.DirExists(t, outdir)
}

func TestWriteArtifactsMissingOutputDir(t *testing.T) {
	cfg := sampleConfig("")
	delete(cfg["finetuning_params"].(map[string]any), "output_dir")

	_, err := WriteArtifacts(cfg, logging.Discard())
	assert.ErrorIs(t, err, models.ErrMissingKey)
}
