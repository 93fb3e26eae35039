package cmd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imishinist/finetune-cli/internal/finetune"
	"github.com/imishinist/finetune-cli/internal/loader"
	"github.com/imishinist/finetune-cli/internal/logging"
	"github.com/imishinist/finetune-cli/internal/models"
	"github.com/imishinist/finetune-cli/internal/movie"
	"github.com/imishinist/finetune-cli/internal/parser"
)

func TestSampleDataEndToEnd(t *testing.T) {
	dir := t.TempDir()
	configPath, err := writeSampleData(dir, sampleOptions{Frames: 24, Size: 4, Noise: 0.1, Seed: 3})
	require.NoError(t, err)

	doc, err := parser.LoadConfigFile(configPath)
	require.NoError(t, err)

	runner := &finetune.Runner{
		Registry: loader.Default,
		Reader:   movie.NewHDF5Reader(),
		Logger:   logging.Discard(),
	}
	require.NoError(t, runner.Run(context.Background(), doc))

	out := filepath.Join(dir, "out")
	for _, name := range []string{
		"sample_training_full_args.json",
		"sample_finetuning.json",
		"sample_generator.json",
		"sample_test_generator.json",
		"sample_mean_absolute_error_history.json",
	} {
		assert.FileExists(t, filepath.Join(out, name))
	}

	b, err := os.ReadFile(filepath.Join(out, "sample_mean_absolute_error_history.json"))
	require.NoError(t, err)
	var history models.History
	require.NoError(t, json.Unmarshal(b, &history))
	require.Len(t, history.Epochs, 2)
	assert.Greater(t, history.Epochs[0].ValLoss, 0.0)
}

func TestSampleDataRejectsShortMovies(t *testing.T) {
	_, err := writeSampleData(t.TempDir(), sampleOptions{Frames: 3, Size: 4})
	assert.Error(t, err)
}

func TestSampleDataDefaultTestBatchSize(t *testing.T) {
	dir := t.TempDir()
	configPath, err := writeSampleData(dir, sampleOptions{Frames: 24, Size: 4, Noise: 0.1, Seed: 3})
	require.NoError(t, err)

	doc, err := parser.LoadConfigFile(configPath)
	require.NoError(t, err)
	testGen, err := doc.TestGenerator()
	require.NoError(t, err)
	delete(testGen, "batch_size")

	runner := &finetune.Runner{
		Registry: loader.Default,
		Reader:   movie.NewHDF5Reader(),
		Logger:   logging.Discard(),
	}
	require.NoError(t, runner.Run(context.Background(), doc))

	b, err := os.ReadFile(filepath.Join(dir, "out", "sample_test_generator.json"))
	require.NoError(t, err)
	var written map[string]any
	require.NoError(t, json.Unmarshal(b, &written))
	assert.Equal(t, 5.0, written["batch_size"])
}
