package finetune

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/imishinist/finetune-cli/internal/movie"
	"github.com/imishinist/finetune-cli/internal/parser"
)

// ErrUnsupportedConfig marks configurations this tool deliberately refuses.
var ErrUnsupportedConfig = errors.New("unsupported configuration")

// MaybeCacheData loads every movie referenced by the train generator's
// manifest when enabled is true, and returns nil without touching any file
// otherwise. Train and test manifests must list the same experiments.
// Loading is all or nothing: the first read error aborts it.
func MaybeCacheData(enabled bool, trainGeneratorPath, testGeneratorPath string, reader movie.Reader, logger *slog.Logger) (movie.Cache, error) {
	if !enabled {
		return nil, nil
	}

	train, err := loadGeneratorManifest(trainGeneratorPath)
	if err != nil {
		return nil, err
	}
	test, err := loadGeneratorManifest(testGeneratorPath)
	if err != nil {
		return nil, err
	}

	ids := train.IDs()
	if !slices.Equal(ids, test.IDs()) {
		return nil, fmt.Errorf("%w: different experiments in train/test are not supported when using cache_data", ErrUnsupportedConfig)
	}

	if len(ids) > 1 {
		logger.Warn("cache_data will use a lot of memory if there are multiple movies. Are you sure?")
	}

	movs := make(movie.Cache, len(ids))
	for _, id := range ids {
		logger.Info(fmt.Sprintf("Loading %s into memory", id))
		m, err := reader.ReadMovie(train[id].Path)
		if err != nil {
			return nil, fmt.Errorf("failed to cache experiment %s: %w", id, err)
		}
		movs[id] = m
	}
	return movs, nil
}

func loadGeneratorManifest(generatorPath string) (movie.Manifest, error) {
	params, err := parser.LoadParamsFile(generatorPath)
	if err != nil {
		return nil, err
	}
	trainPath, err := params.String("train_path")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", generatorPath, err)
	}
	return movie.LoadManifest(trainPath)
}
