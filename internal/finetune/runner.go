package finetune

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/imishinist/finetune-cli/internal/loader"
	"github.com/imishinist/finetune-cli/internal/models"
	"github.com/imishinist/finetune-cli/internal/movie"
)

// Tracker mirrors a run into a parameter-tracking service.
type Tracker interface {
	// Start creates the run. Every started run is ended.
	Start(ctx context.Context, runUID string) error
	LogParams(ctx context.Context, params []models.Parameter) error
	LogArtifacts(ctx context.Context, paths []string) error
	LogHistory(ctx context.Context, history *models.History) error
	End(ctx context.Context, status models.RunStatus) error
}

type Runner struct {
	Registry *loader.Registry
	Reader   movie.Reader
	Logger   *slog.Logger
	// Tracker is optional.
	Tracker Tracker
	// Now defaults to time.Now; it feeds the default run_uid.
	Now func() time.Time
}

// Run prepares the run described by cfg and trains. cfg is rewritten in
// place. Artifacts written before a failure are left on disk.
func (r *Runner) Run(ctx context.Context, cfg models.RunConfig) error {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	ApplyDefaults(cfg, now())

	if err := Rewrite(cfg); err != nil {
		return fmt.Errorf("failed to rewrite configuration: %w", err)
	}

	paths, err := WriteArtifacts(cfg, r.Logger)
	if err != nil {
		return fmt.Errorf("failed to write artifacts: %w", err)
	}

	tracking := r.startTracking(ctx, cfg, paths)

	history, err := r.train(ctx, cfg, paths)
	if tracking {
		r.finishTracking(ctx, history, err)
	}
	return err
}

func (r *Runner) train(ctx context.Context, cfg models.RunConfig, paths ArtifactPaths) (*models.History, error) {
	ft, err := cfg.Finetuning()
	if err != nil {
		return nil, err
	}
	cacheData, err := ft.Bool("cache_data")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", models.KeyFinetuningParams, err)
	}

	movs, err := MaybeCacheData(cacheData, paths.Generator, paths.TestGenerator, r.Reader, r.Logger)
	if err != nil {
		return nil, err
	}

	genFactory, err := r.Registry.FindGenerator(paths.Generator)
	if err != nil {
		return nil, err
	}
	trainGen, err := genFactory(paths.Generator, movs)
	if err != nil {
		return nil, fmt.Errorf("failed to create train generator: %w", err)
	}

	testFactory, err := r.Registry.FindGenerator(paths.TestGenerator)
	if err != nil {
		return nil, err
	}
	testGen, err := testFactory(paths.TestGenerator, movs)
	if err != nil {
		return nil, fmt.Errorf("failed to create test generator: %w", err)
	}

	trainerFactory, err := r.Registry.FindTrainer(paths.Finetuning)
	if err != nil {
		return nil, err
	}
	trainer, err := trainerFactory(paths.Finetuning, r.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create trainer: %w", err)
	}

	r.Logger.Info("created objects for training")
	history, err := trainer.Run(ctx, trainGen, testGen)
	if err != nil {
		return nil, fmt.Errorf("training failed: %w", err)
	}
	return history, nil
}

// startTracking reports whether a tracking run was started. Tracking
// problems never fail the training run.
func (r *Runner) startTracking(ctx context.Context, cfg models.RunConfig, paths ArtifactPaths) bool {
	if r.Tracker == nil {
		return false
	}

	uid, _ := cfg.RunUID()
	ft, _ := cfg.Finetuning()
	if err := r.Tracker.Start(ctx, uid); err != nil {
		r.Logger.Warn("failed to start tracking run", "error", err)
		return false
	}
	if err := r.Tracker.LogParams(ctx, ft.Flatten()); err != nil {
		r.Logger.Warn("failed to log parameters", "error", err)
	}
	if err := r.Tracker.LogArtifacts(ctx, paths.All()); err != nil {
		r.Logger.Warn("failed to upload artifacts", "error", err)
	}
	return true
}

func (r *Runner) finishTracking(ctx context.Context, history *models.History, runErr error) {
	// the run status must be recorded even after cancellation
	ctx = context.WithoutCancel(ctx)

	status := models.RunStatusFinished
	if runErr != nil {
		status = models.RunStatusFailed
	} else if err := r.Tracker.LogHistory(ctx, history); err != nil {
		r.Logger.Warn("failed to log metrics", "error", err)
	}

	if err := r.Tracker.End(ctx, status); err != nil {
		r.Logger.Warn("failed to end tracking run", "error", err)
	}
}
