// Package trainer provides the trainers the finetune command can run.
package trainer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/imishinist/finetune-cli/internal/loader"
	"github.com/imishinist/finetune-cli/internal/logging"
	"github.com/imishinist/finetune-cli/internal/models"
	"github.com/imishinist/finetune-cli/internal/parser"
)

// MeanInterpolationName is the registered name of MeanInterpolation.
const MeanInterpolationName = "mean_interpolation"

// Supported loss names.
const (
	LossMAE = "mean_absolute_error"
	LossMSE = "mean_squared_error"
)

func init() {
	loader.Default.RegisterTrainer(MeanInterpolationName, func(jsonPath string, logger *slog.Logger) (loader.Trainer, error) {
		return NewMeanInterpolationFromFile(jsonPath, logging.Named(logger, "MeanInterpolation"))
	})
}

type MeanInterpolationConfig struct {
	RunUID        string
	OutputDir     string
	ModelString   string
	Loss          string
	StepsPerEpoch int
	Epochs        int
}

func parseMeanInterpolationConfig(p models.Params) (MeanInterpolationConfig, error) {
	var (
		cfg MeanInterpolationConfig
		err error
	)
	if cfg.RunUID, err = p.String("run_uid"); err != nil {
		return cfg, err
	}
	if cfg.OutputDir, err = p.String("output_dir"); err != nil {
		return cfg, err
	}
	if cfg.ModelString, err = p.String("model_string"); err != nil {
		return cfg, err
	}
	if cfg.Loss, err = p.String("loss"); err != nil {
		return cfg, err
	}
	if cfg.StepsPerEpoch, err = p.IntOr("steps_per_epoch", 100); err != nil {
		return cfg, err
	}
	if cfg.Epochs, err = p.IntOr("nb_times_through_data", 1); err != nil {
		return cfg, err
	}

	if cfg.Loss != LossMAE && cfg.Loss != LossMSE {
		return cfg, fmt.Errorf("unsupported loss %q (supported: %s, %s)", cfg.Loss, LossMAE, LossMSE)
	}
	if cfg.StepsPerEpoch <= 0 {
		return cfg, fmt.Errorf("steps_per_epoch must be positive, got %d", cfg.StepsPerEpoch)
	}
	if cfg.Epochs <= 0 {
		return cfg, fmt.Errorf("nb_times_through_data must be positive, got %d", cfg.Epochs)
	}
	return cfg, nil
}

// MeanInterpolation scores the baseline that predicts the center frame as
// the pixelwise mean of its neighbours. It has no weights to fit; it runs
// the same epoch/validation loop a fitted model would so a pipeline can be
// exercised and tracked end to end.
type MeanInterpolation struct {
	cfg    MeanInterpolationConfig
	logger *slog.Logger
}

func NewMeanInterpolationFromFile(jsonPath string, logger *slog.Logger) (*MeanInterpolation, error) {
	params, err := parser.LoadParamsFile(jsonPath)
	if err != nil {
		return nil, err
	}
	t, err := NewMeanInterpolation(params, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", jsonPath, err)
	}
	return t, nil
}

func NewMeanInterpolation(params models.Params, logger *slog.Logger) (*MeanInterpolation, error) {
	cfg, err := parseMeanInterpolationConfig(params)
	if err != nil {
		return nil, err
	}
	return &MeanInterpolation{cfg: cfg, logger: logger}, nil
}

// HistoryPath is where Run writes the loss history.
func (t *MeanInterpolation) HistoryPath() string {
	name := fmt.Sprintf("%s_%s_history.json", t.cfg.RunUID, t.cfg.ModelString)
	return filepath.Join(t.cfg.OutputDir, name)
}

func (t *MeanInterpolation) Run(ctx context.Context, train, test loader.Generator) (*models.History, error) {
	if train.Len() == 0 {
		return nil, fmt.Errorf("train generator is empty")
	}
	if test.Len() == 0 {
		return nil, fmt.Errorf("test generator is empty")
	}

	history := &models.History{
		RunUID:      t.cfg.RunUID,
		ModelString: t.cfg.ModelString,
		LossName:    t.cfg.Loss,
	}

	next := 0
	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		var loss lossAccumulator
		for step := 0; step < t.cfg.StepsPerEpoch; step++ {
			batch, err := train.Batch(ctx, next)
			if err != nil {
				return nil, fmt.Errorf("epoch %d step %d: %w", epoch, step, err)
			}
			next = (next + 1) % train.Len()
			if err := loss.add(batch, t.cfg.Loss); err != nil {
				return nil, err
			}
		}

		var valLoss lossAccumulator
		for i := 0; i < test.Len(); i++ {
			batch, err := test.Batch(ctx, i)
			if err != nil {
				return nil, fmt.Errorf("epoch %d validation batch %d: %w", epoch, i, err)
			}
			if err := valLoss.add(batch, t.cfg.Loss); err != nil {
				return nil, err
			}
		}

		m := models.EpochMetrics{
			Epoch:   epoch,
			Loss:    loss.mean(),
			ValLoss: valLoss.mean(),
			EndTime: time.Now(),
		}
		history.Epochs = append(history.Epochs, m)
		t.logger.Info("epoch finished", "epoch", epoch, "loss", m.Loss, "val_loss", m.ValLoss)
	}

	if err := t.writeHistory(history); err != nil {
		return nil, err
	}
	return history, nil
}

func (t *MeanInterpolation) writeHistory(h *models.History) error {
	b, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	path := t.HistoryPath()
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	t.logger.Info("wrote " + path)
	return nil
}

// lossAccumulator averages per-sample losses.
type lossAccumulator struct {
	sum float64
	n   int
}

func (a *lossAccumulator) add(b *models.Batch, lossName string) error {
	for i := range b.Targets {
		pred, err := predict(b.Inputs[i], b.Frames, len(b.Targets[i]))
		if err != nil {
			return err
		}
		a.sum += sampleLoss(pred, b.Targets[i], lossName)
		a.n++
	}
	return nil
}

func (a *lossAccumulator) mean() float64 {
	if a.n == 0 {
		return math.NaN()
	}
	return a.sum / float64(a.n)
}

// predict averages the frames stacked in input.
func predict(input []float64, frames, frameSize int) ([]float64, error) {
	if frames <= 0 || len(input) != frames*frameSize {
		return nil, fmt.Errorf("input has %d values, want %d frames of %d", len(input), frames, frameSize)
	}
	pred := make([]float64, frameSize)
	for f := 0; f < frames; f++ {
		floats.Add(pred, input[f*frameSize:(f+1)*frameSize])
	}
	floats.Scale(1/float64(frames), pred)
	return pred, nil
}

func sampleLoss(pred, target []float64, lossName string) float64 {
	n := float64(len(target))
	if lossName == LossMSE {
		d := floats.Distance(pred, target, 2)
		return d * d / n
	}
	return floats.Distance(pred, target, 1) / n
}
