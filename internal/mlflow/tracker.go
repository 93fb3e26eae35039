package mlflow

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/imishinist/finetune-cli/internal/models"
)

// trackingAPI is the subset of Client the Tracker needs.
type trackingAPI interface {
	CreateRun(ctx context.Context, run *models.TrackingRun) (*models.RunInfo, error)
	LogParams(ctx context.Context, runID string, params []models.Parameter) error
	UploadArtifact(ctx context.Context, runID, filePath, artifactPath string) error
	LogMetrics(ctx context.Context, runID string, metrics []models.Metric) error
	UpdateRun(ctx context.Context, runID string, status models.RunStatus) error
}

// Tracker records one fine-tuning run as an MLflow run: the finetuning
// parameters, the JSON artifacts, the per-epoch losses and the outcome.
type Tracker struct {
	api          trackingAPI
	experimentID string
	runID        string
}

func NewTracker(client *Client, experimentID string) *Tracker {
	return &Tracker{api: client, experimentID: experimentID}
}

// RunID is empty until Start succeeds.
func (t *Tracker) RunID() string {
	return t.runID
}

// Start creates the run. Once it succeeds the run exists on the server and
// must be closed with End.
func (t *Tracker) Start(ctx context.Context, runUID string) error {
	run := &models.TrackingRun{
		ExperimentID: &t.experimentID,
		RunName:      &runUID,
		Tags:         map[string]string{"finetune.run_uid": runUID},
	}
	info, err := t.api.CreateRun(ctx, run)
	if err != nil {
		return err
	}
	t.runID = info.RunID
	return nil
}

func (t *Tracker) LogParams(ctx context.Context, params []models.Parameter) error {
	if t.runID == "" {
		return fmt.Errorf("tracking run not started")
	}
	return t.api.LogParams(ctx, t.runID, params)
}

// LogArtifacts uploads every path, keeping going past failures, and
// reports how many failed.
func (t *Tracker) LogArtifacts(ctx context.Context, paths []string) error {
	if t.runID == "" {
		return fmt.Errorf("tracking run not started")
	}

	var failed []string
	var lastErr error
	for _, path := range paths {
		if err := t.api.UploadArtifact(ctx, t.runID, path, filepath.Base(path)); err != nil {
			failed = append(failed, path)
			lastErr = err
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to upload %d/%d artifacts (%v): %w", len(failed), len(paths), failed, lastErr)
	}
	return nil
}

func (t *Tracker) LogHistory(ctx context.Context, history *models.History) error {
	if t.runID == "" {
		return fmt.Errorf("tracking run not started")
	}
	return t.api.LogMetrics(ctx, t.runID, history.Metrics())
}

func (t *Tracker) End(ctx context.Context, status models.RunStatus) error {
	if t.runID == "" {
		return fmt.Errorf("tracking run not started")
	}
	return t.api.UpdateRun(ctx, t.runID, status)
}
