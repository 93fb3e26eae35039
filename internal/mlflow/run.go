package mlflow

import (
	"context"
	"fmt"
	"time"

	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/imishinist/finetune-cli/internal/models"
)

func (c *Client) CreateRun(ctx context.Context, run *models.TrackingRun) (*models.RunInfo, error) {
	if run.ExperimentID == nil || *run.ExperimentID == "" {
		return nil, fmt.Errorf("experiment ID must be provided")
	}
	experimentID := *run.ExperimentID

	runName := "run-" + time.Now().Format("2006-01-02-15-04-05")
	if run.RunName != nil {
		runName = *run.RunName
	}

	tags := make([]ml.RunTag, 0, len(run.Tags)+2)
	for key, value := range run.Tags {
		tags = append(tags, ml.RunTag{Key: key, Value: value})
	}
	tags = append(tags, ml.RunTag{Key: "mlflow.runName", Value: runName})

	var description string
	if run.Description != nil {
		description = *run.Description
		tags = append(tags, ml.RunTag{Key: "mlflow.note.content", Value: description})
	}

	startTime := time.Now()
	resp, err := c.client.Experiments.CreateRun(ctx, ml.CreateRun{
		ExperimentId: experimentID,
		RunName:      runName,
		StartTime:    startTime.UnixMilli(),
		Tags:         tags,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return &models.RunInfo{
		RunID:        resp.Run.Info.RunId,
		ExperimentID: experimentID,
		RunName:      runName,
		Status:       string(models.RunStatusRunning),
		StartTime:    startTime,
		Tags:         run.Tags,
		Description:  description,
	}, nil
}

// updateStatuses maps run statuses onto the API enum.
var updateStatuses = map[models.RunStatus]ml.UpdateRunStatus{
	models.RunStatusRunning:  ml.UpdateRunStatusRunning,
	models.RunStatusFinished: ml.UpdateRunStatusFinished,
	models.RunStatusFailed:   ml.UpdateRunStatusFailed,
	models.RunStatusKilled:   ml.UpdateRunStatusKilled,
}

func (c *Client) UpdateRun(ctx context.Context, runID string, status models.RunStatus) error {
	mlStatus, ok := updateStatuses[status]
	if !ok {
		return fmt.Errorf("unknown run status: %s", status)
	}

	updateRun := ml.UpdateRun{
		RunId:  runID,
		Status: mlStatus,
	}
	if status != models.RunStatusRunning {
		updateRun.EndTime = time.Now().UnixMilli()
	}

	if _, err := c.client.Experiments.UpdateRun(ctx, updateRun); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	return nil
}
