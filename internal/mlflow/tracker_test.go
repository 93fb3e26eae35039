package mlflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imishinist/finetune-cli/internal/models"
)

type fakeAPI struct {
	created   *models.TrackingRun
	params    []models.Parameter
	paramsErr error
	uploads   map[string]string
	metrics   []models.Metric
	status    models.RunStatus
	uploadErr map[string]error
}

func (f *fakeAPI) CreateRun(ctx context.Context, run *models.TrackingRun) (*models.RunInfo, error) {
	f.created = run
	return &models.RunInfo{RunID: "r-1"}, nil
}

func (f *fakeAPI) LogParams(ctx context.Context, runID string, params []models.Parameter) error {
	if f.paramsErr != nil {
		return f.paramsErr
	}
	f.params = params
	return nil
}

func (f *fakeAPI) UploadArtifact(ctx context.Context, runID, filePath, artifactPath string) error {
	if err := f.uploadErr[filePath]; err != nil {
		return err
	}
	if f.uploads == nil {
		f.uploads = make(map[string]string)
	}
	f.uploads[filePath] = artifactPath
	return nil
}

func (f *fakeAPI) LogMetrics(ctx context.Context, runID string, metrics []models.Metric) error {
	f.metrics = metrics
	return nil
}

func (f *fakeAPI) UpdateRun(ctx context.Context, runID string, status models.RunStatus) error {
	f.status = status
	return nil
}

func TestTrackerLifecycle(t *testing.T) {
	api := &fakeAPI{}
	tr := &Tracker{api: api, experimentID: "42"}
	ctx := context.Background()

	params := []models.Parameter{{Key: "loss", Value: "mean_absolute_error"}}
	require.NoError(t, tr.Start(ctx, "run1"))
	assert.Equal(t, "r-1", tr.RunID())
	assert.Equal(t, "42", *api.created.ExperimentID)
	assert.Equal(t, "run1", *api.created.RunName)

	require.NoError(t, tr.LogParams(ctx, params))
	assert.Equal(t, params, api.params)

	require.NoError(t, tr.LogArtifacts(ctx, []string{"/out/run1_finetuning.json"}))
	assert.Equal(t, map[string]string{"/out/run1_finetuning.json": "run1_finetuning.json"}, api.uploads)

	end := time.Unix(100, 0)
	history := &models.History{Epochs: []models.EpochMetrics{{Epoch: 0, Loss: 0.5, ValLoss: 0.6, EndTime: end}}}
	require.NoError(t, tr.LogHistory(ctx, history))
	assert.Equal(t, []models.Metric{
		{Key: "loss", Value: 0.5, Timestamp: end, Step: 0},
		{Key: "val_loss", Value: 0.6, Timestamp: end, Step: 0},
	}, api.metrics)

	require.NoError(t, tr.End(ctx, models.RunStatusFinished))
	assert.Equal(t, models.RunStatusFinished, api.status)
}

func TestTrackerRequiresStart(t *testing.T) {
	tr := &Tracker{api: &fakeAPI{}, experimentID: "42"}
	ctx := context.Background()

	assert.Error(t, tr.LogParams(ctx, nil))
	assert.Error(t, tr.LogArtifacts(ctx, nil))
	assert.Error(t, tr.LogHistory(ctx, &models.History{}))
	assert.Error(t, tr.End(ctx, models.RunStatusFailed))
}

func TestTrackerUploadsPastFailures(t *testing.T) {
	api := &fakeAPI{uploadErr: map[string]error{"/out/a.json": errors.New("denied")}}
	tr := &Tracker{api: api, experimentID: "42"}
	require.NoError(t, tr.Start(context.Background(), "run1"))

	err := tr.LogArtifacts(context.Background(), []string{"/out/a.json", "/out/b.json"})
	assert.ErrorContains(t, err, "1/2")
	assert.Contains(t, api.uploads, "/out/b.json")
}

func TestTrackerParamFailureKeepsRun(t *testing.T) {
	api := &fakeAPI{paramsErr: errors.New("param rejected")}
	tr := &Tracker{api: api, experimentID: "42"}
	ctx := context.Background()

	require.NoError(t, tr.Start(ctx, "run1"))
	assert.ErrorContains(t, tr.LogParams(ctx, []models.Parameter{{Key: "k", Value: "v"}}), "param rejected")
	assert.Equal(t, "r-1", tr.RunID())

	require.NoError(t, tr.End(ctx, models.RunStatusFailed))
	assert.Equal(t, models.RunStatusFailed, api.status)
}
