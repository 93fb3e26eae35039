package mlflow

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/databricks/databricks-sdk-go/service/ml"
)

// UploadArtifact stores filePath under artifactPath in the run's artifact
// store. artifactPath defaults to the file's base name.
func (c *Client) UploadArtifact(ctx context.Context, runID, filePath, artifactPath string) error {
	artifactURI, err := c.getArtifactURI(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get artifact URI: %w", err)
	}

	if artifactPath == "" {
		artifactPath = filepath.Base(filePath)
	}

	return c.uploadToStorage(ctx, artifactURI, filePath, artifactPath)
}

func (c *Client) getArtifactURI(ctx context.Context, runID string) (string, error) {
	resp, err := c.client.Experiments.GetRun(ctx, ml.GetRunRequest{
		RunId: runID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get run: %w", err)
	}

	if resp.Run.Info.ArtifactUri == "" {
		return "", fmt.Errorf("artifact URI not found for run %s", runID)
	}

	return resp.Run.Info.ArtifactUri, nil
}

// uploadToStorage dispatches on the artifact URI scheme.
func (c *Client) uploadToStorage(ctx context.Context, artifactURI, filePath, artifactPath string) error {
	switch {
	case strings.HasPrefix(artifactURI, "mlflow-artifacts:/"):
		return c.uploadToMLflowArtifacts(ctx, artifactURI, filePath, artifactPath)
	case strings.HasPrefix(artifactURI, "file://"), strings.HasPrefix(artifactURI, "/"):
		return uploadToLocalFS(artifactURI, filePath, artifactPath)
	default:
		return fmt.Errorf("unsupported artifact URI scheme: %s", artifactURI)
	}
}

// uploadToMLflowArtifacts PUTs the file to the MLflow artifacts service.
func (c *Client) uploadToMLflowArtifacts(ctx context.Context, artifactURI, filePath, artifactPath string) error {
	experimentID, runID, err := extractIDsFromArtifactURI(artifactURI)
	if err != nil {
		return fmt.Errorf("failed to extract IDs from artifact URI: %w", err)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file info: %w", err)
	}

	url := artifactsURL(c.config.TrackingURI, experimentID, runID, artifactPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, file)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.ContentLength = fileInfo.Size()
	req.Header.Set("Content-Type", "application/octet-stream")
	if c.config.IsDatabricks() && c.config.DatabricksToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.DatabricksToken)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload to MLflow Artifacts Service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("MLflow Artifacts Service upload failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	return nil
}

// artifactsURL builds
// {tracking}/api/2.0/mlflow-artifacts/artifacts/{experiment_id}/{run_id}/artifacts/{path}.
func artifactsURL(trackingURI, experimentID, runID, artifactPath string) string {
	return fmt.Sprintf("%s/api/2.0/mlflow-artifacts/artifacts/%s/%s/artifacts/%s",
		strings.TrimSuffix(trackingURI, "/"), experimentID, runID, artifactPath)
}

// uploadToLocalFS copies the file into a file:// artifact root.
func uploadToLocalFS(artifactURI, filePath, artifactPath string) error {
	localPath := filepath.Join(strings.TrimPrefix(artifactURI, "file://"), artifactPath)

	dir := filepath.Dir(localPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	sourceFile, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer sourceFile.Close()

	destFile, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}

	return nil
}

// extractIDsFromArtifactURI splits mlflow-artifacts:/{experiment}/{run}/artifacts.
func extractIDsFromArtifactURI(artifactURI string) (string, string, error) {
	path := strings.TrimPrefix(strings.TrimPrefix(artifactURI, "mlflow-artifacts:"), "/")
	parts := strings.Split(path, "/")
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid mlflow-artifacts URI format: %s", artifactURI)
	}

	return parts[0], parts[1], nil
}
