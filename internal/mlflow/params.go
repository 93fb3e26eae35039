package mlflow

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/imishinist/finetune-cli/internal/models"
)

// MaxParamValueLength is the longest parameter value MLflow accepts.
const MaxParamValueLength = 500

func (c *Client) LogParam(ctx context.Context, runID string, key string, value string) error {
	err := c.client.Experiments.LogParam(ctx, ml.LogParam{
		RunId: runID,
		Key:   key,
		Value: truncateValue(value),
	})
	if err != nil {
		return fmt.Errorf("failed to log parameter %s: %w", key, err)
	}

	return nil
}

func (c *Client) LogParams(ctx context.Context, runID string, params []models.Parameter) error {
	for _, param := range params {
		if err := c.LogParam(ctx, runID, param.Key, param.Value); err != nil {
			return err
		}
	}

	return nil
}

func truncateValue(value string) string {
	if len(value) <= MaxParamValueLength {
		return value
	}
	const suffix = "..."
	cut := MaxParamValueLength - len(suffix)
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut] + suffix
}
