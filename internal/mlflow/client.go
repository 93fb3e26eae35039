// Package mlflow mirrors fine-tuning runs into an MLflow tracking server,
// either self-hosted or Databricks-managed, through the Databricks SDK.
package mlflow

import (
	"fmt"

	"github.com/databricks/databricks-sdk-go"

	"github.com/imishinist/finetune-cli/internal/config"
)

// placeholderToken satisfies the SDK's auth chain for servers without auth.
const placeholderToken = "dummy-token-for-regular-mlflow"

type Client struct {
	client *databricks.WorkspaceClient
	config *config.Config
}

func NewClient(cfg *config.Config) (*Client, error) {
	if err := cfg.ValidateTracking(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	sdkConfig, err := sdkConfigFor(cfg)
	if err != nil {
		return nil, err
	}

	client, err := databricks.NewWorkspaceClient(sdkConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create MLflow client: %w", err)
	}

	return &Client{
		client: client,
		config: cfg,
	}, nil
}

// sdkConfigFor maps the tracking URI onto SDK settings. Accepted forms:
// "databricks" (host from DATABRICKS_HOST or the default profile),
// "databricks://<profile>", a Databricks workspace URL, or any other URL
// for a plain MLflow server.
func sdkConfigFor(cfg *config.Config) (*databricks.Config, error) {
	if !cfg.IsDatabricks() {
		return &databricks.Config{
			Host:  cfg.TrackingURI,
			Token: placeholderToken,
		}, nil
	}

	sdkConfig := &databricks.Config{}
	switch profile := cfg.GetDatabricksProfile(); {
	case cfg.TrackingURI == "databricks":
		sdkConfig.Host = cfg.DatabricksHost
	case profile != "":
		sdkConfig.Profile = profile
	default:
		sdkConfig.Host = cfg.TrackingURI
	}

	// an explicit token wins over the profile's credentials
	if cfg.DatabricksToken != "" {
		sdkConfig.Token = cfg.DatabricksToken
	}

	if sdkConfig.Host == "" && sdkConfig.Profile == "" {
		return nil, fmt.Errorf("Databricks host or profile is required when using Databricks MLflow. Set DATABRICKS_HOST, use a workspace URL as tracking URI, or pass databricks://{profile}")
	}
	return sdkConfig, nil
}
