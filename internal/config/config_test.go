package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: Config{LogLevel: "info", LogFormat: "text"}},
		{name: "json", cfg: Config{LogLevel: "debug", LogFormat: "json"}},
		{name: "bad level", cfg: Config{LogLevel: "trace", LogFormat: "text"}, wantErr: true},
		{name: "bad format", cfg: Config{LogLevel: "info", LogFormat: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTracking(t *testing.T) {
	assert.Error(t, (&Config{}).ValidateTracking())
	assert.NoError(t, (&Config{TrackingURI: "http://localhost:5000"}).ValidateTracking())
}

func TestIsDatabricks(t *testing.T) {
	tests := []struct {
		uri  string
		want bool
	}{
		{uri: "databricks", want: true},
		{uri: "databricks://prod", want: true},
		{uri: "https://adb-123.azuredatabricks.net", want: true},
		{uri: "https://dbc-1.cloud.databricks.com/ml/runs", want: true},
		{uri: "http://localhost:5000", want: false},
		{uri: "https://mlflow.example.com", want: false},
	}

	for _, tt := range tests {
		cfg := &Config{TrackingURI: tt.uri}
		assert.Equal(t, tt.want, cfg.IsDatabricks(), tt.uri)
	}
}

func TestGetDatabricksProfile(t *testing.T) {
	assert.Equal(t, "prod", (&Config{TrackingURI: "databricks://prod/extra"}).GetDatabricksProfile())
	assert.Equal(t, "", (&Config{TrackingURI: "databricks"}).GetDatabricksProfile())
}
