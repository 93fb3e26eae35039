package mlflow

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imishinist/finetune-cli/internal/config"
)

func TestSDKConfigFor(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.Config
		wantHost    string
		wantProfile string
		wantToken   string
		wantErr     bool
	}{
		{
			name:      "plain MLflow server",
			cfg:       config.Config{TrackingURI: "http://localhost:5000"},
			wantHost:  "http://localhost:5000",
			wantToken: placeholderToken,
		},
		{
			name:     "databricks with host",
			cfg:      config.Config{TrackingURI: "databricks", DatabricksHost: "https://adb-1.azuredatabricks.net"},
			wantHost: "https://adb-1.azuredatabricks.net",
		},
		{
			name:    "databricks without host",
			cfg:     config.Config{TrackingURI: "databricks"},
			wantErr: true,
		},
		{
			name:        "profile",
			cfg:         config.Config{TrackingURI: "databricks://prod", DatabricksToken: "tok"},
			wantProfile: "prod",
			wantToken:   "tok",
		},
		{
			name:     "workspace URL",
			cfg:      config.Config{TrackingURI: "https://dbc-1.cloud.databricks.com"},
			wantHost: "https://dbc-1.cloud.databricks.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sdkConfigFor(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, got.Host)
			assert.Equal(t, tt.wantProfile, got.Profile)
			assert.Equal(t, tt.wantToken, got.Token)
		})
	}
}

func TestNewClientRequiresTrackingURI(t *testing.T) {
	_, err := NewClient(&config.Config{})
	assert.Error(t, err)
}

func TestTruncateValue(t *testing.T) {
	assert.Equal(t, "short", truncateValue("short"))

	long := strings.Repeat("x", MaxParamValueLength+10)
	got := truncateValue(long)
	assert.Len(t, got, MaxParamValueLength)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestTruncateValueKeepsRunes(t *testing.T) {
	// two-byte runes starting at an even offset put the cut mid-rune
	long := "xx" + strings.Repeat("é", MaxParamValueLength)
	got := truncateValue(long)
	assert.True(t, utf8.ValidString(got))
	assert.Len(t, got, MaxParamValueLength-1)
	assert.True(t, strings.HasSuffix(got, "é..."))
}

func TestExtractIDsFromArtifactURI(t *testing.T) {
	exp, run, err := extractIDsFromArtifactURI("mlflow-artifacts:/0/47485d6a0b734e37aaddc60be04b7371/artifacts")
	require.NoError(t, err)
	assert.Equal(t, "0", exp)
	assert.Equal(t, "47485d6a0b734e37aaddc60be04b7371", run)

	_, _, err = extractIDsFromArtifactURI("mlflow-artifacts:/0")
	assert.Error(t, err)
}

func TestArtifactsURL(t *testing.T) {
	assert.Equal(t,
		"http://localhost:5000/api/2.0/mlflow-artifacts/artifacts/0/abc/artifacts/run1_generator.json",
		artifactsURL("http://localhost:5000/", "0", "abc", "run1_generator.json"))
}

func TestUploadToLocalFS(t *testing.T) {
	src := filepath.Join(t.TempDir(), "run1_finetuning.json")
	require.NoError(t, os.WriteFile(src, []byte(`{"type": "trainer"}`), 0644))

	root := t.TempDir()
	require.NoError(t, uploadToLocalFS("file://"+root, src, "configs/run1_finetuning.json"))

	got, err := os.ReadFile(filepath.Join(root, "configs", "run1_finetuning.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"type": "trainer"}`, string(got))
}

func TestUploadToStorageUnsupportedScheme(t *testing.T) {
	c := &Client{config: &config.Config{TrackingURI: "http://localhost:5000"}}
	err := c.uploadToStorage(context.Background(), "s3://bucket/artifacts", "a.json", "a.json")
	assert.ErrorContains(t, err, "unsupported artifact URI scheme")
}
