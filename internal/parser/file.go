package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/imishinist/finetune-cli/internal/models"
)

// LoadConfigFile picks the decoder from the file extension.
func LoadConfigFile(path string) (models.RunConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return ParseJSONConfig(file)
	case ".yaml", ".yml":
		return ParseYAMLConfig(file)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .json, .yaml, .yml)", ext)
	}
}

// LoadParamsFile reads a JSON configuration section from disk.
func LoadParamsFile(path string) (models.Params, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	params, err := ParseJSONParams(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return params, nil
}
