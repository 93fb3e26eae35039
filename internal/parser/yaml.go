package parser

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/imishinist/finetune-cli/internal/models"
)

func ParseYAMLConfig(reader io.Reader) (models.RunConfig, error) {
	var data models.RunConfig
	decoder := yaml.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("failed to parse YAML config: document is empty")
	}

	return data, nil
}
