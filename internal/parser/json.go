package parser

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/imishinist/finetune-cli/internal/models"
)

// ParseJSONConfig decodes a run configuration. Numbers are kept as
// json.Number so integers survive the round trip to the artifacts.
func ParseJSONConfig(reader io.Reader) (models.RunConfig, error) {
	var data models.RunConfig
	decoder := json.NewDecoder(reader)
	decoder.UseNumber()

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON config: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("failed to parse JSON config: document is empty")
	}

	return data, nil
}

// ParseJSONParams decodes a single configuration section, such as a
// generator artifact written by the artifact writer.
func ParseJSONParams(reader io.Reader) (models.Params, error) {
	var data models.Params
	decoder := json.NewDecoder(reader)
	decoder.UseNumber()

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON parameters: %w", err)
	}

	return data, nil
}
