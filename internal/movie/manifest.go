package movie

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// Entry describes one experiment in a data manifest.
type Entry struct {
	Path   string   `json:"path"`
	Frames []int    `json:"frames,omitempty"`
	Mean   *float64 `json:"mean,omitempty"`
	Std    *float64 `json:"std,omitempty"`
}

// Manifest maps experiment ids to their movie files.
type Manifest map[string]Entry

func ParseManifest(reader io.Reader) (Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(reader).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	for id, e := range m {
		if e.Path == "" {
			return nil, fmt.Errorf("manifest entry %s has no path", id)
		}
	}
	return m, nil
}

func LoadManifest(path string) (Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest %s: %w", path, err)
	}
	defer file.Close()

	m, err := ParseManifest(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// IDs returns the experiment ids in sorted order.
func (m Manifest) IDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
