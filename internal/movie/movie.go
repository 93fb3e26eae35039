// Package movie holds image stacks loaded from disk and the manifests that
// point at them.
package movie

import (
	"fmt"
)

// Movie is a dense row-major array whose first axis is time.
type Movie struct {
	Shape []int
	Data  []float32
}

// Cache maps experiment ids to fully loaded movies. It is filled once and
// then only read.
type Cache map[string]*Movie

// Reader loads a whole movie from a container file.
type Reader interface {
	ReadMovie(path string) (*Movie, error)
}

func New(shape []int, data []float32) (*Movie, error) {
	if len(shape) == 0 {
		return nil, fmt.Errorf("movie shape is empty")
	}
	n := 1
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("negative dimension in shape %v", shape)
		}
		n *= d
	}
	if n != len(data) {
		return nil, fmt.Errorf("shape %v needs %d values, got %d", shape, n, len(data))
	}
	return &Movie{Shape: shape, Data: data}, nil
}

func (m *Movie) NumFrames() int {
	return m.Shape[0]
}

// FrameSize is the number of values in a single frame.
func (m *Movie) FrameSize() int {
	n := 1
	for _, d := range m.Shape[1:] {
		n *= d
	}
	return n
}

// Frame returns frame i as a view into the movie's storage.
func (m *Movie) Frame(i int) ([]float32, error) {
	if i < 0 || i >= m.NumFrames() {
		return nil, fmt.Errorf("frame %d out of range [0, %d)", i, m.NumFrames())
	}
	size := m.FrameSize()
	return m.Data[i*size : (i+1)*size], nil
}
