package movie

import (
	"fmt"

	"gonum.org/v1/hdf5"
)

// DefaultDataset is the dataset holding the image stack in movie files.
const DefaultDataset = "data"

// HDF5Reader reads a whole dataset from an HDF5 file.
type HDF5Reader struct {
	Dataset string
}

func NewHDF5Reader() *HDF5Reader {
	return &HDF5Reader{Dataset: DefaultDataset}
}

func (r *HDF5Reader) ReadMovie(path string) (*Movie, error) {
	name := r.Dataset
	if name == "" {
		name = DefaultDataset
	}

	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	dset, err := f.OpenDataset(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %q in %s: %w", name, path, err)
	}
	defer dset.Close()

	space := dset.Space()
	defer space.Close()

	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, fmt.Errorf("failed to read shape of %s: %w", path, err)
	}

	shape := make([]int, len(dims))
	for i, d := range dims {
		shape[i] = int(d)
	}

	// HDF5 converts the stored element type to float32 on read.
	data := make([]float32, space.SimpleExtentNPoints())
	if err := dset.Read(&data); err != nil {
		return nil, fmt.Errorf("failed to read dataset %q in %s: %w", name, path, err)
	}

	return New(shape, data)
}

// WriteHDF5 stores m as a float32 dataset named DefaultDataset.
func WriteHDF5(path string, m *Movie) error {
	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	dims := make([]uint, len(m.Shape))
	for i, d := range m.Shape {
		dims[i] = uint(d)
	}

	space, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return fmt.Errorf("failed to create dataspace: %w", err)
	}
	defer space.Close()

	dset, err := f.CreateDataset(DefaultDataset, hdf5.T_NATIVE_FLOAT, space)
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}
	defer dset.Close()

	data := m.Data
	if err := dset.Write(&data); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}

	return nil
}
