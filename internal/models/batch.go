package models

// Batch is one step's worth of samples. Inputs[i] is the flattened stack of
// neighbouring frames for sample i and Targets[i] the frame to recover.
type Batch struct {
	Inputs  [][]float64
	Targets [][]float64
	// Frames per input; len(Inputs[i]) == Frames * len(Targets[i]).
	Frames int
}

func (b *Batch) Size() int {
	return len(b.Targets)
}
