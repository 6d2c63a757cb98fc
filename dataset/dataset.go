// Package dataset holds input/target tensors and slices them into batches.
package dataset

import (
	"errors"
	"fmt"
	"math/rand"

	"gonloss/tensorx"
	"gorgonia.org/tensor"
)

var ErrIndexOutOfRange = errors.New("index out of range")

// DataSet is a pair of row-aligned rank-2 tensors: one row per instance.
type DataSet struct {
	inputs  *tensor.Dense
	targets *tensor.Dense
}

// Batch is one mini-batch copied out of a DataSet. Treat it as read-only.
type Batch struct {
	InputData  *tensor.Dense
	TargetData *tensor.Dense
}

func New(inputs, targets *tensor.Dense) (*DataSet, error) {
	if err := tensorx.CheckMatrix(inputs); err != nil {
		return nil, fmt.Errorf("inputs: %w", err)
	}
	if err := tensorx.CheckMatrix(targets); err != nil {
		return nil, fmt.Errorf("targets: %w", err)
	}
	if tensorx.Rows(inputs) != tensorx.Rows(targets) {
		return nil, fmt.Errorf("%d inputs vs %d targets: %w",
			tensorx.Rows(inputs), tensorx.Rows(targets), tensorx.ErrShapeMismatch)
	}
	if tensorx.Rows(inputs) == 0 {
		return nil, fmt.Errorf("empty data set: %w", tensorx.ErrShapeMismatch)
	}
	return &DataSet{inputs: inputs, targets: targets}, nil
}

func (d *DataSet) InstancesNumber() int {
	return tensorx.Rows(d.inputs)
}

func (d *DataSet) InputVariablesNumber() int {
	return tensorx.Cols(d.inputs)
}

func (d *DataSet) TargetVariablesNumber() int {
	return tensorx.Cols(d.targets)
}

// Batch copies the rows named by indices. Duplicate indices are allowed.
func (d *DataSet) Batch(indices []int) (*Batch, error) {
	if len(indices) == 0 {
		return nil, fmt.Errorf("no instances selected: %w", ErrIndexOutOfRange)
	}
	n := d.InstancesNumber()
	for _, idx := range indices {
		if idx < 0 || idx >= n {
			return nil, fmt.Errorf("instance %d of %d: %w", idx, n, ErrIndexOutOfRange)
		}
	}
	in, err := selectRows(d.inputs, indices)
	if err != nil {
		return nil, err
	}
	out, err := selectRows(d.targets, indices)
	if err != nil {
		return nil, err
	}
	return &Batch{InputData: in, TargetData: out}, nil
}

// All returns a batch with every instance in order.
func (d *DataSet) All() *Batch {
	indices := make([]int, d.InstancesNumber())
	for i := range indices {
		indices[i] = i
	}
	b, _ := d.Batch(indices)
	return b
}

// BatchIndices partitions all instances into batches of at most batchSize.
// The last batch holds the remainder.
func (d *DataSet) BatchIndices(batchSize int, shuffle bool, r *rand.Rand) ([][]int, error) {
	if batchSize <= 0 {
		return nil, errors.New("invalid batch size")
	}
	n := d.InstancesNumber()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if shuffle {
		if r == nil {
			return nil, errors.New("shuffle requires a random source")
		}
		r.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	batches := make([][]int, 0, (n+batchSize-1)/batchSize)
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		batches = append(batches, order[start:end])
	}
	return batches, nil
}

// InstancesNumber is the first dimension of the batch tensors.
func (b *Batch) InstancesNumber() int {
	return tensorx.Rows(b.InputData)
}

func selectRows(t *tensor.Dense, indices []int) (*tensor.Dense, error) {
	cols := tensorx.Cols(t)
	t = tensorx.Contiguous(t)
	switch t.Dtype() {
	case tensor.Float64:
		src := t.Float64s()
		data := make([]float64, len(indices)*cols)
		for i, idx := range indices {
			copy(data[i*cols:(i+1)*cols], src[idx*cols:(idx+1)*cols])
		}
		return tensor.New(tensor.WithShape(len(indices), cols), tensor.WithBacking(data)), nil
	case tensor.Float32:
		src := t.Float32s()
		data := make([]float32, len(indices)*cols)
		for i, idx := range indices {
			copy(data[i*cols:(i+1)*cols], src[idx*cols:(idx+1)*cols])
		}
		return tensor.New(tensor.WithShape(len(indices), cols), tensor.WithBacking(data)), nil
	}
	return nil, fmt.Errorf("%v: %w", t.Dtype(), tensorx.ErrDtype)
}

// OneHotEncode turns class labels into a (len(labels) x numClasses) tensor.
func OneHotEncode(labels []int, numClasses int) (*tensor.Dense, error) {
	if len(labels) == 0 || numClasses <= 0 {
		return nil, fmt.Errorf("%d labels, %d classes: %w", len(labels), numClasses, tensorx.ErrShapeMismatch)
	}
	norm := make([]float64, len(labels)*numClasses)
	for i, label := range labels {
		if label < 0 || label >= numClasses {
			return nil, fmt.Errorf("label %d of %d classes: %w", label, numClasses, ErrIndexOutOfRange)
		}
		norm[i*numClasses+label] = 1.0
	}
	return tensor.New(tensor.WithShape(len(labels), numClasses), tensor.WithBacking(norm)), nil
}
