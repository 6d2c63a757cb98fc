package dataset

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gonloss/tensorx"
	"gorgonia.org/tensor"
)

func newTestSet(t *testing.T) *DataSet {
	t.Helper()
	inputs := tensor.New(tensor.WithShape(4, 2), tensor.WithBacking([]float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
	}))
	targets := tensor.New(tensor.WithShape(4, 1), tensor.WithBacking([]float64{0, 1, 1, 0}))
	d, err := New(inputs, targets)
	require.NoError(t, err)
	return d
}

func TestNewRejectsMismatchedRows(t *testing.T) {
	inputs := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]float64{1, 2, 3, 4}))
	targets := tensor.New(tensor.WithShape(3, 1), tensor.WithBacking([]float64{1, 2, 3}))
	_, err := New(inputs, targets)
	require.ErrorIs(t, err, tensorx.ErrShapeMismatch)
}

func TestBatchCopiesRows(t *testing.T) {
	d := newTestSet(t)
	b, err := d.Batch([]int{3, 1})
	require.NoError(t, err)
	require.Equal(t, 2, b.InstancesNumber())
	require.Equal(t, []float64{1, 1, 0, 1}, b.InputData.Float64s())
	require.Equal(t, []float64{0, 1}, b.TargetData.Float64s())

	b.InputData.Float64s()[0] = 9
	again, err := d.Batch([]int{3})
	require.NoError(t, err)
	require.Equal(t, 1.0, again.InputData.Float64s()[0])
}

func TestBatchIndexOutOfRange(t *testing.T) {
	d := newTestSet(t)
	for _, indices := range [][]int{{4}, {-1}, {0, 1, 7}, {}} {
		_, err := d.Batch(indices)
		require.ErrorIs(t, err, ErrIndexOutOfRange, "indices %v", indices)
	}
}

func TestBatchIndicesCoverEveryInstance(t *testing.T) {
	d := newTestSet(t)
	batches, err := d.BatchIndices(3, true, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, batches, 2)
	require.Len(t, batches[0], 3)
	require.Len(t, batches[1], 1)

	seen := map[int]bool{}
	for _, b := range batches {
		for _, idx := range b {
			seen[idx] = true
		}
	}
	require.Len(t, seen, 4)

	_, err = d.BatchIndices(0, false, nil)
	require.Error(t, err)
}

func TestOneHotEncode(t *testing.T) {
	out, err := OneHotEncode([]int{2, 0}, 3)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 0, 1, 1, 0, 0}, out.Float64s())

	_, err = OneHotEncode([]int{3}, 3)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestReadCIFAR10(t *testing.T) {
	var buf bytes.Buffer
	for label := 0; label < 2; label++ {
		row := make([]byte, Row)
		row[0] = byte(label + 4)
		row[1] = 255
		buf.Write(row)
	}
	d, err := ReadCIFAR10(&buf)
	require.NoError(t, err)
	require.Equal(t, 2, d.InstancesNumber())
	require.Equal(t, ImageSize, d.InputVariablesNumber())
	require.Equal(t, CIFARClasses, d.TargetVariablesNumber())

	b := d.All()
	require.Equal(t, tensor.Float32, b.InputData.Dtype())
	require.Equal(t, float32(1), b.InputData.Float32s()[0])
	require.Equal(t, 1.0, b.TargetData.Float64s()[4])
	require.Equal(t, 1.0, b.TargetData.Float64s()[CIFARClasses+5])
}

func TestReadCIFAR10Truncated(t *testing.T) {
	_, err := ReadCIFAR10(bytes.NewReader(make([]byte, Row+10)))
	require.Error(t, err)
}

func TestReadLabelNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batches.meta.txt")
	require.NoError(t, os.WriteFile(path, []byte("airplane\nautomobile\n\n"), 0o644))
	words, err := ReadLabelNames(path)
	require.NoError(t, err)
	require.Equal(t, []string{"airplane", "automobile"}, words)
}
