// Package tensorx moves rank-2 data between gorgonia dense tensors, which are
// what batches and loss terms exchange, and gonum matrices, which the network
// uses for its algebra.
package tensorx

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

var (
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrDtype         = errors.New("unsupported dtype")
)

// CheckMatrix reports an error unless t is a rank-2 Float64 or Float32 tensor.
func CheckMatrix(t *tensor.Dense) error {
	if t == nil {
		return fmt.Errorf("nil tensor: %w", ErrShapeMismatch)
	}
	if t.Dims() != 2 {
		return fmt.Errorf("want rank 2, got shape %v: %w", t.Shape(), ErrShapeMismatch)
	}
	if dt := t.Dtype(); dt != tensor.Float64 && dt != tensor.Float32 {
		return fmt.Errorf("%v: %w", dt, ErrDtype)
	}
	return nil
}

// CheckSameShape reports an error unless a and b are rank-2 tensors of the
// same shape and dtype.
func CheckSameShape(a, b *tensor.Dense) error {
	if err := CheckMatrix(a); err != nil {
		return err
	}
	if err := CheckMatrix(b); err != nil {
		return err
	}
	if !a.Shape().Eq(b.Shape()) {
		return fmt.Errorf("%v vs %v: %w", a.Shape(), b.Shape(), ErrShapeMismatch)
	}
	if a.Dtype() != b.Dtype() {
		return fmt.Errorf("%v vs %v: %w", a.Dtype(), b.Dtype(), ErrDtype)
	}
	return nil
}

// Contiguous returns t, or a materialized copy when t is a view.
func Contiguous(t *tensor.Dense) *tensor.Dense {
	if t.IsView() {
		return t.Materialize().(*tensor.Dense)
	}
	return t
}

// Float64s returns a contiguous float64 copy of t's elements in row-major
// order. Float32 tensors are widened.
func Float64s(t *tensor.Dense) ([]float64, error) {
	if err := CheckMatrix(t); err != nil {
		return nil, err
	}
	t = Contiguous(t)
	switch t.Dtype() {
	case tensor.Float64:
		src := t.Float64s()
		out := make([]float64, len(src))
		copy(out, src)
		return out, nil
	default:
		src := t.Float32s()
		out := make([]float64, len(src))
		for i, v := range src {
			out[i] = float64(v)
		}
		return out, nil
	}
}

// ConvertTensorToDense copies a rank-2 tensor into a new gonum matrix.
func ConvertTensorToDense(t *tensor.Dense) (*mat.Dense, error) {
	data, err := Float64s(t)
	if err != nil {
		return nil, err
	}
	shape := t.Shape()
	if shape[0] == 0 || shape[1] == 0 {
		return nil, fmt.Errorf("empty tensor %v: %w", shape, ErrShapeMismatch)
	}
	return mat.NewDense(shape[0], shape[1], data), nil
}

// ConvertDenseToTensor copies m into a new Float64 tensor of the same shape.
func ConvertDenseToTensor(m mat.Matrix) *tensor.Dense {
	r, c := m.Dims()
	data := make([]float64, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data[i*c+j] = m.At(i, j)
		}
	}
	return tensor.New(tensor.WithShape(r, c), tensor.WithBacking(data))
}

// ToFloat64 returns t itself when it already holds float64 values, otherwise a
// widened copy.
func ToFloat64(t *tensor.Dense) (*tensor.Dense, error) {
	if err := CheckMatrix(t); err != nil {
		return nil, err
	}
	if t.Dtype() == tensor.Float64 {
		return t, nil
	}
	data, err := Float64s(t)
	if err != nil {
		return nil, err
	}
	shape := t.Shape()
	return tensor.New(tensor.WithShape(shape[0], shape[1]), tensor.WithBacking(data)), nil
}

// Rows returns the first dimension of a rank-2 tensor.
func Rows(t *tensor.Dense) int {
	return t.Shape()[0]
}

// Cols returns the second dimension of a rank-2 tensor.
func Cols(t *tensor.Dense) int {
	return t.Shape()[1]
}
