package loss

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"

	"gonloss/dataset"
	"gonloss/neuralnet"
	"gonloss/tensorx"
	"gorgonia.org/tensor"
)

const (
	MeanSquaredErrorType     = "MEAN_SQUARED_ERROR"
	MeanSquaredErrorTypeText = "Mean squared error"

	meanSquaredErrorElement = "MeanSquaredError"
)

// MeanSquaredError is Σ(y-t)² per instance, averaged over the batch under
// ReductionMean.
type MeanSquaredError struct {
	LossIndex
}

var _ LossTerm = (*MeanSquaredError)(nil)

func NewMeanSquaredError(nn *neuralnet.NeuralNetwork, ds *dataset.DataSet) *MeanSquaredError {
	return &MeanSquaredError{LossIndex: newLossIndex(nn, ds)}
}

func (m *MeanSquaredError) ErrorType() string { return MeanSquaredErrorType }

func (m *MeanSquaredError) ErrorTypeText() string { return MeanSquaredErrorTypeText }

func (m *MeanSquaredError) CalculateBatchError(indices []int) (float64, error) {
	return m.batchError(m, indices, nil)
}

func (m *MeanSquaredError) CalculateBatchErrorWith(indices []int, parameters []float64) (float64, error) {
	if parameters == nil {
		parameters = []float64{}
	}
	return m.batchError(m, indices, parameters)
}

func (m *MeanSquaredError) CalculateFirstOrderLoss(batch *dataset.Batch) (*FirstOrderLoss, error) {
	fp, err := m.forward(batch)
	if err != nil {
		return nil, err
	}
	return m.firstOrderLoss(m, batch, fp)
}

func (m *MeanSquaredError) CalculateFirstOrderLossFrom(batch *dataset.Batch, fp *neuralnet.ForwardPropagation) (*FirstOrderLoss, error) {
	return m.firstOrderLoss(m, batch, fp)
}

func (m *MeanSquaredError) CalculateError(outputs, targets *tensor.Dense) (float64, error) {
	y, t, err := squaredErrorOperands(outputs, targets)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := range y {
		d := y[i] - t[i]
		sum += d * d
	}
	return sum, nil
}

// CalculateOutputGradient is 2(y-t), always returned as Float64.
func (m *MeanSquaredError) CalculateOutputGradient(outputs, targets *tensor.Dense) (*tensor.Dense, error) {
	y, t, err := squaredErrorOperands(outputs, targets)
	if err != nil {
		return nil, err
	}
	g := make([]float64, len(y))
	for i := range y {
		g[i] = 2 * (y[i] - t[i])
	}
	shape := outputs.Shape()
	return tensor.New(tensor.WithShape(shape[0], shape[1]), tensor.WithBacking(g)), nil
}

func (m *MeanSquaredError) ToXML() ([]byte, error) {
	return m.toXML(meanSquaredErrorElement)
}

func (m *MeanSquaredError) FromXML(data []byte) error {
	return m.fromXML(meanSquaredErrorElement, data)
}

func (m *MeanSquaredError) WriteXML(w io.Writer) error {
	return m.writeXML(xml.NewEncoder(w), meanSquaredErrorElement)
}

func squaredErrorOperands(outputs, targets *tensor.Dense) ([]float64, []float64, error) {
	if err := tensorx.CheckSameShape(outputs, targets); err != nil {
		return nil, nil, err
	}
	y, err := tensorx.Float64s(outputs)
	if err != nil {
		return nil, nil, err
	}
	t, err := tensorx.Float64s(targets)
	if err != nil {
		return nil, nil, err
	}
	for i := range y {
		if math.IsNaN(y[i]) || math.IsInf(y[i], 0) || math.IsNaN(t[i]) || math.IsInf(t[i], 0) {
			return nil, nil, fmt.Errorf("element %d: %w", i, ErrNumericDegeneracy)
		}
	}
	return y, t, nil
}
