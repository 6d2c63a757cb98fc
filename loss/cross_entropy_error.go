package loss

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"

	"github.com/chewxy/math32"
	"gonloss/dataset"
	"gonloss/neuralnet"
	"gonloss/tensorx"
	"gorgonia.org/tensor"
)

const (
	CrossEntropyErrorType     = "CROSS_ENTROPY_ERROR"
	CrossEntropyErrorTypeText = "Cross entropy error"

	crossEntropyErrorElement = "CrossEntropyError"
)

// Probabilities are clamped into [eps, 1-eps] before any log or division.
const (
	Epsilon64 = 1e-15
	Epsilon32 = float32(1e-7)
)

// CrossEntropyError is the error term for classification networks whose
// outputs are class probabilities.
//
// With a single output column the binary form -(t ln y + (1-t) ln(1-y)) is
// used; with several columns the categorical form -Σ t ln y.
type CrossEntropyError struct {
	LossIndex
}

var _ LossTerm = (*CrossEntropyError)(nil)

func NewCrossEntropyError(nn *neuralnet.NeuralNetwork, ds *dataset.DataSet) *CrossEntropyError {
	return &CrossEntropyError{LossIndex: newLossIndex(nn, ds)}
}

func (c *CrossEntropyError) ErrorType() string { return CrossEntropyErrorType }

func (c *CrossEntropyError) ErrorTypeText() string { return CrossEntropyErrorTypeText }

// CalculateBatchError is the reduced error over the data set instances named
// by indices, at the network's current parameters.
func (c *CrossEntropyError) CalculateBatchError(indices []int) (float64, error) {
	return c.batchError(c, indices, nil)
}

// CalculateBatchErrorWith is CalculateBatchError evaluated at parameters
// instead of the network's own.
func (c *CrossEntropyError) CalculateBatchErrorWith(indices []int, parameters []float64) (float64, error) {
	if parameters == nil {
		parameters = []float64{}
	}
	return c.batchError(c, indices, parameters)
}

func (c *CrossEntropyError) CalculateFirstOrderLoss(batch *dataset.Batch) (*FirstOrderLoss, error) {
	fp, err := c.forward(batch)
	if err != nil {
		return nil, err
	}
	return c.firstOrderLoss(c, batch, fp)
}

func (c *CrossEntropyError) CalculateFirstOrderLossFrom(batch *dataset.Batch, fp *neuralnet.ForwardPropagation) (*FirstOrderLoss, error) {
	return c.firstOrderLoss(c, batch, fp)
}

// CalculateError sums the cross-entropy error over every instance.
func (c *CrossEntropyError) CalculateError(outputs, targets *tensor.Dense) (float64, error) {
	if err := tensorx.CheckSameShape(outputs, targets); err != nil {
		return 0, err
	}
	outputs, targets = tensorx.Contiguous(outputs), tensorx.Contiguous(targets)
	binary := tensorx.Cols(outputs) == 1
	if outputs.Dtype() == tensor.Float32 {
		e, err := crossEntropy32(outputs.Float32s(), targets.Float32s(), binary)
		return float64(e), err
	}
	return crossEntropy64(outputs.Float64s(), targets.Float64s(), binary)
}

// CalculateOutputGradient returns ∂E/∂outputs per element:
//
//	-(t/y) + (1-t)/(1-y)
//
// It does not divide by the batch size. The result has the dtype of outputs.
func (c *CrossEntropyError) CalculateOutputGradient(outputs, targets *tensor.Dense) (*tensor.Dense, error) {
	if err := tensorx.CheckSameShape(outputs, targets); err != nil {
		return nil, err
	}
	outputs, targets = tensorx.Contiguous(outputs), tensorx.Contiguous(targets)
	shape := outputs.Shape()
	if outputs.Dtype() == tensor.Float32 {
		g, err := crossEntropyGradient32(outputs.Float32s(), targets.Float32s())
		if err != nil {
			return nil, err
		}
		return tensor.New(tensor.WithShape(shape[0], shape[1]), tensor.WithBacking(g)), nil
	}
	g, err := crossEntropyGradient64(outputs.Float64s(), targets.Float64s())
	if err != nil {
		return nil, err
	}
	return tensor.New(tensor.WithShape(shape[0], shape[1]), tensor.WithBacking(g)), nil
}

func (c *CrossEntropyError) ToXML() ([]byte, error) {
	return c.toXML(crossEntropyErrorElement)
}

func (c *CrossEntropyError) FromXML(data []byte) error {
	return c.fromXML(crossEntropyErrorElement, data)
}

func (c *CrossEntropyError) WriteXML(w io.Writer) error {
	return c.writeXML(xml.NewEncoder(w), crossEntropyErrorElement)
}

func clamp64(y float64) (float64, error) {
	if math.IsNaN(y) || y < 0 || y > 1 {
		return 0, fmt.Errorf("probability %v: %w", y, ErrNumericDegeneracy)
	}
	return math.Min(math.Max(y, Epsilon64), 1-Epsilon64), nil
}

func clamp32(y float32) (float32, error) {
	if math32.IsNaN(y) || y < 0 || y > 1 {
		return 0, fmt.Errorf("probability %v: %w", y, ErrNumericDegeneracy)
	}
	return math32.Min(math32.Max(y, Epsilon32), 1-Epsilon32), nil
}

func checkTarget64(t float64) error {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return fmt.Errorf("target %v: %w", t, ErrNumericDegeneracy)
	}
	return nil
}

func checkTarget32(t float32) error {
	if math32.IsNaN(t) || math32.IsInf(t, 0) {
		return fmt.Errorf("target %v: %w", t, ErrNumericDegeneracy)
	}
	return nil
}

func crossEntropy64(y, t []float64, binary bool) (float64, error) {
	var sum float64
	for i := range y {
		yi, err := clamp64(y[i])
		if err != nil {
			return 0, err
		}
		if err := checkTarget64(t[i]); err != nil {
			return 0, err
		}
		sum -= t[i] * math.Log(yi)
		if binary {
			sum -= (1 - t[i]) * math.Log(1-yi)
		}
	}
	return sum, nil
}

func crossEntropy32(y, t []float32, binary bool) (float32, error) {
	var sum float32
	for i := range y {
		yi, err := clamp32(y[i])
		if err != nil {
			return 0, err
		}
		if err := checkTarget32(t[i]); err != nil {
			return 0, err
		}
		sum -= t[i] * math32.Log(yi)
		if binary {
			sum -= (1 - t[i]) * math32.Log(1-yi)
		}
	}
	return sum, nil
}

func crossEntropyGradient64(y, t []float64) ([]float64, error) {
	g := make([]float64, len(y))
	for i := range y {
		yi, err := clamp64(y[i])
		if err != nil {
			return nil, err
		}
		if err := checkTarget64(t[i]); err != nil {
			return nil, err
		}
		g[i] = -(t[i] / yi) + (1-t[i])/(1-yi)
	}
	return g, nil
}

func crossEntropyGradient32(y, t []float32) ([]float32, error) {
	g := make([]float32, len(y))
	for i := range y {
		yi, err := clamp32(y[i])
		if err != nil {
			return nil, err
		}
		if err := checkTarget32(t[i]); err != nil {
			return nil, err
		}
		g[i] = -(t[i] / yi) + (1-t[i])/(1-yi)
	}
	return g, nil
}
