// Package loss computes training objectives for a neural network: an error
// term between outputs and targets, an optional regularization term, and the
// gradient of their sum with respect to every network parameter.
package loss

import (
	"errors"
	"fmt"

	"gonloss/dataset"
	"gonloss/neuralnet"
	"gorgonia.org/tensor"
)

var (
	ErrNotConfigured     = errors.New("loss term has no neural network or data set")
	ErrNumericDegeneracy = errors.New("numeric degeneracy")
	ErrUnknownErrorType  = errors.New("unknown error type")
)

// FirstOrderLoss is a loss value together with its gradient with respect to
// the network parameters, laid out as neuralnet.NeuralNetwork.Parameters.
//
// For CrossEntropyError with several output columns, Gradient is propagated
// from the per-element binary output gradient while Loss is the categorical
// error, so Gradient is not the derivative of Loss there. With a softmax
// output of two classes it is exactly twice that derivative.
type FirstOrderLoss struct {
	Loss     float64
	Gradient []float64
}

// LossTerm is implemented by every error function the trainer can minimize.
type LossTerm interface {
	CalculateBatchError(indices []int) (float64, error)
	CalculateBatchErrorWith(indices []int, parameters []float64) (float64, error)
	CalculateFirstOrderLoss(batch *dataset.Batch) (*FirstOrderLoss, error)
	CalculateFirstOrderLossFrom(batch *dataset.Batch, fp *neuralnet.ForwardPropagation) (*FirstOrderLoss, error)
	CalculateRegularization(parameters []float64) float64
	ErrorType() string
	ErrorTypeText() string
	NeuralNetwork() *neuralnet.NeuralNetwork
	DataSet() *dataset.DataSet
}

// outputTerm is the part that differs between error functions. Both methods
// see the whole batch; CalculateError is not reduced.
type outputTerm interface {
	CalculateError(outputs, targets *tensor.Dense) (float64, error)
	CalculateOutputGradient(outputs, targets *tensor.Dense) (*tensor.Dense, error)
}

// New returns the loss term registered under errorType, as reported by
// ErrorType.
func New(errorType string, nn *neuralnet.NeuralNetwork, ds *dataset.DataSet) (LossTerm, error) {
	switch errorType {
	case CrossEntropyErrorType:
		return NewCrossEntropyError(nn, ds), nil
	case MeanSquaredErrorType:
		return NewMeanSquaredError(nn, ds), nil
	}
	return nil, fmt.Errorf("%q: %w", errorType, ErrUnknownErrorType)
}
