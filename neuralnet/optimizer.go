package neuralnet

import (
	"errors"
	"fmt"

	"gonloss/tensorx"
	"gonum.org/v1/gonum/floats"
)

// Optimizer applies a parameter-space gradient to a network.
type Optimizer interface {
	Apply(nn *NeuralNetwork, gradient []float64) error
}

// SGD implements plain gradient descent. When Decay is in (0,1) the learning
// rate is multiplied by it after every step.
type SGD struct {
	LearningRate float64
	Decay        float64
}

// Apply moves the parameters against gradient.
func (o *SGD) Apply(nn *NeuralNetwork, gradient []float64) error {
	if o.LearningRate <= 0 {
		return errors.New("invalid learning rate")
	}
	if len(gradient) != nn.ParametersNumber() {
		return fmt.Errorf("gradient of %d for %d parameters: %w", len(gradient), nn.ParametersNumber(), tensorx.ErrShapeMismatch)
	}
	params := nn.Parameters()
	floats.AddScaled(params, -o.LearningRate, gradient)
	if err := nn.SetParameters(params); err != nil {
		return err
	}
	if o.Decay > 0 && o.Decay < 1 {
		o.LearningRate *= o.Decay
	}
	return nil
}
