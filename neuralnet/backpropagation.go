package neuralnet

import (
	"fmt"

	"gonloss/tensorx"
	"gonum.org/v1/gonum/mat"
)

// CalculateLayersDelta turns ∂L/∂outputs into ∂L/∂combinations for every
// layer, walking from the output layer back to the first.
func (nn *NeuralNetwork) CalculateLayersDelta(fp *ForwardPropagation, outputGradient *mat.Dense) ([]*mat.Dense, error) {
	if err := nn.CheckForwardPropagation(fp); err != nil {
		return nil, err
	}
	if outputGradient == nil {
		return nil, fmt.Errorf("nil output gradient: %w", tensorx.ErrShapeMismatch)
	}
	gr, gc := outputGradient.Dims()
	or, oc := fp.Outputs().Dims()
	if gr != or || gc != oc {
		return nil, fmt.Errorf("output gradient %dx%d for outputs %dx%d: %w", gr, gc, or, oc, tensorx.ErrShapeMismatch)
	}

	deltas := make([]*mat.Dense, len(nn.layers))
	upstream := outputGradient
	for i := len(nn.layers) - 1; i >= 0; i-- {
		layer := nn.layers[i]
		cache := fp.Layers[i]
		rows, n := cache.Combinations.Dims()

		delta := mat.NewDense(rows, n, nil)
		layer.activation.Backward(cache.Combinations, cache.Activations, upstream, delta)
		deltas[i] = delta

		if i > 0 {
			// [B x N] x [N x M] => [B x M]
			next := mat.NewDense(rows, layer.InputsNumber(), nil)
			next.Mul(delta, layer.weights.T())
			upstream = next
		}
	}
	return deltas, nil
}

// CalculateErrorGradient sums per-instance parameter gradients over the
// batch. The layout matches Parameters.
func (nn *NeuralNetwork) CalculateErrorGradient(fp *ForwardPropagation, deltas []*mat.Dense) ([]float64, error) {
	if err := nn.CheckForwardPropagation(fp); err != nil {
		return nil, err
	}
	if len(deltas) != len(nn.layers) {
		return nil, fmt.Errorf("%d deltas for %d layers: %w", len(deltas), len(nn.layers), tensorx.ErrShapeMismatch)
	}
	rows, _ := fp.Inputs.Dims()
	for i, delta := range deltas {
		if delta == nil {
			return nil, fmt.Errorf("layer %d: nil delta: %w", i, tensorx.ErrShapeMismatch)
		}
		if dr, dc := delta.Dims(); dr != rows || dc != nn.layers[i].NeuronsNumber() {
			return nil, fmt.Errorf("layer %d: delta %dx%d, want %dx%d: %w",
				i, dr, dc, rows, nn.layers[i].NeuronsNumber(), tensorx.ErrShapeMismatch)
		}
	}
	gradient := make([]float64, 0, nn.ParametersNumber())
	inputs := fp.Inputs
	for i, layer := range nn.layers {
		delta := deltas[i]
		rows, n := delta.Dims()

		biasGradient := make([]float64, n)
		for r := 0; r < rows; r++ {
			for j, d := range delta.RawRowView(r) {
				biasGradient[j] += d
			}
		}
		gradient = append(gradient, biasGradient...)

		// [M x B] x [B x N] => [M x N]
		weightGradient := mat.NewDense(layer.InputsNumber(), n, nil)
		weightGradient.Mul(inputs.T(), delta)
		gradient = append(gradient, weightGradient.RawMatrix().Data...)

		inputs = fp.Layers[i].Activations
	}
	return gradient, nil
}

// CheckForwardPropagation returns an error unless fp could have come from nn:
// one cache per layer, every matrix holding the same number of rows as the
// inputs and as many columns as the layer has neurons.
func (nn *NeuralNetwork) CheckForwardPropagation(fp *ForwardPropagation) error {
	if fp == nil || fp.Inputs == nil {
		return fmt.Errorf("empty forward propagation: %w", tensorx.ErrShapeMismatch)
	}
	if len(fp.Layers) != len(nn.layers) {
		return fmt.Errorf("forward propagation of %d layers for %d: %w", len(fp.Layers), len(nn.layers), tensorx.ErrShapeMismatch)
	}
	rows, cols := fp.Inputs.Dims()
	if cols != nn.InputsNumber() {
		return fmt.Errorf("inputs %dx%d for %d network inputs: %w", rows, cols, nn.InputsNumber(), tensorx.ErrShapeMismatch)
	}
	for i, layer := range nn.layers {
		cache := fp.Layers[i]
		if cache.Combinations == nil || cache.Activations == nil {
			return fmt.Errorf("layer %d: missing cache: %w", i, tensorx.ErrShapeMismatch)
		}
		n := layer.NeuronsNumber()
		for _, m := range []*mat.Dense{cache.Combinations, cache.Activations} {
			if r, c := m.Dims(); r != rows || c != n {
				return fmt.Errorf("layer %d: cache %dx%d, want %dx%d: %w", i, r, c, rows, n, tensorx.ErrShapeMismatch)
			}
		}
	}
	return nil
}
