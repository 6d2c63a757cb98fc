package loss

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
)

// CheckGradient compares the analytic first-order loss gradient on the
// instances named by indices with central finite differences of
// error+regularization. It returns the largest absolute difference.
//
// The two only agree for terms whose output gradient is the derivative of
// their error: MeanSquaredError, and CrossEntropyError with one output
// column. A multi-column CrossEntropyError reports a large difference.
func CheckGradient(term LossTerm, indices []int) (float64, error) {
	nn, ds := term.NeuralNetwork(), term.DataSet()
	if nn == nil || ds == nil {
		return 0, ErrNotConfigured
	}
	batch, err := ds.Batch(indices)
	if err != nil {
		return 0, err
	}
	fol, err := term.CalculateFirstOrderLoss(batch)
	if err != nil {
		return 0, err
	}

	var evalErr error
	numeric := fd.Gradient(nil, func(p []float64) float64 {
		e, err := term.CalculateBatchErrorWith(indices, p)
		if err != nil {
			evalErr = err
			return math.NaN()
		}
		return e + term.CalculateRegularization(p)
	}, nn.Parameters(), &fd.Settings{Formula: fd.Central})
	if evalErr != nil {
		return 0, evalErr
	}
	return floats.Distance(fol.Gradient, numeric, math.Inf(1)), nil
}
