package loss

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonloss/tensorx"
)

func TestNewByErrorType(t *testing.T) {
	nn, ds := binaryProblem(t)
	for _, errorType := range []string{CrossEntropyErrorType, MeanSquaredErrorType} {
		term, err := New(errorType, nn, ds)
		require.NoError(t, err)
		require.Equal(t, errorType, term.ErrorType())
		require.Same(t, nn, term.NeuralNetwork())
		require.Same(t, ds, term.DataSet())
	}
	_, err := New("HINGE_ERROR", nn, ds)
	require.ErrorIs(t, err, ErrUnknownErrorType)
}

func TestMeanSquaredError(t *testing.T) {
	mse := NewMeanSquaredError(nil, nil)
	outputs := dense(2, 2, 0.5, 1, 2, 0)
	targets := dense(2, 2, 1, 1, 0, 0)

	e, err := mse.CalculateError(outputs, targets)
	require.NoError(t, err)
	require.InDelta(t, 0.25+4, e, 1e-12)

	g, err := mse.CalculateOutputGradient(outputs, targets)
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{-1, 0, 4, 0}, g.Float64s(), 1e-12)

	_, err = mse.CalculateError(outputs, dense(1, 2, 0, 0))
	require.ErrorIs(t, err, tensorx.ErrShapeMismatch)
	require.Equal(t, "Mean squared error", mse.ErrorTypeText())
}

func TestMeanSquaredErrorGradientCheck(t *testing.T) {
	nn, ds := binaryProblem(t)
	mse := NewMeanSquaredError(nn, ds)
	mse.SetRegularizationMethod(L2)
	diff, err := CheckGradient(mse, []int{3, 0, 2})
	require.NoError(t, err)
	require.Less(t, diff, 1e-6)
}

func TestMeanSquaredErrorXML(t *testing.T) {
	mse := NewMeanSquaredError(nil, nil)
	mse.SetRegularizationMethod(L1)
	doc, err := mse.ToXML()
	require.NoError(t, err)

	loaded := NewMeanSquaredError(nil, nil)
	require.NoError(t, loaded.FromXML(doc))
	require.Equal(t, L1, loaded.RegularizationMethod())
	require.Error(t, NewCrossEntropyError(nil, nil).FromXML(doc))
}

func TestRegularizationMethodNames(t *testing.T) {
	for _, m := range []RegularizationMethod{NoRegularization, L1, L2} {
		parsed, err := ParseRegularizationMethod(m.String())
		require.NoError(t, err)
		require.Equal(t, m, parsed)
	}
	_, err := ParseRegularizationMethod("ELASTIC")
	require.Error(t, err)

	for _, r := range []Reduction{ReductionMean, ReductionSum} {
		parsed, err := ParseReduction(r.String())
		require.NoError(t, err)
		require.Equal(t, r, parsed)
	}
}

func TestRegularizationTerms(t *testing.T) {
	li := newLossIndex(nil, nil)
	w := []float64{1, -2, 0}
	require.Equal(t, 0.0, li.CalculateRegularization(w))
	require.Equal(t, []float64{0, 0, 0}, li.CalculateRegularizationGradient(w))

	li.SetRegularizationWeight(0.1)
	li.SetRegularizationMethod(L1)
	require.InDelta(t, 0.3, li.CalculateRegularization(w), 1e-12)
	require.InDeltaSlice(t, []float64{0.1, -0.1, 0}, li.CalculateRegularizationGradient(w), 1e-12)

	li.SetRegularizationMethod(L2)
	require.InDelta(t, 0.5, li.CalculateRegularization(w), 1e-12)
	require.InDeltaSlice(t, []float64{0.2, -0.4, 0}, li.CalculateRegularizationGradient(w), 1e-12)
}

func TestCheckGradientNotConfigured(t *testing.T) {
	_, err := CheckGradient(NewCrossEntropyError(nil, nil), []int{0})
	require.ErrorIs(t, err, ErrNotConfigured)
}
