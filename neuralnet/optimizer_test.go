package neuralnet

import (
	"errors"
	"testing"

	"gonloss/tensorx"
)

func TestSGDApply(t *testing.T) {
	nn := smoothNetwork()
	before := nn.Parameters()
	gradient := make([]float64, len(before))
	for i := range gradient {
		gradient[i] = 1
	}
	o := &SGD{LearningRate: 0.5, Decay: 0.9}
	if err := o.Apply(nn, gradient); err != nil {
		t.Fatal(err)
	}
	after := nn.Parameters()
	for i := range after {
		if !floatEquals(after[i], before[i]-0.5, 1e-12) {
			t.Fatalf("parameter %d = %v; want %v", i, after[i], before[i]-0.5)
		}
	}
	if !floatEquals(o.LearningRate, 0.45, 1e-12) {
		t.Errorf("learning rate after decay = %v; want 0.45", o.LearningRate)
	}
}

func TestSGDApplyErrors(t *testing.T) {
	nn := smoothNetwork()
	if err := (&SGD{}).Apply(nn, make([]float64, nn.ParametersNumber())); err == nil {
		t.Error("zero learning rate accepted")
	}
	if err := (&SGD{LearningRate: 0.1}).Apply(nn, []float64{1}); !errors.Is(err, tensorx.ErrShapeMismatch) {
		t.Errorf("short gradient error = %v", err)
	}
}
