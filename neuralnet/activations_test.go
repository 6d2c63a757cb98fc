package neuralnet

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestReLUActivate(t *testing.T) {
	r := ReLU{}
	if got := r.Activate(-1); got != 0 {
		t.Errorf("ReLU.Activate(-1) = %v; want 0", got)
	}
	if got := r.Activate(2); got != 2 {
		t.Errorf("ReLU.Activate(2) = %v; want 2", got)
	}
}

func TestSigmoidActivate(t *testing.T) {
	s := Sigmoid{}
	got := s.Activate(0)
	want := 0.5
	if diff := got - want; diff < -1e-12 || diff > 1e-12 {
		t.Errorf("Sigmoid.Activate(0) = %v; want approx %v", got, want)
	}
	if got := s.Derivative(0); math.Abs(got-0.25) > 1e-12 {
		t.Errorf("Sigmoid.Derivative(0) = %v; want 0.25", got)
	}
}

func TestLinearActivate(t *testing.T) {
	l := Linear{}
	input := 3.14
	if got := l.Activate(input); got != input {
		t.Errorf("Linear.Activate(%v) = %v; want %v", input, got, input)
	}
}

func TestLeakyReLUDerivative(t *testing.T) {
	l := NewLeakyReLU(0.1)
	if got := l.Derivative(-3); got != 0.1 {
		t.Errorf("LeakyReLU.Derivative(-3) = %v; want 0.1", got)
	}
	if got := l.Activate(-3); math.Abs(got+0.3) > 1e-12 {
		t.Errorf("LeakyReLU.Activate(-3) = %v; want -0.3", got)
	}
}

func TestSoftmaxRowsSumToOne(t *testing.T) {
	z := mat.NewDense(2, 3, []float64{1, 2, 3, 1000, 1000, 1000})
	y := mat.NewDense(2, 3, nil)
	Softmax{}.Forward(z, y)
	for i := 0; i < 2; i++ {
		sum := 0.0
		for j := 0; j < 3; j++ {
			v := y.At(i, j)
			if math.IsNaN(v) || v <= 0 {
				t.Fatalf("softmax(%d,%d) = %v", i, j, v)
			}
			sum += v
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Errorf("row %d sums to %v", i, sum)
		}
	}
	if math.Abs(y.At(1, 0)-1.0/3) > 1e-12 {
		t.Errorf("softmax of equal logits = %v; want 1/3", y.At(1, 0))
	}
}

func TestSoftmaxBackwardMatchesJacobian(t *testing.T) {
	z := mat.NewDense(1, 3, []float64{0.2, -1, 0.7})
	y := mat.NewDense(1, 3, nil)
	Softmax{}.Forward(z, y)
	g := mat.NewDense(1, 3, []float64{1, 0, -2})
	dst := mat.NewDense(1, 3, nil)
	Softmax{}.Backward(z, y, g, dst)

	for k := 0; k < 3; k++ {
		want := 0.0
		for j := 0; j < 3; j++ {
			delta := 0.0
			if j == k {
				delta = 1
			}
			want += g.At(0, j) * y.At(0, j) * (delta - y.At(0, k))
		}
		if math.Abs(dst.At(0, k)-want) > 1e-12 {
			t.Errorf("dz[%d] = %v; want %v", k, dst.At(0, k), want)
		}
	}
}

func TestActivationByName(t *testing.T) {
	for _, a := range []Activation{ReLU{}, Sigmoid{}, Tanh{}, Linear{}, Softmax{}} {
		got, ok := ActivationByName(a.Name())
		if !ok || got.Name() != a.Name() {
			t.Errorf("ActivationByName(%q) = %v, %v", a.Name(), got, ok)
		}
	}
	leaky, ok := ActivationByName(NewLeakyReLU(0.2).Name())
	if !ok {
		t.Fatal("ActivationByName did not find LeakyReLU")
	}
	if got := leaky.(LeakyReLU).Activate(-1); !floatEquals(got, -DefaultLeakyReLUAlpha, 1e-12) {
		t.Errorf("LeakyReLU(-1) = %v; want %v", got, -DefaultLeakyReLUAlpha)
	}
	if _, ok := ActivationByName("Swish"); ok {
		t.Error("ActivationByName accepted an unknown name")
	}
}
