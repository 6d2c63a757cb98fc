package neuralnet

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ActivationFunction is a scalar activation and its derivative with respect
// to the combination it was applied to.
type ActivationFunction interface {
	Activate(x float64) float64
	Derivative(x float64) float64
}

// Activation is what a layer applies to its combinations. Backward turns
// ∂L/∂activations (upstream) into ∂L/∂combinations (dst).
type Activation interface {
	Name() string
	Forward(combinations, activations *mat.Dense)
	Backward(combinations, activations, upstream, dst *mat.Dense)
}

type ReLU struct{}

func (r ReLU) Activate(x float64) float64 {
	return math.Max(x, 0)
}

func (r ReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

func (r ReLU) Name() string { return "ReLU" }

func (r ReLU) Forward(z, y *mat.Dense) { forwardPointwise(r, z, y) }

func (r ReLU) Backward(z, _, g, dst *mat.Dense) { backwardPointwise(r, z, g, dst) }

// DefaultLeakyReLUAlpha is the slope ActivationByName gives LeakyReLU.
const DefaultLeakyReLUAlpha = 0.01

type LeakyReLU struct {
	alpha float64
}

func NewLeakyReLU(alpha float64) LeakyReLU {
	return LeakyReLU{alpha: alpha}
}

func (l LeakyReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return l.alpha * x
}

func (l LeakyReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return l.alpha
}

func (l LeakyReLU) Name() string { return "LeakyReLU" }

func (l LeakyReLU) Forward(z, y *mat.Dense) { forwardPointwise(l, z, y) }

func (l LeakyReLU) Backward(z, _, g, dst *mat.Dense) { backwardPointwise(l, z, g, dst) }

// Sigmoid is the logistic function; its outputs stay in (0,1) so it suits
// probability outputs.
type Sigmoid struct{}

func (s Sigmoid) Activate(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func (s Sigmoid) Derivative(x float64) float64 {
	sigmoid := s.Activate(x)
	return sigmoid * (1 - sigmoid)
}

func (s Sigmoid) Name() string { return "Sigmoid" }

func (s Sigmoid) Forward(z, y *mat.Dense) { forwardPointwise(s, z, y) }

func (s Sigmoid) Backward(z, _, g, dst *mat.Dense) { backwardPointwise(s, z, g, dst) }

type Tanh struct{}

func (t Tanh) Activate(x float64) float64 {
	return math.Tanh(x)
}

func (t Tanh) Derivative(x float64) float64 {
	tanh := t.Activate(x)
	return 1 - tanh*tanh
}

func (t Tanh) Name() string { return "Tanh" }

func (t Tanh) Forward(z, y *mat.Dense) { forwardPointwise(t, z, y) }

func (t Tanh) Backward(z, _, g, dst *mat.Dense) { backwardPointwise(t, z, g, dst) }

type Linear struct{}

func (t Linear) Activate(x float64) float64 {
	return x
}

func (t Linear) Derivative(x float64) float64 {
	return 1
}

func (t Linear) Name() string { return "Linear" }

func (t Linear) Forward(z, y *mat.Dense) { y.Copy(z) }

func (t Linear) Backward(_, _, g, dst *mat.Dense) { dst.Copy(g) }

// Softmax normalizes each row into a probability distribution.
type Softmax struct{}

func (s Softmax) Name() string { return "Softmax" }

func (s Softmax) Forward(z, y *mat.Dense) {
	r, _ := z.Dims()
	for i := 0; i < r; i++ {
		softmaxRow(z.RawRowView(i), y.RawRowView(i))
	}
}

// Backward applies the softmax Jacobian per row: dz_i = y_i (g_i - Σ_j g_j y_j).
func (s Softmax) Backward(_, y, g, dst *mat.Dense) {
	r, c := y.Dims()
	for i := 0; i < r; i++ {
		yi, gi, di := y.RawRowView(i), g.RawRowView(i), dst.RawRowView(i)
		var dot float64
		for j := 0; j < c; j++ {
			dot += gi[j] * yi[j]
		}
		for j := 0; j < c; j++ {
			di[j] = yi[j] * (gi[j] - dot)
		}
	}
}

func softmaxRow(z, y []float64) {
	top := math.Inf(-1)
	for _, v := range z {
		if v > top {
			top = v
		}
	}
	var sum float64
	for j, v := range z {
		y[j] = math.Exp(v - top)
		sum += y[j]
	}
	for j := range y {
		y[j] /= sum
	}
}

func forwardPointwise(f ActivationFunction, z, y *mat.Dense) {
	y.Apply(func(_, _ int, v float64) float64 { return f.Activate(v) }, z)
}

func backwardPointwise(f ActivationFunction, z, g, dst *mat.Dense) {
	dst.Apply(func(i, j int, v float64) float64 { return g.At(i, j) * f.Derivative(v) }, z)
}

// ActivationByName returns the activation registered under name, as written
// by Name. LeakyReLU comes back with DefaultLeakyReLUAlpha.
func ActivationByName(name string) (Activation, bool) {
	switch name {
	case "ReLU":
		return ReLU{}, true
	case "LeakyReLU":
		return NewLeakyReLU(DefaultLeakyReLUAlpha), true
	case "Sigmoid":
		return Sigmoid{}, true
	case "Tanh":
		return Tanh{}, true
	case "Linear":
		return Linear{}, true
	case "Softmax":
		return Softmax{}, true
	}
	return nil, false
}
