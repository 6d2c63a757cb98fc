package neuralnet

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"gonloss/tensorx"
	"gonum.org/v1/gonum/mat"
)

var ErrNoLayers = errors.New("network has no layers")

// Layer is a dense perceptron layer: combinations = inputs·weights + biases.
type Layer struct {
	weights    *mat.Dense // inputs x neurons
	biases     []float64
	activation Activation
}

func NewLayer(inputs, neurons int, activation Activation, r *rand.Rand) *Layer {
	l := &Layer{
		weights:    mat.NewDense(inputs, neurons, nil),
		biases:     make([]float64, neurons),
		activation: activation,
	}
	for j := range l.biases {
		l.biases[j] = xavierInit(inputs, neurons, r)
	}
	for i := 0; i < inputs; i++ {
		for j := 0; j < neurons; j++ {
			l.weights.Set(i, j, xavierInit(inputs, neurons, r))
		}
	}
	return l
}

func (l *Layer) InputsNumber() int {
	r, _ := l.weights.Dims()
	return r
}

func (l *Layer) NeuronsNumber() int {
	return len(l.biases)
}

func (l *Layer) ParametersNumber() int {
	return len(l.biases) + l.InputsNumber()*l.NeuronsNumber()
}

func (l *Layer) Activation() Activation {
	return l.activation
}

// LayerForwardPropagation caches one layer's combinations and activations
// for a batch.
type LayerForwardPropagation struct {
	Combinations *mat.Dense
	Activations  *mat.Dense
}

// ForwardPropagation is the per-layer cache of a forward pass. Inputs is the
// batch fed to the first layer.
type ForwardPropagation struct {
	Inputs *mat.Dense
	Layers []LayerForwardPropagation
}

// Outputs returns the activations of the last layer.
func (fp *ForwardPropagation) Outputs() *mat.Dense {
	return fp.Layers[len(fp.Layers)-1].Activations
}

func (l *Layer) forward(inputs *mat.Dense) LayerForwardPropagation {
	rows, _ := inputs.Dims()
	n := l.NeuronsNumber()
	z := mat.NewDense(rows, n, nil)
	z.Mul(inputs, l.weights)
	for i := 0; i < rows; i++ {
		row := z.RawRowView(i)
		for j := range row {
			row[j] += l.biases[j]
		}
	}
	y := mat.NewDense(rows, n, nil)
	l.activation.Forward(z, y)
	return LayerForwardPropagation{Combinations: z, Activations: y}
}

// NeuralNetwork is a stack of dense layers.
type NeuralNetwork struct {
	layers []*Layer
}

// NewNeuralNetwork builds a network with ReLU hidden layers and a Sigmoid
// output layer. Initial weights depend only on the topology and seed.
func NewNeuralNetwork(inputSize int, hidden []int, outputSize int, seed int64) *NeuralNetwork {
	r := rand.New(rand.NewSource(seed + int64(NNSeed(inputSize, hidden, outputSize))))

	nn := &NeuralNetwork{layers: make([]*Layer, 0, len(hidden)+1)}
	prev := inputSize
	for _, size := range hidden {
		nn.layers = append(nn.layers, NewLayer(prev, size, ReLU{}, r))
		prev = size
	}
	nn.layers = append(nn.layers, NewLayer(prev, outputSize, Sigmoid{}, r))
	return nn
}

// NewFromLayers assembles a network from explicit layers. Consecutive layer
// sizes must chain.
func NewFromLayers(layers ...*Layer) (*NeuralNetwork, error) {
	if len(layers) == 0 {
		return nil, ErrNoLayers
	}
	for i := 1; i < len(layers); i++ {
		if layers[i].InputsNumber() != layers[i-1].NeuronsNumber() {
			return nil, fmt.Errorf("layer %d takes %d inputs, layer %d has %d neurons: %w",
				i, layers[i].InputsNumber(), i-1, layers[i-1].NeuronsNumber(), tensorx.ErrShapeMismatch)
		}
	}
	return &NeuralNetwork{layers: layers}, nil
}

func NNSeed(inputSize int, hidden []int, outputSize int) int {
	seed := inputSize
	for _, h := range hidden {
		seed = seed + h
	}
	return seed + outputSize
}

func (nn *NeuralNetwork) SetActivation(layerIndex int, activation Activation) {
	nn.layers[layerIndex].activation = activation
}

func (nn *NeuralNetwork) Layer(i int) *Layer {
	return nn.layers[i]
}

func (nn *NeuralNetwork) LayersNumber() int {
	return len(nn.layers)
}

// TrainableLayersNumber counts layers with parameters; every dense layer is
// trainable.
func (nn *NeuralNetwork) TrainableLayersNumber() int {
	return len(nn.layers)
}

func (nn *NeuralNetwork) InputsNumber() int {
	return nn.layers[0].InputsNumber()
}

func (nn *NeuralNetwork) OutputsNumber() int {
	return nn.layers[len(nn.layers)-1].NeuronsNumber()
}

func (nn *NeuralNetwork) ParametersNumber() int {
	n := 0
	for _, l := range nn.layers {
		n += l.ParametersNumber()
	}
	return n
}

// Parameters flattens every layer as biases followed by row-major weights.
func (nn *NeuralNetwork) Parameters() []float64 {
	params := make([]float64, 0, nn.ParametersNumber())
	for _, l := range nn.layers {
		params = append(params, l.biases...)
		params = append(params, l.weights.RawMatrix().Data...)
	}
	return params
}

// SetParameters overwrites every layer from a vector laid out as Parameters.
func (nn *NeuralNetwork) SetParameters(params []float64) error {
	if len(params) != nn.ParametersNumber() {
		return fmt.Errorf("%d parameters for a network of %d: %w", len(params), nn.ParametersNumber(), tensorx.ErrShapeMismatch)
	}
	offset := 0
	for _, l := range nn.layers {
		offset += copy(l.biases, params[offset:])
		offset += copy(l.weights.RawMatrix().Data, params[offset:])
	}
	return nil
}

// withParameters returns a copy of the network carrying params.
func (nn *NeuralNetwork) withParameters(params []float64) (*NeuralNetwork, error) {
	c := &NeuralNetwork{layers: make([]*Layer, len(nn.layers))}
	for i, l := range nn.layers {
		c.layers[i] = &Layer{
			weights:    mat.DenseCopyOf(l.weights),
			biases:     make([]float64, len(l.biases)),
			activation: l.activation,
		}
	}
	if err := c.SetParameters(params); err != nil {
		return nil, err
	}
	return c, nil
}

// ForwardPropagate evaluates the network on a batch of inputs (one row per
// instance) and keeps every layer's intermediate values.
func (nn *NeuralNetwork) ForwardPropagate(inputs *mat.Dense) (*ForwardPropagation, error) {
	if len(nn.layers) == 0 {
		return nil, ErrNoLayers
	}
	if _, c := inputs.Dims(); c != nn.InputsNumber() {
		return nil, fmt.Errorf("%d input columns for %d network inputs: %w", c, nn.InputsNumber(), tensorx.ErrShapeMismatch)
	}
	fp := &ForwardPropagation{
		Inputs: inputs,
		Layers: make([]LayerForwardPropagation, len(nn.layers)),
	}
	current := inputs
	for i, l := range nn.layers {
		fp.Layers[i] = l.forward(current)
		current = fp.Layers[i].Activations
	}
	return fp, nil
}

// ForwardPropagateWith evaluates the network as if its parameters were params.
// The network itself is left untouched.
func (nn *NeuralNetwork) ForwardPropagateWith(inputs *mat.Dense, params []float64) (*ForwardPropagation, error) {
	c, err := nn.withParameters(params)
	if err != nil {
		return nil, err
	}
	return c.ForwardPropagate(inputs)
}

// CalculateOutputs is ForwardPropagate keeping only the last activations.
func (nn *NeuralNetwork) CalculateOutputs(inputs *mat.Dense) (*mat.Dense, error) {
	fp, err := nn.ForwardPropagate(inputs)
	if err != nil {
		return nil, err
	}
	return fp.Outputs(), nil
}

func xavierInit(numInputs int, numOutputs int, r *rand.Rand) float64 {
	limit := math.Sqrt(6.0 / float64(numInputs+numOutputs))
	return 2*r.Float64()*limit - limit
}

func (l *Layer) String() string {
	return fmt.Sprintf("%d -> %d %s", l.InputsNumber(), l.NeuronsNumber(), l.activation.Name())
}

func (nn *NeuralNetwork) String() string {
	var sb strings.Builder
	for i, layer := range nn.layers {
		sb.WriteString(fmt.Sprintf("Layer %d: %s\n", i, layer.String()))
	}
	return sb.String()
}
