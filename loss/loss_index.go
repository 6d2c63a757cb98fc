package loss

import (
	"errors"
	"fmt"

	"gonloss/dataset"
	"gonloss/neuralnet"
	"gonloss/tensorx"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const DefaultRegularizationWeight = 0.01

// Reduction decides how per-instance errors are combined over a batch.
type Reduction int

const (
	// ReductionMean divides loss and gradient by the batch instance count.
	ReductionMean Reduction = iota
	ReductionSum
)

func (r Reduction) String() string {
	switch r {
	case ReductionMean:
		return "MEAN"
	case ReductionSum:
		return "SUM"
	}
	return fmt.Sprintf("Reduction(%d)", int(r))
}

func ParseReduction(s string) (Reduction, error) {
	switch s {
	case "MEAN", "":
		return ReductionMean, nil
	case "SUM":
		return ReductionSum, nil
	}
	return 0, fmt.Errorf("unknown reduction %q", s)
}

// LossIndex is the state shared by every loss term: the network it measures,
// the data set it reads, and the batch-reduction and regularization policies.
// The network and data set are borrowed and must outlive the loss term.
type LossIndex struct {
	neuralNetwork *neuralnet.NeuralNetwork
	dataSet       *dataset.DataSet

	reduction            Reduction
	regularizationMethod RegularizationMethod
	regularizationWeight float64
}

func newLossIndex(nn *neuralnet.NeuralNetwork, ds *dataset.DataSet) LossIndex {
	return LossIndex{
		neuralNetwork:        nn,
		dataSet:              ds,
		reduction:            ReductionMean,
		regularizationMethod: NoRegularization,
		regularizationWeight: DefaultRegularizationWeight,
	}
}

func (li *LossIndex) NeuralNetwork() *neuralnet.NeuralNetwork { return li.neuralNetwork }

func (li *LossIndex) DataSet() *dataset.DataSet { return li.dataSet }

func (li *LossIndex) SetNeuralNetwork(nn *neuralnet.NeuralNetwork) { li.neuralNetwork = nn }

func (li *LossIndex) SetDataSet(ds *dataset.DataSet) { li.dataSet = ds }

func (li *LossIndex) Reduction() Reduction { return li.reduction }

func (li *LossIndex) SetReduction(r Reduction) { li.reduction = r }

func (li *LossIndex) RegularizationMethod() RegularizationMethod { return li.regularizationMethod }

func (li *LossIndex) SetRegularizationMethod(m RegularizationMethod) { li.regularizationMethod = m }

func (li *LossIndex) RegularizationWeight() float64 { return li.regularizationWeight }

func (li *LossIndex) SetRegularizationWeight(w float64) { li.regularizationWeight = w }

// CalculateRegularization is the weighted regularization term for parameters.
func (li *LossIndex) CalculateRegularization(parameters []float64) float64 {
	return li.regularizationWeight * li.regularizationMethod.value(parameters)
}

// CalculateRegularizationGradient is the gradient of CalculateRegularization.
func (li *LossIndex) CalculateRegularizationGradient(parameters []float64) []float64 {
	g := li.regularizationMethod.gradient(parameters)
	floats.Scale(li.regularizationWeight, g)
	return g
}

func (li *LossIndex) check() error {
	if li.neuralNetwork == nil || li.dataSet == nil {
		return ErrNotConfigured
	}
	return nil
}

func (li *LossIndex) reduce(sum float64, instances int) float64 {
	if li.reduction == ReductionMean {
		return sum / float64(instances)
	}
	return sum
}

// batchError evaluates term on the data set instances named by indices.
// A nil parameters slice means the network's current parameters.
func (li *LossIndex) batchError(term outputTerm, indices []int, parameters []float64) (float64, error) {
	if err := li.check(); err != nil {
		return 0, err
	}
	batch, err := li.dataSet.Batch(indices)
	if err != nil {
		return 0, err
	}
	inputs, err := tensorx.ConvertTensorToDense(batch.InputData)
	if err != nil {
		return 0, fmt.Errorf("batch inputs: %w", err)
	}

	var fp *neuralnet.ForwardPropagation
	if parameters == nil {
		fp, err = li.neuralNetwork.ForwardPropagate(inputs)
	} else {
		fp, err = li.neuralNetwork.ForwardPropagateWith(inputs, parameters)
	}
	if err != nil {
		return 0, err
	}

	targets, err := tensorx.ToFloat64(batch.TargetData)
	if err != nil {
		return 0, fmt.Errorf("batch targets: %w", err)
	}
	sum, err := term.CalculateError(tensorx.ConvertDenseToTensor(fp.Outputs()), targets)
	if err != nil {
		return 0, err
	}
	return li.reduce(sum, batch.InstancesNumber()), nil
}

// firstOrderLoss computes loss and parameter gradient for a batch whose
// forward propagation is already known.
func (li *LossIndex) firstOrderLoss(term outputTerm, batch *dataset.Batch, fp *neuralnet.ForwardPropagation) (*FirstOrderLoss, error) {
	if li.neuralNetwork == nil {
		return nil, ErrNotConfigured
	}
	if batch == nil || fp == nil {
		return nil, errors.New("nil batch or forward propagation")
	}
	nn := li.neuralNetwork
	if err := nn.CheckForwardPropagation(fp); err != nil {
		return nil, err
	}

	outputs := tensorx.ConvertDenseToTensor(fp.Outputs())
	targets, err := tensorx.ToFloat64(batch.TargetData)
	if err != nil {
		return nil, fmt.Errorf("batch targets: %w", err)
	}

	outputGradient, err := term.CalculateOutputGradient(outputs, targets)
	if err != nil {
		return nil, err
	}
	g, err := tensorx.ConvertTensorToDense(outputGradient)
	if err != nil {
		return nil, err
	}
	gradient, err := li.calculateErrorGradient(fp, g)
	if err != nil {
		return nil, err
	}
	sum, err := term.CalculateError(outputs, targets)
	if err != nil {
		return nil, err
	}

	instances := tensorx.Rows(targets)
	fol := &FirstOrderLoss{
		Loss:     li.reduce(sum, instances),
		Gradient: gradient,
	}
	if li.reduction == ReductionMean {
		floats.Scale(1/float64(instances), fol.Gradient)
	}

	if li.regularizationMethod != NoRegularization {
		params := nn.Parameters()
		fol.Loss += li.CalculateRegularization(params)
		floats.Add(fol.Gradient, li.CalculateRegularizationGradient(params))
	}
	return fol, nil
}

func (li *LossIndex) calculateErrorGradient(fp *neuralnet.ForwardPropagation, outputGradient *mat.Dense) ([]float64, error) {
	deltas, err := li.neuralNetwork.CalculateLayersDelta(fp, outputGradient)
	if err != nil {
		return nil, err
	}
	return li.neuralNetwork.CalculateErrorGradient(fp, deltas)
}

// forward runs the network over a batch's inputs.
func (li *LossIndex) forward(batch *dataset.Batch) (*neuralnet.ForwardPropagation, error) {
	if li.neuralNetwork == nil {
		return nil, ErrNotConfigured
	}
	if batch == nil {
		return nil, errors.New("nil batch")
	}
	inputs, err := tensorx.ConvertTensorToDense(batch.InputData)
	if err != nil {
		return nil, fmt.Errorf("batch inputs: %w", err)
	}
	return li.neuralNetwork.ForwardPropagate(inputs)
}
