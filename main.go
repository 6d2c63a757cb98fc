package main

import (
	"flag"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"gonloss/dataset"
	"gonloss/loss"
	"gonloss/neuralnet"
	"gonloss/tensorx"
	"gorgonia.org/tensor"
)

type lossConfigurer interface {
	loss.LossTerm
	FromXML(data []byte) error
}

func main() {
	dataPath := flag.String("data", "", "CIFAR-10 binary batch file; a synthetic two-class set is used when empty")
	errorType := flag.String("loss", loss.CrossEntropyErrorType, "error term: CROSS_ENTROPY_ERROR or MEAN_SQUARED_ERROR")
	configPath := flag.String("config", "", "XML loss configuration")
	hiddenFlag := flag.String("hidden", "16", "comma separated hidden layer sizes")
	output := flag.String("output", "Sigmoid", "output activation")
	epochs := flag.Int("epochs", 20, "passes over the data set")
	batchSize := flag.Int("batch", 32, "instances per batch")
	lr := flag.Float64("lr", 0.1, "learning rate")
	decay := flag.Float64("decay", 1, "learning rate decay per step")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	ds, err := loadDataSet(*dataPath, *seed)
	if err != nil {
		log.Fatalf("Error loading data set: %v", err)
	}
	hidden, err := parseHidden(*hiddenFlag)
	if err != nil {
		log.Fatalf("Error parsing -hidden: %v", err)
	}

	nn := neuralnet.NewNeuralNetwork(ds.InputVariablesNumber(), hidden, ds.TargetVariablesNumber(), *seed)
	activation, ok := neuralnet.ActivationByName(*output)
	if !ok {
		log.Fatalf("Unknown output activation %q", *output)
	}
	nn.SetActivation(nn.LayersNumber()-1, activation)
	log.Printf("Network:\n%s", nn)

	term, err := loss.New(*errorType, nn, ds)
	if err != nil {
		log.Fatal(err)
	}
	if *configPath != "" {
		doc, err := os.ReadFile(*configPath)
		if err != nil {
			log.Fatalf("Error reading loss configuration: %v", err)
		}
		if err := term.(lossConfigurer).FromXML(doc); err != nil {
			log.Fatalf("Error loading loss configuration: %v", err)
		}
	}

	r := rand.New(rand.NewSource(*seed))
	optimizer := &neuralnet.SGD{LearningRate: *lr, Decay: *decay}
	for e := 0; e < *epochs; e++ {
		batches, err := ds.BatchIndices(*batchSize, true, r)
		if err != nil {
			log.Fatal(err)
		}
		var epochLoss float64
		for _, indices := range batches {
			batch, err := ds.Batch(indices)
			if err != nil {
				log.Fatal(err)
			}
			fol, err := term.CalculateFirstOrderLoss(batch)
			if err != nil {
				log.Fatalf("Epoch %d: %v", e, err)
			}
			if err := optimizer.Apply(nn, fol.Gradient); err != nil {
				log.Fatalf("Epoch %d: %v", e, err)
			}
			epochLoss += fol.Loss
		}
		log.Printf("%s epoch %d = %.4f (lr %.4g)", term.ErrorTypeText(), e, epochLoss/float64(len(batches)), optimizer.LearningRate)
	}
}

func loadDataSet(path string, seed int64) (*dataset.DataSet, error) {
	if path != "" {
		return dataset.LoadCIFAR10(path)
	}
	return syntheticBlobs(256, rand.New(rand.NewSource(seed)))
}

// syntheticBlobs draws two Gaussian clusters labelled 0 and 1.
func syntheticBlobs(n int, r *rand.Rand) (*dataset.DataSet, error) {
	inputs := make([]float64, 0, 2*n)
	targets := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		label := float64(i % 2)
		center := 2*label - 1
		inputs = append(inputs, center+0.6*r.NormFloat64(), center+0.6*r.NormFloat64())
		targets = append(targets, label)
	}
	in := tensor.New(tensor.WithShape(n, 2), tensor.WithBacking(inputs))
	out := tensor.New(tensor.WithShape(n, 1), tensor.WithBacking(targets))
	return dataset.New(in, out)
}

func parseHidden(s string) ([]int, error) {
	var sizes []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return nil, tensorx.ErrShapeMismatch
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}
