package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"gorgonia.org/tensor"
)

const (
	ImageSize    = 32 * 32 * 3
	LabelSize    = 1
	Row          = LabelSize + ImageSize
	CIFARClasses = 10
)

// LoadCIFAR10 reads a CIFAR-10 binary batch file. Pixels are scaled to [0,1]
// and stored as Float32 inputs; labels are one-hot encoded.
func LoadCIFAR10(filePath string) (*DataSet, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadCIFAR10(bufio.NewReader(file))
}

// ReadCIFAR10 decodes CIFAR-10 rows from r until EOF.
func ReadCIFAR10(r io.Reader) (*DataSet, error) {
	pixels := make([]float32, 0)
	labels := make([]int, 0)
	row := make([]byte, Row)
	for {
		_, err := io.ReadFull(r, row)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("cifar row %d: %w", len(labels), err)
		}
		label := int(row[0])
		if label >= CIFARClasses {
			return nil, fmt.Errorf("cifar row %d: label %d: %w", len(labels), label, ErrIndexOutOfRange)
		}
		labels = append(labels, label)
		for _, b := range row[LabelSize:] {
			pixels = append(pixels, float32(b)/255.0)
		}
	}
	if len(labels) == 0 {
		return nil, errors.New("cifar: no rows")
	}
	inputs := tensor.New(tensor.WithShape(len(labels), ImageSize), tensor.WithBacking(pixels))
	targets, err := OneHotEncode(labels, CIFARClasses)
	if err != nil {
		return nil, err
	}
	return New(inputs, targets)
}

// ReadLabelNames reads one class name per line, as in batches.meta.txt.
func ReadLabelNames(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var words []string
	for scanner.Scan() {
		if w := scanner.Text(); w != "" {
			words = append(words, w)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return words, nil
}
