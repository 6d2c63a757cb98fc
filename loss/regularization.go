package loss

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// RegularizationMethod selects the penalty added to the error term.
type RegularizationMethod int

const (
	NoRegularization RegularizationMethod = iota
	// L1 is Σ|w|.
	L1
	// L2 is Σw².
	L2
)

func (m RegularizationMethod) String() string {
	switch m {
	case NoRegularization:
		return "NO_REGULARIZATION"
	case L1:
		return "L1_NORM"
	case L2:
		return "L2_NORM"
	}
	return fmt.Sprintf("RegularizationMethod(%d)", int(m))
}

func ParseRegularizationMethod(s string) (RegularizationMethod, error) {
	switch s {
	case "NO_REGULARIZATION", "":
		return NoRegularization, nil
	case "L1_NORM":
		return L1, nil
	case "L2_NORM":
		return L2, nil
	}
	return 0, fmt.Errorf("unknown regularization method %q", s)
}

func (m RegularizationMethod) value(w []float64) float64 {
	switch m {
	case L1:
		return floats.Norm(w, 1)
	case L2:
		return floats.Dot(w, w)
	}
	return 0
}

func (m RegularizationMethod) gradient(w []float64) []float64 {
	g := make([]float64, len(w))
	switch m {
	case L1:
		for i, v := range w {
			switch {
			case v > 0:
				g[i] = 1
			case v < 0:
				g[i] = -1
			}
		}
	case L2:
		floats.ScaleTo(g, 2, w)
	}
	return g
}
