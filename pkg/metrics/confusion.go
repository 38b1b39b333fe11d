// Package metrics computes segmentation quality from predicted and ground
// truth labels: confusion matrices, per-class IoU, overall accuracy and the
// similarity-weighted IoU.
package metrics

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ConfusionMatrix counts (truth, prediction) pairs. Rows are ground truth
// classes, columns are predicted classes.
type ConfusionMatrix struct {
	numClasses int
	counts     *mat.Dense
}

func NewConfusionMatrix(numClasses int) (*ConfusionMatrix, error) {
	if numClasses <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidClassCount, numClasses)
	}
	return &ConfusionMatrix{
		numClasses: numClasses,
		counts:     mat.NewDense(numClasses, numClasses, nil),
	}, nil
}

// ComputeConfusionMatrix builds a matrix from one pair of flat label slices.
func ComputeConfusionMatrix(truth, pred []int, numClasses int) (*ConfusionMatrix, error) {
	cm, err := NewConfusionMatrix(numClasses)
	if err != nil {
		return nil, err
	}
	if err := cm.Accumulate(truth, pred); err != nil {
		return nil, err
	}
	return cm, nil
}

// Accumulate adds one batch of labels. The batch is validated in full before
// any count changes, so a failed call leaves the matrix untouched.
func (cm *ConfusionMatrix) Accumulate(truth, pred []int) error {
	if len(truth) != len(pred) {
		return fmt.Errorf("%w: %d ground truth labels, %d predictions", ErrShapeMismatch, len(truth), len(pred))
	}
	for i := range truth {
		if t := truth[i]; t < 0 || t >= cm.numClasses {
			return fmt.Errorf("%w: ground truth[%d] = %d, want [0,%d)", ErrClassOutOfRange, i, t, cm.numClasses)
		}
		if p := pred[i]; p < 0 || p >= cm.numClasses {
			return fmt.Errorf("%w: prediction[%d] = %d, want [0,%d)", ErrClassOutOfRange, i, p, cm.numClasses)
		}
	}

	raw := cm.counts.RawMatrix()
	for i := range truth {
		raw.Data[truth[i]*raw.Stride+pred[i]]++
	}
	return nil
}

func (cm *ConfusionMatrix) NumClasses() int {
	return cm.numClasses
}

func (cm *ConfusionMatrix) At(truth, pred int) float64 {
	return cm.counts.At(truth, pred)
}

// Total is the number of evaluated points.
func (cm *ConfusionMatrix) Total() float64 {
	return mat.Sum(cm.counts)
}

// Dense returns the underlying counts. Callers must not modify it.
func (cm *ConfusionMatrix) Dense() mat.Matrix {
	return cm.counts
}

// RowSums returns the ground truth support per class.
func (cm *ConfusionMatrix) RowSums() []float64 {
	return rowSums(cm.counts)
}

// ColSums returns the number of predictions per class.
func (cm *ConfusionMatrix) ColSums() []float64 {
	return colSums(cm.counts)
}

func (cm *ConfusionMatrix) Diagonal() []float64 {
	out := make([]float64, cm.numClasses)
	for c := range out {
		out[c] = cm.counts.At(c, c)
	}
	return out
}

// Rows returns the counts as integer rows.
func (cm *ConfusionMatrix) Rows() [][]int64 {
	out := make([][]int64, cm.numClasses)
	for r := range out {
		out[r] = make([]int64, cm.numClasses)
		for c := range out[r] {
			out[r][c] = int64(cm.counts.At(r, c))
		}
	}
	return out
}

func rowSums(m mat.Matrix) []float64 {
	rows, _ := m.Dims()
	out := make([]float64, rows)
	for r := range rows {
		out[r] = floats.Sum(mat.Row(nil, r, m))
	}
	return out
}

func colSums(m mat.Matrix) []float64 {
	_, cols := m.Dims()
	out := make([]float64, cols)
	for c := range cols {
		out[c] = floats.Sum(mat.Col(nil, c, m))
	}
	return out
}
