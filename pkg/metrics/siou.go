package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// SimilarityMatrix holds a C×C class similarity S with entries in [0,1] and
// its complement D = 1 - S.
type SimilarityMatrix struct {
	similarity    *mat.Dense
	dissimilarity *mat.Dense
}

// IdentitySimilarity treats every class as dissimilar to every other, which
// makes SIoU equal to IoU.
func IdentitySimilarity(numClasses int) (*SimilarityMatrix, error) {
	if numClasses <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidClassCount, numClasses)
	}
	s := mat.NewDense(numClasses, numClasses, nil)
	for i := range numClasses {
		s.Set(i, i, 1)
	}
	return NewSimilarityMatrix(s)
}

// NewSimilarityMatrix validates s and derives D = 1 - S.
func NewSimilarityMatrix(s mat.Matrix) (*SimilarityMatrix, error) {
	rows, cols := s.Dims()
	if rows != cols {
		return nil, fmt.Errorf("%w: %dx%d is not square", ErrInvalidSimilarity, rows, cols)
	}
	sim := mat.DenseCopyOf(s)
	dis := mat.NewDense(rows, cols, nil)
	for i := range rows {
		for j := range cols {
			v := sim.At(i, j)
			if math.IsNaN(v) || v < 0 || v > 1 {
				return nil, fmt.Errorf("%w: S[%d][%d] = %v outside [0,1]", ErrInvalidSimilarity, i, j, v)
			}
			dis.Set(i, j, 1-v)
		}
	}
	return &SimilarityMatrix{similarity: sim, dissimilarity: dis}, nil
}

// SimilarityFromRows builds a similarity matrix from nested rows, as read from
// a JSON file.
func SimilarityFromRows(rows [][]float64) (*SimilarityMatrix, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty matrix", ErrInvalidSimilarity)
	}
	n := len(rows)
	data := make([]float64, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d entries, want %d", ErrInvalidSimilarity, i, len(row), n)
		}
		data = append(data, row...)
	}
	return NewSimilarityMatrix(mat.NewDense(n, n, data))
}

// WithDissimilarity overrides D while keeping S. Entries must be in [0,1].
func (s *SimilarityMatrix) WithDissimilarity(d mat.Matrix) (*SimilarityMatrix, error) {
	n := s.NumClasses()
	rows, cols := d.Dims()
	if rows != n || cols != n {
		return nil, fmt.Errorf("%w: dissimilarity is %dx%d, want %dx%d", ErrInvalidSimilarity, rows, cols, n, n)
	}
	dis := mat.DenseCopyOf(d)
	for i := range n {
		for j := range n {
			if v := dis.At(i, j); math.IsNaN(v) || v < 0 || v > 1 {
				return nil, fmt.Errorf("%w: D[%d][%d] = %v outside [0,1]", ErrInvalidSimilarity, i, j, v)
			}
		}
	}
	return &SimilarityMatrix{similarity: s.similarity, dissimilarity: dis}, nil
}

func (s *SimilarityMatrix) NumClasses() int {
	n, _ := s.similarity.Dims()
	return n
}

func (s *SimilarityMatrix) Similarity() mat.Matrix    { return s.similarity }
func (s *SimilarityMatrix) Dissimilarity() mat.Matrix { return s.dissimilarity }

type SIoUResult struct {
	SIoU     []float64
	MeanSIoU float64
	TruePos  []float64
	FalsePos []float64
	FalseNeg []float64
}

// ComputeSIoU weights confusion counts by class similarity.
//
// TP[c] = (colsum(M⊙S)[c] + rowsum(M⊙S)[c]) / 2, FP = rowsum(M⊙D),
// FN = colsum(M⊙D). Rows are ground truth, so FP collects the truth-side
// mass and FN the prediction-side mass. Do not swap them.
func ComputeSIoU(cm *ConfusionMatrix, sim *SimilarityMatrix) (SIoUResult, error) {
	n := cm.NumClasses()
	if sim.NumClasses() != n {
		return SIoUResult{}, fmt.Errorf("%w: similarity is %dx%d, confusion matrix has %d classes",
			ErrInvalidSimilarity, sim.NumClasses(), sim.NumClasses(), n)
	}

	var weighted, contribution mat.Dense
	weighted.MulElem(cm.counts, sim.similarity)
	contribution.MulElem(cm.counts, sim.dissimilarity)

	weightedRows, weightedCols := rowSums(&weighted), colSums(&weighted)
	fp := rowSums(&contribution)
	fn := colSums(&contribution)

	tp := make([]float64, n)
	siou := make([]float64, n)
	for c := range n {
		tp[c] = (weightedCols[c] + weightedRows[c]) / 2
		siou[c] = tp[c] / (tp[c] + fp[c] + fn[c] + Epsilon)
	}

	return SIoUResult{
		SIoU:     siou,
		MeanSIoU: stat.Mean(siou, nil),
		TruePos:  tp,
		FalsePos: fp,
		FalseNeg: fn,
	}, nil
}
