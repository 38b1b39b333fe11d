package metrics

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestComputeIoU_TwoClassExample(t *testing.T) {
	cm, err := ComputeConfusionMatrix([]int{0, 0, 1, 1}, []int{0, 1, 1, 1}, 2)
	require.NoError(t, err)

	res := ComputeIoU(cm)
	assert.InDelta(t, 0.5, res.IoU[0], 1e-5)
	assert.InDelta(t, 2.0/3.0, res.IoU[1], 1e-5)
	assert.InDelta(t, 0.5833, res.MeanIoU, 1e-4)
	assert.InDelta(t, 0.75, res.OverallAccuracy, 1e-12)
}

func TestComputeIoU_AbsentClassIsZero(t *testing.T) {
	cm, err := ComputeConfusionMatrix([]int{0, 0}, []int{0, 0}, 3)
	require.NoError(t, err)

	res := ComputeIoU(cm)
	assert.InDelta(t, 1.0, res.IoU[0], 1e-6)
	assert.Zero(t, res.IoU[1])
	assert.Zero(t, res.IoU[2])
	// the mean runs over all classes, present or not
	assert.InDelta(t, 1.0/3.0, res.MeanIoU, 1e-6)
}

func TestComputeSIoU_IdentityMatchesIoU(t *testing.T) {
	rnd := rand.New(rand.NewPCG(5, 8))
	for trial := range 20 {
		numClasses := 1 + rnd.IntN(12)
		n := rnd.IntN(2000)
		truth, pred := make([]int, n), make([]int, n)
		for i := range n {
			truth[i], pred[i] = rnd.IntN(numClasses), rnd.IntN(numClasses)
		}
		cm, err := ComputeConfusionMatrix(truth, pred, numClasses)
		require.NoError(t, err)

		sim, err := IdentitySimilarity(numClasses)
		require.NoError(t, err)
		siou, err := ComputeSIoU(cm, sim)
		require.NoError(t, err)
		iou := ComputeIoU(cm)

		assert.InDeltaSlice(t, iou.IoU, siou.SIoU, 1e-9, "trial %d", trial)
		assert.InDelta(t, iou.MeanIoU, siou.MeanSIoU, 1e-9, "trial %d", trial)
	}
}

func TestComputeSIoU_Orientation(t *testing.T) {
	cm, err := ComputeConfusionMatrix([]int{0, 0, 1, 1}, []int{0, 1, 1, 1}, 2)
	require.NoError(t, err)
	sim, err := SimilarityFromRows([][]float64{{1, 0.5}, {0.5, 1}})
	require.NoError(t, err)

	res, err := ComputeSIoU(cm, sim)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{1.25, 2.25}, res.TruePos, 1e-12)
	assert.InDeltaSlice(t, []float64{0.5, 0}, res.FalsePos, 1e-12)
	assert.InDeltaSlice(t, []float64{0, 0.5}, res.FalseNeg, 1e-12)
	assert.InDelta(t, 1.25/1.75, res.SIoU[0], 1e-5)
	assert.InDelta(t, 2.25/2.75, res.SIoU[1], 1e-5)
}

func TestSimilarityMatrix_Validation(t *testing.T) {
	_, err := SimilarityFromRows([][]float64{{1, 0}, {0}})
	assert.ErrorIs(t, err, ErrInvalidSimilarity)

	_, err = SimilarityFromRows([][]float64{{1, 1.5}, {0, 1}})
	assert.ErrorIs(t, err, ErrInvalidSimilarity)

	_, err = NewSimilarityMatrix(mat.NewDense(2, 3, nil))
	assert.ErrorIs(t, err, ErrInvalidSimilarity)

	sim, err := IdentitySimilarity(3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim.Dissimilarity().At(1, 1))
	assert.Equal(t, 1.0, sim.Dissimilarity().At(0, 2))

	_, err = sim.WithDissimilarity(mat.NewDense(2, 2, nil))
	assert.ErrorIs(t, err, ErrInvalidSimilarity)

	custom, err := sim.WithDissimilarity(mat.NewDense(3, 3, []float64{0, 0.2, 0.2, 0.2, 0, 0.2, 0.2, 0.2, 0}))
	require.NoError(t, err)
	assert.Equal(t, 0.2, custom.Dissimilarity().At(0, 1))
	assert.Equal(t, 0.0, custom.Similarity().At(0, 1))

	cm, err := NewConfusionMatrix(2)
	require.NoError(t, err)
	_, err = ComputeSIoU(cm, sim)
	assert.ErrorIs(t, err, ErrInvalidSimilarity)
}
