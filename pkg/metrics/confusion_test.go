package metrics

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeConfusionMatrix_RowsAreTruth(t *testing.T) {
	cm, err := ComputeConfusionMatrix([]int{0, 0, 1, 1}, []int{0, 1, 1, 1}, 2)
	require.NoError(t, err)

	want := [][]int64{{1, 1}, {0, 2}}
	if diff := cmp.Diff(want, cm.Rows()); diff != "" {
		t.Errorf("confusion matrix mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []float64{2, 2}, cm.RowSums())
	assert.Equal(t, []float64{1, 3}, cm.ColSums())
	assert.Equal(t, []float64{1, 2}, cm.Diagonal())
}

func TestConfusionMatrix_TotalMatchesLabelCount(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 2))
	cm, err := NewConfusionMatrix(7)
	require.NoError(t, err)

	seen := 0
	for range 5 {
		n := rnd.IntN(400)
		truth, pred := make([]int, n), make([]int, n)
		for i := range n {
			truth[i], pred[i] = rnd.IntN(7), rnd.IntN(7)
		}
		require.NoError(t, cm.Accumulate(truth, pred))
		seen += n
	}
	assert.Equal(t, float64(seen), cm.Total())
}

func TestConfusionMatrix_RejectsBadInput(t *testing.T) {
	_, err := NewConfusionMatrix(0)
	assert.ErrorIs(t, err, ErrInvalidClassCount)

	cm, err := NewConfusionMatrix(3)
	require.NoError(t, err)

	err = cm.Accumulate([]int{0, 1}, []int{0})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	err = cm.Accumulate([]int{0, 1, 2}, []int{0, 3, 1})
	require.ErrorIs(t, err, ErrClassOutOfRange)
	assert.Contains(t, err.Error(), "prediction[1] = 3")

	err = cm.Accumulate([]int{-1}, []int{0})
	assert.ErrorIs(t, err, ErrClassOutOfRange)
	assert.True(t, IsValidation(err))

	assert.Zero(t, cm.Total(), "failed batches must not be counted")
}

func TestConfusionMatrix_EmptyInput(t *testing.T) {
	cm, err := ComputeConfusionMatrix(nil, nil, 4)
	require.NoError(t, err)
	assert.Zero(t, cm.Total())
	assert.Zero(t, OverallAccuracy(cm))
}
