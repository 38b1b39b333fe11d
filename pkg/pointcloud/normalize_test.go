package pointcloud

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomCloud(t *testing.T, rnd *rand.Rand, n int, schema Schema) *Cloud {
	t.Helper()
	rows := make([][]float64, n)
	for i := range rows {
		row := make([]float64, schema.Dims())
		for j := range row {
			row[j] = rnd.Float64()*200 - 50
		}
		rows[i] = row
	}
	c, err := NewCloud(rows, schema)
	require.NoError(t, err)
	return c
}

func TestNormalize_ZeroCentroidUnitRadius(t *testing.T) {
	rnd := rand.New(rand.NewPCG(3, 4))
	for trial := range 25 {
		n := 1 + rnd.IntN(300)
		c := randomCloud(t, rnd, n+1, DefaultSchema)

		out := Normalize(c)
		require.Equal(t, c.Len(), out.Len(), "trial %d", trial)

		for _, v := range out.Centroid() {
			assert.InDelta(t, 0.0, v, 1e-9, "trial %d", trial)
		}
		assert.InDelta(t, 1.0, out.MaxRadius(), 1e-9, "trial %d", trial)
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	c, err := NewCloud([][]float64{{1, 1, 1}, {3, 3, 3}}, DefaultSchema)
	require.NoError(t, err)

	_ = Normalize(c)
	assert.Equal(t, []float64{1, 1, 1}, c.Row(0))
	assert.Equal(t, []float64{3, 3, 3}, c.Row(1))
}

func TestNormalize_DegenerateCloud(t *testing.T) {
	c, err := NewCloud([][]float64{{5, 5, 5}, {5, 5, 5}, {5, 5, 5}}, DefaultSchema)
	require.NoError(t, err)

	out := Normalize(c)
	for i := range out.Len() {
		for _, v := range out.Row(i) {
			assert.False(t, math.IsNaN(v))
			assert.Equal(t, 0.0, v)
		}
	}

	single, err := NewCloud([][]float64{{-2, 7, 1}}, DefaultSchema)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, Normalize(single).Row(0))
}

func TestNormalize_LeavesAttributesAlone(t *testing.T) {
	c, err := NewCloud([][]float64{
		{0, 0, 0, 255, 0, 0},
		{2, 0, 0, 0, 255, 0},
		{0, 4, 0, 0, 0, 255},
	}, "xyzrgb")
	require.NoError(t, err)

	out := Normalize(c)
	for i := range out.Len() {
		assert.Equal(t, c.Row(i)[3:], out.Row(i)[3:])
	}
	assert.InDelta(t, 1.0, out.MaxRadius(), 1e-12)
}
