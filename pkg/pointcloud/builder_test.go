package pointcloud

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func labelledCloud(t *testing.T, n int) (*Cloud, []int32) {
	t.Helper()
	c := randomCloud(t, rand.New(rand.NewPCG(uint64(n), 17)), n, DefaultSchema)
	labels := make([]int32, n)
	for i := range labels {
		labels[i] = int32(i % 4)
	}
	return c, labels
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"train": ModeTrain, "": ModeTrain, "test": ModeEval, "EVAL": ModeEval, "val": ModeEval} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("predict")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestSampleBuilder_TrainShapes(t *testing.T) {
	cloud, labels := labelledCloud(t, 100)
	b, err := NewSampleBuilder(BuilderConfig{NumPoints: 32, Mode: ModeTrain})
	require.NoError(t, err)

	s, err := b.Build(cloud, labels, "block_0.npy", NewSource(1, 0))
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{32, 3}, s.Points.Shape())
	assert.Equal(t, tensor.Shape{32}, s.Labels.Shape())
	assert.Equal(t, tensor.Float32, s.Points.Dtype())
	assert.Equal(t, tensor.Int32, s.Labels.Dtype())
	assert.Nil(t, s.MinCorner)
	assert.Empty(t, s.ID)

	maxRadius := 0.0
	for _, row := range s.PointRows() {
		maxRadius = math.Max(maxRadius, math.Sqrt(float64(row[0]*row[0]+row[1]*row[1]+row[2]*row[2])))
	}
	assert.InDelta(t, 1.0, maxRadius, 1e-5)
}

func TestSampleBuilder_UpsamplesSmallClouds(t *testing.T) {
	cloud, labels := labelledCloud(t, 10)
	b, err := NewSampleBuilder(BuilderConfig{NumPoints: 64})
	require.NoError(t, err)

	s, err := b.Build(cloud, labels, "tiny", nil)
	require.NoError(t, err)
	assert.Len(t, s.LabelSlice(), 64)
	for _, l := range s.LabelSlice() {
		assert.Contains(t, []int32{0, 1, 2, 3}, l)
	}
}

func TestSampleBuilder_EvalCapturesMinCornerBeforeNormalization(t *testing.T) {
	cloud, labels := labelledCloud(t, 200)
	b, err := NewSampleBuilder(BuilderConfig{
		NumPoints:    50,
		Mode:         ModeEval,
		Augment:      true,
		Augmentation: AugmentationConfig{Jitter: ptr(0.5)},
	})
	require.NoError(t, err)

	s, err := b.Build(cloud, labels, "area_1.npy", NewSource(8, 8))
	require.NoError(t, err)

	sampled, _, _, err := Resample(cloud, labels, 50, NewSource(8, 8))
	require.NoError(t, err)

	assert.Equal(t, "area_1.npy", s.ID)
	assert.Equal(t, toFloat32(sampled.MinCorner()), s.MinCorner)
}

func TestSampleBuilder_SeededReplay(t *testing.T) {
	cloud, labels := labelledCloud(t, 500)
	b, err := NewSampleBuilder(BuilderConfig{
		NumPoints: 128,
		Mode:      ModeTrain,
		Augment:   true,
		Augmentation: AugmentationConfig{
			Scale:  &[2]float64{0.8, 1.2},
			Rot:    ptr(math.Pi),
			Jitter: ptr(0.01),
		},
	})
	require.NoError(t, err)

	a, err := b.Build(cloud, labels, "x", NewSource(99, 1))
	require.NoError(t, err)
	c, err := b.Build(cloud, labels, "x", NewSource(99, 1))
	require.NoError(t, err)

	assert.Equal(t, a.Points.Data(), c.Points.Data())
	assert.Equal(t, a.Labels.Data(), c.Labels.Data())
}

func TestSampleBuilder_Errors(t *testing.T) {
	_, err := NewSampleBuilder(BuilderConfig{NumPoints: 0})
	assert.ErrorIs(t, err, ErrInvalidSampleSize)

	_, err = NewSampleBuilder(BuilderConfig{NumPoints: 8, Mode: "infer"})
	assert.ErrorIs(t, err, ErrInvalidMode)

	cloud, labels := labelledCloud(t, 20)
	b, err := NewSampleBuilder(BuilderConfig{NumPoints: 8})
	require.NoError(t, err)
	_, err = b.Build(cloud, labels[:19], "bad", nil)
	assert.ErrorIs(t, err, ErrLabelMismatch)
}
