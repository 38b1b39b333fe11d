package dataset

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/touchstone3d/semseg/pkg/pointcloud"
)

func TestReadSample_Npy(t *testing.T) {
	dir := t.TempDir()
	path := writeNpy(t, dir, "block.npy", [][]float32{
		{1, 2, 3, 10, 20, 30, 4},
		{5, 6, 7, 40, 50, 60, 1},
	})

	cloud, labels, err := ReadSample(path, "xyz")
	require.NoError(t, err)
	assert.Equal(t, 2, cloud.Len())
	assert.Equal(t, []float64{1, 2, 3}, cloud.Row(0))
	assert.Equal(t, []int32{4, 1}, labels)

	cloud, _, err = ReadSample(path, "xyzrgb")
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 6, 7, 40, 50, 60}, cloud.Row(1))
}

func TestReadSample_NpyElementTypes(t *testing.T) {
	dir := t.TempDir()

	cloud, labels, err := ReadSample(writeNpy(t, dir, "f8.npy", [][]float64{{0.5, 1.5, 2.5, 3}}), "xyz")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1.5, 2.5}, cloud.Row(0))
	assert.Equal(t, []int32{3}, labels)

	cloud, labels, err = ReadSample(writeNpy(t, dir, "i8.npy", [][]int64{{1, 2, 3, 9}}), "xyz")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, cloud.Row(0))
	assert.Equal(t, []int32{9}, labels)
}

func TestReadSample_NpyRejectsNonIntegralLabels(t *testing.T) {
	dir := t.TempDir()
	for name, label := range map[string]float64{
		"frac.npy": 1.5,
		"nan.npy":  math.NaN(),
		"big.npy":  1e12,
	} {
		path := writeNpy(t, dir, name, [][]float64{{0, 0, 0, 1}, {1, 1, 1, label}})
		_, _, err := ReadSample(path, pointcloud.DefaultSchema)
		assert.ErrorIs(t, err, ErrMalformedSample, name)
	}
}

func TestReadNpy_KeepsDtype(t *testing.T) {
	dir := t.TempDir()
	for _, tc := range []struct {
		path string
		want any
	}{
		{writeNpy(t, dir, "i8.npy", [][]int64{{1, 2}, {3, 4}}), []int64{1, 2, 3, 4}},
		{writeNpy(t, dir, "f4.npy", [][]float32{{0.5, 2}}), []float32{0.5, 2}},
	} {
		f, err := os.Open(tc.path)
		require.NoError(t, err)
		arr, err := ReadNpy(f)
		f.Close()
		require.NoError(t, err, tc.path)
		assert.Equal(t, tc.want, arr.Data)
	}
}

func TestReadSample_NpyTooFewColumns(t *testing.T) {
	path := writeNpy(t, t.TempDir(), "narrow.npy", [][]float32{{1, 2, 3, 0}})
	_, _, err := ReadSample(path, "xyzrgb")
	assert.ErrorIs(t, err, ErrMalformedSample)
}

func TestReadSample_JSONAndZstd(t *testing.T) {
	dir := t.TempDir()
	points := [][]float64{{0, 0, 0, 9}, {1, 1, 1, 9}, {2, 2, 2, 9}}
	labels := []int32{0, 1, 2}

	for _, path := range []string{
		writeJSONSample(t, dir, "a.json", points, labels, false),
		writeJSONSample(t, dir, "b.json.zst", points, labels, true),
	} {
		cloud, got, err := ReadSample(path, pointcloud.DefaultSchema)
		require.NoError(t, err, path)
		assert.Equal(t, 3, cloud.Len())
		assert.Equal(t, []float64{2, 2, 2}, cloud.Row(2))
		assert.Equal(t, labels, got)
	}
}

func TestReadSample_Errors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := ReadSample(filepath.Join(dir, "cloud.ply"), pointcloud.DefaultSchema)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	path := writeJSONSample(t, dir, "mismatch.json", [][]float64{{0, 0, 0}}, []int32{0, 1}, false)
	_, _, err = ReadSample(path, pointcloud.DefaultSchema)
	assert.ErrorIs(t, err, pointcloud.ErrLabelMismatch)

	path = writeJSONSample(t, dir, "empty.json", nil, nil, false)
	_, _, err = ReadSample(path, pointcloud.DefaultSchema)
	assert.ErrorIs(t, err, pointcloud.ErrEmptyCloud)

	path = writeJSONSample(t, dir, "short.json", [][]float64{{0, 0}}, []int32{0}, false)
	_, _, err = ReadSample(path, pointcloud.DefaultSchema)
	assert.ErrorIs(t, err, ErrMalformedSample)
}

func TestIsSampleFile(t *testing.T) {
	assert.True(t, IsSampleFile("a.npy"))
	assert.True(t, IsSampleFile("A.NPY"))
	assert.True(t, IsSampleFile("a.json"))
	assert.True(t, IsSampleFile("a.json.zst"))
	assert.False(t, IsSampleFile("a.zst"))
	assert.False(t, IsSampleFile("map.pkl"))
}
