package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"

	"github.com/touchstone3d/semseg/internal/config"
	"github.com/touchstone3d/semseg/pkg/pointcloud"
)

func fixtureDir(t *testing.T, files int) string {
	t.Helper()
	dir := t.TempDir()
	for i := range files {
		writeNpy(t, dir, fmt.Sprintf("block_%02d.npy", i), labelledRows(50+10*i, 4, float64(100*i)))
	}
	return dir
}

func newTestDataset(t *testing.T, dir string, mode pointcloud.Mode) *Dataset {
	t.Helper()
	d, err := New(Options{
		Dir:     dir,
		Builder: pointcloud.BuilderConfig{NumPoints: 64, Mode: mode},
		Seed:    3,
		Workers: 3,
	})
	require.NoError(t, err)
	return d
}

func TestDataset_GetTrain(t *testing.T) {
	d := newTestDataset(t, fixtureDir(t, 3), pointcloud.ModeTrain)
	require.Equal(t, 3, d.Len())

	s, err := d.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{64, 3}, s.Points.Shape())
	assert.Equal(t, tensor.Shape{64}, s.Labels.Shape())
	assert.Nil(t, s.MinCorner)
	for _, l := range s.LabelSlice() {
		assert.GreaterOrEqual(t, l, int32(0))
		assert.Less(t, l, int32(4))
	}
}

func TestDataset_GetEval(t *testing.T) {
	d := newTestDataset(t, fixtureDir(t, 2), pointcloud.ModeEval)

	s, err := d.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "block_01.npy", s.ID)
	require.Len(t, s.MinCorner, 3)
	// block 1 sits around offset 100; the normalised points do not
	assert.Greater(t, s.MinCorner[0], float32(50))
}

func TestDataset_SameIndexSameSample(t *testing.T) {
	d := newTestDataset(t, fixtureDir(t, 2), pointcloud.ModeTrain)
	ctx := context.Background()

	a, err := d.Get(ctx, 0)
	require.NoError(t, err)
	b, err := d.Get(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, a.Points.Data(), b.Points.Data())

	d.SetEpoch(1)
	c, err := d.Get(ctx, 0)
	require.NoError(t, err)
	assert.NotEqual(t, a.Points.Data(), c.Points.Data())
}

func TestDataset_GetBatchKeepsOrder(t *testing.T) {
	d := newTestDataset(t, fixtureDir(t, 6), pointcloud.ModeEval)

	indices := []int{5, 0, 3, 3, 1}
	batch, err := d.GetBatch(context.Background(), indices)
	require.NoError(t, err)
	require.Len(t, batch, len(indices))
	for i, idx := range indices {
		assert.Equal(t, fmt.Sprintf("block_%02d.npy", idx), batch[i].ID)
	}

	single, err := d.Get(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, single.Points.Data(), batch[2].Points.Data())
}

func TestDataset_Errors(t *testing.T) {
	dir := fixtureDir(t, 2)
	d := newTestDataset(t, dir, pointcloud.ModeTrain)

	_, err := d.Get(context.Background(), 2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = d.Get(context.Background(), -1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Get(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "block_01.npy"), []byte("garbage"), 0o600))
	_, err = d.GetBatch(context.Background(), []int{0, 1})
	assert.ErrorIs(t, err, ErrMalformedSample)

	_, err = New(Options{Dir: t.TempDir(), Builder: pointcloud.BuilderConfig{NumPoints: 8}})
	assert.ErrorIs(t, err, ErrNoSamples)

	_, err = New(Options{Dir: dir, Schema: "rgb", Builder: pointcloud.BuilderConfig{NumPoints: 8}})
	assert.ErrorIs(t, err, pointcloud.ErrInvalidSchema)
}

func TestNewFromEnv(t *testing.T) {
	dir := fixtureDir(t, 2)
	mapFile := filepath.Join(t.TempDir(), "map.json")
	require.NoError(t, os.WriteFile(mapFile, []byte(`[["a","b","c","d"], {"0":"a","1":"b","2":"c","3":"d"}]`), 0o600))
	augmFile := filepath.Join(t.TempDir(), "augm.json")
	require.NoError(t, os.WriteFile(augmFile, []byte(`{"rot": 0.5, "jitter": 0.001}`), 0o600))

	d, err := NewFromEnv(&config.DatasetEnvConfig{
		DataPath:    dir,
		MapFile:     mapFile,
		NumPoints:   16,
		Mode:        "test",
		Attributes:  "xyz",
		Augment:     true,
		AugmentFile: augmFile,
		Listing:     "glob",
		GlobPattern: "*.npy",
		Seed:        1,
		Workers:     2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, pointcloud.ModeEval, d.Mode())
	require.NotNil(t, d.ClassMap())
	assert.Equal(t, "c", d.ClassMap().ClassName(2))

	_, err = NewFromEnv(&config.DatasetEnvConfig{DataPath: dir, NumPoints: 16, Mode: "infer", Attributes: "xyz"})
	assert.ErrorIs(t, err, pointcloud.ErrInvalidMode)
}
