package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

// writeNpy stores rows (points followed by a label column) as a 2D .npy file.
func writeNpy[T float32 | float64 | int64](t *testing.T, dir, name string, rows [][]T) string {
	t.Helper()
	cols := len(rows[0])
	backing := make([]T, 0, len(rows)*cols)
	for _, r := range rows {
		backing = append(backing, r...)
	}
	arr := tensor.New(tensor.WithShape(len(rows), cols), tensor.WithBacking(backing))

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, arr.WriteNpy(f))
	return path
}

func writeJSONSample(t *testing.T, dir, name string, points [][]float64, labels []int32, compress bool) string {
	t.Helper()
	raw, err := sonic.Marshal(jsonSample{Points: points, Labels: labels})
	require.NoError(t, err)

	if compress {
		enc, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		raw = enc.EncodeAll(raw, nil)
		require.NoError(t, enc.Close())
	}

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

// labelledRows returns n rows of xyz + label with label = i % classes.
func labelledRows(n, classes int, offset float64) [][]float64 {
	rows := make([][]float64, n)
	for i := range rows {
		f := float64(i)
		rows[i] = []float64{offset + f, offset - f, offset + 2*f, float64(i % classes)}
	}
	return rows
}
