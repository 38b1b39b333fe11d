package dataset

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/zstd"

	"github.com/touchstone3d/semseg/pkg/pointcloud"
)

const (
	extNpy     = ".npy"
	extJSON    = ".json"
	extJSONZst = ".json.zst"
)

var supportedExtensions = []string{extNpy, extJSONZst, extJSON}

// IsSampleFile reports whether name has a readable sample extension.
func IsSampleFile(name string) bool {
	return sampleFormat(name) != ""
}

func sampleFormat(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range supportedExtensions {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	return ""
}

// jsonSample is the layout of .json and .json.zst sample files.
type jsonSample struct {
	Points [][]float64 `json:"points"`
	Labels []int32     `json:"labels"`
}

// ReadSample loads one sample file and keeps the leading schema.Dims()
// columns of each point.
func ReadSample(path string, schema pointcloud.Schema) (*pointcloud.Cloud, []int32, error) {
	switch sampleFormat(path) {
	case extNpy:
		return readNpy(path, schema)
	case extJSON:
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		return decodeJSONSample(path, raw, schema)
	case extJSONZst:
		raw, err := readZstd(path)
		if err != nil {
			return nil, nil, err
		}
		return decodeJSONSample(path, raw, schema)
	}
	return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
}

// readNpy expects a C-ordered (N, M) array whose last column is the label.
func readNpy(path string, schema pointcloud.Schema) (*pointcloud.Cloud, []int32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	arr, err := ReadNpy(bufio.NewReader(f))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrMalformedSample, filepath.Base(path), err)
	}

	shape := arr.Shape
	if len(shape) != 2 {
		return nil, nil, fmt.Errorf("%w: %s: want a 2D array, got shape %v", ErrMalformedSample, filepath.Base(path), shape)
	}
	n, m := shape[0], shape[1]
	if m < schema.Dims()+1 {
		return nil, nil, fmt.Errorf("%w: %s: %d columns cannot hold %q plus a label", ErrMalformedSample, filepath.Base(path), m, schema)
	}

	values, err := asFloat64(arr.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrMalformedSample, filepath.Base(path), err)
	}

	rows := make([][]float64, n)
	labels := make([]int32, n)
	for i := range n {
		row := values[i*m : (i+1)*m]
		rows[i] = row[:schema.Dims()]
		label := row[m-1]
		if label != math.Trunc(label) || label < math.MinInt32 || label > math.MaxInt32 {
			return nil, nil, fmt.Errorf("%w: %s: row %d has non-integral label %v", ErrMalformedSample, filepath.Base(path), i, label)
		}
		labels[i] = int32(label)
	}

	cloud, err := pointcloud.NewCloud(rows, schema)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return cloud, labels, nil
}

func asFloat64(data any) ([]float64, error) {
	switch v := data.(type) {
	case []float64:
		return v, nil
	case []float32:
		return convert(v), nil
	case []int32:
		return convert(v), nil
	case []int64:
		return convert(v), nil
	}
	return nil, fmt.Errorf("unsupported element type %T", data)
}

func convert[T float32 | int32 | int64](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func readZstd(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedSample, filepath.Base(path), err)
	}
	return raw, nil
}

func decodeJSONSample(path string, raw []byte, schema pointcloud.Schema) (*pointcloud.Cloud, []int32, error) {
	var s jsonSample
	if err := sonic.Unmarshal(raw, &s); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrMalformedSample, filepath.Base(path), err)
	}

	rows := make([][]float64, len(s.Points))
	for i, p := range s.Points {
		if len(p) < schema.Dims() {
			return nil, nil, fmt.Errorf("%w: %s: point %d has %d values, %q needs %d",
				ErrMalformedSample, filepath.Base(path), i, len(p), schema, schema.Dims())
		}
		rows[i] = p[:schema.Dims()]
	}

	cloud, err := pointcloud.NewCloud(rows, schema)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := pointcloud.ValidateLabels(cloud, s.Labels); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return cloud, s.Labels, nil
}
