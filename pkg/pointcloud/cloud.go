// Package pointcloud turns variable-size point clouds into fixed-size,
// normalized and optionally augmented samples for a segmentation model.
package pointcloud

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Schema names the per-point columns, one letter per column, e.g. "xyz" or
// "xyzrgb". The leading x, y and z letters are the coordinate columns.
type Schema string

const (
	DefaultSchema Schema = "xyz"

	coordLetters  = "xyz"
	attribLetters = "xyzrgbi"
)

// ParseSchema validates an attribute schema string.
func ParseSchema(s string) (Schema, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("%w: empty schema", ErrInvalidSchema)
	}
	if !strings.HasPrefix(s, "xy") {
		return "", fmt.Errorf("%w: %q must start with at least x and y", ErrInvalidSchema, s)
	}
	seen := make(map[rune]bool, len(s))
	for _, r := range s {
		if !strings.ContainsRune(attribLetters, r) {
			return "", fmt.Errorf("%w: unknown attribute %q in %q", ErrInvalidSchema, r, s)
		}
		if seen[r] {
			return "", fmt.Errorf("%w: duplicate attribute %q in %q", ErrInvalidSchema, r, s)
		}
		seen[r] = true
	}
	return Schema(s), nil
}

// Dims is the number of columns per point.
func (s Schema) Dims() int {
	return len(s)
}

// CoordDims is the number of leading coordinate columns (2 or 3).
func (s Schema) CoordDims() int {
	n := 0
	for n < len(s) && n < len(coordLetters) && s[n] == coordLetters[n] {
		n++
	}
	return n
}

// Cloud is an ordered N×D point set. Clouds are treated as immutable: every
// transform in this package returns a new Cloud.
type Cloud struct {
	data   *mat.Dense
	schema Schema
}

// NewCloud copies rows into a new Cloud. Every row must have exactly
// schema.Dims() columns.
func NewCloud(rows [][]float64, schema Schema) (*Cloud, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyCloud
	}
	d := schema.Dims()
	if d == 0 {
		return nil, fmt.Errorf("%w: empty schema", ErrInvalidSchema)
	}
	backing := make([]float64, 0, len(rows)*d)
	for i, row := range rows {
		if len(row) != d {
			return nil, fmt.Errorf("%w: row %d has %d columns, schema %q wants %d", ErrSchemaMismatch, i, len(row), schema, d)
		}
		backing = append(backing, row...)
	}
	return &Cloud{data: mat.NewDense(len(rows), d, backing), schema: schema}, nil
}

// NewCloudFromDense wraps a copy of m.
func NewCloudFromDense(m mat.Matrix, schema Schema) (*Cloud, error) {
	r, c := m.Dims()
	if r == 0 {
		return nil, ErrEmptyCloud
	}
	if c != schema.Dims() {
		return nil, fmt.Errorf("%w: matrix has %d columns, schema %q wants %d", ErrSchemaMismatch, c, schema, schema.Dims())
	}
	return &Cloud{data: mat.DenseCopyOf(m), schema: schema}, nil
}

func (c *Cloud) Len() int {
	r, _ := c.data.Dims()
	return r
}

func (c *Cloud) Dims() int {
	_, d := c.data.Dims()
	return d
}

func (c *Cloud) Schema() Schema {
	return c.schema
}

func (c *Cloud) At(i, j int) float64 {
	return c.data.At(i, j)
}

// Row returns a copy of point i.
func (c *Cloud) Row(i int) []float64 {
	return mat.Row(nil, i, c.data)
}

// Matrix exposes the cloud read-only.
func (c *Cloud) Matrix() mat.Matrix {
	return c.data
}

func (c *Cloud) Clone() *Cloud {
	return &Cloud{data: mat.DenseCopyOf(c.data), schema: c.schema}
}

// coords is a view over the coordinate columns sharing c's storage.
func (c *Cloud) coords() *mat.Dense {
	return c.data.Slice(0, c.Len(), 0, c.schema.CoordDims()).(*mat.Dense)
}

// Select gathers the rows named by idx, in idx order. Indices may repeat.
func (c *Cloud) Select(idx []int) (*Cloud, error) {
	if len(idx) == 0 {
		return nil, ErrEmptyCloud
	}
	n, d := c.data.Dims()
	out := mat.NewDense(len(idx), d, nil)
	for i, src := range idx {
		if src < 0 || src >= n {
			return nil, fmt.Errorf("%w: index %d not in [0,%d)", ErrIndexOutOfRange, src, n)
		}
		out.SetRow(i, c.data.RawRowView(src))
	}
	return &Cloud{data: out, schema: c.schema}, nil
}

// Centroid is the component-wise mean of the coordinate columns.
func (c *Cloud) Centroid() []float64 {
	coords := c.coords()
	n, d := coords.Dims()
	centroid := make([]float64, d)
	col := make([]float64, n)
	for j := range d {
		mat.Col(col, j, coords)
		centroid[j] = stat.Mean(col, nil)
	}
	return centroid
}

// MinCorner is the per-column minimum over every column of the cloud.
func (c *Cloud) MinCorner() []float64 {
	n, d := c.data.Dims()
	corner := make([]float64, d)
	col := make([]float64, n)
	for j := range d {
		mat.Col(col, j, c.data)
		corner[j] = floats.Min(col)
	}
	return corner
}

// MaxRadius is the largest Euclidean norm of the coordinate part of any point.
func (c *Cloud) MaxRadius() float64 {
	coords := c.coords()
	n, _ := coords.Dims()
	maxNorm := 0.0
	for i := range n {
		if norm := floats.Norm(coords.RawRowView(i), 2); norm > maxNorm {
			maxNorm = norm
		}
	}
	return maxNorm
}
