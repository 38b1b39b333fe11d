package pointcloud

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/rs/zerolog/log"
	"gorgonia.org/tensor"
)

// Mode selects the output shape of a built sample.
type Mode string

const (
	ModeTrain Mode = "train"
	ModeEval  Mode = "eval"
)

// ParseMode accepts "train", and "eval", "test" or "val" for evaluation.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "train", "":
		return ModeTrain, nil
	case "eval", "test", "val":
		return ModeEval, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Sample is one fixed-size model input. MinCorner and ID are only set in
// evaluation mode.
type Sample struct {
	Points    *tensor.Dense // float32, shape (K, D)
	Labels    *tensor.Dense // int32, shape (K)
	MinCorner []float32     // per-column minimum of the sampled cloud before normalization
	ID        string
}

// PointRows returns the points tensor as row slices.
func (s *Sample) PointRows() [][]float32 {
	shape := s.Points.Shape()
	data := s.Points.Data().([]float32)
	rows := make([][]float32, shape[0])
	for i := range rows {
		rows[i] = data[i*shape[1] : (i+1)*shape[1]]
	}
	return rows
}

// LabelSlice returns the backing label slice.
func (s *Sample) LabelSlice() []int32 {
	return s.Labels.Data().([]int32)
}

type BuilderConfig struct {
	NumPoints    int
	Mode         Mode
	Augment      bool
	Augmentation AugmentationConfig
}

// SampleBuilder runs sample → augment (train only) → normalize → tensors.
type SampleBuilder struct {
	cfg BuilderConfig
}

func NewSampleBuilder(cfg BuilderConfig) (*SampleBuilder, error) {
	if cfg.NumPoints <= 0 {
		return nil, fmt.Errorf("%w: num points %d", ErrInvalidSampleSize, cfg.NumPoints)
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeTrain
	}
	if cfg.Mode != ModeTrain && cfg.Mode != ModeEval {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, cfg.Mode)
	}
	if err := cfg.Augmentation.Validate(); err != nil {
		return nil, err
	}
	return &SampleBuilder{cfg: cfg}, nil
}

func (b *SampleBuilder) Config() BuilderConfig {
	return b.cfg
}

func (b *SampleBuilder) augmenting() bool {
	return b.cfg.Mode == ModeTrain && b.cfg.Augment && b.cfg.Augmentation.Enabled()
}

// Build produces one sample from a raw cloud and its labels. src drives both
// sampling and augmentation; pass a seeded source for reproducible output.
func (b *SampleBuilder) Build(cloud *Cloud, labels []int32, id string, src rand.Source) (*Sample, error) {
	src = sourceOrRandom(src)

	points, sampledLabels, _, err := Resample(cloud, labels, b.cfg.NumPoints, src)
	if err != nil {
		return nil, fmt.Errorf("sample %q: %w", id, err)
	}

	if b.augmenting() {
		aug, err := NewAugmentor(b.cfg.Augmentation, src)
		if err != nil {
			return nil, err
		}
		points = aug.Apply(points)
	}

	sample := &Sample{}
	if b.cfg.Mode == ModeEval {
		sample.MinCorner = toFloat32(points.MinCorner())
		sample.ID = id
	}

	points = Normalize(points)
	sample.Points, sample.Labels = ToTensors(points, sampledLabels)

	log.Trace().
		Str("sample", id).
		Int("source_points", cloud.Len()).
		Int("points", b.cfg.NumPoints).
		Bool("augmented", b.augmenting()).
		Msg("built sample")

	return sample, nil
}

// ToTensors converts a cloud and its labels into float32 and int32 tensors.
func ToTensors(c *Cloud, labels []int32) (*tensor.Dense, *tensor.Dense) {
	n, d := c.Len(), c.Dims()
	backing := make([]float32, 0, n*d)
	for i := range n {
		for _, v := range c.data.RawRowView(i) {
			backing = append(backing, float32(v))
		}
	}
	labelBacking := make([]int32, len(labels))
	copy(labelBacking, labels)

	points := tensor.New(tensor.WithShape(n, d), tensor.WithBacking(backing))
	labelTensor := tensor.New(tensor.WithShape(len(labelBacking)), tensor.WithBacking(labelBacking))
	return points, labelTensor
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
