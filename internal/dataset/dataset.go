// Package dataset exposes a directory of labelled point-cloud files as an
// indexable collection of fixed-size samples.
package dataset

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/touchstone3d/semseg/internal/config"
	"github.com/touchstone3d/semseg/pkg/pointcloud"
)

type Options struct {
	Dir         string
	ClassMap    *ClassMap
	Schema      pointcloud.Schema
	Builder     pointcloud.BuilderConfig
	Listing     Listing
	GlobPattern string
	Seed        uint64
	// Workers bounds concurrent file loads in GetBatch.
	Workers int
}

type Dataset struct {
	opts     Options
	files    []string
	builder  *pointcloud.SampleBuilder
	classMap *ClassMap
	epoch    atomic.Uint64
}

// New lists the sample files once. The file list is fixed for the lifetime
// of the Dataset.
func New(opts Options) (*Dataset, error) {
	if opts.Schema == "" {
		opts.Schema = pointcloud.DefaultSchema
	}
	if _, err := pointcloud.ParseSchema(string(opts.Schema)); err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	builder, err := pointcloud.NewSampleBuilder(opts.Builder)
	if err != nil {
		return nil, err
	}

	files, err := ListSampleFiles(opts.Dir, opts.Listing, opts.GlobPattern)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("dir", opts.Dir).
		Int("files", len(files)).
		Str("schema", string(opts.Schema)).
		Str("mode", string(builder.Config().Mode)).
		Int("points", opts.Builder.NumPoints).
		Msg("dataset ready")

	return &Dataset{
		opts:     opts,
		files:    files,
		builder:  builder,
		classMap: opts.ClassMap,
	}, nil
}

// NewFromEnv resolves the dataset environment configuration and its
// referenced files (class map, augmentation config).
func NewFromEnv(cfg *config.DatasetEnvConfig) (*Dataset, error) {
	schema, err := pointcloud.ParseSchema(cfg.Attributes)
	if err != nil {
		return nil, err
	}
	mode, err := pointcloud.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	listing, err := ParseListing(cfg.Listing)
	if err != nil {
		return nil, err
	}
	augm, err := config.LoadAugmentationConfig(cfg.AugmentFile)
	if err != nil {
		return nil, err
	}

	var classMap *ClassMap
	if cfg.MapFile != "" {
		if classMap, err = LoadClassMap(cfg.MapFile); err != nil {
			return nil, err
		}
	}

	return New(Options{
		Dir:      cfg.DataPath,
		ClassMap: classMap,
		Schema:   schema,
		Builder: pointcloud.BuilderConfig{
			NumPoints:    cfg.NumPoints,
			Mode:         mode,
			Augment:      cfg.Augment,
			Augmentation: augm,
		},
		Listing:     listing,
		GlobPattern: cfg.GlobPattern,
		Seed:        cfg.Seed,
		Workers:     cfg.Workers,
	})
}

func (d *Dataset) Len() int {
	return len(d.files)
}

// Files returns the sample file names in index order.
func (d *Dataset) Files() []string {
	out := make([]string, len(d.files))
	copy(out, d.files)
	return out
}

// ClassMap may be nil when no map file was configured.
func (d *Dataset) ClassMap() *ClassMap {
	return d.classMap
}

func (d *Dataset) Mode() pointcloud.Mode {
	return d.builder.Config().Mode
}

// SetEpoch changes the per-index random streams so that training epochs see
// different sampling and augmentation while staying reproducible.
func (d *Dataset) SetEpoch(epoch uint64) {
	d.epoch.Store(epoch)
}

// Source returns the random source used for index in the current epoch.
func (d *Dataset) Source(index int) rand.Source {
	return pointcloud.NewSource(d.opts.Seed, d.epoch.Load()<<32|uint64(index))
}

// Get loads and builds sample index.
func (d *Dataset) Get(ctx context.Context, index int) (*pointcloud.Sample, error) {
	return d.GetWithSource(ctx, index, d.Source(index))
}

// GetWithSource is Get with a caller-supplied random source.
func (d *Dataset) GetWithSource(ctx context.Context, index int, src rand.Source) (*pointcloud.Sample, error) {
	if index < 0 || index >= len(d.files) {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, index, len(d.files))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := d.files[index]
	cloud, labels, err := ReadSample(filepath.Join(d.opts.Dir, name), d.opts.Schema)
	if err != nil {
		return nil, fmt.Errorf("load sample %d: %w", index, err)
	}
	return d.builder.Build(cloud, labels, name, src)
}

// GetBatch loads indices concurrently with at most Workers loads in flight.
// Results keep the order of indices; the first error cancels the rest.
func (d *Dataset) GetBatch(ctx context.Context, indices []int) ([]*pointcloud.Sample, error) {
	out := make([]*pointcloud.Sample, len(indices))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)
	for i, index := range indices {
		g.Go(func() error {
			s, err := d.Get(gctx, index)
			if err != nil {
				return err
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
