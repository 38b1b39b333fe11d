package config

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"

	"github.com/touchstone3d/semseg/pkg/metrics"
	"github.com/touchstone3d/semseg/pkg/pointcloud"
)

// LoadAugmentationConfig reads a JSON mapping such as
// {"scale": [0.8, 1.2], "rot": 3.14159, "jitter": 0.01}. Missing keys leave
// the matching stage disabled.
func LoadAugmentationConfig(path string) (pointcloud.AugmentationConfig, error) {
	var cfg pointcloud.AugmentationConfig
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read augmentation config: %w", err)
	}
	if err := sonic.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse augmentation config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadSimilarityMatrix reads a C×C JSON array. An empty path yields the
// identity matrix.
func LoadSimilarityMatrix(path string, numClasses int) (*metrics.SimilarityMatrix, error) {
	if path == "" {
		return metrics.IdentitySimilarity(numClasses)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read similarity matrix: %w", err)
	}
	var rows [][]float64
	if err := sonic.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("parse similarity matrix %s: %w", path, err)
	}
	sim, err := metrics.SimilarityFromRows(rows)
	if err != nil {
		return nil, err
	}
	if sim.NumClasses() != numClasses {
		return nil, fmt.Errorf("%w: %s is %dx%d, want %dx%d", metrics.ErrInvalidSimilarity,
			path, sim.NumClasses(), sim.NumClasses(), numClasses, numClasses)
	}
	return sim, nil
}
