package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/samber/lo"

	"github.com/touchstone3d/semseg/internal/dataset"
	"github.com/touchstone3d/semseg/internal/evaluator"
	"github.com/touchstone3d/semseg/pkg/metrics"
)

// readLabels loads a label file: int32 or int64 .npy arrays, or JSON
// holding a flat or nested integer array.
func readLabels(path string) (evaluator.LabelBatch, error) {
	if strings.EqualFold(filepath.Ext(path), ".npy") {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		arr, err := dataset.ReadNpy(bufio.NewReader(f))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		flat, err := metrics.FlattenLabels(arr.Data)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return evaluator.LabelBatch{lo.Map(flat, func(v int, _ int) int32 { return int32(v) })}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var batch evaluator.LabelBatch
	if err := sonic.Unmarshal(raw, &batch); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return batch, nil
}
