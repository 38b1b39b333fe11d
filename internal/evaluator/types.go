package evaluator

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/touchstone3d/semseg/internal/evalstore"
	"github.com/touchstone3d/semseg/pkg/metrics"
)

var ErrRunNotFound = errors.New("evaluation run not found")

// LabelBatch holds labels as (batch, points). It decodes from either a flat
// JSON array or an array of arrays.
type LabelBatch [][]int32

func (b *LabelBatch) UnmarshalJSON(data []byte) error {
	var nested [][]int32
	if err := sonic.Unmarshal(data, &nested); err == nil {
		*b = nested
		return nil
	}
	var flat []int32
	if err := sonic.Unmarshal(data, &flat); err != nil {
		return fmt.Errorf("%w: labels must be an array of integers or of integer arrays", metrics.ErrUnsupportedInput)
	}
	*b = LabelBatch{flat}
	return nil
}

// Len is the total number of labels across the batch.
func (b LabelBatch) Len() int {
	n := 0
	for _, row := range b {
		n += len(row)
	}
	return n
}

type EvaluationRequest struct {
	Dataset    string     `json:"dataset"`
	NumClasses int        `json:"num_classes,omitempty"`
	Pred       LabelBatch `json:"pred"`
	Truth      LabelBatch `json:"truth"`
}

type EvaluationResult struct {
	RunID     string          `json:"run_id"`
	Dataset   string          `json:"dataset"`
	CreatedAt int64           `json:"created_at"`
	Report    *metrics.Report `json:"report"`
}

func resultFromRun(run *evalstore.Run) *EvaluationResult {
	return &EvaluationResult{
		RunID:     run.RunID,
		Dataset:   run.Dataset,
		CreatedAt: run.CreatedAt,
		Report:    run.Report(),
	}
}
