package api

import (
	"context"

	"github.com/touchstone3d/semseg/internal/dataset"
	"github.com/touchstone3d/semseg/internal/evaluator"
	"github.com/touchstone3d/semseg/pkg/pointcloud"
)

const (
	DefaultBodyLimit = 64 * 1024 * 1024 // 64MB
	DefaultRunsLimit = 20
	MaxRunsLimit     = 1000
)

// StdResponse is the envelope of every API response.
type StdResponse[T any] struct {
	Body  T       `json:"body"`
	Error *string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status     string `json:"status"`
	Samples    int    `json:"samples"`
	NumClasses int    `json:"num_classes"`
}

type DatasetInfo struct {
	Samples int      `json:"samples"`
	Mode    string   `json:"mode"`
	Classes []string `json:"classes"`
}

// SampleResponse is one built sample in row form.
type SampleResponse struct {
	Index     int         `json:"index"`
	ID        string      `json:"id,omitempty"`
	Points    [][]float32 `json:"points"`
	Labels    []int32     `json:"labels"`
	MinCorner []float32   `json:"min_corner,omitempty"`
}

// Evaluations is the evaluation service behind the API; *evaluator.Evaluator
// satisfies it.
type Evaluations interface {
	Evaluate(ctx context.Context, req evaluator.EvaluationRequest) (*evaluator.EvaluationResult, error)
	Run(ctx context.Context, runID string) (*evaluator.EvaluationResult, error)
	Latest(ctx context.Context) (*evaluator.EvaluationResult, error)
	Runs(ctx context.Context, limit int) ([]*evaluator.EvaluationResult, error)
}

// Samples is the dataset behind the API; *dataset.Dataset satisfies it.
type Samples interface {
	Len() int
	Mode() pointcloud.Mode
	ClassMap() *dataset.ClassMap
	Get(ctx context.Context, index int) (*pointcloud.Sample, error)
}
