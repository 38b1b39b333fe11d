package metrics

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Report is the outcome of one evaluation.
type Report struct {
	NumClasses      int       `json:"num_classes"`
	NumPoints       int64     `json:"num_points"`
	OverallAccuracy float64   `json:"overall_accuracy"`
	MeanIoU         float64   `json:"mean_iou"`
	IoU             []float64 `json:"iou"`
	MeanSIoU        float64   `json:"mean_siou"`
	SIoU            []float64 `json:"siou"`
	Support         []int64   `json:"support"`
	Confusion       [][]int64 `json:"confusion"`
}

type EvaluationPipeline struct {
	NumClasses int
	Similarity *SimilarityMatrix
}

type EvaluationPipelineOption func(*EvaluationPipeline)

// WithSimilarity replaces the identity similarity used for SIoU.
func WithSimilarity(sim *SimilarityMatrix) EvaluationPipelineOption {
	return func(p *EvaluationPipeline) {
		p.Similarity = sim
	}
}

func NewEvaluationPipeline(numClasses int, opts ...EvaluationPipelineOption) (*EvaluationPipeline, error) {
	p := &EvaluationPipeline{NumClasses: numClasses}
	for _, opt := range opts {
		opt(p)
	}

	if p.NumClasses <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidClassCount, p.NumClasses)
	}
	if p.Similarity == nil {
		sim, err := IdentitySimilarity(p.NumClasses)
		if err != nil {
			return nil, err
		}
		p.Similarity = sim
	}
	if n := p.Similarity.NumClasses(); n != p.NumClasses {
		return nil, fmt.Errorf("%w: similarity covers %d classes, want %d", ErrInvalidSimilarity, n, p.NumClasses)
	}
	return p, nil
}

// Process evaluates one prediction against ground truth. Both arguments
// accept any input FlattenLabels understands and must hold the same number of
// labels after flattening.
func (p *EvaluationPipeline) Process(pred, truth any) (*Report, error) {
	predLabels, err := FlattenLabels(pred)
	if err != nil {
		return nil, fmt.Errorf("prediction: %w", err)
	}
	truthLabels, err := FlattenLabels(truth)
	if err != nil {
		return nil, fmt.Errorf("ground truth: %w", err)
	}

	cm, err := ComputeConfusionMatrix(truthLabels, predLabels, p.NumClasses)
	if err != nil {
		return nil, err
	}
	return p.ProcessMatrix(cm)
}

// ProcessMatrix computes a report from an already accumulated matrix.
func (p *EvaluationPipeline) ProcessMatrix(cm *ConfusionMatrix) (*Report, error) {
	iou := ComputeIoU(cm)
	siou, err := ComputeSIoU(cm, p.Similarity)
	if err != nil {
		return nil, err
	}

	support := make([]int64, p.NumClasses)
	for c, v := range cm.RowSums() {
		support[c] = int64(v)
	}

	report := &Report{
		NumClasses:      p.NumClasses,
		NumPoints:       int64(cm.Total()),
		OverallAccuracy: iou.OverallAccuracy,
		MeanIoU:         iou.MeanIoU,
		IoU:             iou.IoU,
		MeanSIoU:        siou.MeanSIoU,
		SIoU:            siou.SIoU,
		Support:         support,
		Confusion:       cm.Rows(),
	}

	log.Debug().
		Int("classes", report.NumClasses).
		Int64("points", report.NumPoints).
		Float64("oa", report.OverallAccuracy).
		Float64("miou", report.MeanIoU).
		Float64("msiou", report.MeanSIoU).
		Msg("evaluation done")

	return report, nil
}

// Evaluate is the one-shot entry point.
func Evaluate(pred, truth any, numClasses int, opts ...EvaluationPipelineOption) (*Report, error) {
	p, err := NewEvaluationPipeline(numClasses, opts...)
	if err != nil {
		return nil, err
	}
	return p.Process(pred, truth)
}
