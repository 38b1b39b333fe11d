package metrics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Epsilon keeps IoU and SIoU finite for classes absent from both truth and
// prediction.
const Epsilon = 1e-6

type IoUResult struct {
	IoU             []float64
	MeanIoU         float64
	OverallAccuracy float64
}

// ComputeIoU derives per-class IoU, mean IoU over all classes and overall
// accuracy from a confusion matrix.
func ComputeIoU(cm *ConfusionMatrix) IoUResult {
	intersection := cm.Diagonal()
	truthSums := cm.RowSums()
	predSums := cm.ColSums()

	iou := make([]float64, cm.NumClasses())
	for c := range iou {
		union := truthSums[c] + predSums[c] - intersection[c]
		iou[c] = intersection[c] / (union + Epsilon)
	}

	return IoUResult{
		IoU:             iou,
		MeanIoU:         stat.Mean(iou, nil),
		OverallAccuracy: OverallAccuracy(cm),
	}
}

// OverallAccuracy is trace / total, or 0 for an empty matrix.
func OverallAccuracy(cm *ConfusionMatrix) float64 {
	total := cm.Total()
	if total == 0 {
		return 0
	}
	return floats.Sum(cm.Diagonal()) / total
}
