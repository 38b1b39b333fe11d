package pointcloud

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/sampleuv"
)

// NewSource returns a PCG source for the given seed pair. Sampling and
// augmentation never touch the global generator, so equal seeds replay equal
// samples.
func NewSource(seed, stream uint64) rand.Source {
	return rand.NewPCG(seed, stream)
}

func sourceOrRandom(src rand.Source) rand.Source {
	if src != nil {
		return src
	}
	return rand.NewPCG(rand.Uint64(), rand.Uint64())
}

// SampleIndices draws k indices into [0,n). When n >= k the indices are
// distinct (drawn without replacement); when n < k they are drawn uniformly
// with replacement. The order of the result carries no meaning.
func SampleIndices(n, k int, src rand.Source) ([]int, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: source has %d points", ErrEmptyCloud, n)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSampleSize, k)
	}
	src = sourceOrRandom(src)

	idx := make([]int, k)
	// n == k also draws without replacement, giving a permutation of the source.
	if n >= k {
		sampleuv.WithoutReplacement(idx, n, src)
		return idx, nil
	}

	rnd := rand.New(src)
	for i := range idx {
		idx[i] = rnd.IntN(n)
	}
	return idx, nil
}

// SelectLabels gathers labels with the same indices used for Cloud.Select.
func SelectLabels(labels []int32, idx []int) ([]int32, error) {
	out := make([]int32, len(idx))
	for i, src := range idx {
		if src < 0 || src >= len(labels) {
			return nil, fmt.Errorf("%w: index %d not in [0,%d)", ErrIndexOutOfRange, src, len(labels))
		}
		out[i] = labels[src]
	}
	return out, nil
}

// ValidateLabels checks the point/label alignment invariant.
func ValidateLabels(c *Cloud, labels []int32) error {
	if c == nil || c.Len() == 0 {
		return ErrEmptyCloud
	}
	if len(labels) != c.Len() {
		return fmt.Errorf("%w: %d points, %d labels", ErrLabelMismatch, c.Len(), len(labels))
	}
	return nil
}

// Resample draws k aligned points and labels from c. It returns the source
// indices alongside the sampled data.
func Resample(c *Cloud, labels []int32, k int, src rand.Source) (*Cloud, []int32, []int, error) {
	if err := ValidateLabels(c, labels); err != nil {
		return nil, nil, nil, err
	}
	idx, err := SampleIndices(c.Len(), k, src)
	if err != nil {
		return nil, nil, nil, err
	}
	points, err := c.Select(idx)
	if err != nil {
		return nil, nil, nil, err
	}
	sampledLabels, err := SelectLabels(labels, idx)
	if err != nil {
		return nil, nil, nil, err
	}
	return points, sampledLabels, idx, nil
}
