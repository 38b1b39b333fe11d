package metrics

import (
	"fmt"

	"gorgonia.org/tensor"
)

// FlattenLabels turns the accepted label containers into one flat slice.
// Batched inputs of shape (batch, points) are flattened in row-major order.
func FlattenLabels(v any) ([]int, error) {
	switch labels := v.(type) {
	case []int:
		out := make([]int, len(labels))
		copy(out, labels)
		return out, nil
	case []int32:
		return widen(labels), nil
	case []int64:
		return widen(labels), nil
	case [][]int:
		return flatten2D(labels), nil
	case [][]int32:
		return flatten2D(labels), nil
	case [][]int64:
		return flatten2D(labels), nil
	case tensor.Tensor:
		return flattenTensor(labels)
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrUnsupportedInput)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedInput, v)
}

type integer interface {
	~int | ~int32 | ~int64
}

func widen[T integer](in []T) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}

func flatten2D[T integer](in [][]T) []int {
	n := 0
	for _, row := range in {
		n += len(row)
	}
	out := make([]int, 0, n)
	for _, row := range in {
		for _, v := range row {
			out = append(out, int(v))
		}
	}
	return out
}

func flattenTensor(t tensor.Tensor) ([]int, error) {
	if v, ok := t.(tensor.View); ok && v.IsView() && v.IsMaterializable() {
		t = v.Materialize()
	}
	if !t.IsNativelyAccessible() {
		return nil, fmt.Errorf("%w: tensor backing is not accessible", ErrUnsupportedInput)
	}
	switch data := t.Data().(type) {
	case []int:
		return widen(data), nil
	case []int32:
		return widen(data), nil
	case []int64:
		return widen(data), nil
	case int:
		return []int{data}, nil
	case int32:
		return []int{int(data)}, nil
	case int64:
		return []int{int(data)}, nil
	}
	return nil, fmt.Errorf("%w: tensor of %v", ErrUnsupportedInput, t.Dtype())
}
