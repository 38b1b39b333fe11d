package metrics

import "errors"

var (
	ErrInvalidClassCount = errors.New("number of classes must be positive")
	ErrShapeMismatch     = errors.New("prediction and ground truth shapes differ")
	ErrClassOutOfRange   = errors.New("class index out of range")
	ErrUnsupportedInput  = errors.New("unsupported label input type")
	ErrInvalidSimilarity = errors.New("invalid similarity matrix")
)

// IsValidation reports whether err is caused by bad caller input.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidClassCount, ErrShapeMismatch, ErrClassOutOfRange,
		ErrUnsupportedInput, ErrInvalidSimilarity,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
