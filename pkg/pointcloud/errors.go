package pointcloud

import "errors"

var (
	ErrEmptyCloud          = errors.New("point cloud is empty")
	ErrInvalidSampleSize   = errors.New("sample size must be positive")
	ErrLabelMismatch       = errors.New("label count does not match point count")
	ErrInvalidSchema       = errors.New("invalid attribute schema")
	ErrSchemaMismatch      = errors.New("point columns do not match schema")
	ErrIndexOutOfRange     = errors.New("point index out of range")
	ErrInvalidAugmentation = errors.New("invalid augmentation config")
	ErrInvalidMode         = errors.New("invalid sample mode")
)

// IsValidation reports whether err is an input-validation failure from this
// package, as opposed to an I/O or internal error.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrEmptyCloud, ErrInvalidSampleSize, ErrLabelMismatch, ErrInvalidSchema,
		ErrSchemaMismatch, ErrIndexOutOfRange, ErrInvalidAugmentation, ErrInvalidMode,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
