package dataset

import (
	"fmt"
	"io"
	"strings"

	"github.com/sbinet/npyio"
)

// NpyArray is a decoded C-ordered .npy array. Data is one of []float32,
// []float64, []int32 or []int64, matching the file dtype.
type NpyArray struct {
	Shape []int
	Data  any
}

// ReadNpy decodes a .npy stream. The element type follows the header dtype,
// so "<i8" stays []int64.
func ReadNpy(r io.Reader) (*NpyArray, error) {
	nr, err := npyio.NewReader(r)
	if err != nil {
		return nil, err
	}
	descr := nr.Header.Descr
	if descr.Fortran {
		return nil, fmt.Errorf("fortran-ordered arrays are not supported")
	}

	var data any
	switch strings.TrimLeft(descr.Type, "<>|=") {
	case "f4":
		data, err = readAs[float32](nr)
	case "f8":
		data, err = readAs[float64](nr)
	case "i4":
		data, err = readAs[int32](nr)
	case "i8":
		data, err = readAs[int64](nr)
	default:
		return nil, fmt.Errorf("unsupported dtype %q", descr.Type)
	}
	if err != nil {
		return nil, err
	}
	return &NpyArray{Shape: descr.Shape, Data: data}, nil
}

func readAs[T float32 | float64 | int32 | int64](nr *npyio.Reader) ([]T, error) {
	var v []T
	if err := nr.Read(&v); err != nil {
		return nil, err
	}
	return v, nil
}
