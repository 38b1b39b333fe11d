package pointcloud

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// AugmentationConfig toggles each augmentation stage by presence. A nil field
// disables that stage.
type AugmentationConfig struct {
	Scale  *[2]float64 `json:"scale,omitempty"`  // [min, max) scale factor
	Rot    *float64    `json:"rot,omitempty"`    // max absolute rotation about Z, radians
	Jitter *float64    `json:"jitter,omitempty"` // stddev of per-coordinate gaussian noise
}

func (c AugmentationConfig) Enabled() bool {
	return c.Scale != nil || c.Rot != nil || c.Jitter != nil
}

func (c AugmentationConfig) Validate() error {
	if c.Scale != nil {
		lo, hi := c.Scale[0], c.Scale[1]
		if math.IsNaN(lo) || math.IsNaN(hi) || lo > hi {
			return fmt.Errorf("%w: scale range [%v, %v)", ErrInvalidAugmentation, lo, hi)
		}
	}
	if c.Rot != nil && (math.IsNaN(*c.Rot) || *c.Rot < 0) {
		return fmt.Errorf("%w: rot %v must be >= 0", ErrInvalidAugmentation, *c.Rot)
	}
	if c.Jitter != nil && (math.IsNaN(*c.Jitter) || *c.Jitter < 0) {
		return fmt.Errorf("%w: jitter %v must be >= 0", ErrInvalidAugmentation, *c.Jitter)
	}
	return nil
}

// Augmentor applies scale, rotation and jitter, in that order, to the
// coordinate columns of a cloud.
type Augmentor struct {
	cfg AugmentationConfig
	src rand.Source
}

func NewAugmentor(cfg AugmentationConfig, src rand.Source) (*Augmentor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Augmentor{cfg: cfg, src: sourceOrRandom(src)}, nil
}

// Apply returns an augmented copy of c. Point count and order are preserved,
// so labels stay aligned.
func (a *Augmentor) Apply(c *Cloud) *Cloud {
	out := c.Clone()
	coords := out.coords()

	if a.cfg.Scale != nil {
		factor := distuv.Uniform{Min: a.cfg.Scale[0], Max: a.cfg.Scale[1], Src: a.src}.Rand()
		coords.Scale(factor, coords)
	}

	if a.cfg.Rot != nil {
		angle := distuv.Uniform{Min: -*a.cfg.Rot, Max: *a.cfg.Rot, Src: a.src}.Rand()
		rotateXY(coords, angle)
	}

	if a.cfg.Jitter != nil {
		noise := distuv.Normal{Mu: 0, Sigma: *a.cfg.Jitter, Src: a.src}
		n, d := coords.Dims()
		for i := range n {
			row := coords.RawRowView(i)
			for j := range d {
				row[j] += noise.Rand()
			}
		}
	}

	return out
}

// rotateXY right-multiplies the X-Y columns by the Z-axis rotation block
// [[cos, -sin], [sin, cos]]. Any Z column is left untouched.
func rotateXY(coords *mat.Dense, angle float64) {
	n, _ := coords.Dims()
	xy := coords.Slice(0, n, 0, 2).(*mat.Dense)

	cos, sin := math.Cos(angle), math.Sin(angle)
	rot := mat.NewDense(2, 2, []float64{
		cos, -sin,
		sin, cos,
	})

	var rotated mat.Dense
	rotated.Mul(xy, rot)
	xy.Copy(&rotated)
}
