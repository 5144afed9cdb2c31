package base

import (
	"fmt"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
)

// UpMode selects how UpBlock doubles the spatial resolution.
type UpMode int

const (
	UpNearest UpMode = iota
	UpBilinear
	UpDeconv
)

// ParseUpMode maps a mode name to UpMode.
func ParseUpMode(name string) (UpMode, error) {
	switch name {
	case "nearest":
		return UpNearest, nil
	case "bilinear":
		return UpBilinear, nil
	case "deconv":
		return UpDeconv, nil
	default:
		return UpNearest, fmt.Errorf("Unsupported upsampling mode: %q", name)
	}
}

func (m UpMode) String() string {
	switch m {
	case UpBilinear:
		return "bilinear"
	case UpDeconv:
		return "deconv"
	default:
		return "nearest"
	}
}

// UpBlock upsamples [B C H W] to [B C H*scale W*scale], either with a learned
// transposed convolution or with a fixed interpolation.
type UpBlock struct {
	Mode   UpMode
	Scale  int64
	Deconv *nn.ConvTranspose2D // only set for UpDeconv
}

// NewUpBlock creates UpBlock. channels is only used by UpDeconv.
func NewUpBlock(p *nn.Path, mode UpMode, scale, channels int64) *UpBlock {
	up := &UpBlock{Mode: mode, Scale: scale}
	if mode == UpDeconv {
		// kernel == stride, no padding: out = (in-1)*scale + scale = in*scale
		config := &nn.ConvTranspose2DConfig{
			Stride:        []int64{scale, scale},
			Padding:       []int64{0, 0},
			OutputPadding: []int64{0, 0},
			Dilation:      []int64{1, 1},
			Groups:        1,
			Bias:          true,
			WsInit:        nn.NewKaimingUniformInit(),
			BsInit:        nn.NewConstInit(0.0),
		}
		up.Deconv = nn.NewConvTranspose2D(p.Sub("up"), channels, channels, []int64{scale, scale}, config)
	}

	return up
}

// ForwardT implements ts.ModuleT for UpBlock.
func (u *UpBlock) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	size := x.MustSize()
	outSize := []int64{size[2] * u.Scale, size[3] * u.Scale}

	switch u.Mode {
	case UpDeconv:
		return u.Deconv.Forward(x)
	case UpBilinear:
		return x.MustUpsampleBilinear2d(outSize, false, nil, nil, false)
	default:
		return x.MustUpsampleNearest2d(outSize, nil, nil, false)
	}
}
