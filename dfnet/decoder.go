package dfnet

import (
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/dfnet/base"
)

// DecodeBlock upsamples features from the previous (deeper) stage,
// concatenates the matching encoder skip and decodes with
// depthwise-separable conv -> norm -> act.
type DecodeBlock struct {
	CFromUp   int64
	CFromDown int64
	CIn       int64
	COut      int64

	Up   *base.UpBlock
	Conv *base.DepthwiseSeparableConv
	Norm ts.ModuleT // Identity for base.NormNone
	Act  base.Activation
}

// NewDecodeBlock creates DecodeBlock. cFromDown == 0 makes a stage without
// skip input.
func NewDecodeBlock(p *nn.Path, cFromUp, cFromDown, cOut int64, mode base.UpMode, ksize, scale int64, norm base.Norm, act base.Activation) *DecodeBlock {
	cIn := cFromUp + cFromDown
	dp := p.Sub("decode")

	return &DecodeBlock{
		CFromUp:   cFromUp,
		CFromDown: cFromDown,
		CIn:       cIn,
		COut:      cOut,
		Up:        base.NewUpBlock(p.Sub("up"), mode, scale, cFromUp),
		Conv:      base.NewDepthwiseSeparableConv(dp.Sub("0"), cIn, cOut, ksize, 1, ksize/2),
		Norm:      base.NewNorm(dp.Sub("1"), norm, cOut),
		Act:       act,
	}
}

// ForwardSkip upsamples x and decodes it together with skip.
// skip must have CFromDown channels and the upsampled spatial size of x;
// it is ignored when CFromDown == 0.
func (d *DecodeBlock) ForwardSkip(x, skip *ts.Tensor, train bool) *ts.Tensor {
	up := d.Up.ForwardT(x, train)
	if d.CFromDown > 0 {
		cat := ts.MustCat([]ts.Tensor{*up, *skip}, 1)
		up.MustDrop()
		up = cat
	}

	conv := d.Conv.ForwardT(up, train)
	up.MustDrop()
	normed := d.Norm.ForwardT(conv, train)
	conv.MustDrop()
	out := d.Act.ForwardT(normed, train)
	normed.MustDrop()

	return out
}
