package dfnet

import (
	"reflect"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/dfnet/base"
)

// resizeLike resamples x (nearest) to the spatial size of ref.
// Batch and channel dims are kept.
func resizeLike(x, ref *ts.Tensor) *ts.Tensor {
	xSize := x.MustSize()
	refSize := ref.MustSize()
	if reflect.DeepEqual(xSize[2:], refSize[2:]) {
		return x.MustShallowClone()
	}

	return x.MustUpsampleNearest2d(refSize[2:], nil, nil, false)
}

// BlendBlock predicts per-pixel blend coefficients in [0, 1].
type BlendBlock struct {
	blend *nn.SequentialT
}

// NewBlendBlock creates BlendBlock. The hidden width is max(cIn/2, 32).
func NewBlendBlock(p *nn.Path, cIn, cOut, ksizeMid int64, norm base.Norm, act base.Activation) *BlendBlock {
	cMid := cIn / 2
	if cMid < 32 {
		cMid = 32
	}

	bp := p.Sub("blend")
	seq := nn.SeqT()
	seq.Add(base.NewDepthwiseSeparableConv(bp.Sub("0"), cIn, cMid, 1, 1, 0))
	seq.Add(base.NewNorm(bp.Sub("1"), norm, cMid))
	seq.Add(act)
	seq.Add(base.NewDepthwiseSeparableConv(bp.Sub("3"), cMid, cOut, ksizeMid, 1, ksizeMid/2))
	seq.Add(base.NewNorm(bp.Sub("4"), norm, cOut))
	seq.Add(act)
	seq.Add(base.NewDepthwiseSeparableConv(bp.Sub("6"), cOut, cOut, 1, 1, 0))
	seq.Add(base.ActSigmoid)

	return &BlendBlock{blend: seq}
}

// ForwardT implements ts.ModuleT for BlendBlock.
func (b *BlendBlock) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	return b.blend.ForwardT(x, train)
}

// FusionBlock turns decoder features into an image estimate and blends it
// with the visible input.
type FusionBlock struct {
	map2img *nn.SequentialT
	blend   *BlendBlock
}

// NewFusionBlock creates FusionBlock for cFeat feature channels, cImg image
// channels and cAlpha blend channels (1 or cImg).
func NewFusionBlock(p *nn.Path, cFeat, cImg, cAlpha int64) *FusionBlock {
	return &FusionBlock{
		map2img: base.NewImageHead(p.Sub("map2img"), cFeat, cImg),
		blend:   NewBlendBlock(p.Sub("blend"), cImg*2, cAlpha, 3, base.NormBatch, base.ActLeakyReLU),
	}
}

// ForwardFuse returns
//   raw    = map2img(feat)
//   alpha  = blend([resized imgMiss, raw])
//   result = alpha*raw + (1-alpha)*resized imgMiss
func (f *FusionBlock) ForwardFuse(imgMiss, feat *ts.Tensor, train bool) (result, alpha, raw *ts.Tensor) {
	img := resizeLike(imgMiss, feat)
	raw = f.map2img.ForwardT(feat, train)

	cat := ts.MustCat([]ts.Tensor{*img, *raw}, 1)
	alpha = f.blend.ForwardT(cat, train)
	cat.MustDrop()

	est := alpha.MustMul(raw, false)
	keep := alpha.MustMul1(ts.FloatScalar(-1), false).MustAdd1(ts.FloatScalar(1), true).MustMul(img, true)
	img.MustDrop()
	result = est.MustAdd(keep, true)
	keep.MustDrop()

	return result, alpha, raw
}
