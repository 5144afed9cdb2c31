package dfnet

import (
	"fmt"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/dfnet/encoder"
)

// DFNet is a ResNet encoder / depthwise-separable decoder inpainting network
// with fusion blocks blending decoder estimates into the visible input.
//
//	en_0                          de_3 (+fuse_3)
//	    en_1                  de_2 (+fuse_2)
//	        ...            ...
//	            en_{n-1} de_{n-1}
//
// Decoder stage i (deepest first) has depth n_de-1-i; depth 0 is full resolution.
type DFNet struct {
	cfg      Config
	encoder  *encoder.ResNetEncoder
	decoders []*DecodeBlock
	fusions  []*FusionBlock // nil where the depth is not blended
}

// New creates DFNet. It returns an error, and creates no variables, if cfg is
// invalid.
func New(p *nn.Path, cfg *Config) (*DFNet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := cfg.clone()
	cInit := c.ImageChannels + c.MaskChannels
	nEn := len(c.EncoderChannels)
	nDe := len(c.DecoderKernels)

	enc := encoder.NewResNetEncoder(p, cInit, c.EncoderChannels, c.Norm, c.EncoderAct)

	decoders := make([]*DecodeBlock, 0, nDe)
	fusions := make([]*FusionBlock, 0, nDe)
	for i, k := range c.DecoderKernels {
		cFromUp := enc.OutChannels(nEn - 1)
		if i > 0 {
			cFromUp = decoders[i-1].COut
		}
		// mirrored encoder stage input channels
		cOut := enc.InChannels(nEn - i - 1)
		cFromDown := cOut
		depth := nDe - i - 1

		dec := NewDecodeBlock(p.Sub(fmt.Sprintf("de_%d", depth)), cFromUp, cFromDown, cOut, c.UpMode, k, 2, c.Norm, c.DecoderAct)
		decoders = append(decoders, dec)

		var fuse *FusionBlock
		if c.blended(depth) {
			fuse = NewFusionBlock(p.Sub(fmt.Sprintf("fuse_%d", depth)), cOut, c.ImageChannels, c.AlphaChannels)
		}
		fusions = append(fusions, fuse)
	}

	return &DFNet{
		cfg:      c,
		encoder:  enc,
		decoders: decoders,
		fusions:  fusions,
	}, nil
}

// Config returns a copy of the network topology.
func (n *DFNet) Config() Config {
	return n.cfg.clone()
}

// Output holds one entry per fused decoder stage, deepest first. The last
// entry is depth 0 at input resolution.
type Output struct {
	Depths  []int
	Results []*ts.Tensor
	Alphas  []*ts.Tensor
	Raws    []*ts.Tensor
}

// Final returns the full resolution blended result.
func (o *Output) Final() *ts.Tensor {
	return o.Results[len(o.Results)-1]
}

// Drop frees all output tensors.
func (o *Output) Drop() {
	for i := range o.Results {
		o.Results[i].MustDrop()
		o.Alphas[i].MustDrop()
		o.Raws[i].MustDrop()
	}
	o.Results, o.Alphas, o.Raws, o.Depths = nil, nil, nil, nil
}

// Forward runs the network on the corrupted image [B C_img H W] and mask
// [B C_mask H W]. H and W must be divisible by 2^len(EncoderChannels).
func (n *DFNet) Forward(imgMiss, mask *ts.Tensor, train bool) (*Output, error) {
	if err := n.checkInput(imgMiss, mask); err != nil {
		return nil, err
	}

	x := ts.MustCat([]ts.Tensor{*imgMiss, *mask}, 1)
	features := n.encoder.ForwardAll(x, train)
	x.MustDrop()

	out := &Output{}
	nDe := len(n.decoders)
	z := features[len(features)-1]
	for i, decode := range n.decoders {
		next := decode.ForwardSkip(z, features[len(features)-i-2], train)
		if i > 0 {
			z.MustDrop()
		}
		z = next

		if fuse := n.fusions[i]; fuse != nil {
			result, alpha, raw := fuse.ForwardFuse(imgMiss, z, train)
			out.Depths = append(out.Depths, nDe-i-1)
			out.Results = append(out.Results, result)
			out.Alphas = append(out.Alphas, alpha)
			out.Raws = append(out.Raws, raw)
		}
	}
	z.MustDrop()

	for _, f := range features {
		f.MustDrop()
	}

	return out, nil
}

func (n *DFNet) checkInput(imgMiss, mask *ts.Tensor) error {
	imgSize := imgMiss.MustSize()
	maskSize := mask.MustSize()
	if len(imgSize) != 4 || len(maskSize) != 4 {
		return fmt.Errorf("Expected 4D image and mask. Got %v and %v", imgSize, maskSize)
	}
	if imgSize[0] != maskSize[0] || imgSize[2] != maskSize[2] || imgSize[3] != maskSize[3] {
		return fmt.Errorf("Image %v and mask %v differ in batch or spatial size", imgSize, maskSize)
	}
	if imgSize[1] != n.cfg.ImageChannels || maskSize[1] != n.cfg.MaskChannels {
		return fmt.Errorf("Expected %v image and %v mask channels. Got %v and %v", n.cfg.ImageChannels, n.cfg.MaskChannels, imgSize[1], maskSize[1])
	}
	factor := int64(1) << uint(len(n.cfg.EncoderChannels))
	if imgSize[2]%factor != 0 || imgSize[3]%factor != 0 {
		return fmt.Errorf("Image size %vx%v is not divisible by %v", imgSize[2], imgSize[3], factor)
	}

	return nil
}
