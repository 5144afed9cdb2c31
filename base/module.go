package base

import (
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
)

// Identity is a nn.Module placeholder.
// It forwards the input tensor as such.
type Identity struct{}

// Forward implement nn.Module for Identity struct
func (i *Identity) Forward(x *ts.Tensor) *ts.Tensor {
	return x.MustShallowClone()
}

// Forward implement nn.ModuleT for Identity struct.
func (i *Identity) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	return x.MustShallowClone()
}

// NewIdentity creates a new Identity struct.
func NewIdentity() *Identity {
	return &Identity{}
}

// DepthwiseSeparableConv is a per-channel spatial convolution followed by
// a 1x1 channel-mixing convolution.
type DepthwiseSeparableConv struct {
	Depthwise *nn.Conv2D
	Pointwise *nn.Conv2D
}

// NewDepthwiseSeparableConv creates DepthwiseSeparableConv.
func NewDepthwiseSeparableConv(p *nn.Path, cIn, cOut, ksize, stride, padding int64) *DepthwiseSeparableConv {
	return &DepthwiseSeparableConv{
		Depthwise: Conv2dGroups(p.Sub("depthwise"), cIn, cIn, ksize, padding, stride, cIn),
		Pointwise: Conv2d(p.Sub("pointwise"), cIn, cOut, 1, 0, 1),
	}
}

// ForwardT implements ts.ModuleT for DepthwiseSeparableConv.
func (c *DepthwiseSeparableConv) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	dw := c.Depthwise.Forward(x)
	pw := c.Pointwise.Forward(dw)
	dw.MustDrop()

	return pw
}

// Conv2d creates Conv2D module.
func Conv2d(p *nn.Path, cIn, cOut, ksize, padding, stride int64) *nn.Conv2D {
	config := nn.DefaultConv2DConfig()
	config.Stride = []int64{stride, stride}
	config.Padding = []int64{padding, padding}

	return nn.NewConv2D(p, cIn, cOut, ksize, config)
}

// Conv2dNoBias creates Conv2D with no bias.
func Conv2dNoBias(p *nn.Path, cIn, cOut, ksize, padding, stride int64) *nn.Conv2D {
	config := nn.DefaultConv2DConfig()
	config.Bias = false
	config.Stride = []int64{stride, stride}
	config.Padding = []int64{padding, padding}

	return nn.NewConv2D(p, cIn, cOut, ksize, config)
}

// Conv2dGroups creates a grouped Conv2D. cIn and cOut must be divisible by groups.
func Conv2dGroups(p *nn.Path, cIn, cOut, ksize, padding, stride, groups int64) *nn.Conv2D {
	config := nn.DefaultConv2DConfig()
	config.Stride = []int64{stride, stride}
	config.Padding = []int64{padding, padding}
	config.Groups = groups

	return nn.NewConv2D(p, cIn, cOut, ksize, config)
}

// NumParams counts scalar values held by all variables of a var store.
func NumParams(vs *nn.VarStore) int64 {
	var n int64
	for _, v := range vs.Variables() {
		numel := int64(1)
		for _, d := range v.MustSize() {
			numel *= d
		}
		n += numel
	}

	return n
}
