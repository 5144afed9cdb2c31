package encoder

import (
	"fmt"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/dfnet/base"
)

// ResNetBlock is a ResNet basic block:
// conv3x3(stride) -> norm -> act -> conv3x3 -> norm, plus shortcut, then act.
type ResNetBlock struct {
	Conv1      *nn.Conv2D
	Norm1      ts.ModuleT
	Conv2      *nn.Conv2D
	Norm2      ts.ModuleT
	Act        base.Activation
	Downsample ts.ModuleT // nil means identity shortcut

	InChannels  int64
	OutChannels int64
}

// NewResNetBlock creates ResNetBlock. When stride != 1 or cIn != cOut the
// caller must pass a downsample module matching the main path's output shape.
func NewResNetBlock(p *nn.Path, cIn, cOut, stride int64, downsample ts.ModuleT, norm base.Norm, act base.Activation) *ResNetBlock {
	return &ResNetBlock{
		Conv1:       base.Conv2dNoBias(p.Sub("conv1"), cIn, cOut, 3, 1, stride),
		Norm1:       base.NewNorm(p.Sub("bn1"), norm, cOut),
		Conv2:       base.Conv2dNoBias(p.Sub("conv2"), cOut, cOut, 3, 1, 1),
		Norm2:       base.NewNorm(p.Sub("bn2"), norm, cOut),
		Act:         act,
		Downsample:  downsample,
		InChannels:  cIn,
		OutChannels: cOut,
	}
}

// ForwardT implements ts.ModuleT for ResNetBlock.
func (bb *ResNetBlock) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	c1 := bb.Conv1.Forward(x)
	n1 := bb.Norm1.ForwardT(c1, train)
	c1.MustDrop()
	a1 := bb.Act.ForwardT(n1, train)
	n1.MustDrop()
	c2 := bb.Conv2.Forward(a1)
	a1.MustDrop()
	n2 := bb.Norm2.ForwardT(c2, train)
	c2.MustDrop()

	var sum *ts.Tensor
	if bb.Downsample != nil {
		identity := bb.Downsample.ForwardT(x, train)
		sum = n2.MustAdd(identity, true)
		identity.MustDrop()
	} else {
		sum = n2.MustAdd(x, true)
	}
	res := bb.Act.ForwardT(sum, train)
	sum.MustDrop()

	return res
}

// downSample creates the projecting shortcut: 1x1 conv with stride + norm.
func downSample(path *nn.Path, cIn, cOut, stride int64, norm base.Norm) ts.ModuleT {
	seq := nn.SeqT()
	seq.Add(base.Conv2dNoBias(path.Sub("0"), cIn, cOut, 1, 0, stride))
	seq.Add(base.NewNorm(path.Sub("1"), norm, cOut))

	return seq
}

// EncodeBlock is an encoder stage: a ResNetBlock with a projected shortcut.
type EncodeBlock struct {
	Block *ResNetBlock
}

// NewEncodeBlock creates EncodeBlock. With stride 2 it halves height and width.
func NewEncodeBlock(p *nn.Path, cIn, cOut, stride int64, norm base.Norm, act base.Activation) *EncodeBlock {
	bp := p.Sub("block")
	downsample := downSample(bp.Sub("downsample"), cIn, cOut, stride, norm)

	return &EncodeBlock{
		Block: NewResNetBlock(bp, cIn, cOut, stride, downsample, norm, act),
	}
}

// ForwardT implements ts.ModuleT for EncodeBlock.
func (e *EncodeBlock) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	return e.Block.ForwardT(x, train)
}

// ResNetEncoder chains stride-2 EncodeBlocks.
type ResNetEncoder struct {
	Blocks []*EncodeBlock
}

// NewResNetEncoder creates one EncodeBlock per entry of channels, starting
// from cIn input channels. Blocks are registered as `en_{i}`.
func NewResNetEncoder(p *nn.Path, cIn int64, channels []int64, norm base.Norm, act base.Activation) *ResNetEncoder {
	blocks := make([]*EncodeBlock, 0, len(channels))
	for i, cOut := range channels {
		blocks = append(blocks, NewEncodeBlock(p.Sub(fmt.Sprintf("en_%d", i)), cIn, cOut, 2, norm, act))
		cIn = cOut
	}

	return &ResNetEncoder{Blocks: blocks}
}

// ForwardAll implements Encoder interface for ResNetEncoder.
func (e *ResNetEncoder) ForwardAll(x *ts.Tensor, train bool) []*ts.Tensor {
	features := make([]*ts.Tensor, 0, len(e.Blocks)+1)
	features = append(features, x.MustShallowClone())

	out := x
	for _, b := range e.Blocks {
		out = b.ForwardT(out, train)
		features = append(features, out)
	}

	return features
}

// InChannels returns the input channel count of stage i.
func (e *ResNetEncoder) InChannels(i int) int64 {
	return e.Blocks[i].Block.InChannels
}

// OutChannels returns the output channel count of stage i.
func (e *ResNetEncoder) OutChannels(i int) int64 {
	return e.Blocks[i].Block.OutChannels
}
