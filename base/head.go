package base

import "github.com/sugarme/gotch/nn"

// NewImageHead creates a head projecting cIn feature channels to a cOut
// channel image bounded to [0, 1]: depthwise-separable 1x1 conv then sigmoid.
func NewImageHead(p *nn.Path, cIn, cOut int64) *nn.SequentialT {
	seq := nn.SeqT()
	seq.Add(NewDepthwiseSeparableConv(p.Sub("0"), cIn, cOut, 1, 1, 0))
	seq.Add(ActSigmoid)

	return seq
}
