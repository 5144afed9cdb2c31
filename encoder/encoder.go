package encoder

import (
	ts "github.com/sugarme/gotch/tensor"
)

// Encoder is encoder interface for an encoder-decoder model.
//
// ForwardAll returns the input followed by every stage's output. The caller
// owns and drops all returned tensors.
type Encoder interface {
	ForwardAll(x *ts.Tensor, train bool) []*ts.Tensor
}
