package metric

import (
	"math"

	ts "github.com/sugarme/gotch/tensor"
)

// MaskedL1Loss returns mean(|input - target| * mask) as a scalar tensor.
// mask can be nil, in which case it is the plain mean absolute error.
func MaskedL1Loss(input, target, mask *ts.Tensor) *ts.Tensor {
	loss := input.MustSub(target, false).MustAbs(true)
	if mask != nil {
		loss = loss.MustMul(mask, true)
	}

	return loss.MustMean(input.DType(), true)
}

// PSNR calculates peak signal-to-noise ratio in dB for values in [0, 1].
// It returns +Inf for identical tensors.
func PSNR(pred, target *ts.Tensor) float64 {
	diff := pred.MustSub(target, false)
	sq := diff.MustMul(diff, true)
	mse := sq.MustMean(pred.DType(), true)
	v := mse.Float64Values()[0]
	mse.MustDrop()

	if v == 0 {
		return math.Inf(1)
	}

	return 10 * math.Log10(1/v)
}
