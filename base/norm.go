package base

import (
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
)

// Norm is a per-channel feature normalization kind.
type Norm int

const (
	NormNone Norm = iota
	NormBatch
	NormInstance
)

// ParseNorm maps a name to a Norm. Unknown or empty names yield NormNone.
func ParseNorm(name string) Norm {
	switch name {
	case "batch":
		return NormBatch
	case "instance":
		return NormInstance
	default:
		return NormNone
	}
}

func (n Norm) String() string {
	switch n {
	case NormBatch:
		return "batch"
	case NormInstance:
		return "instance"
	default:
		return "none"
	}
}

// NewNorm creates a normalization module over c channels.
// NormNone gives an Identity so callers can apply it unconditionally.
func NewNorm(p *nn.Path, kind Norm, c int64) ts.ModuleT {
	switch kind {
	case NormBatch:
		return nn.BatchNorm2D(p, c, nn.DefaultBatchNormConfig())
	case NormInstance:
		return NewInstanceNorm(1e-5)
	default:
		return NewIdentity()
	}
}

// InstanceNorm normalizes every sample and channel over its own spatial
// statistics. It has no affine parameters and no running statistics.
type InstanceNorm struct {
	Eps float64
}

// NewInstanceNorm creates InstanceNorm.
func NewInstanceNorm(eps float64) *InstanceNorm {
	return &InstanceNorm{Eps: eps}
}

// ForwardT implements ts.ModuleT for InstanceNorm. x is [B C H W].
func (n *InstanceNorm) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	// undefined tensors stand for absent affine and running statistics
	none := ts.NewTensor()
	defer none.MustDrop()

	return ts.MustInstanceNorm(x, none, none, none, none, true, 0.1, n.Eps, false)
}
