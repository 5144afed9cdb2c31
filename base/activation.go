package base

import (
	ts "github.com/sugarme/gotch/tensor"
)

// Activation is a nonlinearity kind. It has no parameters and implements
// ts.ModuleT so it can sit in a nn.SequentialT next to learned layers.
type Activation int

const (
	ActNone Activation = iota
	ActReLU
	ActELU
	ActLeakyReLU
	ActTanh
	ActSigmoid
)

// LeakySlope is the negative slope of ActLeakyReLU.
const LeakySlope = 0.2

// ParseActivation maps a name to an Activation. Unknown or empty names yield ActNone.
func ParseActivation(name string) Activation {
	switch name {
	case "relu":
		return ActReLU
	case "elu":
		return ActELU
	case "leaky_relu":
		return ActLeakyReLU
	case "tanh":
		return ActTanh
	case "sigmoid":
		return ActSigmoid
	default:
		return ActNone
	}
}

func (a Activation) String() string {
	switch a {
	case ActReLU:
		return "relu"
	case ActELU:
		return "elu"
	case ActLeakyReLU:
		return "leaky_relu"
	case ActTanh:
		return "tanh"
	case ActSigmoid:
		return "sigmoid"
	default:
		return "none"
	}
}

// ForwardT implements ts.ModuleT for Activation.
func (a Activation) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	switch a {
	case ActReLU:
		return x.MustRelu(false)
	case ActELU:
		return x.MustElu(false)
	case ActLeakyReLU:
		return leakyRelu(x, LeakySlope)
	case ActTanh:
		return x.MustTanh(false)
	case ActSigmoid:
		return x.MustSigmoid(false)
	default:
		return x.MustShallowClone()
	}
}

// leakyRelu computes relu(x) - slope*relu(-x).
func leakyRelu(x *ts.Tensor, slope float64) *ts.Tensor {
	pos := x.MustRelu(false)
	neg := x.MustNeg(false).MustRelu(true).MustMul1(ts.FloatScalar(slope), true)
	out := pos.MustSub(neg, true)
	neg.MustDrop()

	return out
}
