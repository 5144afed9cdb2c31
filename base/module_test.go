package base_test

import (
	"math"
	"reflect"
	"testing"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/dfnet/base"
)

func numel(x *ts.Tensor) int64 {
	n := int64(1)
	for _, d := range x.MustSize() {
		n *= d
	}
	return n
}

func TestDepthwiseSeparableConvParams(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	conv := base.NewDepthwiseSeparableConv(vs.Root(), 8, 16, 3, 1, 1)

	weights := numel(conv.Depthwise.Ws) + numel(conv.Pointwise.Ws)
	if want := int64(8*3*3 + 8*16); weights != want {
		t.Errorf("weights: want %v, got %v", want, weights)
	}
	if dense := int64(8 * 16 * 3 * 3); weights >= dense {
		t.Errorf("depthwise separable weights %v not below dense %v", weights, dense)
	}

	// biases of both convs
	if want, got := int64(8*3*3+8*16+8+16), base.NumParams(vs); got != want {
		t.Errorf("params: want %v, got %v", want, got)
	}

	x := ts.MustRand([]int64{2, 8, 10, 10}, gotch.Float, gotch.CPU)
	out := conv.ForwardT(x, false)
	want := []int64{2, 16, 10, 10}
	if got := out.MustSize(); !reflect.DeepEqual(got, want) {
		t.Errorf("shape: want %v, got %v", want, got)
	}
	x.MustDrop()
	out.MustDrop()
}

func TestParseNorm(t *testing.T) {
	tests := map[string]base.Norm{
		"batch":    base.NormBatch,
		"instance": base.NormInstance,
		"":         base.NormNone,
		"group":    base.NormNone,
	}
	for name, want := range tests {
		if got := base.ParseNorm(name); got != want {
			t.Errorf("%q: want %v, got %v", name, want, got)
		}
	}
}

func TestParseActivation(t *testing.T) {
	for _, a := range []base.Activation{base.ActReLU, base.ActELU, base.ActLeakyReLU, base.ActTanh, base.ActSigmoid} {
		if got := base.ParseActivation(a.String()); got != a {
			t.Errorf("%v: got %v", a, got)
		}
	}
	if got := base.ParseActivation("swish"); got != base.ActNone {
		t.Errorf("unknown name: want none, got %v", got)
	}
}

func TestActivations(t *testing.T) {
	in := []float32{-2, -0.5, 0, 1.5}
	ref := map[base.Activation]func(float64) float64{
		base.ActNone: func(v float64) float64 { return v },
		base.ActReLU: func(v float64) float64 { return math.Max(v, 0) },
		base.ActELU: func(v float64) float64 {
			if v > 0 {
				return v
			}
			return math.Exp(v) - 1
		},
		base.ActLeakyReLU: func(v float64) float64 {
			if v > 0 {
				return v
			}
			return base.LeakySlope * v
		},
		base.ActTanh:    math.Tanh,
		base.ActSigmoid: func(v float64) float64 { return 1 / (1 + math.Exp(-v)) },
	}

	x := ts.MustOfSlice(in).MustView([]int64{1, 1, 2, 2}, true)
	for act, f := range ref {
		out := act.ForwardT(x, false)
		got := out.Float64Values()
		out.MustDrop()
		for i, v := range in {
			if want := f(float64(v)); math.Abs(got[i]-want) > 1e-5 {
				t.Errorf("%v(%v): want %v, got %v", act, v, want, got[i])
			}
		}
	}
	x.MustDrop()
}

func TestInstanceNorm(t *testing.T) {
	x := ts.MustRand([]int64{2, 3, 8, 8}, gotch.Float, gotch.CPU).MustMul1(ts.FloatScalar(5), true).MustAdd1(ts.FloatScalar(2), true)
	out := base.NewInstanceNorm(1e-5).ForwardT(x, true)

	vals := out.Float64Values()
	plane := 8 * 8
	for c := 0; c < 6; c++ {
		var sum, sq float64
		for _, v := range vals[c*plane : (c+1)*plane] {
			sum += v
			sq += v * v
		}
		mean := sum / float64(plane)
		variance := sq/float64(plane) - mean*mean
		if math.Abs(mean) > 1e-4 {
			t.Errorf("plane %v mean: got %v", c, mean)
		}
		if math.Abs(variance-1) > 1e-2 {
			t.Errorf("plane %v variance: got %v", c, variance)
		}
	}
	x.MustDrop()
	out.MustDrop()
}

func TestNewNormShape(t *testing.T) {
	x := ts.MustRand([]int64{2, 4, 6, 6}, gotch.Float, gotch.CPU)
	for _, kind := range []base.Norm{base.NormBatch, base.NormInstance, base.NormNone} {
		vs := nn.NewVarStore(gotch.CPU)
		out := base.NewNorm(vs.Root(), kind, 4).ForwardT(x, true)
		if got := out.MustSize(); !reflect.DeepEqual(got, x.MustSize()) {
			t.Errorf("%v: want %v, got %v", kind, x.MustSize(), got)
		}
		out.MustDrop()
	}
	x.MustDrop()
}

func TestUpBlock(t *testing.T) {
	x := ts.MustRand([]int64{2, 4, 5, 7}, gotch.Float, gotch.CPU)
	want := []int64{2, 4, 10, 14}
	for _, name := range []string{"nearest", "bilinear", "deconv"} {
		mode, err := base.ParseUpMode(name)
		if err != nil {
			t.Fatal(err)
		}
		vs := nn.NewVarStore(gotch.CPU)
		up := base.NewUpBlock(vs.Root(), mode, 2, 4)
		out := up.ForwardT(x, false)
		if got := out.MustSize(); !reflect.DeepEqual(got, want) {
			t.Errorf("%v: want %v, got %v", name, want, got)
		}
		out.MustDrop()

		hasParams := base.NumParams(vs) > 0
		if hasParams != (mode == base.UpDeconv) {
			t.Errorf("%v: unexpected params %v", name, base.NumParams(vs))
		}
	}
	x.MustDrop()

	if _, err := base.ParseUpMode("area"); err == nil {
		t.Error("expected error for unsupported mode")
	}
}

func TestImageHeadBounds(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	head := base.NewImageHead(vs.Root(), 16, 3)
	x := ts.MustRand([]int64{1, 16, 4, 4}, gotch.Float, gotch.CPU).MustMul1(ts.FloatScalar(100), true)
	out := head.ForwardT(x, false)

	want := []int64{1, 3, 4, 4}
	if got := out.MustSize(); !reflect.DeepEqual(got, want) {
		t.Errorf("shape: want %v, got %v", want, got)
	}
	for _, v := range out.Float64Values() {
		if v < 0 || v > 1 {
			t.Fatalf("value out of [0, 1]: %v", v)
		}
	}
	x.MustDrop()
	out.MustDrop()
}
