package dfnet_test

import (
	"math"
	"reflect"
	"testing"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/dfnet/base"
	"github.com/sugarme/dfnet/dfnet"
)

func smallConfig() *dfnet.Config {
	cfg := dfnet.DefaultConfig()
	cfg.EncoderChannels = []int64{8, 16, 32}
	cfg.DecoderKernels = []int64{3, 3, 3}
	cfg.BlendLayers = []int{0, 1, 2}
	return cfg
}

func randInput(batch, size int64) (img, mask *ts.Tensor) {
	img = ts.MustRand([]int64{batch, 3, size, size}, gotch.Float, gotch.CPU)
	mask = ts.MustRand([]int64{batch, 1, size, size}, gotch.Float, gotch.CPU).MustGt(ts.FloatScalar(0.5), true).MustTotype(gotch.Float, true)
	return img, mask
}

func TestNewRequiresLayerZero(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	cfg := dfnet.DefaultConfig()
	cfg.BlendLayers = []int{1, 2, 3}

	net, err := dfnet.New(vs.Root(), cfg)
	if err == nil {
		t.Fatal("expected error without blend layer 0")
	}
	if net != nil {
		t.Error("expected nil network")
	}
	if n := len(vs.Variables()); n != 0 {
		t.Errorf("expected no variables, got %v", n)
	}
}

func TestNewInvalidConfig(t *testing.T) {
	tests := map[string]func(c *dfnet.Config){
		"too many decoders":  func(c *dfnet.Config) { c.DecoderKernels = []int64{3, 3, 3, 3, 3} },
		"blend out of range": func(c *dfnet.Config) { c.BlendLayers = []int{0, 4} },
		"even kernel":        func(c *dfnet.Config) { c.DecoderKernels = []int64{3, 4, 3, 3} },
		"alpha channels":     func(c *dfnet.Config) { c.AlphaChannels = 2 },
		"up mode":            func(c *dfnet.Config) { c.UpMode = base.UpMode(42) },
	}
	for name, mutate := range tests {
		cfg := dfnet.DefaultConfig()
		mutate(cfg)
		vs := nn.NewVarStore(gotch.CPU)
		if _, err := dfnet.New(vs.Root(), cfg); err == nil {
			t.Errorf("%v: expected error", name)
		}
	}
}

func TestConfigNotShared(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	cfg := smallConfig()
	net, err := dfnet.New(vs.Root(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	cfg.EncoderChannels[0] = 99
	cfg.DecoderKernels[0] = 5
	cfg.BlendLayers[0] = 2
	got := net.Config()
	got.EncoderChannels[1] = 77

	want := smallConfig()
	again := net.Config()
	if !reflect.DeepEqual(again.EncoderChannels, want.EncoderChannels) ||
		!reflect.DeepEqual(again.DecoderKernels, want.DecoderKernels) ||
		!reflect.DeepEqual(again.BlendLayers, want.BlendLayers) {
		t.Errorf("config changed after New: %v", again.String())
	}
}

func TestForwardShapes(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	cfg := smallConfig()
	net, err := dfnet.New(vs.Root(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	img, mask := randInput(2, 32)
	out, err := net.Forward(img, mask, false)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Drop()

	if want := []int{2, 1, 0}; !reflect.DeepEqual(out.Depths, want) {
		t.Errorf("depths: want %v, got %v", want, out.Depths)
	}

	sizes := []int64{8, 16, 32}
	for i := range out.Results {
		want := []int64{2, 3, sizes[i], sizes[i]}
		for _, x := range []*ts.Tensor{out.Results[i], out.Alphas[i], out.Raws[i]} {
			if got := x.MustSize(); !reflect.DeepEqual(got, want) {
				t.Errorf("depth %v: want %v, got %v", out.Depths[i], want, got)
			}
		}
	}
	if got := out.Final().MustSize(); !reflect.DeepEqual(got, img.MustSize()) {
		t.Errorf("final: want %v, got %v", img.MustSize(), got)
	}

	img.MustDrop()
	mask.MustDrop()
}

func TestForwardSkipsUnblendedDepths(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	cfg := smallConfig()
	cfg.BlendLayers = []int{0}
	net, err := dfnet.New(vs.Root(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	for name := range vs.Variables() {
		if len(name) >= 6 && (name[:6] == "fuse_1" || name[:6] == "fuse_2") {
			t.Errorf("unexpected variable %v", name)
		}
	}

	img, mask := randInput(1, 16)
	out, err := net.Forward(img, mask, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Results) != 1 || out.Depths[0] != 0 {
		t.Errorf("want single depth 0 output, got depths %v", out.Depths)
	}
	out.Drop()
	img.MustDrop()
	mask.MustDrop()
}

func TestForwardAlphaConvexity(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	net, err := dfnet.New(vs.Root(), smallConfig())
	if err != nil {
		t.Fatal(err)
	}

	img, mask := randInput(2, 16)
	out, err := net.Forward(img, mask, true)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Drop()

	const eps = 1e-5
	for d := range out.Results {
		// blended input at this stage: nearest resized img
		stage := out.Results[d].MustSize()[2:]
		small := img.MustUpsampleNearest2d(stage, nil, nil, false)
		orig := small.Float64Values()
		small.MustDrop()

		result := out.Results[d].Float64Values()
		alpha := out.Alphas[d].Float64Values()
		raw := out.Raws[d].Float64Values()
		for i := range result {
			a := alpha[i]
			if a < 0 || a > 1 {
				t.Fatalf("depth %v: alpha out of [0, 1]: %v", out.Depths[d], a)
			}
			want := a*raw[i] + (1-a)*orig[i]
			if math.Abs(result[i]-want) > eps {
				t.Fatalf("depth %v: result %v: want %v, got %v", out.Depths[d], i, want, result[i])
			}
			lo, hi := math.Min(raw[i], orig[i]), math.Max(raw[i], orig[i])
			if result[i] < lo-eps || result[i] > hi+eps {
				t.Fatalf("depth %v: result %v outside [%v, %v]", out.Depths[d], result[i], lo, hi)
			}
		}
	}

	img.MustDrop()
	mask.MustDrop()
}

func TestForwardNormInvariance(t *testing.T) {
	img, mask := randInput(2, 16)
	for _, norm := range []base.Norm{base.NormBatch, base.NormInstance, base.NormNone} {
		for _, mode := range []base.UpMode{base.UpNearest, base.UpBilinear, base.UpDeconv} {
			vs := nn.NewVarStore(gotch.CPU)
			cfg := smallConfig()
			cfg.Norm = norm
			cfg.UpMode = mode
			cfg.EncoderAct = base.ParseActivation("")
			net, err := dfnet.New(vs.Root(), cfg)
			if err != nil {
				t.Fatal(err)
			}
			out, err := net.Forward(img, mask, false)
			if err != nil {
				t.Fatal(err)
			}
			if got := out.Final().MustSize(); !reflect.DeepEqual(got, img.MustSize()) {
				t.Errorf("norm %v mode %v: want %v, got %v", norm, mode, img.MustSize(), got)
			}
			out.Drop()
		}
	}
	img.MustDrop()
	mask.MustDrop()
}

func TestForwardInvalidInput(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	net, err := dfnet.New(vs.Root(), smallConfig())
	if err != nil {
		t.Fatal(err)
	}

	img, mask := randInput(1, 20) // not divisible by 8
	if _, err := net.Forward(img, mask, false); err == nil {
		t.Error("expected error for indivisible size")
	}
	img.MustDrop()
	mask.MustDrop()

	img, _ = randInput(1, 16)
	wrongMask := ts.MustRand([]int64{1, 2, 16, 16}, gotch.Float, gotch.CPU)
	if _, err := net.Forward(img, wrongMask, false); err == nil {
		t.Error("expected error for mask channels")
	}
	img.MustDrop()
	wrongMask.MustDrop()
}

func TestDefaultDFNet(t *testing.T) {
	if testing.Short() {
		t.Skip("full size network")
	}

	vs := nn.NewVarStore(gotch.CPU)
	net, err := dfnet.New(vs.Root(), dfnet.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	img, mask := randInput(2, 256)
	ts.NoGrad(func() {
		out, err := net.Forward(img, mask, false)
		if err != nil {
			t.Fatal(err)
		}
		defer out.Drop()

		if len(out.Results) != 4 {
			t.Fatalf("want 4 results, got %v", len(out.Results))
		}
		sizes := []int64{32, 64, 128, 256}
		for i, r := range out.Results {
			want := []int64{2, 3, sizes[i], sizes[i]}
			if got := r.MustSize(); !reflect.DeepEqual(got, want) {
				t.Errorf("depth %v: want %v, got %v", out.Depths[i], want, got)
			}
		}
		for _, r := range out.Results {
			for _, v := range r.Float64Values() {
				if v < -1e-6 || v > 1+1e-6 {
					t.Fatalf("result out of [0, 1]: %v", v)
				}
			}
		}
	})

	img.MustDrop()
	mask.MustDrop()
}
