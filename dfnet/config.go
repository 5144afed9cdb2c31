package dfnet

import (
	"fmt"

	"github.com/sugarme/dfnet/base"
)

// Config is the DFNet topology.
type Config struct {
	ImageChannels int64
	MaskChannels  int64
	AlphaChannels int64

	UpMode     base.UpMode
	Norm       base.Norm
	EncoderAct base.Activation
	DecoderAct base.Activation

	// EncoderChannels are the output channels of each encoder stage.
	EncoderChannels []int64
	// DecoderKernels are the kernel sizes of each decoder stage, deepest first.
	DecoderKernels []int64
	// BlendLayers are the decoder depths that get a fusion block.
	// Depth 0 is the last, full resolution stage and must be present.
	BlendLayers []int
}

// DefaultConfig returns the reference ResNet DFNet topology.
func DefaultConfig() *Config {
	return &Config{
		ImageChannels:   3,
		MaskChannels:    1,
		AlphaChannels:   3,
		UpMode:          base.UpNearest,
		Norm:            base.NormBatch,
		EncoderAct:      base.ActReLU,
		DecoderAct:      base.ActLeakyReLU,
		EncoderChannels: []int64{64, 128, 256, 512},
		DecoderKernels:  []int64{3, 3, 3, 3},
		BlendLayers:     []int{0, 1, 2, 3},
	}
}

// clone copies c without sharing its slices.
func (c *Config) clone() Config {
	out := *c
	out.EncoderChannels = append([]int64(nil), c.EncoderChannels...)
	out.DecoderKernels = append([]int64(nil), c.DecoderKernels...)
	out.BlendLayers = append([]int(nil), c.BlendLayers...)
	return out
}

// Validate checks the topology before any variable is created.
func (c *Config) Validate() error {
	if !c.blended(0) {
		return fmt.Errorf("Invalid config: layer 0 must be blended. Got blend layers %v", c.BlendLayers)
	}

	nDe := len(c.DecoderKernels)
	if nDe == 0 {
		return fmt.Errorf("Invalid config: no decoder stage")
	}
	if nDe > len(c.EncoderChannels) {
		return fmt.Errorf("Invalid config: %v decoder stages but only %v encoder stages", nDe, len(c.EncoderChannels))
	}
	for _, l := range c.BlendLayers {
		if l < 0 || l >= nDe {
			return fmt.Errorf("Invalid config: blend layer %v out of range [0, %v)", l, nDe)
		}
	}

	if c.ImageChannels <= 0 || c.MaskChannels < 0 || c.AlphaChannels <= 0 {
		return fmt.Errorf("Invalid config: channels image=%v mask=%v alpha=%v", c.ImageChannels, c.MaskChannels, c.AlphaChannels)
	}
	if c.AlphaChannels != 1 && c.AlphaChannels != c.ImageChannels {
		return fmt.Errorf("Invalid config: alpha channels must be 1 or %v. Got %v", c.ImageChannels, c.AlphaChannels)
	}
	for i, ch := range c.EncoderChannels {
		if ch <= 0 {
			return fmt.Errorf("Invalid config: encoder stage %v has %v channels", i, ch)
		}
	}
	for i, k := range c.DecoderKernels {
		if k <= 0 || k%2 == 0 {
			return fmt.Errorf("Invalid config: decoder stage %v kernel size must be odd and positive. Got %v", i, k)
		}
	}

	switch c.UpMode {
	case base.UpNearest, base.UpBilinear, base.UpDeconv:
	default:
		return fmt.Errorf("Invalid config: unsupported upsampling mode %v", int(c.UpMode))
	}

	return nil
}

func (c *Config) blended(depth int) bool {
	for _, l := range c.BlendLayers {
		if l == depth {
			return true
		}
	}
	return false
}

func (c *Config) String() string {
	return fmt.Sprintf("img=%v mask=%v alpha=%v mode=%v norm=%v act=%v/%v en=%v de=%v blend=%v",
		c.ImageChannels, c.MaskChannels, c.AlphaChannels, c.UpMode, c.Norm, c.EncoderAct, c.DecoderAct,
		c.EncoderChannels, c.DecoderKernels, c.BlendLayers)
}
