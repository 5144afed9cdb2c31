package imgutil

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"
	"github.com/sugarme/gotch/vision"
)

// ToTensor converts an image to a float [3 H W] tensor in [0, 1].
func ToTensor(img image.Image) *ts.Tensor {
	data, h, w := planarRGB(img)
	return ts.MustOfSlice(data).MustView([]int64{3, int64(h), int64(w)}, true)
}

// MaskToTensor converts a mask image to a float [1 H W] tensor of 0/1.
// Pixels with luminance >= threshold are missing (1).
func MaskToTensor(mask image.Image, threshold float64) *ts.Tensor {
	data, h, w := planarMask(mask, threshold)
	return ts.MustOfSlice(data).MustView([]int64{1, int64(h), int64(w)}, true)
}

// FromTensor converts a [C H W] or [1 C H W] tensor in [0, 1] to an image.
func FromTensor(x *ts.Tensor) (*image.NRGBA, error) {
	size := x.MustSize()
	if len(size) == 4 && size[0] == 1 {
		size = size[1:]
	}
	if len(size) != 3 {
		return nil, fmt.Errorf("Expected [C H W] tensor. Got shape %v", x.MustSize())
	}

	return fromPlanar(x.Float64Values(), int(size[0]), int(size[1]), int(size[2]))
}

// Load loads an image file as a float [3 H W] tensor in [0, 1], resized to
// w x h when both are positive.
func Load(filename string, w, h int) (*ts.Tensor, error) {
	ext := filepath.Ext(filename)
	if w <= 0 && h <= 0 && (ext == ".png" || ext == ".jpg" || ext == ".jpeg") {
		return loadVision(filename)
	}

	img, err := ReadImage(filename)
	if err != nil {
		return nil, err
	}
	if w > 0 && h > 0 {
		img = Resize(img, w, h)
	}

	return ToTensor(img), nil
}

func loadVision(filename string) (*ts.Tensor, error) {
	x, err := vision.Load(filename)
	if err != nil {
		return nil, err
	}

	switch c := x.MustSize()[0]; {
	case c == 1:
		x = x.MustRepeat([]int64{3, 1, 1}, true)
	case c > 3:
		x = x.MustNarrow(0, 0, 3, true)
	}

	return x.MustTotype(gotch.Float, true).MustDiv1(ts.FloatScalar(255.0), true), nil
}

// LoadMask loads a mask file as a float [1 H W] tensor of 0/1.
func LoadMask(filename string, w, h int, threshold float64) (*ts.Tensor, error) {
	mask, err := ReadImage(filename)
	if err != nil {
		return nil, err
	}
	if w > 0 && h > 0 {
		mask = ResizeMask(mask, w, h)
	}

	return MaskToTensor(mask, threshold), nil
}

// ApplyMask zeroes missing pixels: img * (1 - mask).
func ApplyMask(img, mask *ts.Tensor) *ts.Tensor {
	keep := mask.MustMul1(ts.FloatScalar(-1), false).MustAdd1(ts.FloatScalar(1), true)
	out := img.MustMul(keep, false)
	keep.MustDrop()

	return out
}

// Save writes a [C H W] or [1 C H W] tensor in [0, 1] to an image file.
// The format follows the file suffix (png, jpg, tga, bmp).
func Save(x *ts.Tensor, filename string) error {
	img := x
	if size := x.MustSize(); len(size) == 4 {
		if size[0] != 1 {
			return fmt.Errorf("Expected batch size 1. Got shape %v", size)
		}
		img = x.MustView(size[1:], false)
		defer img.MustDrop()
	}

	u8 := img.MustClip(ts.FloatScalar(0), ts.FloatScalar(1), false).MustMul1(ts.FloatScalar(255), true).MustTotype(gotch.Uint8, true)
	defer u8.MustDrop()

	return vision.Save(u8, filename)
}
