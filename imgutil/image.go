package imgutil

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/chai2010/tiff"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// ReadImage reads image from file.
func ReadImage(filename string) (image.Image, error) {
	ext := filepath.Ext(filename)
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ext {
	case ".png", ".PNG":
		return png.Decode(f)
	case ".jpg", ".jpeg", ".JPG", ".JPEG":
		return jpeg.Decode(f)
	case ".tiff", ".tif", ".TIFF", ".TIF":
		return tiff.Decode(f)
	default:
		err = fmt.Errorf("Unsupported image format: %v", ext)
		return nil, err
	}
}

// SavePNG encodes img as png to filename.
func SavePNG(img image.Image, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// Resize resizes an RGB image to w x h with Lanczos filter.
func Resize(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// ResizeMask resizes a mask with nearest neighbour so it stays binary.
func ResizeMask(mask image.Image, w, h int) image.Image {
	b := mask.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return mask
	}
	return resize.Resize(uint(w), uint(h), mask, resize.NearestNeighbor)
}

// toNRGBA converts any image to *image.NRGBA anchored at (0, 0).
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	return dst
}

// Overlay highlights the missing pixels of img in red with 25% opacity.
// mask is read like MaskToTensor: bright pixels are missing.
func Overlay(img, mask image.Image) *image.RGBA {
	b := img.Bounds()
	rec := image.Rect(0, 0, b.Dx(), b.Dy())
	dst := image.NewRGBA(rec)
	draw.Draw(dst, rec, img, b.Min, draw.Src)

	mb := mask.Bounds()
	weight := image.NewAlpha(image.Rect(0, 0, mb.Dx(), mb.Dy()))
	for y := 0; y < mb.Dy(); y++ {
		for x := 0; x < mb.Dx(); x++ {
			g := color.GrayModel.Convert(mask.At(mb.Min.X+x, mb.Min.Y+y)).(color.Gray)
			weight.SetAlpha(x, y, color.Alpha{A: uint8(uint16(g.Y) * 64 / 255)})
		}
	}
	red := image.NewUniform(color.RGBA{R: 255, A: 255})
	draw.DrawMask(dst, rec, red, image.Point{}, weight, image.Point{}, draw.Over)

	return dst
}

// planarRGB returns [3][H][W] values in [0, 1] flattened channel first.
func planarRGB(img image.Image) (data []float32, h, w int) {
	n := toNRGBA(img)
	w, h = n.Bounds().Dx(), n.Bounds().Dy()
	plane := w * h
	data = make([]float32, 3*plane)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := n.PixOffset(x, y)
			j := y*w + x
			data[j] = float32(n.Pix[i]) / 255
			data[plane+j] = float32(n.Pix[i+1]) / 255
			data[2*plane+j] = float32(n.Pix[i+2]) / 255
		}
	}

	return data, h, w
}

// planarMask returns [H][W] values: 1 where luminance >= threshold (in [0, 1]), else 0.
func planarMask(mask image.Image, threshold float64) (data []float32, h, w int) {
	b := mask.Bounds()
	w, h = b.Dx(), b.Dy()
	data = make([]float32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g := color.GrayModel.Convert(mask.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			if float64(g.Y)/255 >= threshold {
				data[y*w+x] = 1
			}
		}
	}

	return data, h, w
}

// fromPlanar builds an image from channel-first values in [0, 1].
// c must be 1 (gray) or 3 (RGB). Values are clamped.
func fromPlanar(data []float64, c, h, w int) (*image.NRGBA, error) {
	if c != 1 && c != 3 {
		return nil, fmt.Errorf("Expected 1 or 3 channels. Got %v", c)
	}
	if len(data) != c*h*w {
		return nil, fmt.Errorf("Expected %v values. Got %v", c*h*w, len(data))
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	plane := h * w
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			j := y*w + x
			r := toUint8(data[j])
			g, b := r, r
			if c == 3 {
				g = toUint8(data[plane+j])
				b = toUint8(data[2*plane+j])
			}
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 255})
		}
	}

	return img, nil
}

func toUint8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}
