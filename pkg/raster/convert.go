package raster

import (
	"image"
	"image/color"
	"math"

	"github.com/matzehuels/cutout/pkg/errors"
)

// ConvertOptions controls [FromImage].
type ConvertOptions struct {
	// DType selects the element type. Float32 rasters hold values in [0, 1].
	// Zero means Uint8.
	DType DType

	// KeepAlpha keeps the alpha channel, producing 4 channels for color images.
	KeepAlpha bool
}

// FromImage converts a decoded image into a raster. Gray and Gray16 images
// become 2D rasters; everything else becomes a 3-channel RGB raster (RGBA
// with KeepAlpha).
func FromImage(img image.Image, opts ConvertOptions) (*Raster, error) {
	dtype := opts.DType
	if dtype == 0 {
		dtype = Uint8
	}
	b := img.Bounds()
	h, w := b.Dy(), b.Dx()

	channels := 3
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		channels = 0
	default:
		if opts.KeepAlpha {
			channels = 4
		}
	}

	r, err := New(dtype, h, w, channels)
	if err != nil {
		return nil, err
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.At(b.Min.X+x, b.Min.Y+y)
			if channels == 0 {
				g := color.Gray16Model.Convert(c).(color.Gray16)
				r.Set(y, x, 0, scale16(g.Y, dtype))
				continue
			}
			n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
			r.Set(y, x, 0, scale16(n.R, dtype))
			r.Set(y, x, 1, scale16(n.G, dtype))
			r.Set(y, x, 2, scale16(n.B, dtype))
			if channels == 4 {
				r.Set(y, x, 3, scale16(n.A, dtype))
			}
		}
	}
	return r, nil
}

func scale16(v uint16, dtype DType) float64 {
	if dtype == Float32 {
		return float64(v) / math.MaxUint16
	}
	return float64(v >> 8)
}

// ToImage converts r to an 8-bit image. 2D rasters become *image.Gray,
// 3- and 4-channel rasters become *image.NRGBA. Float32 values are clamped
// to [0, 1] before scaling.
func ToImage(r *Raster) (image.Image, error) {
	h, w := r.Height(), r.Width()
	switch {
	case r.Channels() == 1:
		img := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.Pix[y*img.Stride+x] = to8(r.At(y, x, 0), r.DType())
			}
		}
		return img, nil
	case r.Channels() == 3 || r.Channels() == 4:
		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := y*img.Stride + x*4
				img.Pix[i+0] = to8(r.At(y, x, 0), r.DType())
				img.Pix[i+1] = to8(r.At(y, x, 1), r.DType())
				img.Pix[i+2] = to8(r.At(y, x, 2), r.DType())
				img.Pix[i+3] = 0xff
				if r.Channels() == 4 {
					img.Pix[i+3] = to8(r.At(y, x, 3), r.DType())
				}
			}
		}
		return img, nil
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "cannot encode a %d-channel raster as an image", r.Channels())
}

func to8(v float64, dtype DType) uint8 {
	if dtype == Uint8 {
		return uint8(v)
	}
	return uint8(math.Round(max(0, min(v, 1)) * math.MaxUint8))
}
