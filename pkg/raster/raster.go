package raster

import (
	"fmt"
	"image"
	"math"
	"slices"

	"github.com/matzehuels/cutout/pkg/errors"
)

// DType identifies the element type of a [Raster].
type DType uint8

const (
	// Uint8 stores one byte per element with values in [0, 255].
	Uint8 DType = iota + 1
	// Float32 stores one float32 per element, conventionally in [0, 1].
	Float32
)

// String returns the numpy-style name of the dtype.
func (d DType) String() string {
	switch d {
	case Uint8:
		return "uint8"
	case Float32:
		return "float32"
	default:
		return fmt.Sprintf("dtype(%d)", uint8(d))
	}
}

// ParseDType parses "uint8" or "float32".
func ParseDType(s string) (DType, error) {
	switch s {
	case "uint8":
		return Uint8, nil
	case "float32":
		return Float32, nil
	}
	return 0, errors.New(errors.ErrCodeUnsupported, "unsupported dtype %q (must be uint8 or float32)", s)
}

// Raster is a dense height x width x channels buffer stored channel-last.
//
// A raster created with zero channels is two-dimensional: it holds one value
// per pixel and reports NDim() == 2. Exactly one of the backing slices is
// non-nil, chosen by the dtype.
type Raster struct {
	dtype    DType
	height   int
	width    int
	channels int
	planar   bool

	pix8  []uint8
	pix32 []float32
}

// New allocates a zeroed raster. channels == 0 creates a 2D raster.
func New(dtype DType, height, width, channels int) (*Raster, error) {
	if height <= 0 || width <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "raster dimensions must be positive, got %dx%d", height, width)
	}
	if channels < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "channel count cannot be negative, got %d", channels)
	}
	r := &Raster{dtype: dtype, height: height, width: width, channels: channels}
	if channels == 0 {
		r.channels = 1
		r.planar = true
	}
	n := height * width * r.channels
	switch dtype {
	case Uint8:
		r.pix8 = make([]uint8, n)
	case Float32:
		r.pix32 = make([]float32, n)
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported dtype %s", dtype)
	}
	return r, nil
}

// FromUint8 wraps pix as a uint8 raster without copying.
func FromUint8(height, width, channels int, pix []uint8) (*Raster, error) {
	r, err := header(Uint8, height, width, channels, len(pix))
	if err != nil {
		return nil, err
	}
	r.pix8 = pix
	return r, nil
}

// FromFloat32 wraps pix as a float32 raster without copying.
func FromFloat32(height, width, channels int, pix []float32) (*Raster, error) {
	r, err := header(Float32, height, width, channels, len(pix))
	if err != nil {
		return nil, err
	}
	r.pix32 = pix
	return r, nil
}

func header(dtype DType, height, width, channels, n int) (*Raster, error) {
	if height <= 0 || width <= 0 || channels < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid raster shape %dx%dx%d", height, width, channels)
	}
	r := &Raster{dtype: dtype, height: height, width: width, channels: channels}
	if channels == 0 {
		r.channels = 1
		r.planar = true
	}
	if want := height * width * r.channels; n != want {
		return nil, errors.New(errors.ErrCodeShapeMismatch, "buffer has %d elements, shape %v needs %d", n, r.Shape(), want)
	}
	return r, nil
}

func (r *Raster) DType() DType  { return r.dtype }
func (r *Raster) Height() int   { return r.height }
func (r *Raster) Width() int    { return r.width }
func (r *Raster) Channels() int { return r.channels }

// NDim returns 2 for single-channel planar rasters and 3 otherwise.
func (r *Raster) NDim() int {
	if r.planar {
		return 2
	}
	return 3
}

// Shape returns (height, width) or (height, width, channels).
func (r *Raster) Shape() []int {
	if r.planar {
		return []int{r.height, r.width}
	}
	return []int{r.height, r.width, r.channels}
}

// Bounds returns the pixel rectangle (0, 0)-(width, height).
func (r *Raster) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.width, r.height)
}

// Uint8 returns the backing slice of a uint8 raster, or nil.
func (r *Raster) Uint8() []uint8 { return r.pix8 }

// Float32 returns the backing slice of a float32 raster, or nil.
func (r *Raster) Float32() []float32 { return r.pix32 }

// Clone returns a deep copy that shares no memory with r.
func (r *Raster) Clone() *Raster {
	c := *r
	c.pix8 = slices.Clone(r.pix8)
	c.pix32 = slices.Clone(r.pix32)
	return &c
}

// SameShape reports whether o has the same shape and dtype as r.
func (r *Raster) SameShape(o *Raster) bool {
	return r.dtype == o.dtype && slices.Equal(r.Shape(), o.Shape())
}

// Equal reports whether o has the same shape, dtype and elements as r.
func (r *Raster) Equal(o *Raster) bool {
	return r.SameShape(o) && slices.Equal(r.pix8, o.pix8) && slices.Equal(r.pix32, o.pix32)
}

func (r *Raster) offset(y, x, c int) int {
	return (y*r.width+x)*r.channels + c
}

// At returns the element at row y, column x, channel c as float64.
func (r *Raster) At(y, x, c int) float64 {
	i := r.offset(y, x, c)
	if r.dtype == Uint8 {
		return float64(r.pix8[i])
	}
	return float64(r.pix32[i])
}

// Set stores v at row y, column x, channel c. For uint8 rasters v is
// truncated toward zero.
func (r *Raster) Set(y, x, c int, v float64) {
	i := r.offset(y, x, c)
	if r.dtype == Uint8 {
		r.pix8[i] = uint8(v)
		return
	}
	r.pix32[i] = float32(v)
}

// CheckRect returns a SHAPE_MISMATCH error unless rect lies inside the
// raster and has non-negative size.
func (r *Raster) CheckRect(rect image.Rectangle) error {
	if rect.Min.X < 0 || rect.Min.Y < 0 || rect.Max.X > r.width || rect.Max.Y > r.height ||
		rect.Min.X > rect.Max.X || rect.Min.Y > rect.Max.Y {
		return errors.New(errors.ErrCodeShapeMismatch, "region %v outside raster bounds %v", rect, r.Bounds())
	}
	return nil
}

// CheckValue returns an INVALID_FILL error if v cannot be stored in the
// raster's dtype.
func (r *Raster) CheckValue(v float64) error {
	if math.IsNaN(v) && r.dtype == Uint8 {
		return errors.New(errors.ErrCodeInvalidFill, "NaN cannot be stored in a uint8 raster")
	}
	if r.dtype == Uint8 && (v < 0 || v > math.MaxUint8) {
		return errors.New(errors.ErrCodeInvalidFill, "value %g out of range for uint8 raster", v)
	}
	return nil
}

// FillRect overwrites every element in rect with values[c] for channel c.
// len(values) must equal the channel count.
func (r *Raster) FillRect(rect image.Rectangle, values []float64) error {
	if err := r.CheckRect(rect); err != nil {
		return err
	}
	if len(values) != r.channels {
		return errors.New(errors.ErrCodeShapeMismatch, "fill has %d values, raster has %d channels", len(values), r.channels)
	}
	for _, v := range values {
		if err := r.CheckValue(v); err != nil {
			return err
		}
	}
	if rect.Empty() {
		return nil
	}

	switch r.dtype {
	case Uint8:
		px := make([]uint8, r.channels)
		for c, v := range values {
			px[c] = uint8(v)
		}
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			row := r.pix8[r.offset(y, rect.Min.X, 0):r.offset(y, rect.Max.X, 0)]
			for i := 0; i < len(row); i += r.channels {
				copy(row[i:i+r.channels], px)
			}
		}
	case Float32:
		px := make([]float32, r.channels)
		for c, v := range values {
			px[c] = float32(v)
		}
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			row := r.pix32[r.offset(y, rect.Min.X, 0):r.offset(y, rect.Max.X, 0)]
			for i := 0; i < len(row); i += r.channels {
				copy(row[i:i+r.channels], px)
			}
		}
	}
	return nil
}

// FillRectFunc overwrites every element in rect with a value produced by
// next, called once per element in row-major, channel-last order. Values are
// stored without range checks; next must produce values valid for the dtype.
func (r *Raster) FillRectFunc(rect image.Rectangle, next func() float64) error {
	if err := r.CheckRect(rect); err != nil {
		return err
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		start, end := r.offset(y, rect.Min.X, 0), r.offset(y, rect.Max.X, 0)
		for i := start; i < end; i++ {
			if r.dtype == Uint8 {
				r.pix8[i] = uint8(next())
			} else {
				r.pix32[i] = float32(next())
			}
		}
	}
	return nil
}
