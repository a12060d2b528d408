package dropout

import (
	"math/rand/v2"

	"github.com/matzehuels/cutout/pkg/errors"
	"github.com/matzehuels/cutout/pkg/raster"
)

// Name is the transform name used in serialized configurations.
const Name = "CoarseDropout"

// Targets an invocation transforms.
const (
	TargetImage     = "image"
	TargetMask      = "mask"
	TargetKeypoints = "keypoints"
)

// Supported targets and dtypes.
var (
	Targets = []string{TargetImage, TargetMask, TargetKeypoints}
	DTypes  = []raster.DType{raster.Uint8, raster.Float32}
)

// Config holds the normalized parameters of a [CoarseDropout].
type Config struct {
	// NumHoles is the range the hole count is drawn from. Low must be >= 1.
	NumHoles IntRange

	// HoleHeight and HoleWidth are the ranges hole extents are drawn from,
	// either in pixels or as fractions of the image dimension.
	HoleHeight SizeRange
	HoleWidth  SizeRange

	// Fill is written into image holes.
	Fill Fill

	// MaskFill is written into mask holes. Nil leaves the mask unchanged.
	MaskFill *Fill
}

// DefaultConfig returns one 8x8 hole filled with 0 and no mask fill.
func DefaultConfig() Config {
	return Config{
		NumHoles:   IntRange{Low: 1, High: 1},
		HoleHeight: Pixels(8, 8),
		HoleWidth:  Pixels(8, 8),
		Fill:       Constant(0),
	}
}

// Validate checks every range and fill.
func (c Config) Validate() error {
	if err := c.NumHoles.Validate("num_holes_range", 1); err != nil {
		return err
	}
	if err := c.HoleHeight.Validate("hole_height_range"); err != nil {
		return err
	}
	if err := c.HoleWidth.Validate("hole_width_range"); err != nil {
		return err
	}
	if err := c.Fill.Validate(); err != nil {
		return err
	}
	if c.MaskFill != nil {
		if err := c.MaskFill.Validate(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidFill, err, "mask_fill_value")
		}
	}
	return nil
}

// CoarseDropout drops rectangular regions out of an image and, consistently,
// out of its mask and keypoints. A CoarseDropout holds no mutable state and
// is safe for concurrent use as long as each goroutine passes its own
// random source.
type CoarseDropout struct {
	cfg Config
}

// New validates cfg and returns the transform.
func New(cfg Config) (*CoarseDropout, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &CoarseDropout{cfg: cfg}, nil
}

// Config returns the transform's configuration.
func (t *CoarseDropout) Config() Config { return t.cfg }

// Params are the per-invocation parameters shared by every target.
type Params struct {
	Height int     `json:"height"`
	Width  int     `json:"width"`
	Holes  HoleSet `json:"holes"`
}

// Params samples the holes for a height x width image.
func (t *CoarseDropout) Params(height, width int, rng *rand.Rand) (Params, error) {
	holes, err := Sample(height, width, t.cfg.NumHoles, t.cfg.HoleHeight, t.cfg.HoleWidth, rng)
	if err != nil {
		return Params{}, err
	}
	return Params{Height: height, Width: width, Holes: holes}, nil
}

// Input is the set of targets for one invocation. Image is required; Mask
// and Keypoints are optional.
type Input struct {
	Image     *raster.Raster
	Mask      *raster.Raster
	Keypoints []Keypoint
}

// Result holds the transformed targets and the holes that produced them.
type Result struct {
	Image     *raster.Raster
	Mask      *raster.Raster
	Keypoints []Keypoint
	Params    Params
}

// Apply samples holes from the image's dimensions and applies them to every
// target. Sampling happens before any fill draws from rng.
func (t *CoarseDropout) Apply(in Input, rng *rand.Rand) (Result, error) {
	if in.Image == nil {
		return Result{}, errors.New(errors.ErrCodeInvalidInput, "image is required")
	}
	p, err := t.Params(in.Image.Height(), in.Image.Width(), rng)
	if err != nil {
		return Result{}, err
	}
	return t.ApplyWithParams(in, p, rng)
}

// ApplyWithParams applies previously sampled params to every target. It is
// the seam that keeps image, mask and keypoints consistent when they are
// processed separately.
func (t *CoarseDropout) ApplyWithParams(in Input, p Params, rng *rand.Rand) (Result, error) {
	if in.Image == nil {
		return Result{}, errors.New(errors.ErrCodeInvalidInput, "image is required")
	}
	img, err := ApplyToImage(in.Image, p.Holes, t.cfg.Fill, rng)
	if err != nil {
		return Result{}, err
	}

	res := Result{Image: img, Mask: in.Mask, Params: p}
	if in.Mask != nil {
		if res.Mask, err = ApplyToMask(in.Mask, p.Holes, t.cfg.MaskFill, rng); err != nil {
			return Result{}, err
		}
	}
	if in.Keypoints != nil {
		res.Keypoints = FilterKeypoints(in.Keypoints, p.Holes)
	}
	return res, nil
}

// TransformArgs returns the constructor arguments by name, in the form
// used by serialized pipeline definitions.
func (t *CoarseDropout) TransformArgs() map[string]any {
	args := map[string]any{
		"num_holes_range":   [2]int{t.cfg.NumHoles.Low, t.cfg.NumHoles.High},
		"hole_height_range": sizeArg(t.cfg.HoleHeight),
		"hole_width_range":  sizeArg(t.cfg.HoleWidth),
		"fill_value":        t.cfg.Fill,
		"mask_fill_value":   nil,
	}
	if t.cfg.MaskFill != nil {
		args["mask_fill_value"] = *t.cfg.MaskFill
	}
	return args
}

func sizeArg(s SizeRange) any {
	if s.Kind == SizeFraction {
		return [2]float64{s.Fraction.Low, s.Fraction.High}
	}
	return [2]int{s.Pixels.Low, s.Pixels.High}
}
