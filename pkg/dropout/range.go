package dropout

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/matzehuels/cutout/pkg/errors"
)

// IntRange is an inclusive integer interval.
type IntRange struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// Validate checks Low <= High and Low >= minimum.
func (r IntRange) Validate(name string, minimum int) error {
	return errors.ValidateIntRange(name, r.Low, r.High, minimum)
}

// draw returns a uniform integer in [Low, High].
func (r IntRange) draw(rng *rand.Rand) int {
	return r.Low + rng.IntN(r.High-r.Low+1)
}

// FracRange is an inclusive interval of fractions in [0, 1].
type FracRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Validate checks Low <= High and both lie in [0, 1].
func (r FracRange) Validate(name string) error {
	return errors.ValidateFracRange(name, r.Low, r.High)
}

// SizeKind tells how a [SizeRange] is interpreted.
type SizeKind uint8

const (
	// SizePixels means absolute sizes in pixels.
	SizePixels SizeKind = iota + 1
	// SizeFraction means sizes relative to the image dimension.
	SizeFraction
)

func (k SizeKind) String() string {
	switch k {
	case SizePixels:
		return "pixels"
	case SizeFraction:
		return "fraction"
	}
	return "unknown"
}

// SizeRange is the range a hole height or width is drawn from. Exactly one
// of Pixels and Fraction is meaningful, selected by Kind.
type SizeRange struct {
	Kind     SizeKind
	Pixels   IntRange
	Fraction FracRange
}

// Pixels returns an absolute size range [lo, hi] in pixels.
func Pixels(lo, hi int) SizeRange {
	return SizeRange{Kind: SizePixels, Pixels: IntRange{Low: lo, High: hi}}
}

// Fraction returns a size range [lo, hi] relative to the image dimension.
func Fraction(lo, hi float64) SizeRange {
	return SizeRange{Kind: SizeFraction, Fraction: FracRange{Low: lo, High: hi}}
}

// Validate checks the active interval.
func (s SizeRange) Validate(name string) error {
	switch s.Kind {
	case SizePixels:
		return s.Pixels.Validate(name, 0)
	case SizeFraction:
		return s.Fraction.Validate(name)
	}
	return errors.New(errors.ErrCodeInvalidRange, "%s has no size kind", name)
}

// Bounds returns the interval as two float64 values regardless of kind.
func (s SizeRange) Bounds() (float64, float64) {
	if s.Kind == SizeFraction {
		return s.Fraction.Low, s.Fraction.High
	}
	return float64(s.Pixels.Low), float64(s.Pixels.High)
}

func (s SizeRange) String() string {
	if s.Kind == SizeFraction {
		return fmt.Sprintf("(%g, %g)", s.Fraction.Low, s.Fraction.High)
	}
	return fmt.Sprintf("(%d, %d)", s.Pixels.Low, s.Pixels.High)
}

// draw samples one hole extent along an image dimension of length dim.
//
// Pixel ranges have their upper bound clamped to dim. A lower bound above
// dim leaves an empty interval and is reported as INVALID_RANGE.
func (s SizeRange) draw(name string, dim int, rng *rand.Rand) (int, error) {
	switch s.Kind {
	case SizePixels:
		hi := min(s.Pixels.High, dim)
		if s.Pixels.Low > hi {
			return 0, errors.New(errors.ErrCodeInvalidRange,
				"%s low value %d exceeds image dimension %d", name, s.Pixels.Low, dim)
		}
		return IntRange{Low: s.Pixels.Low, High: hi}.draw(rng), nil
	case SizeFraction:
		f := s.Fraction.Low + rng.Float64()*(s.Fraction.High-s.Fraction.Low)
		return int(math.Floor(float64(dim) * f)), nil
	}
	return 0, errors.New(errors.ErrCodeInvalidRange, "%s has no size kind", name)
}
