package dropout

import (
	"math/rand/v2"

	"github.com/matzehuels/cutout/pkg/errors"
)

// Sample draws the holes for one invocation on a height x width image.
//
// The hole count is uniform in numHoles. Each hole then draws its height,
// its width, its left edge and its top edge, in that order, so a generator
// seeded identically always yields the same HoleSet. Every hole fits inside
// the image; zero-sized holes are legal and have no visible effect.
func Sample(height, width int, numHoles IntRange, holeHeight, holeWidth SizeRange, rng *rand.Rand) (HoleSet, error) {
	if height <= 0 || width <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "image dimensions must be positive, got %dx%d", height, width)
	}
	if rng == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "random source is required")
	}
	if err := numHoles.Validate("num_holes_range", 1); err != nil {
		return nil, err
	}
	if err := holeHeight.Validate("hole_height_range"); err != nil {
		return nil, err
	}
	if err := holeWidth.Validate("hole_width_range"); err != nil {
		return nil, err
	}

	n := numHoles.draw(rng)
	holes := make(HoleSet, 0, n)
	for range n {
		hh, err := holeHeight.draw("hole_height_range", height, rng)
		if err != nil {
			return nil, err
		}
		hw, err := holeWidth.draw("hole_width_range", width, rng)
		if err != nil {
			return nil, err
		}

		x1 := rng.IntN(width - hw + 1)
		y1 := rng.IntN(height - hh + 1)
		holes = append(holes, Hole{X1: x1, Y1: y1, X2: x1 + hw, Y2: y1 + hh})
	}
	return holes, nil
}

// NewRand returns the generator used for a given seed. The PCG stream is
// derived from the seed the same way everywhere in cutout so that a seed
// printed in a log reproduces the exact holes.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
}
