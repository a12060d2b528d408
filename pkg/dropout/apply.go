package dropout

import (
	"math/rand/v2"

	"github.com/matzehuels/cutout/pkg/errors"
	"github.com/matzehuels/cutout/pkg/raster"
)

// ApplyToImage returns a copy of img with every hole overwritten by fill.
//
// Holes are written in order, so where two holes overlap the later one wins
// (this only matters for random fills). The result has the shape and dtype of
// img and never shares memory with it. rng is only consulted for random
// fills and may be nil otherwise.
func ApplyToImage(img *raster.Raster, holes HoleSet, fill Fill, rng *rand.Rand) (*raster.Raster, error) {
	if img == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "image is required")
	}
	if err := fill.Validate(); err != nil {
		return nil, err
	}
	if err := checkHoles(img, holes, "image"); err != nil {
		return nil, err
	}

	out := img.Clone()
	for _, h := range holes {
		if err := fill.fillHole(out, h, rng); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ApplyToMask applies holes to a mask. A nil fill is an explicit opt-out: the
// input mask is returned as is and no holes are written.
func ApplyToMask(mask *raster.Raster, holes HoleSet, fill *Fill, rng *rand.Rand) (*raster.Raster, error) {
	if fill == nil {
		return mask, nil
	}
	if mask == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "mask is required when a mask fill is set")
	}
	if err := fill.Validate(); err != nil {
		return nil, err
	}
	if err := checkHoles(mask, holes, "mask"); err != nil {
		return nil, err
	}

	out := mask.Clone()
	for _, h := range holes {
		if err := fill.fillHole(out, h, rng); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FilterKeypoints returns the keypoints that lie outside every hole, in
// their original order. Keypoints are matched with [Hole.Contains].
func FilterKeypoints[P Point](keypoints []P, holes HoleSet) []P {
	out := make([]P, 0, len(keypoints))
	for _, kp := range keypoints {
		x, y := kp.XY()
		if !holes.Contains(x, y) {
			out = append(out, kp)
		}
	}
	return out
}

// checkHoles fails fast when a hole does not fit inside r.
func checkHoles(r *raster.Raster, holes HoleSet, target string) error {
	for i, h := range holes {
		if !h.Within(r.Height(), r.Width()) {
			return errors.New(errors.ErrCodeShapeMismatch,
				"hole %d %s does not fit %s of size %dx%d", i, h, target, r.Height(), r.Width())
		}
	}
	return nil
}
