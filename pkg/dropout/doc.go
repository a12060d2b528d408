// Package dropout implements coarse dropout: a randomized occlusion
// augmentation that cuts rectangular holes out of an image and applies the
// very same holes to the image's mask and keypoints.
//
// # Overview
//
// One invocation has two steps:
//
//  1. Sample: [Sample] draws a [HoleSet] from the image dimensions and the
//     configured ranges.
//  2. Apply: [ApplyToImage], [ApplyToMask] and [FilterKeypoints] consume that
//     one HoleSet, so every target is occluded in exactly the same places.
//
// [CoarseDropout] wraps both steps behind a validated [Config]:
//
//	t, err := dropout.New(dropout.Config{
//	    NumHoles:   dropout.IntRange{Low: 1, High: 4},
//	    HoleHeight: dropout.Fraction(0.1, 0.25),
//	    HoleWidth:  dropout.Pixels(8, 32),
//	    Fill:       dropout.Random(),
//	})
//	res, err := t.Apply(dropout.Input{Image: img, Mask: mask}, dropout.NewRand(42))
//
// # Size Ranges
//
// Hole heights and widths come from a [SizeRange], which is either absolute
// ([Pixels]) or relative ([Fraction]):
//
//   - Pixels(lo, hi): the upper bound is clamped to the image dimension, then
//     the size is drawn uniformly from [lo, hi]. A lower bound larger than
//     the image is an INVALID_RANGE error.
//   - Fraction(lo, hi): a fraction f is drawn uniformly from [lo, hi] and the
//     size is floor(dimension * f).
//
// Zero-sized holes are legal. They occlude nothing and contain no keypoints.
//
// # Fills
//
// A [Fill] is one of three strategies fixed at configuration time: a
// constant broadcast to every channel ([Constant]), one value per channel
// ([PerChannel]), or independent noise per element ([Random]). The mask has
// its own optional fill; a nil mask fill leaves the mask untouched.
//
// # Determinism
//
// All randomness comes from the *rand.Rand passed by the caller. Sampling
// draws the hole count, then for each hole its height, width, left edge and
// top edge. [NewRand] builds the generator for a seed, so a logged seed
// reproduces the exact holes.
//
// # Errors
//
// Invalid ranges and fills fail with INVALID_RANGE or INVALID_FILL. Holes
// that do not fit a buffer and per-channel fills of the wrong length fail
// with SHAPE_MISMATCH; nothing is clipped or broadcast silently.
package dropout
