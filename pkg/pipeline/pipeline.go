// Package pipeline runs coarse dropout over files: load an image (plus an
// optional mask and keypoints), sample holes, apply them to every target and
// save the results.
//
// This package is shared by the CLI and the HTTP service so that both sample,
// cache and replay holes the same way.
//
// # Architecture
//
// One job has three stages:
//
//  1. Load: decode the image, mask and keypoint files
//  2. Sample: draw holes for the image size, or fetch them from the cache
//  3. Apply: occlude image and mask, filter keypoints, and save everything
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    Image:     "photo.jpg",
//	    Mask:      "photo_mask.png",
//	    Transform: cfg,
//	    Seed:      7,
//	})
//
// Batches of jobs run concurrently with [Runner.Batch].
//
// # Seeds
//
// Holes are sampled from dropout.NewRand(seed). Random fills draw from a
// second stream derived from the same seed, so a run that takes its holes
// from the cache produces the same pixels as the run that sampled them.
package pipeline

import (
	"io"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cutout/pkg/cache"
	"github.com/matzehuels/cutout/pkg/dropout"
	"github.com/matzehuels/cutout/pkg/errors"
	imgio "github.com/matzehuels/cutout/pkg/io"
	"github.com/matzehuels/cutout/pkg/raster"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultSeed is used when a job does not set a seed.
	DefaultSeed = uint64(42)

	// DefaultParamsTTL is how long sampled params stay in the cache.
	DefaultParamsTTL = 7 * 24 * time.Hour

	// DefaultWorkers is the batch concurrency.
	DefaultWorkers = 4

	// Suffixes for derived output names.
	suffixImage     = "_cutout"
	suffixMask      = "_mask"
	suffixKeypoints = "_keypoints.json"
)

// fillStream separates the fill generator from the sampling generator.
const fillStream = 0x9e3779b97f4a7c15

// Cache key types reported to the observability hooks.
const keyTypeParams = "params"

// =============================================================================
// Options - Job Configuration
// =============================================================================

// Options describe one job. File paths are local paths.
type Options struct {
	// Inputs
	Image     string `json:"image"`
	Mask      string `json:"mask,omitempty"`
	Keypoints string `json:"keypoints,omitempty"`
	Params    string `json:"params,omitempty"` // replay holes from a params file

	// Outputs. Empty image/mask/keypoint outputs are derived from Image.
	Output          string `json:"output,omitempty"`
	MaskOutput      string `json:"mask_output,omitempty"`
	KeypointsOutput string `json:"keypoints_output,omitempty"`
	ParamsOutput    string `json:"params_output,omitempty"`

	// Sampling. Seed 0 is reserved for "unset" and becomes DefaultSeed.
	Seed    uint64 `json:"seed,omitempty"`
	Refresh bool   `json:"refresh,omitempty"` // ignore cached params

	// Decoding
	AsFloat   bool `json:"as_float,omitempty"`
	KeepAlpha bool `json:"keep_alpha,omitempty"`

	// Runtime options (not serialized)
	Transform dropout.Config `json:"-"`
	Logger    *log.Logger    `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// SetDefaults fills in the seed, derived output paths and the logger.
func (o *Options) SetDefaults() {
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Output == "" && o.Image != "" {
		o.Output = derivePath(o.Image, suffixImage, "")
	}
	if o.Mask != "" && o.MaskOutput == "" && o.Output != "" {
		o.MaskOutput = derivePath(o.Output, suffixMask, ".png")
	}
	if o.Keypoints != "" && o.KeypointsOutput == "" && o.Output != "" {
		o.KeypointsOutput = derivePath(o.Output, "", suffixKeypoints)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks paths and the transform configuration.
func (o *Options) Validate() error {
	if o.Image == "" {
		return errors.New(errors.ErrCodeInvalidInput, "image is required")
	}
	for _, p := range []string{o.Image, o.Mask, o.Keypoints, o.Params, o.Output, o.MaskOutput, o.KeypointsOutput, o.ParamsOutput} {
		if p == "" {
			continue
		}
		if err := errors.ValidatePath(p); err != nil {
			return err
		}
	}
	if samePath(o.Image, o.Output) {
		return errors.New(errors.ErrCodeInvalidPath, "output %s would overwrite the input image", o.Output)
	}
	if o.Mask != "" && samePath(o.Mask, o.MaskOutput) {
		return errors.New(errors.ErrCodeInvalidPath, "mask output %s would overwrite the input mask", o.MaskOutput)
	}
	return o.Transform.Validate()
}

// ValidateAndSetDefaults applies defaults and validates. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.SetDefaults()
	if err := o.Validate(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

func (o *Options) loadOptions() imgio.LoadOptions {
	return imgio.LoadOptions{AsFloat: o.AsFloat, KeepAlpha: o.KeepAlpha}
}

// derivePath turns dir/name.ext into dir/name<suffix><ext>. An empty ext
// keeps the original extension.
func derivePath(path, suffix, ext string) string {
	orig := filepath.Ext(path)
	if ext == "" {
		ext = orig
	}
	return strings.TrimSuffix(path, orig) + suffix + ext
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return filepath.Clean(a) == filepath.Clean(b)
}

// =============================================================================
// Results
// =============================================================================

// Result contains the outputs of one job.
type Result struct {
	Params    dropout.Params
	Image     *raster.Raster
	Mask      *raster.Raster
	Keypoints []dropout.Keypoint

	// Dropped is the number of keypoints removed.
	Dropped int

	// Outputs lists the files written, in order.
	Outputs []string

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains job timings.
type Stats struct {
	LoadTime   time.Duration
	SampleTime time.Duration
	ApplyTime  time.Duration
	SaveTime   time.Duration
}

// Total returns the sum of all stages.
func (s Stats) Total() time.Duration {
	return s.LoadTime + s.SampleTime + s.ApplyTime + s.SaveTime
}

// CacheInfo tracks where the holes came from.
type CacheInfo struct {
	ParamsHit bool // holes came from the cache
	Replayed  bool // holes came from a params file
}

// =============================================================================
// Seeds
// =============================================================================

// SampleRand returns the generator holes are sampled from.
func SampleRand(seed uint64) *rand.Rand { return dropout.NewRand(seed) }

// FillRand returns the generator random fills draw from.
func FillRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed^fillStream, seed))
}

// ValidateSeed rejects an explicitly requested seed of 0, which every
// surface reserves to mean "unset".
func ValidateSeed(seed uint64) error {
	if seed == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "seed 0 is reserved to mean unset; use a non-zero seed")
	}
	return nil
}

// JobSeed derives the seed of the index-th job of a batch.
func JobSeed(base uint64, index int) uint64 {
	return base + uint64(index)
}

// ConfigHash fingerprints a transform configuration for cache keys.
func ConfigHash(t *dropout.CoarseDropout) string {
	h, err := cache.HashJSON(t.TransformArgs())
	if err != nil {
		// TransformArgs holds only numbers, strings and fills.
		panic(err)
	}
	return h
}
