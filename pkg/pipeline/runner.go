package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cutout/pkg/cache"
	"github.com/matzehuels/cutout/pkg/dropout"
	"github.com/matzehuels/cutout/pkg/errors"
	imgio "github.com/matzehuels/cutout/pkg/io"
	"github.com/matzehuels/cutout/pkg/observability"
	"github.com/matzehuels/cutout/pkg/raster"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it so that holes are sampled and cached the same way.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store job results. Multiple goroutines can safely use the same Runner
// with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL applies to cached params. Zero means DefaultParamsTTL.
	TTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		TTL:    DefaultParamsTTL,
	}
}

// Execute runs the complete load → sample → apply → save pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	start := time.Now()
	result, err := r.execute(ctx, opts)
	observability.Pipeline().OnJobComplete(ctx, time.Since(start), err)
	return result, err
}

func (r *Runner) execute(ctx context.Context, opts Options) (*Result, error) {
	t, err := dropout.New(opts.Transform)
	if err != nil {
		return nil, err
	}
	result := &Result{}
	logger := opts.Logger.With("image", opts.Image)

	// Stage 1: Load
	loadStart := time.Now()
	in, err := LoadInput(opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Stats.LoadTime = time.Since(loadStart)
	h, w := in.Image.Height(), in.Image.Width()
	logger.Debug("loaded inputs",
		"height", h,
		"width", w,
		"channels", in.Image.Channels(),
		"keypoints", len(in.Keypoints),
		"duration", result.Stats.LoadTime)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 2: Sample
	sampleStart := time.Now()
	var p dropout.Params
	if opts.Params != "" {
		if p, err = ReplayParams(opts.Params, h, w); err != nil {
			return nil, fmt.Errorf("replay: %w", err)
		}
		result.CacheInfo.Replayed = true
	} else {
		if p, result.CacheInfo.ParamsHit, err = r.Params(ctx, t, h, w, opts.Seed, opts.Refresh); err != nil {
			return nil, fmt.Errorf("sample: %w", err)
		}
	}
	result.Params = p
	result.Stats.SampleTime = time.Since(sampleStart)
	logger.Info("sampled holes",
		"holes", len(p.Holes),
		"area", p.Holes.Area(),
		"cached", result.CacheInfo.ParamsHit,
		"replayed", result.CacheInfo.Replayed)

	// Stage 3: Apply
	applyStart := time.Now()
	out, err := r.Apply(ctx, t, in, p, FillRand(opts.Seed))
	if err != nil {
		return nil, fmt.Errorf("apply: %w", err)
	}
	result.Image, result.Mask, result.Keypoints = out.Image, out.Mask, out.Keypoints
	result.Dropped = len(in.Keypoints) - len(out.Keypoints)
	result.Stats.ApplyTime = time.Since(applyStart)
	logger.Debug("applied holes",
		"dropped_keypoints", result.Dropped,
		"duration", result.Stats.ApplyTime)

	// Stage 4: Save
	saveStart := time.Now()
	if result.Outputs, err = save(opts, result); err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}
	result.Stats.SaveTime = time.Since(saveStart)
	logger.Info("wrote outputs", "files", len(result.Outputs), "duration", result.Stats.Total())

	return result, nil
}

// LoadInput reads the image, mask and keypoint files named by opts. The mask
// must match the image's height and width.
func LoadInput(opts Options) (dropout.Input, error) {
	var in dropout.Input
	var err error
	if in.Image, err = imgio.LoadImage(opts.Image, opts.loadOptions()); err != nil {
		return in, err
	}
	if opts.Mask != "" {
		// Masks keep their integer labels.
		if in.Mask, err = imgio.LoadImage(opts.Mask, imgio.LoadOptions{}); err != nil {
			return in, err
		}
		if in.Mask.Height() != in.Image.Height() || in.Mask.Width() != in.Image.Width() {
			return in, errors.New(errors.ErrCodeShapeMismatch,
				"mask is %dx%d but image is %dx%d",
				in.Mask.Height(), in.Mask.Width(), in.Image.Height(), in.Image.Width())
		}
	}
	if opts.Keypoints != "" {
		if in.Keypoints, err = imgio.ImportKeypoints(opts.Keypoints); err != nil {
			return in, err
		}
	}
	return in, nil
}

// ReplayParams reads params from path and checks they were sampled for an
// image of the given size.
func ReplayParams(path string, height, width int) (dropout.Params, error) {
	p, err := imgio.ImportParams(path)
	if err != nil {
		return p, err
	}
	if p.Height != height || p.Width != width {
		return p, errors.New(errors.ErrCodeShapeMismatch,
			"params were sampled for %dx%d, image is %dx%d", p.Height, p.Width, height, width)
	}
	return p, nil
}

// Params returns the holes for a height x width image under t and seed,
// taking them from the cache when possible. The second return value reports
// a cache hit. refresh skips the lookup but still stores the result.
func (r *Runner) Params(ctx context.Context, t *dropout.CoarseDropout, height, width int, seed uint64, refresh bool) (dropout.Params, bool, error) {
	hooks := observability.Cache()
	key := r.ParamsKey(t, height, width, seed)

	if !refresh {
		if p, ok := r.cachedParams(ctx, key, height, width); ok {
			hooks.OnCacheHit(ctx, keyTypeParams)
			return p, true, nil
		}
		hooks.OnCacheMiss(ctx, keyTypeParams)
	}

	start := time.Now()
	p, err := t.Params(height, width, SampleRand(seed))
	observability.Pipeline().OnSample(ctx, len(p.Holes), time.Since(start), err)
	if err != nil {
		return dropout.Params{}, false, err
	}

	var buf bytes.Buffer
	if err := imgio.WriteParams(p, &buf); err == nil {
		if err := r.Cache.Set(ctx, key, buf.Bytes(), r.ttl()); err != nil {
			r.Logger.Warn("cache write failed", "key", key, "err", err)
		} else {
			hooks.OnCacheSet(ctx, keyTypeParams, buf.Len())
		}
	}
	return p, false, nil
}

func (r *Runner) cachedParams(ctx context.Context, key string, height, width int) (dropout.Params, bool) {
	var data []byte
	var hit bool
	err := cache.RetryWithBackoff(ctx, func() error {
		var err error
		data, hit, err = r.Cache.Get(ctx, key)
		return err
	})
	if err != nil {
		r.Logger.Warn("cache lookup failed", "key", key, "err", err)
		return dropout.Params{}, false
	}
	if !hit {
		return dropout.Params{}, false
	}
	p, err := imgio.ReadParams(bytes.NewReader(data))
	if err != nil || p.Height != height || p.Width != width {
		r.Logger.Debug("discarding unreadable cache entry", "key", key, "err", err)
		return dropout.Params{}, false
	}
	return p, true
}

// Apply applies p to every target of in, reporting each target to the
// pipeline hooks. rng supplies random fills.
func (r *Runner) Apply(ctx context.Context, t *dropout.CoarseDropout, in dropout.Input, p dropout.Params, rng *rand.Rand) (dropout.Result, error) {
	if in.Image == nil {
		return dropout.Result{}, errors.New(errors.ErrCodeInvalidInput, "image is required")
	}
	hooks := observability.Pipeline()
	cfg := t.Config()
	res := dropout.Result{Params: p}

	start := time.Now()
	img, err := dropout.ApplyToImage(in.Image, p.Holes, cfg.Fill, rng)
	hooks.OnApply(ctx, dropout.TargetImage, time.Since(start), err)
	if err != nil {
		return dropout.Result{}, err
	}
	res.Image = img

	if in.Mask != nil {
		start = time.Now()
		mask, err := dropout.ApplyToMask(in.Mask, p.Holes, cfg.MaskFill, rng)
		hooks.OnApply(ctx, dropout.TargetMask, time.Since(start), err)
		if err != nil {
			return dropout.Result{}, err
		}
		res.Mask = mask
	}

	if in.Keypoints != nil {
		start = time.Now()
		res.Keypoints = dropout.FilterKeypoints(in.Keypoints, p.Holes)
		hooks.OnApply(ctx, dropout.TargetKeypoints, time.Since(start), nil)
		hooks.OnKeypointsDropped(ctx, len(in.Keypoints)-len(res.Keypoints))
	}
	return res, nil
}

// Encode returns the PNG encoding of out, the result of applying the params
// stored under paramsKey to an input whose bytes hash to inputHash. Encoded
// outputs are cached; the second return value reports a hit.
func (r *Runner) Encode(ctx context.Context, paramsKey, inputHash, target string, out *raster.Raster) ([]byte, bool, error) {
	key := r.Keyer.ArtifactKey(paramsKey, cache.ArtifactKeyOpts{
		InputHash: inputHash,
		Target:    target,
		Format:    "png",
	})
	hooks := observability.Cache()
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		hooks.OnCacheHit(ctx, target)
		return data, true, nil
	}
	hooks.OnCacheMiss(ctx, target)

	data, err := imgio.EncodePNG(out)
	if err != nil {
		return nil, false, err
	}
	if err := r.Cache.Set(ctx, key, data, r.ttl()); err == nil {
		hooks.OnCacheSet(ctx, target, len(data))
	}
	return data, false, nil
}

// ParamsKey returns the cache key of the params Params would use.
func (r *Runner) ParamsKey(t *dropout.CoarseDropout, height, width int, seed uint64) string {
	return r.Keyer.ParamsKey(cache.ParamsKeyOpts{
		Height:     height,
		Width:      width,
		ConfigHash: ConfigHash(t),
		Seed:       seed,
	})
}

func save(opts Options, res *Result) ([]string, error) {
	var written []string
	if err := imgio.SaveImage(opts.Output, res.Image); err != nil {
		return written, err
	}
	written = append(written, opts.Output)

	if res.Mask != nil && opts.MaskOutput != "" {
		if err := imgio.SaveImage(opts.MaskOutput, res.Mask); err != nil {
			return written, err
		}
		written = append(written, opts.MaskOutput)
	}
	if opts.Keypoints != "" && opts.KeypointsOutput != "" {
		if err := imgio.ExportKeypoints(res.Keypoints, opts.KeypointsOutput); err != nil {
			return written, err
		}
		written = append(written, opts.KeypointsOutput)
	}
	if opts.ParamsOutput != "" {
		if err := imgio.ExportParams(res.Params, opts.ParamsOutput); err != nil {
			return written, err
		}
		written = append(written, opts.ParamsOutput)
	}
	return written, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) ttl() time.Duration {
	if r.TTL <= 0 {
		return DefaultParamsTTL
	}
	return r.TTL
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
