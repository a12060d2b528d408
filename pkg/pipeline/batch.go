package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/cutout/pkg/errors"
	imgio "github.com/matzehuels/cutout/pkg/io"
)

// BatchOptions control [Runner.Batch].
type BatchOptions struct {
	// Workers bounds concurrency. Zero means DefaultWorkers.
	Workers int
	// Seed is the base seed; job i uses JobSeed(Seed, i).
	Seed uint64
	// FailFast stops scheduling jobs after the first failure.
	FailFast bool
}

// JobResult summarizes one batch job.
type JobResult struct {
	Index     int
	Image     string
	Outputs   []string
	Seed      uint64
	Holes     int
	Dropped   int
	ParamsHit bool
	Duration  time.Duration
	Err       error
}

// BatchResult summarizes a batch.
type BatchResult struct {
	RunID     string
	Jobs      []JobResult
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// Batch runs jobs concurrently. Each job gets its own seed derived from
// opts.Seed and its index, so a batch is reproducible regardless of
// scheduling. Job failures are recorded in the result; the returned error is
// the context's error, or the first job error when FailFast is set.
func (r *Runner) Batch(ctx context.Context, jobs []Options, opts BatchOptions) (*BatchResult, error) {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Seed == 0 {
		opts.Seed = DefaultSeed
	}

	res := &BatchResult{
		RunID: uuid.NewString(),
		Jobs:  make([]JobResult, len(jobs)),
	}
	logger := r.Logger.With("run", res.RunID)
	logger.Info("starting batch", "jobs", len(jobs), "workers", opts.Workers)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	var mu sync.Mutex
	for i, job := range jobs {
		job.Seed = JobSeed(opts.Seed, i)
		if job.Logger == nil {
			job.Logger = logger
		}
		g.Go(func() error {
			jr := JobResult{Index: i, Image: job.Image, Seed: job.Seed}
			if err := gctx.Err(); err != nil {
				jr.Err = err
			} else {
				jobStart := time.Now()
				out, err := r.Execute(gctx, job)
				jr.Duration = time.Since(jobStart)
				if err != nil {
					jr.Err = err
				} else {
					jr.Outputs = out.Outputs
					jr.Holes = len(out.Params.Holes)
					jr.Dropped = out.Dropped
					jr.ParamsHit = out.CacheInfo.ParamsHit
				}
			}

			mu.Lock()
			res.Jobs[i] = jr
			if jr.Err != nil {
				res.Failed++
			} else {
				res.Succeeded++
			}
			mu.Unlock()

			if jr.Err != nil {
				logger.Error("job failed", "image", jr.Image, "err", jr.Err)
				if opts.FailFast {
					return jr.Err
				}
			}
			return nil
		})
	}

	err := g.Wait()
	res.Duration = time.Since(start)
	logger.Info("finished batch",
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"duration", res.Duration)
	if err == nil {
		err = ctx.Err()
	}
	return res, err
}

// DiscoverOptions describe a directory of inputs for [Discover].
type DiscoverOptions struct {
	InputDir  string
	OutputDir string

	// MaskDir and KeypointsDir hold optional companions named after each
	// image: <stem>.png for masks, <stem>.json for keypoints.
	MaskDir      string
	KeypointsDir string

	// SaveParams writes <stem>_params.json next to each output.
	SaveParams bool
}

// Discover builds one job per image file in opts.InputDir, sorted by name.
// Every job copies tmpl and fills in its paths. Outputs keep the input file
// name inside OutputDir.
func Discover(opts DiscoverOptions, tmpl Options) ([]Options, error) {
	if opts.InputDir == "" || opts.OutputDir == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "input and output directories are required")
	}
	if filepath.Clean(opts.InputDir) == filepath.Clean(opts.OutputDir) {
		return nil, errors.New(errors.ErrCodeInvalidPath, "output directory must differ from the input directory")
	}
	entries, err := os.ReadDir(opts.InputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "input directory %s", opts.InputDir)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read %s", opts.InputDir)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && imgio.IsImageFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	jobs := make([]Options, 0, len(names))
	stems := make(map[string]string, len(names))
	for _, name := range names {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		// Companion outputs are named by stem, so two images may not share one.
		if prev, ok := stems[stem]; ok {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"%s and %s share the name %q; rename one of them", prev, name, stem)
		}
		stems[stem] = name
		job := tmpl
		job.Image = filepath.Join(opts.InputDir, name)
		job.Output = filepath.Join(opts.OutputDir, name)
		job.Mask, job.MaskOutput = "", ""
		job.Keypoints, job.KeypointsOutput = "", ""
		job.ParamsOutput = ""

		if opts.MaskDir != "" {
			if p := filepath.Join(opts.MaskDir, stem+".png"); fileExists(p) {
				job.Mask = p
				job.MaskOutput = filepath.Join(opts.OutputDir, stem+suffixMask+".png")
			}
		}
		if opts.KeypointsDir != "" {
			if p := filepath.Join(opts.KeypointsDir, stem+".json"); fileExists(p) {
				job.Keypoints = p
				job.KeypointsOutput = filepath.Join(opts.OutputDir, stem+suffixKeypoints)
			}
		}
		if opts.SaveParams {
			job.ParamsOutput = filepath.Join(opts.OutputDir, stem+"_params.json")
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
