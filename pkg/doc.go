// Package pkg provides the libraries behind cutout, a coarse dropout
// augmentation tool.
//
// # Overview
//
// Coarse dropout cuts random rectangular holes out of an image. A mask and
// keypoints processed with the same call receive the same holes, so labels
// stay consistent with the pixels they describe.
//
// The typical data flow:
//
//	image file + mask + keypoints
//	         ↓
//	    [io] package (decode into rasters, read keypoint JSON)
//	         ↓
//	    [dropout] package (sample holes, fill image and mask, drop keypoints)
//	         ↓
//	    [io] package (encode outputs)
//
// [pipeline] runs this flow for the CLI and the HTTP service and caches the
// sampled holes through [cache].
//
// # Quick Start
//
//	t, _ := dropout.New(dropout.Config{
//	    NumHoles:   dropout.IntRange{Low: 1, High: 4},
//	    HoleHeight: dropout.Fraction(0.1, 0.25),
//	    HoleWidth:  dropout.Fraction(0.1, 0.25),
//	    Fill:       dropout.Random(),
//	})
//	img, _ := io.LoadImage("photo.jpg", io.LoadOptions{})
//	res, _ := t.Apply(dropout.Input{Image: img}, dropout.NewRand(42))
//	_ = io.SaveImage("photo_cutout.jpg", res.Image)
//
// # Main Packages
//
// [dropout] - Hole sampling, fills and the transform itself.
//
// [raster] - Dense uint8 and float32 pixel buffers with 2-D or 3-D shape.
//
// [io] - Image, params and keypoint file formats.
//
// [config] - YAML/TOML configuration with CUTOUT_ environment overrides.
//
// [cache] - File, Redis and no-op caches for sampled params.
//
// [pipeline] - Single-image and batch orchestration.
//
// [observability] - Hooks for metrics and tracing.
//
// [errors] - Coded errors shared by every package.
//
// [dropout]: https://pkg.go.dev/github.com/matzehuels/cutout/pkg/dropout
// [raster]: https://pkg.go.dev/github.com/matzehuels/cutout/pkg/raster
// [io]: https://pkg.go.dev/github.com/matzehuels/cutout/pkg/io
// [config]: https://pkg.go.dev/github.com/matzehuels/cutout/pkg/config
// [cache]: https://pkg.go.dev/github.com/matzehuels/cutout/pkg/cache
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/cutout/pkg/pipeline
// [observability]: https://pkg.go.dev/github.com/matzehuels/cutout/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/cutout/pkg/errors
package pkg
