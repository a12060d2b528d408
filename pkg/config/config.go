// Package config loads coarse dropout settings from YAML or TOML files and
// CUTOUT_ environment variables, and turns them into a validated
// [dropout.Config].
//
// A config file looks like:
//
//	num_holes_range: [1, 4]
//	hole_height_range: [0.1, 0.25]   # floats: fraction of the image height
//	hole_width_range: [8, 32]        # integers: pixels
//	fill_value: random
//	mask_fill_value: 0
//	seed: 42
//	cache:
//	  backend: file
//
// Environment variables override file values. Nested keys use a double
// underscore: CUTOUT_HOLE_WIDTH_RANGE=0.1,0.3 or CUTOUT_CACHE__BACKEND=redis.
package config

import (
	stderrors "errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/matzehuels/cutout/pkg/cache"
	"github.com/matzehuels/cutout/pkg/dropout"
	"github.com/matzehuels/cutout/pkg/errors"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "CUTOUT_"

// File mirrors the on-disk configuration. Range and fill fields stay
// untyped until [File.Transform] normalizes them, because the same key may
// hold integers (pixels), floats (fractions) or strings from the environment.
type File struct {
	NumHolesRange   any `koanf:"num_holes_range"`
	HoleHeightRange any `koanf:"hole_height_range"`
	HoleWidthRange  any `koanf:"hole_width_range"`
	FillValue       any `koanf:"fill_value"`
	MaskFillValue   any `koanf:"mask_fill_value"`

	// Deprecated single-value fields. See [NormalizeLegacy].
	MinHoles  any `koanf:"min_holes"`
	MaxHoles  any `koanf:"max_holes"`
	MinHeight any `koanf:"min_height"`
	MaxHeight any `koanf:"max_height"`
	MinWidth  any `koanf:"min_width"`
	MaxWidth  any `koanf:"max_width"`

	// Seed 0 means unset. The CLI and the service reject an explicit 0.
	Seed    uint64        `koanf:"seed"`
	Workers int           `koanf:"workers"`
	Cache   CacheSettings `koanf:"cache"`
	Server  ServerConfig  `koanf:"server"`
}

// CacheSettings selects the params cache backend.
type CacheSettings struct {
	Backend   string        `koanf:"backend"` // file|redis|none
	Dir       string        `koanf:"dir"`
	RedisAddr string        `koanf:"redis_addr"`
	TTL       time.Duration `koanf:"ttl"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr        string `koanf:"addr"`
	MaxUploadMB int    `koanf:"max_upload_mb"`
}

// Cache backends.
const (
	CacheFile  = cache.BackendFile
	CacheRedis = cache.BackendRedis
	CacheNone  = cache.BackendNone
)

// Default values.
const (
	DefaultWorkers     = 4
	DefaultAddr        = ":8080"
	DefaultMaxUploadMB = 32
	DefaultCacheTTL    = 24 * time.Hour
)

// Load merges the file at path (if any) with CUTOUT_ environment variables.
// A missing file is not an error; an empty path skips the file entirely.
func Load(path string) (*File, error) {
	k := koanf.New(".")
	if path != "" {
		if err := errors.ValidatePath(path); err != nil {
			return nil, err
		}
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "load config %s", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "load environment")
	}

	var f File
	if err := k.Unmarshal("", &f); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode config")
	}
	applyDefaults(&f)
	return &f, nil
}

// Parse decodes config bytes in the given format ("yaml" or "toml") without
// consulting the environment. It backs request bodies in the HTTP service.
func Parse(data []byte, format string) (*File, error) {
	var p koanf.Parser
	switch strings.ToLower(format) {
	case "yaml", "yml", "":
		p = yaml.Parser()
	case "toml":
		p = TOML()
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported config format %q", format)
	}
	k := koanf.New(".")
	if err := k.Load(rawBytes(data), p); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse %s config", format)
	}
	var f File
	if err := k.Unmarshal("", &f); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode config")
	}
	applyDefaults(&f)
	return &f, nil
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() *File {
	var f File
	applyDefaults(&f)
	return &f
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".toml":
		return TOML(), nil
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported config extension %q (want .yaml, .yml or .toml)", filepath.Ext(path))
}

// envKey maps CUTOUT_CACHE__REDIS_ADDR to cache.redis_addr.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func applyDefaults(f *File) {
	if f.Workers <= 0 {
		f.Workers = DefaultWorkers
	}
	if f.Cache.Backend == "" {
		f.Cache.Backend = CacheFile
	}
	if f.Cache.TTL == 0 {
		f.Cache.TTL = DefaultCacheTTL
	}
	if f.Server.Addr == "" {
		f.Server.Addr = DefaultAddr
	}
	if f.Server.MaxUploadMB <= 0 {
		f.Server.MaxUploadMB = DefaultMaxUploadMB
	}
}

// Transform normalizes legacy fields, decodes ranges and fills, and
// validates the result.
func (f *File) Transform() (dropout.Config, error) {
	cfg := dropout.DefaultConfig()

	numHoles := NormalizeLegacy(f.MinHoles, f.MaxHoles, f.NumHolesRange)
	if numHoles != nil {
		r, err := parseRange("num_holes_range", numHoles)
		if err != nil {
			return cfg, err
		}
		if r.frac {
			return cfg, errors.New(errors.ErrCodeInvalidRange, "num_holes_range must hold integers, got %v", numHoles)
		}
		cfg.NumHoles = dropout.IntRange{Low: int(r.lo), High: int(r.hi)}
	}

	var err error
	if v := NormalizeLegacy(f.MinHeight, f.MaxHeight, f.HoleHeightRange); v != nil {
		if cfg.HoleHeight, err = parseSizeRange("hole_height_range", v); err != nil {
			return cfg, err
		}
	}
	if v := NormalizeLegacy(f.MinWidth, f.MaxWidth, f.HoleWidthRange); v != nil {
		if cfg.HoleWidth, err = parseSizeRange("hole_width_range", v); err != nil {
			return cfg, err
		}
	}

	if f.FillValue != nil {
		if cfg.Fill, err = parseFill("fill_value", f.FillValue); err != nil {
			return cfg, err
		}
	}
	if f.MaskFillValue != nil {
		mf, err := parseFill("mask_fill_value", f.MaskFillValue)
		if err != nil {
			return cfg, err
		}
		if mf.Kind == dropout.FillRandom {
			return cfg, errors.New(errors.ErrCodeInvalidFill, "mask_fill_value cannot be random")
		}
		cfg.MaskFill = &mf
	}

	return cfg, cfg.Validate()
}
