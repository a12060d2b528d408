package cache

import (
	"context"
	"fmt"
)

// Backend names accepted by [Open].
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Options select and configure a backend.
type Options struct {
	Backend   string
	Dir       string // file backend
	RedisAddr string // redis backend
	Prefix    string // redis key prefix
}

// Open returns the backend named by opts.Backend. An empty backend means
// the file cache.
func Open(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Backend {
	case BackendFile, "":
		if opts.Dir == "" {
			return nil, fmt.Errorf("file cache: directory is required")
		}
		return NewFileCache(opts.Dir)
	case BackendRedis:
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("redis cache: address is required")
		}
		return NewRedisCache(ctx, RedisOptions{Addr: opts.RedisAddr, Prefix: opts.Prefix})
	case BackendNone:
		return NewNullCache(), nil
	}
	return nil, fmt.Errorf("unknown cache backend %q (want file, redis or none)", opts.Backend)
}
