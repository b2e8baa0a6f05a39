package kv

import (
	"context"
	"fmt"
)

// Options selects and configures a backend for Open.
type Options struct {
	Backend    string
	FileDir    string
	SQLitePath string
	Redis      RedisOptions
}

// Open returns the Store for opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendFile, "":
		return NewFile(opts.FileDir)
	case BackendSQLite:
		return OpenSQLite(opts.SQLitePath)
	case BackendRedis:
		return OpenRedis(ctx, opts.Redis)
	default:
		return nil, fmt.Errorf("kv: unknown backend %q", opts.Backend)
	}
}
