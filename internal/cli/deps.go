package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"velolab/internal/cache"
	"velolab/internal/service"
	"velolab/internal/store"
)

// openStore opens the chart database named by the config
func openStore() (*store.DB, error) {
	path, err := cfg.StorePath()
	if err != nil {
		return nil, err
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	logger.Debug("store opened", zap.String("path", path))
	return db, nil
}

// openCache connects to Redis when the cache is enabled. A nil cache with a
// nil error means caching is off.
func openCache(ctx context.Context) (*cache.RedisCache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(ctx, cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB, cfg.Cache.TTL)
	if err != nil {
		return nil, err
	}
	logger.Debug("cache connected", zap.String("addr", cfg.Cache.Addr))
	return rc, nil
}

// newAnalyzer wires the optional backends into an analyzer
func newAnalyzer(db *store.DB, rc *cache.RedisCache) *service.Analyzer {
	var opts []service.Option
	if db != nil {
		opts = append(opts, service.WithStore(db))
	}
	if rc != nil {
		opts = append(opts, service.WithCache(rc))
	}
	return service.NewAnalyzer(cfg, logger, opts...)
}

// readJSON decodes path, or stdin when path is "-"
func readJSON(path string, stdin io.Reader, v any) error {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
