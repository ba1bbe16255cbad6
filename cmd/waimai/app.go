package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"waimai-crawler/lib/chrono"
	"waimai-crawler/lib/citycode"
	"waimai-crawler/lib/kvcache"
	"waimai-crawler/lib/platforms/baidumap"
	"waimai-crawler/lib/platforms/meituan"
	"waimai-crawler/lib/restyutil"
	"waimai-crawler/lib/retry"
	"waimai-crawler/lib/telemetry"
	"waimai-crawler/services/archive"
	"waimai-crawler/services/archive/db"
	"waimai-crawler/services/resolver"

	"github.com/adrg/xdg"
	"golang.org/x/time/rate"
)

// app holds everything a command may need, built once from Config.
type app struct {
	cfg      Config
	cities   citycode.Table
	pipeline *resolver.Pipeline
	archive  *archive.Store

	closers []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func newApp(ctx context.Context, cfg Config, verbose bool) (*app, error) {
	tel := telemetry.SlogAPI{}
	a := &app{cfg: cfg}

	cities, err := citycode.Load(cfg.Cities)
	if err != nil {
		return nil, fmt.Errorf("load city table: %w", err)
	}
	a.cities = cities

	var cache kvcache.Cache = kvcache.Nop{}
	if !cfg.Cache.Disabled {
		ttl, err := duration("cache.ttl", cfg.Cache.TTL)
		if err != nil {
			return nil, err
		}
		badger, err := kvcache.OpenBadger(cfg.Cache.Dir, ttl)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		a.closers = append(a.closers, badger.Close)
		cache = badger
	}

	baiduTimeout, err := duration("baidu.timeout", cfg.Baidu.Timeout)
	if err != nil {
		return nil, err
	}
	if cfg.Baidu.AccessKey == "" {
		slog.WarnContext(ctx, "baidu.access_key is not set, geocoding will fail")
	}
	baiduOpts := baidumap.Options{
		SuggestUrl:  cfg.Baidu.SuggestUrl,
		GeocoderUrl: cfg.Baidu.GeocoderUrl,
		AccessKey:   cfg.Baidu.AccessKey,
		Timeout:     baiduTimeout,
	}

	meituanTimeout, err := duration("meituan.timeout", cfg.Meituan.Timeout)
	if err != nil {
		return nil, err
	}
	meituanOpts := meituan.Options{
		BaseUrl:           cfg.Meituan.BaseUrl,
		Timeout:           meituanTimeout,
		CloudflareBypass:  cfg.Meituan.CloudflareBypass,
		RequestsPerSecond: cfg.Meituan.RequestsPerSecond,
	}
	if cfg.Meituan.SharedRateLimit > 0 {
		meituanOpts.GeoHashLimiter = rate.NewLimiter(rate.Limit(cfg.Meituan.SharedRateLimit), 1)
	}

	if verbose {
		dumps := filepath.Join(xdg.StateHome, appName, "resty")
		baiduOpts.Output, err = restyutil.NewFilesystemOutput(filepath.Join(dumps, "baidumap"))
		if err != nil {
			return nil, err
		}
		meituanOpts.Output, err = restyutil.NewFilesystemOutput(filepath.Join(dumps, "meituan"))
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "dumping http exchanges", "dir", dumps)
	}

	platform, err := meituan.NewClient(meituanOpts, tel)
	if err != nil {
		return nil, err
	}

	minWait, err := duration("resolver.retry.min_wait", cfg.Resolver.Retry.MinWait)
	if err != nil {
		return nil, err
	}
	maxWait, err := duration("resolver.retry.max_wait", cfg.Resolver.Retry.MaxWait)
	if err != nil {
		return nil, err
	}

	a.pipeline = resolver.NewPipeline(
		cities,
		baidumap.NewClient(baiduOpts, tel),
		platform,
		resolver.Options{
			MaxSuggestions: cfg.Resolver.MaxSuggestions,
			Workers:        cfg.Resolver.Workers,
			Retry: retry.Policy{
				MaxAttempts: cfg.Resolver.Retry.MaxAttempts,
				MinWait:     minWait,
				MaxWait:     maxWait,
				Sleeper:     chrono.RealSleeper{},
			},
			Cache: cache,
			Clock: chrono.RealClock{},
		},
		tel,
	)

	if !cfg.Archive.Disabled {
		database, err := cfg.Archive.Database.OpenDB(db.Schema)
		if err != nil {
			return nil, fmt.Errorf("open archive: %w", err)
		}
		a.closers = append(a.closers, database.Close)
		store := archive.NewStore(database)
		a.archive = &store
	}

	return a, nil
}

// record archives a run, failures are only logged.
func (a *app) record(ctx context.Context, result resolver.Result) {
	if a.archive == nil {
		return
	}
	id, err := a.archive.Record(ctx, result)
	if err != nil {
		slog.WarnContext(ctx, "failed to archive run", "err", err)
		return
	}
	slog.DebugContext(ctx, "archived run", "id", id)
}

