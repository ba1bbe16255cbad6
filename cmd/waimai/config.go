package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
	"waimai-crawler/lib/configutil"
	configlibsql "waimai-crawler/lib/configutil/libsql"

	"dario.cat/mergo"
	"github.com/adrg/xdg"
)

const appName = "waimai-crawler"

type CacheConfig struct {
	Disabled bool   `json:"disabled" yaml:"disabled"`
	Dir      string `json:"dir" yaml:"dir"`
	TTL      string `json:"ttl" yaml:"ttl"`
}

type BaiduConfig struct {
	SuggestUrl  string `json:"suggest_url" yaml:"suggest_url"`
	GeocoderUrl string `json:"geocoder_url" yaml:"geocoder_url"`
	AccessKey   string `json:"access_key" yaml:"access_key"`
	Timeout     string `json:"timeout" yaml:"timeout"`
}

type MeituanConfig struct {
	BaseUrl           string  `json:"base_url" yaml:"base_url"`
	Timeout           string  `json:"timeout" yaml:"timeout"`
	CloudflareBypass  bool    `json:"cloudflare_bypass" yaml:"cloudflare_bypass"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	// SharedRateLimit is the geohash requests per second allowed across
	// every worker, 0 leaves geohash requests unlimited.
	SharedRateLimit float64 `json:"shared_rate_limit" yaml:"shared_rate_limit"`
}

type RetryConfig struct {
	MaxAttempts int    `json:"max_attempts" yaml:"max_attempts"`
	MinWait     string `json:"min_wait" yaml:"min_wait"`
	MaxWait     string `json:"max_wait" yaml:"max_wait"`
}

type ResolverConfig struct {
	MaxSuggestions int         `json:"max_suggestions" yaml:"max_suggestions"`
	Workers        int         `json:"workers" yaml:"workers"`
	Retry          RetryConfig `json:"retry" yaml:"retry"`
}

type ArchiveConfig struct {
	Disabled bool                `json:"disabled" yaml:"disabled"`
	Database configlibsql.Struct `json:"database" yaml:"database"`
}

type WebConfig struct {
	Addr        string `json:"addr" yaml:"addr"`
	CacheTTL    string `json:"cache_ttl" yaml:"cache_ttl"`
	CacheSize   int    `json:"cache_size" yaml:"cache_size"`
	AccessToken string `json:"access_token" yaml:"access_token"`
}

type Config struct {
	Cities    string         `json:"cities" yaml:"cities"`
	OutputDir string         `json:"output_dir" yaml:"output_dir"`
	Cache     CacheConfig    `json:"cache" yaml:"cache"`
	Baidu     BaiduConfig    `json:"baidu" yaml:"baidu"`
	Meituan   MeituanConfig  `json:"meituan" yaml:"meituan"`
	Resolver  ResolverConfig `json:"resolver" yaml:"resolver"`
	Archive   ArchiveConfig  `json:"archive" yaml:"archive"`
	Web       WebConfig      `json:"web" yaml:"web"`
}

func defaultConfig() Config {
	return Config{
		Cities:    "data/cities.csv",
		OutputDir: "results",
		Cache: CacheConfig{
			Dir: filepath.Join(xdg.CacheHome, appName),
			TTL: "168h",
		},
		Baidu: BaiduConfig{Timeout: "30s"},
		Meituan: MeituanConfig{
			Timeout:           "30s",
			RequestsPerSecond: 2,
		},
		Resolver: ResolverConfig{
			MaxSuggestions: 65,
			Workers:        4,
			Retry: RetryConfig{
				MaxAttempts: 5,
				MinWait:     "3s",
				MaxWait:     "4s",
			},
		},
		Archive: ArchiveConfig{
			Database: configlibsql.Struct{
				File: filepath.Join(xdg.DataHome, appName, "archive.db"),
			},
		},
		Web: WebConfig{
			Addr:      ":8080",
			CacheTTL:  "15m",
			CacheSize: 128,
		},
	}
}

// loadConfig reads `path` (and its .local override) and fills everything
// left unset from defaultConfig. A missing file is not an error.
func loadConfig(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, configutil.ErrNotFound) {
		slog.Debug("no config file found, using defaults", "path", path)
		err = nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	err = mergo.Merge(&cfg, defaultConfig())
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func duration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}
