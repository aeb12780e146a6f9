package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// NameCacheOff disables the on-disk name cache when used as NAME_CACHE_PATH.
const NameCacheOff = "off"

const maxIngestConcurrency = 64

// Config holds all CLI settings, populated from environment variables.
type Config struct {
	LogLevel  string
	LogFormat string

	// eBird hotspot page lookups.
	EBirdHotspotURL string
	EBirdTimeout    time.Duration
	EBirdOffline    bool

	// Hotspot name caches.
	NameCacheSize int
	NameCachePath string // empty when disabled
	NameCacheTTL  time.Duration

	TaxonomyPath      string
	IngestConcurrency int
	MetricsFile       string
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is loaded first if present;
// variables already set in the environment take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	timeout, err := parseDuration("EBIRD_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		return nil, errors.New("invalid EBIRD_TIMEOUT: must be positive")
	}

	offline, err := strconv.ParseBool(sharedcfg.EnvOrDefault("EBIRD_OFFLINE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid EBIRD_OFFLINE: %w", err)
	}

	cacheSize, err := parsePositiveInt("NAME_CACHE_SIZE", 1000, 0)
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parseDuration("NAME_CACHE_TTL", "0s")
	if err != nil {
		return nil, err
	}
	if cacheTTL < 0 {
		return nil, errors.New("invalid NAME_CACHE_TTL: must not be negative")
	}

	concurrency, err := parsePositiveInt("INGEST_CONCURRENCY", 4, maxIngestConcurrency)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LogLevel:  sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),

		EBirdHotspotURL: sharedcfg.EnvOrDefault("EBIRD_HOTSPOT_URL", "https://ebird.org/hotspot"),
		EBirdTimeout:    timeout,
		EBirdOffline:    offline,

		NameCacheSize: cacheSize,
		NameCachePath: nameCachePath(),
		NameCacheTTL:  cacheTTL,

		TaxonomyPath:      os.Getenv("TAXONOMY_PATH"),
		IngestConcurrency: concurrency,
		MetricsFile:       os.Getenv("METRICS_FILE"),
	}

	if u, err := url.Parse(cfg.EBirdHotspotURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid EBIRD_HOTSPOT_URL: %q is not an http(s) URL", cfg.EBirdHotspotURL)
	}

	return cfg, nil
}

// nameCachePath defaults to a file under the user cache directory. When no
// cache directory can be determined the on-disk cache is disabled.
func nameCachePath() string {
	if v := os.Getenv("NAME_CACHE_PATH"); v != "" {
		if strings.EqualFold(v, NameCacheOff) {
			return ""
		}
		return v
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "ebird-barchart", "hotspots.db")
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// parsePositiveInt reads a positive integer, rejecting values above limit when
// limit is non-zero.
func parsePositiveInt(key string, fallback, limit int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q is not a positive integer", key, s)
	}
	if limit > 0 && n > limit {
		return 0, fmt.Errorf("invalid %s: %d exceeds %d", key, n, limit)
	}
	return n, nil
}
