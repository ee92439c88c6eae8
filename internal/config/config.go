// Package config loads the ambient configuration for the storage
// abstraction layer (spec.md §6.4) using viper, the configuration library
// the storage-service reference example loads its own server config with.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the set of switches and parameters the core recognises, per
// spec.md §6.4. It holds no index/object service endpoints; those
// backends are passed to store.New.
type Config struct {
	// UseMetadataCache: if false, the three metadata caches (C3) are
	// pass-through.
	UseMetadataCache bool `mapstructure:"use_metadata_cache"`

	// GCEnabled: if true, deletes route to the GC enqueue interface;
	// else they happen synchronously.
	GCEnabled bool `mapstructure:"gc_enabled"`

	// TieredEnabled: multipart uploads use composite objects rather
	// than separate part objects.
	TieredEnabled bool `mapstructure:"tiered_enabled"`

	// CacheSize is the max entry count per metadata cache (C3).
	CacheSize int `mapstructure:"cache_size"`

	// GCSubject is the NATS subject deletion jobs are published to
	// when GCEnabled is true.
	GCSubject string `mapstructure:"gc_subject"`

	// GCNatsURL is the NATS server URL used by the GC enqueue
	// interface.
	GCNatsURL string `mapstructure:"gc_nats_url"`

	// OperationTimeout bounds how long a single index/object service
	// call is awaited before the call returns a Transport error, a
	// local liveness guard layered on top of the infinite-wait
	// contract spec.md §5 describes for the underlying services.
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`

	// Epoch seeds the monotonic object-ID generator (internal/ids).
	Epoch uint64 `mapstructure:"epoch"`

	// MinPartSize is the minimum size a non-last multipart part may
	// have (spec.md §4.6.4 step 2).
	MinPartSize int64 `mapstructure:"min_part_size"`
}

// Defaults returns the configuration defaults.
func Defaults() Config {
	return Config{
		UseMetadataCache: true,
		GCEnabled:        true,
		TieredEnabled:    false,
		CacheSize:        100_000,
		GCSubject:        "sal.gc.delete",
		GCNatsURL:        "nats://127.0.0.1:4222",
		OperationTimeout: 30 * time.Second,
		Epoch:            1,
		MinPartSize:      5 << 20,
	}
}

// Load reads configuration from the given file path (if non-empty),
// environment variables prefixed SAL_, and falls back to Defaults() for
// anything unset.
func Load(path string) (Config, error) {
	cfg := Defaults()

	v := viper.New()
	v.SetEnvPrefix("SAL")
	v.AutomaticEnv()

	v.SetDefault("use_metadata_cache", cfg.UseMetadataCache)
	v.SetDefault("gc_enabled", cfg.GCEnabled)
	v.SetDefault("tiered_enabled", cfg.TieredEnabled)
	v.SetDefault("cache_size", cfg.CacheSize)
	v.SetDefault("gc_subject", cfg.GCSubject)
	v.SetDefault("gc_nats_url", cfg.GCNatsURL)
	v.SetDefault("operation_timeout", cfg.OperationTimeout)
	v.SetDefault("epoch", cfg.Epoch)
	v.SetDefault("min_part_size", cfg.MinPartSize)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}
