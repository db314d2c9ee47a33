package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AggregationConfig tunes the fan-out of roster and detail fetches.
type AggregationConfig struct {
	MaxConcurrency int           `mapstructure:"maxConcurrency"`
	FetchTimeout   time.Duration `mapstructure:"fetchTimeout"`
}

func DefaultAggregationConfig() AggregationConfig {
	return AggregationConfig{
		MaxConcurrency: 8,
		FetchTimeout:   5 * time.Second,
	}
}

type AggregationConfigHolder struct {
	current atomic.Value // holds AggregationConfig
}

// NewStaticAggregationConfigHolder returns a holder that never reloads.
func NewStaticAggregationConfigHolder(cfg AggregationConfig) *AggregationConfigHolder {
	holder := &AggregationConfigHolder{}
	holder.current.Store(withDefaults(cfg))
	return holder
}

func NewAggregationConfigHolder() (*AggregationConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("aggregation")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/notewall")
	v.AddConfigPath(".")

	v.SetEnvPrefix("NOTEWALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultAggregationConfig()
	v.SetDefault("aggregation.maxConcurrency", defaults.MaxConcurrency)
	v.SetDefault("aggregation.fetchTimeout", defaults.FetchTimeout)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg AggregationConfig
	if err := v.UnmarshalKey("aggregation", &cfg); err != nil {
		return nil, err
	}
	if err := validateAggregationConfig(cfg); err != nil {
		return nil, err
	}

	holder := &AggregationConfigHolder{}
	holder.current.Store(cfg)

	if fileLoaded {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated AggregationConfig
			if err := v.UnmarshalKey("aggregation", &updated); err != nil {
				log.Printf("[aggregation-config] reload failed: %v", err)
				return
			}
			if err := validateAggregationConfig(updated); err != nil {
				log.Printf("[aggregation-config] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[aggregation-config] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

func (h *AggregationConfigHolder) Get() AggregationConfig {
	if h == nil {
		return DefaultAggregationConfig()
	}
	cfg, ok := h.current.Load().(AggregationConfig)
	if !ok {
		return DefaultAggregationConfig()
	}
	return cfg
}

func withDefaults(cfg AggregationConfig) AggregationConfig {
	defaults := DefaultAggregationConfig()
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaults.MaxConcurrency
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaults.FetchTimeout
	}
	return cfg
}

func validateAggregationConfig(cfg AggregationConfig) error {
	if cfg.MaxConcurrency <= 0 {
		return errors.New("aggregation.maxConcurrency must be positive")
	}
	if cfg.FetchTimeout <= 0 {
		return errors.New("aggregation.fetchTimeout must be positive")
	}
	return nil
}
