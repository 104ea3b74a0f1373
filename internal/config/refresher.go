package config

import (
	"errors"
	"time"
)

const (
	defaultRefreshInterval     = 5 * time.Minute
	defaultMaxImmediateRetries = 3
	defaultRefreshBackoff      = 30 * time.Second
	defaultHistoryRetention    = 16 * time.Minute
)

type RefresherConfig struct {
	Interval            time.Duration `mapstructure:"interval"`
	MaxImmediateRetries int           `mapstructure:"max-immediate-retries"`
	Backoff             time.Duration `mapstructure:"backoff"`
	HistoryRetention    time.Duration `mapstructure:"history-retention"`
}

func DefaultRefresherConfig() *RefresherConfig {
	return &RefresherConfig{
		Interval:            defaultRefreshInterval,
		MaxImmediateRetries: defaultMaxImmediateRetries,
		Backoff:             defaultRefreshBackoff,
		HistoryRetention:    defaultHistoryRetention,
	}
}

func (cfg *RefresherConfig) Validate() error {
	if cfg.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	if cfg.MaxImmediateRetries < 0 {
		return errors.New("max-immediate-retries must not be negative")
	}
	if cfg.Backoff <= 0 {
		return errors.New("backoff must be positive")
	}
	// history retention falls back to the default window
	if cfg.HistoryRetention <= 0 {
		cfg.HistoryRetention = defaultHistoryRetention
	}

	return nil
}

const defaultEpochsPollingInterval = time.Hour

type EpochsConfig struct {
	PollingInterval time.Duration `mapstructure:"polling-interval"`
}

func (cfg *EpochsConfig) Validate() error {
	if cfg.PollingInterval <= 0 {
		cfg.PollingInterval = defaultEpochsPollingInterval
	}
	return nil
}

const defaultOwnersCacheSize = 500_000

type OwnersConfig struct {
	CacheSize int `mapstructure:"cache-size"`
}

func (cfg *OwnersConfig) Validate() error {
	if cfg.CacheSize <= 0 {
		return errors.New("cache-size must be positive")
	}
	return nil
}
