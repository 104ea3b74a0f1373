package config

import (
	"fmt"
	"time"
)

const (
	defaultChainRPCAddr     = "https://api.mainnet-beta.solana.com"
	defaultChainTimeout     = 120 * time.Second
	defaultMaxRetryTimes    = 5
	defaultRetryInterval    = time.Second
	defaultBatchSize        = 100
	defaultChainParallelism = 4
)

// ChainConfig defines configuration for the ledger JSON-RPC client
type ChainConfig struct {
	RPCAddr       string        `mapstructure:"rpc-addr"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetryTimes uint          `mapstructure:"max-retry-times"`
	RetryInterval time.Duration `mapstructure:"retry-interval"`
	// BatchSize caps the number of keys of a single getMultipleAccounts call
	BatchSize   int `mapstructure:"batch-size"`
	Parallelism int `mapstructure:"parallelism"`
}

func DefaultChainConfig() *ChainConfig {
	return &ChainConfig{
		RPCAddr:       defaultChainRPCAddr,
		Timeout:       defaultChainTimeout,
		MaxRetryTimes: defaultMaxRetryTimes,
		RetryInterval: defaultRetryInterval,
		BatchSize:     defaultBatchSize,
		Parallelism:   defaultChainParallelism,
	}
}

func (cfg *ChainConfig) Validate() error {
	if cfg.RPCAddr == "" {
		return fmt.Errorf("rpc-addr is required")
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout should be positive")
	}
	if cfg.MaxRetryTimes <= 0 {
		return fmt.Errorf("max retry times should be positive")
	}
	if cfg.RetryInterval <= 0 {
		return fmt.Errorf("retry interval should be positive")
	}
	if cfg.BatchSize <= 0 || cfg.BatchSize > defaultBatchSize {
		return fmt.Errorf("batch size should be between 1 and %d", defaultBatchSize)
	}
	if cfg.Parallelism <= 0 {
		return fmt.Errorf("parallelism should be positive")
	}

	return nil
}
