package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type Config struct {
	Chain     ChainConfig     `mapstructure:"chain"`
	Programs  ProgramsConfig  `mapstructure:"programs"`
	Refresher RefresherConfig `mapstructure:"refresher"`
	Epochs    EpochsConfig    `mapstructure:"epochs"`
	Owners    OwnersConfig    `mapstructure:"owners"`
	Server    ServerConfig    `mapstructure:"server"`
	Db        *DbConfig       `mapstructure:"db"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	LogLevel  string          `mapstructure:"log-level"`
}

func (cfg *Config) Validate() error {
	if err := cfg.Chain.Validate(); err != nil {
		return fmt.Errorf("chain: %w", err)
	}
	if err := cfg.Programs.Validate(); err != nil {
		return fmt.Errorf("programs: %w", err)
	}
	if err := cfg.Refresher.Validate(); err != nil {
		return fmt.Errorf("refresher: %w", err)
	}
	if err := cfg.Epochs.Validate(); err != nil {
		return fmt.Errorf("epochs: %w", err)
	}
	if err := cfg.Owners.Validate(); err != nil {
		return fmt.Errorf("owners: %w", err)
	}
	if err := cfg.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	// db is optional
	if cfg.Db != nil {
		if err := cfg.Db.Validate(); err != nil {
			return fmt.Errorf("db: %w", err)
		}
	}
	if err := cfg.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if cfg.LogLevel != "" {
		if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
			return fmt.Errorf("invalid log-level %q: %w", cfg.LogLevel, err)
		}
	}

	return nil
}

// New loads the config file, applies environment overrides and validates it.
// Nested keys are overridden with "__" as separator, e.g. CHAIN__RPC-ADDR.
func New(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(cfgFile)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a config with every optional value filled in.
func Default() *Config {
	return &Config{
		Chain:     *DefaultChainConfig(),
		Programs:  *DefaultProgramsConfig(),
		Refresher: *DefaultRefresherConfig(),
		Epochs:    EpochsConfig{PollingInterval: defaultEpochsPollingInterval},
		Owners:    OwnersConfig{CacheSize: defaultOwnersCacheSize},
		Server:    ServerConfig{Host: defaultServerHost, Port: defaultServerPort},
		Metrics:   MetricsConfig{Host: defaultMetricsHost, Port: defaultMetricsPort},
		LogLevel:  "info",
	}
}
