package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vsrlabs/positions-indexer/internal/config"
)

const (
	defaultConfigFileName = "config.yml"
)

var (
	cfgPath string
	rootCmd = &cobra.Command{
		Use:          "positions-indexer",
		Short:        "Indexes vote-escrow positions and serves them over HTTP",
		SilenceUsage: true,
	}
)

func Setup() error {
	homePath, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	defaultConfigPath := getDefaultConfigFile(homePath, defaultConfigFileName)

	rootCmd.AddCommand(StartServerCmd())
	rootCmd.AddCommand(PositionsCmd())
	rootCmd.AddCommand(EpochInfoCmd())
	rootCmd.AddCommand(SupplyCmd())
	rootCmd.AddCommand(LockedCmd())
	rootCmd.AddCommand(AccountCmd())
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath, fmt.Sprintf("config file (default %s)", defaultConfigPath))
	if err := rootCmd.Execute(); err != nil {
		return err
	}

	return nil
}

func getDefaultConfigFile(homePath, filename string) string {
	return filepath.Join(homePath, filename)
}

func GetConfigPath() string {
	return cfgPath
}

// loadConfig reads the config file and applies its log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.New(GetConfigPath())
	if err != nil {
		return nil, fmt.Errorf("error while loading config file %s: %w", GetConfigPath(), err)
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(level)
	log.Debug().Str("config", GetConfigPath()).Msg("Config loaded")
	return cfg, nil
}
