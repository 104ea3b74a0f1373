package config

import (
	"fmt"
	"net/url"
)

type DbConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DbName   string `mapstructure:"db-name"`
	Address  string `mapstructure:"address"`
}

func (cfg *DbConfig) Validate() error {
	if cfg.Username == "" {
		return fmt.Errorf("missing db username")
	}
	if cfg.Password == "" {
		return fmt.Errorf("missing db password")
	}
	if cfg.DbName == "" {
		return fmt.Errorf("missing db name")
	}
	if cfg.Address == "" {
		return fmt.Errorf("missing db address")
	}
	u, err := url.Parse(cfg.Address)
	if err != nil {
		return fmt.Errorf("invalid db address: %w", err)
	}
	if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
		return fmt.Errorf("invalid db address scheme %q", u.Scheme)
	}

	return nil
}
