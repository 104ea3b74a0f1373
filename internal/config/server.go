package config

import (
	"fmt"
	"net"
	"strconv"
)

const (
	defaultServerHost  = "0.0.0.0"
	defaultServerPort  = 3000
	defaultMetricsHost = "0.0.0.0"
	defaultMetricsPort = 2112
)

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

func (cfg *ServerConfig) Validate() error {
	if err := validatePort(cfg.Port); err != nil {
		return err
	}
	if net.ParseIP(cfg.Host) == nil {
		return fmt.Errorf("invalid host %q", cfg.Host)
	}
	return nil
}

func (cfg *ServerConfig) Addr() string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}

type MetricsConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

func (cfg *MetricsConfig) Validate() error {
	if err := validatePort(cfg.Port); err != nil {
		return err
	}
	if net.ParseIP(cfg.Host) == nil {
		return fmt.Errorf("invalid host %q", cfg.Host)
	}
	return nil
}

func (cfg *MetricsConfig) Addr() string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}

func validatePort(port int) error {
	if port < 1024 || port > 65535 {
		return fmt.Errorf("port %d must be between 1024 and 65535", port)
	}
	return nil
}
