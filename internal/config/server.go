package config

import (
	"fmt"
	"net"
	"time"
)

const defaultMaxRequestBodyBytes = 1 << 20

type ServerConfig struct {
	Host                string        `mapstructure:"host"`
	Port                int           `mapstructure:"port"`
	ReadTimeout         time.Duration `mapstructure:"read-timeout"`
	WriteTimeout        time.Duration `mapstructure:"write-timeout"`
	IdleTimeout         time.Duration `mapstructure:"idle-timeout"`
	MaxRequestBodyBytes int64         `mapstructure:"max-request-body-bytes"`
}

func (cfg *ServerConfig) Validate() error {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("server port must be between 0 and 65535 (inclusive)")
	}

	ip := net.ParseIP(cfg.Host)
	if ip == nil {
		return fmt.Errorf("invalid server host: %v", cfg.Host)
	}

	if cfg.ReadTimeout <= 0 {
		return fmt.Errorf("read-timeout must be positive")
	}

	if cfg.WriteTimeout <= 0 {
		return fmt.Errorf("write-timeout must be positive")
	}

	if cfg.IdleTimeout <= 0 {
		return fmt.Errorf("idle-timeout must be positive")
	}

	if cfg.MaxRequestBodyBytes <= 0 {
		cfg.MaxRequestBodyBytes = defaultMaxRequestBodyBytes
	}

	return nil
}

// IsLoopback reports whether the server only accepts local connections
func (cfg *ServerConfig) IsLoopback() bool {
	ip := net.ParseIP(cfg.Host)
	return ip != nil && ip.IsLoopback()
}

func (cfg *ServerConfig) Addr() string {
	return net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
}
