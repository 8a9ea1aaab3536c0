package config

import (
	"fmt"
	"strings"
)

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if strings.TrimSpace(cfg.Token.Name) == "" {
		return fmt.Errorf("token.name must not be empty")
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be trace, debug, info, warn, or error")
	}

	return nil
}
