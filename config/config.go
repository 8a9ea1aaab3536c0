// Package config handles application configuration.
//
// Configuration comes from a .conf file in the data directory, created with
// defaults on first run. The contract's own rules (admin, metadata, nonces)
// live in the ledger database, not here; this file covers only operational
// settings that can vary per installation.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds per-installation runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Token instance: the contract ID is derived from network + name.
	Token TokenConfig

	// Account-group policies
	Groups GroupsConfig

	// Logging
	Log LogConfig
}

// TokenConfig names the token instance this installation operates on.
type TokenConfig struct {
	Name string `conf:"token.name"`
}

// GroupsConfig locates the account-group policy file.
type GroupsConfig struct {
	File string `conf:"groups.file"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klingnet-token
//	macOS:   ~/Library/Application Support/KlingnetToken
//	Windows: %APPDATA%\KlingnetToken
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingnet-token"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "KlingnetToken")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "KlingnetToken")
		}
		return filepath.Join(home, "AppData", "Roaming", "KlingnetToken")
	default:
		return filepath.Join(home, ".klingnet-token")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// LedgerDir returns the ledger database directory.
func (c *Config) LedgerDir() string {
	return filepath.Join(c.NetworkDataDir(), "ledger")
}

// KeystoreDir returns the keystore directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.NetworkDataDir(), "keystore")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// GroupsFile returns the account-group policy file path. An explicit
// groups.file setting wins; otherwise the network data dir default.
func (c *Config) GroupsFile() string {
	if c.Groups.File != "" {
		return c.Groups.File
	}
	return filepath.Join(c.NetworkDataDir(), "groups.json")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "token.conf")
}
