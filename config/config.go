// Package config loads the gateway's YAML runtime configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"fundflow/observability/logging"
)

// Config captures the runtime settings for the gateway.
type Config struct {
	ListenAddress string         `yaml:"listen"`
	Node          NodeConfig     `yaml:"node"`
	Network       NetworkConfig  `yaml:"network"`
	Wallet        WalletConfig   `yaml:"wallet"`
	Sync          SyncConfig     `yaml:"sync"`
	DatabasePath  string         `yaml:"database_path"`
	Log           logging.Config `yaml:"log"`
	Telemetry     OtelConfig     `yaml:"telemetry"`
}

// NodeConfig describes the upstream JSON-RPC node.
type NodeConfig struct {
	URL               string  `yaml:"url"`
	AuthToken         string  `yaml:"auth_token"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// NetworkConfig identifies the target network and its explorer.
type NetworkConfig struct {
	Passphrase   string `yaml:"passphrase"`
	ExplorerBase string `yaml:"explorer_base"`
	ExplorerName string `yaml:"explorer_network"`
}

// WalletConfig controls the local signing key and spend guard.
type WalletConfig struct {
	// SeedEnv names the environment variable carrying the hex-encoded
	// 32-byte signing seed. Empty disables signing; reads still work.
	SeedEnv            string `yaml:"seed_env"`
	MinDonationBalance int64  `yaml:"min_donation_balance"`
}

// SyncConfig tunes the refresh loop and confirmation polling.
type SyncConfig struct {
	RefreshSeconds      int `yaml:"refresh_seconds"`
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	MaxPollAttempts     int `yaml:"max_poll_attempts"`
}

// OtelConfig selects the exported telemetry signals.
type OtelConfig struct {
	Endpoint    string `yaml:"endpoint"`
	Environment string `yaml:"environment"`
	Insecure    bool   `yaml:"insecure"`
	Traces      bool   `yaml:"traces"`
	Metrics     bool   `yaml:"metrics"`
}

// Load reads the YAML configuration from disk and applies defaults.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path == "" {
		return cfg, fmt.Errorf("config path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return finalize(cfg)
}

func defaults() Config {
	return Config{
		ListenAddress: ":8480",
		Node: NodeConfig{
			URL:               "http://localhost:8545",
			TimeoutSeconds:    15,
			RequestsPerSecond: 20,
		},
		Network: NetworkConfig{
			Passphrase:   "Test SDF Network ; September 2015",
			ExplorerBase: "https://stellar.expert/explorer",
			ExplorerName: "testnet",
		},
		Wallet: WalletConfig{MinDonationBalance: 1},
		Sync: SyncConfig{
			RefreshSeconds:      4,
			PollIntervalSeconds: 2,
			MaxPollAttempts:     150,
		},
		DatabasePath: "fundflow.db",
	}
}

func finalize(cfg Config) (Config, error) {
	base := defaults()
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = base.ListenAddress
	}
	if cfg.Node.URL == "" {
		cfg.Node.URL = base.Node.URL
	}
	if cfg.Node.TimeoutSeconds <= 0 {
		cfg.Node.TimeoutSeconds = base.Node.TimeoutSeconds
	}
	if cfg.Node.RequestsPerSecond <= 0 {
		cfg.Node.RequestsPerSecond = base.Node.RequestsPerSecond
	}
	if cfg.Network.Passphrase == "" {
		return Config{}, fmt.Errorf("network.passphrase is required")
	}
	if cfg.Network.ExplorerBase == "" {
		cfg.Network.ExplorerBase = base.Network.ExplorerBase
	}
	if cfg.Network.ExplorerName == "" {
		cfg.Network.ExplorerName = base.Network.ExplorerName
	}
	if cfg.Wallet.MinDonationBalance < 0 {
		return Config{}, fmt.Errorf("wallet.min_donation_balance must not be negative")
	}
	if cfg.Sync.RefreshSeconds <= 0 {
		cfg.Sync.RefreshSeconds = base.Sync.RefreshSeconds
	}
	if cfg.Sync.PollIntervalSeconds <= 0 {
		cfg.Sync.PollIntervalSeconds = base.Sync.PollIntervalSeconds
	}
	if cfg.Sync.MaxPollAttempts <= 0 {
		cfg.Sync.MaxPollAttempts = base.Sync.MaxPollAttempts
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = base.DatabasePath
	}
	return cfg, nil
}

// NodeTimeout returns the node request timeout as a duration.
func (c Config) NodeTimeout() time.Duration {
	return time.Duration(c.Node.TimeoutSeconds) * time.Second
}

// RefreshInterval returns the periodic refresh cadence.
func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.Sync.RefreshSeconds) * time.Second
}

// PollInterval returns the confirmation polling cadence.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Sync.PollIntervalSeconds) * time.Second
}
