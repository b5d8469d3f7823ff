package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	file, err := os.CreateTemp(t.TempDir(), "fundflow-config-*.yaml")
	require.NoError(t, err)
	_, err = file.WriteString(contents)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	return file.Name()
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, "network:\n  passphrase: \"Test SDF Network ; September 2015\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, ":8480", cfg.ListenAddress)
	require.Equal(t, 4*time.Second, cfg.RefreshInterval())
	require.Equal(t, 2*time.Second, cfg.PollInterval())
	require.Equal(t, 150, cfg.Sync.MaxPollAttempts)
	require.Equal(t, 15*time.Second, cfg.NodeTimeout())
	require.Equal(t, "fundflow.db", cfg.DatabasePath)
	require.Equal(t, "https://stellar.expert/explorer", cfg.Network.ExplorerBase)
	require.Equal(t, "testnet", cfg.Network.ExplorerName)
}

func TestLoadOverrides(t *testing.T) {
	path := writeTempConfig(t, `
listen: ":9001"
database_path: "/var/lib/fundflow/state.db"
node:
  url: "https://rpc.example.org"
  auth_token: "secret"
  timeout_seconds: 30
  requests_per_second: 5
network:
  passphrase: "Public Global Stellar Network ; September 2015"
  explorer_network: "public"
wallet:
  seed_env: "FUNDFLOW_WALLET_SEED"
  min_donation_balance: 10
sync:
  refresh_seconds: 8
  poll_interval_seconds: 1
  max_poll_attempts: 60
log:
  level: "debug"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "https://rpc.example.org", cfg.Node.URL)
	require.Equal(t, "secret", cfg.Node.AuthToken)
	require.Equal(t, 30*time.Second, cfg.NodeTimeout())
	require.Equal(t, "public", cfg.Network.ExplorerName)
	require.Equal(t, "FUNDFLOW_WALLET_SEED", cfg.Wallet.SeedEnv)
	require.Equal(t, int64(10), cfg.Wallet.MinDonationBalance)
	require.Equal(t, 8*time.Second, cfg.RefreshInterval())
	require.Equal(t, 60, cfg.Sync.MaxPollAttempts)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRequiresPassphrase(t *testing.T) {
	path := writeTempConfig(t, "network:\n  passphrase: \"\"\n")
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "passphrase")
}

func TestLoadRejectsNegativeBalanceGuard(t *testing.T) {
	path := writeTempConfig(t, `
network:
  passphrase: "Test SDF Network ; September 2015"
wallet:
  min_donation_balance: -5
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/fundflow.yaml")
	require.Error(t, err)
}

func TestLoadMissingPath(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
}
