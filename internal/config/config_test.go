package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		path := writeConfig(t, "ledger:\n  pool_account_id: 7\n")

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, int64(7), cfg.Ledger.PoolAccountID)
		assert.Equal(t, 3*time.Second, cfg.Ledger.LockTimeout())
		assert.Equal(t, "local", cfg.Ledger.LockDriver)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "ledger-events", cfg.Kafka.Topic.LedgerEvents)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeConfig(t, "ledger:\n  pool_account_id: 7\n")
		t.Setenv("LEDGER_LOCK_TIMEOUT_MS", "250")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 250*time.Millisecond, cfg.Ledger.LockTimeout())
	})

	t.Run("missing pool account", func(t *testing.T) {
		path := writeConfig(t, "server:\n  port: 9000\n")

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("unknown lock driver", func(t *testing.T) {
		path := writeConfig(t, "ledger:\n  pool_account_id: 1\n  lock_driver: etcd\n")

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
