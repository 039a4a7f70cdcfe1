package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, ":8546", cfg.ListenAddress)
	require.Equal(t, "admin", cfg.AdminAccount)

	cost, err := cfg.ParsedQuotaByteCost()
	require.NoError(t, err)
	expected, _ := new(big.Int).SetString("10000000000000000000", 10)
	require.Zero(t, cost.Cmp(expected))
}

func TestLoadReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `ListenAddress = ":9999"
DataDir = "/tmp/ledger"
AdminAccount = "ops.example"
Environment = "prod"
QuotaByteCost = "500"
CreatePoolDeposit = "1234"
AllowMigrate = true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.ListenAddress)
	require.Equal(t, "ops.example", cfg.AdminAccount)
	require.True(t, cfg.AllowMigrate)

	deposit, err := cfg.ParsedCreatePoolDeposit()
	require.NoError(t, err)
	require.Equal(t, int64(1234), deposit.Int64())
}

func TestEnvOverridesWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Setenv("CONVERTORD_LISTEN", ":7777")
	t.Setenv("CONVERTORD_ADMIN", "root.example")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":7777", cfg.ListenAddress)
	require.Equal(t, "root.example", cfg.AdminAccount)
}

func TestValidateRejectsBadAmounts(t *testing.T) {
	cfg := Default()
	cfg.QuotaByteCost = "not-a-number"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.CreatePoolDeposit = "-5"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.AdminAccount = "  "
	require.Error(t, cfg.Validate())
}
