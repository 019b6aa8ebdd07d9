package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

const minimalTOML = `
mode = "full"
log_level = "debug"

[market]
admin_address = "0x0000000000000000000000000000000000000001"
oracle_ref = "authority-1"
custody_address = "0x0000000000000000000000000000000000000002"

[oracle]
base_url = "http://oracle.internal:8100"

[treasury]
base_url = "http://treasury.internal:8200"

[postgres]
host = "db.internal"
database = "marketd"

[archive]
enabled = true
interval = "30m"
`

func TestLoadMergesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalTOML))
	require.NoError(t, err)

	require.Equal(t, "full", cfg.Mode)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "db.internal", cfg.Postgres.Host)

	// Fields not in the file keep their defaults.
	require.Equal(t, 5432, cfg.Postgres.Port)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, 30*time.Minute, cfg.Archive.Interval.Duration)

	require.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MARKETD_POSTGRES_PASSWORD", "hunter2")
	t.Setenv("MARKETD_SERVER_PORT", "9000")
	t.Setenv("MARKETD_ARCHIVE_ENABLED", "false")
	t.Setenv("MARKETD_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(writeConfig(t, minimalTOML))
	require.NoError(t, err)

	require.Equal(t, "hunter2", cfg.Postgres.Password)
	require.Equal(t, 9000, cfg.Server.Port)
	require.False(t, cfg.Archive.Enabled)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "warp"
	cfg.LogLevel = "loud"
	cfg.Server.Port = 0

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), `unknown mode "warp"`)
	require.Contains(t, err.Error(), `unknown log_level "loud"`)
	require.Contains(t, err.Error(), "admin_address")
	require.Contains(t, err.Error(), "port must be 1-65535")
}

func TestValidateDevModeSkipsInfrastructure(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "dev"
	cfg.Market.AdminAddress = "0x0000000000000000000000000000000000000001"
	cfg.Market.OracleRef = "authority-1"
	cfg.Market.CustodyAddress = "0x0000000000000000000000000000000000000002"
	cfg.Treasury.BaseURL = ""
	cfg.Postgres.Host = ""
	cfg.Redis.Addr = ""

	require.NoError(t, cfg.Validate())
}

func TestValidateRequiresSecretPassword(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "dev"
	cfg.Market.AdminAddress = "0x01"
	cfg.Market.OracleRef = "authority-1"
	cfg.Market.CustodyAddress = "0x02"
	cfg.Oracle.EncryptedSecretPath = "/etc/marketd/oracle.key"

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "oracle: secret_password is required")
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Oracle.ApiSecret = "s1"
	cfg.Treasury.ApiKey = "k2"
	cfg.Postgres.Password = "p3"
	cfg.Redis.Password = "p4"
	cfg.S3.SecretKey = "s5"
	cfg.Server.AdminToken = "t6"

	out := RedactedConfig(&cfg)

	require.Equal(t, "***", out.Oracle.ApiSecret)
	require.Equal(t, "***", out.Treasury.ApiKey)
	require.Equal(t, "***", out.Postgres.Password)
	require.Equal(t, "***", out.Redis.Password)
	require.Equal(t, "***", out.S3.SecretKey)
	require.Equal(t, "***", out.Server.AdminToken)

	// Originals are untouched, and empty fields stay empty.
	require.Equal(t, "s1", cfg.Oracle.ApiSecret)
	require.Empty(t, out.Oracle.ApiKey)
}
