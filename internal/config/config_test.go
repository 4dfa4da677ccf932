package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "reconcile.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 500, cfg.Import.BatchSize)
	assert.Equal(t, 4, cfg.Import.MaxConcurrency)
	assert.Equal(t, "91", cfg.Normalize.CountryCode)
	assert.Equal(t, "10", cfg.Reconcile.AmountTolerance)
	assert.Equal(t, "5000", cfg.Reconcile.HighValueCOD)
	assert.Equal(t, 48, cfg.Reconcile.NotShippedHours)
	assert.InDelta(t, 24, cfg.Reconcile.DispatchFastHours, 0.001)
	assert.InDelta(t, 48, cfg.Reconcile.DispatchSlowHours, 0.001)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/orders
log:
  level: debug
  format: console
server:
  port: 9090
reconcile:
  amount_tolerance: "25"
  disabled_rules: [BIZ-001]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/orders", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "25", cfg.Reconcile.AmountTolerance)
	assert.Equal(t, []string{"BIZ-001"}, cfg.Reconcile.DisabledRules)
	// Defaults still apply for unset values
	assert.Equal(t, 48, cfg.Reconcile.NotShippedHours)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("RECONCILE_STORE_DRIVER", "postgres")
	t.Setenv("RECONCILE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("RECONCILE_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "reconcile.db"
	cfg.Import.MaxConcurrency = 4
	cfg.Reconcile.NotShippedHours = 48
	cfg.Reconcile.DispatchFastHours = 24
	cfg.Reconcile.DispatchSlowHours = 48
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateImport_AllPresent(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("import"))
}

func TestValidateImport_MissingDB(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("import")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateReconcile_BadDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "oracle"

	err := cfg.Validate("reconcile")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
}

func TestValidateServe_ValidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 9090

	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Import.MaxConcurrency = 0
	err := cfg.Validate("import")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "import.max_concurrency must be between 1 and 32")

	cfg.Import.MaxConcurrency = 33
	err = cfg.Validate("import")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "import.max_concurrency must be between 1 and 32")

	cfg.Import.MaxConcurrency = 32
	err = cfg.Validate("import")
	assert.NoError(t, err)
}

func TestValidateDispatchThresholds(t *testing.T) {
	cfg := validDefaults()

	cfg.Reconcile.DispatchFastHours = 0
	err := cfg.Validate("reconcile")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "dispatch thresholds")

	cfg.Reconcile.DispatchFastHours = 72
	cfg.Reconcile.DispatchSlowHours = 48
	err = cfg.Validate("reconcile")
	assert.Error(t, err)

	cfg.Reconcile.DispatchFastHours = 24
	err = cfg.Validate("reconcile")
	assert.NoError(t, err)
}
