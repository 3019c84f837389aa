package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "hrtool", cfg.Anonymize.Salt)
	assert.Equal(t, "ID_", cfg.Anonymize.Prefix)
	assert.Equal(t, 8, cfg.Anonymize.Length)
	assert.InDelta(t, 40, cfg.Risk.Medium, 0)
	assert.InDelta(t, 70, cfg.Risk.High, 0)
	assert.InDelta(t, 2.0, cfg.Attendance.ZThreshold, 0)
	assert.InDelta(t, 11, cfg.Attendance.LongHours, 0)
	assert.Equal(t, 12, cfg.Attendance.StreakDays)
	assert.Equal(t, 20, cfg.Comment.TimeoutSecs)
	assert.Equal(t, 200, cfg.Comment.MaxTokens)
	assert.InDelta(t, 0.4, cfg.Comment.Temperature, 1e-9)
	assert.Equal(t, 10, cfg.Report.RiskRows)
	assert.Equal(t, 20, cfg.Report.AnomalyRows)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
risk:
  medium: 30
  high: 60
attendance:
  streak_days: 6
report:
  font_candidates:
    - /fonts/a.ttf
    - /fonts/b.ttf
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.InDelta(t, 30, cfg.Risk.Medium, 0)
	assert.InDelta(t, 60, cfg.Risk.High, 0)
	assert.Equal(t, 6, cfg.Attendance.StreakDays)
	assert.Equal(t, []string{"/fonts/a.ttf", "/fonts/b.ttf"}, cfg.Report.FontCandidates)
	// Defaults still apply for unset values
	assert.InDelta(t, 11, cfg.Attendance.LongHours, 0)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("risk:\n  high: 60\n"), 0o644))

	t.Setenv("HRMON_RISK_HIGH", "85")
	t.Setenv("HRMON_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 85, cfg.Risk.High, 0)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadLegacyEnvNames(t *testing.T) {
	chdirTemp(t)

	t.Setenv("ANON_SALT", "pepper")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("JP_FONT_PATH", "/fonts/jp.ttf")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "pepper", cfg.Anonymize.Salt)
	assert.Equal(t, "sk-test", cfg.Comment.APIKey)
	assert.Equal(t, "/fonts/jp.ttf", cfg.Report.FontPath)
}

func TestLoadPrefixedBeatsLegacy(t *testing.T) {
	chdirTemp(t)

	t.Setenv("ANON_SALT", "legacy")
	t.Setenv("HRMON_ANONYMIZE_SALT", "prefixed")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.Anonymize.Salt)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HRMON_MAPPING_SYNONYMS_PATH=/etc/hr/synonyms.yaml\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("HRMON_MAPPING_SYNONYMS_PATH") }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/etc/hr/synonyms.yaml", cfg.Mapping.SynonymsPath)
}

func TestLoadMalformedYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("risk: [unclosed"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	assert.Error(t, InitLogger(LogConfig{Level: "invalid", Format: "json"}))
}
