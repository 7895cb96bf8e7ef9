package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()
	require.Equal(t, int32(10), cfg.Database.MaxConns)
	require.Equal(t, 3*time.Second, cfg.Database.DialTimeout)
	require.Equal(t, 1e9, cfg.Report.ScientificNotationThreshold)
	require.False(t, cfg.Report.AllResultDigits)
	require.Equal(t, "wafertrack-snapshot.db", cfg.Snapshot.Path)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/test")
	t.Setenv("DB_MAX_CONNS", "3")
	t.Setenv("REPORT_SCI_THRESHOLD", "1e6")
	t.Setenv("REPORT_ALL_DIGITS", "true")
	t.Setenv("DB_DIAL_TIMEOUT", "10s")

	cfg := LoadConfig()
	require.Equal(t, "postgres://localhost/test", cfg.Database.DSN)
	require.Equal(t, int32(3), cfg.Database.MaxConns)
	require.Equal(t, 1e6, cfg.Report.ScientificNotationThreshold)
	require.True(t, cfg.Report.AllResultDigits)
	require.Equal(t, 10*time.Second, cfg.Database.DialTimeout)
}

func TestApplyFileOverlaysEnv(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := "database:\n  dsn: postgres://localhost/file\nreport:\n  output_dir: /tmp/reports\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg := LoadConfig()
	require.NoError(t, cfg.ApplyFile(path))
	require.Equal(t, "postgres://localhost/file", cfg.Database.DSN)
	require.Equal(t, "/tmp/reports", cfg.Report.OutputDir)
	// Keys the file does not mention keep their env/default values.
	require.Equal(t, int32(10), cfg.Database.MaxConns)
}

func TestApplyFileMissing(t *testing.T) {
	cfg := LoadConfig()
	require.Error(t, cfg.ApplyFile(filepath.Join(t.TempDir(), "absent.yaml")))
}

func TestValidate(t *testing.T) {
	cfg := LoadConfig()
	cfg.Database.DSN = ""
	require.ErrorIs(t, cfg.Validate(), ErrInvalidInput)

	cfg.Database.DSN = "postgres://localhost/test"
	cfg.Report.ScientificNotationThreshold = 0
	require.ErrorIs(t, cfg.Validate(), ErrInvalidInput)

	cfg.Report.ScientificNotationThreshold = 1e9
	require.NoError(t, cfg.Validate())
}
