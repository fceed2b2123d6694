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

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 0, cfg.Engine.Workers)
	assert.Equal(t, 64, cfg.Engine.BufferSegments)
	assert.InDelta(t, 50, cfg.Engine.MobilityRangeKM, 0.001)
	assert.InDelta(t, 50, cfg.Engine.HotspotRadiusKM, 0.001)
	assert.InDelta(t, 10, cfg.Engine.PerturbationPct, 0.001)
	assert.True(t, cfg.Engine.Constraints.NoOverlap)
	assert.Zero(t, cfg.Engine.Constraints.MinAreaKM2)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
  format: console
engine:
  workers: 4
  mobility_range_km: 30
  constraints:
    min_area_km2: 1000
    no_overlap: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.InDelta(t, 30, cfg.Engine.MobilityRangeKM, 0.001)
	assert.InDelta(t, 1000, cfg.Engine.Constraints.MinAreaKM2, 0.001)
	assert.False(t, cfg.Engine.Constraints.NoOverlap)
	// Defaults still apply for unset values
	assert.Equal(t, 64, cfg.Engine.BufferSegments)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
engine:
  workers: 2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("ZONEPLAN_LOG_LEVEL", "warn")
	t.Setenv("ZONEPLAN_ENGINE_WORKERS", "8")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 8, cfg.Engine.Workers)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("ZONEPLAN_ENGINE_HOTSPOT_RADIUS_KM", "25")

	cfg, err := Load()
	require.NoError(t, err)
	assert.InDelta(t, 25, cfg.Engine.HotspotRadiusKM, 0.001)
}

func TestZoneConstraintsConversion(t *testing.T) {
	cc := ConstraintsConfig{MinAreaKM2: 500, MaxCoastDistanceKM: 40, NoOverlap: true}
	zc := cc.ZoneConstraints()
	assert.InDelta(t, 500, zc.MinAreaKM2, 0.001)
	assert.InDelta(t, 40, zc.MaxCoastDistanceKM, 0.001)
	assert.True(t, zc.NoOverlap)
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
