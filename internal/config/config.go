package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pelagica/zoneplan/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// EngineConfig tunes the spatial analysis engine.
type EngineConfig struct {
	// Workers bounds the data-parallel stages (hotspot detection, candidate
	// scoring). Zero means one worker per CPU.
	Workers int `yaml:"workers" mapstructure:"workers"`
	// BufferSegments is the arc resolution for geometry buffering.
	BufferSegments int `yaml:"buffer_segments" mapstructure:"buffer_segments"`
	// MobilityRangeKM is the species mobility range for habitat connectivity.
	MobilityRangeKM float64 `yaml:"mobility_range_km" mapstructure:"mobility_range_km"`
	// HotspotRadiusKM is the Gi* neighborhood radius.
	HotspotRadiusKM float64 `yaml:"hotspot_radius_km" mapstructure:"hotspot_radius_km"`
	// PerturbationPct is the sensitivity analysis weight perturbation.
	PerturbationPct float64 `yaml:"perturbation_pct" mapstructure:"perturbation_pct"`

	Constraints ConstraintsConfig `yaml:"constraints" mapstructure:"constraints"`
}

// ConstraintsConfig holds the default hard constraints for zone designation.
type ConstraintsConfig struct {
	MinAreaKM2         float64 `yaml:"min_area_km2" mapstructure:"min_area_km2"`
	MaxCoastDistanceKM float64 `yaml:"max_coast_distance_km" mapstructure:"max_coast_distance_km"`
	NoOverlap          bool    `yaml:"no_overlap" mapstructure:"no_overlap"`
}

// ZoneConstraints converts the config block into the engine's constraint type.
func (c ConstraintsConfig) ZoneConstraints() model.ZoneConstraints {
	return model.ZoneConstraints{
		MinAreaKM2:         c.MinAreaKM2,
		MaxCoastDistanceKM: c.MaxCoastDistanceKM,
		NoOverlap:          c.NoOverlap,
	}
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ZONEPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("engine.workers", 0)
	v.SetDefault("engine.buffer_segments", 64)
	v.SetDefault("engine.mobility_range_km", 50)
	v.SetDefault("engine.hotspot_radius_km", 50)
	v.SetDefault("engine.perturbation_pct", 10)
	v.SetDefault("engine.constraints.min_area_km2", 0)
	v.SetDefault("engine.constraints.max_coast_distance_km", 0)
	v.SetDefault("engine.constraints.no_overlap", true)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
