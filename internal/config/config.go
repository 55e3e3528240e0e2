package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"harvest-fleet-monitor/internal/models"

	"gopkg.in/yaml.v3"
)

const DefaultFile = "config.yaml"

// Gap policies for elapsed times above the sanity cap
const (
	GapClamp   = "clamp"
	GapDiscard = "discard"
)

// Config holds application configuration
type Config struct {
	DBPath       string                                     `yaml:"db_path"`
	OutputDir    string                                     `yaml:"output_dir"`
	LogLevel     string                                     `yaml:"log_level"`
	LogDir       string                                     `yaml:"log_dir"`
	OperatorMap  string                                     `yaml:"operator_map"`
	StoreEnabled bool                                       `yaml:"store_enabled"`
	Rules        Rules                                      `yaml:"rules"`
	Aliases      map[string]string                          `yaml:"aliases"`
	Equipment    map[models.EquipmentType]EquipmentSettings `yaml:"equipment"`
	Influx       InfluxConfig                               `yaml:"influx"`
}

// Rules are the thresholds of the derived columns and summaries
type Rules struct {
	GapCapMinutes        float64  `yaml:"gap_cap_minutes"`
	GapPolicy            string   `yaml:"gap_policy"`
	IdleToleranceMinutes float64  `yaml:"idle_tolerance_minutes"`
	StopSpeed            float64  `yaml:"stop_speed"`
	MinEngineRPM         float64  `yaml:"min_engine_rpm"`
	CutPressureThreshold float64  `yaml:"cut_pressure_threshold"`
	DayHoursLimit        float64  `yaml:"day_hours_limit"`
	MaxSpeedKMH          float64  `yaml:"max_speed_kmh"`
	ProductiveGroups     []string `yaml:"productive_groups"`
	MaintenanceGroups    []string `yaml:"maintenance_groups"`
}

// EquipmentSettings holds the per-type column list and exclusion sets
type EquipmentSettings struct {
	Columns            []string `yaml:"columns"`
	Required           []string `yaml:"required"`
	ExcludedOperations []string `yaml:"excluded_operations"`
	ExcludedGroups     []string `yaml:"excluded_groups"`
}

// InfluxConfig configures the optional time-series sink
type InfluxConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`
}

// Load reads path (or config.yaml when path is empty and the file exists),
// on top of the defaults, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		fillEquipmentDefaults(cfg.Equipment, Default().Equipment)
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	applyEnvironmentOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that would make the computations meaningless
func (c *Config) Validate() error {
	switch c.Rules.GapPolicy {
	case GapClamp, GapDiscard:
	default:
		return fmt.Errorf("invalid gap_policy %q (use %s or %s)", c.Rules.GapPolicy, GapClamp, GapDiscard)
	}
	if c.Rules.GapCapMinutes <= 0 {
		return fmt.Errorf("gap_cap_minutes must be positive")
	}
	if c.Rules.IdleToleranceMinutes < 0 {
		return fmt.Errorf("idle_tolerance_minutes cannot be negative")
	}
	if c.Rules.DayHoursLimit <= 0 {
		return fmt.Errorf("day_hours_limit must be positive")
	}
	for _, t := range []models.EquipmentType{models.Harvester, models.Transporter} {
		if len(c.Equipment[t].Columns) == 0 {
			return fmt.Errorf("no columns configured for %s", t)
		}
	}
	if c.Influx.Enabled && (c.Influx.URL == "" || c.Influx.Bucket == "") {
		return fmt.Errorf("influx enabled without url or bucket")
	}
	return nil
}

// For returns the settings of an equipment type
func (c *Config) For(t models.EquipmentType) (EquipmentSettings, error) {
	s, ok := c.Equipment[t]
	if !ok {
		return EquipmentSettings{}, fmt.Errorf("%w: %s", models.ErrUnsupportedEquipment, t)
	}
	return s, nil
}

// fillEquipmentDefaults restores the lists a file left out of a type's
// settings, since yaml decodes each map entry from zero. An explicit empty
// list is kept.
func fillEquipmentDefaults(equipment, defaults map[models.EquipmentType]EquipmentSettings) {
	for t, s := range equipment {
		d, ok := defaults[t]
		if !ok {
			continue
		}
		if s.Columns == nil {
			s.Columns = d.Columns
		}
		if s.Required == nil {
			s.Required = d.Required
		}
		if s.ExcludedOperations == nil {
			s.ExcludedOperations = d.ExcludedOperations
		}
		if s.ExcludedGroups == nil {
			s.ExcludedGroups = d.ExcludedGroups
		}
		equipment[t] = s
	}
}

func applyEnvironmentOverrides(c *Config) {
	c.DBPath = getEnv("FLEET_DB_PATH", c.DBPath)
	c.OutputDir = getEnv("FLEET_OUTPUT_DIR", c.OutputDir)
	c.LogLevel = getEnv("FLEET_LOG_LEVEL", c.LogLevel)
	c.OperatorMap = getEnv("FLEET_OPERATOR_MAP", c.OperatorMap)
	c.StoreEnabled = getEnvBool("FLEET_STORE_ENABLED", c.StoreEnabled)

	c.Influx.Enabled = getEnvBool("FLEET_INFLUX_ENABLED", c.Influx.Enabled)
	c.Influx.URL = getEnv("FLEET_INFLUX_URL", c.Influx.URL)
	c.Influx.Token = getEnv("FLEET_INFLUX_TOKEN", c.Influx.Token)
	c.Influx.Org = getEnv("FLEET_INFLUX_ORG", c.Influx.Org)
	c.Influx.Bucket = getEnv("FLEET_INFLUX_BUCKET", c.Influx.Bucket)
}

// getEnv gets an environment variable with a fallback default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
