// Package config loads a profile run description from YAML with .env and
// environment overrides for connection settings.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"load_profile/internal/model"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

const (
	DemandSourceTable    = "table"
	DemandSourceForecast = "forecast"

	ConstraintNone      = "none"
	ConstraintMaxDemand = "max_demand"

	HistoryCSV        = "csv"
	HistoryClickHouse = "clickhouse"
)

type Config struct {
	ProfileID         string            `yaml:"profile_id"`
	StartYear         int               `yaml:"start_year"`
	EndYear           int               `yaml:"end_year"`
	Method            string            `yaml:"method"`
	BaseYear          BaseYear          `yaml:"base_year"`
	DemandSource      string            `yaml:"demand_source"`
	ForecastModel     string            `yaml:"forecast_model"`
	MonthlyConstraint string            `yaml:"monthly_constraint"`
	HistorySource     string            `yaml:"history_source"`
	Inputs            Inputs            `yaml:"inputs"`
	Output            Output            `yaml:"output"`
	Tuning            Tuning            `yaml:"tuning"`
	Seasons           map[string]string `yaml:"seasons,omitempty"`

	// Connection settings come from the environment only.
	ClickHouse ClickHouse `yaml:"-"`
	MQTT       MQTT       `yaml:"-"`
	ListenAddr string     `yaml:"-"`
}

type Inputs struct {
	History  string `yaml:"history"`
	Targets  string `yaml:"targets"`
	Forecast string `yaml:"forecast"`
	Caps     string `yaml:"caps"`
	Holidays string `yaml:"holidays"`
}

type Output struct {
	Profile string `yaml:"profile"`
	Report  string `yaml:"report"`
}

// Tuning exposes the constants that trade realism against smoothness.
type Tuning struct {
	WindowDays           int     `yaml:"window_days"`
	FinalSmoothingWindow int     `yaml:"final_smoothing_window"`
	FinalSmoothingOrder  int     `yaml:"final_smoothing_order"`
	ShapeSmoothingWindow int     `yaml:"shape_smoothing_window"`
	ShapeSmoothingOrder  int     `yaml:"shape_smoothing_order"`
	LogisticSteepness    float64 `yaml:"logistic_steepness"`
	HolidaySigma         float64 `yaml:"holiday_sigma"`
	DemandFloorMW        float64 `yaml:"demand_floor_mw"`
	DefaultGrowthRate    float64 `yaml:"default_growth_rate"`
	GrowthClamp          float64 `yaml:"growth_clamp"`
	ClusterCount         int     `yaml:"cluster_count"`
	Workers              int     `yaml:"workers"`
}

type ClickHouse struct {
	Addr  string
	DB    string
	User  string
	Pass  string
	Table string
}

// MQTT publishing is disabled while Broker is empty.
type MQTT struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
}

// BaseYear is a fiscal year or 0 for "auto".
type BaseYear int

func (b *BaseYear) UnmarshalYAML(node *yaml.Node) error {
	v := strings.TrimSpace(node.Value)
	if v == "" || strings.EqualFold(v, "auto") {
		*b = 0
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("base_year must be \"auto\" or a fiscal year, got %q", node.Value)
	}
	*b = BaseYear(n)
	return nil
}

func (b BaseYear) MarshalYAML() (any, error) {
	if b == 0 {
		return "auto", nil
	}
	return int(b), nil
}

func Default() *Config {
	return &Config{
		ProfileID:         "default",
		StartYear:         2025,
		EndYear:           2030,
		Method:            "normalized_pattern",
		DemandSource:      DemandSourceTable,
		ForecastModel:     "MLR",
		MonthlyConstraint: ConstraintNone,
		HistorySource:     HistoryCSV,
		Inputs: Inputs{
			History: "data/history.csv",
			Targets: "data/targets.csv",
		},
		Output: Output{
			Profile: "output/profile.csv",
			Report:  "output/report.json",
		},
		Tuning: Tuning{
			WindowDays:           3,
			FinalSmoothingWindow: 25,
			FinalSmoothingOrder:  3,
			ShapeSmoothingWindow: 5,
			ShapeSmoothingOrder:  2,
			LogisticSteepness:    10,
			HolidaySigma:         1.5,
			DemandFloorMW:        10,
			DefaultGrowthRate:    0.03,
			GrowthClamp:          0.20,
			ClusterCount:         4,
		},
		ClickHouse: ClickHouse{Addr: "localhost:9000", DB: "energy", User: "default", Table: "hourly_demand"},
		MQTT:       MQTT{ClientID: "load-profile", Topic: "loadprofile/progress"},
		ListenAddr: ":8080",
	}
}

// Load reads .env if present, then the YAML file at path (or $LOADPROFILE_CONFIG
// when path is empty) over the defaults, then environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = os.Getenv("LOADPROFILE_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.ClickHouse.Addr = getEnv("CLICKHOUSE_ADDR", c.ClickHouse.Addr)
	c.ClickHouse.DB = getEnv("CLICKHOUSE_DB", c.ClickHouse.DB)
	c.ClickHouse.User = getEnv("CLICKHOUSE_USER", c.ClickHouse.User)
	c.ClickHouse.Pass = getEnv("CLICKHOUSE_PASS", c.ClickHouse.Pass)
	c.ClickHouse.Table = getEnv("CLICKHOUSE_TABLE", c.ClickHouse.Table)

	c.MQTT.Broker = getEnv("MQTT_BROKER", c.MQTT.Broker)
	c.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", c.MQTT.ClientID)
	c.MQTT.Username = getEnv("MQTT_USERNAME", c.MQTT.Username)
	c.MQTT.Password = getEnv("MQTT_PASSWORD", c.MQTT.Password)
	c.MQTT.Topic = getEnv("MQTT_TOPIC", c.MQTT.Topic)

	c.ListenAddr = getEnv("LISTEN_ADDR", c.ListenAddr)
	c.Tuning.Workers = getEnvInt("LOADPROFILE_WORKERS", c.Tuning.Workers)
}

// Validate checks ranges and enumerations. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	var problems []string
	if c.ProfileID == "" {
		problems = append(problems, "profile_id is required")
	}
	if c.StartYear <= 0 || c.EndYear < c.StartYear {
		problems = append(problems, fmt.Sprintf("year range %d..%d is invalid", c.StartYear, c.EndYear))
	}
	switch c.Method {
	case "normalized_pattern", "seasonal_decomposition":
	default:
		problems = append(problems, fmt.Sprintf("unknown method %q", c.Method))
	}
	if c.BaseYear < 0 {
		problems = append(problems, fmt.Sprintf("base_year %d is invalid", c.BaseYear))
	}
	switch c.DemandSource {
	case DemandSourceTable:
	case DemandSourceForecast:
		if c.ForecastModel == "" {
			problems = append(problems, "forecast_model is required with demand_source forecast")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown demand_source %q", c.DemandSource))
	}
	switch c.MonthlyConstraint {
	case ConstraintNone, "":
	case ConstraintMaxDemand:
		if c.Inputs.Caps == "" {
			problems = append(problems, "inputs.caps is required with monthly_constraint max_demand")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown monthly_constraint %q", c.MonthlyConstraint))
	}
	switch c.HistorySource {
	case HistoryCSV:
		if c.Inputs.History == "" {
			problems = append(problems, "inputs.history is required with history_source csv")
		}
	case HistoryClickHouse:
	default:
		problems = append(problems, fmt.Sprintf("unknown history_source %q", c.HistorySource))
	}
	problems = append(problems, c.Tuning.validate()...)
	if _, err := c.SeasonTable(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func (t Tuning) validate() []string {
	var problems []string
	if t.WindowDays < 0 {
		problems = append(problems, "tuning.window_days must be >= 0")
	}
	for _, w := range []struct {
		name          string
		window, order int
	}{
		{"final_smoothing", t.FinalSmoothingWindow, t.FinalSmoothingOrder},
		{"shape_smoothing", t.ShapeSmoothingWindow, t.ShapeSmoothingOrder},
	} {
		if w.window%2 == 0 || w.window <= w.order || w.order < 0 {
			problems = append(problems, fmt.Sprintf("tuning.%s window %d must be odd and larger than order %d", w.name, w.window, w.order))
		}
	}
	if t.LogisticSteepness <= 0 {
		problems = append(problems, "tuning.logistic_steepness must be positive")
	}
	if t.HolidaySigma <= 0 {
		problems = append(problems, "tuning.holiday_sigma must be positive")
	}
	if t.DemandFloorMW < 0 {
		problems = append(problems, "tuning.demand_floor_mw must be >= 0")
	}
	if t.GrowthClamp <= 0 {
		problems = append(problems, "tuning.growth_clamp must be positive")
	}
	if t.ClusterCount < 1 {
		problems = append(problems, "tuning.cluster_count must be >= 1")
	}
	if t.Workers < 0 {
		problems = append(problems, "tuning.workers must be >= 0")
	}
	return problems
}

// SeasonTable returns the canonical season table with any overrides applied.
func (c *Config) SeasonTable() (model.SeasonTable, error) {
	return model.ParseSeasonTable(c.Seasons)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as int, using default: %v", key, err)
		return defaultValue
	}
	return n
}
