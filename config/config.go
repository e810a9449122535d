package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/palmlens/scorer/internal/domain"
)

// Config holds all configuration for a scoring run
type Config struct {
	Input    InputConfig    `mapstructure:"input"`
	Output   OutputConfig   `mapstructure:"output"`
	Columns  ColumnsConfig  `mapstructure:"columns"`
	Filter   FilterConfig   `mapstructure:"filter"`
	Matching MatchingConfig `mapstructure:"matching"`
	Score    ScoreConfig    `mapstructure:"score"`
	Run      RunConfig      `mapstructure:"run"`
	Log      LogConfig      `mapstructure:"log"`
}

// InputConfig holds input table paths
type InputConfig struct {
	Products string `mapstructure:"products"`
	Weights  string `mapstructure:"weights"`
}

// OutputConfig holds report settings
type OutputConfig struct {
	Path                 string `mapstructure:"path"`
	FloatPrecision       int    `mapstructure:"float_precision"`
	ConsumptionColumn    string `mapstructure:"consumption_column"`
	ScoreColumn          string `mapstructure:"score_column"`
	GramsPerDollarColumn string `mapstructure:"grams_per_dollar_column"`
}

// ColumnsConfig names the product table columns
type ColumnsConfig struct {
	Declaration string   `mapstructure:"declaration"`
	Weight      string   `mapstructure:"weight"`
	Cost        string   `mapstructure:"cost"`
	Status      string   `mapstructure:"status"`
	Retain      []string `mapstructure:"retain"`
}

// FilterConfig holds row filtering settings
type FilterConfig struct {
	ActiveValue  string `mapstructure:"active_value"`
	OnlyMatching bool   `mapstructure:"only_matching"`
}

// MatchingConfig holds consumption estimator settings
type MatchingConfig struct {
	MayContainPattern      string  `mapstructure:"may_contain_pattern"`
	PercentPattern         string  `mapstructure:"percent_pattern"`
	GroupCollapseThreshold float64 `mapstructure:"group_collapse_threshold"`
	PositionDecay          float64 `mapstructure:"position_decay"`
}

// ScoreConfig holds score metric settings
type ScoreConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	NormalizeWeight bool `mapstructure:"normalize_weight"`
}

// RunConfig holds batch behaviour settings
type RunConfig struct {
	Strict      bool   `mapstructure:"strict"`
	Verbose     bool   `mapstructure:"verbose"`
	MetricsFile string `mapstructure:"metrics_file"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// flagBindings maps config keys to the CLI flags that override them
var flagBindings = map[string]string{
	"input.products":      "data",
	"input.weights":       "weights",
	"output.path":         "out",
	"columns.retain":      "cols",
	"columns.declaration": "icol",
	"columns.weight":      "wcol",
	"columns.cost":        "ccol",
	"score.enabled":       "score",
	"run.verbose":         "verbose",
	"run.strict":          "strict",
	"run.metrics_file":    "metrics-file",
	"log.level":           "log-level",
}

// Load loads configuration from flags, environment variables, a .env file
// and an optional config file. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("palmlens")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/palmlens/")

	v.SetEnvPrefix("PALMLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		if f := flags.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
		}
		for key, name := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("unable to bind flag %s: %w", name, err)
				}
			}
		}
	}

	// Config file is optional; env vars and defaults are enough
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	config.Columns.Retain = splitColumns(config.Columns.Retain)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key gets a default
// so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("input.products", "")
	v.SetDefault("input.weights", "")

	v.SetDefault("output.path", "")
	v.SetDefault("output.float_precision", 6)
	v.SetDefault("output.consumption_column", "Estimated Ingredient Consumption (g)")
	v.SetDefault("output.score_column", "score")
	v.SetDefault("output.grams_per_dollar_column", "g/$")

	v.SetDefault("columns.declaration", "")
	v.SetDefault("columns.weight", "")
	v.SetDefault("columns.cost", "")
	v.SetDefault("columns.status", "Archive Status")
	v.SetDefault("columns.retain", []string{})

	v.SetDefault("filter.active_value", "Active")
	v.SetDefault("filter.only_matching", false)

	v.SetDefault("matching.may_contain_pattern", `(?i)may contain`)
	v.SetDefault("matching.percent_pattern", `(\d+(?:\.\d+)?)\s*%`)
	v.SetDefault("matching.group_collapse_threshold", 0.99)
	v.SetDefault("matching.position_decay", 0.5)

	v.SetDefault("score.enabled", false)
	v.SetDefault("score.normalize_weight", false)

	v.SetDefault("run.strict", false)
	v.SetDefault("run.verbose", false)
	v.SetDefault("run.metrics_file", "")

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
}

// validate checks value ranges. Required inputs are checked separately by
// RequireScoreInputs because not every command needs them.
func validate(config *Config) error {
	if config.Output.FloatPrecision < 0 || config.Output.FloatPrecision > 15 {
		return fmt.Errorf("output float precision must be between 0 and 15, got: %d", config.Output.FloatPrecision)
	}

	threshold := config.Matching.GroupCollapseThreshold
	if threshold <= 0 || threshold > 1 {
		return fmt.Errorf("group collapse threshold must be in (0, 1], got: %v", threshold)
	}

	if config.Matching.PositionDecay <= 0 {
		return fmt.Errorf("position decay must be positive, got: %v", config.Matching.PositionDecay)
	}

	for name, pattern := range map[string]string{
		"may contain pattern": config.Matching.MayContainPattern,
		"percent pattern":     config.Matching.PercentPattern,
	} {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("%s %q does not compile: %w", name, pattern, err)
		}
	}

	switch config.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be 'console' or 'json', got: %s", config.Log.Format)
	}

	if config.Output.ConsumptionColumn == "" || config.Output.ScoreColumn == "" || config.Output.GramsPerDollarColumn == "" {
		return fmt.Errorf("output column names must not be empty")
	}

	return nil
}

// RequireScoreInputs reports the first required scoring input that is absent
func (c *Config) RequireScoreInputs() error {
	required := []struct {
		field string
		value string
	}{
		{"data", c.Input.Products},
		{"out", c.Output.Path},
		{"weights", c.Input.Weights},
		{"icol", c.Columns.Declaration},
		{"wcol", c.Columns.Weight},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &domain.MissingInputError{Field: r.field}
		}
	}
	if len(c.Columns.Retain) == 0 {
		return &domain.MissingInputError{Field: "cols"}
	}
	return nil
}

// ProductColumns returns the product column names for the scoring service
func (c *Config) ProductColumns() domain.Columns {
	return domain.Columns{
		Declaration: c.Columns.Declaration,
		Weight:      c.Columns.Weight,
		Cost:        c.Columns.Cost,
		Status:      c.Columns.Status,
		Retain:      c.Columns.Retain,
	}
}

// loadEnvFile loads .env from the working directory without overriding
// variables that are already set. A missing file is not an error.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(".env")
}

// splitColumns flattens comma-joined entries and drops blanks
func splitColumns(cols []string) []string {
	var out []string
	for _, c := range cols {
		for _, part := range strings.Split(c, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
