// Package config loads betterclaw's layered configuration: a YAML file in
// the host-resolved data directory, overlaid with BETTERCLAW_* environment
// variables via viper, in the cobra_cli.go idiom of the teacher.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"betterclaw/internal/filestore"
)

// Config is the fully-resolved, typed configuration surface for the core.
type Config struct {
	LLMModel          string        `yaml:"llmModel"`
	PushBudgetPerDay  int           `yaml:"pushBudgetPerDay"`
	PatternWindowDays int           `yaml:"patternWindowDays"`
	ProactiveEnabled  bool          `yaml:"proactiveEnabled"`
	DataDir           string        `yaml:"dataDir"`
	LogLevel          string        `yaml:"logLevel"`
	LogFormat         string        `yaml:"logFormat"`
	DeliveryCommand   string        `yaml:"deliveryCommand"`
	LLMTimeout        time.Duration `yaml:"-"`
	DeliveryTimeout   time.Duration `yaml:"-"`

	LLMTimeoutSeconds      int `yaml:"llmTimeoutSeconds"`
	DeliveryTimeoutSeconds int `yaml:"deliveryTimeoutSeconds"`
}

// fileShape mirrors Config's YAML surface with pointer-optional fields, so a
// sparse config.yaml never clobbers a default with a zero value.
type fileShape struct {
	LLMModel               *string `yaml:"llmModel"`
	PushBudgetPerDay        *int    `yaml:"pushBudgetPerDay"`
	PatternWindowDays       *int    `yaml:"patternWindowDays"`
	ProactiveEnabled        *bool   `yaml:"proactiveEnabled"`
	DataDir                 *string `yaml:"dataDir"`
	LogLevel                *string `yaml:"logLevel"`
	LogFormat               *string `yaml:"logFormat"`
	DeliveryCommand         *string `yaml:"deliveryCommand"`
	LLMTimeoutSeconds       *int    `yaml:"llmTimeoutSeconds"`
	DeliveryTimeoutSeconds  *int    `yaml:"deliveryTimeoutSeconds"`
}

// Defaults returns the configuration's zero-config baseline, per spec §6.
func Defaults() Config {
	return Config{
		LLMModel:               "openai/gpt-4o-mini",
		PushBudgetPerDay:       10,
		PatternWindowDays:      14,
		ProactiveEnabled:       true,
		DataDir:                filestore.ResolvePath("", "~/.betterclaw"),
		LogLevel:               "info",
		LogFormat:              "json",
		DeliveryCommand:        "agent",
		LLMTimeoutSeconds:      15,
		DeliveryTimeoutSeconds: 30,
		LLMTimeout:             15 * time.Second,
		DeliveryTimeout:        30 * time.Second,
	}
}

// Load reads configPath (config.yaml in the data directory) if present,
// applies BETTERCLAW_* environment overrides via viper, and returns a
// fully-populated Config. A missing or unparsable file falls back to
// Defaults() — configuration, like every other state file in this system,
// never fails startup.
func Load(configPath string) (Config, error) {
	cfg := Defaults()

	if data, err := filestore.ReadFileOrEmpty(configPath); err == nil && len(data) > 0 {
		var shape fileShape
		if yaml.Unmarshal(data, &shape) == nil {
			applyFileShape(&cfg, shape)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("BETTERCLAW")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{
		"llm_model", "push_budget_per_day", "pattern_window_days", "proactive_enabled",
		"data_dir", "log_level", "log_format", "delivery_command",
		"llm_timeout_seconds", "delivery_timeout_seconds",
	} {
		_ = v.BindEnv(key)
	}

	bindEnvOverrides(v, &cfg)

	cfg.LLMTimeout = time.Duration(cfg.LLMTimeoutSeconds) * time.Second
	cfg.DeliveryTimeout = time.Duration(cfg.DeliveryTimeoutSeconds) * time.Second
	return cfg, nil
}

func applyFileShape(cfg *Config, s fileShape) {
	if s.LLMModel != nil {
		cfg.LLMModel = *s.LLMModel
	}
	if s.PushBudgetPerDay != nil {
		cfg.PushBudgetPerDay = *s.PushBudgetPerDay
	}
	if s.PatternWindowDays != nil {
		cfg.PatternWindowDays = *s.PatternWindowDays
	}
	if s.ProactiveEnabled != nil {
		cfg.ProactiveEnabled = *s.ProactiveEnabled
	}
	if s.DataDir != nil {
		cfg.DataDir = *s.DataDir
	}
	if s.LogLevel != nil {
		cfg.LogLevel = *s.LogLevel
	}
	if s.LogFormat != nil {
		cfg.LogFormat = *s.LogFormat
	}
	if s.DeliveryCommand != nil {
		cfg.DeliveryCommand = *s.DeliveryCommand
	}
	if s.LLMTimeoutSeconds != nil {
		cfg.LLMTimeoutSeconds = *s.LLMTimeoutSeconds
	}
	if s.DeliveryTimeoutSeconds != nil {
		cfg.DeliveryTimeoutSeconds = *s.DeliveryTimeoutSeconds
	}
}

func bindEnvOverrides(v *viper.Viper, cfg *Config) {
	if val := v.GetString("llm_model"); val != "" {
		cfg.LLMModel = val
	}
	if v.IsSet("push_budget_per_day") {
		cfg.PushBudgetPerDay = v.GetInt("push_budget_per_day")
	}
	if v.IsSet("pattern_window_days") {
		cfg.PatternWindowDays = v.GetInt("pattern_window_days")
	}
	if v.IsSet("proactive_enabled") {
		cfg.ProactiveEnabled = v.GetBool("proactive_enabled")
	}
	if val := v.GetString("data_dir"); val != "" {
		cfg.DataDir = filestore.ResolvePath(val, cfg.DataDir)
	}
	if val := v.GetString("log_level"); val != "" {
		cfg.LogLevel = val
	}
	if val := v.GetString("log_format"); val != "" {
		cfg.LogFormat = val
	}
	if val := v.GetString("delivery_command"); val != "" {
		cfg.DeliveryCommand = val
	}
	if v.IsSet("llm_timeout_seconds") {
		cfg.LLMTimeoutSeconds = v.GetInt("llm_timeout_seconds")
	}
	if v.IsSet("delivery_timeout_seconds") {
		cfg.DeliveryTimeoutSeconds = v.GetInt("delivery_timeout_seconds")
	}
}
