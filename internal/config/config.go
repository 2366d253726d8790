// Package config loads and validates submitter configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Service   ServiceConfig   `mapstructure:"service"`
	Form      FormConfig      `mapstructure:"form"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Output    OutputConfig    `mapstructure:"output"`
	DB        DBConfig        `mapstructure:"db"`
	Server    ServerConfig    `mapstructure:"server"`
	Preflight PreflightConfig `mapstructure:"preflight"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServiceConfig identifies the external docking service.
type ServiceConfig struct {
	URL       string `mapstructure:"url"`
	UserAgent string `mapstructure:"user_agent"`
}

// FormConfig holds the CSS selectors of the service's submission form. The
// service controls its own markup, so every selector stays configurable.
type FormConfig struct {
	ReceptorFile    string `mapstructure:"receptor_file"`
	LigandFile      string `mapstructure:"ligand_file"`
	LigandSequence  string `mapstructure:"ligand_sequence"`
	LigandType      string `mapstructure:"ligand_type"`
	LigandTypeValue string `mapstructure:"ligand_type_value"`
	SiteToggle      string `mapstructure:"site_toggle"`
	SiteInput       string `mapstructure:"site_input"`
	Email           string `mapstructure:"email"`
	JobName         string `mapstructure:"job_name"`
	Submit          string `mapstructure:"submit"`
}

// BatchConfig governs dispatcher behavior.
type BatchConfig struct {
	Jobs       int `mapstructure:"jobs"`
	QueueDepth int `mapstructure:"queue_depth"`
}

// BrowserConfig configures the headless browser sessions.
type BrowserConfig struct {
	Headless         bool `mapstructure:"headless"`
	NavTimeoutSec    int  `mapstructure:"nav_timeout_seconds"`
	ActionTimeoutSec int  `mapstructure:"action_timeout_seconds"`
	SubmitTimeoutSec int  `mapstructure:"submit_timeout_seconds"`
}

// OutputConfig locates the run log.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// DBConfig enables the optional Postgres run-log mirror when DSN is set.
type DBConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// ServerConfig enables the optional status HTTP server when Addr is set.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// PreflightConfig toggles the form probe run before browsers start.
type PreflightConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	TimeoutSeconds int  `mapstructure:"timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HDOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.url", "http://hdock.phys.hust.edu.cn/")
	v.SetDefault("service.user_agent", "hdock-batch/1.0 (+https://github.com/SidSin0809/hdock-batch)")

	v.SetDefault("form.receptor_file", "#pdbfile1")
	v.SetDefault("form.ligand_file", "#pdbfile2")
	v.SetDefault("form.ligand_sequence", "#fastaseq2")
	v.SetDefault("form.ligand_type", "#ligtyp")
	v.SetDefault("form.ligand_type_value", "protein")
	v.SetDefault("form.site_toggle", "#option1")
	v.SetDefault("form.site_input", "input[name=sitenum1]")
	v.SetDefault("form.email", "#emailaddress")
	v.SetDefault("form.job_name", "input[name=jobname]")
	v.SetDefault("form.submit", "input[name=upload]")

	v.SetDefault("batch.jobs", 1)
	v.SetDefault("batch.queue_depth", 64)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.nav_timeout_seconds", 90)
	v.SetDefault("browser.action_timeout_seconds", 30)
	v.SetDefault("browser.submit_timeout_seconds", 90)

	v.SetDefault("output.dir", "./hdock_logs")

	v.SetDefault("db.table", "hdock_runs")

	v.SetDefault("preflight.enabled", true)
	v.SetDefault("preflight.timeout_seconds", 15)

	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Service.URL == "" {
		return fmt.Errorf("service.url must be set")
	}
	if c.Batch.Jobs <= 0 {
		return fmt.Errorf("batch.jobs must be > 0")
	}
	if c.Batch.QueueDepth <= 0 {
		return fmt.Errorf("batch.queue_depth must be > 0")
	}
	if c.Browser.NavTimeoutSec <= 0 || c.Browser.SubmitTimeoutSec <= 0 || c.Browser.ActionTimeoutSec <= 0 {
		return fmt.Errorf("browser timeouts must be > 0")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must be set")
	}
	return nil
}

// NavTimeout converts the navigation budget into a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Browser.NavTimeoutSec) * time.Second
}

// ActionTimeout bounds individual element-fill operations.
func (c Config) ActionTimeout() time.Duration {
	return time.Duration(c.Browser.ActionTimeoutSec) * time.Second
}

// SubmitTimeout bounds the wait for the post-submission redirect.
func (c Config) SubmitTimeout() time.Duration {
	return time.Duration(c.Browser.SubmitTimeoutSec) * time.Second
}

// PreflightTimeout bounds the form probe request.
func (c Config) PreflightTimeout() time.Duration {
	return time.Duration(c.Preflight.TimeoutSeconds) * time.Second
}
