package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

const DefaultConfigPath = "runner/main.yaml"

// AppConfig holds the application configuration.
type AppConfig struct {
	Debug       bool             `yaml:"debug"`
	Headless    bool             `yaml:"headless"`
	ApiPort     string           `yaml:"api-port"`
	ScenarioDir string           `yaml:"scenario-dir"`
	Browser     AppConfigBrowser `yaml:"browser"`
	Driver      AppConfigDriver  `yaml:"driver"`
	Log         AppConfigLog     `yaml:"log"`
}

type AppConfigBrowser struct {
	ChromiumPath string   `yaml:"chromium-path"`
	Args         []string `yaml:"args"`
	UserDataDir  string   `yaml:"user-data-dir,omitempty"`
	UserAgent    string   `yaml:"user-agent,omitempty"`
	WindowWidth  int      `yaml:"window-width,omitempty"`
	WindowHeight int      `yaml:"window-height,omitempty"`
	StartURL     string   `yaml:"start-url,omitempty"`
}

// AppConfigDriver carries the Driver defaults. Durations are Go duration strings ("30s", "500ms").
type AppConfigDriver struct {
	Timeout           string `yaml:"timeout"`
	PollFrequency     string `yaml:"poll-frequency"`
	KeepAlive         *bool  `yaml:"keep-alive"`
	ScreenshotOnError *bool  `yaml:"screenshot-on-error"`
	ScreenshotDir     string `yaml:"screenshot-dir"`
	Retries           int    `yaml:"retries"`
	RetryDelay        string `yaml:"retry-delay"`

	TimeoutDuration       time.Duration `yaml:"-"`
	PollFrequencyDuration time.Duration `yaml:"-"`
	RetryDelayDuration    time.Duration `yaml:"-"`
}

type AppConfigLog struct {
	Level  string `yaml:"level"`
	ToFile bool   `yaml:"to-file"`
	File   string `yaml:"file,omitempty"`
	Indent int    `yaml:"indent"`
}

// Defaults returns a configuration with every optional value filled in.
func Defaults() *AppConfig {
	cfg := &AppConfig{}
	if err := cfg.normalize(); err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfig reads the YAML file at path; an empty path means DefaultConfigPath.
func LoadConfig(path string) (*AppConfig, error) {
	if path == "" {
		path = DefaultConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*AppConfig, error) {
	var config AppConfig
	err := yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err = config.normalize(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *AppConfig) normalize() error {
	if c.ApiPort == "" {
		c.ApiPort = "2048"
	}
	if c.ScenarioDir == "" {
		c.ScenarioDir = "runner/scenarios"
	}
	if c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0 {
		c.Browser.WindowWidth, c.Browser.WindowHeight = 1920, 1080
	}

	d := &c.Driver
	if d.KeepAlive == nil {
		d.KeepAlive = boolPtr(true)
	}
	if d.ScreenshotOnError == nil {
		d.ScreenshotOnError = boolPtr(true)
	}
	if d.ScreenshotDir == "" {
		d.ScreenshotDir = "screenshots"
	}
	if d.Retries < 0 {
		return fmt.Errorf("driver.retries must not be negative, got %d", d.Retries)
	}
	var err error
	if d.TimeoutDuration, err = parseDuration("driver.timeout", d.Timeout, 30*time.Second); err != nil {
		return err
	}
	if d.PollFrequencyDuration, err = parseDuration("driver.poll-frequency", d.PollFrequency, 500*time.Millisecond); err != nil {
		return err
	}
	if d.RetryDelayDuration, err = parseDuration("driver.retry-delay", d.RetryDelay, 0); err != nil {
		return err
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
		if c.Debug {
			c.Log.Level = "debug"
		}
	}
	if c.Log.Indent <= 0 {
		c.Log.Indent = 3
	}
	return nil
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", field, value)
	}
	return d, nil
}

func boolPtr(v bool) *bool { return &v }
