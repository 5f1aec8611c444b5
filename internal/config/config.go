package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnginePlaywright = "playwright"
	EngineChromedp   = "chromedp"
)

// Config is the full agent configuration. Values come from defaults, an optional
// YAML file, a .env file and the process environment, in increasing priority.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	Tracker TrackerConfig `mapstructure:"tracker" yaml:"tracker"`
}

type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

type BrowserConfig struct {
	Engine            string        `mapstructure:"engine" yaml:"engine"`
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	NoSandbox         bool          `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	UserDataDir       string        `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	ViewportWidth     int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight    int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	DefaultTimeout    time.Duration `mapstructure:"default_timeout" yaml:"default_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

type LLMConfig struct {
	APIKey    string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL   string        `mapstructure:"base_url" yaml:"base_url"`
	Model     string        `mapstructure:"model" yaml:"model"`
	MaxTokens int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type AgentConfig struct {
	// HistoryWindow is how many non-system messages survive a truncation.
	HistoryWindow    int           `mapstructure:"history_window" yaml:"history_window"`
	SettleDelay      time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	RateLimitRetries int           `mapstructure:"rate_limit_retries" yaml:"rate_limit_retries"`
	RateLimitBackoff time.Duration `mapstructure:"rate_limit_backoff" yaml:"rate_limit_backoff"`
	// MaxSteps of 0 means the loop runs until the model answers.
	MaxSteps       int    `mapstructure:"max_steps" yaml:"max_steps"`
	RepairJSON     bool   `mapstructure:"repair_json" yaml:"repair_json"`
	ScreenshotPath string `mapstructure:"screenshot_path" yaml:"screenshot_path"`
	PageTextPath   string `mapstructure:"page_text_path" yaml:"page_text_path"`
}

type TrackerConfig struct {
	Host    string        `mapstructure:"host" yaml:"host"`
	Port    string        `mapstructure:"port" yaml:"port"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// BaseURL returns the root URL of the reachout tracking service.
func (t TrackerConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%s", t.Host, t.Port)
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "webagent")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	v.SetDefault("browser.engine", EnginePlaywright)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("browser.user_data_dir", ".playwright_data")
	v.SetDefault("browser.viewport_width", 1280)
	v.SetDefault("browser.viewport_height", 720)
	v.SetDefault("browser.default_timeout", "30s")
	v.SetDefault("browser.navigation_timeout", "60s")

	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout", "30s")

	v.SetDefault("agent.history_window", 4)
	v.SetDefault("agent.settle_delay", "2s")
	v.SetDefault("agent.rate_limit_retries", 2)
	v.SetDefault("agent.rate_limit_backoff", "120s")
	v.SetDefault("agent.max_steps", 0)
	v.SetDefault("agent.repair_json", false)
	v.SetDefault("agent.screenshot_path", "screenshot.jpg")
	v.SetDefault("agent.page_text_path", "page_text.txt")

	v.SetDefault("tracker.host", "localhost")
	v.SetDefault("tracker.timeout", "15s")
}

// NewDefaultConfig returns a Config holding only the defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Load reads .env, the optional config file and the environment into v and
// decodes the result. An empty cfgFile looks for ./config.yaml and tolerates
// its absence.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("WEBAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names kept for existing .env files.
	_ = v.BindEnv("llm.api_key", "WEBAGENT_LLM_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("tracker.port", "WEBAGENT_TRACKER_PORT", "PORT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate reports the first setting that prevents the agent from running.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return errors.New("llm.api_key is not set (OPENAI_API_KEY)")
	}
	if c.Tracker.Port == "" {
		return errors.New("tracker.port is not set (PORT)")
	}
	switch c.Browser.Engine {
	case EnginePlaywright, EngineChromedp:
	default:
		return fmt.Errorf("unsupported browser engine %q", c.Browser.Engine)
	}
	if c.Agent.HistoryWindow < 1 {
		return fmt.Errorf("agent.history_window must be positive, got %d", c.Agent.HistoryWindow)
	}
	if c.Agent.RateLimitRetries < 0 {
		return fmt.Errorf("agent.rate_limit_retries must not be negative, got %d", c.Agent.RateLimitRetries)
	}
	return nil
}
