package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds everything the client needs at startup. Values come from
// defaults, then ~/.campuschat/config.yml, then environment variables
// (highest priority). A .env file in the working directory is loaded into
// the environment first if present.
type Config struct {
	APIBaseURL        string        `yaml:"api_base_url"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	TypingPollMin     time.Duration `yaml:"typing_poll_min"`
	TypingPollMax     time.Duration `yaml:"typing_poll_max"`
	DirectoryDebounce time.Duration `yaml:"directory_debounce"`
	NotifyInterval    time.Duration `yaml:"notify_interval"`
	LogFile           string        `yaml:"log_file"`
	HomeDir           string        `yaml:"-"`
}

// HomeDirPath returns the campuschat data directory (~/.campuschat).
func HomeDirPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".campuschat")
}

func defaults() Config {
	home := HomeDirPath()
	return Config{
		APIBaseURL:        "http://localhost:8000/api",
		RequestTimeout:    15 * time.Second,
		PollInterval:      4 * time.Second,
		TypingPollMin:     6 * time.Second,
		TypingPollMax:     8 * time.Second,
		DirectoryDebounce: 2 * time.Second,
		NotifyInterval:    10 * time.Second,
		LogFile:           filepath.Join(home, "campuschat.log"),
		HomeDir:           home,
	}
}

// Load builds the effective configuration.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	path := filepath.Join(cfg.HomeDir, "config.yml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	cfg.APIBaseURL = getEnv("CAMPUSCHAT_API_URL", cfg.APIBaseURL)
	cfg.LogFile = getEnv("CAMPUSCHAT_LOG_FILE", cfg.LogFile)
	cfg.RequestTimeout = getEnvDuration("CAMPUSCHAT_REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.PollInterval = getEnvDuration("CAMPUSCHAT_POLL_INTERVAL", cfg.PollInterval)
	cfg.TypingPollMin = getEnvDuration("CAMPUSCHAT_TYPING_POLL_MIN", cfg.TypingPollMin)
	cfg.TypingPollMax = getEnvDuration("CAMPUSCHAT_TYPING_POLL_MAX", cfg.TypingPollMax)
	cfg.DirectoryDebounce = getEnvDuration("CAMPUSCHAT_DIRECTORY_DEBOUNCE", cfg.DirectoryDebounce)
	cfg.NotifyInterval = getEnvDuration("CAMPUSCHAT_NOTIFY_INTERVAL", cfg.NotifyInterval)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api_base_url cannot be empty")
	}
	for name, d := range map[string]time.Duration{
		"request_timeout": c.RequestTimeout,
		"poll_interval":   c.PollInterval,
		"notify_interval": c.NotifyInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.TypingPollMin <= 0 || c.TypingPollMax <= c.TypingPollMin {
		return fmt.Errorf("typing poll band must satisfy 0 < min < max")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
