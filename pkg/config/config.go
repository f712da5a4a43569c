package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "balcao"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv         = "BALCAO_APP_ENV"
	EnvTerminalID     = "BALCAO_TERMINAL_ID"
	EnvBackendBaseURL = "BALCAO_BACKEND_BASE_URL"
)

type Config struct {
	App      AppConfig
	Backend  BackendConfig
	Terminal TerminalConfig
	Journal  JournalConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Backend.validateBaseURL(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BALCAO_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"BALCAO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BALCAO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type BackendConfig struct {
	BaseURL     string        `envconfig:"BALCAO_BACKEND_BASE_URL" required:"true"`
	AccessToken string        `envconfig:"BALCAO_BACKEND_ACCESS_TOKEN"`
	Timeout     time.Duration `envconfig:"BALCAO_BACKEND_TIMEOUT" default:"15s"`

	RetryMaxAttempts int           `envconfig:"BALCAO_BACKEND_RETRY_MAX_ATTEMPTS" default:"3"`
	RetryBaseDelay   time.Duration `envconfig:"BALCAO_BACKEND_RETRY_BASE_DELAY" default:"250ms"`
}

func (b *BackendConfig) validateBaseURL() error {
	trimmed := strings.TrimRight(strings.TrimSpace(b.BaseURL), "/")
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL", EnvBackendBaseURL)
	}
	b.BaseURL = trimmed
	return nil
}

type TerminalConfig struct {
	ID               string `envconfig:"BALCAO_TERMINAL_ID" default:"pos-1"`
	Operator         string `envconfig:"BALCAO_TERMINAL_OPERATOR"`
	SearchMinLength  int    `envconfig:"BALCAO_SEARCH_MIN_LENGTH" default:"2"`
	SearchResultCap  int    `envconfig:"BALCAO_SEARCH_RESULT_CAP" default:"10"`
	RequireOpenTill  bool   `envconfig:"BALCAO_REQUIRE_OPEN_TILL" default:"true"`
	BeepOnScanErrors bool   `envconfig:"BALCAO_BEEP_ON_SCAN_ERRORS" default:"true"`
}

type JournalConfig struct {
	Path    string `envconfig:"BALCAO_JOURNAL_PATH" default:"balcao-journal.db"`
	Enabled bool   `envconfig:"BALCAO_JOURNAL_ENABLED" default:"true"`
}
