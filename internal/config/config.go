package config

import (
	"fmt"
	"time"

	"github.com/postloop/content-pipeline/internal/logger"
)

// Default service configuration values.
const (
	defaultServiceName    = "content-pipeline"
	defaultServiceVersion = "1.0.0"
	defaultServicePort    = 8090
)

// Default database configuration values.
const (
	defaultDBHost         = "localhost"
	defaultDBPort         = 5432
	defaultDBUser         = "postgres"
	defaultDBName         = "content_pipeline"
	defaultDBSSLMode      = "disable"
	defaultDBMaxConns     = 25
	defaultDBMaxIdleConns = 5
	defaultDBConnLifetime = time.Hour
)

// Default provider budgets. The polling bounds define the worst-case
// latency contract of the whole pipeline (roughly two minutes combined).
const (
	defaultProviderTimeout      = 10 * time.Second
	defaultGenerationTimeout    = 60 * time.Second
	defaultScraperPollAttempts  = 12
	defaultScraperPollInterval  = 5 * time.Second
	defaultHumanizerAttempts    = 20
	defaultHumanizerInterval    = 3 * time.Second
	defaultAutomationAttempts   = 5
	defaultAutomationInterval   = 2 * time.Second
	defaultGenerationMaxTokens  = 1024
	defaultHumanizerReadability = "High School"
	defaultHumanizerPurpose     = "General Writing"
	defaultHumanizerStrength    = "Balanced"
	defaultGrammarLanguage      = "en-US"
)

// Provider modes.
const (
	// ProviderModeLive calls the real provider APIs.
	ProviderModeLive = "live"
	// ProviderModeFixture serves deterministic fixture responses, for
	// offline development and tests.
	ProviderModeFixture = "fixture"
)

// Config holds the application configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   logger.Config   `yaml:"logging"`
	Providers ProvidersConfig `yaml:"providers"`
}

// ServiceConfig holds service identity and runtime settings.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `env:"PIPELINE_PORT" yaml:"port"`
	Debug   bool   `env:"APP_DEBUG"     yaml:"debug"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `env:"POSTGRES_HOST"     yaml:"host"`
	Port            int           `env:"POSTGRES_PORT"     yaml:"port"`
	User            string        `env:"POSTGRES_USER"     yaml:"user"`
	Password        string        `env:"POSTGRES_PASSWORD" yaml:"password"`
	Database        string        `env:"POSTGRES_DB"       yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxConnections  int           `yaml:"max_connections"`
	MaxIdleConns    int           `yaml:"max_idle_connections"`
	ConnMaxLifetime time.Duration `yaml:"connection_max_lifetime"`
}

// RedisConfig holds settings for the optional in-flight run guard.
// An empty Addr disables the guard entirely.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"     yaml:"addr"`
	Password string        `env:"REDIS_PASSWORD" yaml:"password"`
	GuardTTL time.Duration `yaml:"guard_ttl"`
}

// AuthConfig holds authentication settings for dashboard routes.
type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET" yaml:"jwt_secret"`
}

// ProvidersConfig selects provider implementations and carries one section
// per external capability. API keys are injected here at process start;
// there are deliberately no compiled-in fallbacks.
type ProvidersConfig struct {
	Mode       string           `env:"PROVIDERS_MODE" yaml:"mode"`
	Generation GenerationConfig `yaml:"generation"`
	Humanizer  HumanizerConfig  `yaml:"humanizer"`
	Grammar    GrammarConfig    `yaml:"grammar"`
	Detector   DetectorConfig   `yaml:"detector"`
	Mailer     MailerConfig     `yaml:"mailer"`
	Scraper    ScraperConfig    `yaml:"scraper"`
	Automation AutomationConfig `yaml:"automation"`
}

// GenerationConfig configures the content-generation provider.
type GenerationConfig struct {
	APIKey    string        `env:"GENERATION_API_KEY" yaml:"api_key"`
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// HumanizerConfig configures the async humanization provider.
type HumanizerConfig struct {
	BaseURL      string        `env:"HUMANIZER_BASE_URL" yaml:"base_url"`
	APIKey       string        `env:"HUMANIZER_API_KEY"  yaml:"api_key"`
	Readability  string        `yaml:"readability"`
	Purpose      string        `yaml:"purpose"`
	Strength     string        `yaml:"strength"`
	Timeout      time.Duration `yaml:"timeout"`
	PollAttempts int           `yaml:"poll_attempts"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// GrammarConfig configures the grammar-correction provider.
type GrammarConfig struct {
	BaseURL  string        `env:"GRAMMAR_BASE_URL" yaml:"base_url"`
	Language string        `yaml:"language"`
	Timeout  time.Duration `yaml:"timeout"`
}

// DetectorConfig configures the AI-detection scoring provider.
type DetectorConfig struct {
	BaseURL string        `env:"DETECTOR_BASE_URL" yaml:"base_url"`
	APIKey  string        `env:"DETECTOR_API_KEY"  yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// MailerConfig configures the notification delivery provider.
type MailerConfig struct {
	BaseURL string        `env:"MAILER_BASE_URL" yaml:"base_url"`
	APIKey  string        `env:"MAILER_API_KEY"  yaml:"api_key"`
	From    string        `yaml:"from"`
	Timeout time.Duration `yaml:"timeout"`
}

// ScraperConfig configures the profile-scraping provider.
type ScraperConfig struct {
	BaseURL      string        `env:"SCRAPER_BASE_URL" yaml:"base_url"`
	APIKey       string        `env:"SCRAPER_API_KEY"  yaml:"api_key"`
	Timeout      time.Duration `yaml:"timeout"`
	PollAttempts int           `yaml:"poll_attempts"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// AutomationConfig configures the automation-trigger provider. An empty
// AgentID means the feature is disabled, which is not an error.
type AutomationConfig struct {
	BaseURL      string        `env:"AUTOMATION_BASE_URL" yaml:"base_url"`
	APIKey       string        `env:"AUTOMATION_API_KEY"  yaml:"api_key"`
	AgentID      string        `env:"AUTOMATION_AGENT_ID" yaml:"agent_id"`
	Timeout      time.Duration `yaml:"timeout"`
	PollAttempts int           `yaml:"poll_attempts"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Load loads configuration from a YAML file, applies defaults, then env
// overrides, then validates.
func Load(path string) (*Config, error) {
	cfg, loadErr := load(path, setDefaults)
	if loadErr != nil {
		return nil, fmt.Errorf("load config: %w", loadErr)
	}

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return cfg, nil
}

// ValidationError describes a rejected configuration field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config field %s %s", e.Field, e.Message)
}

// maxPort is the highest valid TCP port.
const maxPort = 65535

// Validate checks that the configuration is complete enough to start.
// Live provider mode requires every provider credential up front so a
// missing key fails the process instead of a stage mid-run.
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > maxPort {
		return &ValidationError{Field: "service.port", Message: "must be a valid port"}
	}

	if c.Database.Host == "" {
		return &ValidationError{Field: "database.host", Message: "is required"}
	}
	if c.Database.Database == "" {
		return &ValidationError{Field: "database.database", Message: "is required"}
	}

	if c.Providers.Mode != ProviderModeLive && c.Providers.Mode != ProviderModeFixture {
		return &ValidationError{Field: "providers.mode", Message: "must be live or fixture"}
	}

	if c.Providers.Mode == ProviderModeFixture {
		return nil
	}

	required := []struct {
		field string
		value string
	}{
		{"providers.generation.api_key", c.Providers.Generation.APIKey},
		{"providers.humanizer.base_url", c.Providers.Humanizer.BaseURL},
		{"providers.humanizer.api_key", c.Providers.Humanizer.APIKey},
		{"providers.grammar.base_url", c.Providers.Grammar.BaseURL},
		{"providers.detector.base_url", c.Providers.Detector.BaseURL},
		{"providers.mailer.base_url", c.Providers.Mailer.BaseURL},
		{"providers.mailer.api_key", c.Providers.Mailer.APIKey},
		{"providers.scraper.base_url", c.Providers.Scraper.BaseURL},
		{"providers.scraper.api_key", c.Providers.Scraper.APIKey},
	}
	for _, r := range required {
		if r.value == "" {
			return &ValidationError{Field: r.field, Message: "is required in live mode"}
		}
	}

	return nil
}

// setDefaults applies default values to all configuration sections.
func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setDatabaseDefaults(&cfg.Database)
	setProviderDefaults(&cfg.Providers)
	cfg.Logging.SetDefaults()

	if cfg.Redis.GuardTTL == 0 {
		cfg.Redis.GuardTTL = 5 * time.Minute
	}
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}
	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
	if s.Port == 0 {
		s.Port = defaultServicePort
	}
}

func setDatabaseDefaults(d *DatabaseConfig) {
	if d.Host == "" {
		d.Host = defaultDBHost
	}
	if d.Port == 0 {
		d.Port = defaultDBPort
	}
	if d.User == "" {
		d.User = defaultDBUser
	}
	if d.Database == "" {
		d.Database = defaultDBName
	}
	if d.SSLMode == "" {
		d.SSLMode = defaultDBSSLMode
	}
	if d.MaxConnections == 0 {
		d.MaxConnections = defaultDBMaxConns
	}
	if d.MaxIdleConns == 0 {
		d.MaxIdleConns = defaultDBMaxIdleConns
	}
	if d.ConnMaxLifetime == 0 {
		d.ConnMaxLifetime = defaultDBConnLifetime
	}
}

func setProviderDefaults(p *ProvidersConfig) {
	if p.Mode == "" {
		p.Mode = ProviderModeLive
	}

	if p.Generation.Model == "" {
		p.Generation.Model = "claude-sonnet-4-20250514"
	}
	if p.Generation.MaxTokens == 0 {
		p.Generation.MaxTokens = defaultGenerationMaxTokens
	}
	if p.Generation.Timeout == 0 {
		p.Generation.Timeout = defaultGenerationTimeout
	}

	if p.Humanizer.Readability == "" {
		p.Humanizer.Readability = defaultHumanizerReadability
	}
	if p.Humanizer.Purpose == "" {
		p.Humanizer.Purpose = defaultHumanizerPurpose
	}
	if p.Humanizer.Strength == "" {
		p.Humanizer.Strength = defaultHumanizerStrength
	}
	if p.Humanizer.Timeout == 0 {
		p.Humanizer.Timeout = defaultProviderTimeout
	}
	if p.Humanizer.PollAttempts == 0 {
		p.Humanizer.PollAttempts = defaultHumanizerAttempts
	}
	if p.Humanizer.PollInterval == 0 {
		p.Humanizer.PollInterval = defaultHumanizerInterval
	}

	if p.Grammar.Language == "" {
		p.Grammar.Language = defaultGrammarLanguage
	}
	if p.Grammar.Timeout == 0 {
		p.Grammar.Timeout = defaultProviderTimeout
	}

	if p.Detector.Timeout == 0 {
		p.Detector.Timeout = defaultProviderTimeout
	}

	if p.Mailer.Timeout == 0 {
		p.Mailer.Timeout = defaultProviderTimeout
	}

	if p.Scraper.Timeout == 0 {
		p.Scraper.Timeout = defaultProviderTimeout
	}
	if p.Scraper.PollAttempts == 0 {
		p.Scraper.PollAttempts = defaultScraperPollAttempts
	}
	if p.Scraper.PollInterval == 0 {
		p.Scraper.PollInterval = defaultScraperPollInterval
	}

	if p.Automation.Timeout == 0 {
		p.Automation.Timeout = defaultProviderTimeout
	}
	if p.Automation.PollAttempts == 0 {
		p.Automation.PollAttempts = defaultAutomationAttempts
	}
	if p.Automation.PollInterval == 0 {
		p.Automation.PollInterval = defaultAutomationInterval
	}
}
