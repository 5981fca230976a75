package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config represents the application configuration
type Config struct {
	// Google Calendar Configuration
	Google GoogleConfig `env:", prefix=GOOGLE_"`

	// Agent Configuration
	Agent AgentConfig `env:", prefix=AGENT_"`

	// Server Configuration
	Server ServerConfig `env:", prefix=SERVER_"`

	// Logging Configuration
	Logging LoggingConfig `env:", prefix=LOG_"`

	// Application Configuration
	App AppConfig `env:", prefix=APP_"`

	// LLM Configuration
	LLM LLMConfig `env:", prefix=LLM_"`
}

// GoogleConfig holds Google Calendar API related configuration
type GoogleConfig struct {
	// CalendarID is the target Google Calendar ID to use
	CalendarID string `env:"CALENDAR_ID, default=primary"`

	// ServiceAccountJSON contains Google Service Account credentials in JSON format
	ServiceAccountJSON string `env:"CALENDAR_SA_JSON"`

	// CredentialsPath is the path to Google credentials file (alternative to ServiceAccountJSON)
	CredentialsPath string `env:"APPLICATION_CREDENTIALS"`

	// RequestTimeout bounds a single calendar API call
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT, default=10s"`

	// OAuthClientID is the OAuth client used for per-user calendar access
	OAuthClientID string `env:"OAUTH_CLIENT_ID"`

	// OAuthClientSecret is the secret paired with OAuthClientID
	OAuthClientSecret string `env:"OAUTH_CLIENT_SECRET"`

	// OAuthRedirectURL is where Google sends users after consent
	OAuthRedirectURL string `env:"OAUTH_REDIRECT_URL"`
}

// AgentConfig holds agent core behavior configuration
type AgentConfig struct {
	// MaxHistoryTurns is the number of conversation turns kept per user;
	// older turns are dropped, not summarized
	MaxHistoryTurns int `env:"MAX_HISTORY_TURNS, default=10"`

	// TurnTimeout bounds the processing of a single conversation turn
	TurnTimeout time.Duration `env:"TURN_TIMEOUT, default=45s"`

	// ConfirmTTL is how long a pending mutating action waits for a yes/no answer
	ConfirmTTL time.Duration `env:"CONFIRM_TTL, default=5m"`

	// DefaultTimezone is the fallback IANA timezone for users who have not set one
	DefaultTimezone string `env:"DEFAULT_TIMEZONE, default=UTC"`

	// MaxSearchResults caps how many candidate events a search returns
	MaxSearchResults int `env:"MAX_SEARCH_RESULTS, default=25"`
}

// ServerConfig holds HTTP server related configuration
type ServerConfig struct {
	// Port is the port the server will listen on
	Port string `env:"PORT, default=8080"`

	// Host is the host the server will bind to
	Host string `env:"HOST, default=0.0.0.0"`

	// Mode sets the Gin server mode (debug, release, test)
	Mode string `env:"GIN_MODE, default=release"`

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration `env:"READ_TIMEOUT, default=10s"`

	// WriteTimeout is the maximum duration before timing out writes of the response
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT, default=60s"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration `env:"IDLE_TIMEOUT, default=60s"`
}

// LoggingConfig holds logging related configuration
type LoggingConfig struct {
	// Level sets the log level (debug, info, warn, error)
	Level string `env:"LEVEL, default=info"`

	// Format sets the log format (json, console)
	Format string `env:"FORMAT, default=json"`

	// Output sets the log output destination (stdout, stderr, file path)
	Output string `env:"OUTPUT, default=stdout"`

	// EnableCaller adds caller information to log entries
	EnableCaller bool `env:"ENABLE_CALLER, default=true"`

	// EnableStacktrace adds stacktrace to error level logs
	EnableStacktrace bool `env:"ENABLE_STACKTRACE, default=true"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	// Environment specifies the deployment environment (dev, staging, prod)
	Environment string `env:"ENVIRONMENT, default=dev"`

	// DemoMode enables demo mode with mock services
	DemoMode bool `env:"DEMO_MODE, default=false"`

	// MaxRequestSize sets the maximum request body size in bytes
	MaxRequestSize int64 `env:"MAX_REQUEST_SIZE, default=1048576"` // 1MB
}

// LLMConfig holds LLM provider configuration for the planning step
type LLMConfig struct {
	// GatewayURL is the URL of the Inference Gateway or OpenAI-compatible API endpoint
	GatewayURL string `env:"GATEWAY_URL, default=http://localhost:8080/v1"`

	// Provider is the LLM provider to use through the Inference Gateway
	// Supported providers: openai, anthropic, groq, ollama, deepseek, cohere, cloudflare
	Provider string `env:"PROVIDER, default=groq"`

	// Model is the specific model to use (e.g., gpt-4o, claude-3-opus, deepseek-r1-distill-llama-70b)
	Model string `env:"MODEL, default=deepseek-r1-distill-llama-70b"`

	// Timeout is the timeout for LLM requests
	Timeout time.Duration `env:"TIMEOUT, default=30s"`

	// Enabled determines if LLM planning is enabled; when disabled the agent
	// falls back to deterministic keyword planning
	Enabled bool `env:"ENABLED, default=true"`
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithLookuper loads configuration using a custom lookuper (useful for testing)
func LoadWithLookuper(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if !c.App.DemoMode {
		if c.Google.ServiceAccountJSON == "" && c.Google.CredentialsPath == "" {
			return fmt.Errorf("either GOOGLE_CALENDAR_SA_JSON or GOOGLE_APPLICATION_CREDENTIALS must be provided when not in demo mode")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	validModes := map[string]bool{
		"debug":   true,
		"release": true,
		"test":    true,
	}
	if !validModes[c.Server.Mode] {
		return fmt.Errorf("invalid server mode '%s', must be one of: debug, release, test", c.Server.Mode)
	}

	if c.Agent.MaxHistoryTurns <= 0 {
		return fmt.Errorf("AGENT_MAX_HISTORY_TURNS must be greater than 0, got %d", c.Agent.MaxHistoryTurns)
	}
	if c.Agent.MaxSearchResults <= 0 {
		return fmt.Errorf("AGENT_MAX_SEARCH_RESULTS must be greater than 0, got %d", c.Agent.MaxSearchResults)
	}
	if _, err := time.LoadLocation(c.Agent.DefaultTimezone); err != nil {
		return fmt.Errorf("invalid AGENT_DEFAULT_TIMEZONE '%s': %w", c.Agent.DefaultTimezone, err)
	}

	if c.LLM.Enabled {
		if c.LLM.GatewayURL == "" {
			return fmt.Errorf("LLM_GATEWAY_URL is required when LLM is enabled")
		}
		if c.LLM.Provider == "" {
			return fmt.Errorf("LLM_PROVIDER is required when LLM is enabled")
		}

		validProviders := map[string]bool{
			"openai":     true,
			"anthropic":  true,
			"groq":       true,
			"ollama":     true,
			"deepseek":   true,
			"cohere":     true,
			"cloudflare": true,
		}
		if !validProviders[c.LLM.Provider] {
			return fmt.Errorf("invalid LLM provider '%s', must be one of: openai, anthropic, groq, ollama, deepseek, cohere, cloudflare", c.LLM.Provider)
		}

		if c.LLM.Model == "" {
			return fmt.Errorf("LLM_MODEL is required when LLM is enabled")
		}
	}

	return nil
}

// GetServerAddress returns the formatted server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction returns true if the application is running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "prod" || c.App.Environment == "production"
}

// IsDevelopment returns true if the application is running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "dev" || c.App.Environment == "development"
}

// ShouldUseMockService returns true if mock services should be used
func (c *Config) ShouldUseMockService() bool {
	return c.App.DemoMode
}
