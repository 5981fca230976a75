package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Load_DefaultValues(t *testing.T) {
	ctx := context.Background()

	lookuper := envconfig.MapLookuper(map[string]string{
		"APP_DEMO_MODE":   "true",
		"APP_ENVIRONMENT": "prod",
	})

	cfg, err := LoadWithLookuper(ctx, lookuper)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "primary", cfg.Google.CalendarID)
	assert.Equal(t, 10*time.Second, cfg.Google.RequestTimeout)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, true, cfg.Logging.EnableCaller)
	assert.Equal(t, true, cfg.Logging.EnableStacktrace)
	assert.Equal(t, "prod", cfg.App.Environment)
	assert.Equal(t, true, cfg.App.DemoMode)
	assert.Equal(t, int64(1048576), cfg.App.MaxRequestSize)
	assert.Equal(t, 10, cfg.Agent.MaxHistoryTurns)
	assert.Equal(t, 45*time.Second, cfg.Agent.TurnTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Agent.ConfirmTTL)
	assert.Equal(t, "UTC", cfg.Agent.DefaultTimezone)
	assert.Equal(t, 25, cfg.Agent.MaxSearchResults)
}

func TestConfig_Load_CustomValues(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name     string
		envVars  map[string]string
		expected func(*testing.T, *Config)
	}{
		{
			name: "google_configuration",
			envVars: map[string]string{
				"GOOGLE_CALENDAR_ID":      "team@example.com",
				"GOOGLE_CALENDAR_SA_JSON": `{"type":"service_account"}`,
				"GOOGLE_REQUEST_TIMEOUT":  "5s",
			},
			expected: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "team@example.com", cfg.Google.CalendarID)
				assert.Equal(t, `{"type":"service_account"}`, cfg.Google.ServiceAccountJSON)
				assert.Equal(t, 5*time.Second, cfg.Google.RequestTimeout)
			},
		},
		{
			name: "agent_configuration",
			envVars: map[string]string{
				"AGENT_MAX_HISTORY_TURNS": "4",
				"AGENT_TURN_TIMEOUT":      "20s",
				"AGENT_CONFIRM_TTL":       "2m",
				"AGENT_DEFAULT_TIMEZONE":  "Europe/Berlin",
				"APP_DEMO_MODE":           "true",
			},
			expected: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 4, cfg.Agent.MaxHistoryTurns)
				assert.Equal(t, 20*time.Second, cfg.Agent.TurnTimeout)
				assert.Equal(t, 2*time.Minute, cfg.Agent.ConfirmTTL)
				assert.Equal(t, "Europe/Berlin", cfg.Agent.DefaultTimezone)
			},
		},
		{
			name: "logging_configuration",
			envVars: map[string]string{
				"LOG_LEVEL":             "debug",
				"LOG_FORMAT":            "console",
				"LOG_OUTPUT":            "stderr",
				"LOG_ENABLE_CALLER":     "false",
				"LOG_ENABLE_STACKTRACE": "false",
				"APP_DEMO_MODE":         "true",
			},
			expected: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "console", cfg.Logging.Format)
				assert.Equal(t, "stderr", cfg.Logging.Output)
				assert.Equal(t, false, cfg.Logging.EnableCaller)
				assert.Equal(t, false, cfg.Logging.EnableStacktrace)
			},
		},
		{
			name: "llm_configuration",
			envVars: map[string]string{
				"LLM_PROVIDER":  "openai",
				"LLM_MODEL":     "gpt-4o",
				"APP_DEMO_MODE": "true",
			},
			expected: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "openai", cfg.LLM.Provider)
				assert.Equal(t, "gpt-4o", cfg.LLM.Model)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			envVars := map[string]string{"APP_DEMO_MODE": "true"}
			for k, v := range tc.envVars {
				envVars[k] = v
			}

			cfg, err := LoadWithLookuper(ctx, envconfig.MapLookuper(envVars))
			require.NoError(t, err)
			tc.expected(t, cfg)
		})
	}
}

func TestConfig_Validate_Failures(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name    string
		envVars map[string]string
		errMsg  string
	}{
		{
			name:    "missing_credentials_outside_demo_mode",
			envVars: map[string]string{},
			errMsg:  "GOOGLE_CALENDAR_SA_JSON",
		},
		{
			name: "invalid_log_level",
			envVars: map[string]string{
				"APP_DEMO_MODE": "true",
				"LOG_LEVEL":     "verbose",
			},
			errMsg: "invalid log level",
		},
		{
			name: "invalid_server_mode",
			envVars: map[string]string{
				"APP_DEMO_MODE":   "true",
				"SERVER_GIN_MODE": "fancy",
			},
			errMsg: "invalid server mode",
		},
		{
			name: "invalid_default_timezone",
			envVars: map[string]string{
				"APP_DEMO_MODE":          "true",
				"AGENT_DEFAULT_TIMEZONE": "Mars/Olympus_Mons",
			},
			errMsg: "invalid AGENT_DEFAULT_TIMEZONE",
		},
		{
			name: "invalid_llm_provider",
			envVars: map[string]string{
				"APP_DEMO_MODE": "true",
				"LLM_PROVIDER":  "skynet",
			},
			errMsg: "invalid LLM provider",
		},
		{
			name: "zero_history_turns",
			envVars: map[string]string{
				"APP_DEMO_MODE":           "true",
				"AGENT_MAX_HISTORY_TURNS": "0",
			},
			errMsg: "AGENT_MAX_HISTORY_TURNS",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadWithLookuper(ctx, envconfig.MapLookuper(tc.envVars))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestConfig_Helpers(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "9090"
	assert.Equal(t, "127.0.0.1:9090", cfg.GetServerAddress())

	cfg.App.Environment = "prod"
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDevelopment())

	cfg.App.Environment = "dev"
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.App.DemoMode = true
	assert.True(t, cfg.ShouldUseMockService())
}
