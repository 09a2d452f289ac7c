// internal/common/config/config.go
package config

import "time"

// Config is the main application configuration struct.
type Config struct {
	App     AppConfig               `mapstructure:"app"`
	LLM     LLMConfig               `mapstructure:"llm"`
	Search  SearchConfig            `mapstructure:"search"`
	Prompts PromptsConfig           `mapstructure:"prompts"`
	Server  ServerConfig            `mapstructure:"server"`
	Redis   RedisConfig             `mapstructure:"redis"`
	Quota   QuotaConfig             `mapstructure:"quota"`
	Camunda CamundaConfig           `mapstructure:"camunda"`
	Workers map[string]WorkerConfig `mapstructure:"workers"`
	Logging LoggingConfig           `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// LLMConfig selects and parameterises the completion backend.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"` // groq | gemini
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
}

// SearchConfig configures the live web lookup used by the location and planner stages.
type SearchConfig struct {
	Backend    string `mapstructure:"backend"` // duckduckgo | google | static
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	EngineID   string `mapstructure:"engine_id"`
	MaxResults int    `mapstructure:"max_results"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	StaticText string `mapstructure:"static_text"`
}

// PromptsConfig optionally points at a directory of *.tmpl files overriding
// the built-in prompt templates.
type PromptsConfig struct {
	Dir string `mapstructure:"dir"`
}

type ServerConfig struct {
	Address        string  `mapstructure:"address"`
	Mode           string  `mapstructure:"mode"`            // gin mode: debug | release | test
	RequestTimeout int     `mapstructure:"request_timeout"` // milliseconds
	MinBudget      float64 `mapstructure:"min_budget"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// QuotaConfig limits how many itineraries a single client can request per day.
type QuotaConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	DailyLimit int    `mapstructure:"daily_limit"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

// WorkerConfig holds the settings applicable to every job worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // retries handed back to the broker
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// LLMTimeout is the configured model call timeout.
func (c LLMConfig) LLMTimeout() time.Duration {
	return GetDuration(c.Timeout)
}

// SearchTimeout is the HTTP client timeout for search backends.
func (c SearchConfig) SearchTimeout() time.Duration {
	return GetDuration(c.Timeout)
}
