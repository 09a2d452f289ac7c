// internal/common/config/loader.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"

	BackendDuckDuckGo = "duckduckgo"
	BackendGoogle     = "google"
	BackendStatic     = "static"

	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama3-70b-8192"
	DefaultGeminiModel = "gemini-2.0-flash"

	DefaultDuckDuckGoURL = "https://api.duckduckgo.com/"
	DefaultGoogleCSEURL  = "https://www.googleapis.com/customsearch/v1"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads configs/config.yaml (plus config.<APP_ENVIRONMENT>.yaml), .env and
// the process environment into a validated Config. It uses the global viper
// instance so cobra flags bound with viper.BindPFlag take part.
func Load() (*Config, error) {
	v := viper.GetViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return build(v)
}

// LoadFromFile loads configuration from a specific yaml file using a private viper instance.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	LoadEnvFile()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEnvFile loads the first .env found in the working directory, its
// parents, or the module root. It returns the path used, or "".
func LoadEnvFile() string {
	candidates := []string{".env", "../.env", "../../.env", "../../../.env"}
	if root := findProjectRoot(); root != "" {
		candidates = append(candidates, filepath.Join(root, ".env"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err == nil {
			return path
		}
	}
	return ""
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// setDefaults registers every key so AutomaticEnv can resolve LLM_API_KEY,
// SEARCH_BACKEND and friends during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "travel-planner")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.environment", "development")

	v.SetDefault("llm.provider", ProviderGroq)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", 120000)

	v.SetDefault("search.backend", BackendDuckDuckGo)
	v.SetDefault("search.base_url", "")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.engine_id", "")
	v.SetDefault("search.max_results", 3)
	v.SetDefault("search.timeout", 10000)
	v.SetDefault("search.static_text", "")

	v.SetDefault("prompts.dir", "")

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.request_timeout", 300000)
	v.SetDefault("server.min_budget", 5000)

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("quota.enabled", false)
	v.SetDefault("quota.daily_limit", 20)
	v.SetDefault("quota.key_prefix", "travel-planner:quota")

	v.SetDefault("camunda.broker_address", "")
	v.SetDefault("camunda.max_jobs_active", 10)
	v.SetDefault("camunda.timeout", 300000)
	v.SetDefault("camunda.request_timeout", 30000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills credentials from the conventional provider
// variables when the config file and LLM_API_KEY left them empty.
func overrideEmptyConfig(cfg *Config) {
	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case ProviderGemini:
			cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		default:
			cfg.LLM.APIKey = os.Getenv("GROQ_API_KEY")
		}
	}

	if cfg.Search.APIKey == "" {
		if val := os.Getenv("WEB_SEARCH_API_KEY"); val != "" {
			cfg.Search.APIKey = val
		}
	}
	if cfg.Search.EngineID == "" {
		if val := os.Getenv("WEB_SEARCH_ENGINE_ID"); val != "" {
			cfg.Search.EngineID = val
		}
	}
}

func applyDefaults(cfg *Config) {
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case ProviderGemini:
			cfg.LLM.Model = DefaultGeminiModel
		default:
			cfg.LLM.Model = DefaultGroqModel
		}
	}
	if cfg.LLM.Provider == ProviderGroq && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = DefaultGroqBaseURL
	}

	cfg.Search.Backend = strings.ToLower(strings.TrimSpace(cfg.Search.Backend))
	if cfg.Search.BaseURL == "" {
		switch cfg.Search.Backend {
		case BackendGoogle:
			cfg.Search.BaseURL = DefaultGoogleCSEURL
		case BackendDuckDuckGo:
			cfg.Search.BaseURL = DefaultDuckDuckGoURL
		}
	}
	if cfg.Search.MaxResults <= 0 {
		cfg.Search.MaxResults = 3
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 300000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 1
		}
		cfg.Workers[key] = worker
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.LLM.Provider {
	case ProviderGroq, ProviderGemini:
	default:
		return fmt.Errorf("%w: llm.provider %q is not supported", ErrInvalidConfig, cfg.LLM.Provider)
	}
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		return fmt.Errorf("%w: llm.api_key is required (set LLM_API_KEY, GROQ_API_KEY or GEMINI_API_KEY)", ErrInvalidConfig)
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("%w: llm.temperature must be within [0, 2]", ErrInvalidConfig)
	}

	switch cfg.Search.Backend {
	case BackendDuckDuckGo, BackendStatic:
	case BackendGoogle:
		if cfg.Search.APIKey == "" || cfg.Search.EngineID == "" {
			return fmt.Errorf("%w: search.api_key and search.engine_id are required for the google backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: search.backend %q is not supported", ErrInvalidConfig, cfg.Search.Backend)
	}

	if cfg.Quota.Enabled {
		if cfg.Redis.Address == "" {
			return fmt.Errorf("%w: redis.address is required when quota is enabled", ErrInvalidConfig)
		}
		if cfg.Quota.DailyLimit <= 0 {
			return fmt.Errorf("%w: quota.daily_limit must be positive", ErrInvalidConfig)
		}
	}
	return nil
}

// ValidateForWorker checks the extra settings the job worker process needs.
func ValidateForWorker(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("%w: camunda.broker_address is required", ErrInvalidConfig)
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults.
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       300000,
		MaxRetries:    1,
	}
}
