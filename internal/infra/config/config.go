package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	Environment string        `yaml:"environment"`
	HTTP        HTTPConfig    `yaml:"http"`
	Summary     SummaryConfig `yaml:"summary"`
	LLM         LLMConfig     `yaml:"llm"`
	History     HistoryConfig `yaml:"history"`
	Mail        MailConfig    `yaml:"mail"`
	Tracing     TracingConfig `yaml:"tracing"`
}

// IsProduction reports whether error stacks must be hidden.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvProduction)
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address            string          `yaml:"address"`
	BasePath           string          `yaml:"basePath"`
	ReadTimeout        time.Duration   `yaml:"readTimeout"`
	WriteTimeout       time.Duration   `yaml:"writeTimeout"`
	CORSAllowedOrigins []string        `yaml:"corsAllowedOrigins"`
	RateLimit          RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxRequests int           `yaml:"maxRequests"`
	Window      time.Duration `yaml:"window"`
	Valkey      ValkeyConfig  `yaml:"valkey"`
}

// ValkeyConfig contains connection information for shared counters.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// SummaryConfig defines the summarizer domain behaviour.
type SummaryConfig struct {
	HistoryLimit      int           `yaml:"historyLimit"`
	HeartbeatInterval time.Duration `yaml:"heartbeatInterval"`
	EstimateTokens    bool          `yaml:"estimateTokens"`
}

// LLMConfig selects and configures the generative-text provider.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	APIKey      string  `yaml:"apiKey"`
	BaseURL     string  `yaml:"baseUrl"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

// HistoryConfig selects the summary store. Mongo wins over Postgres; with
// neither configured an in-memory store is used.
type HistoryConfig struct {
	Mongo    MongoConfig    `yaml:"mongo"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// MongoConfig contains the document store connection.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// MailConfig contains the SMTP service account.
type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Configured reports whether SMTP delivery is possible.
func (m MailConfig) Configured() bool {
	return strings.TrimSpace(m.Username) != "" && m.Password != ""
}

// TracingConfig configures the OTLP exporter. An empty endpoint disables tracing.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"serviceName"`
}

// Load reads configuration from defaults, a YAML file, a .env file and
// environment variables, in increasing precedence.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := firstEnv("APP_ENV", "NODE_ENV"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	} else if v := os.Getenv("PORT"); v != "" {
		cfg.HTTP.Address = ":" + v
	}
	if v := os.Getenv("HTTP_BASE_PATH"); v != "" {
		cfg.HTTP.BasePath = v
	}
	if v := os.Getenv("HTTP_CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.CORSAllowedOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_MAX"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.MaxRequests = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_WINDOW"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.RateLimit.Window = parsed
		}
	}
	if v := os.Getenv("VALKEY_ADDR"); v != "" {
		cfg.HTTP.RateLimit.Valkey.Enabled = true
		cfg.HTTP.RateLimit.Valkey.Addr = v
	}
	if v := os.Getenv("SUMMARY_HISTORY_LIMIT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Summary.HistoryLimit = parsed
		}
	}
	if v := os.Getenv("SUMMARY_HEARTBEAT_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Summary.HeartbeatInterval = parsed
		}
	}
	if v := os.Getenv("SUMMARY_ESTIMATE_TOKENS"); v != "" {
		cfg.Summary.EstimateTokens = parseBool(v)
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = strings.ToLower(v)
	}
	if v := firstEnv("LLM_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		cfg.History.Mongo.URI = v
	}
	if v := os.Getenv("MONGO_DATABASE"); v != "" {
		cfg.History.Mongo.Database = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.History.Postgres.DSN = v
	}
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.History.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.Mail.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Mail.Port = parsed
		}
	}
	if v := os.Getenv("EMAIL_USER"); v != "" {
		cfg.Mail.Username = v
	}
	if v := os.Getenv("EMAIL_PASS"); v != "" {
		cfg.Mail.Password = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"); v != "" {
		cfg.Tracing.Insecure = parseBool(v)
	}
}

func defaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		HTTP: HTTPConfig{
			Address:     ":5001",
			BasePath:    "/api",
			ReadTimeout: 10 * time.Second,
			// Streams run until the provider finishes.
			WriteTimeout:       0,
			CORSAllowedOrigins: []string{"*"},
			RateLimit: RateLimitConfig{
				Enabled:     true,
				MaxRequests: 50,
				Window:      15 * time.Minute,
				Valkey: ValkeyConfig{
					Prefix: "summarizer:ratelimit",
				},
			},
		},
		Summary: SummaryConfig{
			HistoryLimit: 10,
		},
		LLM: LLMConfig{
			Provider:    ProviderGemini,
			Model:       "gemini-1.5-flash",
			Temperature: 0.3,
		},
		History: HistoryConfig{
			Mongo: MongoConfig{
				Database: "meeting_summarizer",
			},
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
		},
		Mail: MailConfig{
			Host: "smtp.gmail.com",
			Port: 587,
		},
		Tracing: TracingConfig{
			ServiceName: "meeting-summarizer",
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.BasePath != "" && !strings.HasPrefix(c.HTTP.BasePath, "/") {
		return errors.New("http.basePath must start with /")
	}
	if c.HTTP.WriteTimeout < 0 {
		return errors.New("http.writeTimeout cannot be negative")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.MaxRequests <= 0 {
			return errors.New("http.rateLimit.maxRequests must be positive")
		}
		if c.HTTP.RateLimit.Window <= 0 {
			return errors.New("http.rateLimit.window must be positive")
		}
		if c.HTTP.RateLimit.Valkey.Enabled && strings.TrimSpace(c.HTTP.RateLimit.Valkey.Addr) == "" {
			return errors.New("http.rateLimit.valkey.addr cannot be empty when valkey is enabled")
		}
	}
	if c.Summary.HistoryLimit <= 0 {
		return errors.New("summary.historyLimit must be positive")
	}
	if c.Summary.HeartbeatInterval < 0 {
		return errors.New("summary.heartbeatInterval cannot be negative")
	}
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider)
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return errors.New("llm.apiKey cannot be empty")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model cannot be empty")
	}
	if c.History.Mongo.URI != "" && strings.TrimSpace(c.History.Mongo.Database) == "" {
		return errors.New("history.mongo.database cannot be empty when a uri is set")
	}
	if c.Mail.Configured() && (c.Mail.Host == "" || c.Mail.Port <= 0) {
		return errors.New("mail.host and mail.port are required when credentials are set")
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
