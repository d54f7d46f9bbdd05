// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/speakup-gd/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Port            string
	GRPCPort        string
	FrontendURL     string
	LogLevel        string
	LLM             LLM
	Storage         Storage
	NATSURL         string
	Discussion      Discussion
	ConversationLog ConversationLogConfig
	RateLimit       RateLimit
}

// LLM selects and configures the language generation backend.
type LLM struct {
	Provider        string // openai, azure, gemini, ollama, offline
	Model           string
	OpenAIKey       string
	OpenAIBaseURL   string
	AzureEndpoint   string
	AzureKey        string
	AzureAPIVersion string
	GeminiKey       string
	GCPProject      string
	GCPLocation     string
	OllamaURL       string
	ClassifyTimeout time.Duration
	BotTimeout      time.Duration
	EvalTimeout     time.Duration
}

// Storage selects where finished discussion results are kept.
type Storage struct {
	Backend     string // sqlite, postgres, firestore, memory
	DBPath      string
	DatabaseURL string
	GCPProject  string
}

// Discussion holds session behaviour settings.
type Discussion struct {
	DefaultDuration time.Duration
	EndWait         time.Duration
	SessionTTL      time.Duration
	ResultRetention time.Duration
	SweepInterval   time.Duration
	RandomSeed      int64
	PersonasFile    string
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// RateLimit bounds how many discussion messages one user may send per window.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// endWaitSlack is added to the message budget when GD_END_WAIT is unset.
const endWaitSlack = 10 * time.Second

// MessageBudget is the longest one message can hold a session: classifying the
// user's text, then a full bot chain where every turn is generated and classified.
func (l LLM) MessageBudget() time.Duration {
	return l.ClassifyTimeout + domain.MaxChainLength*(l.BotTimeout+l.ClassifyTimeout)
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GRPCPort:    getEnv("GRPC_PORT", ""),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LLM: LLM{
			Provider:        strings.ToLower(getEnv("LLM_PROVIDER", "offline")),
			Model:           getEnv("LLM_MODEL", ""),
			OpenAIKey:       getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
			AzureEndpoint:   getEnv("AZURE_OPENAI_ENDPOINT", ""),
			AzureKey:        getEnv("AZURE_OPENAI_KEY", ""),
			AzureAPIVersion: getEnv("AZURE_OPENAI_API_VERSION", "2024-02-15-preview"),
			GeminiKey:       getEnv("GEMINI_API_KEY", ""),
			GCPProject:      getEnv("GCP_PROJECT", ""),
			GCPLocation:     getEnv("GCP_LOCATION", ""),
			OllamaURL:       getEnv("OLLAMA_URL", "http://localhost:11434"),
			ClassifyTimeout: getEnvDuration("LLM_CLASSIFY_TIMEOUT", 10*time.Second),
			BotTimeout:      getEnvDuration("LLM_BOT_TIMEOUT", 30*time.Second),
			EvalTimeout:     getEnvDuration("LLM_EVAL_TIMEOUT", 60*time.Second),
		},
		Storage: Storage{
			Backend:     strings.ToLower(getEnv("STORAGE_BACKEND", "sqlite")),
			DBPath:      getEnv("DB_PATH", "./data/speakup.db"),
			DatabaseURL: getEnv("DATABASE_URL", ""),
			GCPProject:  getEnv("GCP_PROJECT", ""),
		},
		NATSURL: getEnv("NATS_URL", ""),
		Discussion: Discussion{
			DefaultDuration: getEnvDuration("GD_DEFAULT_DURATION", 10*time.Minute),
			EndWait:         getEnvDuration("GD_END_WAIT", 0),
			SessionTTL:      getEnvDuration("GD_SESSION_TTL", 2*time.Hour),
			ResultRetention: getEnvDuration("GD_RESULT_RETENTION", 15*time.Minute),
			SweepInterval:   getEnvDuration("GD_SWEEP_INTERVAL", time.Minute),
			RandomSeed:      getEnvInt64("GD_RANDOM_SEED", 0),
			PersonasFile:    getEnv("GD_PERSONAS_FILE", ""),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:       getEnvBool("CONVERSATION_LOG_ENABLED", true),
			Dir:           getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			GlobalEnabled: getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/conversations/all.ndjson"),
			QueueSize:     queueSize,
		},
		RateLimit: RateLimit{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 30),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}

	if cfg.Discussion.EndWait == 0 {
		cfg.Discussion.EndWait = cfg.LLM.MessageBudget() + endWaitSlack
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.LLM.Provider {
	case "openai", "azure", "gemini", "ollama", "offline":
	default:
		return fmt.Errorf("LLM_PROVIDER %q is not supported", c.LLM.Provider)
	}
	if c.LLM.ClassifyTimeout <= 0 || c.LLM.BotTimeout <= 0 || c.LLM.EvalTimeout <= 0 {
		return fmt.Errorf("LLM timeouts must be > 0")
	}
	switch c.Storage.Backend {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case "firestore":
		if c.Storage.GCPProject == "" {
			return fmt.Errorf("GCP_PROJECT is required for the firestore backend")
		}
	case "memory":
	default:
		return fmt.Errorf("STORAGE_BACKEND %q is not supported", c.Storage.Backend)
	}
	if c.Discussion.DefaultDuration < time.Minute {
		return fmt.Errorf("GD_DEFAULT_DURATION must be at least 1m")
	}
	if budget := c.LLM.MessageBudget(); c.Discussion.EndWait < budget {
		return fmt.Errorf("GD_END_WAIT (%s) must cover the longest message turn (%s)", c.Discussion.EndWait, budget)
	}
	if c.Discussion.SweepInterval <= 0 {
		return fmt.Errorf("GD_SWEEP_INTERVAL must be > 0")
	}
	if c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.GlobalPath == "" {
		return fmt.Errorf("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go duration strings ("90s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
