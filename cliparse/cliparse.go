package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string

	LLMProvider string
	LLMAPIKey   string
	LLMModel    string
	LLMBaseURL  string

	CallLimit         int
	StepDelay         time.Duration
	StrictCardinality bool
	BroadcastAll      bool

	// Per-IP request limit on /api routes, 0 disables
	RequestsPerMinute int
}

// ParseFlags validates flags and sets port number
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	// A .env file is optional; real environment variables win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	fs := flag.NewFlagSet("opinion-sim", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// LLM provider
	fs.StringVar(&cfg.LLMProvider, "provider", "", "LLM provider (openai or gemini)")
	fs.StringVar(&cfg.LLMModel, "model", "", "LLM model name")
	fs.StringVar(&cfg.LLMAPIKey, "api-key", "", "LLM API key (prefer env)")

	callLimit := fs.Int("call-limit", -1, "Total LLM calls allowed for this process (0 denies all)")
	stepDelay := fs.Duration("step-delay", -1, "Pause between progress steps")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		port, err := envInt("PORT", 3318)
		if err != nil {
			return Config{}, err
		}
		cfg.Port = port
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("invalid database type %q (use sqlite or postgres)", cfg.DatabaseType)
	}

	if cfg.LLMProvider == "" {
		cfg.LLMProvider = os.Getenv("LLM_PROVIDER")
		if cfg.LLMProvider == "" {
			cfg.LLMProvider = "openai"
		}
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = os.Getenv("LLM_MODEL")
	}
	if cfg.LLMProvider == "gemini" {
		cfg.LLMBaseURL = os.Getenv("GEMINI_BASE_URL")
	} else {
		cfg.LLMBaseURL = os.Getenv("OPENAI_BASE_URL")
	}

	// Credential - MUST be provided for the selected provider
	if cfg.LLMAPIKey == "" {
		switch cfg.LLMProvider {
		case "openai":
			cfg.LLMAPIKey = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			cfg.LLMAPIKey = os.Getenv("GEMINI_API_KEY")
		default:
			return Config{}, fmt.Errorf("invalid LLM provider %q (use openai or gemini)", cfg.LLMProvider)
		}
	}
	if cfg.LLMAPIKey == "" {
		if cfg.LLMProvider == "gemini" {
			return Config{}, errors.New("GEMINI_API_KEY required")
		}
		return Config{}, errors.New("OPENAI_API_KEY required")
	}

	// Tuning
	cfg.CallLimit = *callLimit
	if cfg.CallLimit < 0 {
		limit, err := envInt("API_CALL_LIMIT", 50)
		if err != nil {
			return Config{}, err
		}
		cfg.CallLimit = limit
	}

	cfg.StepDelay = *stepDelay
	if cfg.StepDelay < 0 {
		cfg.StepDelay = time.Second
		if s := os.Getenv("STEP_DELAY"); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil || d < 0 {
				return Config{}, errors.New("invalid STEP_DELAY env variable")
			}
			cfg.StepDelay = d
		}
	}

	var err error
	if cfg.StrictCardinality, err = envBool("STRICT_CARDINALITY"); err != nil {
		return Config{}, err
	}
	if cfg.BroadcastAll, err = envBool("BROADCAST_ALL"); err != nil {
		return Config{}, err
	}
	if cfg.RequestsPerMinute, err = envInt("REQUESTS_PER_MINUTE", 0); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return v, nil
}

func envBool(key string) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s env variable", key)
	}
	return v, nil
}
