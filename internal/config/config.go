package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const defaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"

type Config struct {
	AppName string
	Env     string
	Host    string
	Port    int

	// StoreBackend selects the conversation store: "bolt" or "sqlite".
	StoreBackend string
	BoltPath     string
	SQLitePath   string

	JWTSecret          string
	AccessTokenMinutes int

	GeminiEndpoint string
	GeminiAPIKey   string

	CORSOrigins []string
	Debug       bool
}

func Load() (*Config, error) {
	cfg := &Config{
		AppName: getEnv("APP_NAME", "chatgpt2025 API"),
		Env:     getEnv("APP_ENV", "development"),
		Host:    getEnv("HTTP_HOST", "0.0.0.0"),
		Port:    getEnvAsInt("HTTP_PORT", 8000),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", "bolt")),
		BoltPath:     getEnv("BOLT_PATH", "data/chats.db"),
		SQLitePath:   getEnv("SQLITE_PATH", "data/chats.sqlite"),

		JWTSecret:          os.Getenv("JWT_SECRET"),
		AccessTokenMinutes: getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60*24),

		GeminiEndpoint: getEnv("GEMINI_API_URL", defaultGeminiEndpoint),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),

		Debug: getEnvAsBool("DEBUG", true),
	}

	cors := getEnv("CORS_ORIGINS", "")
	if cors != "" {
		parts := strings.Split(cors, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		cfg.CORSOrigins = parts
	} else {
		cfg.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if cfg.StoreBackend != "bolt" && cfg.StoreBackend != "sqlite" {
		return nil, fmt.Errorf("unknown STORE_BACKEND %q (want bolt or sqlite)", cfg.StoreBackend)
	}

	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
