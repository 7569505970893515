package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type ServerConfig struct {
	Addr            string
	DatabaseURL     string
	AllowedOrigin   string
	PreviewDuration time.Duration
	BreakDuration   time.Duration
	InitSchema      bool
}

type CLIConfig struct {
	APIBaseURL string
	WSBaseURL  string
}

// PreviewNoticeSeconds is the countdown value clients render during the
// market-preview window. The server-side delay is PreviewDuration, which
// tests shrink independently.
const PreviewNoticeSeconds = 10

func LoadServerFromEnv() (ServerConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("MANIA_ADDR", ":3000")
	}

	cfg := ServerConfig{
		Addr:            addr,
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		AllowedOrigin:   envDefault("MANIA_ALLOWED_ORIGIN", "http://localhost:5173"),
		PreviewDuration: envDurationDefault("MANIA_PREVIEW_DURATION", 10*time.Second),
		BreakDuration:   envDurationDefault("MANIA_BREAK_DURATION", 6*time.Second),
		InitSchema:      envBoolDefault("MANIA_INIT_SCHEMA", true),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	api := strings.TrimRight(envDefault("MANIA_API_BASE_URL", "http://localhost:3000"), "/")
	ws := strings.TrimSpace(os.Getenv("MANIA_WS_BASE_URL"))
	if ws == "" {
		ws = strings.Replace(strings.Replace(api, "https://", "wss://", 1), "http://", "ws://", 1)
	}
	return CLIConfig{APIBaseURL: api, WSBaseURL: strings.TrimRight(ws, "/")}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
