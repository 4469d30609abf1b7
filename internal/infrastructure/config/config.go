package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process-level configuration of the monitoring client.
// Session settings (server URL, frame interval, ...) live in the settings
// store instead, see Provider.
type Config struct {
	Addr            string
	LogLevel        string
	DevMode         bool
	InsecureTLS     bool
	CORSAllowOrigin string
	// Settings store file (YAML). Empty keeps settings in memory only.
	ConfigFile string
	// Video sources exposed by the filesim host, as name=dir pairs or bare dirs.
	Sources []string
	// Fixed delay between reconnection attempts
	ReconnectDelay time.Duration
	// Engine.IO protocol revision spoken to the backend (3 or 4)
	EngineIO int
	// Timeouts for the websocket handshake and socket.io CONNECT reply
	HandshakeTimeout time.Duration
}

func FromEnv() Config {
	cfg := Config{
		Addr:            getEnv("ADDR", ":9092"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CORSAllowOrigin: getEnv("CORS_ALLOW_ORIGIN", "*"),
		ConfigFile:      getEnv("CONFIG_FILE", ""),
	}
	if os.Getenv("DEV_MODE") == "1" || os.Getenv("DEV_MODE") == "true" {
		cfg.DevMode = true
	}
	if os.Getenv("INSECURE_TLS") == "1" || os.Getenv("INSECURE_TLS") == "true" {
		cfg.InsecureTLS = true
	}
	if v := strings.TrimSpace(os.Getenv("SOURCES")); v != "" {
		cfg.Sources = splitCSV(v)
	}
	cfg.ReconnectDelay = time.Duration(getEnvInt("RECONNECT_DELAY_MS", 2000)) * time.Millisecond
	cfg.HandshakeTimeout = time.Duration(getEnvInt("HANDSHAKE_TIMEOUT_MS", 10000)) * time.Millisecond
	cfg.EngineIO = getEnvInt("ENGINE_IO", 4)
	if cfg.EngineIO != 3 {
		cfg.EngineIO = 4
	}
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// splitCSV splits comma-separated tokens trimming whitespace and skipping empties.
func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
