package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	RedisURL    string
	DatabaseURL string

	MonitorAddr string

	QueueWaitSec int
	MessageDir   string

	LogLevel   string
	LogFile    string
	LogConsole bool
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		MonitorAddr:  ":8090",
		QueueWaitSec: 90,
		LogLevel:     "info",
		LogConsole:   true,
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MessageDir = strings.TrimSpace(os.Getenv("MESSAGE_DIR"))

	if v := strings.TrimSpace(os.Getenv("MONITOR_ADDR")); v != "" {
		cfg.MonitorAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("QUEUE_WAIT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.QueueWaitSec = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	cfg.LogFile = strings.TrimSpace(os.Getenv("LOG_FILE"))
	if v := strings.TrimSpace(os.Getenv("LOG_CONSOLE")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LogConsole = b
		}
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}
