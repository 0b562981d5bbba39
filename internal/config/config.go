package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// AppConfig holds process configuration. Environment variables win over the
// optional YAML file named by CONFIG_FILE.
type AppConfig struct {
	ListenAddr  string `yaml:"listen_addr"`
	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`
	NotifierURL string `yaml:"notifier_url"`

	RestartVoteTTL    time.Duration `yaml:"restart_vote_ttl"`
	CommitMaxAttempts int           `yaml:"commit_max_attempts"`
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:        ":8080",
		RestartVoteTTL:    5 * time.Minute,
		CommitMaxAttempts: 5,
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("NOTIFIER_URL")); v != "" {
		cfg.NotifierURL = v
	}
	if v := strings.TrimSpace(os.Getenv("RESTART_VOTE_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil && d > 0 {
			cfg.RestartVoteTTL = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("COMMIT_MAX_ATTEMPTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CommitMaxAttempts = n
		}
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	return cfg, nil
}
