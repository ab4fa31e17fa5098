package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config captures runtime configuration for the reinvest gateway service.
type Config struct {
	ListenAddress  string  `yaml:"listen"`
	DatabasePath   string  `yaml:"database"`
	NodeURL        string  `yaml:"nodeUrl"`
	NodeAuthToken  string  `yaml:"nodeToken"`
	JWTSecret      string  `yaml:"jwtSecret"`
	RateLimitRPS   float64 `yaml:"rateLimitRps"`
	RateLimitBurst int     `yaml:"rateLimitBurst"`
	OTLPEndpoint   string  `yaml:"otlpEndpoint"`
	Environment    string  `yaml:"environment"`
}

// LoadConfig builds the configuration from the environment, with an optional
// YAML file named by REINVEST_GATEWAY_CONFIG layered underneath.
func LoadConfig() (Config, error) {
	cfg := Config{
		ListenAddress:  ":8082",
		DatabasePath:   "reinvest-gateway.db",
		RateLimitRPS:   5,
		RateLimitBurst: 10,
		Environment:    "local",
	}

	if path := strings.TrimSpace(os.Getenv("REINVEST_GATEWAY_CONFIG")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("REINVEST_GATEWAY_LISTEN")); v != "" {
		cfg.ListenAddress = v
	}
	if v := strings.TrimSpace(os.Getenv("REINVEST_GATEWAY_DB_PATH")); v != "" {
		cfg.DatabasePath = v
	}
	if v := strings.TrimSpace(os.Getenv("REINVEST_GATEWAY_NODE_URL")); v != "" {
		cfg.NodeURL = v
	}
	if v := strings.TrimSpace(os.Getenv("REINVEST_GATEWAY_NODE_TOKEN")); v != "" {
		cfg.NodeAuthToken = v
	}
	if v := strings.TrimSpace(os.Getenv("REINVEST_GATEWAY_JWT_SECRET")); v != "" {
		cfg.JWTSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("REINVEST_GATEWAY_RATE_RPS")); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid rate limit %q: %w", v, err)
		}
		cfg.RateLimitRPS = rps
	}
	if v := strings.TrimSpace(os.Getenv("REINVEST_GATEWAY_OTLP_ENDPOINT")); v != "" {
		cfg.OTLPEndpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("REINVEST_GATEWAY_ENV")); v != "" {
		cfg.Environment = v
	}

	if cfg.NodeURL == "" {
		return Config{}, fmt.Errorf("node URL is required (REINVEST_GATEWAY_NODE_URL)")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT secret is required (REINVEST_GATEWAY_JWT_SECRET)")
	}
	return cfg, nil
}
