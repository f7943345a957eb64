// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type HelpdeskConfig struct {
	Token       string        `yaml:"token"`
	AdminUserID string        `yaml:"admin_user_id"` // author id for posted replies
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
}

type KBConfig struct {
	Token          string        `yaml:"token"`
	DatabaseID     string        `yaml:"database_id"`
	DonePropertyID string        `yaml:"done_property_id"`
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
}

type ChatConfig struct {
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

type AIConfig struct {
	OpenAIKey       string        `yaml:"openai_key"`
	GeminiKey       string        `yaml:"gemini_key"`
	BaseURL         string        `yaml:"base_url"` // optional OpenAI-compatible endpoint
	Model           string        `yaml:"model"`
	CandidateBudget int           `yaml:"candidate_budget"` // max prompt tokens spent on candidate tickets
	Timeout         time.Duration `yaml:"timeout"`
}

type NotifyConfig struct {
	DefaultChannelID string `yaml:"default_channel_id"`
}

type CoordinatorConfig struct {
	Retention        time.Duration `yaml:"retention"`         // how long terminal requests stay in the registry
	SubscriberBuffer int           `yaml:"subscriber_buffer"` // per-sink snapshot buffer
}

type WorkerConfig struct {
	Count int `yaml:"count"`
}

type Config struct {
	Log         LogConfig         `yaml:"log"`
	Server      ServerConfig      `yaml:"server"`
	Helpdesk    HelpdeskConfig    `yaml:"helpdesk"`
	KB          KBConfig          `yaml:"kb"`
	Chat        ChatConfig        `yaml:"chat"`
	AI          AIConfig          `yaml:"ai"`
	Notify      NotifyConfig      `yaml:"notify"`
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Worker      WorkerConfig      `yaml:"worker"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Helpdesk.BaseURL == "" {
		cfg.Helpdesk.BaseURL = "https://public.missiveapp.com/v1"
	}
	if cfg.KB.BaseURL == "" {
		cfg.KB.BaseURL = "https://api.notion.com/v1"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gpt-4o-mini"
	}
	if cfg.AI.CandidateBudget <= 0 {
		cfg.AI.CandidateBudget = 6000
	}
	if cfg.Coordinator.Retention <= 0 {
		cfg.Coordinator.Retention = time.Hour
	}
	if cfg.Coordinator.SubscriberBuffer <= 0 {
		cfg.Coordinator.SubscriberBuffer = 16
	}
	if cfg.Worker.Count <= 0 {
		cfg.Worker.Count = 8
	}
	cfg.Helpdesk.Timeout = normalizeTimeout(cfg.Helpdesk.Timeout)
	cfg.KB.Timeout = normalizeTimeout(cfg.KB.Timeout)
	cfg.Chat.Timeout = normalizeTimeout(cfg.Chat.Timeout)
	cfg.AI.Timeout = normalizeTimeout(cfg.AI.Timeout)

	// Minimal validation
	if cfg.Helpdesk.Token == "" {
		return nil, errors.New("helpdesk.token is required")
	}
	if cfg.KB.Token == "" {
		return nil, errors.New("kb.token is required")
	}
	if cfg.KB.DatabaseID == "" {
		return nil, errors.New("kb.database_id is required")
	}
	if cfg.Chat.Token == "" {
		return nil, errors.New("chat.token is required")
	}
	if cfg.AI.OpenAIKey == "" && cfg.AI.GeminiKey == "" {
		return nil, errors.New("ai.openai_key or ai.gemini_key is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 60 * time.Second
	}
	return d
}
