package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

type Config struct {
	App           AppConfig                 `json:"app"`
	Gateways      map[string]GatewayConfig  `json:"gateways"`
	Providers     map[string]ProviderConfig `json:"providers"`
	Memory        MemoryConfig              `json:"memory"`
	Decomposition DecompositionConfig       `json:"decomposition"`
	Metrics       MetricsConfig             `json:"metrics"`
}

type AppConfig struct {
	Name string `json:"name"` // shown in the start-up banner
}

type GatewayConfig struct {
	Token   string `json:"token"`
	Enabled bool   `json:"enabled"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
	BaseURL string `json:"base_url,omitempty"`
	Enabled bool   `json:"enabled"`
}

type MemoryConfig struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

type DecompositionConfig struct {
	MaxAttempts      int      `json:"max_attempts"`
	DefaultMandatory *bool    `json:"default_mandatory,omitempty"`
	MinSteps         int      `json:"min_steps"`
	MaxSteps         int      `json:"max_steps"`
	AllowListFormat  bool     `json:"allow_list_format"`
	FallbackCatalog  string   `json:"fallback_catalog,omitempty"`
	PromptsDir       string   `json:"prompts_dir,omitempty"`
	DenyTitles       []string `json:"deny_titles,omitempty"`
}

// Mandatory reports the default mandatory flag for generated steps.
func (d DecompositionConfig) Mandatory() bool {
	return d.DefaultMandatory == nil || *d.DefaultMandatory
}

type MetricsConfig struct {
	Addr string `json:"addr"` // empty disables the metrics endpoint
}

// LoadConfig reads path, applies defaults and environment overrides.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	cfg.applyDefaults()
	if cfg.Memory.Type != "sqlite" {
		return nil, fmt.Errorf("unsupported memory type %q", cfg.Memory.Type)
	}
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "tasksmith"
	}
	if c.Memory.Type == "" {
		c.Memory.Type = "sqlite"
	}
	if c.Memory.Path == "" {
		c.Memory.Path = "tasksmith.db"
	}
	d := &c.Decomposition
	if d.MaxAttempts <= 0 {
		d.MaxAttempts = 2
	}
	if d.MinSteps <= 0 {
		d.MinSteps = 5
	}
	if d.MaxSteps < d.MinSteps {
		d.MaxSteps = max(7, d.MinSteps)
	}
}

// applyEnv lets TASKSMITH_<PROVIDER>_API_KEY replace a configured key.
func (c *Config) applyEnv() {
	for name, p := range c.Providers {
		key := "TASKSMITH_" + strings.ToUpper(name) + "_API_KEY"
		if v := os.Getenv(key); v != "" {
			p.APIKey = v
			c.Providers[name] = p
		}
	}
}

// GetDefaultProvider returns the enabled provider with the smallest name.
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	names := make([]string, 0, len(c.Providers))
	for name, p := range c.Providers {
		if p.Enabled {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", ProviderConfig{}
	}
	sort.Strings(names)
	return names[0], c.Providers[names[0]]
}

// GetTelegramConfig returns telegram config if enabled
func (c *Config) GetTelegramConfig() (GatewayConfig, bool) {
	return c.gateway("telegram")
}

// GetDiscordConfig returns discord config if enabled
func (c *Config) GetDiscordConfig() (GatewayConfig, bool) {
	return c.gateway("discord")
}

func (c *Config) gateway(name string) (GatewayConfig, bool) {
	g, ok := c.Gateways[name]
	if ok && g.Enabled {
		return g, true
	}
	return GatewayConfig{}, false
}
