// Package config loads the run-time configuration for a vptcore process:
// capture-path roots, object-storage credentials, and poll intervals.
// Grounded on the teacher's engine/config.go YAML run-config loader
// (same "load from file, then env overrides" shape: a non-empty
// environment variable replaces the file's value, whether or not the
// file set one).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// R2Config holds Cloudflare R2 connection details (spec §6 env vars).
type R2Config struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PublicURLBase   string `yaml:"public_url_base"`
}

// SupabaseConfig holds the PostgREST endpoint details for the durable
// navigation-tree/execution-record store (spec §6 "Supabase").
type SupabaseConfig struct {
	URL        string `yaml:"url"`
	ServiceKey string `yaml:"service_key"`
}

// LLMConfig holds the multimodal-AI bridge's provider credentials
// (spec §4.5 subtitle/OCR/transcription external capabilities).
type LLMConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
}

// Config is the top-level vptcore run configuration.
type Config struct {
	ProjectRoot string `yaml:"project_root"`
	TeamID      string `yaml:"team_id"`

	CaptureRoot string `yaml:"capture_root"` // <capture_root>/hot, /metadata
	HotDirName  string `yaml:"hot_dir_name"`

	R2       R2Config       `yaml:"r2"`
	Supabase SupabaseConfig `yaml:"supabase"`
	LLM      LLMConfig      `yaml:"llm"`

	ZapPollInterval time.Duration `yaml:"zap_poll_interval"`
	ZapPollTimeout  time.Duration `yaml:"zap_poll_timeout"`
	ZapStaleDefault time.Duration `yaml:"zap_stale_default"`

	ScriptTimeout time.Duration `yaml:"script_timeout"`
}

// Default returns the spec's documented defaults (§5 Cancellation/timeouts).
func Default() Config {
	return Config{
		HotDirName:      "hot",
		ZapPollInterval: time.Second,
		ZapPollTimeout:  15 * time.Second,
		ZapStaleDefault: 300 * time.Second,
		ScriptTimeout:   time.Hour,
	}
}

// Load reads a YAML config file, falling back to defaults and then
// applying any environment variable overrides named in spec §6.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PROJECT_ROOT"); v != "" {
		cfg.ProjectRoot = v
	}
	if v := os.Getenv("TEAM_ID"); v != "" {
		cfg.TeamID = v
	}
	if v := os.Getenv("CLOUDFLARE_R2_ENDPOINT"); v != "" {
		cfg.R2.Endpoint = v
	}
	if v := os.Getenv("CLOUDFLARE_R2_ACCESS_KEY_ID"); v != "" {
		cfg.R2.AccessKeyID = v
	}
	if v := os.Getenv("CLOUDFLARE_R2_SECRET_ACCESS_KEY"); v != "" {
		cfg.R2.SecretAccessKey = v
	}
	if v := os.Getenv("CLOUDFLARE_R2_PUBLIC_URL"); v != "" {
		cfg.R2.PublicURLBase = v
	}
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		cfg.Supabase.URL = v
	}
	if v := os.Getenv("SUPABASE_SERVICE_KEY"); v != "" {
		cfg.Supabase.ServiceKey = v
	}
	if v := os.Getenv("AI_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("AI_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
}
