package config

import "testing"

func TestDefault_MatchesDocumentedTimeouts(t *testing.T) {
	cfg := Default()
	if cfg.ZapPollInterval.Seconds() != 1 {
		t.Fatalf("unexpected zap poll interval: %v", cfg.ZapPollInterval)
	}
	if cfg.ZapPollTimeout.Seconds() != 15 {
		t.Fatalf("unexpected zap poll timeout: %v", cfg.ZapPollTimeout)
	}
	if cfg.ZapStaleDefault.Seconds() != 300 {
		t.Fatalf("unexpected zap stale default: %v", cfg.ZapStaleDefault)
	}
}

func TestLoad_WithNoPathAppliesEnvOverrides(t *testing.T) {
	t.Setenv("PROJECT_ROOT", "/srv/vpt")
	t.Setenv("TEAM_ID", "team-9")
	t.Setenv("CLOUDFLARE_R2_ENDPOINT", "https://r2.example.com")
	t.Setenv("CLOUDFLARE_R2_ACCESS_KEY_ID", "ak")
	t.Setenv("CLOUDFLARE_R2_SECRET_ACCESS_KEY", "sk")
	t.Setenv("CLOUDFLARE_R2_PUBLIC_URL", "https://pub.example.com")
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co/rest/v1")
	t.Setenv("SUPABASE_SERVICE_KEY", "service-key")
	t.Setenv("AI_PROVIDER", "openrouter")
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("AI_MODEL", "vision-model")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ProjectRoot != "/srv/vpt" || cfg.TeamID != "team-9" {
		t.Fatalf("unexpected core fields: %+v", cfg)
	}
	if cfg.R2.Endpoint != "https://r2.example.com" || cfg.R2.AccessKeyID != "ak" ||
		cfg.R2.SecretAccessKey != "sk" || cfg.R2.PublicURLBase != "https://pub.example.com" {
		t.Fatalf("unexpected r2 config: %+v", cfg.R2)
	}
	if cfg.Supabase.URL != "https://proj.supabase.co/rest/v1" || cfg.Supabase.ServiceKey != "service-key" {
		t.Fatalf("unexpected supabase config: %+v", cfg.Supabase)
	}
	if cfg.LLM.Provider != "openrouter" || cfg.LLM.APIKey != "or-key" || cfg.LLM.Model != "vision-model" {
		t.Fatalf("unexpected llm config: %+v", cfg.LLM)
	}
}

func TestLoad_MissingFileFails(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("expected error reading a missing config file")
	}
}
