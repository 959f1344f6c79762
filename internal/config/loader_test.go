package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	def := DefaultConfig()
	if cfg.Agents.Defaults.Model != def.Agents.Defaults.Model {
		t.Errorf("expected default model %q, got %q", def.Agents.Defaults.Model, cfg.Agents.Defaults.Model)
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, map[string]any{
		"agents": map[string]any{
			"defaults": map[string]any{
				"model":     "openai/gpt-4o",
				"maxTokens": 2048,
			},
		},
		"docs": map[string]any{
			"url": "https://docs.example.com/mcp",
		},
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Agents.Defaults.Model != "openai/gpt-4o" {
		t.Errorf("expected model %q, got %q", "openai/gpt-4o", cfg.Agents.Defaults.Model)
	}
	if cfg.Agents.Defaults.MaxTokens != 2048 {
		t.Errorf("expected maxTokens 2048, got %d", cfg.Agents.Defaults.MaxTokens)
	}
	if cfg.Docs.URL != "https://docs.example.com/mcp" {
		t.Errorf("expected docs url, got %q", cfg.Docs.URL)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{not valid json"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error for invalid JSON (falls back to default), got: %v", err)
	}
	def := DefaultConfig()
	if cfg.Agents.Defaults.Model != def.Agents.Defaults.Model {
		t.Errorf("expected default model %q, got %q", def.Agents.Defaults.Model, cfg.Agents.Defaults.Model)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok-from-env")
	t.Setenv("OPENROUTER_API_KEY", "sk-or-env")

	dir := t.TempDir()
	path := writeConfig(t, dir, map[string]any{
		"channels": map[string]any{
			"telegram": map[string]any{"token": "tok-from-file"},
		},
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Channels.Telegram.Token != "tok-from-env" {
		t.Errorf("env token must win over file, got %q", cfg.Channels.Telegram.Token)
	}
	if cfg.Providers.OpenRouter.APIKey != "sk-or-env" {
		t.Errorf("env api key not applied, got %q", cfg.Providers.OpenRouter.APIKey)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	original := DefaultConfig()
	original.Agents.Defaults.Model = "openrouter/deepseek-v3"
	original.Cache.MaxEntries = 99

	if err := Save(&original, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Agents.Defaults.Model != original.Agents.Defaults.Model {
		t.Errorf("model mismatch: got %q, want %q", loaded.Agents.Defaults.Model, original.Agents.Defaults.Model)
	}
	if loaded.Cache.MaxEntries != 99 {
		t.Errorf("cache maxEntries mismatch: got %d", loaded.Cache.MaxEntries)
	}
}

func TestSave_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := DefaultConfig()
	if err := Save(&cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected permissions 0600, got %04o", perm)
	}
}

func TestLoad_PartialConfig_UsesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, map[string]any{
		"agents": map[string]any{
			"defaults": map[string]any{
				"model": "custom/model",
			},
		},
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	def := DefaultConfig()
	if cfg.Agents.Defaults.Model != "custom/model" {
		t.Errorf("expected model %q, got %q", "custom/model", cfg.Agents.Defaults.Model)
	}
	if cfg.Agents.Defaults.Temperature != def.Agents.Defaults.Temperature {
		t.Errorf("expected default temperature %v, got %v", def.Agents.Defaults.Temperature, cfg.Agents.Defaults.Temperature)
	}
	if cfg.Health.Port != def.Health.Port {
		t.Errorf("expected default health port %d, got %d", def.Health.Port, cfg.Health.Port)
	}
}

func TestMatchProvider(t *testing.T) {
	cfg := DefaultConfig()
	if p := cfg.MatchProvider("openai/gpt-4o"); p != nil {
		t.Error("no credentials configured, expected nil")
	}

	cfg.Providers.OpenRouter.APIKey = "sk-or"
	cfg.Providers.OpenAI.APIKey = "sk-oa"

	if p := cfg.MatchProvider("openai/gpt-4o"); p != &cfg.Providers.OpenAI {
		t.Error("openai/ prefix should pick the OpenAI credentials")
	}
	if p := cfg.MatchProvider("deepseek/deepseek-chat"); p != &cfg.Providers.OpenRouter {
		t.Error("unknown prefix should fall back to OpenRouter")
	}
}
