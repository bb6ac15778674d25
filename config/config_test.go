package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c360studio/speclint/document"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Specs.Dir != "specs" {
		t.Errorf("expected default specs dir specs, got %s", cfg.Specs.Dir)
	}
	if cfg.Specs.Language != "auto" {
		t.Errorf("expected default language auto, got %s", cfg.Specs.Language)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default server addr :8080, got %s", cfg.Server.Addr)
	}
	if !cfg.NATS.Embedded {
		t.Error("expected embedded NATS by default")
	}
	if cfg.Watch.DebounceDelay != "500ms" {
		t.Errorf("expected default debounce 500ms, got %s", cfg.Watch.DebounceDelay)
	}
	if cfg.Scan.Src != "." {
		t.Errorf("expected default scan src ., got %s", cfg.Scan.Src)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing specs dir",
			modify:  func(c *Config) { c.Specs.Dir = "" },
			wantErr: true,
		},
		{
			name:    "unknown language",
			modify:  func(c *Config) { c.Specs.Language = "fr" },
			wantErr: true,
		},
		{
			name:    "explicit japanese",
			modify:  func(c *Config) { c.Specs.Language = "ja" },
			wantErr: false,
		},
		{
			name:    "missing server addr",
			modify:  func(c *Config) { c.Server.Addr = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWatchConfigGetDebounceDelay(t *testing.T) {
	tests := []struct {
		name  string
		delay string
		want  time.Duration
	}{
		{"default when empty", "", 500 * time.Millisecond},
		{"parsed value", "2s", 2 * time.Second},
		{"default on invalid value", "soon", 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := WatchConfig{DebounceDelay: tt.delay}
			if got := cfg.GetDebounceDelay(); got != tt.want {
				t.Errorf("GetDebounceDelay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfigLanguage(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Language() != document.LanguageAuto {
		t.Errorf("expected auto language, got %s", cfg.Language())
	}

	cfg.Specs.Language = "ja"
	if cfg.Language() != document.LanguageJapanese {
		t.Errorf("expected ja language, got %s", cfg.Language())
	}

	cfg.Specs.Language = ""
	if cfg.Language() != document.LanguageAuto {
		t.Errorf("expected auto language for empty setting, got %s", cfg.Language())
	}
}

func TestConfigRuleOptions(t *testing.T) {
	cfg := DefaultConfig()
	if opts := cfg.RuleOptions(); len(opts) != 0 {
		t.Errorf("expected no rule options by default, got %d", len(opts))
	}

	cfg.Validate.DirectPairCycles = true
	if opts := cfg.RuleOptions(); len(opts) != 1 {
		t.Errorf("expected one rule option, got %d", len(opts))
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temp file with config
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
specs:
  dir: "docs/specs"
  language: "en"
  patterns:
    - "**/requirements.md"
validate:
  direct_pair_cycles: true
server:
  addr: ":9090"
nats:
  url: "nats://test:4222"
watch:
  debounce_delay: "1s"
  exclude_dirs:
    - ".git"
    - "build"
scan:
  src: "./src"
  skip_dirs:
    - "generated"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Specs.Dir != "docs/specs" {
		t.Errorf("expected specs dir docs/specs, got %s", cfg.Specs.Dir)
	}
	if cfg.Specs.Language != "en" {
		t.Errorf("expected language en, got %s", cfg.Specs.Language)
	}
	if len(cfg.Specs.Patterns) != 1 {
		t.Errorf("expected 1 pattern, got %d", len(cfg.Specs.Patterns))
	}
	if !cfg.Validate.DirectPairCycles {
		t.Error("expected direct_pair_cycles to be set")
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("expected server addr :9090, got %s", cfg.Server.Addr)
	}
	if cfg.NATS.URL != "nats://test:4222" {
		t.Errorf("expected NATS URL nats://test:4222, got %s", cfg.NATS.URL)
	}
	if cfg.Watch.GetDebounceDelay() != time.Second {
		t.Errorf("expected debounce 1s, got %v", cfg.Watch.GetDebounceDelay())
	}
	if len(cfg.Watch.ExcludeDirs) != 2 {
		t.Errorf("expected 2 exclude dirs, got %d", len(cfg.Watch.ExcludeDirs))
	}
	if cfg.Scan.Src != "./src" {
		t.Errorf("expected scan src ./src, got %s", cfg.Scan.Src)
	}
	if len(cfg.Scan.SkipDirs) != 1 {
		t.Errorf("expected 1 skip dir, got %d", len(cfg.Scan.SkipDirs))
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Specs: SpecsConfig{
			Dir: "docs",
		},
		NATS: NATSConfig{
			URL: "nats://remote:4222",
		},
	}

	base.Merge(override)

	if base.Specs.Dir != "docs" {
		t.Errorf("expected specs dir docs, got %s", base.Specs.Dir)
	}
	// Language should remain from base since override didn't set it
	if base.Specs.Language != "auto" {
		t.Errorf("expected language to remain auto, got %s", base.Specs.Language)
	}
	if base.NATS.URL != "nats://remote:4222" {
		t.Errorf("expected NATS URL nats://remote:4222, got %s", base.NATS.URL)
	}
	// Setting an external URL disables the embedded server
	if base.NATS.Embedded {
		t.Error("expected embedded NATS to be disabled when URL is set")
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Specs.Dir = "saved/specs"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	// Verify file was created
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	// Load and verify
	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Specs.Dir != "saved/specs" {
		t.Errorf("expected specs dir saved/specs, got %s", loaded.Specs.Dir)
	}
}

func TestLoaderApplyEnv(t *testing.T) {
	t.Setenv(EnvServerAddr, ":7070")
	t.Setenv(EnvNATSURL, "nats://env:4222")
	t.Setenv(EnvSpecsDir, "env/specs")

	cfg := DefaultConfig()
	NewLoader(nil).applyEnv(cfg)

	if cfg.Server.Addr != ":7070" {
		t.Errorf("expected server addr :7070, got %s", cfg.Server.Addr)
	}
	if cfg.NATS.URL != "nats://env:4222" {
		t.Errorf("expected NATS URL nats://env:4222, got %s", cfg.NATS.URL)
	}
	if cfg.NATS.Embedded {
		t.Error("expected embedded NATS to be disabled when URL is set")
	}
	if cfg.Specs.Dir != "env/specs" {
		t.Errorf("expected specs dir env/specs, got %s", cfg.Specs.Dir)
	}
}
