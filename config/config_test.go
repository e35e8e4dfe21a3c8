package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("SOUNDBOARD_DATA_DIR", filepath.Join(tmp, "data"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Paplay != "paplay" || cfg.Aplay != "aplay" || cfg.Parecord != "parecord" {
		t.Errorf("unexpected tool defaults: %+v", cfg)
	}
	if _, err := os.Stat(cfg.ClipsDir()); err != nil {
		t.Errorf("clips dir not created: %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	tmp := t.TempDir()
	confDir := filepath.Join(tmp, "config", "soundboard")
	if err := os.MkdirAll(confDir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := "data_dir = \"" + filepath.Join(tmp, "custom") + "\"\npaplay = \"pw-play\"\n"
	if err := os.WriteFile(filepath.Join(confDir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("SOUNDBOARD_DATA_DIR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataDir != filepath.Join(tmp, "custom") {
		t.Errorf("data_dir not honored: got %q", cfg.DataDir)
	}
	if cfg.Paplay != "pw-play" {
		t.Errorf("paplay override not honored: got %q", cfg.Paplay)
	}
	if cfg.Aplay != "aplay" {
		t.Errorf("unset tool should keep default, got %q", cfg.Aplay)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	tmp := t.TempDir()
	confDir := filepath.Join(tmp, "config", "soundboard")
	if err := os.MkdirAll(confDir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := "data_dir = \"" + filepath.Join(tmp, "from-file") + "\"\n"
	if err := os.WriteFile(filepath.Join(confDir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("SOUNDBOARD_DATA_DIR", filepath.Join(tmp, "from-env"))

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataDir != filepath.Join(tmp, "from-env") {
		t.Errorf("env should win over file: got %q", cfg.DataDir)
	}
}

func TestPaths(t *testing.T) {
	cfg := &Config{DataDir: "/data/sb"}
	if got := cfg.ClipsDir(); got != "/data/sb/clips" {
		t.Errorf("ClipsDir: got %q", got)
	}
	if got := cfg.ClipsFile(); got != "/data/sb/clips.json" {
		t.Errorf("ClipsFile: got %q", got)
	}
	if got := cfg.SettingsFile(); got != "/data/sb/settings.json" {
		t.Errorf("SettingsFile: got %q", got)
	}
}
