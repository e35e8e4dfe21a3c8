package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds installation-level options: where data lives and which
// external audio tools to invoke. User-facing routing preferences live in
// the settings package, not here.
type Config struct {
	DataDir string
	LogDir  string

	// External tool names, overridable for nonstandard installs
	// (e.g. pipewire's pw-play as a paplay substitute).
	Paplay   string
	Aplay    string
	Parecord string
	Ffmpeg   string
	Pactl    string
}

type fileConfig struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	Paplay   string `toml:"paplay"`
	Aplay    string `toml:"aplay"`
	Parecord string `toml:"parecord"`
	Ffmpeg   string `toml:"ffmpeg"`
	Pactl    string `toml:"pactl"`
}

func Load() (*Config, error) {
	cfg := &Config{
		DataDir:  defaultDataDir(),
		Paplay:   "paplay",
		Aplay:    "aplay",
		Parecord: "parecord",
		Ffmpeg:   "ffmpeg",
		Pactl:    "pactl",
	}

	if configPath := configFilePath(); configPath != "" {
		var fc fileConfig
		if _, err := toml.DecodeFile(configPath, &fc); err == nil {
			if fc.DataDir != "" {
				cfg.DataDir = expandTilde(fc.DataDir)
			}
			if fc.LogDir != "" {
				cfg.LogDir = expandTilde(fc.LogDir)
			}
			if fc.Paplay != "" {
				cfg.Paplay = fc.Paplay
			}
			if fc.Aplay != "" {
				cfg.Aplay = fc.Aplay
			}
			if fc.Parecord != "" {
				cfg.Parecord = fc.Parecord
			}
			if fc.Ffmpeg != "" {
				cfg.Ffmpeg = fc.Ffmpeg
			}
			if fc.Pactl != "" {
				cfg.Pactl = fc.Pactl
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.ClipsDir(), 0o755); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ClipsDir is where recorded WAV files land.
func (c *Config) ClipsDir() string {
	return filepath.Join(c.DataDir, "clips")
}

func (c *Config) ClipsFile() string {
	return filepath.Join(c.DataDir, "clips.json")
}

func (c *Config) SettingsFile() string {
	return filepath.Join(c.DataDir, "settings.json")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SOUNDBOARD_DATA_DIR"); v != "" {
		cfg.DataDir = expandTilde(v)
	}
	if v := os.Getenv("SOUNDBOARD_LOG_PATH"); v != "" {
		cfg.LogDir = expandTilde(v)
	}
}

func configFilePath() string {
	var configDir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configDir = filepath.Join(xdg, "soundboard")
	} else if home, err := os.UserHomeDir(); err == nil {
		configDir = filepath.Join(home, ".config", "soundboard")
	} else {
		return ""
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "soundboard")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "soundboard")
	}
	return filepath.Join(".", "soundboard-data")
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
