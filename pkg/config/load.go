package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// File names inside the configuration directory.
const (
	FileName       = "aichatbot.yaml"
	LegacyFileName = "aichatbot.json"
	OverlayName    = "aichatbot.env"
)

// Load reads <dir>/aichatbot.yaml, repairs invalid values and applies the
// overlay file. It never fails; problems are logged on log.
//
// A missing settings file is created from Defaults. When only the older
// aichatbot.json exists it is read instead and migrated to YAML. A settings
// file that cannot be parsed is replaced by defaults.
func Load(dir string, log *slog.Logger) Config {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	path := filepath.Join(dir, FileName)

	cfg, err := readFile(path)

	switch {
	case err == nil:
		log.Info("config loaded", "path", path)
	case errors.Is(err, fs.ErrNotExist):
		cfg = loadLegacy(dir, log)
	default:
		log.Error("config: read failed, using defaults", "path", path, "error", err)
		cfg = Defaults()
		saveLogged(dir, cfg, log)
	}

	LoadOverlay(dir, &cfg, log)

	if err := cfg.Validate(); err != nil {
		log.Warn("config: invalid values reset to defaults", "path", path, "error", err)
		cfg = cfg.repaired()
	}

	return cfg
}

func loadLegacy(dir string, log *slog.Logger) Config {
	legacy := filepath.Join(dir, LegacyFileName)

	cfg, err := readFile(legacy)

	switch {
	case err == nil:
		log.Info("config migrated", "from", legacy, "to", filepath.Join(dir, FileName))
	case errors.Is(err, fs.ErrNotExist):
		cfg = Defaults()
	default:
		log.Error("config: read failed, using defaults", "path", legacy, "error", err)
		cfg = Defaults()
	}

	saveLogged(dir, cfg, log)

	return cfg
}

// readFile parses path on top of Defaults, so omitted keys keep their default.
// JSON files parse as YAML.
func readFile(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes cfg to <dir>/aichatbot.yaml, creating dir when needed.
func Save(dir string, cfg Config) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}

	return nil
}

func saveLogged(dir string, cfg Config, log *slog.Logger) {
	if err := Save(dir, cfg); err != nil {
		log.Error("config: save failed", "error", err)
		return
	}

	log.Info("config saved", "path", filepath.Join(dir, FileName))
}
