package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Overlay keys. Unknown keys in the overlay file are ignored.
const (
	EnvAPIToken    = "AICHATBOT_API_TOKEN"
	EnvAPIKey      = "AICHATBOT_API_KEY"
	EnvAPIURL      = "AICHATBOT_API_URL"
	EnvModel       = "AICHATBOT_MODEL"
	EnvPrefix      = "AICHATBOT_PREFIX"
	EnvTemperature = "AICHATBOT_TEMPERATURE"
)

const overlayTemplate = `# AI ChatBot overlay
# Values here override aichatbot.yaml. Keep secrets in this file.
# One KEY=VALUE per line. Single-quote values containing $ or " #",
# e.g. AICHATBOT_API_KEY='sk-$abc'; unquoted and double-quoted values
# expand $VAR and drop a trailing " #comment".

# Token for the minimal backend (sent as X-API-TOKEN)
AICHATBOT_API_TOKEN=YOUR_API_TOKEN

# Endpoint URL (default http://localhost:4567/chat)
# AICHATBOT_API_URL=http://localhost:4567/chat

# Bearer key for chat-completion backends
# AICHATBOT_API_KEY=

# Model name for chat-completion backends
# AICHATBOT_MODEL=

# Chat trigger prefix
# AICHATBOT_PREFIX=!ai

# Sampling temperature 0.0-1.0
# AICHATBOT_TEMPERATURE=0.7
`

// LoadOverlay applies <dir>/aichatbot.env to cfg. A missing file is created
// from a template and leaves cfg untouched; a file that cannot be read is
// logged and skipped.
func LoadOverlay(dir string, cfg *Config, log *slog.Logger) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	path := filepath.Join(dir, OverlayName)

	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if errors.Is(err, fs.ErrNotExist) {
		writeTemplate(path, log)
		return
	}

	if err != nil {
		log.Error("config: overlay read failed", "path", path, "error", err)
		return
	}

	if ApplyOverlay(cfg, ParseOverlay(string(data), log), log) {
		log.Info("config overlay applied", "path", path)
	}
}

// ParseOverlay parses overlay text one line at a time. Blank lines and lines
// starting with # are skipped. A line that does not parse is logged and
// skipped without affecting the others; a later key overrides an earlier one.
func ParseOverlay(text string, log *slog.Logger) map[string]string {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	env := make(map[string]string)

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// The trailing newline lets "KEY=" parse as an empty value.
		kv, err := godotenv.Unmarshal(line + "\n")
		delete(kv, "")

		if err == nil && len(kv) == 0 {
			err = errors.New("no KEY=VALUE pair")
		}

		if err != nil {
			log.Warn("config: overlay line skipped", "line", i+1, "error", err)
			continue
		}

		maps.Copy(env, kv)
	}

	return env
}

// ApplyOverlay copies recognized keys from env into cfg and reports whether
// anything was applied. A temperature that does not parse or lies outside
// 0.0-1.0 keeps the previous value.
func ApplyOverlay(cfg *Config, env map[string]string, log *slog.Logger) bool {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	changed := false

	set := func(key string, dst *string) {
		if v, ok := env[key]; ok {
			*dst = v
			changed = true
		}
	}

	set(EnvAPIToken, &cfg.APIToken)
	set(EnvAPIKey, &cfg.APIKey)
	set(EnvAPIURL, &cfg.APIURL)
	set(EnvModel, &cfg.Model)
	set(EnvPrefix, &cfg.Prefix)

	if v, ok := env[EnvTemperature]; ok {
		t, err := strconv.ParseFloat(v, 64)

		switch {
		case err != nil:
			log.Warn("config: malformed temperature, keeping previous value", "key", EnvTemperature, "value", v, "temperature", cfg.Temperature)
		case !validTemperature(t):
			log.Warn("config: temperature out of range, keeping previous value", "key", EnvTemperature, "value", v, "temperature", cfg.Temperature)
		default:
			cfg.Temperature = t
			changed = true
		}
	}

	return changed
}

func writeTemplate(path string, log *slog.Logger) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		log.Error("config: create dir failed", "path", path, "error", err)
		return
	}

	if err := os.WriteFile(path, []byte(overlayTemplate), 0o600); err != nil {
		log.Error("config: overlay template write failed", "path", path, "error", err)
		return
	}

	log.Info("config overlay template created", "path", path)
}
