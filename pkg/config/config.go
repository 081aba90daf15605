// Package config loads the chatbot settings file and the key/value overlay
// that overrides it.
//
// Loading never fails: a missing or unreadable settings file is replaced by
// defaults written back to disk, invalid values are repaired with a warning,
// and overlay problems are logged and skipped.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/germanamz/aichatbot/pkg/modeladapter"
)

// Backend shapes selectable with the api key.
const (
	APIMinimal = "minimal"
	APIChat    = "chat"
)

// Default values written to fresh settings files.
const (
	DefaultURL         = "http://localhost:4567/chat"
	DefaultPrefix      = "!ai"
	DefaultTemperature = 0.7
	DefaultAPI         = APIMinimal

	DefaultSystemPrompt = "你是 Minecraft 伺服器裡的 AI 助手，正在回答玩家 {player} 的問題。" +
		"回答請簡短。若需要執行遊戲指令，只回覆一行以 / 開頭的指令。"
)

// Config is the settings record. It is treated as immutable once Load returns.
type Config struct {
	APIURL       string  `yaml:"apiUrl"`
	APIToken     string  `yaml:"apiToken"` //nolint:gosec // configuration field, not a hardcoded secret
	APIKey       string  `yaml:"apiKey"`   //nolint:gosec // configuration field, not a hardcoded secret
	Model        string  `yaml:"model"`
	SystemPrompt string  `yaml:"systemPrompt"`
	Prefix       string  `yaml:"prefix"`
	Temperature  float64 `yaml:"temperature"`

	API               string `yaml:"api"`               // "minimal" or "chat".
	MaxConcurrent     int    `yaml:"maxConcurrent"`     // In-flight AI calls (0 = default).
	RequestsPerMinute int    `yaml:"requestsPerMinute"` // 0 = no limit.
	ConnectTimeout    string `yaml:"connectTimeout"`    // Duration string; empty = backend default.
	ReadTimeout       string `yaml:"readTimeout"`       // Duration string; empty = backend default.
}

// Defaults returns the settings used when no file exists.
func Defaults() Config {
	return Config{
		APIURL:        DefaultURL,
		APIToken:      modeladapter.PlaceholderToken,
		SystemPrompt:  DefaultSystemPrompt,
		Prefix:        DefaultPrefix,
		Temperature:   DefaultTemperature,
		API:           DefaultAPI,
		MaxConcurrent: modeladapter.DefaultMaxConcurrent,
	}
}

// Auth returns the credential scheme selected from APIToken and APIKey.
func (c Config) Auth() modeladapter.Auth {
	return modeladapter.SelectAuth(c.APIToken, c.APIKey)
}

// Timeouts parses ConnectTimeout and ReadTimeout. Empty values yield zero.
func (c Config) Timeouts() (connect, read time.Duration, err error) {
	connect, err = parseDuration("connectTimeout", c.ConnectTimeout)
	if err != nil {
		return 0, 0, err
	}

	read, err = parseDuration("readTimeout", c.ReadTimeout)
	if err != nil {
		return 0, 0, err
	}

	return connect, read, nil
}

// Validate checks that the configuration is internally consistent. All
// problems are reported together.
func (c Config) Validate() error {
	var errs []error

	if c.APIURL == "" {
		errs = append(errs, errors.New("config: apiUrl is required"))
	}

	if c.Prefix == "" {
		errs = append(errs, errors.New("config: prefix is required"))
	}

	if !validTemperature(c.Temperature) {
		errs = append(errs, fmt.Errorf("config: temperature %v outside 0.0-1.0", c.Temperature))
	}

	if c.API != APIMinimal && c.API != APIChat {
		errs = append(errs, fmt.Errorf("config: unknown api %q", c.API))
	}

	if c.MaxConcurrent < 0 {
		errs = append(errs, fmt.Errorf("config: maxConcurrent %d is negative", c.MaxConcurrent))
	}

	if c.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("config: requestsPerMinute %d is negative", c.RequestsPerMinute))
	}

	if _, err := parseDuration("connectTimeout", c.ConnectTimeout); err != nil {
		errs = append(errs, err)
	}

	if _, err := parseDuration("readTimeout", c.ReadTimeout); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// repaired returns a copy with every invalid field reset to its default.
func (c Config) repaired() Config {
	d := Defaults()

	if c.APIURL == "" {
		c.APIURL = d.APIURL
	}

	if c.Prefix == "" {
		c.Prefix = d.Prefix
	}

	if !validTemperature(c.Temperature) {
		c.Temperature = d.Temperature
	}

	if c.API != APIMinimal && c.API != APIChat {
		c.API = d.API
	}

	if c.MaxConcurrent < 0 {
		c.MaxConcurrent = d.MaxConcurrent
	}

	if c.RequestsPerMinute < 0 {
		c.RequestsPerMinute = 0
	}

	if _, err := parseDuration("connectTimeout", c.ConnectTimeout); err != nil {
		c.ConnectTimeout = ""
	}

	if _, err := parseDuration("readTimeout", c.ReadTimeout); err != nil {
		c.ReadTimeout = ""
	}

	return c
}

func validTemperature(t float64) bool {
	return t >= 0 && t <= 1
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", field, err)
	}

	if d < 0 {
		return 0, fmt.Errorf("config: %s %q is negative", field, s)
	}

	return d, nil
}
