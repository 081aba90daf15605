package aiclient

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/germanamz/aichatbot/pkg/config"
	"github.com/germanamz/aichatbot/pkg/modeladapter"
	"github.com/germanamz/aichatbot/pkg/providers/minimal"
	"github.com/germanamz/aichatbot/pkg/providers/openai"
)

// BackendFactory creates a Completer from the settings record.
type BackendFactory func(cfg config.Config) (modeladapter.Completer, error)

var (
	factoryMu   sync.RWMutex
	factories   = map[string]BackendFactory{}
	defaultsReg sync.Once
)

func ensureDefaults() {
	defaultsReg.Do(func() {
		factories[config.APIMinimal] = newMinimal
		factories[config.APIChat] = newChat
	})
}

// RegisterBackend registers a factory under the given api kind, replacing any
// existing one.
func RegisterBackend(kind string, factory BackendFactory) {
	ensureDefaults()

	factoryMu.Lock()
	defer factoryMu.Unlock()

	factories[kind] = factory
}

func getFactory(kind string) (BackendFactory, bool) {
	ensureDefaults()

	factoryMu.RLock()
	defer factoryMu.RUnlock()

	f, ok := factories[kind]
	return f, ok
}

func newMinimal(cfg config.Config) (modeladapter.Completer, error) {
	a := minimal.New(cfg.APIURL, cfg.Auth())
	if err := applyTimeouts(&a.ModelAdapter, cfg); err != nil {
		return nil, err
	}

	return a, nil
}

func newChat(cfg config.Config) (modeladapter.Completer, error) {
	a := openai.New(cfg.APIURL, cfg.Auth(), cfg.Model, cfg.Temperature)
	if err := applyTimeouts(&a.ModelAdapter, cfg); err != nil {
		return nil, err
	}

	return a, nil
}

// applyTimeouts overrides the backend defaults with configured, non-zero values.
func applyTimeouts(a *modeladapter.ModelAdapter, cfg config.Config) error {
	connect, read, err := cfg.Timeouts()
	if err != nil {
		return fmt.Errorf("aiclient: %w", err)
	}

	if connect > 0 {
		a.ConnectTimeout = connect
	}

	if read > 0 {
		a.ReadTimeout = read
	}

	return nil
}

// BuildCompleter creates the Completer for cfg.API and wraps it with the
// configured concurrency ceiling and request rate.
func BuildCompleter(cfg config.Config) (*modeladapter.LimitedCompleter, error) {
	factory, ok := getFactory(cfg.API)
	if !ok {
		return nil, fmt.Errorf("aiclient: unknown api %q", cfg.API)
	}

	c, err := factory(cfg)
	if err != nil {
		return nil, err
	}

	return modeladapter.NewLimitedCompleter(c, modeladapter.LimitOpts{
		MaxConcurrent: cfg.MaxConcurrent,
		RPM:           cfg.RequestsPerMinute,
	}), nil
}

// NewFromConfig builds the backend for cfg and returns a Client using it.
func NewFromConfig(cfg config.Config, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	lc, err := BuildCompleter(cfg)
	if err != nil {
		return nil, err
	}

	connect, read, _ := cfg.Timeouts()

	log.Info("ai backend ready",
		"api", cfg.API,
		"url", cfg.APIURL,
		"auth", cfg.Auth().Kind(),
		"model", cfg.Model,
		"max_concurrent", lc.MaxConcurrent(),
		"rpm", cfg.RequestsPerMinute,
		"connect_timeout", orDefault(connect),
		"read_timeout", orDefault(read),
	)

	return New(lc, cfg.SystemPrompt, log), nil
}

func orDefault(d time.Duration) string {
	if d == 0 {
		return "default"
	}

	return d.String()
}
