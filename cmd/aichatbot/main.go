package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// Process environment keys read when the matching flag is empty.
const (
	envBridgeURL   = "AICHATBOT_BRIDGE_URL"
	envBridgeToken = "AICHATBOT_BRIDGE_TOKEN" //nolint:gosec // variable name, not a secret
)

type options struct {
	configDir   string
	bridgeURL   string
	bridgeToken string
	console     bool
	player      string
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: aichatbot [flags]\n\nRelay prefixed game chat to an AI backend.\n\nFlags:\n")
		flag.PrintDefaults()
	}

	var opts options

	flag.StringVar(&opts.configDir, "config-dir", "config", "directory holding aichatbot.yaml and aichatbot.env")
	envFile := flag.String("env", ".env", "path to .env file (ignored if missing)")
	flag.StringVar(&opts.bridgeURL, "bridge", "", "game server bridge URL (default $"+envBridgeURL+")")
	flag.StringVar(&opts.bridgeToken, "bridge-token", "", "token sent when connecting to the bridge (default $"+envBridgeToken+")")
	flag.BoolVar(&opts.console, "console", false, "read chat lines from stdin instead of a bridge")
	flag.StringVar(&opts.player, "player", "Steve", "player name used for console chat")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if err := loadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if opts.bridgeURL == "" {
		opts.bridgeURL = os.Getenv(envBridgeURL)
	}

	if opts.bridgeToken == "" {
		opts.bridgeToken = os.Getenv(envBridgeToken)
	}

	if err := run(opts, newLogger(*debug)); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadDotEnv loads environment variables from path. A missing file is not an
// error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
