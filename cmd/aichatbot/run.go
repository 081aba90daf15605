package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/germanamz/aichatbot/pkg/aiclient"
	"github.com/germanamz/aichatbot/pkg/bridge"
	"github.com/germanamz/aichatbot/pkg/config"
	"github.com/germanamz/aichatbot/pkg/format"
	"github.com/germanamz/aichatbot/pkg/relay"
)

// chatSource is a Host that also produces chat events.
type chatSource interface {
	relay.Host
	Serve(ctx context.Context, handler bridge.ChatHandler) error
}

// run loads the configuration, connects the chat source and relays until
// interrupted or the source ends.
func run(opts options, log *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load(opts.configDir, log)

	client, err := aiclient.NewFromConfig(cfg, log)
	if err != nil {
		return err
	}

	var src chatSource

	switch {
	case opts.console:
		src = newConsole(os.Stdin, os.Stdout, opts.player)
	case opts.bridgeURL != "":
		conn, dialErr := bridge.Dial(ctx, opts.bridgeURL, opts.bridgeToken, log)
		if dialErr != nil {
			return dialErr
		}
		defer func() { _ = conn.Close() }()

		log.Info("bridge connected", "url", opts.bridgeURL)
		src = conn
	default:
		return errors.New("no chat source: pass -console or -bridge")
	}

	bus := relay.NewEventBus()
	r := relay.New(client, src, relay.Options{
		Prefix: cfg.Prefix,
		Logger: log,
		Events: bus,
	})

	sub := bus.Subscribe(32)
	go logEvents(sub, log)

	log.Info("relay started", "prefix", cfg.Prefix)

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)

	g.Go(func() error {
		return r.Run(runCtx)
	})

	g.Go(func() error {
		defer stop()

		err := src.Serve(runCtx, func(ctx context.Context, ev relay.ChatEvent) {
			r.HandleChat(ctx, ev)
		})
		if err != nil {
			return err
		}

		// The source ended on its own; deliver what is still in flight.
		if drainErr := r.Drain(runCtx); drainErr != nil && !errors.Is(drainErr, context.Canceled) {
			log.Warn("drain interrupted", "error", drainErr)
		}

		return nil
	})

	err = g.Wait()

	r.Close()
	r.Wait()
	bus.Unsubscribe(sub)

	logUsage(client, log)

	return err
}

func logEvents(sub *relay.Subscription, log *slog.Logger) {
	for e := range sub.C {
		attrs := []any{"kind", e.Kind, "request_id", e.RequestID, "player", e.Player, "text", format.Strip(e.Text)}
		if e.Err != nil {
			attrs = append(attrs, "error", e.Err)
		}

		log.Debug("relay event", attrs...)
	}
}

func logUsage(client *aiclient.Client, log *slog.Logger) {
	t := client.UsageTracker()
	if t == nil {
		return
	}

	total := t.Total()
	log.Info("token usage",
		"calls", t.Calls(),
		"input_tokens", total.InputTokens,
		"output_tokens", total.OutputTokens,
	)
}
