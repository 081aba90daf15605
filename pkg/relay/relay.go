// Package relay connects chat events to the AI backend and hands replies back
// to the host.
//
// A Relay spawns one worker goroutine per triggering message. Workers never
// touch the Host: every host call (thinking notice, broadcast, command
// dispatch) runs on the single goroutine executing Run, which mirrors hosts
// that forbid mutation outside their own thread.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Messages shown in game chat.
const (
	ThinkingNotice      = "§e[AI] §7正在思考..."
	ChatPrefix          = "§b[AI] §f"
	CommandNotice       = "§b[AI] §f執行指令: §a/"
	CommandFailedPrefix = "§c[AI] §f指令執行失敗: "
	InternalErrorNotice = "§c內部錯誤"
)

// DefaultQueueSize is the owner-loop task buffer used when none is set.
const DefaultQueueSize = 64

// ErrClosed is returned by Flush and Drain once the relay is closed.
var ErrClosed = errors.New("relay: closed")

// Host is the game side of the relay. Methods are only called from Run.
type Host interface {
	// Tell sends text to one player.
	Tell(ctx context.Context, player, text string) error
	// Broadcast sends text to every player.
	Broadcast(ctx context.Context, text string) error
	// Dispatch executes a command (without leading slash) with server
	// privileges. A returned error is shown to players.
	Dispatch(ctx context.Context, command string) error
}

// ChatEvent is one chat message observed by the host.
type ChatEvent struct {
	Player  string
	Message string
}

// Options configures a Relay.
type Options struct {
	Prefix     string        // Trigger prefix, e.g. "!ai".
	Logger     *slog.Logger  // Defaults to a discarding logger.
	Events     *EventBus     // Optional observer bus.
	QueueSize  int           // Owner-loop buffer (default 64).
	Timeout    time.Duration // Per-query deadline (0 = none).
	Middleware []Middleware  // Applied outside the built-in logging and recovery.
}

type task func(ctx context.Context)

// Relay routes triggering chat messages to a Completer and delivers the
// replies through a Host.
type Relay struct {
	completer Completer
	host      Host
	prefix    string
	log       *slog.Logger
	events    *EventBus

	tasks chan task
	done  chan struct{}

	baseCtx context.Context
	cancel  context.CancelFunc

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// New creates a Relay. Call Run to start delivering host calls.
func New(completer Completer, host Host, opts Options) *Relay {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	size := opts.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}

	mws := append([]Middleware{}, opts.Middleware...)
	if opts.Timeout > 0 {
		mws = append(mws, Timeout(opts.Timeout))
	}

	mws = append(mws, Logger(log), Recovery(log))

	ctx, cancel := context.WithCancel(context.Background())

	return &Relay{
		completer: Chain(completer, mws...),
		host:      host,
		prefix:    opts.Prefix,
		log:       log,
		events:    opts.Events,
		tasks:     make(chan task, size),
		done:      make(chan struct{}),
		baseCtx:   ctx,
		cancel:    cancel,
	}
}

// Run executes host calls until ctx is done or the relay is closed. It must
// be running for replies to be delivered.
func (r *Relay) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.done:
			return nil
		case t := <-r.tasks:
			t(ctx)
		}
	}
}

// HandleChat inspects a chat message and, when it triggers, tells the sender
// the AI is thinking and starts a worker for the query. It reports whether the
// message triggered. It never blocks: not on the backend and not on the
// owner loop.
func (r *Relay) HandleChat(_ context.Context, ev ChatEvent) bool {
	prompt, ok := ParsePrompt(ev.Message, r.prefix)
	if !ok {
		return false
	}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return false
	}
	r.wg.Add(1)
	r.mu.RUnlock()

	id := uuid.NewString()

	r.log.Info("ai query received", "request_id", id, "player", ev.Player, "prompt", prompt)
	r.events.Publish(Event{Kind: EventQuery, RequestID: id, Player: ev.Player, Text: prompt})

	notice := func(ctx context.Context) {
		if err := r.host.Tell(ctx, ev.Player, ThinkingNotice); err != nil {
			r.log.Warn("tell failed", "request_id", id, "player", ev.Player, "error", err)
		}
	}

	// The host's reader calls HandleChat and must keep reading so command
	// results reach Dispatch; a full queue costs the notice, not the reader.
	select {
	case r.tasks <- notice:
	default:
		r.log.Warn("thinking notice dropped, queue full", "request_id", id, "player", ev.Player)
	}

	go r.work(id, ev.Player, prompt)

	return true
}

func (r *Relay) work(id, player, prompt string) {
	defer r.wg.Done()

	ctx := WithRequestID(r.baseCtx, id)

	reply := Classify(r.completer.Complete(ctx, prompt, player))

	r.events.Publish(Event{Kind: EventReply, RequestID: id, Player: player, Text: reply.Text})

	r.submit(ctx, func(ctx context.Context) {
		r.deliver(ctx, id, player, reply)
	})
}

// submit queues t for the owner loop. The task is dropped when ctx ends or
// the relay closes first.
func (r *Relay) submit(ctx context.Context, t task) {
	select {
	case r.tasks <- t:
	case <-ctx.Done():
		r.log.Warn("host call dropped", "request_id", RequestID(ctx), "error", ctx.Err())
	case <-r.done:
	}
}

func (r *Relay) deliver(ctx context.Context, id, player string, reply Reply) {
	if reply.Kind == Chat {
		r.broadcast(ctx, id, ChatPrefix+reply.Text)
		return
	}

	if err := r.host.Dispatch(ctx, reply.Text); err != nil {
		r.log.Error("ai command failed", "request_id", id, "command", reply.Text, "error", err)
		r.events.Publish(Event{Kind: EventCommandFailed, RequestID: id, Player: player, Text: reply.Text, Err: err})
		r.broadcast(ctx, id, CommandFailedPrefix+err.Error())

		return
	}

	r.log.Info("ai command executed", "request_id", id, "command", reply.Text)
	r.events.Publish(Event{Kind: EventCommand, RequestID: id, Player: player, Text: reply.Text})
	r.broadcast(ctx, id, CommandNotice+reply.Text)
}

func (r *Relay) broadcast(ctx context.Context, id, text string) {
	if err := r.host.Broadcast(ctx, text); err != nil {
		r.log.Warn("broadcast failed", "request_id", id, "error", err)
	}
}

// Flush blocks until every host call queued before it has run. Run must be
// running.
func (r *Relay) Flush(ctx context.Context) error {
	ran := make(chan struct{})

	select {
	case r.tasks <- func(context.Context) { close(ran) }:
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrClosed
	}

	select {
	case <-ran:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrClosed
	}
}

// Drain waits for in-flight queries and then for their replies to be
// delivered. Run must be running.
func (r *Relay) Drain(ctx context.Context) error {
	workers := make(chan struct{})

	go func() {
		r.wg.Wait()
		close(workers)
	}()

	select {
	case <-workers:
	case <-ctx.Done():
		return ctx.Err()
	}

	return r.Flush(ctx)
}

// Wait blocks until every started worker has finished.
func (r *Relay) Wait() {
	r.wg.Wait()
}

// Close stops accepting messages, cancels in-flight queries and stops Run.
// Replies not yet delivered are dropped. It is safe to call more than once.
func (r *Relay) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	r.closed = true
	r.cancel()
	close(r.done)
}
