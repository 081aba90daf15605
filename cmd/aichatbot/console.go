package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/germanamz/aichatbot/pkg/bridge"
	"github.com/germanamz/aichatbot/pkg/format"
	"github.com/germanamz/aichatbot/pkg/relay"
)

var _ relay.Host = (*console)(nil)

// console is a local stand-in for the game server: stdin lines are chat from
// one player, replies are printed, and commands are echoed instead of run.
type console struct {
	in     io.Reader
	out    io.Writer
	player string
	render *format.Renderer

	whisper lipgloss.Style
	command lipgloss.Style

	mu sync.Mutex
}

func newConsole(in io.Reader, out io.Writer, player string) *console {
	lr := lipgloss.NewRenderer(out)

	return &console{
		in:      in,
		out:     out,
		player:  player,
		render:  format.NewRenderer(out),
		whisper: lr.NewStyle().Faint(true).Italic(true),
		command: lr.NewStyle().Foreground(lipgloss.Color("#55FF55")),
	}
}

func (c *console) println(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintln(c.out, s)
	return err
}

// Tell prints a message addressed to one player.
func (c *console) Tell(_ context.Context, player, text string) error {
	return c.println(c.whisper.Render("→ "+player+": ") + c.render.Render(text))
}

// Broadcast prints a message for everyone.
func (c *console) Broadcast(_ context.Context, text string) error {
	return c.println(c.render.Render(text))
}

// Dispatch echoes the command. Nothing is executed.
func (c *console) Dispatch(_ context.Context, command string) error {
	return c.println(c.command.Render("> /" + command))
}

// Serve feeds each non-empty input line to handler as chat from c.player. It
// returns nil at end of input or when ctx is done.
func (c *console) Serve(ctx context.Context, handler bridge.ChatHandler) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)

		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}

		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					return err
				default:
					return nil
				}
			}

			line = strings.TrimRight(line, "\r")
			if line == "" {
				continue
			}

			handler(ctx, relay.ChatEvent{Player: c.player, Message: line})
		}
	}
}
