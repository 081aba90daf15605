// Package aiclient turns a player's prompt into a displayable reply string.
//
// Client renders the system-prompt template for the asking player, calls the
// configured backend and folds every failure into a short user-facing message,
// so callers always get something to show in chat.
package aiclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/germanamz/aichatbot/pkg/modeladapter"
)

// PlayerPlaceholder is replaced by the asking player's name in system prompts.
const PlayerPlaceholder = "{player}"

// User-facing failure messages.
const (
	statusMessage     = "§cAPI 請求失敗，錯誤代碼: %d"
	connectionMessage = "§c連線發生錯誤: "
)

// Client answers player prompts through a Completer.
type Client struct {
	completer    modeladapter.Completer
	systemPrompt string
	log          *slog.Logger
}

// New creates a Client. systemPrompt may contain {player}.
func New(completer modeladapter.Completer, systemPrompt string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Client{
		completer:    completer,
		systemPrompt: systemPrompt,
		log:          log,
	}
}

// RenderSystemPrompt substitutes every {player} in tmpl.
func RenderSystemPrompt(tmpl, player string) string {
	return strings.ReplaceAll(tmpl, PlayerPlaceholder, player)
}

// Complete asks the backend and returns its reply. It never fails: a non-200
// status becomes a message carrying the status code and any other error
// becomes a message carrying the error text.
func (c *Client) Complete(ctx context.Context, prompt, player string) string {
	req := modeladapter.Request{
		Player:       player,
		Prompt:       prompt,
		SystemPrompt: RenderSystemPrompt(c.systemPrompt, player),
	}

	reply, err := c.completer.Complete(ctx, req)
	if err == nil {
		return reply
	}

	var se *modeladapter.StatusError
	if errors.As(err, &se) {
		c.log.Error("ai request rejected", "player", player, "status", se.Code, "body", se.Body)
		return fmt.Sprintf(statusMessage, se.Code)
	}

	c.log.Error("ai request failed", "player", player, "error", err)

	return connectionMessage + err.Error()
}

// UsageTracker returns the backend's token tracker, or nil when the backend
// does not report usage.
func (c *Client) UsageTracker() *modeladapter.Tracker {
	if r, ok := c.completer.(modeladapter.UsageReporter); ok {
		return r.UsageTracker()
	}

	return nil
}
