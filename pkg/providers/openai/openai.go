// Package openai provides a Completer for OpenAI-style chat-completion APIs.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/germanamz/aichatbot/pkg/chats/role"
	"github.com/germanamz/aichatbot/pkg/jsonfield"
	"github.com/germanamz/aichatbot/pkg/modeladapter"
)

// ContentKey is the response field holding the reply text.
const ContentKey = "content"

// DefaultReadTimeout bounds one chat-completion call.
const DefaultReadTimeout = 30 * time.Second

var _ modeladapter.Completer = (*Adapter)(nil)

// Adapter implements modeladapter.Completer for chat-completion endpoints.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter posting to url (the full endpoint, e.g.
// "https://openrouter.ai/api/v1/chat/completions").
func New(url string, auth modeladapter.Auth, model string, temperature float64) *Adapter {
	a := &Adapter{}
	a.URL = url
	a.Auth = auth
	a.Name = model
	a.Temperature = temperature
	a.ConnectTimeout = modeladapter.DefaultConnectTimeout
	a.ReadTimeout = DefaultReadTimeout

	return a
}

// Complete sends the system prompt and the player's prompt as two messages and
// returns the first choice's content.
func (a *Adapter) Complete(ctx context.Context, req modeladapter.Request) (string, error) {
	text, err := a.PostJSON(ctx, a.buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	return a.parseResponse(text), nil
}

// --- request types ---

type apiRequest struct {
	Model       string       `json:"model"`
	Messages    []apiMessage `json:"messages"`
	Temperature float64      `json:"temperature"`
}

type apiMessage struct {
	Role    role.Role `json:"role"`
	Content string    `json:"content"`
}

// --- response types ---

type apiResponse struct {
	Choices []apiChoice `json:"choices"`
	Usage   apiUsage    `json:"usage"`
}

type apiChoice struct {
	Message      apiRespMessage `json:"message"`
	FinishReason string         `json:"finish_reason"`
}

type apiRespMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type apiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// --- conversion helpers ---

func (a *Adapter) buildRequest(req modeladapter.Request) apiRequest {
	return apiRequest{
		Model: a.Name,
		Messages: []apiMessage{
			{Role: role.System, Content: req.SystemPrompt},
			{Role: role.User, Content: req.Prompt},
		},
		Temperature: a.Temperature,
	}
}

// parseResponse decodes the typed response. Bodies that do not match fall
// back to scanning for the first "content" string.
func (a *Adapter) parseResponse(text string) string {
	var resp apiResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil || len(resp.Choices) == 0 || resp.Choices[0].Message.Content == nil {
		return jsonfield.Extract(text, ContentKey)
	}

	a.Usage.Add(modeladapter.TokenCount{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	})

	return *resp.Choices[0].Message.Content
}
