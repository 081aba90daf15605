// Package minimal provides a Completer for the lightweight backend that takes a
// single {"prompt": ...} field and answers with {"answer": ...}.
package minimal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/germanamz/aichatbot/pkg/jsonfield"
	"github.com/germanamz/aichatbot/pkg/modeladapter"
)

// AnswerKey is the response field holding the reply text.
const AnswerKey = "answer"

var _ modeladapter.Completer = (*Adapter)(nil)

// Adapter implements modeladapter.Completer for the minimal shape.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter posting to url (e.g. "http://localhost:4567/chat").
func New(url string, auth modeladapter.Auth) *Adapter {
	a := &Adapter{}
	a.URL = url
	a.Auth = auth
	a.ConnectTimeout = modeladapter.DefaultConnectTimeout
	a.ReadTimeout = modeladapter.DefaultReadTimeout

	return a
}

// Prompt folds the system context and the player's turn into one string.
func Prompt(systemPrompt, player, prompt string) string {
	return systemPrompt + "\n\n玩家 " + player + " 說: " + prompt
}

// Complete posts the combined prompt and returns the answer field.
func (a *Adapter) Complete(ctx context.Context, req modeladapter.Request) (string, error) {
	payload := apiRequest{Prompt: Prompt(req.SystemPrompt, req.Player, req.Prompt)}

	text, err := a.PostJSON(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("minimal: %w", err)
	}

	var resp apiResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil || resp.Answer == nil {
		return jsonfield.Extract(text, AnswerKey), nil
	}

	return *resp.Answer, nil
}

type apiRequest struct {
	Prompt string `json:"prompt"`
}

type apiResponse struct {
	Answer *string `json:"answer"`
}
