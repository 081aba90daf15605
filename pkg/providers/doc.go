// Package providers groups the backend request/response shapes.
//
//   - [github.com/germanamz/aichatbot/pkg/providers/openai]: chat-completion shape (model, messages, temperature → choices[0].message.content)
//   - [github.com/germanamz/aichatbot/pkg/providers/minimal]: minimal shape ({prompt} → {answer}) used by the lightweight backend
//
// Both embed [github.com/germanamz/aichatbot/pkg/modeladapter.ModelAdapter]
// and fall back to [github.com/germanamz/aichatbot/pkg/jsonfield.Extract] when
// a response does not decode into the typed model.
package providers
