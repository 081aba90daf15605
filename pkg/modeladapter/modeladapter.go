package modeladapter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Default timeouts applied when the adapter builds its own HTTP client.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultReadTimeout    = 60 * time.Second
)

// Request is a single AI query. SystemPrompt is already rendered for Player.
type Request struct {
	Player       string
	Prompt       string
	SystemPrompt string
}

// Completer sends a query to an AI backend and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// StatusError is returned when the backend answers with a status other than
// 200 OK. Body holds the normalized error body for diagnostics.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// ModelAdapter holds shared state for backend implementations. Embed it in
// concrete adapters to get HTTP helpers, auth, custom headers, and usage
// tracking. Concrete types implement Completer with their own Complete method.
type ModelAdapter struct {
	Name           string            // Model identifier; empty for backends that pick their own.
	Temperature    float64           // Sampling temperature (0.0-1.0).
	Auth           Auth              // Authentication settings.
	URL            string            // Full endpoint URL.
	Client         *http.Client      // HTTP client; when nil one is built from the timeouts below.
	ConnectTimeout time.Duration     // Dial timeout for the built client.
	ReadTimeout    time.Duration     // Overall request timeout for the built client.
	Headers        map[string]string // Extra headers applied to every request.
	Usage          Tracker           // Token usage tracker.

	clientOnce    sync.Once
	defaultClient *http.Client
}

// New creates a ModelAdapter with the given settings.
// A nil client is replaced at call time by one honouring the adapter timeouts.
func New(url string, auth Auth, client *http.Client) ModelAdapter {
	return ModelAdapter{
		Auth:   auth,
		URL:    url,
		Client: client,
	}
}

// UsageTracker returns the adapter's token usage tracker.
func (a *ModelAdapter) UsageTracker() *Tracker { return &a.Usage }

// httpClient returns the configured client or a cached client built from
// ConnectTimeout and ReadTimeout.
func (a *ModelAdapter) httpClient() *http.Client {
	if a.Client != nil {
		return a.Client
	}

	a.clientOnce.Do(func() {
		connect := a.ConnectTimeout
		if connect <= 0 {
			connect = DefaultConnectTimeout
		}

		read := a.ReadTimeout
		if read <= 0 {
			read = DefaultReadTimeout
		}

		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.DialContext = (&net.Dialer{Timeout: connect}).DialContext

		a.defaultClient = &http.Client{Transport: transport, Timeout: read}
	})

	return a.defaultClient
}

// NewRequest builds an *http.Request for the adapter URL with auth and custom
// headers already applied.
func (a *ModelAdapter) NewRequest(ctx context.Context, method string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.URL, body)
	if err != nil {
		return nil, err
	}

	a.Auth.Apply(req.Header)

	for k, v := range a.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// Do sends the request using the adapter's HTTP client.
func (a *ModelAdapter) Do(req *http.Request) (*http.Response, error) {
	return a.httpClient().Do(req) //nolint:gosec // URL comes from trusted configuration, not user input.
}

// PostJSON encodes payload as JSON, POSTs it to the adapter URL, and returns
// the response body as normalized text (see [ReadText]). Any status other than
// 200 OK yields a *StatusError carrying the normalized error body.
func (a *ModelAdapter) PostJSON(ctx context.Context, payload any) (string, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(payload); err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := a.NewRequest(ctx, http.MethodPost, &buf)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := a.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	text, readErr := ReadText(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode, Body: text}
	}

	if readErr != nil {
		return "", fmt.Errorf("read response: %w", readErr)
	}

	return text, nil
}

// ReadText reads r line by line, trims each line, and concatenates the
// results. Embedded newlines of multi-line bodies are not preserved.
func ReadText(r io.Reader) (string, error) {
	var b strings.Builder

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for sc.Scan() {
		b.WriteString(strings.TrimSpace(sc.Text()))
	}

	return b.String(), sc.Err()
}
