package aiclient_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/germanamz/aichatbot/pkg/aiclient"
	"github.com/germanamz/aichatbot/pkg/config"
	"github.com/germanamz/aichatbot/pkg/modeladapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply string
	err   error
	last  modeladapter.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req modeladapter.Request) (string, error) {
	f.last = req
	return f.reply, f.err
}

func TestRenderSystemPrompt(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		want string
	}{
		{"no placeholder", "be brief", "be brief"},
		{"one placeholder", "help {player}", "help Steve"},
		{"many placeholders", "{player}, {player}!", "Steve, Steve!"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, aiclient.RenderSystemPrompt(tt.tmpl, "Steve"))
		})
	}
}

func TestClient_Complete(t *testing.T) {
	f := &fakeCompleter{reply: "/time set day"}
	c := aiclient.New(f, "you serve {player}", nil)

	got := c.Complete(context.Background(), "make it day", "Alex")

	assert.Equal(t, "/time set day", got)
	assert.Equal(t, modeladapter.Request{
		Player:       "Alex",
		Prompt:       "make it day",
		SystemPrompt: "you serve Alex",
	}, f.last)
}

func TestClient_Complete_StatusError(t *testing.T) {
	f := &fakeCompleter{err: errors.Join(errors.New("minimal"), &modeladapter.StatusError{Code: 504, Body: "timeout"})}
	c := aiclient.New(f, "", nil)

	assert.Equal(t, "§cAPI 請求失敗，錯誤代碼: 504", c.Complete(context.Background(), "x", "Steve"))
}

func TestClient_Complete_ConnectionError(t *testing.T) {
	f := &fakeCompleter{err: errors.New("connection refused")}
	c := aiclient.New(f, "", nil)

	assert.Equal(t, "§c連線發生錯誤: connection refused", c.Complete(context.Background(), "x", "Steve"))
}

func TestClient_UsageTracker(t *testing.T) {
	assert.Nil(t, aiclient.New(&fakeCompleter{}, "", nil).UsageTracker())

	lc := modeladapter.NewLimitedCompleter(&fakeCompleter{}, modeladapter.LimitOpts{})
	assert.NotNil(t, aiclient.New(lc, "", nil).UsageTracker())
}

func TestNewFromConfig_Minimal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.Header.Get("X-API-TOKEN"))
		_, _ = w.Write([]byte(`{"answer":"hi Steve"}`))
	}))
	t.Cleanup(srv.Close)

	cfg := config.Defaults()
	cfg.APIURL = srv.URL
	cfg.APIToken = "tok"

	c, err := aiclient.NewFromConfig(cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, "hi Steve", c.Complete(context.Background(), "hello", "Steve"))
}

func TestNewFromConfig_Chat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}],"usage":{"prompt_tokens":3,"completion_tokens":1}}`))
	}))
	t.Cleanup(srv.Close)

	cfg := config.Defaults()
	cfg.API = config.APIChat
	cfg.APIURL = srv.URL
	cfg.APIToken = modeladapter.PlaceholderToken
	cfg.APIKey = "sk"
	cfg.Model = "m"

	c, err := aiclient.NewFromConfig(cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, "ok", c.Complete(context.Background(), "hello", "Steve"))
	require.NotNil(t, c.UsageTracker())
	assert.Equal(t, 4, c.UsageTracker().Total().Total())
}

func TestNewFromConfig_ServerErrorIsDisplayable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	cfg := config.Defaults()
	cfg.APIURL = srv.URL

	c, err := aiclient.NewFromConfig(cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, "§cAPI 請求失敗，錯誤代碼: 500", c.Complete(context.Background(), "hello", "Steve"))
}

func TestBuildCompleter(t *testing.T) {
	cfg := config.Defaults()
	cfg.MaxConcurrent = 2

	lc, err := aiclient.BuildCompleter(cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, lc.MaxConcurrent())

	cfg.API = "unknown"
	_, err = aiclient.BuildCompleter(cfg)
	require.Error(t, err)

	cfg = config.Defaults()
	cfg.ReadTimeout = "bogus"
	_, err = aiclient.BuildCompleter(cfg)
	require.Error(t, err)
}

func TestRegisterBackend(t *testing.T) {
	f := &fakeCompleter{reply: "custom"}
	aiclient.RegisterBackend("test-custom", func(config.Config) (modeladapter.Completer, error) {
		return f, nil
	})

	cfg := config.Defaults()
	cfg.API = "test-custom"

	c, err := aiclient.NewFromConfig(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "custom", c.Complete(context.Background(), "x", "Steve"))
}
