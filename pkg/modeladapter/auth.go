package modeladapter

import "net/http"

const (
	// PlaceholderToken is the token value written into fresh configuration
	// files. It never counts as a configured token.
	PlaceholderToken = "YOUR_API_TOKEN" //nolint:gosec // placeholder, not a secret

	// TokenHeader carries the custom API token of the minimal backend.
	TokenHeader = "X-API-TOKEN"
)

// Auth holds authentication settings for a backend API.
type Auth struct {
	Key    string // Credential value; empty disables auth.
	Header string // Header name (default: "Authorization").
	Scheme string // Scheme prefix (default: "Bearer" when Header is "Authorization").
}

// SelectAuth picks exactly one credential scheme. A token other than the
// placeholder wins and is sent in the X-API-TOKEN header; otherwise a key is
// sent as a bearer token; otherwise no auth header is sent.
func SelectAuth(token, key string) Auth {
	if token != "" && token != PlaceholderToken {
		return Auth{Key: token, Header: TokenHeader}
	}

	if key != "" {
		return Auth{Key: key}
	}

	return Auth{}
}

// Apply sets the auth header on h. It is a no-op when Key is empty.
func (a Auth) Apply(h http.Header) {
	if a.Key == "" {
		return
	}

	header := a.Header
	if header == "" {
		header = "Authorization"
	}

	value := a.Key
	if header == "Authorization" {
		scheme := a.Scheme
		if scheme == "" {
			scheme = "Bearer"
		}

		value = scheme + " " + value
	} else if a.Scheme != "" {
		value = a.Scheme + " " + value
	}

	h.Set(header, value)
}

// Kind names the active scheme for logging: "token", "bearer", or "none".
func (a Auth) Kind() string {
	switch {
	case a.Key == "":
		return "none"
	case a.Header == TokenHeader:
		return "token"
	default:
		return "bearer"
	}
}
