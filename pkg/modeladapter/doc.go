// Package modeladapter defines the interface and shared plumbing for AI
// completion backends.
//
// It contains:
//   - [Completer] interface and embeddable [ModelAdapter] base struct with HTTP helpers, auth, and timeouts
//   - [SelectAuth], which picks the credential scheme for a request
//   - [LimitedCompleter], which caps in-flight calls and requests per minute
//   - [Tracker], a thread-safe token usage tracker
//
// This package contains no backend-specific request shapes. Concrete adapters
// live in the providers packages and embed ModelAdapter.
package modeladapter
