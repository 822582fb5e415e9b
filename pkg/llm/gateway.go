// Package llm provides the gateway abstraction over LLM providers.
// Stage agents depend only on the Gateway interface; provider-specific
// request and response framing stays inside this package.
package llm

import (
	"context"
	"fmt"
	"time"
)

// ErrorKind classifies gateway failures for the orchestrator's error policy.
type ErrorKind string

const (
	// GatewayUnavailable covers transport failures and call timeouts.
	GatewayUnavailable ErrorKind = "GATEWAY_UNAVAILABLE"
	// ProviderError covers non-success responses from the LLM backend.
	ProviderError ErrorKind = "PROVIDER_ERROR"
	// MalformedResponse covers responses that parsed but failed shape or
	// schema validation. Decoding fails closed into this kind.
	MalformedResponse ErrorKind = "MALFORMED_RESPONSE"
)

// Error is the typed failure returned by Gateway implementations and agents.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf extracts the error kind, defaulting to GatewayUnavailable for
// untyped errors bubbling up from the transport.
func KindOf(err error) ErrorKind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return GatewayUnavailable
}

// Gateway is the single capability the stage agents need from a provider:
// send a system prompt and a user prompt, get completion text back.
type Gateway interface {
	Send(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const DefaultTimeout = 60 * time.Second

// Config selects and parameterizes the provider binding.
type Config struct {
	Provider string        // adapter binding, e.g. "anthropic"
	Model    string        // provider model identifier
	APIKey   string        // credential
	Timeout  time.Duration // per-call bound; DefaultTimeout when zero
}

// NewGateway constructs the adapter selected by cfg.Provider. Adding a
// provider means adding a case here; orchestrator and agents are untouched.
func NewGateway(cfg Config) (Gateway, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	switch cfg.Provider {
	case "", "anthropic":
		return NewAnthropicGateway(cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
