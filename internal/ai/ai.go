// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ai provides the LLM provider clients used by the filter and
// enrichment stages. A single Client interface covers every provider;
// New selects the implementation from configuration. Errors are
// classified as transient (retryable) or permanent so the caller's
// retry loop can decide per the taxonomy, not per provider.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/arxiv-agent/pkg/types"
)

// defaultHTTPTimeout backstops provider calls whose context carries no
// deadline. The per-call timeout normally comes from the caller.
const defaultHTTPTimeout = 120 * time.Second

// defaultMaxTokens is used when a provider config leaves MaxTokens
// unset. Anthropic requires the field on every request.
const defaultMaxTokens = 1024

// Request is one completion call.
type Request struct {
	// System is the optional system prompt.
	System string

	// Prompt is the user prompt.
	Prompt string
}

// Client is the provider-neutral completion interface consumed by the
// enrichment stage.
type Client interface {
	// Complete sends one prompt and returns the reply text, trimmed.
	// Failures are wrapped as TransientError or PermanentError.
	Complete(ctx context.Context, req Request) (string, error)

	// Provider returns the provider name used in cache fingerprints.
	Provider() string
}

// TransientError marks a failure worth retrying: timeouts, rate
// limits, 5xx responses, connection resets.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a failure retrying cannot fix: bad credentials
// or a request the provider rejected as invalid.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(err error) error { return &TransientError{Err: err} }

// Permanent wraps err as not retryable.
func Permanent(err error) error { return &PermanentError{Err: err} }

// IsTransient reports whether err is or wraps a TransientError.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// IsPermanent reports whether err is or wraps a PermanentError.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// classifyStatus wraps a non-200 provider response: 429 and 5xx are
// transient, every other 4xx is permanent.
func classifyStatus(provider string, status int, body []byte) error {
	err := fmt.Errorf("%s API returned %d: %s", provider, status, truncateBody(body))
	if status == http.StatusTooManyRequests || status >= 500 {
		return Transient(err)
	}
	return Permanent(err)
}

// wrapTransport classifies an http.Client.Do failure. Cancellation
// propagates untouched so the caller can distinguish an interrupt from
// a provider problem; everything else (timeouts included) is transient.
func wrapTransport(provider string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return Transient(fmt.Errorf("calling %s API: %w", provider, err))
}

// truncateBody keeps error messages readable when a provider returns a
// page of HTML.
func truncateBody(body []byte) string {
	const max = 300
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

// New builds the client for cfg.Provider, wrapped with a rate limiter
// when cfg.RequestsPerSecond is set.
func New(cfg types.AIConfig) (Client, error) {
	var (
		c   Client
		err error
	)
	switch cfg.Provider {
	case "openai":
		c, err = newOpenAI(cfg.OpenAI)
	case "anthropic":
		c, err = newAnthropic(cfg.Anthropic)
	case "ollama":
		c = newOllama(cfg.Ollama)
	default:
		return nil, fmt.Errorf("unsupported AI provider %q: use openai, anthropic, or ollama", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RequestsPerSecond > 0 {
		c = &limited{Client: c, limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)}
	}
	return c, nil
}

// ProviderSettings returns the connection settings for the active
// provider. Used to compute cache fingerprints.
func ProviderSettings(cfg types.AIConfig) types.ProviderConfig {
	switch cfg.Provider {
	case "anthropic":
		return cfg.Anthropic
	case "ollama":
		return cfg.Ollama
	default:
		return cfg.OpenAI
	}
}

// limited throttles Complete calls with a token bucket.
type limited struct {
	Client
	limiter *rate.Limiter
}

func (l *limited) Complete(ctx context.Context, req Request) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", Transient(fmt.Errorf("waiting for rate limiter: %w", err))
	}
	return l.Client.Complete(ctx, req)
}
