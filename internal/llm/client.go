package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pks0715/seggy/internal/model"
)

// DefaultCallTimeout bounds a single backend call when the backend
// descriptor does not set its own timeout.
const DefaultCallTimeout = 45 * time.Second

// Completer performs one remote generation call.
//
// Implementations return the raw generated text, or an error for transport
// failures, timeouts, non-2xx statuses and malformed bodies. They must honour
// ctx cancellation and must not retry internally.
type Completer interface {
	Complete(ctx context.Context, backend model.Backend, prompt string, maxTokens int) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, backend model.Backend, prompt string, maxTokens int) (string, error)

// Complete implements Completer.
func (f CompleterFunc) Complete(ctx context.Context, backend model.Backend, prompt string, maxTokens int) (string, error) {
	return f(ctx, backend, prompt, maxTokens)
}

// Client drives a request through its backend priority list.
// A Client is safe for concurrent use if its Completer and Gate are.
type Client struct {
	completer Completer
	gate      Gate
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets a custom logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithGate replaces the default quality gate.
func WithGate(gate Gate) Option {
	return func(c *Client) {
		if gate != nil {
			c.gate = gate
		}
	}
}

// NewClient creates a Client that issues calls through completer.
// Without WithGate, NewQualityGate() is used.
func NewClient(completer Completer, opts ...Option) *Client {
	c := &Client{completer: completer}
	for _, opt := range opts {
		opt(c)
	}
	if c.gate == nil {
		c.gate = NewQualityGate()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Generate tries each backend of req.BackendPriority once, in order, and
// returns the first accepted text as a Success outcome.
//
// Backend errors and quality-gate rejections both advance to the next
// backend. When the list is exhausted, or ctx is cancelled before the next
// attempt starts, the result is AllBackendsExhausted carrying a trace of
// every attempt made.
func (c *Client) Generate(ctx context.Context, req model.GenerationRequest) model.GenerationOutcome {
	attempts := make([]model.Attempt, 0, len(req.BackendPriority))

	for i, backend := range req.BackendPriority {
		if err := ctx.Err(); err != nil {
			c.logger.Warn("generation cancelled",
				"remaining_backends", len(req.BackendPriority)-i,
				"reason", err,
			)
			break
		}

		start := time.Now()
		outcome := c.attempt(ctx, backend, req)
		attempt := model.Attempt{
			Backend:  backend.Label(),
			Kind:     outcome.Kind,
			Duration: time.Since(start),
		}

		switch outcome.Kind {
		case model.OutcomeSuccess:
			c.logger.Debug("backend accepted",
				"backend", backend.Label(),
				"position", i+1,
				"chars", len(outcome.Text),
				"elapsed", attempt.Duration,
			)
			return outcome
		case model.OutcomeRejectedLowQuality:
			attempt.Detail = outcome.Reason
			c.logger.Warn("backend output rejected",
				"backend", backend.Label(),
				"reason", outcome.Reason,
			)
		default:
			attempt.Detail = outcome.Cause.Error()
			logArgs := []any{"backend", backend.Label(), "error", outcome.Cause}
			if status, ok := StatusError(outcome.Cause); ok {
				logArgs = append(logArgs, "status", status)
			}
			c.logger.Warn("backend failed", logArgs...)
		}
		attempts = append(attempts, attempt)
	}

	c.logger.Warn("all backends exhausted", "attempts", len(attempts))
	return model.AllBackendsExhausted(attempts)
}

// attempt performs exactly one call to backend and classifies the result
// as Success, RejectedLowQuality or BackendError.
func (c *Client) attempt(ctx context.Context, backend model.Backend, req model.GenerationRequest) (outcome model.GenerationOutcome) {
	timeout := backend.Timeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// A misbehaving completer must not take the whole batch down.
	defer func() {
		if r := recover(); r != nil {
			outcome = model.BackendError(backend.Label(), fmt.Errorf("%w: %v", ErrBackendPanic, r))
		}
	}()

	raw, err := c.completer.Complete(callCtx, backend, req.Prompt, backend.Budget(req.MaxOutputTokens))
	if err != nil {
		return model.BackendError(backend.Label(), err)
	}

	text := normalizeCompletion(raw)
	if text == "" {
		return model.BackendError(backend.Label(), ErrEmptyCompletion)
	}

	verdict := c.gate.Check(text)
	if !verdict.Accepted {
		return model.RejectedLowQuality(backend.Label(), text, verdict.Reason)
	}
	return model.Success(backend.Label(), text)
}
