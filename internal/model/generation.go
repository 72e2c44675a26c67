package model

import (
	"fmt"
	"time"
)

// Backend describes one remote text-generation endpoint and model.
// A backend priority list is an ordered slice of these descriptors.
type Backend struct {
	// Name is a short label used in logs and reports. It defaults to Model.
	Name string `json:"name" yaml:"name"`

	// Endpoint is the base URL of an OpenAI-compatible API
	// (e.g. "https://openrouter.ai/api/v1").
	Endpoint string `json:"endpoint" yaml:"endpoint" validate:"required,url"`

	// Model is the model identifier sent with each request.
	Model string `json:"model" yaml:"model" validate:"required"`

	// Timeout bounds a single call to this backend.
	Timeout time.Duration `json:"timeout" yaml:"timeout" validate:"gt=0"`

	// MaxTokens caps the output budget for this backend. Zero means the
	// request's budget is used unchanged.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" validate:"gte=0"`
}

// Label returns the name used to identify the backend in logs.
func (b Backend) Label() string {
	if b.Name != "" {
		return b.Name
	}
	return b.Model
}

// Budget returns the effective output token budget for a request.
func (b Backend) Budget(requested int) int {
	if b.MaxTokens > 0 && (requested <= 0 || b.MaxTokens < requested) {
		return b.MaxTokens
	}
	return requested
}

// GenerationRequest is a single logical generation call.
type GenerationRequest struct {
	// Prompt is the user prompt.
	Prompt string

	// MaxOutputTokens is the requested output budget.
	MaxOutputTokens int

	// BackendPriority is tried strictly in order, each backend at most once.
	BackendPriority []Backend
}

// OutcomeKind classifies the result of a generation attempt.
//
// Design decision: We use an iota enum with String() rather than separate
// error types so that per-attempt traces can be logged and compared cheaply.
type OutcomeKind int

const (
	// OutcomeSuccess means a backend replied and the text passed the quality gate.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeRejectedLowQuality means a backend replied but the text failed
	// the quality gate.
	OutcomeRejectedLowQuality

	// OutcomeBackendError means the call failed: transport error, timeout,
	// non-2xx status or malformed body.
	OutcomeBackendError

	// OutcomeAllBackendsExhausted means no backend produced acceptable text.
	OutcomeAllBackendsExhausted
)

// String returns a human-readable representation of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRejectedLowQuality:
		return "rejected_low_quality"
	case OutcomeBackendError:
		return "backend_error"
	case OutcomeAllBackendsExhausted:
		return "all_backends_exhausted"
	default:
		return "unknown"
	}
}

// Attempt records what happened when one backend was tried.
type Attempt struct {
	Backend  string        `json:"backend"`
	Kind     OutcomeKind   `json:"kind"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration"`
}

// GenerationOutcome is the result of a generation request.
//
// Only the fields relevant to Kind are set:
//   - OutcomeSuccess: Text, Backend
//   - OutcomeRejectedLowQuality: Text, Backend, Reason
//   - OutcomeBackendError: Cause, Backend
//   - OutcomeAllBackendsExhausted: Attempts
type GenerationOutcome struct {
	Kind     OutcomeKind
	Text     string
	Backend  string
	Reason   string
	Cause    error
	Attempts []Attempt
}

// OK reports whether the outcome carries accepted text.
func (o GenerationOutcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// Err returns a descriptive error for non-successful outcomes, or nil.
func (o GenerationOutcome) Err() error {
	switch o.Kind {
	case OutcomeSuccess:
		return nil
	case OutcomeRejectedLowQuality:
		return fmt.Errorf("backend %s: output rejected: %s", o.Backend, o.Reason)
	case OutcomeBackendError:
		return fmt.Errorf("backend %s: %w", o.Backend, o.Cause)
	default:
		return fmt.Errorf("all %d backend(s) exhausted", len(o.Attempts))
	}
}

// Success builds a successful outcome.
func Success(backend, text string) GenerationOutcome {
	return GenerationOutcome{Kind: OutcomeSuccess, Backend: backend, Text: text}
}

// RejectedLowQuality builds an outcome for text that failed the quality gate.
func RejectedLowQuality(backend, text, reason string) GenerationOutcome {
	return GenerationOutcome{Kind: OutcomeRejectedLowQuality, Backend: backend, Text: text, Reason: reason}
}

// BackendError builds an outcome for a failed remote call.
func BackendError(backend string, cause error) GenerationOutcome {
	return GenerationOutcome{Kind: OutcomeBackendError, Backend: backend, Cause: cause}
}

// AllBackendsExhausted builds the terminal failure outcome.
func AllBackendsExhausted(attempts []Attempt) GenerationOutcome {
	return GenerationOutcome{Kind: OutcomeAllBackendsExhausted, Attempts: attempts}
}
