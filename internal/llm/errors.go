package llm

import (
	"errors"

	"github.com/openai/openai-go"
)

// Generation errors.
//
// Design decision: These are sentinel errors so the client can classify
// completer failures with errors.Is and tests can assert on them without
// string matching.
var (
	// ErrEmptyCompletion is returned when a backend replies with a 2xx status
	// but the body has no choices or the generated text is empty.
	// It is treated like any other backend error.
	ErrEmptyCompletion = errors.New("empty completion: response carried no generated text")

	// ErrNoAPIKey is returned when the completer is constructed without an API key.
	ErrNoAPIKey = errors.New("no API key configured for generation backends")

	// ErrBackendPanic is returned when a completer panics during a call.
	ErrBackendPanic = errors.New("backend call panicked")
)

// StatusError extracts the HTTP status code from an error returned by the
// OpenAI SDK. It reports false for transport errors and timeouts.
func StatusError(err error) (int, bool) {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}
	return 0, false
}
