// Package llm provides the generation client: a priority-ordered fallback
// over remote text-generation backends with an output quality gate.
//
// The client tries each backend of a request's priority list exactly once,
// in order. A backend fails over to the next one when:
//   - the call errors, times out, or returns a non-2xx status
//   - the response body is malformed or carries no text
//   - the text is rejected by the quality gate
//
// The first accepted text wins. When the list is exhausted the client
// returns an AllBackendsExhausted outcome and the caller decides whether
// that is fatal.
//
// Design decision: No backend is ever retried. Failure moves strictly
// forward through the priority list, which bounds total latency to
// len(list) × per-call timeout and keeps error attribution simple.
//
// The remote call itself is hidden behind the Completer interface. The
// production implementation speaks the OpenAI chat-completions protocol via
// github.com/openai/openai-go, so any compatible provider (OpenRouter,
// OpenAI, a local gateway) can serve as a backend. Tests substitute fakes.
package llm
