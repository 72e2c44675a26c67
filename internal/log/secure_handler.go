package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// MaskValue replaces every redacted value.
const MaskValue = "***REDACTED***"

// keyClass is how an attribute key is treated.
type keyClass int

const (
	keyPlain keyClass = iota
	keyCount
	keySecret
)

// exactSecretKeys are header and config names that always hold credentials.
var exactSecretKeys = []string{
	"authorization", "proxy-authorization", "cookie", "set-cookie",
	"x-api-key", "api_key", "api-key", "apikey", "openrouter_api_key",
}

// secretKeywords mark a key as secret when contained anywhere in it.
// A bare "key" is not one of them: primary_key and monkey are harmless.
var secretKeywords = []string{
	"password", "secret", "token", "auth", "credential", "private",
}

// countKeys contain "token" but hold token counts. Budgets show up in
// every generation log line and must stay readable.
var countKeys = []string{
	"max_tokens", "max_output_tokens", "budget_tokens", "numeric_tokens",
	"prompt_tokens", "completion_tokens", "total_tokens",
}

// secretValues are whole values that look like credentials whatever
// their key.
var secretValues = []*regexp.Regexp{
	regexp.MustCompile(`^sk-[A-Za-z0-9_-]{16,}$`),                                // OpenAI and OpenRouter keys
	regexp.MustCompile(`(?i)^(bearer|basic)\s+\S+`),                              // Authorization header values
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`), // JWT
	regexp.MustCompile(`^[a-zA-Z0-9]{32,}$`),                                     // opaque API tokens
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

// inlineSecret finds credentials quoted inside longer text, such as an
// HTTP client error that echoes a header.
var inlineSecret = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/=-]+|sk-[A-Za-z0-9_-]{16,}`)

// SecureHandler is an slog.Handler that redacts credentials before
// records reach the wrapped handler. Message text, attributes added with
// With, and grouped attributes are all covered, so any library handed the
// resulting *slog.Logger is covered too.
type SecureHandler struct {
	next slog.Handler
}

// NewSecureHandler wraps next. A nil next wraps slog.Default().Handler().
func NewSecureHandler(next slog.Handler) *SecureHandler {
	if next == nil {
		next = slog.Default().Handler()
	}
	return &SecureHandler{next: next}
}

// Enabled implements slog.Handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, redactInline(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redactAttr(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SecureHandler{next: h.next.WithAttrs(redactAttrs(attrs))}
}

// WithGroup implements slog.Handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{next: h.next.WithGroup(name)}
}

func redactAttrs(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = redactAttr(a)
	}
	return out
}

func redactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redactAttrs(a.Value.Group())...)}
	}

	switch classifyKey(a.Key) {
	case keyCount:
		return a
	case keySecret:
		return slog.String(a.Key, MaskValue)
	}

	var text string
	switch a.Value.Kind() {
	case slog.KindString:
		text = a.Value.String()
		if looksLikeSecret(text) {
			return slog.String(a.Key, MaskValue)
		}
	case slog.KindAny:
		err, ok := a.Value.Any().(error)
		if !ok || err == nil {
			return a
		}
		text = err.Error()
	default:
		return a
	}

	if clean := redactInline(text); clean != text {
		return slog.String(a.Key, clean)
	}
	return a
}

func classifyKey(key string) keyClass {
	key = strings.ToLower(key)
	for _, k := range countKeys {
		if key == k {
			return keyCount
		}
	}
	for _, k := range exactSecretKeys {
		if key == k {
			return keySecret
		}
	}
	if containsSensitiveKeyword(key) {
		return keySecret
	}
	return keyPlain
}

// containsSensitiveKeyword reports whether the lowercased key contains a
// secret keyword.
func containsSensitiveKeyword(key string) bool {
	for _, kw := range secretKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

func looksLikeSecret(value string) bool {
	for _, re := range secretValues {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}

func redactInline(s string) string {
	return inlineSecret.ReplaceAllString(s, MaskValue)
}

// NewSecureLogger returns a text logger for terminal use. verbose selects
// Debug, otherwise only warnings and errors are written.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, levelFor(verbose))))
}

// NewSecureJSONLogger is NewSecureLogger with JSON output, for the server
// behind a log collector.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, levelFor(verbose))))
}

func levelFor(verbose bool) *slog.HandlerOptions {
	if verbose {
		return &slog.HandlerOptions{Level: slog.LevelDebug}
	}
	return &slog.HandlerOptions{Level: slog.LevelWarn}
}
