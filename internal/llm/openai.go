package llm

import (
	"context"
	"net/http"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/pks0715/seggy/internal/model"
)

// Default request parameters for chat completions.
const (
	// DefaultSystemPrompt frames every request.
	DefaultSystemPrompt = "You are an expert M&A financial analyst."

	// DefaultTemperature keeps answers focused while leaving some variety
	// between backends.
	DefaultTemperature = 0.5
)

// OpenAICompleter is a Completer for any OpenAI-compatible chat-completions
// endpoint (OpenRouter, OpenAI, self-hosted gateways).
//
// Design decision: SDK retries are disabled. Retrying belongs to the
// priority list, which never calls a backend twice, so a failed call must
// surface immediately.
type OpenAICompleter struct {
	apiKey       string
	httpClient   *http.Client
	headers      map[string]string
	systemPrompt string
	temperature  float64

	// clients caches one SDK client per endpoint.
	mu      sync.Mutex
	clients map[string]openai.Client
}

// CompleterOption configures an OpenAICompleter.
type CompleterOption func(*OpenAICompleter)

// WithHTTPClient sets the HTTP client used for outbound calls.
func WithHTTPClient(client *http.Client) CompleterOption {
	return func(c *OpenAICompleter) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithHeaders adds static headers to every request
// (e.g. HTTP-Referer and X-Title for OpenRouter attribution).
func WithHeaders(headers map[string]string) CompleterOption {
	return func(c *OpenAICompleter) {
		for k, v := range headers {
			if v != "" {
				c.headers[k] = v
			}
		}
	}
}

// WithSystemPrompt replaces the default system message.
func WithSystemPrompt(prompt string) CompleterOption {
	return func(c *OpenAICompleter) {
		if prompt != "" {
			c.systemPrompt = prompt
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) CompleterOption {
	return func(c *OpenAICompleter) {
		if t >= 0 {
			c.temperature = t
		}
	}
}

// NewOpenAICompleter creates a completer authenticating with apiKey.
func NewOpenAICompleter(apiKey string, opts ...CompleterOption) (*OpenAICompleter, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	c := &OpenAICompleter{
		apiKey:       apiKey,
		httpClient:   http.DefaultClient,
		headers:      make(map[string]string),
		systemPrompt: DefaultSystemPrompt,
		temperature:  DefaultTemperature,
		clients:      make(map[string]openai.Client),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// clientFor returns the cached SDK client for endpoint, creating it on first use.
func (c *OpenAICompleter) clientFor(endpoint string) openai.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[endpoint]; ok {
		return client
	}

	opts := []option.RequestOption{
		option.WithAPIKey(c.apiKey),
		option.WithBaseURL(endpoint),
		option.WithHTTPClient(c.httpClient),
		option.WithMaxRetries(0),
	}
	for k, v := range c.headers {
		opts = append(opts, option.WithHeader(k, v))
	}

	client := openai.NewClient(opts...)
	c.clients[endpoint] = client
	return client
}

// Complete implements Completer.
func (c *OpenAICompleter) Complete(ctx context.Context, backend model.Backend, prompt string, maxTokens int) (string, error) {
	client := c.clientFor(backend.Endpoint)

	params := openai.ChatCompletionNewParams{
		Model: backend.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(c.systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.temperature),
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}
