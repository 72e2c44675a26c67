package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"

	"github.com/pks0715/seggy/internal/extract"
	"github.com/pks0715/seggy/internal/llm"
	"github.com/pks0715/seggy/internal/model"
	"github.com/pks0715/seggy/internal/pipeline"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "seggy"

	// DefaultEndpoint is the OpenAI-compatible base URL used by backends
	// that do not set their own endpoint.
	DefaultEndpoint = "https://openrouter.ai/api/v1"

	// DefaultBackendTimeout bounds a single generation call.
	DefaultBackendTimeout = 45 * time.Second

	// DefaultPort is the HTTP port used by `seggy serve`.
	DefaultPort = 10000

	// DefaultRequestTimeout bounds a whole HTTP request. A request runs
	// several sequential generation calls, so it is generous.
	DefaultRequestTimeout = 600 * time.Second

	// MinRequestTimeout is the shortest accepted request timeout. Anything
	// lower is a unit mistake (a YAML integer decodes as nanoseconds).
	MinRequestTimeout = time.Second

	// DefaultMaxUploadBytes caps the multipart body of an analyze request.
	DefaultMaxUploadBytes = 100 << 20 // 100MiB

	// DefaultReferer and DefaultTitle identify the application to
	// OpenRouter (HTTP-Referer and X-Title headers).
	DefaultReferer = "https://seggy-analyst.onrender.com"
	DefaultTitle   = "Seggy Analyst"

	// DefaultUserAgent identifies seggy in outbound HTTP requests.
	DefaultUserAgent = "seggy/1.0 (+https://github.com/pks0715/seggy)"

	// LogFormatText and LogFormatJSON are the accepted log formats.
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// defaultBackends are free-tier OpenRouter models, in priority order.
var defaultBackends = []BackendConfig{
	{Name: "llama-3.1-8b", Model: "meta-llama/llama-3.1-8b-instruct:free"},
	{Name: "gemma-2-9b", Model: "google/gemma-2-9b-it:free"},
	{Name: "phi-3-mini", Model: "microsoft/phi-3-mini-128k-instruct:free"},
}

// BackendConfig describes one generation backend in the config file.
type BackendConfig struct {
	// Name is the identifier referenced by tiers.
	Name string `yaml:"name" validate:"required,max=64"`

	// Endpoint is the base URL. Empty means DefaultEndpoint.
	Endpoint string `yaml:"endpoint,omitempty" validate:"omitempty,url"`

	// Model is the provider model identifier.
	Model string `yaml:"model" validate:"required"`

	// Timeout bounds one call. Zero means DefaultBackendTimeout.
	Timeout time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`

	// MaxTokens caps the requested output budget. Zero means no cap.
	MaxTokens int `yaml:"max_tokens,omitempty" validate:"gte=0"`
}

// backend converts the descriptor, filling in defaults.
func (b BackendConfig) backend() model.Backend {
	endpoint := b.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = DefaultBackendTimeout
	}
	return model.Backend{
		Name:      b.Name,
		Endpoint:  endpoint,
		Model:     b.Model,
		Timeout:   timeout,
		MaxTokens: b.MaxTokens,
	}
}

// GateConfig holds the quality gate settings. Nil slices keep the
// built-in defaults.
type GateConfig struct {
	TemplatePhrases  []string `yaml:"template_phrases,omitempty"`
	MinNumericTokens int      `yaml:"min_numeric_tokens"`
	Keywords         []string `yaml:"keywords,omitempty"`
	MinKeywordHits   int      `yaml:"min_keyword_hits"`
}

// Config holds all configuration options for seggy.
// This struct is populated from defaults, the config file, the environment
// and CLI flags, in that order, and passed through the application via
// dependency injection rather than global state.
//
// Design decision: We keep scalar settings flat, as in a CLI-first tool.
// Only the backend list and the gate are structured because they are
// lists in the config file.
type Config struct {
	// APIKey authenticates against the backends. Never logged.
	APIKey string

	// Backends are the defined generation backends.
	Backends []BackendConfig

	// BatchTier and SynthesisTier list backend names in priority order.
	BatchTier     []string
	SynthesisTier []string

	// Gate configures output validation.
	Gate GateConfig

	// Referer and Title are sent as HTTP-Referer and X-Title.
	Referer string
	Title   string

	// ProxyAddress is an optional SOCKS5 proxy (host:port) for backend calls.
	ProxyAddress string

	// UserAgent is sent with every backend request.
	UserAgent string

	// BatchSize is the maximum number of documents per batch.
	BatchSize int

	// Concurrency is the number of batches analyzed at once.
	Concurrency int

	// Extraction limits.
	MaxPagesPerDocument int
	MaxExtractBytes     int
	MaxContentPerFile   int

	// Generation limits.
	BatchMaxTokens        int
	SynthesisMaxTokens    int
	SynthesisContentLimit int

	// Port is the HTTP listen port for `seggy serve`.
	Port int

	// RequestTimeout bounds a whole HTTP request.
	RequestTimeout time.Duration

	// MaxUploadBytes caps the multipart body of an analyze request.
	MaxUploadBytes int64

	// LogFormat is "text" or "json".
	LogFormat string

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// SaveHistory stores run metadata in the history database.
	SaveHistory bool

	// DBDir is the directory of the history database.
	// Defaults to XDG data directory (~/.local/share/seggy on Linux).
	DBDir string

	// ConfigFilePath is the path to the configuration file.
	// If empty, .seggy.yaml is searched in the current directory and then
	// in the user's home directory.
	ConfigFilePath string

	// JSONReport, MarkdownReport and PDFReport select the CLI output format.
	// At most one may be set. The default is plain text.
	JSONReport     bool
	MarkdownReport bool
	PDFReport      bool

	// ReportFile is the output file path. Empty means stdout.
	ReportFile string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., batch size, port).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	names := make([]string, len(defaultBackends))
	for i, b := range defaultBackends {
		names[i] = b.Name
	}

	return &Config{
		Backends:      append([]BackendConfig(nil), defaultBackends...),
		BatchTier:     names,
		SynthesisTier: append([]string(nil), names...),
		Gate: GateConfig{
			MinNumericTokens: llm.DefaultMinNumericTokens,
			MinKeywordHits:   llm.DefaultMinKeywordHits,
		},
		Referer:               DefaultReferer,
		Title:                 DefaultTitle,
		UserAgent:             DefaultUserAgent,
		BatchSize:             pipeline.DefaultBatchSize,
		Concurrency:           pipeline.DefaultConcurrency,
		MaxPagesPerDocument:   extract.DefaultMaxPagesPerDocument,
		MaxExtractBytes:       extract.DefaultMaxExtractBytes,
		MaxContentPerFile:     extract.DefaultMaxContentPerFile,
		BatchMaxTokens:        pipeline.DefaultBatchMaxTokens,
		SynthesisMaxTokens:    pipeline.DefaultSynthesisMaxTokens,
		SynthesisContentLimit: pipeline.DefaultSynthesisContentLimit,
		Port:                  DefaultPort,
		RequestTimeout:        DefaultRequestTimeout,
		MaxUploadBytes:        DefaultMaxUploadBytes,
		LogFormat:             LogFormatText,
		DBDir:                 XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for seggy.
// On Linux: ~/.local/share/seggy
// On macOS: ~/Library/Application Support/seggy
// On Windows: %LOCALAPPDATA%\seggy
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for seggy.
// On Linux: ~/.config/seggy
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// A missing API key is not a validation error: the server still starts
// and answers 503, which is how the deployment reports misconfiguration.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	for _, n := range []int{
		c.MaxPagesPerDocument, c.MaxExtractBytes, c.MaxContentPerFile,
		c.BatchMaxTokens, c.SynthesisMaxTokens, c.SynthesisContentLimit,
		c.Gate.MinNumericTokens, c.Gate.MinKeywordHits,
	} {
		if n < 0 {
			return ErrInvalidLimit
		}
	}
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.RequestTimeout < MinRequestTimeout {
		return ErrInvalidTimeout
	}
	if c.MaxUploadBytes <= 0 {
		return ErrInvalidMaxUploadBytes
	}
	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		return ErrInvalidLogFormat
	}

	formats := 0
	for _, set := range []bool{c.JSONReport, c.MarkdownReport, c.PDFReport} {
		if set {
			formats++
		}
	}
	if formats > 1 {
		return ErrConflictingReportFormats
	}

	if err := c.validateBackends(); err != nil {
		return err
	}
	if _, err := c.Tiers(); err != nil {
		return err
	}
	return nil
}

// validate is shared by all Config values; validator caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// validateBackends checks every descriptor and name uniqueness.
func (c *Config) validateBackends() error {
	seen := make(map[string]struct{}, len(c.Backends))
	for _, b := range c.Backends {
		if err := validate.Struct(b); err != nil {
			return fmt.Errorf("%w %q: %w", ErrInvalidBackend, b.Name, err)
		}
		if _, ok := seen[b.Name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateBackend, b.Name)
		}
		seen[b.Name] = struct{}{}
	}
	return nil
}

// Tiers resolves the batch and synthesis tiers into backend descriptors.
func (c *Config) Tiers() (pipeline.Tiers, error) {
	batch, err := c.resolve("batch", c.BatchTier)
	if err != nil {
		return pipeline.Tiers{}, err
	}
	synthesis, err := c.resolve("synthesis", c.SynthesisTier)
	if err != nil {
		return pipeline.Tiers{}, err
	}
	return pipeline.Tiers{Batch: batch, Synthesis: synthesis}, nil
}

// resolve looks up each name of a tier.
func (c *Config) resolve(tier string, names []string) ([]model.Backend, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoBackends, tier)
	}

	byName := make(map[string]BackendConfig, len(c.Backends))
	for _, b := range c.Backends {
		byName[b.Name] = b
	}

	out := make([]model.Backend, 0, len(names))
	for _, name := range names {
		b, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w %q in %s tier", ErrUnknownBackend, name, tier)
		}
		out = append(out, b.backend())
	}
	return out, nil
}

// QualityGate builds the quality gate from the gate settings.
func (c *Config) QualityGate() *llm.QualityGate {
	g := llm.NewQualityGate()
	if c.Gate.TemplatePhrases != nil {
		g.TemplatePhrases = append([]string(nil), c.Gate.TemplatePhrases...)
	}
	if c.Gate.Keywords != nil {
		g.Keywords = append([]string(nil), c.Gate.Keywords...)
	}
	g.MinNumericTokens = c.Gate.MinNumericTokens
	g.MinKeywordHits = c.Gate.MinKeywordHits
	return g
}

// ExtractOptions returns the extraction limits.
func (c *Config) ExtractOptions() extract.Options {
	return extract.Options{
		MaxPagesPerDocument: c.MaxPagesPerDocument,
		MaxExtractBytes:     c.MaxExtractBytes,
		MaxContentPerFile:   c.MaxContentPerFile,
	}
}

// PipelineLimits returns the batching and generation limits.
func (c *Config) PipelineLimits() pipeline.Limits {
	return pipeline.Limits{
		BatchSize:             c.BatchSize,
		Concurrency:           c.Concurrency,
		BatchMaxTokens:        c.BatchMaxTokens,
		SynthesisMaxTokens:    c.SynthesisMaxTokens,
		SynthesisContentLimit: c.SynthesisContentLimit,
	}
}

// Headers returns the attribution headers for backend requests.
func (c *Config) Headers() map[string]string {
	return map[string]string{
		"HTTP-Referer": c.Referer,
		"X-Title":      c.Title,
	}
}

// HasAPIKey reports whether an API key is configured.
func (c *Config) HasAPIKey() bool {
	return c.APIKey != ""
}
