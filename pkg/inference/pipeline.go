package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// TaskTextGeneration is the only task kind the template generator requests.
const TaskTextGeneration = "text-generation"

var (
	// ErrNoOutput is returned when a backend answers without generated text.
	ErrNoOutput = errors.New("inference: pipeline returned no output")
	// ErrUnsupportedTask is returned by Load for task kinds a backend cannot serve.
	ErrUnsupportedTask = errors.New("inference: unsupported task")
)

// Output is a single generated sequence.
type Output struct {
	GeneratedText string `json:"generated_text"`
}

// Progress reports model loading progress. Loaded/Total are byte counts when
// the backend exposes them; Percent is derived from them or reported directly.
type Progress struct {
	Status  string  `json:"status"`
	File    string  `json:"file,omitempty"`
	Loaded  int64   `json:"loaded,omitempty"`
	Total   int64   `json:"total,omitempty"`
	Percent float64 `json:"percent"`
}

// ProgressFunc receives loading progress updates. It may be nil.
type ProgressFunc func(Progress)

// DecodeOptions holds the sampling parameters passed on every generation.
type DecodeOptions struct {
	MaxNewTokens      int     `json:"max_new_tokens" yaml:"max_new_tokens"`
	Temperature       float64 `json:"temperature" yaml:"temperature"`
	TopK              int     `json:"top_k" yaml:"top_k"`
	RepetitionPenalty float64 `json:"repetition_penalty" yaml:"repetition_penalty"`
	NoRepeatNGramSize int     `json:"no_repeat_ngram_size" yaml:"no_repeat_ngram_size"`
}

// DefaultDecodeOptions returns the fixed decoding parameters used for
// template generation.
func DefaultDecodeOptions() DecodeOptions {
	return DecodeOptions{
		MaxNewTokens:      1024,
		Temperature:       0.7,
		TopK:              50,
		RepetitionPenalty: 1.2,
		NoRepeatNGramSize: 3,
	}
}

// WithDefaults fills zero-valued fields from DefaultDecodeOptions.
func (o DecodeOptions) WithDefaults() DecodeOptions {
	def := DefaultDecodeOptions()
	if o.MaxNewTokens <= 0 {
		o.MaxNewTokens = def.MaxNewTokens
	}
	if o.Temperature <= 0 {
		o.Temperature = def.Temperature
	}
	if o.TopK <= 0 {
		o.TopK = def.TopK
	}
	if o.RepetitionPenalty <= 0 {
		o.RepetitionPenalty = def.RepetitionPenalty
	}
	if o.NoRepeatNGramSize <= 0 {
		o.NoRepeatNGramSize = def.NoRepeatNGramSize
	}
	return o
}

// Pipeline obtains a Generator for a task/model pair. Load may take a long
// time (weight download) and reports progress through the callback.
type Pipeline interface {
	Load(ctx context.Context, task, modelID string, progress ProgressFunc) (Generator, error)
}

// Generator produces generated sequences for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, options DecodeOptions) ([]Output, error)
}

// PipelineFunc adapts a function into a Pipeline.
type PipelineFunc func(ctx context.Context, task, modelID string, progress ProgressFunc) (Generator, error)

// Load calls the underlying function.
func (fn PipelineFunc) Load(ctx context.Context, task, modelID string, progress ProgressFunc) (Generator, error) {
	return fn(ctx, task, modelID, progress)
}

// GeneratorFunc adapts a function into a Generator.
type GeneratorFunc func(ctx context.Context, prompt string, options DecodeOptions) ([]Output, error)

// Generate calls the underlying function.
func (fn GeneratorFunc) Generate(ctx context.Context, prompt string, options DecodeOptions) ([]Output, error) {
	return fn(ctx, prompt, options)
}

// FirstText returns the generated text of the first output.
func FirstText(outputs []Output) (string, error) {
	if len(outputs) == 0 {
		return "", ErrNoOutput
	}
	text := outputs[0].GeneratedText
	if strings.TrimSpace(text) == "" {
		return "", ErrNoOutput
	}
	return text, nil
}

// Backend names accepted by Open.
const (
	BackendHuggingFace = "huggingface"
	BackendOllama      = "ollama"
	BackendSample      = "sample"
)

// Config selects and configures a backend.
type Config struct {
	Backend    string
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
	// RequestTimeout caps individual HTTP calls. Generation deadlines are
	// owned by the caller's context.
	RequestTimeout time.Duration
}

// Open constructs the backend named in cfg.Backend.
func Open(cfg Config) (Pipeline, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	switch backend {
	case BackendHuggingFace, "hf", "tgi":
		hf, err := NewHuggingFace(cfg.Endpoint,
			WithAPIKey(cfg.APIKey),
			WithHTTPClient(cfg.HTTPClient),
			WithRequestTimeout(cfg.RequestTimeout),
		)
		if err != nil {
			return nil, err
		}
		return hf, nil
	case BackendOllama:
		ollama, err := NewOllama(cfg.Endpoint,
			WithHTTPClient(cfg.HTTPClient),
			WithRequestTimeout(cfg.RequestTimeout),
		)
		if err != nil {
			return nil, err
		}
		return ollama, nil
	case BackendSample, "":
		return NewSample(), nil
	default:
		return nil, fmt.Errorf("inference: unknown backend %q (known: %s)", cfg.Backend, strings.Join(Backends(), ", "))
	}
}

// Backends lists the backend names Open understands.
func Backends() []string {
	names := []string{BackendHuggingFace, BackendOllama, BackendSample}
	sort.Strings(names)
	return names
}
