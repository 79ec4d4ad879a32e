package inference

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DefaultOllamaEndpoint is the address a local Ollama daemon listens on.
const DefaultOllamaEndpoint = "http://127.0.0.1:11434"

// Ollama drives a local Ollama daemon. Load pulls the model, streaming
// download progress, and Generate calls /api/generate without streaming.
type Ollama struct {
	endpoint string
	http     httpConfig
}

var _ Pipeline = (*Ollama)(nil)

// NewOllama constructs the pipeline. An empty endpoint targets the local
// daemon.
func NewOllama(endpoint string, options ...HTTPOption) (*Ollama, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		endpoint = DefaultOllamaEndpoint
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("inference: ollama endpoint %q must be an http(s) URL", endpoint)
	}
	return &Ollama{endpoint: endpoint, http: newHTTPConfig(options...)}, nil
}

type ollamaPullEvent struct {
	Status    string `json:"status"`
	Digest    string `json:"digest"`
	Total     int64  `json:"total"`
	Completed int64  `json:"completed"`
	Error     string `json:"error"`
}

// Load pulls modelID and forwards each streamed status line to progress.
func (o *Ollama) Load(ctx context.Context, task, modelID string, progress ProgressFunc) (Generator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if task != TaskTextGeneration {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTask, task)
	}
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return nil, errors.New("inference: ollama model id is required")
	}

	reportProgress(progress, Progress{Status: "initiate", File: modelID})

	resp, cancel, err := o.http.post(ctx, o.endpoint+"/api/pull", map[string]any{
		"model":  modelID,
		"stream": true,
	})
	if err != nil {
		return nil, fmt.Errorf("inference: ollama pull %q: %w", modelID, err)
	}
	defer cancel()
	defer func() {
		_ = resp.Body.Close()
	}()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var event ollamaPullEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			return nil, fmt.Errorf("inference: ollama pull %q: decode progress: %w", modelID, err)
		}
		if event.Error != "" {
			return nil, fmt.Errorf("inference: ollama pull %q: %s", modelID, event.Error)
		}
		reportProgress(progress, Progress{
			Status: event.Status,
			File:   event.Digest,
			Loaded: event.Completed,
			Total:  event.Total,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("inference: ollama pull %q: %w", modelID, err)
	}

	reportProgress(progress, Progress{Status: "ready", File: modelID, Percent: 100})
	return &ollamaGenerator{url: o.endpoint + "/api/generate", model: modelID, http: o.http}, nil
}

type ollamaGenerator struct {
	url   string
	model string
	http  httpConfig
}

type ollamaOptions struct {
	NumPredict    int     `json:"num_predict"`
	Temperature   float64 `json:"temperature"`
	TopK          int     `json:"top_k"`
	RepeatPenalty float64 `json:"repeat_penalty"`
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate runs a single non-streaming completion. no_repeat_ngram_size has
// no Ollama counterpart and is not sent.
func (g *ollamaGenerator) Generate(ctx context.Context, prompt string, options DecodeOptions) ([]Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	options = options.WithDefaults()

	var out ollamaGenerateResponse
	err := g.http.postJSON(ctx, g.url, ollamaGenerateRequest{
		Model:  g.model,
		Prompt: prompt,
		Stream: false,
		Options: ollamaOptions{
			NumPredict:    options.MaxNewTokens,
			Temperature:   options.Temperature,
			TopK:          options.TopK,
			RepeatPenalty: options.RepetitionPenalty,
		},
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("inference: ollama generate: %w", err)
	}
	if out.Response == "" {
		return nil, ErrNoOutput
	}
	return []Output{{GeneratedText: out.Response}}, nil
}
