package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultHuggingFaceEndpoint is the hosted inference API root.
const DefaultHuggingFaceEndpoint = "https://api-inference.huggingface.co"

// HuggingFace talks to text-generation endpoints that follow the Hugging Face
// inference contract: {"inputs", "parameters"} in, [{"generated_text"}] out.
// The endpoint may be an API root (the model id is appended as
// /models/<id>), a URL containing a {model} placeholder, or a full
// text-generation-inference /generate URL.
type HuggingFace struct {
	endpoint string
	http     httpConfig
}

var _ Pipeline = (*HuggingFace)(nil)

// NewHuggingFace constructs the pipeline. An empty endpoint uses the hosted API.
func NewHuggingFace(endpoint string, options ...HTTPOption) (*HuggingFace, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		endpoint = DefaultHuggingFaceEndpoint
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("inference: huggingface endpoint %q must be an http(s) URL", endpoint)
	}
	return &HuggingFace{endpoint: endpoint, http: newHTTPConfig(options...)}, nil
}

// Load resolves the model URL. Hosted endpoints load weights lazily, so the
// progress callback only sees the initiate/ready transitions.
func (h *HuggingFace) Load(ctx context.Context, task, modelID string, progress ProgressFunc) (Generator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if task != TaskTextGeneration {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTask, task)
	}
	modelID = strings.TrimSpace(modelID)
	if modelID == "" && !h.directURL() {
		return nil, fmt.Errorf("inference: huggingface model id is required")
	}

	reportProgress(progress, Progress{Status: "initiate", File: modelID})
	gen := &hfGenerator{url: h.modelURL(modelID), http: h.http}
	reportProgress(progress, Progress{Status: "ready", File: modelID, Percent: 100})
	return gen, nil
}

func (h *HuggingFace) directURL() bool {
	return strings.HasSuffix(h.endpoint, "/generate") || strings.Contains(h.endpoint, "{model}")
}

func (h *HuggingFace) modelURL(modelID string) string {
	switch {
	case strings.Contains(h.endpoint, "{model}"):
		return strings.ReplaceAll(h.endpoint, "{model}", modelID)
	case strings.HasSuffix(h.endpoint, "/generate"):
		return h.endpoint
	default:
		return h.endpoint + "/models/" + modelID
	}
}

type hfGenerator struct {
	url  string
	http httpConfig
}

type hfParameters struct {
	MaxNewTokens      int     `json:"max_new_tokens"`
	Temperature       float64 `json:"temperature"`
	TopK              int     `json:"top_k"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	NoRepeatNGramSize int     `json:"no_repeat_ngram_size"`
	ReturnFullText    bool    `json:"return_full_text"`
	DoSample          bool    `json:"do_sample"`
}

type hfRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters hfParameters   `json:"parameters"`
	Options    map[string]any `json:"options,omitempty"`
}

func (g *hfGenerator) Generate(ctx context.Context, prompt string, options DecodeOptions) ([]Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	options = options.WithDefaults()
	payload := hfRequest{
		Inputs: prompt,
		Parameters: hfParameters{
			MaxNewTokens:      options.MaxNewTokens,
			Temperature:       options.Temperature,
			TopK:              options.TopK,
			RepetitionPenalty: options.RepetitionPenalty,
			NoRepeatNGramSize: options.NoRepeatNGramSize,
			DoSample:          true,
		},
		Options: map[string]any{"wait_for_model": true},
	}

	var raw json.RawMessage
	if err := g.http.postJSON(ctx, g.url, payload, &raw); err != nil {
		return nil, fmt.Errorf("inference: huggingface generate: %w", err)
	}
	outputs, err := decodeHFOutputs(raw)
	if err != nil {
		return nil, fmt.Errorf("inference: huggingface generate: %w", err)
	}
	if len(outputs) == 0 {
		return nil, ErrNoOutput
	}
	return outputs, nil
}

// decodeHFOutputs accepts both the list form returned by the inference API
// and the single-object form returned by text-generation-inference.
func decodeHFOutputs(raw json.RawMessage) ([]Output, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var list []Output
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var single Output
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, err
	}
	if single.GeneratedText == "" {
		return nil, nil
	}
	return []Output{single}, nil
}
