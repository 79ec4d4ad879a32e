package testsupport

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-spx-templategen/pkg/inference"
)

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// StaticPipeline returns a pipeline whose generator always answers text.
func StaticPipeline(text string) inference.Pipeline {
	return PipelineFor(inference.GeneratorFunc(func(ctx context.Context, _ string, _ inference.DecodeOptions) ([]inference.Output, error) {
		return []inference.Output{{GeneratedText: text}}, nil
	}))
}

// FailingPipeline returns a pipeline whose generator always fails with err.
func FailingPipeline(err error) inference.Pipeline {
	return PipelineFor(inference.GeneratorFunc(func(ctx context.Context, _ string, _ inference.DecodeOptions) ([]inference.Output, error) {
		return nil, err
	}))
}

// PipelineFor wraps gen in a pipeline that loads instantly.
func PipelineFor(gen inference.Generator) inference.Pipeline {
	return inference.PipelineFunc(func(ctx context.Context, _, _ string, progress inference.ProgressFunc) (inference.Generator, error) {
		if progress != nil {
			progress(inference.Progress{Status: "ready", Percent: 100})
		}
		return gen, nil
	})
}

// BlockingGenerator blocks every call until Release is called or the context
// ends. Started receives one value per call once the call is in flight.
type BlockingGenerator struct {
	Text    string
	Started chan struct{}

	release chan struct{}
	once    sync.Once
	calls   atomic.Int32
}

// NewBlockingGenerator constructs a generator that answers text once released.
func NewBlockingGenerator(text string) *BlockingGenerator {
	return &BlockingGenerator{
		Text:    text,
		Started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

// Generate implements inference.Generator.
func (g *BlockingGenerator) Generate(ctx context.Context, _ string, _ inference.DecodeOptions) ([]inference.Output, error) {
	g.calls.Add(1)
	g.Started <- struct{}{}
	select {
	case <-g.release:
		return []inference.Output{{GeneratedText: g.Text}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release unblocks pending and future calls.
func (g *BlockingGenerator) Release() {
	g.once.Do(func() { close(g.release) })
}

// Calls reports how many times Generate was invoked.
func (g *BlockingGenerator) Calls() int {
	return int(g.calls.Load())
}

// CountingPipeline records how many times Load ran.
type CountingPipeline struct {
	Pipeline inference.Pipeline
	loads    atomic.Int32
}

// Load implements inference.Pipeline.
func (p *CountingPipeline) Load(ctx context.Context, task, modelID string, progress inference.ProgressFunc) (inference.Generator, error) {
	p.loads.Add(1)
	return p.Pipeline.Load(ctx, task, modelID, progress)
}

// Loads reports how many times Load ran.
func (p *CountingPipeline) Loads() int {
	return int(p.loads.Load())
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// MustReadGoldenString reads a golden file and returns its string content.
func MustReadGoldenString(t *testing.T, path string) string {
	t.Helper()
	return string(MustReadGolden(t, path))
}

// CaptureTemplateOutput executes a render function that writes to an io.Writer,
// returning both the string result and the writer contents.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}

	return out, buf.String()
}
