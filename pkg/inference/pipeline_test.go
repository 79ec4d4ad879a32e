package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeOptionsWithDefaults(t *testing.T) {
	got := DecodeOptions{Temperature: 0.2}.WithDefaults()
	want := DefaultDecodeOptions()
	want.Temperature = 0.2
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestFirstText(t *testing.T) {
	if _, err := FirstText(nil); !errors.Is(err, ErrNoOutput) {
		t.Fatalf("expected ErrNoOutput for nil outputs, got %v", err)
	}
	if _, err := FirstText([]Output{{GeneratedText: "  \n"}}); !errors.Is(err, ErrNoOutput) {
		t.Fatalf("expected ErrNoOutput for blank text, got %v", err)
	}
	got, err := FirstText([]Output{{GeneratedText: "a"}, {GeneratedText: "b"}})
	if err != nil || got != "a" {
		t.Fatalf("FirstText() = %q, %v", got, err)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	cases := map[string]string{
		"":            "inference.Sample",
		"sample":      "inference.Sample",
		"huggingface": "*inference.HuggingFace",
		"HF":          "*inference.HuggingFace",
		"ollama":      "*inference.Ollama",
	}
	for backend, want := range cases {
		p, err := Open(Config{Backend: backend})
		if err != nil {
			t.Fatalf("Open(%q): %v", backend, err)
		}
		if got := typeName(p); got != want {
			t.Fatalf("Open(%q) = %s, want %s", backend, got, want)
		}
	}
	if _, err := Open(Config{Backend: "llamafile"}); err == nil || !strings.Contains(err.Error(), "unknown backend") {
		t.Fatalf("expected unknown backend error, got %v", err)
	}
}

func TestSampleEchoesDescription(t *testing.T) {
	gen, err := NewSample().Load(context.Background(), TaskTextGeneration, "", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	outputs, err := gen.Generate(context.Background(), `frame """Score <bug>""" frame`, DecodeOptions{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	text, err := FirstText(outputs)
	if err != nil {
		t.Fatalf("first text: %v", err)
	}
	if !strings.HasPrefix(text, "Here is your template:\n<!DOCTYPE html>") {
		t.Fatalf("expected preamble followed by doctype, got %q", text[:40])
	}
	if !strings.Contains(text, "Based on: Score &lt;bug&gt;") {
		t.Fatalf("expected escaped description in sample output")
	}
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
