package descriptor

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuildFixedShape(t *testing.T) {
	got := Build("Make a weather forecast template")
	want := `{
  "description": "Generated template based on user prompt",
  "prompt": "Make a weather forecast template",
  "DataFields": []
}`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("descriptor mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildEscapesPromptSafely(t *testing.T) {
	prompt := "Breaking \"news\" banner\nwith <marquee> & \\ slashes"
	out := Build(prompt)

	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("descriptor is not valid JSON: %v\n%s", err, out)
	}
	if decoded["prompt"] != prompt {
		t.Fatalf("prompt not preserved: %q", decoded["prompt"])
	}
	if !strings.Contains(out, "<marquee>") {
		t.Fatalf("expected HTML characters to stay unescaped, got %s", out)
	}
	fields, ok := decoded["DataFields"].([]any)
	if !ok || len(fields) != 0 {
		t.Fatalf("expected empty DataFields list, got %#v", decoded["DataFields"])
	}
}

func TestParseKeepsEmptyFieldList(t *testing.T) {
	got, err := Parse([]byte(`{"description":"d","prompt":"p"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := Descriptor{Description: "d", Prompt: "p", DataFields: []DataField{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("parse mismatch (-want +got):\n%s", diff)
	}
}
