package export

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-spx-templategen/pkg/orchestrator"
)

func TestDefaultRegistryListsExporters(t *testing.T) {
	r := DefaultRegistry()
	if diff := cmp.Diff([]string{Descriptor, HTML}, r.List()); diff != "" {
		t.Fatalf("exporters mismatch (-want +got):\n%s", diff)
	}
	if err := r.Register(NewHTML()); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if _, err := r.Get("pdf"); err == nil {
		t.Fatalf("expected missing exporter error")
	}
}

func TestRegistryExport(t *testing.T) {
	r := DefaultRegistry()
	result := orchestrator.Result{
		HTML: "<!DOCTYPE html><html></html>",
		JSON: `{"prompt":"x"}`,
	}

	html, err := r.Export(context.Background(), HTML, result)
	if err != nil {
		t.Fatalf("export html: %v", err)
	}
	want := Artifact{
		Name:        HTML,
		Filename:    "spx-template.html",
		ContentType: "text/html; charset=utf-8",
		Data:        []byte(result.HTML),
	}
	if diff := cmp.Diff(want, html); diff != "" {
		t.Fatalf("html artifact mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(html.Size(), "28") {
		t.Fatalf("unexpected size %q", html.Size())
	}

	desc, err := r.Export(context.Background(), Descriptor, result)
	if err != nil {
		t.Fatalf("export descriptor: %v", err)
	}
	if desc.Filename != "spx-template.json" || string(desc.Data) != result.JSON {
		t.Fatalf("unexpected descriptor artifact %+v", desc)
	}
}

func TestRegistryExportEmptyResult(t *testing.T) {
	_, err := DefaultRegistry().Export(context.Background(), HTML, orchestrator.Result{})
	if !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}
}

func TestCopyToClipboardUsesWriter(t *testing.T) {
	var got string
	original := writeClipboard
	writeClipboard = func(text string) error {
		got = text
		return nil
	}
	t.Cleanup(func() { writeClipboard = original })

	err := CopyToClipboard("<p>hi</p>")
	if errors.Is(err, ErrClipboardUnsupported) {
		t.Skip("clipboard unsupported on this system")
	}
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if got != "<p>hi</p>" {
		t.Fatalf("unexpected clipboard contents %q", got)
	}
}

func TestCopyToClipboardPropagatesFailure(t *testing.T) {
	original := writeClipboard
	writeClipboard = func(string) error { return errors.New("no display") }
	t.Cleanup(func() { writeClipboard = original })

	err := CopyToClipboard("x")
	if errors.Is(err, ErrClipboardUnsupported) {
		t.Skip("clipboard unsupported on this system")
	}
	if err == nil {
		t.Fatalf("expected error")
	}
}
