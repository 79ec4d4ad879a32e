package template_test

import (
	"embed"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-spx-templategen/pkg/render/template/gotemplate"
	"github.com/goliatone/go-spx-templategen/pkg/testsupport"
)

//go:embed testdata/templates/*.tpl
var embeddedTemplates embed.FS

func TestGoTemplateEngine_RenderTemplate(t *testing.T) {
	engine := newEngine(t)

	result, written := testsupport.CaptureTemplateOutput(t, func(w io.Writer) (string, error) {
		return engine.RenderTemplate("hello", map[string]any{"prompt": "Weather"}, w)
	})

	want := testsupport.MustReadGoldenString(t, filepath.Join("testdata", "hello.golden"))
	if result != want {
		t.Fatalf("render template mismatch result\nwant: %q\n got: %q", want, result)
	}
	if written != want {
		t.Fatalf("render template mismatch writer\nwant: %q\n got: %q", want, written)
	}
}

func TestGoTemplateEngine_CSSVarsFilter(t *testing.T) {
	engine := newEngine(t)

	type palette struct {
		Vars map[string]string `json:"vars"`
	}
	result, err := engine.RenderTemplate("palette", palette{Vars: map[string]string{
		"--spx-gray": "#bdc3c7",
		"spx-blue":   "#295aaf",
	}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	want := testsupport.MustReadGoldenString(t, filepath.Join("testdata", "palette.golden"))
	if diff := testsupport.CompareGolden(want, result); diff != "" {
		t.Fatalf("palette mismatch (-want +got):\n%s", diff)
	}
}

func TestGoTemplateEngine_SizeAndTrimFilters(t *testing.T) {
	engine := newEngine(t)

	result, err := engine.RenderTemplate("summary.tpl", map[string]any{
		"html":  2048,
		"title": "  lower third ",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasSuffix(result, " of lower third") || !strings.HasPrefix(result, "2") {
		t.Fatalf("unexpected output %q", result)
	}
}

func TestGoTemplateEngine_RequiresSource(t *testing.T) {
	if _, err := gotemplate.New(); err == nil {
		t.Fatalf("expected error without a templates fs")
	}
}

func newEngine(t *testing.T) *gotemplate.Engine {
	t.Helper()

	templatesFS, err := fs.Sub(embeddedTemplates, "testdata/templates")
	if err != nil {
		t.Fatalf("sub fs: %v", err)
	}

	engine, err := gotemplate.New(gotemplate.WithFS(templatesFS))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}
