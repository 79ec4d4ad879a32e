package export

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/gommon/bytes"

	"github.com/goliatone/go-spx-templategen/pkg/orchestrator"
)

// Exporter names.
const (
	HTML       = "html"
	Descriptor = "descriptor"
)

// Download filenames.
const (
	HTMLFilename       = "spx-template.html"
	DescriptorFilename = "spx-template.json"
)

// ErrNothingToExport is returned when the result has no content for the
// requested format.
var ErrNothingToExport = errors.New("export: nothing to export")

// Exporter converts a generation result into a downloadable payload.
type Exporter interface {
	Name() string
	ContentType() string
	Filename() string
	Export(ctx context.Context, result orchestrator.Result) ([]byte, error)
}

// Artifact is an exported payload ready to be served or written.
type Artifact struct {
	Name        string
	Filename    string
	ContentType string
	Data        []byte
}

// Size formats the payload length for logs.
func (a Artifact) Size() string {
	return bytes.Format(int64(len(a.Data)))
}

type htmlExporter struct{}

// NewHTML returns the exporter for the generated document.
func NewHTML() Exporter { return htmlExporter{} }

func (htmlExporter) Name() string        { return HTML }
func (htmlExporter) ContentType() string { return "text/html; charset=utf-8" }
func (htmlExporter) Filename() string    { return HTMLFilename }

func (htmlExporter) Export(ctx context.Context, result orchestrator.Result) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(result.HTML) == "" {
		return nil, ErrNothingToExport
	}
	return []byte(result.HTML), nil
}

type descriptorExporter struct{}

// NewDescriptor returns the exporter for the JSON field descriptor.
func NewDescriptor() Exporter { return descriptorExporter{} }

func (descriptorExporter) Name() string        { return Descriptor }
func (descriptorExporter) ContentType() string { return "application/json; charset=utf-8" }
func (descriptorExporter) Filename() string    { return DescriptorFilename }

func (descriptorExporter) Export(ctx context.Context, result orchestrator.Result) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(result.JSON) == "" {
		return nil, ErrNothingToExport
	}
	return []byte(result.JSON), nil
}
