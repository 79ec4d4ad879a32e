package template

import (
	"io"
)

// TemplateRenderer renders named templates, optionally copying the output to
// writers.
type TemplateRenderer interface {
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
}
