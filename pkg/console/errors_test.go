package console

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/goliatone/go-spx-templategen/pkg/export"
	"github.com/goliatone/go-spx-templategen/pkg/orchestrator"
	"github.com/goliatone/go-spx-templategen/pkg/spx"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: orchestrator.ErrBusy, want: http.StatusConflict},
		{err: fmt.Errorf("wrapped: %w", orchestrator.ErrModelLoading), want: http.StatusServiceUnavailable},
		{err: orchestrator.ErrModelUnavailable, want: http.StatusServiceUnavailable},
		{err: ErrNoResult, want: http.StatusNotFound},
		{err: export.ErrNothingToExport, want: http.StatusNotFound},
		{err: spx.ErrNotConfigured, want: http.StatusNotImplemented},
		{err: spx.ErrNothingToSave, want: http.StatusUnprocessableEntity},
		{err: fmt.Errorf("%w: bad", ErrInvalidBody), want: http.StatusBadRequest},
		{err: echo.NewHTTPError(http.StatusRequestEntityTooLarge), want: http.StatusRequestEntityTooLarge},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestWrap(t *testing.T) {
	assert.Equal(t, ErrorResponse{}, Wrap(nil, true))

	resp := Wrap(errors.New("boom"), false)
	assert.Equal(t, "boom", resp.ErrorString)
	assert.Empty(t, resp.Debug)
	assert.Equal(t, "boom", resp.Error())
}

func TestTrimStack(t *testing.T) {
	stack := "/usr/local/go/src/runtime/panic.go:12 (0x1)\n" +
		"\truntime.gopanic: panic(x)\n" +
		"/home/dev/go-spx-templategen/pkg/console/server.go:40 (0x2)\n" +
		"\t(*Server).handleGenerate: return err\n" +
		"/home/dev/pkg/mod/github.com/labstack/echo/v4/echo.go:9 (0x3)\n" +
		"\t(*Echo).ServeHTTP: h(c)\n"

	assert.Equal(t, []string{
		"go-spx-templategen/pkg/console/server.go:40 (0x2)",
		"(*Server).handleGenerate: return err",
	}, TrimStack(stack))
}

func TestSanitizePreview(t *testing.T) {
	raw := `<!DOCTYPE html><html><head><script>alert(1)</script></head>` +
		`<body><div id="f0" class="lower-third" onclick="steal()" style="color: red">Title</div></body></html>`

	got := SanitizePreview(raw)
	assert.NotContains(t, got, "<script")
	assert.NotContains(t, got, "onclick")
	assert.Contains(t, got, `id="f0"`)
	assert.Contains(t, got, "Title")
	assert.Empty(t, SanitizePreview("   "))
}
