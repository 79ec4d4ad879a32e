package console

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/go-errors/errors"
	"github.com/labstack/echo/v4"

	"github.com/goliatone/go-spx-templategen/pkg/export"
	"github.com/goliatone/go-spx-templategen/pkg/orchestrator"
	"github.com/goliatone/go-spx-templategen/pkg/spx"
)

const modulePrefix = "go-spx-templategen/"

// ErrorResponse is the JSON error body. Debug carries a trimmed stack trace
// when the server runs in debug mode.
type ErrorResponse struct {
	ErrorString string   `json:"error"`
	Debug       []string `json:"debug,omitempty"`
}

func (e ErrorResponse) Error() string {
	return e.ErrorString
}

// Wrap builds an ErrorResponse, attaching the caller's stack when debug is set.
func Wrap(err error, debug bool) ErrorResponse {
	if err == nil {
		return ErrorResponse{}
	}
	resp := ErrorResponse{ErrorString: err.Error()}
	if !debug {
		return resp
	}
	var stacked *goerrors.Error
	if !errors.As(err, &stacked) {
		stacked = goerrors.Wrap(err, 2)
	}
	resp.Debug = TrimStack(string(stacked.Stack()))
	return resp
}

// TrimStack keeps only the frames that belong to this module.
func TrimStack(stack string) []string {
	lines := strings.Split(stack, "\n")
	var out []string
	keepNext := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case keepNext:
			out = append(out, line)
			keepNext = false
		case strings.Contains(line, modulePrefix):
			out = append(out, line[strings.Index(line, modulePrefix):])
			keepNext = true
		}
	}
	return out
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code
	case errors.Is(err, orchestrator.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, orchestrator.ErrModelLoading), errors.Is(err, orchestrator.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrNoResult), errors.Is(err, export.ErrNothingToExport):
		return http.StatusNotFound
	case errors.Is(err, spx.ErrNotConfigured):
		return http.StatusNotImplemented
	case errors.Is(err, spx.ErrNothingToSave):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidBody):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorHandler renders every handler error as an ErrorResponse.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := statusFor(err)
	msg := err
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Internal != nil {
			msg = httpErr.Internal
		} else if m, ok := httpErr.Message.(string); ok {
			msg = errors.New(m)
		}
	}
	if code >= http.StatusInternalServerError && code != http.StatusServiceUnavailable && code != http.StatusNotImplemented {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, Wrap(msg, s.debug))
	}
	if writeErr != nil {
		c.Logger().Errorf("write error response: %v", writeErr)
	}
}
