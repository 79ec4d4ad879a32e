package console

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	theme "github.com/goliatone/go-theme"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/goliatone/go-spx-templategen/pkg/export"
	"github.com/goliatone/go-spx-templategen/pkg/orchestrator"
	"github.com/goliatone/go-spx-templategen/pkg/render/template"
	"github.com/goliatone/go-spx-templategen/pkg/render/template/gotemplate"
	"github.com/goliatone/go-spx-templategen/pkg/spx"
)

//go:embed templates assets
var consoleFS embed.FS

// DefaultBodyLimit caps request bodies accepted by the console.
const DefaultBodyLimit = "64K"

// Option configures a Server.
type Option func(*Server)

// WithStore sets where per-session results are kept.
func WithStore(store Store) Option {
	return func(s *Server) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSaver enables writing templates into an SPX-GC templates folder.
func WithSaver(saver *spx.Saver) Option {
	return func(s *Server) {
		if saver != nil {
			s.saver = saver
		}
	}
}

// WithExporters replaces the download formats.
func WithExporters(registry *export.Registry) Option {
	return func(s *Server) {
		if registry != nil {
			s.exporters = registry
		}
	}
}

// WithLogger routes echo and handler logs through logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithDebug attaches trimmed stack traces to error responses.
func WithDebug(debug bool) Option {
	return func(s *Server) {
		s.debug = debug
	}
}

// WithTheme selects the console palette.
func WithTheme(name, variant string) Option {
	return func(s *Server) {
		s.themeName = strings.TrimSpace(name)
		s.themeVariant = strings.TrimSpace(variant)
	}
}

// WithThemeSelector replaces the palette selector.
func WithThemeSelector(selector theme.ThemeSelector) Option {
	return func(s *Server) {
		s.selector = selector
	}
}

// WithBodyLimit overrides DefaultBodyLimit, e.g. "128K".
func WithBodyLimit(limit string) Option {
	return func(s *Server) {
		if strings.TrimSpace(limit) != "" {
			s.bodyLimit = limit
		}
	}
}

// WithSecureCookie marks the session cookie Secure.
func WithSecureCookie(secure bool) Option {
	return func(s *Server) {
		s.secureCookie = secure
	}
}

// WithExamples replaces the example prompts.
func WithExamples(examples []string) Option {
	return func(s *Server) {
		if len(examples) > 0 {
			s.examples = append([]string(nil), examples...)
		}
	}
}

// Server is the browser console: a single page plus a small JSON API over
// an orchestrator.
type Server struct {
	echo      *echo.Echo
	orch      *orchestrator.Orchestrator
	store     Store
	saver     *spx.Saver
	exporters *export.Registry
	contract  *Contract
	views     template.TemplateRenderer
	selector  theme.ThemeSelector
	logger    *log.Logger

	themeName    string
	themeVariant string
	examples     []string
	bodyLimit    string
	secureCookie bool
	debug        bool
}

// New builds the console around orch.
func New(orch *orchestrator.Orchestrator, options ...Option) (*Server, error) {
	if orch == nil {
		return nil, errors.New("console: orchestrator is required")
	}
	s := &Server{
		orch:         orch,
		store:        NewMemoryStore(256, 24*time.Hour),
		saver:        spx.NewSaver(""),
		exporters:    export.DefaultRegistry(),
		themeName:    DefaultTheme,
		themeVariant: DefaultVariant,
		examples:     Examples(),
		bodyLimit:    DefaultBodyLimit,
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}

	contract, err := LoadContract(context.Background())
	if err != nil {
		return nil, err
	}
	s.contract = contract

	if s.selector == nil {
		selector, err := NewPaletteSelector(s.themeName, s.themeVariant)
		if err != nil {
			return nil, err
		}
		s.selector = selector
	}

	views, err := gotemplate.New(gotemplate.WithFS(echo.MustSubFS(consoleFS, "templates")))
	if err != nil {
		return nil, fmt.Errorf("console: views: %w", err)
	}
	s.views = views

	s.echo = s.buildEcho()
	return s, nil
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = s.debug
	if s.logger != nil {
		e.Logger = s.logger
	} else {
		e.Logger.SetHeader(`${time_rfc3339} ${level}	${short_file}:${line}	`)
	}
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format:           `${time_custom}	${status} ${method} ${uri} in ${latency_human} ${error}` + "\n",
		CustomTimeFormat: time.DateTime,
		Output:           e.Logger.Output(),
	}))
	e.Use(middleware.BodyLimit(s.bodyLimit))
	e.Use(middleware.Gzip())
	e.Use(sessionMiddleware(s.secureCookie))

	registerAs(e.GET, s.getHandlers())
	registerAs(e.POST, s.postHandlers())
	e.StaticFS("/assets", echo.MustSubFS(consoleFS, "assets"))
	return e
}

type route = func(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route

type handler struct {
	handler    func(c echo.Context) error
	middleware []echo.MiddlewareFunc
}

type pathHandler = map[string]handler

func registerAs(route route, pathHandler pathHandler) {
	for path, handler := range pathHandler {
		route(path, handler.handler, handler.middleware...)
	}
}

func (s *Server) getHandlers() pathHandler {
	return pathHandler{
		"/":                        {handler: s.handleIndex},
		"/api/status":              {handler: s.handleStatus},
		"/api/examples":            {handler: s.handleExamples},
		"/api/openapi.yaml":        {handler: s.handleContract},
		"/api/template/preview":    {handler: s.handlePreview},
		"/api/template/download":   {handler: s.artifactHandler(export.HTML)},
		"/api/template/descriptor": {handler: s.artifactHandler(export.Descriptor)},
	}
}

func (s *Server) postHandlers() pathHandler {
	validate := []echo.MiddlewareFunc{s.validateBody}
	return pathHandler{
		"/api/generate":      {handler: s.handleGenerate, middleware: validate},
		"/api/cancel":        {handler: s.handleCancel},
		"/api/template/save": {handler: s.handleSave, middleware: validate},
	}
}

// Handler exposes the console as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves the console on addr until Shutdown.
func (s *Server) Start(addr string) error {
	err := s.echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the listener, cancels an in-flight generation, and waits for
// open requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.orch.Cancel()
	return s.echo.Shutdown(ctx)
}

// validateBody checks JSON bodies of write requests against the API contract
// and restores the body for the handler. The restored request carries the
// real body length, so chunked requests with no payload read as empty.
func (s *Server) validateBody(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		if !methodAllowed(req.Method) {
			return next(c)
		}
		var body []byte
		if req.Body != nil {
			data, err := io.ReadAll(req.Body)
			if err != nil {
				var httpErr *echo.HTTPError
				if errors.As(err, &httpErr) {
					return err
				}
				return fmt.Errorf("%w: %v", ErrInvalidBody, err)
			}
			body = data
		}
		if err := s.contract.ValidateBody(req.Method, c.Path(), body); err != nil {
			return err
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.ContentLength = int64(len(body))
		return next(c)
	}
}

func (s *Server) handleIndex(c echo.Context) error {
	selection, err := s.selector.Select(s.themeName, c.QueryParam("variant"))
	if err != nil {
		selection, err = s.selector.Select(s.themeName, s.themeVariant)
		if err != nil {
			return err
		}
	}
	cfg := RendererConfig(selection)

	page, err := s.views.RenderTemplate("index", map[string]any{
		"title":      "SPX Template Generator",
		"examples":   s.examples,
		"status":     s.orch.Status(),
		"theme":      cfg.Theme,
		"variant":    cfg.Variant,
		"theme_vars": cfg.CSSVars,
		"favicon":    cfg.AssetURL("console.favicon"),
		"can_save":   s.saver.Configured(),
	})
	if err != nil {
		return err
	}
	return c.HTML(http.StatusOK, page)
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.orch.Status())
}

func (s *Server) handleExamples(c echo.Context) error {
	return c.JSON(http.StatusOK, s.examples)
}

func (s *Server) handleContract(c echo.Context) error {
	return c.Blob(http.StatusOK, "application/yaml", ContractYAML())
}

type generateRequest struct {
	Prompt         string `json:"prompt"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

func (s *Server) handleGenerate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}

	ctx := c.Request().Context()
	result, err := s.orch.Generate(ctx, orchestrator.Request{
		Prompt:  req.Prompt,
		Timeout: time.Duration(req.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return err
	}
	if result.Status == orchestrator.StatusSkipped {
		return c.NoContent(http.StatusNoContent)
	}
	if err := s.store.Set(ctx, SessionID(c), result); err != nil {
		c.Logger().Warnf("store result: %v", err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleCancel(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"cancelled": s.orch.Cancel()})
}

func (s *Server) handlePreview(c echo.Context) error {
	result, err := s.store.Get(c.Request().Context(), SessionID(c))
	if err != nil {
		return err
	}
	page := result.HTML
	if sanitize, _ := strconv.ParseBool(c.QueryParam("sanitize")); sanitize {
		page = SanitizePreview(page)
	}
	c.Response().Header().Set("Content-Security-Policy", "sandbox allow-scripts")
	return c.HTML(http.StatusOK, page)
}

func (s *Server) artifactHandler(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		result, err := s.store.Get(ctx, SessionID(c))
		if err != nil {
			return err
		}
		artifact, err := s.exporters.Export(ctx, name, result)
		if err != nil {
			return err
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", artifact.Filename))
		c.Logger().Debugf("export %s (%s)", artifact.Filename, artifact.Size())
		return c.Blob(http.StatusOK, artifact.ContentType, artifact.Data)
	}
}

type saveRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleSave(c echo.Context) error {
	var req saveRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
	}
	ctx := c.Request().Context()
	result, err := s.store.Get(ctx, SessionID(c))
	if err != nil {
		return err
	}
	path, err := s.saver.Save(ctx, req.Name, result)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]string{"path": path})
}
