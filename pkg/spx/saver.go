package spx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/labstack/gommon/bytes"

	"github.com/goliatone/go-spx-templategen/pkg/orchestrator"
)

// DefaultProject is the subfolder generated templates are written into.
const DefaultProject = "ai-generated"

const (
	defaultSlug = "spx-template"
	maxSlugLen  = 64
)

var (
	// ErrNotConfigured is returned when no templates folder was configured.
	ErrNotConfigured = errors.New("spx: templates folder not configured")
	// ErrNothingToSave is returned for empty or failed results.
	ErrNothingToSave = errors.New("spx: result has no template to save")
)

// Logger is satisfied by gommon's *log.Logger.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{}) {}

// Option customises a Saver.
type Option func(*Saver)

// WithProject sets the project subfolder under the templates folder.
func WithProject(project string) Option {
	return func(s *Saver) {
		if slug := Slug(project); project != "" && slug != "" {
			s.project = slug
		}
	}
}

// WithLogger routes save messages to logger.
func WithLogger(logger Logger) Option {
	return func(s *Saver) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFileMode sets the permissions of written templates.
func WithFileMode(mode os.FileMode) Option {
	return func(s *Saver) {
		if mode != 0 {
			s.mode = mode
		}
	}
}

// Saver writes generated templates into an SPX-GC templates folder laid out
// as <dir>/<project>/<slug>.html.
type Saver struct {
	dir     string
	project string
	mode    os.FileMode
	logger  Logger
}

// NewSaver constructs a Saver rooted at dir. An empty dir yields a saver that
// only logs the intent and reports ErrNotConfigured.
func NewSaver(dir string, options ...Option) *Saver {
	s := &Saver{
		dir:     strings.TrimSpace(dir),
		project: DefaultProject,
		mode:    0o644,
		logger:  nopLogger{},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// Configured reports whether a templates folder is set.
func (s *Saver) Configured() bool {
	return s != nil && s.dir != ""
}

// Path returns the file a template called name would be written to.
func (s *Saver) Path(name string) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}
	root, err := filepath.Abs(s.dir)
	if err != nil {
		return "", fmt.Errorf("spx: resolve templates folder: %w", err)
	}
	target := filepath.Join(root, s.project, Slug(name)+".html")
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("spx: template path %q escapes %q", target, root)
	}
	return target, nil
}

// Save writes the result's HTML atomically and returns the written path.
// When name is blank the slug is derived from the result's prompt.
func (s *Saver) Save(ctx context.Context, name string, result orchestrator.Result) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(name) == "" {
		name = result.Prompt
	}
	if !s.Configured() {
		s.logger.Infof("spx: save %q requested but no templates folder is configured", Slug(name))
		return "", ErrNotConfigured
	}
	if result.Failed() || strings.TrimSpace(result.HTML) == "" {
		return "", ErrNothingToSave
	}

	path, err := s.Path(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("spx: create project folder: %w", err)
	}
	if err := writeFileAtomic(path, []byte(result.HTML), s.mode, ".spx-template-*"); err != nil {
		return "", fmt.Errorf("spx: write template: %w", err)
	}
	s.logger.Infof("spx: saved %s (%s)", path, bytes.Format(int64(len(result.HTML))))
	return path, nil
}

// Slug lowercases s and replaces every run of non-alphanumeric characters
// with a single dash.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLen {
		slug = strings.Trim(slug[:maxSlugLen], "-")
	}
	if slug == "" {
		return defaultSlug
	}
	return slug
}

func writeFileAtomic(path string, data []byte, perm os.FileMode, tmpPattern string) error {
	f, err := os.CreateTemp(filepath.Dir(path), tmpPattern)
	if err != nil {
		return err
	}
	tmpPath := f.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(perm); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
