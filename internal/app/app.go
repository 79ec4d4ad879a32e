// Package app wires configuration into the components shared by the
// templategen commands.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/labstack/gommon/log"

	"github.com/goliatone/go-spx-templategen/internal/config"
	"github.com/goliatone/go-spx-templategen/pkg/console"
	"github.com/goliatone/go-spx-templategen/pkg/inference"
	"github.com/goliatone/go-spx-templategen/pkg/orchestrator"
	"github.com/goliatone/go-spx-templategen/pkg/spx"
)

// LogHeader is the gommon header used by every command.
const LogHeader = `${time_rfc3339} ${level}	${short_file}:${line}	`

// NewLogger builds a gommon logger writing to out at the configured level.
func NewLogger(cfg config.Config, prefix string, out io.Writer) *log.Logger {
	logger := log.New(prefix)
	logger.SetHeader(LogHeader)
	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("%v, using info", err)
	}
	logger.SetLevel(level)
	return logger
}

// NewOrchestrator opens the configured inference backend and wraps it in an
// orchestrator. Extra options are applied last.
func NewOrchestrator(cfg config.Config, logger *log.Logger, extra ...orchestrator.Option) (*orchestrator.Orchestrator, error) {
	pipeline, err := inference.Open(cfg.InferenceConfig())
	if err != nil {
		return nil, fmt.Errorf("app: open inference backend: %w", err)
	}
	options := []orchestrator.Option{
		orchestrator.WithPipeline(pipeline),
		orchestrator.WithModel(cfg.Model.Task, cfg.Model.ID),
		orchestrator.WithDecodeOptions(cfg.Decoding),
		orchestrator.WithTimeout(cfg.Model.Timeout.Std()),
	}
	if logger != nil {
		options = append(options,
			orchestrator.WithLogger(logger),
			orchestrator.WithProgressObserver(progressLogger(logger)),
		)
	}
	options = append(options, extra...)
	return orchestrator.New(options...), nil
}

func progressLogger(logger *log.Logger) inference.ProgressFunc {
	last := -1
	return func(p inference.Progress) {
		pct := int(p.Percent)
		if p.Total > 0 && last >= 0 && pct/10 == last/10 && pct < 100 {
			return
		}
		last = pct
		if p.File != "" {
			logger.Infof("model %s: %s %d%%", p.Status, p.File, pct)
			return
		}
		logger.Infof("model %s %d%%", p.Status, pct)
	}
}

// NewSaver builds the SPX-GC saver. An empty templates folder yields a saver
// that reports spx.ErrNotConfigured.
func NewSaver(cfg config.Config, logger *log.Logger) *spx.Saver {
	options := []spx.Option{spx.WithProject(cfg.SPX.Project)}
	if logger != nil {
		options = append(options, spx.WithLogger(logger))
	}
	return spx.NewSaver(cfg.SPX.TemplatesDir, options...)
}

// NewStore builds the configured result store. The returned closer releases
// any connection pool and is never nil.
func NewStore(ctx context.Context, cfg config.Config) (console.Store, func() error, error) {
	switch cfg.Store.Driver {
	case config.StoreRedis:
		redisCfg := cfg.Store.Redis
		store := console.NewRedisStore(
			console.NewRedisClient(redisCfg.Addr, redisCfg.Password, redisCfg.DB),
			redisCfg.Prefix,
			cfg.Store.TTL.Std(),
		)
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.StoreMemory, "":
		return console.NewMemoryStore(cfg.Store.Size, cfg.Store.TTL.Std()), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("app: unknown store driver %q", cfg.Store.Driver)
	}
}

// NewConsole builds the browser console from cfg.
func NewConsole(cfg config.Config, orch *orchestrator.Orchestrator, store console.Store, logger *log.Logger) (*console.Server, error) {
	return console.New(orch,
		console.WithStore(store),
		console.WithSaver(NewSaver(cfg, logger)),
		console.WithLogger(logger),
		console.WithDebug(cfg.Server.Debug),
		console.WithTheme(cfg.Theme.Name, cfg.Theme.Variant),
		console.WithBodyLimit(cfg.Server.BodyLimit),
		console.WithSecureCookie(cfg.Server.SecureCookie),
	)
}
