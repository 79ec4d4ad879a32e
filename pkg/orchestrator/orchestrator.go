package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-spx-templategen/pkg/descriptor"
	"github.com/goliatone/go-spx-templategen/pkg/extract"
	"github.com/goliatone/go-spx-templategen/pkg/inference"
	"github.com/goliatone/go-spx-templategen/pkg/prompt"
)

// FallbackHTML replaces the document when a generation fails.
const FallbackHTML = "<p>Error generating template. Please try again.</p>"

// DefaultTimeout bounds a generation when neither the request nor the
// orchestrator configure one.
const DefaultTimeout = 5 * time.Minute

var (
	// ErrBusy is returned while another generation is in flight.
	ErrBusy = errors.New("orchestrator: generation already in progress")
	// ErrModelLoading is returned before the pipeline finished loading.
	ErrModelLoading = errors.New("orchestrator: model is still loading")
	// ErrModelUnavailable is returned after the pipeline failed to load.
	ErrModelUnavailable = errors.New("orchestrator: model unavailable")
)

// Logger is the subset of gommon's *log.Logger the orchestrator writes to.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithPipeline injects the inference pipeline. Defaults to the offline sample
// pipeline.
func WithPipeline(pipeline inference.Pipeline) Option {
	return func(o *Orchestrator) {
		o.pipeline = pipeline
	}
}

// WithModel overrides the task kind and model identifier passed to Load.
// Blank values keep the defaults.
func WithModel(task, modelID string) Option {
	return func(o *Orchestrator) {
		if strings.TrimSpace(task) != "" {
			o.task = strings.TrimSpace(task)
		}
		if strings.TrimSpace(modelID) != "" {
			o.modelID = strings.TrimSpace(modelID)
		}
	}
}

// WithDecodeOptions overrides the sampling parameters. Zero fields keep
// their defaults.
func WithDecodeOptions(options inference.DecodeOptions) Option {
	return func(o *Orchestrator) {
		o.decode = options.WithDefaults()
	}
}

// WithTimeout sets the default generation deadline. Zero or negative
// disables the default deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Orchestrator) {
		o.timeout = timeout
	}
}

// WithLogger routes lifecycle messages to logger.
func WithLogger(logger Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithProgressObserver registers a callback receiving model load progress in
// addition to the snapshot kept by Status.
func WithProgressObserver(fn inference.ProgressFunc) Option {
	return func(o *Orchestrator) {
		o.observer = fn
	}
}

// WithTransformer registers a Transformer applied to successful results.
func WithTransformer(t Transformer) Option {
	return func(o *Orchestrator) {
		o.transformer = t
	}
}

// Request describes a single generation.
type Request struct {
	// Prompt is the user's description of the template.
	Prompt string

	// Timeout overrides the orchestrator deadline for this request.
	Timeout time.Duration
}

// Result is the outcome of a generation. Failed results carry FallbackHTML
// and the underlying error in Failure.
type Result struct {
	Prompt    string        `json:"prompt"`
	HTML      string        `json:"html"`
	JSON      string        `json:"json"`
	Status    Status        `json:"status"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`

	Failure error `json:"-"`
}

// Failed reports whether the result carries the fallback document.
func (r Result) Failed() bool {
	return r.Status == StatusFailed
}

// Snapshot is a point-in-time view of the orchestrator.
type Snapshot struct {
	State     State              `json:"state"`
	Task      string             `json:"task"`
	ModelID   string             `json:"model"`
	Progress  inference.Progress `json:"progress"`
	LoadError string             `json:"load_error,omitempty"`
	HasResult bool               `json:"has_result"`
}

// Orchestrator coordinates prompt framing, inference, and post-processing.
// The zero value is not usable; construct with New.
type Orchestrator struct {
	pipeline    inference.Pipeline
	task        string
	modelID     string
	decode      inference.DecodeOptions
	timeout     time.Duration
	logger      Logger
	observer    inference.ProgressFunc
	transformer Transformer

	state     atomic.Int32
	initOnce  sync.Once
	ready     chan struct{}
	generator inference.Generator
	// backend holds one token while a generator call is running, including
	// calls abandoned after their deadline.
	backend chan struct{}

	mu       sync.Mutex
	progress inference.Progress
	loadErr  error
	last     *Result
	cancel   context.CancelFunc
}

// New constructs an Orchestrator applying any provided options. The model
// is not loaded until EnsureInitialized or Start is called.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		task:    inference.TaskTextGeneration,
		decode:  inference.DefaultDecodeOptions(),
		timeout: DefaultTimeout,
		logger:  nopLogger{},
		ready:   make(chan struct{}),
		backend: make(chan struct{}, 1),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	if o.pipeline == nil {
		o.pipeline = inference.NewSample()
	}
	if _, ok := o.pipeline.(inference.Sample); ok && o.modelID == "" {
		o.modelID = inference.SampleModelID
	}
	o.state.Store(int32(StateModelLoading))
	return o
}

// Start loads the model in the background and returns immediately. Use
// Ready to wait for completion.
func (o *Orchestrator) Start(ctx context.Context) {
	go func() {
		_ = o.EnsureInitialized(ctx)
	}()
}

// Ready is closed once the load attempt finished, successfully or not.
func (o *Orchestrator) Ready() <-chan struct{} {
	return o.ready
}

// EnsureInitialized loads the pipeline exactly once per orchestrator.
// Concurrent callers wait for the first attempt and share its outcome; the
// context of the first caller governs the load.
func (o *Orchestrator) EnsureInitialized(ctx context.Context) error {
	if ctx == nil {
		return errors.New("orchestrator: context is required")
	}
	o.initOnce.Do(func() {
		o.load(ctx)
	})
	<-o.ready

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.loadErr != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, o.loadErr)
	}
	return nil
}

func (o *Orchestrator) load(ctx context.Context) {
	defer close(o.ready)

	o.logger.Infof("orchestrator: loading %s model %q", o.task, o.modelID)
	started := time.Now()

	generator, err := o.pipeline.Load(ctx, o.task, o.modelID, o.recordProgress)
	if err == nil && generator == nil {
		err = errors.New("pipeline returned no generator")
	}
	if err != nil {
		o.mu.Lock()
		o.loadErr = err
		o.mu.Unlock()
		o.state.Store(int32(StateUnavailable))
		o.logger.Errorf("orchestrator: load model %q: %v", o.modelID, err)
		return
	}

	o.generator = generator
	o.state.Store(int32(StateIdle))
	o.logger.Infof("orchestrator: model %q ready in %s", o.modelID, time.Since(started).Round(time.Millisecond))
}

func (o *Orchestrator) recordProgress(p inference.Progress) {
	o.mu.Lock()
	o.progress = p
	o.mu.Unlock()
	o.logger.Debugf("orchestrator: load %s %s %.1f%%", p.Status, p.File, p.Percent)
	if o.observer != nil {
		o.observer(p)
	}
}

// State returns the current loading state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Status returns a snapshot for status endpoints.
func (o *Orchestrator) Status() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap := Snapshot{
		State:     o.State(),
		Task:      o.task,
		ModelID:   o.modelID,
		Progress:  o.progress,
		HasResult: o.last != nil,
	}
	if o.loadErr != nil {
		snap.LoadError = o.loadErr.Error()
	}
	return snap
}

// Last returns the most recent completed result.
func (o *Orchestrator) Last() (Result, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return Result{}, false
	}
	return *o.last, true
}

// Cancel aborts the in-flight generation, if any. The aborted request
// completes with the fallback result.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// Generate runs one generation. Blank prompts return a skipped result without
// touching the state. Pipeline failures are reported through the returned
// Result (FallbackHTML, StatusFailed) rather than the error, which is
// reserved for requests that could not start.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (Result, error) {
	if ctx == nil {
		return Result{}, errors.New("orchestrator: context is required")
	}
	text := strings.TrimSpace(req.Prompt)
	if prompt.Blank(text) {
		return Result{Status: StatusSkipped, CreatedAt: time.Now()}, nil
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	switch o.State() {
	case StateModelLoading:
		return Result{}, ErrModelLoading
	case StateUnavailable:
		o.mu.Lock()
		loadErr := o.loadErr
		o.mu.Unlock()
		return Result{}, fmt.Errorf("%w: %v", ErrModelUnavailable, loadErr)
	}
	if !o.state.CompareAndSwap(int32(StateIdle), int32(StateGenerating)) {
		return Result{}, ErrBusy
	}
	defer o.state.Store(int32(StateIdle))

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = o.timeout
	}
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.cancel = nil
		o.mu.Unlock()
		cancel()
	}()

	result := o.run(runCtx, text)

	o.mu.Lock()
	stored := result
	o.last = &stored
	o.mu.Unlock()

	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, text string) Result {
	started := time.Now()
	o.logger.Infof("orchestrator: generating template for %q", truncate(text, 80))

	raw, err := o.invoke(ctx, prompt.Build(text))
	if err != nil {
		return o.fail(text, started, err)
	}

	result := Result{
		Prompt:    text,
		HTML:      extract.Document(raw),
		JSON:      descriptor.Build(text),
		Status:    StatusOK,
		CreatedAt: time.Now(),
	}
	if o.transformer != nil {
		if err := o.transformer.Transform(ctx, &result); err != nil {
			return o.fail(text, started, fmt.Errorf("transform result: %w", err))
		}
	}
	result.Duration = time.Since(started)
	o.logger.Infof("orchestrator: generated %d bytes in %s", len(result.HTML), result.Duration.Round(time.Millisecond))
	return result
}

type reply struct {
	outputs []inference.Output
	err     error
}

// invoke calls the generator on its own goroutine so the deadline holds even
// when a backend ignores its context. An abandoned call keeps the backend
// slot until it returns, so the next request waits for it (bounded by its own
// deadline) instead of overlapping it.
func (o *Orchestrator) invoke(ctx context.Context, modelPrompt string) (string, error) {
	generator := o.generator
	if generator == nil {
		return "", errors.New("orchestrator: generator not loaded")
	}

	select {
	case o.backend <- struct{}{}:
	case <-ctx.Done():
		return "", fmt.Errorf("orchestrator: previous generation still running: %w", ctx.Err())
	}

	done := make(chan reply, 1)
	go func() {
		defer func() { <-o.backend }()
		defer func() {
			if r := recover(); r != nil {
				done <- reply{err: fmt.Errorf("orchestrator: pipeline panic: %v", r)}
			}
		}()
		outputs, err := generator.Generate(ctx, modelPrompt, o.decode)
		done <- reply{outputs: outputs, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", r.err
		}
		return inference.FirstText(r.outputs)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (o *Orchestrator) fail(text string, started time.Time, err error) Result {
	o.logger.Warnf("orchestrator: generation failed: %v", err)
	return Result{
		Prompt:    text,
		HTML:      FallbackHTML,
		Status:    StatusFailed,
		Error:     err.Error(),
		Failure:   err,
		Duration:  time.Since(started),
		CreatedAt: time.Now(),
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
