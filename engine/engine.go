// Package engine wires all claimflow subsystems together: the executor
// registry, middleware chain, extension registry, backoff strategy, and
// store. It orchestrates workflow execution — dependency checks, timeout
// enforcement, retry/backoff, persistence after every transition, and
// final status determination.
//
// This package exists to break the import cycle: the root claimflow
// package defines Entity and Config (imported by workflow) and so cannot
// import those packages back. The engine package sits above all subsystem
// packages and below the application layer.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/claimflow/claimflow"
	"github.com/claimflow/claimflow/backoff"
	"github.com/claimflow/claimflow/hook"
	"github.com/claimflow/claimflow/id"
	mw "github.com/claimflow/claimflow/middleware"
	"github.com/claimflow/claimflow/observability"
	"github.com/claimflow/claimflow/workflow"
)

// Engine executes one workflow definition against persisted states:
// it creates, runs, resumes, pauses, and retries workflow instances.
// An Engine is safe for concurrent use across distinct workflow IDs;
// concurrent execution of the same ID is undefined behavior and must be
// prevented by the caller.
type Engine struct {
	def       *workflow.Definition
	executors map[string]workflow.Executor
	store     workflow.Store
	hooks     *hook.Registry
	cfg       claimflow.Config
	bo        backoff.Strategy
	chain     mw.Middleware
	mws       []mw.Middleware
	limiter   *rate.Limiter
	logger    *slog.Logger

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	extraExts []hook.Extension
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithConfig overrides the engine's execution defaults.
func WithConfig(cfg claimflow.Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithBackoff sets the retry backoff strategy. If not set, exponential
// backoff derived from the engine config (RetryBaseDelay doubled per
// attempt, capped at RetryMaxDelay) is used.
func WithBackoff(b backoff.Strategy) Option {
	return func(e *Engine) {
		e.bo = b
	}
}

// WithMiddleware appends middleware to the engine's chain, inside the
// built-in stack (recover, tracing, metrics, logging, timeout).
func WithMiddleware(m mw.Middleware) Option {
	return func(e *Engine) {
		e.mws = append(e.mws, m)
	}
}

// WithExtension registers a lifecycle extension with the engine.
func WithExtension(ext hook.Extension) Option {
	return func(e *Engine) {
		e.extraExts = append(e.extraExts, ext)
	}
}

// WithRateLimit throttles step executions across all workflows driven by
// this engine. Useful when every step ultimately hits the same external
// clearinghouse API.
func WithRateLimit(limiter *rate.Limiter) Option {
	return func(e *Engine) {
		e.limiter = limiter
	}
}

// WithTracerProvider sets a custom OTel TracerProvider for the engine.
// If not set, the global otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		e.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom OTel MeterProvider for the engine.
// When set, both the metrics middleware and the observability extension
// use this provider instead of the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) {
		e.meterProvider = mp
	}
}

// New creates an Engine for one workflow definition. Every executor the
// definition references must already be registered; a missing executor is
// a configuration fault reported here, before any execution.
func New(def *workflow.Definition, registry *workflow.Registry, store workflow.Store, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, claimflow.ErrNoStore
	}

	executors, err := registry.Resolve(def)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		def:       def,
		executors: executors,
		store:     store,
		cfg:       claimflow.DefaultConfig(),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.bo == nil {
		e.bo = backoff.NewExponential(e.cfg.RetryBaseDelay, e.cfg.RetryMaxDelay)
	}

	e.hooks = hook.NewRegistry(e.logger)

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if e.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(e.tracerProvider.Tracer("github.com/claimflow/claimflow"))
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware (custom provider or global).
	var metricsMw mw.Middleware
	if e.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(e.meterProvider.Meter("github.com/claimflow/claimflow"))
	} else {
		metricsMw = mw.Metrics()
	}

	// Register the observability metrics extension.
	var obsExt *observability.MetricsExtension
	if e.meterProvider != nil {
		obsExt = observability.NewMetricsExtensionWithMeter(e.meterProvider.Meter("github.com/claimflow/claimflow/observability"))
	} else {
		obsExt = observability.NewMetricsExtension()
	}
	e.hooks.Register(obsExt)

	for _, ext := range e.extraExts {
		e.hooks.Register(ext)
	}

	// Default middleware stack: recover → tracing → metrics → logging → timeout.
	stack := []mw.Middleware{
		mw.Recover(e.logger),
		tracingMw,
		metricsMw,
		mw.Logging(e.logger),
		mw.Timeout(e.logger),
	}
	stack = append(stack, e.mws...)
	e.chain = mw.Chain(stack...)

	return e, nil
}

// Definition returns the workflow definition this engine drives.
func (e *Engine) Definition() *workflow.Definition { return e.def }

// Hooks returns the engine's extension registry.
func (e *Engine) Hooks() *hook.Registry { return e.hooks }

// Store returns the engine's state store.
func (e *Engine) Store() workflow.Store { return e.store }

// ──────────────────────────────────────────────────
// Lifecycle operations
// ──────────────────────────────────────────────────

// Create persists a new pending workflow state for the given subject.
// Nothing executes until Run or Resume is called.
func (e *Engine) Create(ctx context.Context, subjectID string, subject, metadata map[string]any) (*workflow.State, error) {
	state := &workflow.State{
		Entity:       claimflow.NewEntity(),
		WorkflowID:   id.NewWorkflowID(),
		SubjectID:    subjectID,
		WorkflowType: e.def.Type(),
		TotalSteps:   e.def.Len(),
		Status:       workflow.StatusPending,
		StepResults:  make(map[string]*workflow.StepResult),
		Subject:      subject,
		Metadata:     metadata,
	}

	if err := e.store.CreateState(ctx, state); err != nil {
		return nil, persistErr("create workflow state", err)
	}

	e.logger.Info("workflow created",
		slog.String("workflow_id", state.WorkflowID.String()),
		slog.String("subject_id", subjectID),
		slog.String("workflow_type", state.WorkflowType),
		slog.Int("total_steps", state.TotalSteps),
	)

	return state, nil
}

// Start creates a new workflow state and runs it to a terminal status.
func (e *Engine) Start(ctx context.Context, subjectID string, subject, metadata map[string]any) (*workflow.Result, error) {
	state, err := e.Create(ctx, subjectID, subject, metadata)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, state)
}

// Run executes a previously created workflow state from its current step.
func (e *Engine) Run(ctx context.Context, workflowID id.WorkflowID) (*workflow.Result, error) {
	return e.Resume(ctx, workflowID)
}

// Resume loads a workflow state and continues execution from its
// current step. Already-completed steps are never re-invoked. Resuming a
// workflow that already reached a terminal status returns its result
// without executing anything; use Retry to re-run a failed workflow.
func (e *Engine) Resume(ctx context.Context, workflowID id.WorkflowID) (*workflow.Result, error) {
	state, err := e.store.GetState(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("load workflow %s: %w", workflowID, err)
	}

	if state.IsTerminal() {
		return workflow.ResultFromState(state), nil
	}

	return e.run(ctx, state)
}

// Retry re-runs a failed workflow from its failed step. The workflow-level
// retry counter is incremented and bounded by Config.MaxWorkflowRetries;
// this budget is distinct from the per-step attempt budget.
func (e *Engine) Retry(ctx context.Context, workflowID id.WorkflowID) (*workflow.Result, error) {
	state, err := e.store.GetState(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("load workflow %s: %w", workflowID, err)
	}

	if !state.IsFailed() {
		return nil, fmt.Errorf("%w: cannot retry workflow in status %q", claimflow.ErrInvalidState, state.Status)
	}
	if !state.CanRetry(e.cfg.MaxWorkflowRetries) {
		return nil, fmt.Errorf("%w: %d of %d workflow retries used",
			claimflow.ErrWorkflowNotRetryable, state.RetryCount, e.cfg.MaxWorkflowRetries)
	}

	state.RetryCount++
	state.Status = workflow.StatusInProgress
	state.ErrorMessage = ""
	state.ErrorStep = ""
	state.CompletedAt = nil
	state.Touch()

	if err := e.store.SaveState(ctx, state); err != nil {
		return nil, persistErr("save workflow state for retry", err)
	}

	e.logger.Info("workflow retry",
		slog.String("workflow_id", state.WorkflowID.String()),
		slog.Int("retry_count", state.RetryCount),
		slog.Int("max_workflow_retries", e.cfg.MaxWorkflowRetries),
	)

	return e.run(ctx, state)
}

// Pause halts a pending or in-progress workflow between steps. A paused
// workflow can be continued later with Resume.
func (e *Engine) Pause(ctx context.Context, workflowID id.WorkflowID) error {
	state, err := e.store.GetState(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("load workflow %s: %w", workflowID, err)
	}

	if state.Status != workflow.StatusPending && state.Status != workflow.StatusInProgress {
		return fmt.Errorf("%w: cannot pause workflow in status %q", claimflow.ErrInvalidState, state.Status)
	}

	state.Status = workflow.StatusPaused
	state.Touch()
	if err := e.store.SaveState(ctx, state); err != nil {
		return persistErr("save paused workflow state", err)
	}

	e.logger.Info("workflow paused",
		slog.String("workflow_id", state.WorkflowID.String()),
		slog.Int("current_step", state.CurrentStep),
	)

	return nil
}

// ResumeAll resumes every in-progress workflow of this engine's type —
// crash recovery after a process restart. Workflows are resumed with
// bounded concurrency (Config.ResumeConcurrency); individual resume
// failures are logged and do not stop the rest.
func (e *Engine) ResumeAll(ctx context.Context) error {
	states, err := e.store.ListStates(ctx, workflow.ListOpts{
		Status:       workflow.StatusInProgress,
		WorkflowType: e.def.Type(),
	})
	if err != nil {
		return fmt.Errorf("list interrupted workflows: %w", err)
	}
	if len(states) == 0 {
		return nil
	}

	e.logger.Info("resuming interrupted workflows",
		slog.Int("count", len(states)),
		slog.Int("concurrency", e.cfg.ResumeConcurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.ResumeConcurrency)

	for _, s := range states {
		g.Go(func() error {
			if _, resumeErr := e.run(gctx, s); resumeErr != nil {
				e.logger.Error("resume failed",
					slog.String("workflow_id", s.WorkflowID.String()),
					slog.String("error", resumeErr.Error()),
				)
			}
			return nil
		})
	}

	return g.Wait()
}

// State returns the persisted state of a workflow.
func (e *Engine) State(ctx context.Context, workflowID id.WorkflowID) (*workflow.State, error) {
	return e.store.GetState(ctx, workflowID)
}

// Metrics aggregates execution metrics across all persisted workflows of
// this engine's type.
func (e *Engine) Metrics(ctx context.Context) (workflow.Metrics, error) {
	states, err := e.store.ListStates(ctx, workflow.ListOpts{WorkflowType: e.def.Type()})
	if err != nil {
		return workflow.Metrics{}, fmt.Errorf("list workflows for metrics: %w", err)
	}
	return workflow.CalculateMetrics(states), nil
}

// persistErr wraps a store write failure so callers can detect it with
// errors.Is(err, claimflow.ErrPersistence).
func persistErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, claimflow.ErrPersistence, err)
}

// saveState persists the state and wraps failures as persistence errors.
func (e *Engine) saveState(ctx context.Context, state *workflow.State) error {
	state.Touch()
	if err := e.store.SaveState(ctx, state); err != nil {
		return persistErr("save workflow state", err)
	}
	return nil
}

func now() time.Time { return time.Now().UTC() }
