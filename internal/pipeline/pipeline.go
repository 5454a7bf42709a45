package pipeline

import (
	"context"
	"log/slog"

	"github.com/Kelony11/image-finder/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the Run as left
// by previous steps.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state
// 2. It provides a Name() method for logging and debugging
// 3. Steps can be shared between pipelines when they hold shared resources
type Step interface {
	// Do executes the pipeline step.
	// Returns an error if the step fails; the error is recorded in the Run.
	Do(ctx context.Context, run *Run) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Run carries the state of harvesting one seed through a pipeline.
type Run struct {
	// Seed is the seed URL as given by the user.
	Seed string

	// Harvest is set by the crawl step.
	Harvest *model.Harvest

	// HarvestID is the database ID assigned by the persist step, or 0.
	HarvestID int64

	// Performed lists the steps that completed without error.
	Performed []string

	// Err is the first error encountered, if any.
	Err error
}

// NewRun creates a Run for seed.
func NewRun(seed string) *Run {
	return &Run{
		Seed:      seed,
		Performed: make([]string, 0),
	}
}

// recordError keeps the first error seen by the run.
func (r *Run) recordError(err error) {
	if r.Err == nil {
		r.Err = err
	}
}

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order.
type Pipeline struct {
	// steps contains the ordered list of main steps.
	steps []Step

	// finalSteps run after the main steps, even on error or cancellation.
	finalSteps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing main steps
	// after one fails. If false, the remaining main steps are skipped.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a main step fails.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep and AddFinalStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:      make([]Step, 0),
		finalSteps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a main step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple main steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// AddFinalStep appends a step that runs after the main steps regardless of
// their outcome. Final steps receive a context that is never cancelled.
func (p *Pipeline) AddFinalStep(step Step) {
	p.finalSteps = append(p.finalSteps, step)
}

// Execute runs the main steps in sequence, then every final step.
//
// Cancellation is checked before each main step rather than during, because
// steps handle their own cancellation (the crawl step returns a partial
// harvest). Returns the first error encountered, which is also stored in
// run.Err.
func (p *Pipeline) Execute(ctx context.Context, run *Run) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"seed", run.Seed,
				"reason", err,
			)
			run.recordError(err)
			break
		}

		if !p.runStep(ctx, step, run) && !p.continueOnError {
			break
		}
	}

	finalCtx := context.WithoutCancel(ctx)
	for _, step := range p.finalSteps {
		p.runStep(finalCtx, step, run)
	}

	return run.Err
}

// runStep executes one step and reports whether it succeeded.
func (p *Pipeline) runStep(ctx context.Context, step Step, run *Run) bool {
	p.logger.Debug("executing step",
		"step", step.Name(),
		"seed", run.Seed,
	)

	if err := step.Do(ctx, run); err != nil {
		p.logger.Error("step failed",
			"step", step.Name(),
			"seed", run.Seed,
			"error", err,
		)
		run.recordError(err)
		return false
	}

	p.logger.Debug("step completed",
		"step", step.Name(),
		"seed", run.Seed,
	)
	run.Performed = append(run.Performed, step.Name())
	return true
}

// StepCount returns the number of steps in the pipeline, final steps included.
func (p *Pipeline) StepCount() int {
	return len(p.steps) + len(p.finalSteps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, p.StepCount())
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	for _, step := range p.finalSteps {
		names = append(names, step.Name())
	}
	return names
}
