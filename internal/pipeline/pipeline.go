package pipeline

import (
	"context"
	"log/slog"

	"github.com/sitesage/sitesage/internal/model"
)

// Step defines the interface all pipeline steps implement.
// Steps execute in sequence, each receiving the query report accumulated
// by earlier steps.
//
// Design decision: an interface rather than function types because steps
// carry configuration and collaborators, the Name() method feeds
// structured logging, and new steps slot in without touching the runner.
type Step interface {
	// Do executes the step against the report. A returned error is fatal
	// to the request; conditions a later step can still handle (e.g. a
	// cache miss) are recorded on the report instead.
	Do(ctx context.Context, report *model.QueryReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline executes steps in order over one query report.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// New creates a Pipeline. Steps are added with AddSteps.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{steps: make([]Step, 0)}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddSteps appends steps in execution order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence, stopping on the first error or on
// context cancellation. Cancellation is checked between steps; steps
// handle their own timeouts internally.
func (p *Pipeline) Execute(ctx context.Context, report *model.QueryReport) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "reason", ctx.Err())
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step", "step", step.Name(), "namespace", report.Namespace)

		if err := step.Do(ctx, report); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"namespace", report.Namespace,
				"error", err,
			)
			report.Err = err
			return err
		}
	}

	return nil
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
