package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/coursecrawl/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each receiving the page result built up
// by the previous steps.
type Step interface {
	// Do executes the pipeline step.
	// It receives the context for cancellation and the page result to
	// modify. A returned error stops the page.
	Do(ctx context.Context, result *model.PageResult) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps for one page.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// beforeStep runs ahead of every step; an error fails the step.
	beforeStep func(ctx context.Context, step Step, result *model.PageResult) error
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithBeforeStep registers fn to run before each step. A non-nil error
// from fn is treated as the step's own failure.
func WithBeforeStep(fn func(ctx context.Context, step Step, result *model.PageResult) error) Option {
	return func(p *Pipeline) {
		p.beforeStep = fn
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddSteps after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddSteps appends steps to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence for one page.
// Cancellation is checked before each step; steps handle their own
// timeouts.
//
// The first failing step ends the page; its error is returned and stored
// in result.Err.
func (p *Pipeline) Execute(ctx context.Context, result *model.PageResult) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"page", result.Index,
				"reason", ctx.Err(),
			)
			if result.Err == nil {
				result.Err = ctx.Err()
			}
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"page", result.Index,
		)

		if err := p.runStep(ctx, step, result); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"page", result.Index,
				"error", err,
			)

			if result.Err == nil {
				result.Err = err
			}
			return err
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"page", result.Index,
		)
		result.Steps = append(result.Steps, step.Name())
	}

	return result.Err
}

func (p *Pipeline) runStep(ctx context.Context, step Step, result *model.PageResult) error {
	if p.beforeStep != nil {
		if err := p.beforeStep(ctx, step, result); err != nil {
			return err
		}
	}
	return step.Do(ctx, result)
}
