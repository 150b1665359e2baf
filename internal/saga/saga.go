package saga

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Step is a single step in a saga with execute and compensate actions.
type Step struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// StepError reports the step that stopped a saga.
type StepError struct {
	Saga string
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("saga %q failed at step %q: %v", e.Saga, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Saga runs a sequence of steps and undoes the completed ones, newest
// first, when a later step fails.
type Saga struct {
	name   string
	steps  []Step
	logger *zap.Logger
}

// New creates a saga orchestrator.
func New(name string, logger *zap.Logger) *Saga {
	return &Saga{
		name:   name,
		steps:  make([]Step, 0, 4),
		logger: logger,
	}
}

// AddStep appends a step to the saga.
func (s *Saga) AddStep(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Execute runs all steps in order. The returned error wraps the failing
// step's error, so callers can still match it with errors.Is.
func (s *Saga) Execute(ctx context.Context) error {
	executed := make([]Step, 0, len(s.steps))

	for _, step := range s.steps {
		s.logger.Debug("executing saga step", zap.String("saga", s.name), zap.String("step", step.Name))

		if err := step.Execute(ctx); err != nil {
			s.logger.Info("saga step failed, compensating",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Error(err),
			)
			s.compensate(ctx, executed)
			return &StepError{Saga: s.name, Step: step.Name, Err: err}
		}

		executed = append(executed, step)
	}

	s.logger.Debug("saga completed", zap.String("saga", s.name))
	return nil
}

func (s *Saga) compensate(ctx context.Context, executed []Step) {
	// Compensation must run even if the request context is already done.
	ctx = context.WithoutCancel(ctx)
	for i := len(executed) - 1; i >= 0; i-- {
		step := executed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			s.logger.Error("compensation failed",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Error(err),
			)
		}
	}
}
