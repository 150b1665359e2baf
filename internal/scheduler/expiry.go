// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper expires coupons past their expiry. *application.RedemptionService satisfies it.
type Sweeper interface {
	ExpireDue(ctx context.Context) (int, error)
}

// ExpirySweep runs a Sweeper on a cron schedule. Runs never overlap.
type ExpirySweep struct {
	cron    *cron.Cron
	sweeper Sweeper
	timeout time.Duration
	logger  *zap.Logger
}

// NewExpirySweep schedules sweeper. spec accepts standard five field
// expressions, an optional leading seconds field and descriptors such as
// "@every 1m".
func NewExpirySweep(spec string, sweeper Sweeper, timeout time.Duration, logger *zap.Logger) (*ExpirySweep, error) {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	cl := cronLogger{logger.Sugar()}
	s := &ExpirySweep{
		cron:    cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl)),
		sweeper: sweeper,
		timeout: timeout,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(spec, func() { _, _ = s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid expiry sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

// RunOnce performs a single sweep.
func (s *ExpirySweep) RunOnce(ctx context.Context) (int, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	n, err := s.sweeper.ExpireDue(ctx)
	if err != nil {
		s.logger.Error("expiry sweep failed", zap.Int("expired", n), zap.Error(err))
		return n, err
	}
	s.logger.Debug("expiry sweep finished", zap.Int("expired", n))
	return n, nil
}

// Start runs the schedule until ctx is cancelled, then waits for a running
// sweep to finish.
func (s *ExpirySweep) Start(ctx context.Context) error {
	s.cron.Start()
	s.logger.Info("expiry sweep scheduled")
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
