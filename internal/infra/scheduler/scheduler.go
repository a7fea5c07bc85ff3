package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/app"
)

// Sweeper is the job the scheduler runs periodically.
type Sweeper interface {
	Run(ctx context.Context) (app.Report, error)
}

// ReconcileScheduler runs the reconciliation sweep on a cron schedule.
type ReconcileScheduler struct {
	cronEngine *cron.Cron
	sweeper    Sweeper
	logger     *logrus.Entry
	cronSpec   string
	timeout    time.Duration
}

func NewReconcileScheduler(sweeper Sweeper, logger *logrus.Entry, cronSpec string, timeout time.Duration) *ReconcileScheduler {
	return &ReconcileScheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.Local), // server's local time
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(logger))),
		),
		sweeper:  sweeper,
		logger:   logger,
		cronSpec: cronSpec,
		timeout:  timeout,
	}
}

// Start registers the sweep and starts the cron engine.
func (s *ReconcileScheduler) Start() error {
	if _, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.logger.Info("Cron job triggered for reconciliation sweep")
		s.RunOnce(context.Background())
	}); err != nil {
		return fmt.Errorf("could not add reconciliation cron job %q: %w", s.cronSpec, err)
	}
	s.cronEngine.Start()
	s.logger.WithField("spec", s.cronSpec).Info("Reconciliation scheduler started")
	return nil
}

// RunOnce runs a single sweep bounded by the configured timeout.
func (s *ReconcileScheduler) RunOnce(ctx context.Context) (app.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	rep, err := s.sweeper.Run(ctx)
	log := s.logger.WithFields(logrus.Fields{
		"repaired": rep.Repaired(),
		"elapsed":  time.Since(started).String(),
	})
	if err != nil {
		log.WithError(err).Error("Reconciliation sweep failed")
		return rep, err
	}
	log.Info("Reconciliation sweep done")
	return rep, nil
}

// Stop stops the cron engine and returns a context that is done once the
// running sweep, if any, has finished.
func (s *ReconcileScheduler) Stop() context.Context {
	s.logger.Info("Stopping reconciliation scheduler")
	return s.cronEngine.Stop()
}
