package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	billingdomain "github.com/smallbiznis/dairyos/internal/billing/domain"
	"github.com/smallbiznis/dairyos/internal/clock"
	"github.com/smallbiznis/dairyos/internal/locks"
	"github.com/smallbiznis/dairyos/internal/observability/metrics"
	recondomain "github.com/smallbiznis/dairyos/internal/reconciliation/domain"
)

const (
	jobGenerateBills = "generate_bills"
	jobReconcile     = "reconcile"

	// jobLeaseTTL keeps a completed daily job from rerunning on other
	// workers until the day is over.
	jobLeaseTTL = 23 * time.Hour

	monthLayout = "2006-01"
	dateLayout  = "2006-01-02"
)

var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

type Params struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	Locker  locks.Locker
	Metrics *metrics.Metrics `optional:"true"`

	BillingSvc billingdomain.Service
	ReconSvc   recondomain.Service
	Config     Config `optional:"true"`
}

type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	clock   clock.Clock
	locker  locks.Locker
	metrics *metrics.Metrics

	billingSvc billingdomain.Service
	reconSvc   recondomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.Locker == nil || p.BillingSvc == nil || p.ReconSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler"),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		locker:     p.Locker,
		metrics:    p.Metrics,
		billingSvc: p.BillingSvc,
		reconSvc:   p.ReconSvc,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	err := fn(ctx)

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	s.metrics.ObserveSchedulerJob(name, result, time.Since(start))

	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err))
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{jobGenerateBills, s.GenerateBillsJob},
		{jobReconcile, s.ReconcileJob},
	}
	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(name string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, name) {
			return true
		}
	}
	return false
}

// GenerateBillsJob produces the previous month's bills once the
// configured day of month arrives. A day-long lease keeps redundant
// workers off a month that is already being handled; GenerateAll
// itself is idempotent if the lease is ever lost mid-run.
func (s *Scheduler) GenerateBillsJob(ctx context.Context) error {
	today := clock.Today(s.clock)
	if today.Day() != s.cfg.GenerateDayOfMonth {
		return nil
	}
	month := today.AddDate(0, -1, 0).Format(monthLayout)

	key := "jobs:generate_all:" + month
	token, ok, err := s.locker.TryAcquire(ctx, key, jobLeaseTTL)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	batch, err := s.billingSvc.GenerateAll(ctx, month)
	if err != nil {
		// Give the lease back so the next tick can retry today.
		if relErr := s.locker.Release(ctx, key, token); relErr != nil {
			s.log.Warn("job lease release failed", zap.String("key", key), zap.Error(relErr))
		}
		return err
	}

	s.log.Info("monthly bill generation complete",
		zap.String("month", month),
		zap.Int("generated", batch.Generated),
		zap.Int("skipped", batch.Skipped),
		zap.Int("failed", batch.Failed))
	return nil
}

// ReconcileJob audits the previous day's settlement activity.
func (s *Scheduler) ReconcileJob(ctx context.Context) error {
	yesterday := clock.Today(s.clock).AddDate(0, 0, -1).Format(dateLayout)

	key := "jobs:reconcile:" + yesterday
	token, ok, err := s.locker.TryAcquire(ctx, key, jobLeaseTTL)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	report, err := s.reconSvc.RunReconciliation(ctx, yesterday)
	if err != nil {
		if relErr := s.locker.Release(ctx, key, token); relErr != nil {
			s.log.Warn("job lease release failed", zap.String("key", key), zap.Error(relErr))
		}
		return err
	}

	if report.ErrorCount > 0 {
		s.log.Warn("reconciliation found discrepancies",
			zap.String("run_date", yesterday),
			zap.Int("errors", report.ErrorCount),
			zap.Int("warnings", report.WarningCount))
	}
	return nil
}
