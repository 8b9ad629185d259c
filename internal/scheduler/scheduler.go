package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"StockCast/internal/domain/models"
	"StockCast/pkg/logger"
)

// RetrainDispatcher accepts background retrain requests.
type RetrainDispatcher interface {
	Dispatch(ctx context.Context, reason string) error
}

// StockChecker evaluates ingredient levels and raises alerts.
type StockChecker interface {
	Check(ctx context.Context) (*models.LowStockAlert, error)
}

// Scheduler runs the periodic retrain and low stock jobs.
type Scheduler struct {
	cron       *cron.Cron
	dispatcher RetrainDispatcher
	checker    StockChecker
	log        *logger.Logger
	ctx        context.Context
	timeout    time.Duration
}

// NewScheduler creates a seconds-resolution scheduler. ctx bounds every job run.
func NewScheduler(ctx context.Context, dispatcher RetrainDispatcher, checker StockChecker, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		dispatcher: dispatcher,
		checker:    checker,
		log:        log,
		ctx:        ctx,
		timeout:    10 * time.Minute,
	}
}

// RegisterAll registers the retrain and low stock jobs. An empty cron expression leaves
// that job unscheduled.
func (s *Scheduler) RegisterAll(retrainCron, lowStockCron string) error {
	if retrainCron != "" && s.dispatcher != nil {
		if _, err := s.cron.AddFunc(retrainCron, s.retrainTask); err != nil {
			return fmt.Errorf("register retrain task: %w", err)
		}
		s.log.Info("retrain job scheduled", logger.String("cron", retrainCron))
	}
	if lowStockCron != "" && s.checker != nil {
		if _, err := s.cron.AddFunc(lowStockCron, s.lowStockTask); err != nil {
			return fmt.Errorf("register low stock task: %w", err)
		}
		s.log.Info("low stock job scheduled", logger.String("cron", lowStockCron))
	}
	return nil
}

// Jobs reports how many jobs are registered.
func (s *Scheduler) Jobs() int { return len(s.cron.Entries()) }

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", logger.Int("jobs", s.Jobs()))
}

// Stop halts scheduling and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) retrainTask() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	if err := s.dispatcher.Dispatch(ctx, "cron"); err != nil {
		s.log.Error("scheduled retrain failed", logger.Error(err))
	}
}

func (s *Scheduler) lowStockTask() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	alert, err := s.checker.Check(ctx)
	if err != nil {
		s.log.Error("scheduled low stock check failed", logger.Error(err))
		return
	}
	if alert != nil {
		s.log.Info("scheduled low stock check raised alert", logger.Int("items", len(alert.Items)))
	}
}
