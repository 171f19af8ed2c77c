package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"peatracker/internal/core"
	"peatracker/internal/log"
	"peatracker/internal/schedule"
)

// Reminder is the outcome of the daily DCA check.
type Reminder struct {
	Date      core.Date
	Planned   decimal.Decimal
	Deposited decimal.Decimal
}

// Due reports whether a contribution is planned today and not yet recorded.
func (r Reminder) Due() bool {
	return r.Planned.IsPositive() && r.Deposited.LessThan(r.Planned)
}

// Scheduler runs the periodic worker jobs.
type Scheduler struct {
	cron   *cron.Cron
	worker *SyncWorker
	userID string
	loc    *time.Location
	now    func() time.Time
	ctx    context.Context
	logger *log.Logger
}

func NewScheduler(ctx context.Context, w *SyncWorker, userID string, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		worker: w,
		userID: userID,
		loc:    loc,
		now:    time.Now,
		ctx:    ctx,
		logger: log.FromContext(ctx).WithComponent(log.ComponentScheduler),
	}
}

// RegisterAll registers the resync and DCA reminder jobs. An empty expression
// disables its job.
func (s *Scheduler) RegisterAll(resyncCron, reminderCron string) error {
	if resyncCron != "" {
		if _, err := s.cron.AddFunc(resyncCron, s.resyncTask); err != nil {
			return fmt.Errorf("register resync task: %w", err)
		}
	}
	if reminderCron != "" {
		if _, err := s.cron.AddFunc(reminderCron, s.reminderTask); err != nil {
			return fmt.Errorf("register dca reminder task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.InfoContext(s.ctx, "Scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.InfoContext(s.ctx, "Scheduler stopped")
}

// RunResyncNow executes the resync job immediately.
func (s *Scheduler) RunResyncNow() error {
	return s.worker.FullResync(s.ctx, s.userID)
}

func (s *Scheduler) resyncTask() {
	if err := s.RunResyncNow(); err != nil {
		s.logger.ErrorContext(s.ctx, "Scheduled resync failed",
			log.FieldOperation, log.OpSync,
			log.FieldUserID, s.userID,
			log.FieldError, err)
	}
}

// DCAReminder checks today's planned contribution against the deposits
// recorded today.
func (s *Scheduler) DCAReminder(ctx context.Context) (Reminder, error) {
	today := core.DateOf(s.now().In(s.loc))
	r := Reminder{Date: today, Planned: decimal.Zero, Deposited: decimal.Zero}

	cfg, err := s.worker.local.LoadSchedule(ctx)
	if err != nil {
		return r, fmt.Errorf("load schedule: %w", err)
	}
	if cfg == nil {
		return r, nil
	}
	r.Planned = schedule.New(*cfg).AmountForDate(today)
	if r.Planned.IsZero() {
		return r, nil
	}

	deposits, err := s.worker.local.LoadDeposits(ctx)
	if err != nil {
		return r, fmt.Errorf("load deposits: %w", err)
	}
	for _, d := range deposits {
		if d.Date.Equal(today) {
			r.Deposited = r.Deposited.Add(d.Amount)
		}
	}
	return r, nil
}

func (s *Scheduler) reminderTask() {
	r, err := s.DCAReminder(s.ctx)
	if err != nil {
		s.logger.ErrorContext(s.ctx, "DCA reminder failed", log.FieldError, err)
		return
	}
	if !r.Due() {
		s.logger.DebugContext(s.ctx, "No DCA contribution due", log.FieldDate, r.Date.String())
		return
	}
	s.logger.InfoContext(s.ctx, "DCA contribution due today",
		log.FieldDate, r.Date.String(),
		log.FieldAmount, r.Planned.StringFixed(2),
		"deposited", r.Deposited.StringFixed(2))
}
