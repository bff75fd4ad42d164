// Package scheduler runs the background jobs of the booking service: the
// periodic hold sweep and the nightly retention purges.
package scheduler

import (
    "context"
    "fmt"
    "time"

    "github.com/go-co-op/gocron/v2"
    "github.com/robfig/cron/v3"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/cinema-booking/internal/config"
)

// HoldSweeper clears lapsed seat holds.
type HoldSweeper interface {
    SweepExpiredHolds(ctx context.Context) (int64, error)
}

// Purger removes data past retention.
type Purger interface {
    PurgeExpiredBookings(ctx context.Context) (int, error)
    PurgeExpiredShowtimes(ctx context.Context) (int, error)
}

// Scheduler owns both job runners.  The hold sweep runs on a fixed
// interval with gocron; the retention purges run on cron expressions.
type Scheduler struct {
    cfg     config.SchedulerConfig
    sweeper HoldSweeper
    purger  Purger
    log     *logrus.Entry

    interval gocron.Scheduler
    cron     *cron.Cron
    ctx      context.Context
    cancel   context.CancelFunc
}

// New prepares the jobs without starting them.
func New(cfg config.SchedulerConfig, sweeper HoldSweeper, purger Purger, logger *logrus.Logger) (*Scheduler, error) {
    if logger == nil {
        logger = logrus.StandardLogger()
    }
    s := &Scheduler{
        cfg:     cfg,
        sweeper: sweeper,
        purger:  purger,
        log:     logger.WithField("component", "scheduler"),
    }
    s.ctx, s.cancel = context.WithCancel(context.Background())

    gs, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
    if err != nil {
        return nil, fmt.Errorf("create interval scheduler: %w", err)
    }
    if _, err := gs.NewJob(
        gocron.DurationJob(cfg.SweepInterval),
        gocron.NewTask(s.sweepHolds),
        gocron.WithName("hold-sweep"),
        gocron.WithSingletonMode(gocron.LimitModeReschedule),
    ); err != nil {
        return nil, fmt.Errorf("register hold sweep: %w", err)
    }
    s.interval = gs

    s.cron = cron.New(
        cron.WithLocation(time.UTC),
        cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
    )
    if _, err := s.cron.AddFunc(cfg.BookingsCron, s.purgeBookings); err != nil {
        return nil, fmt.Errorf("register booking purge %q: %w", cfg.BookingsCron, err)
    }
    if _, err := s.cron.AddFunc(cfg.ShowtimesCron, s.purgeShowtimes); err != nil {
        return nil, fmt.Errorf("register showtime purge %q: %w", cfg.ShowtimesCron, err)
    }
    return s, nil
}

// Start launches both runners.
func (s *Scheduler) Start() {
    s.interval.Start()
    s.cron.Start()
    s.log.WithFields(logrus.Fields{
        "sweep_interval": s.cfg.SweepInterval.String(),
        "bookings_cron":  s.cfg.BookingsCron,
        "showtimes_cron": s.cfg.ShowtimesCron,
    }).Info("scheduler started")
}

// Stop cancels running jobs and waits for the cron runner to drain.
func (s *Scheduler) Stop() error {
    s.cancel()
    <-s.cron.Stop().Done()
    if err := s.interval.Shutdown(); err != nil {
        return fmt.Errorf("stop interval scheduler: %w", err)
    }
    s.log.Info("scheduler stopped")
    return nil
}

func (s *Scheduler) sweepHolds() {
    n, err := s.sweeper.SweepExpiredHolds(s.ctx)
    if err != nil {
        s.log.WithError(err).Warn("hold sweep failed")
        return
    }
    if n > 0 {
        s.log.WithField("cleared", n).Info("expired holds cleared")
    }
}

func (s *Scheduler) purgeBookings() {
    if _, err := s.purger.PurgeExpiredBookings(s.ctx); err != nil {
        s.log.WithError(err).Error("booking purge failed")
    }
}

func (s *Scheduler) purgeShowtimes() {
    if _, err := s.purger.PurgeExpiredShowtimes(s.ctx); err != nil {
        s.log.WithError(err).Error("showtime purge failed")
    }
}
