package config

import "time"

// SchedulerConfig drives the background jobs: the expired-hold sweep and
// the two daily retention jobs.
type SchedulerConfig struct {
    Enabled       bool
    SweepInterval time.Duration // how often lapsed holds are reclaimed
    RetentionDays int           // showtimes older than this are purged
    BookingsCron  string        // cron spec for the booking purge
    ShowtimesCron string        // cron spec for the empty showtime purge
}

// LoadSchedulerConfig reads HOLD_SWEEP_INTERVAL, RETENTION_* and
// SCHEDULER_ENABLED.
func LoadSchedulerConfig() SchedulerConfig {
    cfg := SchedulerConfig{
        Enabled:       envBool("SCHEDULER_ENABLED", true),
        SweepInterval: envDur("HOLD_SWEEP_INTERVAL", time.Minute),
        RetentionDays: envInt("RETENTION_DAYS", 7),
        BookingsCron:  envStr("RETENTION_BOOKINGS_CRON", "0 2 * * *"),
        ShowtimesCron: envStr("RETENTION_SHOWTIMES_CRON", "0 3 * * *"),
    }
    if cfg.SweepInterval < time.Second {
        cfg.SweepInterval = time.Second
    }
    if cfg.RetentionDays < 1 {
        cfg.RetentionDays = 1
    }
    return cfg
}
