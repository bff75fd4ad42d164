// Package service implements the seat reservation state machine: seat
// materialization, holds, bookings and the showtime capacity counter, plus
// the showtime, retention and payment flows built on top of it.  Every
// seat state change runs inside one repository transaction that also
// recomputes the showtime's available seat count.
package service

import (
    "context"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/iliyamo/cinema-booking/internal/queue"
)

const (
    defaultHoldTTL       = 10 * time.Minute
    defaultRefundPercent = 90
    defaultRetentionDays = 7
)

// Clock abstracts time so tests can move it.
type Clock interface {
    Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// EventPublisher receives booking lifecycle events after commit.
type EventPublisher interface {
    Publish(ctx context.Context, ev queue.BookingEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, queue.BookingEvent) error { return nil }

type settings struct {
    clock         Clock
    holdTTL       time.Duration
    refundPercent int
    retentionDays int
    publisher     EventPublisher
    logger        *logrus.Logger
}

// Option customises a service.
type Option func(*settings)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
    return func(s *settings) {
        if c != nil {
            s.clock = c
        }
    }
}

// WithHoldTTL sets how long a seat hold lasts.
func WithHoldTTL(ttl time.Duration) Option {
    return func(s *settings) {
        if ttl > 0 {
            s.holdTTL = ttl
        }
    }
}

// WithRefundPercent sets the refunded share of a cancelled booking.
func WithRefundPercent(p int) Option {
    return func(s *settings) {
        if p >= 0 && p <= 100 {
            s.refundPercent = p
        }
    }
}

// WithRetentionDays sets how long showtimes and their bookings are kept
// after they started.
func WithRetentionDays(days int) Option {
    return func(s *settings) {
        if days > 0 {
            s.retentionDays = days
        }
    }
}

// WithPublisher sets the booking event sink.
func WithPublisher(p EventPublisher) Option {
    return func(s *settings) {
        if p != nil {
            s.publisher = p
        }
    }
}

// WithLogger sets the logrus logger used by the service.
func WithLogger(l *logrus.Logger) Option {
    return func(s *settings) {
        if l != nil {
            s.logger = l
        }
    }
}

func newSettings(opts []Option) settings {
    s := settings{
        clock:         SystemClock{},
        holdTTL:       defaultHoldTTL,
        refundPercent: defaultRefundPercent,
        retentionDays: defaultRetentionDays,
        publisher:     nopPublisher{},
        logger:        logrus.StandardLogger(),
    }
    for _, o := range opts {
        o(&s)
    }
    return s
}

func (s settings) now() time.Time { return s.clock.Now().UTC() }
