package service

import (
    "context"
    "fmt"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/iliyamo/cinema-booking/internal/model"
    "github.com/iliyamo/cinema-booking/internal/queue"
    "github.com/iliyamo/cinema-booking/internal/repository"
)

// RetentionService purges data of showtimes that started more than the
// retention window ago.  It never touches upcoming or recent showtimes.
type RetentionService struct {
    store repository.Store
    cfg   settings
}

// NewRetentionService builds a RetentionService on store.
func NewRetentionService(store repository.Store, opts ...Option) *RetentionService {
    return &RetentionService{store: store, cfg: newSettings(opts)}
}

// Cutoff is the start time before which showtimes are past retention.
func (s *RetentionService) Cutoff() time.Time {
    return s.cfg.now().AddDate(0, 0, -s.cfg.retentionDays)
}

// PurgeExpiredBookings deletes every booking of showtimes that started
// before the cutoff, then the seats of those showtimes.  Each showtime is
// one transaction: active bookings are unbooked on the way out and the
// counters are recounted, the same path DeleteBooking takes.
func (s *RetentionService) PurgeExpiredBookings(ctx context.Context) (int, error) {
    old, err := s.store.ListShowtimesStartedBefore(ctx, s.Cutoff())
    if err != nil {
        return 0, fmt.Errorf("list expired showtimes: %w", err)
    }
    purged := 0
    for _, st := range old {
        var deleted []*model.Booking
        err := s.store.WithTx(ctx, func(tx repository.Tx) error {
            now := s.cfg.now()
            locked, err := tx.LockShowtime(ctx, st.ID)
            if err != nil {
                return err
            }
            ids, err := tx.ListBookingIDsByShowtime(ctx, st.ID)
            if err != nil || len(ids) == 0 {
                return err
            }
            for _, id := range ids {
                b, err := tx.LockBooking(ctx, id)
                if err != nil {
                    return err
                }
                if err := deleteBookingTx(ctx, tx, st.ID, b); err != nil {
                    return fmt.Errorf("delete booking %d: %w", id, err)
                }
                deleted = append(deleted, b)
            }
            if err := tx.DeleteSeatsByShowtime(ctx, st.ID); err != nil {
                return fmt.Errorf("delete seats: %w", err)
            }
            _, err = recount(ctx, tx, locked, now)
            return err
        })
        if err != nil {
            return purged, fmt.Errorf("purge bookings of showtime %d: %w", st.ID, err)
        }
        for _, b := range deleted {
            publishBookingEvent(ctx, s.cfg, "retention", queue.BookingDeleted, b, "retention")
        }
        purged += len(deleted)
    }
    s.log("bookings", purged)
    return purged, nil
}

// PurgeExpiredShowtimes deletes showtimes that started before the cutoff
// and have no bookings left, together with their seats.
func (s *RetentionService) PurgeExpiredShowtimes(ctx context.Context) (int, error) {
    old, err := s.store.ListShowtimesStartedBefore(ctx, s.Cutoff())
    if err != nil {
        return 0, fmt.Errorf("list expired showtimes: %w", err)
    }
    purged := 0
    for _, st := range old {
        deleted := false
        err := s.store.WithTx(ctx, func(tx repository.Tx) error {
            if _, err := tx.LockShowtime(ctx, st.ID); err != nil {
                return err
            }
            ids, err := tx.ListBookingIDsByShowtime(ctx, st.ID)
            if err != nil || len(ids) > 0 {
                return err
            }
            deleted = true
            return deleteShowtimeTx(ctx, tx, st.ID)
        })
        if err != nil {
            return purged, fmt.Errorf("purge showtime %d: %w", st.ID, err)
        }
        if deleted {
            purged++
        }
    }
    s.log("showtimes", purged)
    return purged, nil
}

func (s *RetentionService) log(kind string, n int) {
    s.cfg.logger.WithFields(logrus.Fields{
        "component": "retention",
        "kind":      kind,
        "purged":    n,
        "cutoff":    s.Cutoff().Format(time.RFC3339),
    }).Info("retention purge finished")
}
