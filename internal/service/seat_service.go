package service

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/google/uuid"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/cinema-booking/internal/model"
    "github.com/iliyamo/cinema-booking/internal/repository"
)

// SeatService owns the seat map of a showtime and the short lived holds
// placed on it during checkout.
//
// Holds are keyed by a checkout session id.  A hold may overwrite another
// session's hold and a release clears holds regardless of owner; only
// booked seats are protected.
type SeatService struct {
    store repository.Store
    cfg   settings
}

// NewSeatService builds a SeatService on store.
func NewSeatService(store repository.Store, opts ...Option) *SeatService {
    return &SeatService{store: store, cfg: newSettings(opts)}
}

// HoldTTL reports the configured hold lifetime.
func (s *SeatService) HoldTTL() time.Duration { return s.cfg.holdTTL }

// HoldResult describes a successful hold.
type HoldResult struct {
    SessionID string
    ExpiresAt time.Time
    Seats     []model.Seat
}

// EnsureSeatsInitialized materializes the seat map of a showtime from its
// screen layout, or the default grid, if it has no seats yet.  Calling it
// again is a no-op.  It returns the showtime with up to date counters.
func (s *SeatService) EnsureSeatsInitialized(ctx context.Context, showtimeID uint64) (*model.Showtime, error) {
    var out *model.Showtime
    err := s.store.WithTx(ctx, func(tx repository.Tx) error {
        now := s.cfg.now()
        st, err := tx.LockShowtime(ctx, showtimeID)
        if err != nil {
            return err
        }
        if err := ensureSeats(ctx, tx, st, nil, now); err != nil {
            return err
        }
        out, err = recount(ctx, tx, st, now)
        return err
    })
    if err != nil {
        return nil, fmt.Errorf("initialize seats of showtime %d: %w", showtimeID, err)
    }
    return out, nil
}

// ListSeats returns every seat of the showtime after reclaiming lapsed
// holds, materializing the seat map on first access.
func (s *SeatService) ListSeats(ctx context.Context, showtimeID uint64) ([]model.Seat, error) {
    var seats []model.Seat
    err := s.store.WithTx(ctx, func(tx repository.Tx) error {
        now := s.cfg.now()
        st, err := prepareShowtime(ctx, tx, showtimeID, now)
        if err != nil {
            return err
        }
        if _, err := recount(ctx, tx, st, now); err != nil {
            return err
        }
        seats, err = tx.ListSeats(ctx, showtimeID)
        return err
    })
    if err != nil {
        return nil, fmt.Errorf("list seats of showtime %d: %w", showtimeID, err)
    }
    return seats, nil
}

// HoldSeats holds every seat in seatIDs for sessionID until now plus the
// hold TTL.  An empty sessionID starts a new session.  If any seat is
// booked, or is not a seat of the showtime, nothing is held.
func (s *SeatService) HoldSeats(ctx context.Context, showtimeID uint64, seatIDs []uint64, sessionID string) (*HoldResult, error) {
    ids := uniqueIDs(seatIDs)
    if len(ids) == 0 {
        return nil, fmt.Errorf("hold seats: no seat ids: %w", repository.ErrValidation)
    }
    if sessionID == "" {
        sessionID = uuid.NewString()
    }
    res := &HoldResult{SessionID: sessionID}
    err := s.store.WithTx(ctx, func(tx repository.Tx) error {
        now := s.cfg.now()
        st, err := prepareShowtime(ctx, tx, showtimeID, now)
        if err != nil {
            return err
        }
        seats, err := lockShowtimeSeats(ctx, tx, st.ID, ids)
        if err != nil {
            return err
        }
        for _, seat := range seats {
            if seat.IsBooked {
                return repository.NewSeatError(seat.ID, repository.ErrSeatAlreadyBooked)
            }
        }
        res.ExpiresAt = now.Add(s.cfg.holdTTL)
        for i := range seats {
            seats[i].Hold(sessionID, res.ExpiresAt)
        }
        if err := tx.UpdateSeats(ctx, seats); err != nil {
            return err
        }
        res.Seats = seats
        _, err = recount(ctx, tx, st, now)
        return err
    })
    if err != nil {
        return nil, fmt.Errorf("hold seats on showtime %d: %w", showtimeID, err)
    }
    s.cfg.logger.WithFields(logrus.Fields{
        "component":   "seats",
        "showtime_id": showtimeID,
        "seat_count":  len(res.Seats),
        "session_id":  sessionID,
    }).Debug("seats held")
    return res, nil
}

// ReleaseSeats clears the hold on every listed seat of the showtime that
// is not booked.  Unknown ids and seats of other showtimes are skipped.
// It returns the number of holds cleared.
func (s *SeatService) ReleaseSeats(ctx context.Context, showtimeID uint64, seatIDs []uint64) (int, error) {
    ids := uniqueIDs(seatIDs)
    if len(ids) == 0 {
        return 0, fmt.Errorf("release seats: no seat ids: %w", repository.ErrValidation)
    }
    released := 0
    err := s.store.WithTx(ctx, func(tx repository.Tx) error {
        now := s.cfg.now()
        st, err := prepareShowtime(ctx, tx, showtimeID, now)
        if err != nil {
            return err
        }
        locked, err := tx.LockSeats(ctx, ids)
        if err != nil {
            return err
        }
        changed := make([]model.Seat, 0, len(locked))
        for _, seat := range locked {
            if seat.ShowtimeID != st.ID || seat.IsBooked || !seat.IsHeld {
                continue
            }
            seat.ClearHold()
            changed = append(changed, seat)
        }
        if err := tx.UpdateSeats(ctx, changed); err != nil {
            return err
        }
        released = len(changed)
        _, err = recount(ctx, tx, st, now)
        return err
    })
    if err != nil {
        return 0, fmt.Errorf("release seats on showtime %d: %w", showtimeID, err)
    }
    return released, nil
}

// SweepExpiredHolds reclaims lapsed holds on every showtime that has any
// and refreshes their counters.  One showtime failing does not stop the
// others; the first error is returned after all were tried.
func (s *SeatService) SweepExpiredHolds(ctx context.Context) (int64, error) {
    now := s.cfg.now()
    ids, err := s.store.ListShowtimeIDsWithExpiredHolds(ctx, now)
    if err != nil {
        return 0, fmt.Errorf("find expired holds: %w", err)
    }
    var (
        total    int64
        firstErr error
    )
    for _, id := range ids {
        var cleared int64
        err := s.store.WithTx(ctx, func(tx repository.Tx) error {
            st, err := tx.LockShowtime(ctx, id)
            if err != nil {
                return err
            }
            if cleared, err = tx.ClearExpiredHolds(ctx, id, now); err != nil {
                return err
            }
            _, err = recount(ctx, tx, st, now)
            return err
        })
        if errors.Is(err, repository.ErrShowtimeNotFound) {
            continue
        }
        if err != nil {
            s.cfg.logger.WithError(err).WithField("showtime_id", id).Warn("hold sweep failed")
            if firstErr == nil {
                firstErr = fmt.Errorf("sweep showtime %d: %w", id, err)
            }
            continue
        }
        total += cleared
    }
    return total, firstErr
}
