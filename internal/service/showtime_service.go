package service

import (
    "context"
    "fmt"
    "strings"
    "time"

    "github.com/iliyamo/cinema-booking/internal/model"
    "github.com/iliyamo/cinema-booking/internal/repository"
)

// ShowtimeService manages screens and showtimes on the admin side and
// serves showtime reads with fresh counters.
type ShowtimeService struct {
    store repository.Store
    cfg   settings
}

// NewShowtimeService builds a ShowtimeService on store.
func NewShowtimeService(store repository.Store, opts ...Option) *ShowtimeService {
    return &ShowtimeService{store: store, cfg: newSettings(opts)}
}

// UpsertScreen creates or replaces a screen and its layout.  The layout
// only affects showtimes whose seats are materialized afterwards.
func (s *ShowtimeService) UpsertScreen(ctx context.Context, sc model.Screen) (*model.Screen, error) {
    if sc.ID == 0 {
        return nil, fmt.Errorf("screen id: %w", repository.ErrValidation)
    }
    sc.Name = strings.TrimSpace(sc.Name)
    if sc.Name == "" {
        return nil, fmt.Errorf("screen name: %w", repository.ErrValidation)
    }
    if !sc.Layout.Empty() {
        if err := ValidateLayout(sc.Layout); err != nil {
            return nil, err
        }
    }
    err := s.store.WithTx(ctx, func(tx repository.Tx) error {
        return tx.UpsertScreen(ctx, &sc)
    })
    if err != nil {
        return nil, fmt.Errorf("upsert screen %d: %w", sc.ID, err)
    }
    return &sc, nil
}

// GetScreen returns a screen with its layout.
func (s *ShowtimeService) GetScreen(ctx context.Context, id uint64) (*model.Screen, error) {
    sc, err := s.store.GetScreen(ctx, id)
    if err != nil {
        return nil, fmt.Errorf("get screen %d: %w", id, err)
    }
    return sc, nil
}

// ScheduleShowtimeRequest is the input of ScheduleShowtime.
type ScheduleShowtimeRequest struct {
    MovieID          uint64
    TheaterID        uint64
    ScreenID         uint64
    ScreenName       string
    StartsAt         time.Time
    TicketPriceCents uint32
    TotalSeats       uint32
    AvailableSeats   uint32
    // Sections, when set, replaces the screen layout for this showtime.
    Sections []model.LayoutSection
}

// ScheduleShowtime inserts a showtime and materializes its seat map in the
// same transaction.  The declared seat counts are only checked for
// consistency; the stored counters always come from the generated seats.
func (s *ShowtimeService) ScheduleShowtime(ctx context.Context, req ScheduleShowtimeRequest) (*model.Showtime, error) {
    if req.MovieID == 0 || req.TheaterID == 0 || req.ScreenID == 0 {
        return nil, fmt.Errorf("movie, theater and screen ids are required: %w", repository.ErrValidation)
    }
    if req.StartsAt.IsZero() {
        return nil, fmt.Errorf("start time: %w", repository.ErrValidation)
    }
    if req.AvailableSeats > req.TotalSeats {
        return nil, fmt.Errorf("available seats exceed total seats: %w", repository.ErrValidation)
    }
    var override *model.ScreenLayout
    if len(req.Sections) > 0 {
        override = &model.ScreenLayout{Sections: req.Sections}
        if err := ValidateLayout(override); err != nil {
            return nil, err
        }
    }

    st := &model.Showtime{
        MovieID:          req.MovieID,
        TheaterID:        req.TheaterID,
        ScreenID:         req.ScreenID,
        ScreenName:       strings.TrimSpace(req.ScreenName),
        StartsAt:         req.StartsAt.UTC(),
        TicketPriceCents: req.TicketPriceCents,
        TotalSeats:       req.TotalSeats,
        AvailableSeats:   req.AvailableSeats,
        Status:           model.ShowtimeActive,
    }
    err := s.store.WithTx(ctx, func(tx repository.Tx) error {
        now := s.cfg.now()
        if st.ScreenName == "" {
            if sc, err := tx.GetScreen(ctx, st.ScreenID); err == nil {
                st.ScreenName = sc.Name
            }
        }
        if err := tx.InsertShowtime(ctx, st); err != nil {
            return err
        }
        locked, err := tx.LockShowtime(ctx, st.ID)
        if err != nil {
            return err
        }
        if err := ensureSeats(ctx, tx, locked, override, now); err != nil {
            return err
        }
        st = locked
        return nil
    })
    if err != nil {
        return nil, fmt.Errorf("schedule showtime: %w", err)
    }
    return st, nil
}

// GetShowtime returns a showtime after clearing its lapsed holds, so the
// available count reflects the current time.
func (s *ShowtimeService) GetShowtime(ctx context.Context, id uint64) (*model.Showtime, error) {
    var out *model.Showtime
    err := s.store.WithTx(ctx, func(tx repository.Tx) error {
        now := s.cfg.now()
        st, err := prepareShowtime(ctx, tx, id, now)
        if err != nil {
            return err
        }
        out, err = recount(ctx, tx, st, now)
        return err
    })
    if err != nil {
        return nil, fmt.Errorf("get showtime %d: %w", id, err)
    }
    return out, nil
}

// SearchShowtimes pages through showtimes.  Counters in the result are as
// last written; holds that lapsed since are reflected on the next read of
// the individual showtime.
func (s *ShowtimeService) SearchShowtimes(ctx context.Context, q repository.ShowtimeSearchQuery) ([]model.Showtime, int64, error) {
    if q.Now.IsZero() {
        q.Now = s.cfg.now()
    }
    out, total, err := s.store.SearchShowtimes(ctx, q)
    if err != nil {
        return nil, 0, fmt.Errorf("search showtimes: %w", err)
    }
    return out, total, nil
}

// DeleteShowtime removes a showtime with its seats and bookings.
func (s *ShowtimeService) DeleteShowtime(ctx context.Context, id uint64) error {
    err := s.store.WithTx(ctx, func(tx repository.Tx) error {
        return deleteShowtimeTx(ctx, tx, id)
    })
    if err != nil {
        return fmt.Errorf("delete showtime %d: %w", id, err)
    }
    return nil
}

// deleteShowtimeTx removes bookings, seats and the showtime row in that
// order.  The showtime is locked first.
func deleteShowtimeTx(ctx context.Context, tx repository.Tx, id uint64) error {
    if _, err := tx.LockShowtime(ctx, id); err != nil {
        return err
    }
    ids, err := tx.ListBookingIDsByShowtime(ctx, id)
    if err != nil {
        return err
    }
    for _, bid := range ids {
        if err := tx.DeleteBooking(ctx, bid); err != nil {
            return fmt.Errorf("delete booking %d: %w", bid, err)
        }
    }
    if err := tx.DeleteSeatsByShowtime(ctx, id); err != nil {
        return err
    }
    return tx.DeleteShowtime(ctx, id)
}
