package service

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/iliyamo/cinema-booking/internal/model"
    "github.com/iliyamo/cinema-booking/internal/repository"
)

// The helpers in this file run inside a repository transaction and are
// the only code that changes seat state or the showtime counters.

// prepareShowtime locks the showtime row, materializes its seat map if it
// has none yet and clears holds that lapsed at or before now.  Every hold
// or booking decision starts here so a stale hold is never read as live.
func prepareShowtime(ctx context.Context, tx repository.Tx, showtimeID uint64, now time.Time) (*model.Showtime, error) {
    st, err := tx.LockShowtime(ctx, showtimeID)
    if err != nil {
        return nil, err
    }
    if err := ensureSeats(ctx, tx, st, nil, now); err != nil {
        return nil, err
    }
    if _, err := tx.ClearExpiredHolds(ctx, st.ID, now); err != nil {
        return nil, fmt.Errorf("clear expired holds: %w", err)
    }
    return st, nil
}

// ensureSeats generates the seat map of a locked showtime when it has no
// seats.  override, when non-empty, wins over the screen layout.  Existing
// seats make it a no-op.
func ensureSeats(ctx context.Context, tx repository.Tx, st *model.Showtime, override *model.ScreenLayout, now time.Time) error {
    total, _, err := tx.CountSeats(ctx, st.ID, now)
    if err != nil {
        return fmt.Errorf("count seats: %w", err)
    }
    if total > 0 {
        return nil
    }
    layout := override
    if layout.Empty() {
        screen, err := tx.GetScreen(ctx, st.ScreenID)
        switch {
        case err == nil:
            layout = screen.Layout
        case errors.Is(err, repository.ErrScreenNotFound):
            // unknown screen: fall back to the default grid
        default:
            return fmt.Errorf("load screen %d: %w", st.ScreenID, err)
        }
    }
    seats, err := generateSeats(st.ID, layout)
    if err != nil {
        return err
    }
    if err := tx.InsertSeats(ctx, seats); err != nil {
        return fmt.Errorf("insert seats: %w", err)
    }
    _, err = recount(ctx, tx, st, now)
    return err
}

// recount recomputes total and available seats from seat state and writes
// them to the showtime.  It is the single writer of the counters and must
// run in the transaction that changed the seats.  st is updated in place.
func recount(ctx context.Context, tx repository.Tx, st *model.Showtime, now time.Time) (*model.Showtime, error) {
    total, available, err := tx.CountSeats(ctx, st.ID, now)
    if err != nil {
        return nil, fmt.Errorf("count seats: %w", err)
    }
    if available > total {
        return nil, fmt.Errorf("showtime %d: %d available of %d seats", st.ID, available, total)
    }
    if err := tx.SetSeatCounts(ctx, st.ID, total, available); err != nil {
        return nil, fmt.Errorf("update seat counts: %w", err)
    }
    st.TotalSeats, st.AvailableSeats = total, available
    return st, nil
}

// lockShowtimeSeats locks the seats with the given ids and returns them in
// the order of ids.  An id that does not exist or belongs to another
// showtime fails the whole call with ErrSeatNotFound for that id.
func lockShowtimeSeats(ctx context.Context, tx repository.Tx, showtimeID uint64, ids []uint64) ([]model.Seat, error) {
    locked, err := tx.LockSeats(ctx, ids)
    if err != nil {
        return nil, fmt.Errorf("lock seats: %w", err)
    }
    byID := make(map[uint64]model.Seat, len(locked))
    for _, s := range locked {
        byID[s.ID] = s
    }
    out := make([]model.Seat, 0, len(ids))
    for _, id := range ids {
        s, ok := byID[id]
        if !ok || s.ShowtimeID != showtimeID {
            return nil, repository.NewSeatError(id, repository.ErrSeatNotFound)
        }
        out = append(out, s)
    }
    return out, nil
}

// uniqueIDs drops zero and repeated ids, keeping first-seen order.
func uniqueIDs(ids []uint64) []uint64 {
    out := make([]uint64, 0, len(ids))
    seen := make(map[uint64]struct{}, len(ids))
    for _, id := range ids {
        if id == 0 {
            continue
        }
        if _, ok := seen[id]; !ok {
            seen[id] = struct{}{}
            out = append(out, id)
        }
    }
    return out
}

func seatLabels(seats []model.Seat) []string {
    labels := make([]string, 0, len(seats))
    for _, s := range seats {
        labels = append(labels, s.Label())
    }
    return labels
}
