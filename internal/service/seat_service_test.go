package service

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/cinema-booking/internal/model"
    "github.com/iliyamo/cinema-booking/internal/repository"
)

func TestHoldAndReleaseSeats(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    ids := []uint64{f.seatID(t, "B1"), f.seatID(t, "B2")}

    res, err := f.seats.HoldSeats(ctx, f.showtime.ID, ids, "")
    require.NoError(t, err)
    assert.NotEmpty(t, res.SessionID)
    assert.Equal(t, f.clock.Now().Add(10*time.Minute), res.ExpiresAt)
    require.Len(t, res.Seats, 2)
    for _, s := range res.Seats {
        assert.True(t, s.IsHeld)
        require.NotNil(t, s.HoldSessionID)
        assert.Equal(t, res.SessionID, *s.HoldSessionID)
    }
    assert.Equal(t, uint32(94), f.available(t))

    n, err := f.seats.ReleaseSeats(ctx, f.showtime.ID, append(ids, f.seatID(t, "B3")))
    require.NoError(t, err)
    assert.Equal(t, 2, n, "only held seats count as released")
    assert.Equal(t, uint32(96), f.available(t))
}

func TestHoldBookedSeatConflicts(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    f.book(t, "C1")

    _, err := f.seats.HoldSeats(ctx, f.showtime.ID, []uint64{f.seatID(t, "C2"), f.seatID(t, "C1")}, "s1")
    require.ErrorIs(t, err, repository.ErrConflict)
    id, ok := IsSeatConflict(err)
    require.True(t, ok)
    assert.Equal(t, f.seatID(t, "C1"), id)

    seats, err := f.seats.ListSeats(ctx, f.showtime.ID)
    require.NoError(t, err)
    for _, s := range seats {
        assert.False(t, s.IsHeld, s.Label())
    }
    assert.Equal(t, uint32(95), f.available(t))
}

func TestExpiredHoldIsReclaimedOnRead(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    seat := f.seatID(t, "D4")
    _, err := f.seats.HoldSeats(ctx, f.showtime.ID, []uint64{seat}, "s1")
    require.NoError(t, err)
    assert.Equal(t, uint32(95), f.available(t))

    f.clock.Advance(11 * time.Minute)
    seats, err := f.seats.ListSeats(ctx, f.showtime.ID)
    require.NoError(t, err)
    for _, s := range seats {
        if s.ID == seat {
            assert.False(t, s.IsHeld)
            assert.Nil(t, s.HoldExpiry)
            assert.True(t, s.Available(f.clock.Now()))
        }
    }
    assert.Equal(t, uint32(96), f.available(t))

    b, err := f.bookings.CreateBooking(ctx, CreateBookingRequest{UserID: otherID, ShowtimeID: f.showtime.ID, SeatIDs: []uint64{seat}})
    require.NoError(t, err)
    assert.Equal(t, model.BookingConfirmed, b.Status)
}

func TestSweepExpiredHolds(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    _, err := f.seats.HoldSeats(ctx, f.showtime.ID, []uint64{f.seatID(t, "E1"), f.seatID(t, "E2")}, "s1")
    require.NoError(t, err)

    n, err := f.seats.SweepExpiredHolds(ctx)
    require.NoError(t, err)
    assert.Zero(t, n, "live holds are kept")

    f.clock.Advance(10 * time.Minute)
    n, err = f.seats.SweepExpiredHolds(ctx)
    require.NoError(t, err)
    assert.Equal(t, int64(2), n)

    st, err := f.store.GetShowtime(ctx, f.showtime.ID)
    require.NoError(t, err)
    assert.Equal(t, uint32(96), st.AvailableSeats, "sweep refreshes the stored counter")
}

func TestHoldOverwritesOtherSession(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    seat := f.seatID(t, "G7")
    _, err := f.seats.HoldSeats(ctx, f.showtime.ID, []uint64{seat}, "first")
    require.NoError(t, err)

    res, err := f.seats.HoldSeats(ctx, f.showtime.ID, []uint64{seat}, "second")
    require.NoError(t, err)
    require.Len(t, res.Seats, 1)
    assert.Equal(t, "second", *res.Seats[0].HoldSessionID)
    assert.Equal(t, uint32(95), f.available(t))
}

func TestHoldSeatsErrors(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()

    _, err := f.seats.HoldSeats(ctx, f.showtime.ID, nil, "")
    assert.ErrorIs(t, err, repository.ErrValidation)

    _, err = f.seats.HoldSeats(ctx, f.showtime.ID, []uint64{999999}, "")
    assert.ErrorIs(t, err, repository.ErrSeatNotFound)

    _, err = f.seats.HoldSeats(ctx, 4242, []uint64{1}, "")
    assert.ErrorIs(t, err, repository.ErrShowtimeNotFound)

    _, err = f.seats.ReleaseSeats(ctx, f.showtime.ID, []uint64{0})
    assert.ErrorIs(t, err, repository.ErrValidation)
}

func TestHoldRejectsSeatOfAnotherShowtime(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    second, err := f.showtimes.ScheduleShowtime(ctx, ScheduleShowtimeRequest{
        MovieID: 11, TheaterID: 20, ScreenID: 31, StartsAt: f.clock.Now().Add(72 * time.Hour),
    })
    require.NoError(t, err)

    _, err = f.seats.HoldSeats(ctx, second.ID, []uint64{f.seatID(t, "A1")}, "")
    assert.ErrorIs(t, err, repository.ErrSeatNotFound)
}

func TestEnsureSeatsInitializedIsIdempotent(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    f.book(t, "A1")

    st, err := f.seats.EnsureSeatsInitialized(ctx, f.showtime.ID)
    require.NoError(t, err)
    assert.Equal(t, uint32(96), st.TotalSeats)
    assert.Equal(t, uint32(95), st.AvailableSeats)

    st, err = f.seats.EnsureSeatsInitialized(ctx, f.showtime.ID)
    require.NoError(t, err)
    assert.Equal(t, uint32(96), st.TotalSeats)

    seats, err := f.seats.ListSeats(ctx, f.showtime.ID)
    require.NoError(t, err)
    assert.Len(t, seats, 96)
}
