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

func TestScheduleShowtimeValidation(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    start := f.clock.Now().Add(time.Hour)

    cases := map[string]ScheduleShowtimeRequest{
        "missing ids":        {MovieID: 1, StartsAt: start},
        "missing start":      {MovieID: 1, TheaterID: 1, ScreenID: 1},
        "available > total":  {MovieID: 1, TheaterID: 1, ScreenID: 1, StartsAt: start, TotalSeats: 10, AvailableSeats: 11},
        "bad section rows":   {MovieID: 1, TheaterID: 1, ScreenID: 1, StartsAt: start, Sections: []model.LayoutSection{{Name: "x", RowStart: "C", RowEnd: "A", SeatsPerRow: 2}}},
    }
    for name, req := range cases {
        t.Run(name, func(t *testing.T) {
            _, err := f.showtimes.ScheduleShowtime(ctx, req)
            assert.ErrorIs(t, err, repository.ErrValidation)
        })
    }
}

func TestScheduleShowtimeWithSections(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    st, err := f.showtimes.ScheduleShowtime(ctx, ScheduleShowtimeRequest{
        MovieID: 2, TheaterID: 20, ScreenID: 30, ScreenName: "Balcony", StartsAt: f.clock.Now().Add(time.Hour),
        TotalSeats: 100, AvailableSeats: 100,
        Sections: []model.LayoutSection{
            {Name: "Front", RowStart: "A", RowEnd: "A", SeatsPerRow: 4, SeatType: model.SeatTypeRegular, PriceCents: 9000},
            {Name: "Back", RowStart: "B", RowEnd: "C", SeatsPerRow: 3, SeatType: model.SeatTypeVIP, PriceCents: 25000},
        },
    })
    require.NoError(t, err)
    assert.Equal(t, uint32(10), st.TotalSeats, "counters come from generated seats")
    assert.Equal(t, uint32(10), st.AvailableSeats)
    assert.Equal(t, model.ShowtimeActive, st.Status)

    seats, err := f.seats.ListSeats(ctx, st.ID)
    require.NoError(t, err)
    require.Len(t, seats, 10)
    assert.Equal(t, "A1", seats[0].Label())
    assert.Equal(t, uint32(9000), seats[0].PriceCents)
    assert.Equal(t, "C3", seats[9].Label())
    assert.Equal(t, model.SeatTypeVIP, seats[9].SeatType)
}

func TestScreenLayoutDrivesSeatMap(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    _, err := f.showtimes.UpsertScreen(ctx, model.Screen{
        ID: 40, TheaterID: 20, Name: "IMAX",
        Layout: &model.ScreenLayout{
            Categories: []model.SeatCategory{{Key: "std", Name: "Standard", SeatType: model.SeatTypeRegular, PriceCents: 12000}},
            Seats: []model.LayoutSeat{
                {RowLabel: "a", SeatNumber: 1, CategoryKey: "std"},
                {RowLabel: "A", SeatNumber: 2, CategoryKey: "std"},
                {RowLabel: "A", SeatNumber: 3, Disabled: true},
            },
        },
    })
    require.NoError(t, err)

    sc, err := f.showtimes.GetScreen(ctx, 40)
    require.NoError(t, err)
    assert.Equal(t, "IMAX", sc.Name)

    st, err := f.showtimes.ScheduleShowtime(ctx, ScheduleShowtimeRequest{MovieID: 3, TheaterID: 20, ScreenID: 40, StartsAt: f.clock.Now().Add(time.Hour)})
    require.NoError(t, err)
    assert.Equal(t, "IMAX", st.ScreenName)
    assert.Equal(t, uint32(2), st.TotalSeats)

    _, err = f.showtimes.UpsertScreen(ctx, model.Screen{ID: 41, Name: " "})
    assert.ErrorIs(t, err, repository.ErrValidation)
    _, err = f.showtimes.GetScreen(ctx, 41)
    assert.ErrorIs(t, err, repository.ErrScreenNotFound)
}

func TestSearchShowtimes(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    for i := 1; i <= 4; i++ {
        _, err := f.showtimes.ScheduleShowtime(ctx, ScheduleShowtimeRequest{
            MovieID: 10, TheaterID: 21, ScreenID: 30, StartsAt: f.clock.Now().Add(time.Duration(i) * time.Hour),
        })
        require.NoError(t, err)
    }

    page, total, err := f.showtimes.SearchShowtimes(ctx, repository.ShowtimeSearchQuery{MovieID: 10, Page: 2, PageSize: 2})
    require.NoError(t, err)
    assert.Equal(t, int64(5), total)
    require.Len(t, page, 2)
    assert.True(t, page[0].StartsAt.Before(page[1].StartsAt))

    _, total, err = f.showtimes.SearchShowtimes(ctx, repository.ShowtimeSearchQuery{TheaterID: 21})
    require.NoError(t, err)
    assert.Equal(t, int64(4), total)

    f.clock.Advance(3 * time.Hour)
    _, total, err = f.showtimes.SearchShowtimes(ctx, repository.ShowtimeSearchQuery{TheaterID: 21})
    require.NoError(t, err)
    assert.Equal(t, int64(2), total, "past showtimes drop out of upcoming")
    _, total, err = f.showtimes.SearchShowtimes(ctx, repository.ShowtimeSearchQuery{TheaterID: 21, TimeFilter: "any"})
    require.NoError(t, err)
    assert.Equal(t, int64(4), total)
}

func TestDeleteShowtime(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    b := f.book(t, "A1")

    require.NoError(t, f.showtimes.DeleteShowtime(ctx, f.showtime.ID))
    _, err := f.showtimes.GetShowtime(ctx, f.showtime.ID)
    assert.ErrorIs(t, err, repository.ErrShowtimeNotFound)
    _, err = f.bookings.GetBooking(ctx, b.ID)
    assert.ErrorIs(t, err, repository.ErrBookingNotFound)

    err = f.showtimes.DeleteShowtime(ctx, f.showtime.ID)
    assert.ErrorIs(t, err, repository.ErrNotFound)
}
