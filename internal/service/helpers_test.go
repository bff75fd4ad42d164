package service

import (
    "context"
    "sync"
    "testing"
    "time"

    "github.com/sirupsen/logrus"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/cinema-booking/internal/model"
    "github.com/iliyamo/cinema-booking/internal/queue"
    "github.com/iliyamo/cinema-booking/internal/repository"
)

type fakeClock struct {
    mu  sync.Mutex
    now time.Time
}

func (c *fakeClock) Now() time.Time {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
    c.mu.Lock()
    c.now = c.now.Add(d)
    c.mu.Unlock()
}

type recordingPublisher struct {
    mu     sync.Mutex
    events []queue.BookingEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev queue.BookingEvent) error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.events = append(p.events, ev)
    return nil
}

func (p *recordingPublisher) Types() []string {
    p.mu.Lock()
    defer p.mu.Unlock()
    out := make([]string, 0, len(p.events))
    for _, ev := range p.events {
        out = append(out, ev.Type)
    }
    return out
}

const (
    customerID = uint64(1)
    otherID    = uint64(3)
)

type fixture struct {
    store     *repository.MemoryStore
    clock     *fakeClock
    events    *recordingPublisher
    seats     *SeatService
    bookings  *BookingService
    showtimes *ShowtimeService
    retention *RetentionService
    showtime  *model.Showtime
}

// newFixture builds services on a memory store with a frozen clock and one
// showtime on the default 96 seat grid, starting in two days.
func newFixture(t *testing.T) *fixture {
    t.Helper()
    store := repository.NewMemoryStore()
    now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
    store.PutUser(model.User{ID: customerID, Name: "Asha", Email: "asha@example.com", Role: model.RoleCustomer, CreatedAt: now})
    store.PutUser(model.User{ID: otherID, Name: "Ravi", Email: "ravi@example.com", Role: model.RoleCustomer, CreatedAt: now})

    log := logrus.New()
    log.SetLevel(logrus.PanicLevel)
    f := &fixture{store: store, clock: &fakeClock{now: now}, events: &recordingPublisher{}}
    opts := []Option{WithClock(f.clock), WithPublisher(f.events), WithLogger(log), WithHoldTTL(10 * time.Minute)}
    f.seats = NewSeatService(store, opts...)
    f.bookings = NewBookingService(store, opts...)
    f.showtimes = NewShowtimeService(store, opts...)
    f.retention = NewRetentionService(store, opts...)

    st, err := f.showtimes.ScheduleShowtime(context.Background(), ScheduleShowtimeRequest{
        MovieID:          10,
        TheaterID:        20,
        ScreenID:         30,
        ScreenName:       "Screen 1",
        StartsAt:         now.Add(48 * time.Hour),
        TicketPriceCents: 15000,
        TotalSeats:       96,
        AvailableSeats:   96,
    })
    require.NoError(t, err)
    f.showtime = st
    return f
}

// seatID returns the id of the seat with the given label.
func (f *fixture) seatID(t *testing.T, label string) uint64 {
    t.Helper()
    seats, err := f.seats.ListSeats(context.Background(), f.showtime.ID)
    require.NoError(t, err)
    for _, s := range seats {
        if s.Label() == label {
            return s.ID
        }
    }
    t.Fatalf("seat %s not found", label)
    return 0
}

func (f *fixture) available(t *testing.T) uint32 {
    t.Helper()
    st, err := f.showtimes.GetShowtime(context.Background(), f.showtime.ID)
    require.NoError(t, err)
    return st.AvailableSeats
}

func (f *fixture) book(t *testing.T, labels ...string) *model.Booking {
    t.Helper()
    ids := make([]uint64, 0, len(labels))
    for _, l := range labels {
        ids = append(ids, f.seatID(t, l))
    }
    b, err := f.bookings.CreateBooking(context.Background(), CreateBookingRequest{
        UserID:     customerID,
        ShowtimeID: f.showtime.ID,
        SeatIDs:    ids,
    })
    require.NoError(t, err)
    return b
}
