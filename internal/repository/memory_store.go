package repository

import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/iliyamo/cinema-booking/internal/model"
)

// MemoryStore is a Store kept in process memory.  Transactions are fully
// serialised by one mutex and work on a copy of the data that replaces the
// live copy only when the callback succeeds, so a failed transaction
// leaves no trace.  It backs STORE_DRIVER=memory and the test suites.
type MemoryStore struct {
    mu   sync.RWMutex
    data *memData
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
    return &MemoryStore{data: newMemData()}
}

// PutUser inserts or replaces a user.  Users normally come from the
// identity service; this is how local runs and tests provision them.
func (s *MemoryStore) PutUser(u model.User) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.data.users[u.ID] = u
}

// WithTx runs fn against a private copy of the data and publishes the
// copy when fn returns nil.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
    if err := ctx.Err(); err != nil {
        return err
    }
    s.mu.Lock()
    defer s.mu.Unlock()
    work := s.data.clone()
    if err := fn(&memTx{d: work}); err != nil {
        return err
    }
    s.data = work
    return nil
}

func (s *MemoryStore) read() (*memData, func()) {
    s.mu.RLock()
    return s.data, s.mu.RUnlock
}

func (s *MemoryStore) GetShowtime(ctx context.Context, id uint64) (*model.Showtime, error) {
    d, done := s.read()
    defer done()
    return d.getShowtime(id)
}

func (s *MemoryStore) GetScreen(ctx context.Context, id uint64) (*model.Screen, error) {
    d, done := s.read()
    defer done()
    return d.getScreen(id)
}

func (s *MemoryStore) GetUser(ctx context.Context, id uint64) (*model.User, error) {
    d, done := s.read()
    defer done()
    return d.getUser(id)
}

func (s *MemoryStore) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
    d, done := s.read()
    defer done()
    return d.getBooking(id)
}

func (s *MemoryStore) GetPaymentOrder(ctx context.Context, id string) (*model.PaymentOrder, error) {
    d, done := s.read()
    defer done()
    return d.getPaymentOrder(id)
}

func (s *MemoryStore) ListBookingsByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
    d, done := s.read()
    defer done()
    return d.listBookingsByUser(userID), nil
}

func (s *MemoryStore) ListBookingsByStatus(ctx context.Context, status string) ([]model.Booking, error) {
    d, done := s.read()
    defer done()
    return d.listBookingsByStatus(status), nil
}

func (s *MemoryStore) ListBookingIDsByShowtime(ctx context.Context, showtimeID uint64) ([]uint64, error) {
    d, done := s.read()
    defer done()
    return d.listBookingIDsByShowtime(showtimeID), nil
}

func (s *MemoryStore) ListShowtimeIDsWithExpiredHolds(ctx context.Context, now time.Time) ([]uint64, error) {
    d, done := s.read()
    defer done()
    return d.showtimeIDsWithExpiredHolds(now), nil
}

func (s *MemoryStore) ListShowtimesStartedBefore(ctx context.Context, cutoff time.Time) ([]model.Showtime, error) {
    d, done := s.read()
    defer done()
    return d.showtimesStartedBefore(cutoff), nil
}

// memData is one consistent version of the store contents.
type memData struct {
    nextShowtimeID uint64
    nextSeatID     uint64
    nextBookingID  uint64

    showtimes map[uint64]model.Showtime
    screens   map[uint64]model.Screen
    users     map[uint64]model.User
    seats     map[uint64]model.Seat
    bookings  map[uint64]model.Booking
    orders    map[string]model.PaymentOrder
}

func newMemData() *memData {
    return &memData{
        showtimes: map[uint64]model.Showtime{},
        screens:   map[uint64]model.Screen{},
        users:     map[uint64]model.User{},
        seats:     map[uint64]model.Seat{},
        bookings:  map[uint64]model.Booking{},
        orders:    map[string]model.PaymentOrder{},
    }
}

// clone copies every map.  Values are copied by value; slices inside
// bookings are never modified in place, only replaced, so sharing their
// backing arrays between versions is safe.
func (d *memData) clone() *memData {
    c := &memData{
        nextShowtimeID: d.nextShowtimeID,
        nextSeatID:     d.nextSeatID,
        nextBookingID:  d.nextBookingID,
        showtimes:      make(map[uint64]model.Showtime, len(d.showtimes)),
        screens:        make(map[uint64]model.Screen, len(d.screens)),
        users:          make(map[uint64]model.User, len(d.users)),
        seats:          make(map[uint64]model.Seat, len(d.seats)),
        bookings:       make(map[uint64]model.Booking, len(d.bookings)),
        orders:         make(map[string]model.PaymentOrder, len(d.orders)),
    }
    for k, v := range d.showtimes {
        c.showtimes[k] = v
    }
    for k, v := range d.screens {
        c.screens[k] = v
    }
    for k, v := range d.users {
        c.users[k] = v
    }
    for k, v := range d.seats {
        c.seats[k] = v
    }
    for k, v := range d.bookings {
        c.bookings[k] = v
    }
    for k, v := range d.orders {
        c.orders[k] = v
    }
    return c
}

func copyBooking(b model.Booking) model.Booking {
    b.SeatIDs = append([]uint64(nil), b.SeatIDs...)
    b.SeatLabels = append([]string(nil), b.SeatLabels...)
    return b
}

func (d *memData) getShowtime(id uint64) (*model.Showtime, error) {
    st, ok := d.showtimes[id]
    if !ok {
        return nil, ErrShowtimeNotFound
    }
    return &st, nil
}

func (d *memData) getScreen(id uint64) (*model.Screen, error) {
    sc, ok := d.screens[id]
    if !ok {
        return nil, ErrScreenNotFound
    }
    return &sc, nil
}

func (d *memData) getUser(id uint64) (*model.User, error) {
    u, ok := d.users[id]
    if !ok {
        return nil, ErrUserNotFound
    }
    return &u, nil
}

func (d *memData) getBooking(id uint64) (*model.Booking, error) {
    b, ok := d.bookings[id]
    if !ok {
        return nil, ErrBookingNotFound
    }
    b = copyBooking(b)
    return &b, nil
}

func (d *memData) getPaymentOrder(id string) (*model.PaymentOrder, error) {
    o, ok := d.orders[id]
    if !ok {
        return nil, ErrPaymentOrderNotFound
    }
    return &o, nil
}

func (d *memData) listBookingsByUser(userID uint64) []model.Booking {
    var out []model.Booking
    for _, b := range d.bookings {
        if b.UserID == userID {
            out = append(out, copyBooking(b))
        }
    }
    // newest first
    sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
    return out
}

func (d *memData) listBookingsByStatus(status string) []model.Booking {
    var out []model.Booking
    for _, b := range d.bookings {
        if b.Status == status {
            out = append(out, copyBooking(b))
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out
}

func (d *memData) listBookingIDsByShowtime(showtimeID uint64) []uint64 {
    var ids []uint64
    for _, b := range d.bookings {
        if b.ShowtimeID == showtimeID {
            ids = append(ids, b.ID)
        }
    }
    sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
    return ids
}

func (d *memData) showtimeIDsWithExpiredHolds(now time.Time) []uint64 {
    set := map[uint64]struct{}{}
    for _, s := range d.seats {
        if s.HoldExpired(now) {
            set[s.ShowtimeID] = struct{}{}
        }
    }
    ids := make([]uint64, 0, len(set))
    for id := range set {
        ids = append(ids, id)
    }
    sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
    return ids
}

func (d *memData) showtimesStartedBefore(cutoff time.Time) []model.Showtime {
    var out []model.Showtime
    for _, st := range d.showtimes {
        if st.StartsAt.Before(cutoff) {
            out = append(out, st)
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].StartsAt.Equal(out[j].StartsAt) {
            return out[i].ID < out[j].ID
        }
        return out[i].StartsAt.Before(out[j].StartsAt)
    })
    return out
}

// memTx is the Tx handed to WithTx callbacks.  The store mutex is already
// held, so it reads and writes its private memData directly.
type memTx struct {
    d *memData
}

func (t *memTx) GetShowtime(ctx context.Context, id uint64) (*model.Showtime, error) {
    return t.d.getShowtime(id)
}

func (t *memTx) GetScreen(ctx context.Context, id uint64) (*model.Screen, error) {
    return t.d.getScreen(id)
}

func (t *memTx) GetUser(ctx context.Context, id uint64) (*model.User, error) {
    return t.d.getUser(id)
}

func (t *memTx) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
    return t.d.getBooking(id)
}

func (t *memTx) GetPaymentOrder(ctx context.Context, id string) (*model.PaymentOrder, error) {
    return t.d.getPaymentOrder(id)
}

func (t *memTx) ListBookingsByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
    return t.d.listBookingsByUser(userID), nil
}

func (t *memTx) ListBookingsByStatus(ctx context.Context, status string) ([]model.Booking, error) {
    return t.d.listBookingsByStatus(status), nil
}

func (t *memTx) ListBookingIDsByShowtime(ctx context.Context, showtimeID uint64) ([]uint64, error) {
    return t.d.listBookingIDsByShowtime(showtimeID), nil
}

func (t *memTx) ListShowtimeIDsWithExpiredHolds(ctx context.Context, now time.Time) ([]uint64, error) {
    return t.d.showtimeIDsWithExpiredHolds(now), nil
}

func (t *memTx) ListShowtimesStartedBefore(ctx context.Context, cutoff time.Time) ([]model.Showtime, error) {
    return t.d.showtimesStartedBefore(cutoff), nil
}

func (t *memTx) LockShowtime(ctx context.Context, id uint64) (*model.Showtime, error) {
    return t.d.getShowtime(id)
}

func (t *memTx) InsertShowtime(ctx context.Context, st *model.Showtime) error {
    t.d.nextShowtimeID++
    st.ID = t.d.nextShowtimeID
    if st.Status == "" {
        st.Status = model.ShowtimeActive
    }
    now := time.Now().UTC()
    st.CreatedAt, st.UpdatedAt = now, now
    t.d.showtimes[st.ID] = *st
    return nil
}

func (t *memTx) DeleteShowtime(ctx context.Context, id uint64) error {
    if _, ok := t.d.showtimes[id]; !ok {
        return ErrShowtimeNotFound
    }
    delete(t.d.showtimes, id)
    return nil
}

func (t *memTx) SetSeatCounts(ctx context.Context, showtimeID uint64, total, available uint32) error {
    st, ok := t.d.showtimes[showtimeID]
    if !ok {
        return ErrShowtimeNotFound
    }
    st.TotalSeats, st.AvailableSeats = total, available
    st.UpdatedAt = time.Now().UTC()
    t.d.showtimes[showtimeID] = st
    return nil
}

func (t *memTx) UpsertScreen(ctx context.Context, sc *model.Screen) error {
    t.d.screens[sc.ID] = *sc
    return nil
}

func (t *memTx) ListSeats(ctx context.Context, showtimeID uint64) ([]model.Seat, error) {
    var out []model.Seat
    for _, s := range t.d.seats {
        if s.ShowtimeID == showtimeID {
            out = append(out, s)
        }
    }
    sort.Slice(out, func(i, j int) bool {
        a, b := out[i], out[j]
        if len(a.RowLabel) != len(b.RowLabel) {
            return len(a.RowLabel) < len(b.RowLabel)
        }
        if a.RowLabel != b.RowLabel {
            return a.RowLabel < b.RowLabel
        }
        return a.SeatNumber < b.SeatNumber
    })
    return out, nil
}

func (t *memTx) LockSeats(ctx context.Context, ids []uint64) ([]model.Seat, error) {
    sorted := append([]uint64(nil), ids...)
    sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
    var out []model.Seat
    var last uint64
    for i, id := range sorted {
        if i > 0 && id == last {
            continue
        }
        last = id
        if s, ok := t.d.seats[id]; ok {
            out = append(out, s)
        }
    }
    return out, nil
}

func (t *memTx) InsertSeats(ctx context.Context, seats []model.Seat) error {
    for _, s := range seats {
        t.d.nextSeatID++
        s.ID = t.d.nextSeatID
        t.d.seats[s.ID] = s
    }
    return nil
}

func (t *memTx) UpdateSeats(ctx context.Context, seats []model.Seat) error {
    for _, s := range seats {
        cur, ok := t.d.seats[s.ID]
        if !ok {
            return NewSeatError(s.ID, ErrSeatNotFound)
        }
        cur.IsBooked, cur.IsHeld = s.IsBooked, s.IsHeld
        cur.HoldExpiry, cur.HoldSessionID = s.HoldExpiry, s.HoldSessionID
        t.d.seats[s.ID] = cur
    }
    return nil
}

func (t *memTx) ClearExpiredHolds(ctx context.Context, showtimeID uint64, now time.Time) (int64, error) {
    var n int64
    for id, s := range t.d.seats {
        if s.ShowtimeID != showtimeID || s.IsBooked || !s.HoldExpired(now) {
            continue
        }
        s.ClearHold()
        t.d.seats[id] = s
        n++
    }
    return n, nil
}

func (t *memTx) CountSeats(ctx context.Context, showtimeID uint64, now time.Time) (uint32, uint32, error) {
    var total, available uint32
    for _, s := range t.d.seats {
        if s.ShowtimeID != showtimeID {
            continue
        }
        total++
        if s.Available(now) {
            available++
        }
    }
    return total, available, nil
}

func (t *memTx) DeleteSeatsByShowtime(ctx context.Context, showtimeID uint64) error {
    for id, s := range t.d.seats {
        if s.ShowtimeID == showtimeID {
            delete(t.d.seats, id)
        }
    }
    return nil
}

func (t *memTx) InsertBooking(ctx context.Context, b *model.Booking) error {
    for _, other := range t.d.bookings {
        if other.TicketNumber == b.TicketNumber {
            return ErrConflict
        }
    }
    t.d.nextBookingID++
    b.ID = t.d.nextBookingID
    now := time.Now().UTC()
    b.CreatedAt, b.UpdatedAt = now, now
    t.d.bookings[b.ID] = copyBooking(*b)
    return nil
}

func (t *memTx) LockBooking(ctx context.Context, id uint64) (*model.Booking, error) {
    return t.d.getBooking(id)
}

func (t *memTx) UpdateBooking(ctx context.Context, b *model.Booking) error {
    if _, ok := t.d.bookings[b.ID]; !ok {
        return ErrBookingNotFound
    }
    b.UpdatedAt = time.Now().UTC()
    t.d.bookings[b.ID] = copyBooking(*b)
    return nil
}

func (t *memTx) DeleteBooking(ctx context.Context, id uint64) error {
    if _, ok := t.d.bookings[id]; !ok {
        return ErrBookingNotFound
    }
    delete(t.d.bookings, id)
    return nil
}

func (t *memTx) InsertPaymentOrder(ctx context.Context, o *model.PaymentOrder) error {
    if _, ok := t.d.orders[o.ID]; ok {
        return ErrConflict
    }
    t.d.orders[o.ID] = *o
    return nil
}

func (t *memTx) UpdatePaymentOrder(ctx context.Context, o *model.PaymentOrder) error {
    if _, ok := t.d.orders[o.ID]; !ok {
        return ErrPaymentOrderNotFound
    }
    t.d.orders[o.ID] = *o
    return nil
}
