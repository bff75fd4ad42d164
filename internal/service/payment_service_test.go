package service

import (
    "context"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/cinema-booking/internal/model"
    "github.com/iliyamo/cinema-booking/internal/queue"
    "github.com/iliyamo/cinema-booking/internal/repository"
)

const testSecret = "rzp_test_secret"

func newPayments(f *fixture) *PaymentService {
    return NewPaymentService(f.store, f.bookings, nil, "rzp_test_key", testSecret, "", WithClock(f.clock))
}

func TestSignIsHexHMAC(t *testing.T) {
    sig := Sign("order_1", "pay_1", "k")
    assert.Len(t, sig, 64)
    assert.Equal(t, sig, Sign("order_1", "pay_1", "k"))
    assert.NotEqual(t, sig, Sign("order_1", "pay_2", "k"))
    assert.NotEqual(t, sig, Sign("order_1", "pay_1", "other"))
}

func TestCreateOrder(t *testing.T) {
    f := newFixture(t)
    p := newPayments(f)
    ctx := context.Background()

    o, err := p.CreateOrder(ctx, customerID, 30000, "")
    require.NoError(t, err)
    assert.Regexp(t, `^order_[0-9a-f]{14}$`, o.ID)
    assert.Equal(t, "INR", o.Currency)
    assert.Equal(t, model.PaymentOrderCreated, o.Status)
    assert.NotEmpty(t, o.Receipt)
    assert.Equal(t, "rzp_test_key", p.KeyID())

    _, err = p.CreateOrder(ctx, customerID, 0, "r")
    assert.ErrorIs(t, err, repository.ErrValidation)
    _, err = p.CreateOrder(ctx, 404, 100, "r")
    assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestVerifyAndBook(t *testing.T) {
    f := newFixture(t)
    p := newPayments(f)
    ctx := context.Background()

    o, err := p.CreateOrder(ctx, customerID, 36000, "rcpt-1")
    require.NoError(t, err)
    req := VerifyRequest{
        UserID:     customerID,
        OrderID:    o.ID,
        PaymentID:  "pay_abc",
        Signature:  Sign(o.ID, "pay_abc", testSecret),
        ShowtimeID: f.showtime.ID,
        SeatIDs:    []uint64{f.seatID(t, "A1"), f.seatID(t, "C1")},
        Customer:   model.CustomerInfo{Name: "Asha", Phone: "+91 90000 00000"},
    }

    b, err := p.VerifyAndBook(ctx, req)
    require.NoError(t, err)
    assert.Equal(t, model.PaymentMethodRazorpay, b.PaymentMethod)
    require.NotNil(t, b.PaymentRef)
    assert.Equal(t, "pay_abc", *b.PaymentRef)
    assert.Equal(t, uint32(36000), b.TotalAmountCents, "order amount wins over seat prices")
    assert.Equal(t, uint32(94), f.available(t))

    stored, err := f.store.GetPaymentOrder(ctx, o.ID)
    require.NoError(t, err)
    assert.Equal(t, model.PaymentOrderPaid, stored.Status)
    require.NotNil(t, stored.BookingID)
    assert.Equal(t, b.ID, *stored.BookingID)

    again, err := p.VerifyAndBook(ctx, req)
    require.NoError(t, err)
    assert.Equal(t, b.ID, again.ID, "re-verifying returns the same booking")
    assert.Equal(t, uint32(94), f.available(t))
    assert.Equal(t, []string{queue.BookingConfirmed}, f.events.Types())
}

func TestVerifyRejects(t *testing.T) {
    f := newFixture(t)
    p := newPayments(f)
    ctx := context.Background()
    o, err := p.CreateOrder(ctx, customerID, 15000, "")
    require.NoError(t, err)
    seat := f.seatID(t, "A1")

    _, err = p.VerifyAndBook(ctx, VerifyRequest{UserID: customerID, OrderID: o.ID, PaymentID: "pay_1"})
    assert.ErrorIs(t, err, repository.ErrValidation)

    _, err = p.VerifyAndBook(ctx, VerifyRequest{
        UserID: customerID, OrderID: o.ID, PaymentID: "pay_1", Signature: Sign(o.ID, "pay_1", "wrong"),
        ShowtimeID: f.showtime.ID, SeatIDs: []uint64{seat},
    })
    assert.ErrorIs(t, err, repository.ErrForbidden)

    _, err = p.VerifyAndBook(ctx, VerifyRequest{
        UserID: otherID, OrderID: o.ID, PaymentID: "pay_1", Signature: Sign(o.ID, "pay_1", testSecret),
        ShowtimeID: f.showtime.ID, SeatIDs: []uint64{seat},
    })
    assert.ErrorIs(t, err, repository.ErrForbidden)

    f.book(t, "A1")
    _, err = p.VerifyAndBook(ctx, VerifyRequest{
        UserID: customerID, OrderID: o.ID, PaymentID: "pay_1", Signature: Sign(o.ID, "pay_1", testSecret),
        ShowtimeID: f.showtime.ID, SeatIDs: []uint64{seat},
    })
    assert.ErrorIs(t, err, repository.ErrConflict)
    stored, err := f.store.GetPaymentOrder(ctx, o.ID)
    require.NoError(t, err)
    assert.Equal(t, model.PaymentOrderCreated, stored.Status, "a failed booking leaves the order unpaid")
}
