package service

import (
    "context"
    "crypto/hmac"
    "crypto/sha256"
    "encoding/hex"
    "fmt"
    "strings"

    "github.com/google/uuid"

    "github.com/iliyamo/cinema-booking/internal/model"
    "github.com/iliyamo/cinema-booking/internal/queue"
    "github.com/iliyamo/cinema-booking/internal/repository"
)

// Gateway creates orders with a payment provider.
type Gateway interface {
    CreateOrder(ctx context.Context, amountCents uint32, currency, receipt string) (string, error)
}

// MockGateway issues local order ids.  It stands in for the provider in
// development and tests; signatures are still checked with the key
// secret.
type MockGateway struct{}

func (MockGateway) CreateOrder(ctx context.Context, amountCents uint32, currency, receipt string) (string, error) {
    return "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14], nil
}

// Sign returns the checkout signature of a payment: hex encoded
// HMAC-SHA256 of "orderID|paymentID" keyed with secret.
func Sign(orderID, paymentID, secret string) string {
    mac := hmac.New(sha256.New, []byte(secret))
    mac.Write([]byte(orderID + "|" + paymentID))
    return hex.EncodeToString(mac.Sum(nil))
}

// PaymentService runs checkout: an order is created before payment and
// the booking is created once the provider's signature checks out.
type PaymentService struct {
    store    repository.Store
    bookings *BookingService
    gateway  Gateway
    keyID    string
    secret   string
    currency string
    cfg      settings
}

// NewPaymentService builds a PaymentService.  bookings supplies the
// booking transaction so order and booking commit together.
func NewPaymentService(store repository.Store, bookings *BookingService, gw Gateway, keyID, secret, currency string, opts ...Option) *PaymentService {
    if gw == nil {
        gw = MockGateway{}
    }
    if currency == "" {
        currency = "INR"
    }
    return &PaymentService{
        store:    store,
        bookings: bookings,
        gateway:  gw,
        keyID:    keyID,
        secret:   secret,
        currency: currency,
        cfg:      newSettings(opts),
    }
}

// KeyID is the public key the client passes to the checkout widget.
func (s *PaymentService) KeyID() string { return s.keyID }

// CreateOrder registers a payment order for amountCents.
func (s *PaymentService) CreateOrder(ctx context.Context, userID uint64, amountCents uint32, receipt string) (*model.PaymentOrder, error) {
    if amountCents == 0 {
        return nil, fmt.Errorf("create order: amount: %w", repository.ErrValidation)
    }
    if receipt == "" {
        receipt = "rcpt_" + uuid.NewString()[:8]
    }
    id, err := s.gateway.CreateOrder(ctx, amountCents, s.currency, receipt)
    if err != nil {
        return nil, fmt.Errorf("create order: gateway: %w", err)
    }
    o := &model.PaymentOrder{
        ID:          id,
        UserID:      userID,
        AmountCents: amountCents,
        Currency:    s.currency,
        Receipt:     receipt,
        Status:      model.PaymentOrderCreated,
        CreatedAt:   s.cfg.now(),
    }
    err = s.store.WithTx(ctx, func(tx repository.Tx) error {
        if _, err := tx.GetUser(ctx, userID); err != nil {
            return err
        }
        return tx.InsertPaymentOrder(ctx, o)
    })
    if err != nil {
        return nil, fmt.Errorf("create order: %w", err)
    }
    return o, nil
}

// VerifyRequest carries the provider's checkout response and the seat
// selection to book.
type VerifyRequest struct {
    UserID     uint64
    OrderID    string
    PaymentID  string
    Signature  string
    ShowtimeID uint64
    SeatIDs    []uint64
    SeatLabels []string
    Customer   model.CustomerInfo
}

// VerifyAndBook checks the payment signature and books the seats.  The
// order is marked paid in the booking transaction.  Verifying an order
// that is paid already returns its booking again.
func (s *PaymentService) VerifyAndBook(ctx context.Context, req VerifyRequest) (*model.Booking, error) {
    if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
        return nil, fmt.Errorf("verify payment: missing fields: %w", repository.ErrValidation)
    }
    want := Sign(req.OrderID, req.PaymentID, s.secret)
    if !hmac.Equal([]byte(want), []byte(strings.ToLower(req.Signature))) {
        return nil, fmt.Errorf("verify payment: bad signature: %w", repository.ErrForbidden)
    }

    var (
        b     *model.Booking
        fresh bool
    )
    err := s.store.WithTx(ctx, func(tx repository.Tx) error {
        o, err := tx.GetPaymentOrder(ctx, req.OrderID)
        if err != nil {
            return err
        }
        if o.UserID != req.UserID {
            return repository.ErrForbidden
        }
        if o.Status == model.PaymentOrderPaid && o.BookingID != nil {
            b, err = tx.GetBooking(ctx, *o.BookingID)
            return err
        }
        b, err = s.bookings.createTx(ctx, tx, CreateBookingRequest{
            UserID:        req.UserID,
            ShowtimeID:    req.ShowtimeID,
            SeatIDs:       req.SeatIDs,
            SeatLabels:    req.SeatLabels,
            AmountCents:   o.AmountCents,
            Customer:      req.Customer,
            PaymentMethod: model.PaymentMethodRazorpay,
            PaymentRef:    req.PaymentID,
        })
        if err != nil {
            return err
        }
        o.Status = model.PaymentOrderPaid
        o.BookingID = &b.ID
        fresh = true
        return tx.UpdatePaymentOrder(ctx, o)
    })
    if err != nil {
        return nil, fmt.Errorf("verify payment %s: %w", req.OrderID, err)
    }
    if fresh {
        s.bookings.publish(ctx, queue.BookingConfirmed, b, "")
    }
    return b, nil
}
