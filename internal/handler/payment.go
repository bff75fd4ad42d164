package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-booking/internal/model"
    "github.com/iliyamo/cinema-booking/internal/service"
)

// PaymentHandler runs gateway checkout: create an order, then verify the
// payment and book the seats in one step.
type PaymentHandler struct {
    Payments *service.PaymentService
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
    if payments == nil {
        panic("nil service passed to NewPaymentHandler")
    }
    return &PaymentHandler{Payments: payments}
}

type createOrderRequest struct {
    AmountCents uint32 `json:"amount_cents" validate:"required,gt=0"`
    Receipt     string `json:"receipt" validate:"omitempty,max=64"`
}

// CreateOrder handles POST /v1/payments/orders.
func (h *PaymentHandler) CreateOrder(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body createOrderRequest
    if ok, err := bindAndValidate(c, &body); !ok {
        return err
    }
    o, err := h.Payments.CreateOrder(c.Request().Context(), userID, body.AmountCents, body.Receipt)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "order_id":     o.ID,
        "amount_cents": o.AmountCents,
        "currency":     o.Currency,
        "receipt":      o.Receipt,
        "key_id":       h.Payments.KeyID(),
    })
}

type verifyPaymentRequest struct {
    OrderID    string       `json:"order_id" validate:"required"`
    PaymentID  string       `json:"payment_id" validate:"required"`
    Signature  string       `json:"signature" validate:"required,hexadecimal"`
    ShowtimeID uint64       `json:"showtime_id" validate:"required"`
    SeatIDs    []uint64     `json:"seat_ids" validate:"required,min=1,dive,gt=0"`
    SeatLabels []string     `json:"seat_labels" validate:"omitempty,dive,max=10"`
    Customer   customerInfo `json:"customer"`
}

// VerifyPayment handles POST /v1/payments/verify.  A bad signature is 403;
// a seat booked meanwhile is 409 and the order stays unpaid.
func (h *PaymentHandler) VerifyPayment(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body verifyPaymentRequest
    if ok, err := bindAndValidate(c, &body); !ok {
        return err
    }
    b, err := h.Payments.VerifyAndBook(c.Request().Context(), service.VerifyRequest{
        UserID:     userID,
        OrderID:    body.OrderID,
        PaymentID:  body.PaymentID,
        Signature:  body.Signature,
        ShowtimeID: body.ShowtimeID,
        SeatIDs:    body.SeatIDs,
        SeatLabels: body.SeatLabels,
        Customer:   model.CustomerInfo(body.Customer),
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, toBookingResponse(b))
}
