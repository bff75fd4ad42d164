package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/service"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

const (
	jwtSecret     = "router-test-secret"
	paymentSecret = "pay-secret"
)

type api struct {
	t        *testing.T
	e        *echo.Echo
	customer string
	other    string
	admin    string
}

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return errors.New("down") }

func newAPI(t *testing.T) *api {
	t.Helper()
	store := repository.NewMemoryStore()
	now := time.Now().UTC()
	store.PutUser(model.User{ID: 1, Name: "Asha", Role: model.RoleCustomer, CreatedAt: now})
	store.PutUser(model.User{ID: 2, Name: "Admin", Role: model.RoleAdmin, CreatedAt: now})
	store.PutUser(model.User{ID: 3, Name: "Ravi", Role: model.RoleCustomer, CreatedAt: now})

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	opts := []service.Option{service.WithLogger(log)}
	seats := service.NewSeatService(store, opts...)
	bookings := service.NewBookingService(store, opts...)
	showtimes := service.NewShowtimeService(store, opts...)
	payments := service.NewPaymentService(store, bookings, nil, "key", paymentSecret, "", opts...)

	e := echo.New()
	e.Validator = handler.NewValidator()
	RegisterRoutes(e, map[string]handler.Pinger{"db": nil})
	RegisterPublic(e, handler.NewPublicHandler(showtimes, seats), passThrough)
	RegisterCustomer(e, handler.NewCustomerHandler(seats, bookings), handler.NewPaymentHandler(payments), jwtSecret, Limits{})
	RegisterAdmin(e, handler.NewAdminHandler(showtimes, seats, bookings), jwtSecret)

	token := func(id uint64, role string) string {
		tok, err := utils.NewAccessToken(jwtSecret, id, role, time.Hour)
		require.NoError(t, err)
		return tok.Token
	}
	return &api{t: t, e: e, customer: token(1, model.RoleCustomer), other: token(3, model.RoleCustomer), admin: token(2, model.RoleAdmin)}
}

// call performs a request and decodes a JSON response into out when out
// is non-nil.
func (a *api) call(method, path, token string, body any, out any) int {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

type showtimeJSON struct {
	ID             uint64 `json:"id"`
	ScreenName     string `json:"screen_name"`
	TotalSeats     uint32 `json:"total_seats"`
	AvailableSeats uint32 `json:"available_seats"`
}

type seatJSON struct {
	ID     uint64 `json:"id"`
	Label  string `json:"label"`
	Status string `json:"status"`
}

type bookingJSON struct {
	ID                uint64   `json:"id"`
	Status            string   `json:"status"`
	Seats             []string `json:"seats"`
	TotalAmountCents  uint32   `json:"total_amount_cents"`
	RefundAmountCents *uint32  `json:"refund_amount_cents"`
	TicketNumber      string   `json:"ticket_number"`
	PaymentMethod     string   `json:"payment_method"`
}

func (a *api) createShowtime() showtimeJSON {
	var st showtimeJSON
	code := a.call(http.MethodPost, "/v1/admin/showtimes", a.admin, map[string]any{
		"movie_id": 1, "theater_id": 1, "screen_id": 1, "screen_name": "Screen 1",
		"starts_at": time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
		"ticket_price_cents": 15000, "total_seats": 96, "available_seats": 96,
	}, &st)
	require.Equal(a.t, http.StatusCreated, code)
	return st
}

func (a *api) seats(showtimeID uint64) map[string]seatJSON {
	var out struct {
		Seats []seatJSON `json:"seats"`
	}
	require.Equal(a.t, http.StatusOK, a.call(http.MethodGet, fmt.Sprintf("/v1/showtimes/%d/seats", showtimeID), "", nil, &out))
	m := make(map[string]seatJSON, len(out.Seats))
	for _, s := range out.Seats {
		m[s.Label] = s
	}
	return m
}

func (a *api) available(showtimeID uint64) uint32 {
	var st showtimeJSON
	require.Equal(a.t, http.StatusOK, a.call(http.MethodGet, fmt.Sprintf("/v1/showtimes/%d", showtimeID), "", nil, &st))
	return st.AvailableSeats
}

func TestHealthAndReady(t *testing.T) {
	a := newAPI(t)
	var body map[string]any
	assert.Equal(t, http.StatusOK, a.call(http.MethodGet, "/healthz", "", nil, &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, http.StatusOK, a.call(http.MethodGet, "/readyz", "", nil, nil))

	e := echo.New()
	RegisterRoutes(e, map[string]handler.Pinger{"redis": failingPinger{}})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "down")
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t)
	st := a.createShowtime()
	assert.Equal(t, uint32(96), st.AvailableSeats)

	seats := a.seats(st.ID)
	require.Len(t, seats, 96)
	a1, a2 := seats["A1"].ID, seats["A2"].ID

	var hold struct {
		SessionID string   `json:"session_id"`
		Seats     []string `json:"seats"`
	}
	code := a.call(http.MethodPost, fmt.Sprintf("/v1/showtimes/%d/hold", st.ID), a.customer, map[string]any{"seat_ids": []uint64{a1, a2}}, &hold)
	require.Equal(t, http.StatusCreated, code)
	assert.NotEmpty(t, hold.SessionID)
	assert.Equal(t, []string{"A1", "A2"}, hold.Seats)
	assert.Equal(t, "HELD", a.seats(st.ID)["A1"].Status)
	assert.Equal(t, uint32(94), a.available(st.ID))

	var b bookingJSON
	code = a.call(http.MethodPost, "/v1/bookings", a.customer, map[string]any{
		"showtime_id": st.ID, "seat_ids": []uint64{a1, a2},
		"customer": map[string]string{"name": "Asha", "email": "asha@example.com"},
	}, &b)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, []string{"A1", "A2"}, b.Seats)
	assert.Equal(t, uint32(30000), b.TotalAmountCents)
	assert.Equal(t, uint32(94), a.available(st.ID))
	assert.Equal(t, "BOOKED", a.seats(st.ID)["A2"].Status)

	var conflict map[string]any
	code = a.call(http.MethodPost, "/v1/bookings", a.other, map[string]any{"showtime_id": st.ID, "seat_ids": []uint64{a2}}, &conflict)
	assert.Equal(t, http.StatusConflict, code)
	assert.EqualValues(t, a2, conflict["seat_id"])

	path := fmt.Sprintf("/v1/bookings/%d", b.ID)
	assert.Equal(t, http.StatusOK, a.call(http.MethodGet, path, a.customer, nil, nil))
	assert.Equal(t, http.StatusForbidden, a.call(http.MethodGet, path, a.other, nil, nil))
	assert.Equal(t, http.StatusOK, a.call(http.MethodGet, path, a.admin, nil, nil))

	var mine struct {
		Bookings []bookingJSON `json:"bookings"`
	}
	require.Equal(t, http.StatusOK, a.call(http.MethodGet, "/v1/my-bookings", a.customer, nil, &mine))
	require.Len(t, mine.Bookings, 1)

	req := httptest.NewRequest(http.MethodGet, path+"/qr", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+a.customer)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))

	code = a.call(http.MethodPost, path+"/cancellation-request", a.customer, map[string]string{"reason": "sick"}, &b)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, model.BookingCancellationRequested, b.Status)

	var pending struct {
		Bookings []bookingJSON `json:"bookings"`
	}
	require.Equal(t, http.StatusOK, a.call(http.MethodGet, "/v1/admin/bookings/cancellation-requests", a.admin, nil, &pending))
	require.Len(t, pending.Bookings, 1)

	code = a.call(http.MethodPost, fmt.Sprintf("/v1/admin/bookings/%d/cancel", b.ID), a.admin, map[string]string{}, &b)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, model.BookingCancelled, b.Status)
	require.NotNil(t, b.RefundAmountCents)
	assert.Equal(t, uint32(27000), *b.RefundAmountCents)
	assert.Equal(t, uint32(96), a.available(st.ID))

	code = a.call(http.MethodPost, fmt.Sprintf("/v1/admin/bookings/%d/cancel", b.ID), a.admin, map[string]string{}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	code = a.call(http.MethodPost, fmt.Sprintf("/v1/admin/bookings/%d/scan", b.ID), a.admin, nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestAdminResignScanDelete(t *testing.T) {
	a := newAPI(t)
	st := a.createShowtime()
	seats := a.seats(st.ID)

	var b bookingJSON
	require.Equal(t, http.StatusCreated, a.call(http.MethodPost, "/v1/bookings", a.customer,
		map[string]any{"showtime_id": st.ID, "seat_ids": []uint64{seats["B1"].ID, seats["B2"].ID}}, &b))

	code := a.call(http.MethodPut, fmt.Sprintf("/v1/admin/bookings/%d/seats", b.ID), a.admin,
		map[string]any{"seat_ids": []uint64{seats["C5"].ID}}, &b)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"C5"}, b.Seats)
	assert.Equal(t, uint32(95), a.available(st.ID))

	code = a.call(http.MethodPost, fmt.Sprintf("/v1/admin/bookings/%d/scan", b.ID), a.admin, nil, &b)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, model.BookingConfirmed, b.Status)

	assert.Equal(t, http.StatusNoContent, a.call(http.MethodDelete, fmt.Sprintf("/v1/admin/bookings/%d", b.ID), a.admin, nil, nil))
	assert.Equal(t, uint32(96), a.available(st.ID))
	assert.Equal(t, http.StatusNotFound, a.call(http.MethodGet, fmt.Sprintf("/v1/bookings/%d", b.ID), a.admin, nil, nil))

	assert.Equal(t, http.StatusForbidden, a.call(http.MethodDelete, fmt.Sprintf("/v1/admin/showtimes/%d", st.ID), a.customer, nil, nil))
	assert.Equal(t, http.StatusNoContent, a.call(http.MethodDelete, fmt.Sprintf("/v1/admin/showtimes/%d", st.ID), a.admin, nil, nil))
	assert.Equal(t, http.StatusNotFound, a.call(http.MethodGet, fmt.Sprintf("/v1/showtimes/%d", st.ID), "", nil, nil))
}

func TestValidationAndAuthErrors(t *testing.T) {
	a := newAPI(t)
	st := a.createShowtime()

	assert.Equal(t, http.StatusUnauthorized, a.call(http.MethodPost, "/v1/bookings", "", map[string]any{}, nil))

	var body map[string]any
	code := a.call(http.MethodPost, "/v1/bookings", a.customer, map[string]any{"showtime_id": st.ID}, &body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "SeatIDs")

	longLabel := []string{"ROW-A-SEAT-1"}
	body = nil
	code = a.call(http.MethodPost, "/v1/bookings", a.customer, map[string]any{
		"showtime_id": st.ID, "seat_ids": []uint64{1}, "seat_labels": longLabel,
	}, &body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "SeatLabels")
	code = a.call(http.MethodPost, "/v1/payments/verify", a.customer, map[string]any{
		"order_id": "order_x", "payment_id": "pay_x", "signature": "abcdef",
		"showtime_id": st.ID, "seat_ids": []uint64{1}, "seat_labels": longLabel,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code = a.call(http.MethodPost, "/v1/admin/showtimes", a.admin, map[string]any{
		"movie_id": 1, "theater_id": 1, "screen_id": 1, "starts_at": time.Now().Add(time.Hour).Format(time.RFC3339),
		"total_seats": 10, "available_seats": 11,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code = a.call(http.MethodPost, "/v1/showtimes/999/hold", a.customer, map[string]any{"seat_ids": []uint64{1}}, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, http.StatusBadRequest, a.call(http.MethodGet, "/v1/showtimes/abc", "", nil, nil))
}

func TestSearchAndScreens(t *testing.T) {
	a := newAPI(t)
	a.createShowtime()
	a.createShowtime()

	var page struct {
		Data     []showtimeJSON `json:"data"`
		Total    int64          `json:"total"`
		Page     int            `json:"page"`
		PageSize int            `json:"page_size"`
	}
	require.Equal(t, http.StatusOK, a.call(http.MethodGet, "/v1/showtimes?movie_id=1&page_size=1&page=2", "", nil, &page))
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Data, 1)

	layout := map[string]any{"sections": []map[string]any{
		{"name": "All", "row_start": "A", "row_end": "B", "seats_per_row": 2, "seat_type": "REGULAR", "price_cents": 500},
	}}
	code := a.call(http.MethodPut, "/v1/admin/screens/9", a.admin, map[string]any{"theater_id": 1, "name": "Small", "layout": layout}, nil)
	require.Equal(t, http.StatusOK, code)

	var sc map[string]any
	require.Equal(t, http.StatusOK, a.call(http.MethodGet, "/v1/screens/9", "", nil, &sc))
	assert.Equal(t, "Small", sc["name"])

	var st showtimeJSON
	code = a.call(http.MethodPost, "/v1/admin/showtimes", a.admin, map[string]any{
		"movie_id": 2, "theater_id": 1, "screen_id": 9, "starts_at": time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	}, &st)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Small", st.ScreenName)
	assert.Equal(t, uint32(4), st.TotalSeats)

	require.Equal(t, http.StatusOK, a.call(http.MethodPost, fmt.Sprintf("/v1/admin/showtimes/%d/seats/init", st.ID), a.admin, nil, &st))
	assert.Equal(t, uint32(4), st.TotalSeats)
}

func TestPaymentFlowOverHTTP(t *testing.T) {
	a := newAPI(t)
	st := a.createShowtime()
	seats := a.seats(st.ID)

	var order struct {
		OrderID     string `json:"order_id"`
		AmountCents uint32 `json:"amount_cents"`
		KeyID       string `json:"key_id"`
	}
	require.Equal(t, http.StatusCreated, a.call(http.MethodPost, "/v1/payments/orders", a.customer, map[string]any{"amount_cents": 20000}, &order))
	assert.Equal(t, "key", order.KeyID)

	verify := map[string]any{
		"order_id": order.OrderID, "payment_id": "pay_1",
		"signature":   service.Sign(order.OrderID, "pay_1", "wrong"),
		"showtime_id": st.ID, "seat_ids": []uint64{seats["C1"].ID},
	}
	assert.Equal(t, http.StatusForbidden, a.call(http.MethodPost, "/v1/payments/verify", a.customer, verify, nil))

	verify["signature"] = service.Sign(order.OrderID, "pay_1", paymentSecret)
	var b bookingJSON
	require.Equal(t, http.StatusCreated, a.call(http.MethodPost, "/v1/payments/verify", a.customer, verify, &b))
	assert.Equal(t, model.PaymentMethodRazorpay, b.PaymentMethod)
	assert.Equal(t, uint32(20000), b.TotalAmountCents)
	assert.Equal(t, uint32(95), a.available(st.ID))
}
