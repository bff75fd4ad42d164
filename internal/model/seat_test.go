package model

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestSeatStates(t *testing.T) {
    now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
    s := Seat{RowLabel: "AA", SeatNumber: 12}
    assert.Equal(t, "AA12", s.Label())
    assert.True(t, s.Available(now))
    assert.False(t, s.HoldExpired(now), "an unheld seat has no hold to expire")

    s.Hold("sess", now.Add(time.Minute))
    assert.False(t, s.Available(now))
    assert.True(t, s.Available(now.Add(time.Minute)), "a hold lapses at its expiry")
    assert.True(t, s.HoldExpired(now.Add(2*time.Minute)))

    s.Book()
    assert.True(t, s.IsBooked)
    assert.False(t, s.IsHeld)
    assert.Nil(t, s.HoldSessionID)
    assert.False(t, s.Available(now.Add(time.Hour)))

    s.Unbook()
    assert.True(t, s.Available(now))
}

func TestHeldSeatWithoutExpiryIsLapsed(t *testing.T) {
    s := Seat{IsHeld: true}
    assert.True(t, s.HoldExpired(time.Now()))
    assert.True(t, s.Available(time.Now()))
}

func TestBookingActive(t *testing.T) {
    assert.True(t, Booking{Status: BookingConfirmed}.Active())
    assert.True(t, Booking{Status: BookingCancellationRequested}.Active())
    assert.False(t, Booking{Status: BookingCancelled}.Active())
}

func TestScreenLayoutEmpty(t *testing.T) {
    var l *ScreenLayout
    assert.True(t, l.Empty())
    assert.True(t, (&ScreenLayout{Categories: []SeatCategory{{Key: "x"}}}).Empty())
    assert.False(t, (&ScreenLayout{Sections: []LayoutSection{{Name: "a"}}}).Empty())
}
