package service

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/cinema-booking/internal/model"
    "github.com/iliyamo/cinema-booking/internal/repository"
)

func TestDefaultGrid(t *testing.T) {
    seats, err := generateSeats(7, nil)
    require.NoError(t, err)
    require.Len(t, seats, 96)

    byType := map[string]int{}
    for _, s := range seats {
        assert.Equal(t, uint64(7), s.ShowtimeID)
        byType[s.SeatType]++
    }
    assert.Equal(t, 24, byType[model.SeatTypeRegular])
    assert.Equal(t, 36, byType[model.SeatTypePremium])
    assert.Equal(t, 36, byType[model.SeatTypeVIP])
    assert.Equal(t, "A1", seats[0].Label())
    assert.Equal(t, "H12", seats[95].Label())
    assert.Equal(t, uint32(30000), seats[95].PriceCents)
}

func TestDefaultLayoutIsACopy(t *testing.T) {
    l := DefaultLayout()
    l.Sections[0].PriceCents = 1
    assert.Equal(t, uint32(15000), DefaultLayout().Sections[0].PriceCents)
}

func TestValidateLayout(t *testing.T) {
    cases := map[string]*model.ScreenLayout{
        "overlapping sections": {Sections: []model.LayoutSection{
            {Name: "a", RowStart: "A", RowEnd: "B", SeatsPerRow: 5},
            {Name: "b", RowStart: "B", RowEnd: "C", SeatsPerRow: 5},
        }},
        "zero seats per row": {Sections: []model.LayoutSection{{Name: "a", RowStart: "A", RowEnd: "A"}}},
        "unknown seat type":  {Sections: []model.LayoutSection{{Name: "a", RowStart: "A", RowEnd: "A", SeatsPerRow: 1, SeatType: "BOX"}}},
        "bad row":            {Sections: []model.LayoutSection{{Name: "a", RowStart: "1", RowEnd: "A", SeatsPerRow: 1}}},
        "unknown category": {
            Categories: []model.SeatCategory{{Key: "std"}},
            Seats:      []model.LayoutSeat{{RowLabel: "A", SeatNumber: 1, CategoryKey: "gold"}},
        },
        "duplicate seat": {
            Categories: []model.SeatCategory{{Key: "std"}},
            Seats: []model.LayoutSeat{
                {RowLabel: "A", SeatNumber: 1, CategoryKey: "std"},
                {RowLabel: "a", SeatNumber: 1, CategoryKey: "std"},
            },
        },
        "duplicate category": {
            Categories: []model.SeatCategory{{Key: "std"}, {Key: "std"}},
            Seats:      []model.LayoutSeat{{RowLabel: "A", SeatNumber: 1, CategoryKey: "std"}},
        },
        "seat without number": {
            Categories: []model.SeatCategory{{Key: "std"}},
            Seats:      []model.LayoutSeat{{RowLabel: "A", CategoryKey: "std"}},
        },
    }
    for name, l := range cases {
        t.Run(name, func(t *testing.T) {
            assert.ErrorIs(t, ValidateLayout(l), repository.ErrValidation)
        })
    }

    assert.NoError(t, ValidateLayout(nil))
    assert.NoError(t, ValidateLayout(DefaultLayout()))
}
