package service

import (
    "fmt"

    "github.com/iliyamo/cinema-booking/internal/model"
    "github.com/iliyamo/cinema-booking/internal/repository"
    "github.com/iliyamo/cinema-booking/internal/utils"
)

// defaultSections is the grid used when a screen has no layout: 8 rows of
// 12 seats in three price bands.
var defaultSections = []model.LayoutSection{
    {Name: "Regular", RowStart: "A", RowEnd: "B", SeatsPerRow: 12, SeatType: model.SeatTypeRegular, PriceCents: 15000},
    {Name: "Premium", RowStart: "C", RowEnd: "E", SeatsPerRow: 12, SeatType: model.SeatTypePremium, PriceCents: 20000},
    {Name: "VIP", RowStart: "F", RowEnd: "H", SeatsPerRow: 12, SeatType: model.SeatTypeVIP, PriceCents: 30000},
}

// DefaultLayout returns a copy of the fallback grid.
func DefaultLayout() *model.ScreenLayout {
    return &model.ScreenLayout{Sections: append([]model.LayoutSection(nil), defaultSections...)}
}

// generateSeats expands layout into unsaved seats for showtimeID.  A nil
// or empty layout yields the default grid.
func generateSeats(showtimeID uint64, layout *model.ScreenLayout) ([]model.Seat, error) {
    if layout.Empty() {
        layout = DefaultLayout()
    }
    if err := ValidateLayout(layout); err != nil {
        return nil, err
    }
    if len(layout.Seats) > 0 {
        return seatsFromMap(showtimeID, layout), nil
    }
    return seatsFromSections(showtimeID, layout.Sections), nil
}

func seatsFromMap(showtimeID uint64, layout *model.ScreenLayout) []model.Seat {
    cats := make(map[string]model.SeatCategory, len(layout.Categories))
    for _, c := range layout.Categories {
        cats[c.Key] = c
    }
    out := make([]model.Seat, 0, len(layout.Seats))
    for _, ls := range layout.Seats {
        if ls.Disabled {
            continue
        }
        cat := cats[ls.CategoryKey]
        out = append(out, model.Seat{
            ShowtimeID: showtimeID,
            RowLabel:   utils.NormalizeRowLabel(ls.RowLabel),
            SeatNumber: ls.SeatNumber,
            SeatType:   seatTypeOrRegular(cat.SeatType),
            PriceCents: cat.PriceCents,
        })
    }
    return out
}

func seatsFromSections(showtimeID uint64, sections []model.LayoutSection) []model.Seat {
    var out []model.Seat
    for _, sec := range sections {
        start, _ := utils.RowLabelToIndex(sec.RowStart)
        end, _ := utils.RowLabelToIndex(sec.RowEnd)
        for row := start; row <= end; row++ {
            label := utils.IndexToRowLabel(row)
            for n := uint32(1); n <= sec.SeatsPerRow; n++ {
                out = append(out, model.Seat{
                    ShowtimeID: showtimeID,
                    RowLabel:   label,
                    SeatNumber: n,
                    SeatType:   seatTypeOrRegular(sec.SeatType),
                    PriceCents: sec.PriceCents,
                })
            }
        }
    }
    return out
}

func seatTypeOrRegular(t string) string {
    if t == "" {
        return model.SeatTypeRegular
    }
    return t
}

func validSeatType(t string) bool {
    switch t {
    case "", model.SeatTypeRegular, model.SeatTypePremium, model.SeatTypeVIP:
        return true
    }
    return false
}

type seatPos struct {
    row    string
    number uint32
}

// ValidateLayout checks that a layout produces a well formed seat map:
// known categories, valid row ranges and no two seats on one position.
func ValidateLayout(layout *model.ScreenLayout) error {
    if layout == nil {
        return nil
    }
    seen := map[seatPos]bool{}
    occupy := func(row string, n uint32) error {
        p := seatPos{row, n}
        if seen[p] {
            return fmt.Errorf("seat %s%d defined twice: %w", row, n, repository.ErrValidation)
        }
        seen[p] = true
        return nil
    }

    if len(layout.Seats) > 0 {
        cats := map[string]bool{}
        for _, c := range layout.Categories {
            if c.Key == "" {
                return fmt.Errorf("category without key: %w", repository.ErrValidation)
            }
            if cats[c.Key] {
                return fmt.Errorf("category %q defined twice: %w", c.Key, repository.ErrValidation)
            }
            if !validSeatType(c.SeatType) {
                return fmt.Errorf("category %q has unknown seat type %q: %w", c.Key, c.SeatType, repository.ErrValidation)
            }
            cats[c.Key] = true
        }
        for _, s := range layout.Seats {
            row := utils.NormalizeRowLabel(s.RowLabel)
            if row == "" || s.SeatNumber == 0 {
                return fmt.Errorf("seat %q/%d has no position: %w", s.RowLabel, s.SeatNumber, repository.ErrValidation)
            }
            if !s.Disabled && !cats[s.CategoryKey] {
                return fmt.Errorf("seat %s%d references unknown category %q: %w", row, s.SeatNumber, s.CategoryKey, repository.ErrValidation)
            }
            if err := occupy(row, s.SeatNumber); err != nil {
                return err
            }
        }
        return nil
    }

    for _, sec := range layout.Sections {
        start, ok1 := utils.RowLabelToIndex(sec.RowStart)
        end, ok2 := utils.RowLabelToIndex(sec.RowEnd)
        if !ok1 || !ok2 || start > end {
            return fmt.Errorf("section %q has invalid rows %q-%q: %w", sec.Name, sec.RowStart, sec.RowEnd, repository.ErrValidation)
        }
        if sec.SeatsPerRow == 0 {
            return fmt.Errorf("section %q has no seats per row: %w", sec.Name, repository.ErrValidation)
        }
        if !validSeatType(sec.SeatType) {
            return fmt.Errorf("section %q has unknown seat type %q: %w", sec.Name, sec.SeatType, repository.ErrValidation)
        }
        for row := start; row <= end; row++ {
            label := utils.IndexToRowLabel(row)
            for n := uint32(1); n <= sec.SeatsPerRow; n++ {
                if err := occupy(label, n); err != nil {
                    return err
                }
            }
        }
    }
    return nil
}
