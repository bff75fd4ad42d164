package model

// Screen is an auditorium inside a theater.  Layout is optional; a
// showtime on a screen without a layout gets the default grid.
type Screen struct {
    ID        uint64        // screens.id
    TheaterID uint64        // screens.theater_id
    Name      string        // screens.name
    Layout    *ScreenLayout // screens.layout (JSON, nullable)
}

// ScreenLayout describes how seats are generated for a screen.  Either an
// explicit seat map (Categories + Seats) or a list of banded Sections is
// used; when both are present the explicit seat map wins.
type ScreenLayout struct {
    Categories []SeatCategory  `json:"categories,omitempty"`
    Seats      []LayoutSeat    `json:"seats,omitempty"`
    Sections   []LayoutSection `json:"sections,omitempty"`
}

// SeatCategory is a priced tier referenced by LayoutSeat.CategoryKey.
type SeatCategory struct {
    Key        string `json:"key"`
    Name       string `json:"name"`
    SeatType   string `json:"seat_type"`
    PriceCents uint32 `json:"price_cents"`
}

// LayoutSeat is one cell of an explicit seat map.  Disabled cells (aisles,
// broken seats) are skipped when seats are materialized.
type LayoutSeat struct {
    RowLabel    string `json:"row_label"`
    SeatNumber  uint32 `json:"seat_number"`
    CategoryKey string `json:"category_key"`
    Disabled    bool   `json:"disabled,omitempty"`
}

// LayoutSection generates SeatsPerRow seats for every row from RowStart to
// RowEnd inclusive, all with the same type and price.
type LayoutSection struct {
    Name        string `json:"name"`
    RowStart    string `json:"row_start"`
    RowEnd      string `json:"row_end"`
    SeatsPerRow uint32 `json:"seats_per_row"`
    SeatType    string `json:"seat_type"`
    PriceCents  uint32 `json:"price_cents"`
}

// Empty reports whether the layout produces no seats at all.
func (l *ScreenLayout) Empty() bool {
    return l == nil || (len(l.Seats) == 0 && len(l.Sections) == 0)
}
