package domain

// PriceTick is one day of a price path. Days are monotonically
// increasing from 0; prices are strictly positive.
type PriceTick struct {
	Day   int
	Price float64
}

// PriceSeriesPoint is one stored day of a recorded daily price series.
// Corresponds to the price_series table in ClickHouse.
type PriceSeriesPoint struct {
	SeriesID string  // "<asset>:<yearStart>-<yearEnd>"
	Asset    string  // collateral asset symbol
	Day      int     // day index within the series
	Price    float64 // closing price for the day
}
