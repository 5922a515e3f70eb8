package pricing

import (
	"sync"

	"collateral-lab/internal/domain"
)

// Replay returns prices from a pre-recorded daily series indexed by
// day-of-range. Out-of-range days clamp to the nearest valid index.
type Replay struct {
	series []float64
	scale  float64
}

// NewReplay builds a replay provider over a daily series. When
// basePriceOverride is positive the whole series is rescaled so day 0
// equals the override, preserving the path's relative moves.
func NewReplay(series []float64, basePriceOverride float64) *Replay {
	scale := 1.0
	if basePriceOverride > 0 && len(series) > 0 && series[0] > 0 {
		scale = basePriceOverride / series[0]
	}
	return &Replay{series: series, scale: scale}
}

// NewReplayFromTicks builds a replay provider from stored series
// points, e.g. rows loaded from the ClickHouse price_series table.
func NewReplayFromTicks(ticks []domain.PriceTick, basePriceOverride float64) *Replay {
	series := make([]float64, len(ticks))
	for i, tk := range ticks {
		series[i] = tk.Price
	}
	return NewReplay(series, basePriceOverride)
}

// PriceAt returns the recorded price for the day, clamped into range.
func (r *Replay) PriceAt(day int) float64 {
	if len(r.series) == 0 {
		return 0
	}
	if day < 0 {
		day = 0
	}
	if day >= len(r.series) {
		day = len(r.series) - 1
	}
	return r.series[day] * r.scale
}

// Horizon returns the number of recorded days.
func (r *Replay) Horizon() int {
	if len(r.series) == 0 {
		return 0
	}
	return len(r.series) - 1
}

var _ Provider = (*Replay)(nil)

// seriesKey identifies one generated daily series.
type seriesKey struct {
	asset     string
	yearStart int
	yearEnd   int
}

// SeriesCache memoizes expanded daily series keyed by
// (asset, yearRange). It is an explicit object owned by its caller
// rather than process-wide state, so tests cannot contaminate each
// other; a key change recomputes rather than reuses.
type SeriesCache struct {
	mu      sync.Mutex
	entries map[seriesKey][]float64
}

// NewSeriesCache creates an empty cache.
func NewSeriesCache() *SeriesCache {
	return &SeriesCache{entries: make(map[seriesKey][]float64)}
}

// DailySeries returns the expanded daily series for the asset and year
// range, computing and memoizing it on first use.
func (c *SeriesCache) DailySeries(asset string, yearStart, yearEnd int) ([]float64, error) {
	key := seriesKey{asset: asset, yearStart: yearStart, yearEnd: yearEnd}

	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.entries[key]; ok {
		return s, nil
	}

	s, err := expandDailySeries(asset, yearStart, yearEnd)
	if err != nil {
		return nil, err
	}
	c.entries[key] = s
	return s, nil
}

// Invalidate drops the cached series for one key.
func (c *SeriesCache) Invalidate(asset string, yearStart, yearEnd int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, seriesKey{asset: asset, yearStart: yearStart, yearEnd: yearEnd})
}

// Len returns the number of memoized series.
func (c *SeriesCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
