package clickhouse

import (
	"context"
	"fmt"

	"collateral-lab/internal/domain"
	"collateral-lab/internal/storage"
)

// PriceSeriesStore implements storage.PriceSeriesStore using ClickHouse.
type PriceSeriesStore struct {
	conn *Conn
}

// NewPriceSeriesStore creates a new PriceSeriesStore.
func NewPriceSeriesStore(conn *Conn) *PriceSeriesStore {
	return &PriceSeriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceSeriesStore = (*PriceSeriesStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate (series_id, day).
func (s *PriceSeriesStore) InsertBulk(ctx context.Context, points []*domain.PriceSeriesPoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		seriesID string
		day      int
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		k := key{p.SeriesID, p.Day}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range points {
		exists, err := s.exists(ctx, p.SeriesID, p.Day)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_series (
			series_id, asset, day, price
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.SeriesID, p.Asset, uint32(p.Day), p.Price,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySeriesID retrieves all points for a series, ordered by day ASC.
func (s *PriceSeriesStore) GetBySeriesID(ctx context.Context, seriesID string) ([]*domain.PriceSeriesPoint, error) {
	query := `
		SELECT series_id, asset, day, price
		FROM price_series
		WHERE series_id = ?
		ORDER BY day ASC
	`

	rows, err := s.conn.Query(ctx, query, seriesID)
	if err != nil {
		return nil, fmt.Errorf("query by series id: %w", err)
	}
	defer rows.Close()

	return scanPriceSeries(rows)
}

// exists checks if a point with the given key exists.
func (s *PriceSeriesStore) exists(ctx context.Context, seriesID string, day int) (bool, error) {
	query := `
		SELECT count(*) FROM price_series
		WHERE series_id = ? AND day = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, seriesID, uint32(day)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanPriceSeries scans multiple rows.
func scanPriceSeries(rows chRows) ([]*domain.PriceSeriesPoint, error) {
	var points []*domain.PriceSeriesPoint

	for rows.Next() {
		var p domain.PriceSeriesPoint
		var day uint32

		err := rows.Scan(&p.SeriesID, &p.Asset, &day, &p.Price)
		if err != nil {
			return nil, fmt.Errorf("scan price series row: %w", err)
		}

		p.Day = int(day)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price series rows: %w", err)
	}

	return points, nil
}
