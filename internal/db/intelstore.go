package db

import (
	"context"
	"fmt"

	"import-scout/internal/vehicle"
)

// intel.Store implementation. Windows are measured against row insertion
// time so re-ingested feeds naturally refresh the signals.

// CompetitionStats counts distinct rival models listed in the destination
// market with the same year and fuel type, and the listing volume across
// them.
func (d *DB) CompetitionStats(ctx context.Context, key vehicle.Key) (int, int, error) {
	var models, listings int
	err := d.sql.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT LOWER(make) || ' ' || LOWER(model)), COUNT(*)
		FROM destination_listings
		WHERE year = ? AND LOWER(fuel_type) = ?
			AND NOT (LOWER(make) = ? AND LOWER(model) = ?)`,
		key.Year, key.FuelType, key.Make, key.Model).Scan(&models, &listings)
	if err != nil {
		return 0, 0, fmt.Errorf("query competition stats: %w", err)
	}
	return models, listings, nil
}

// PriceSpread returns destination price statistics for the key over the
// last 90 days of collected listings.
func (d *DB) PriceSpread(ctx context.Context, key vehicle.Key) (float64, float64, float64, int, error) {
	var (
		mean, min, max float64
		points         int
	)
	err := d.sql.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(price), 0), COALESCE(MIN(price), 0),
			COALESCE(MAX(price), 0), COUNT(*)
		FROM destination_listings
		WHERE LOWER(make) = ? AND LOWER(model) = ?
			AND year = ? AND LOWER(fuel_type) = ?
			AND price > 0
			AND created_at >= datetime('now', '-90 days')`,
		key.Make, key.Model, key.Year, key.FuelType).Scan(&mean, &min, &max, &points)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("query price spread: %w", err)
	}
	return mean, min, max, points, nil
}

// SupplyStats returns how many recent source auctions offered the vehicle
// and across how many distinct venues.
func (d *DB) SupplyStats(ctx context.Context, key vehicle.Key) (int, int, error) {
	var auctions, venues int
	err := d.sql.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT venue)
		FROM source_auctions
		WHERE LOWER(make) = ? AND LOWER(model) = ?
			AND year = ? AND LOWER(fuel_type) = ?
			AND created_at >= datetime('now', '-90 days')`,
		key.Make, key.Model, key.Year, key.FuelType).Scan(&auctions, &venues)
	if err != nil {
		return 0, 0, fmt.Errorf("query supply stats: %w", err)
	}
	return auctions, venues, nil
}

// RegistrationSeries returns month -> registration count for the model.
// Registrations are tracked at make/model granularity; year and fuel are
// not part of the government series.
func (d *DB) RegistrationSeries(ctx context.Context, key vehicle.Key) (map[int]int, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT month, SUM(registration_count)
		FROM registrations
		WHERE LOWER(make) = ? AND LOWER(model) = ?
		GROUP BY month`,
		key.Make, key.Model)
	if err != nil {
		return nil, fmt.Errorf("query registration series: %w", err)
	}
	defer rows.Close()

	series := make(map[int]int)
	for rows.Next() {
		var month, count int
		if err := rows.Scan(&month, &count); err != nil {
			return nil, fmt.Errorf("scan registration row: %w", err)
		}
		series[month] = count
	}
	return series, rows.Err()
}
