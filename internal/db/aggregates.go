package db

import (
	"context"
	"fmt"

	"import-scout/internal/engine"
	"import-scout/internal/vehicle"
)

// Aggregate readers: GROUP BY queries over the raw tables, one row per
// vehicle key. Sample-count thresholds are applied by the matcher, not
// here, so callers can inspect thin keys too.

// SourceAggregates implements engine.AggregateReader for the source side.
func (d *DB) SourceAggregates(ctx context.Context, filter engine.Filter) ([]vehicle.SourceAggregate, error) {
	query := `
		SELECT LOWER(make), LOWER(model), year, LOWER(fuel_type),
			COUNT(*),
			AVG(hammer_price), MIN(hammer_price), MAX(hammer_price),
			COALESCE(AVG(mileage), 0),
			COALESCE(AVG(condition_grade), 0),
			COUNT(DISTINCT venue),
			MAX(category)
		FROM source_auctions
		WHERE hammer_price > 0`
	args := []any{}
	query, args = applyFilter(query, args, filter)
	query += " GROUP BY LOWER(make), LOWER(model), year, LOWER(fuel_type)"

	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query source aggregates: %w", err)
	}
	defer rows.Close()

	var aggs []vehicle.SourceAggregate
	for rows.Next() {
		var (
			make, model, fuel, category string
			year                        int
			a                           vehicle.SourceAggregate
		)
		if err := rows.Scan(&make, &model, &year, &fuel,
			&a.SampleCount, &a.MeanPrice, &a.MinPrice, &a.MaxPrice,
			&a.MeanMileage, &a.MeanGrade, &a.VenueCount, &category); err != nil {
			return nil, fmt.Errorf("scan source aggregate: %w", err)
		}
		a.Key = vehicle.NewKey(make, model, year, fuel)
		a.Category = vehicle.ParseCategory(category)
		aggs = append(aggs, a)
	}
	return aggs, rows.Err()
}

// DestinationAggregates implements engine.AggregateReader for the
// destination side.
func (d *DB) DestinationAggregates(ctx context.Context, filter engine.Filter) ([]vehicle.DestinationAggregate, error) {
	query := `
		SELECT LOWER(make), LOWER(model), year, LOWER(fuel_type),
			COUNT(*),
			AVG(price), MIN(price), MAX(price),
			COALESCE(AVG(mileage), 0),
			COALESCE(AVG(days_listed), 0)
		FROM destination_listings
		WHERE price > 0`
	args := []any{}
	query, args = applyFilter(query, args, filter)
	query += " GROUP BY LOWER(make), LOWER(model), year, LOWER(fuel_type)"

	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query destination aggregates: %w", err)
	}
	defer rows.Close()

	var aggs []vehicle.DestinationAggregate
	for rows.Next() {
		var (
			make, model, fuel string
			year              int
			a                 vehicle.DestinationAggregate
		)
		if err := rows.Scan(&make, &model, &year, &fuel,
			&a.SampleCount, &a.MeanPrice, &a.MinPrice, &a.MaxPrice,
			&a.MeanMileage, &a.MeanDaysOnMarket); err != nil {
			return nil, fmt.Errorf("scan destination aggregate: %w", err)
		}
		a.Key = vehicle.NewKey(make, model, year, fuel)
		aggs = append(aggs, a)
	}
	return aggs, rows.Err()
}

func applyFilter(query string, args []any, filter engine.Filter) (string, []any) {
	if filter.Make != "" {
		query += " AND LOWER(make) = LOWER(?)"
		args = append(args, filter.Make)
	}
	if filter.Model != "" {
		query += " AND LOWER(model) = LOWER(?)"
		args = append(args, filter.Model)
	}
	return query, args
}
