package db

import (
	"context"
	"fmt"
	"time"
)

// SourceAuction is one cleaned auction record ready for storage.
type SourceAuction struct {
	Make        string
	Model       string
	Year        int
	FuelType    string
	HammerPrice float64
	Mileage     float64
	Grade       float64
	Category    string
	Venue       string
	AuctionedAt time.Time
}

// DestinationListing is one cleaned retail listing ready for storage.
type DestinationListing struct {
	Make       string
	Model      string
	Year       int
	FuelType   string
	Price      float64
	Mileage    float64
	DaysListed float64
	Site       string
	ListedAt   time.Time
}

// Registration is one monthly registration statistic for a model.
type Registration struct {
	Make   string
	Model  string
	Year   int
	Month  int
	Count  int
	Region string
}

// InsertSourceAuctions bulk-inserts auction records in one transaction.
func (d *DB) InsertSourceAuctions(ctx context.Context, records []SourceAuction) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO source_auctions
		(make, model, year, fuel_type, hammer_price, mileage, condition_grade, category, venue, auctioned_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Make, r.Model, r.Year, r.FuelType,
			r.HammerPrice, r.Mileage, r.Grade, r.Category, r.Venue,
			r.AuctionedAt.UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("insert auction: %w", err)
		}
	}
	return tx.Commit()
}

// InsertDestinationListings bulk-inserts listing records in one transaction.
func (d *DB) InsertDestinationListings(ctx context.Context, records []DestinationListing) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO destination_listings
		(make, model, year, fuel_type, price, mileage, days_listed, site, listed_at)
		VALUES (?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Make, r.Model, r.Year, r.FuelType,
			r.Price, r.Mileage, r.DaysListed, r.Site,
			r.ListedAt.UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("insert listing: %w", err)
		}
	}
	return tx.Commit()
}

// InsertRegistrations bulk-inserts registration statistics.
func (d *DB) InsertRegistrations(ctx context.Context, records []Registration) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO registrations
		(make, model, year, month, registration_count, region)
		VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Make, r.Model, r.Year, r.Month, r.Count, r.Region); err != nil {
			return fmt.Errorf("insert registration: %w", err)
		}
	}
	return tx.Commit()
}

// PruneOlderThan deletes raw market data collected before the cutoff.
// Analysis results are kept; they are replaced wholesale on each run.
func (d *DB) PruneOlderThan(ctx context.Context, cutoff time.Time) error {
	// created_at uses SQLite's datetime('now') format; normalize the cutoff
	// through datetime() so the comparison stays lexical.
	ts := cutoff.UTC().Format(time.RFC3339)
	if _, err := d.sql.ExecContext(ctx, "DELETE FROM source_auctions WHERE created_at < datetime(?)", ts); err != nil {
		return fmt.Errorf("prune auctions: %w", err)
	}
	if _, err := d.sql.ExecContext(ctx, "DELETE FROM destination_listings WHERE created_at < datetime(?)", ts); err != nil {
		return fmt.Errorf("prune listings: %w", err)
	}
	return nil
}
