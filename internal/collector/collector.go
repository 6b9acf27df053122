// Package collector pulls the upstream feeds, cleans the raw records and
// loads them into storage. Records that fail validation are counted and
// skipped, never inserted.
package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"import-scout/internal/db"
	"import-scout/internal/feeds"
	"import-scout/internal/vehicle"
)

// Hammer price sanity bounds in JPY. Anything outside is junk data.
const (
	minHammerPriceJPY = 50_000
	maxHammerPriceJPY = 10_000_000
)

// Listing price sanity bounds in GBP.
const (
	minListingPriceGBP = 500
	maxListingPriceGBP = 500_000
)

// AuctionSource yields source-market auction results.
type AuctionSource interface {
	Results(ctx context.Context, q feeds.Query) ([]feeds.AuctionRecord, error)
}

// ListingSource yields destination-market retail listings.
type ListingSource interface {
	Listings(ctx context.Context, q feeds.Query) ([]feeds.ListingRecord, error)
}

// RegistrationSource yields government registration statistics.
type RegistrationSource interface {
	Registrations(ctx context.Context, year int) ([]feeds.RegistrationRecord, error)
}

// Store is the persistence surface the collector writes to.
type Store interface {
	InsertSourceAuctions(ctx context.Context, records []db.SourceAuction) error
	InsertDestinationListings(ctx context.Context, records []db.DestinationListing) error
	InsertRegistrations(ctx context.Context, records []db.Registration) error
	PruneOlderThan(ctx context.Context, cutoff time.Time) error
}

// Collector refreshes the raw market tables from the feeds.
type Collector struct {
	auctions      AuctionSource
	listings      ListingSource
	registrations RegistrationSource
	store         Store
	retention     time.Duration
	now           func() time.Time
	log           zerolog.Logger
}

// New wires a Collector. A zero retention disables pruning.
func New(auctions AuctionSource, listings ListingSource, registrations RegistrationSource,
	store Store, retention time.Duration, log zerolog.Logger) *Collector {
	return &Collector{
		auctions:      auctions,
		listings:      listings,
		registrations: registrations,
		store:         store,
		retention:     retention,
		now:           time.Now,
		log:           log.With().Str("component", "collector").Logger(),
	}
}

// RefreshAuctions pulls, cleans and stores source-market auction results.
// Returns how many records were stored and how many were rejected.
func (c *Collector) RefreshAuctions(ctx context.Context, q feeds.Query) (stored, rejected int, err error) {
	raw, err := c.auctions.Results(ctx, q)
	if err != nil {
		return 0, 0, fmt.Errorf("pull auctions: %w", err)
	}

	records := make([]db.SourceAuction, 0, len(raw))
	for _, r := range raw {
		rec, ok := c.cleanAuction(r)
		if !ok {
			rejected++
			continue
		}
		records = append(records, rec)
	}
	if err := c.store.InsertSourceAuctions(ctx, records); err != nil {
		return 0, rejected, fmt.Errorf("store auctions: %w", err)
	}
	c.log.Info().Int("stored", len(records)).Int("rejected", rejected).Msg("auction refresh complete")
	return len(records), rejected, c.prune(ctx)
}

// RefreshListings pulls, cleans and stores destination-market listings.
func (c *Collector) RefreshListings(ctx context.Context, q feeds.Query) (stored, rejected int, err error) {
	raw, err := c.listings.Listings(ctx, q)
	if err != nil {
		return 0, 0, fmt.Errorf("pull listings: %w", err)
	}

	records := make([]db.DestinationListing, 0, len(raw))
	for _, r := range raw {
		rec, ok := c.cleanListing(r)
		if !ok {
			rejected++
			continue
		}
		records = append(records, rec)
	}
	if err := c.store.InsertDestinationListings(ctx, records); err != nil {
		return 0, rejected, fmt.Errorf("store listings: %w", err)
	}
	c.log.Info().Int("stored", len(records)).Int("rejected", rejected).Msg("listing refresh complete")
	return len(records), rejected, c.prune(ctx)
}

// RefreshRegistrations pulls and stores the registration series for the
// current year.
func (c *Collector) RefreshRegistrations(ctx context.Context) (stored, rejected int, err error) {
	raw, err := c.registrations.Registrations(ctx, c.now().Year())
	if err != nil {
		return 0, 0, fmt.Errorf("pull registrations: %w", err)
	}

	records := make([]db.Registration, 0, len(raw))
	for _, r := range raw {
		rec, ok := c.cleanRegistration(r)
		if !ok {
			rejected++
			continue
		}
		records = append(records, rec)
	}
	if err := c.store.InsertRegistrations(ctx, records); err != nil {
		return 0, rejected, fmt.Errorf("store registrations: %w", err)
	}
	c.log.Info().Int("stored", len(records)).Int("rejected", rejected).Msg("registration refresh complete")
	return len(records), rejected, nil
}

func (c *Collector) cleanAuction(r feeds.AuctionRecord) (db.SourceAuction, bool) {
	make, model := cleanName(r.Make), cleanName(r.Model)
	if make == "" || model == "" || !validYear(r.Year, c.now().Year()) {
		return db.SourceAuction{}, false
	}
	if r.HammerPrice < minHammerPriceJPY || r.HammerPrice > maxHammerPriceJPY {
		return db.SourceAuction{}, false
	}

	// A bad grade downgrades the record, it does not reject it. Grade
	// gaps just push the risk score up.
	grade, err := vehicle.ParseGrade(r.ConditionGrade)
	if err != nil {
		grade = 0
	}

	auctionedAt, _ := time.Parse("2006-01-02", r.AuctionDate)
	if auctionedAt.IsZero() {
		auctionedAt = c.now()
	}
	return db.SourceAuction{
		Make:        make,
		Model:       model,
		Year:        r.Year,
		FuelType:    vehicle.CanonicalFuel(r.FuelType),
		HammerPrice: r.HammerPrice,
		Mileage:     nonNegative(r.Mileage),
		Grade:       grade,
		Category:    string(vehicle.ParseCategory(r.BodyType)),
		Venue:       strings.TrimSpace(r.AuctionHouse),
		AuctionedAt: auctionedAt,
	}, true
}

func (c *Collector) cleanListing(r feeds.ListingRecord) (db.DestinationListing, bool) {
	make, model := cleanName(r.Make), cleanName(r.Model)
	if make == "" || model == "" || !validYear(r.Year, c.now().Year()) {
		return db.DestinationListing{}, false
	}
	if r.Price < minListingPriceGBP || r.Price > maxListingPriceGBP {
		return db.DestinationListing{}, false
	}

	listedAt, _ := time.Parse("2006-01-02", r.ListingDate)
	if listedAt.IsZero() {
		listedAt = c.now()
	}
	return db.DestinationListing{
		Make:       make,
		Model:      model,
		Year:       r.Year,
		FuelType:   vehicle.CanonicalFuel(r.FuelType),
		Price:      r.Price,
		Mileage:    nonNegative(r.Mileage),
		DaysListed: nonNegative(r.DaysListed),
		Site:       strings.TrimSpace(r.Site),
		ListedAt:   listedAt,
	}, true
}

func (c *Collector) cleanRegistration(r feeds.RegistrationRecord) (db.Registration, bool) {
	make, model := cleanName(r.Make), cleanName(r.Model)
	if make == "" || model == "" || r.Count < 0 {
		return db.Registration{}, false
	}
	if r.Month < 1 || r.Month > 12 {
		return db.Registration{}, false
	}
	return db.Registration{
		Make:   make,
		Model:  model,
		Year:   r.Year,
		Month:  r.Month,
		Count:  r.Count,
		Region: strings.TrimSpace(r.Region),
	}, true
}

func (c *Collector) prune(ctx context.Context) error {
	if c.retention <= 0 {
		return nil
	}
	if err := c.store.PruneOlderThan(ctx, c.now().Add(-c.retention)); err != nil {
		return fmt.Errorf("prune stale records: %w", err)
	}
	return nil
}

func cleanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func validYear(year, currentYear int) bool {
	return year >= 1980 && year <= currentYear+1
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
