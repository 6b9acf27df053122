package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"import-scout/internal/db"
	"import-scout/internal/feeds"
)

type fakeAuctions struct {
	records []feeds.AuctionRecord
	err     error
}

func (f *fakeAuctions) Results(_ context.Context, _ feeds.Query) ([]feeds.AuctionRecord, error) {
	return f.records, f.err
}

type fakeListings struct {
	records []feeds.ListingRecord
}

func (f *fakeListings) Listings(_ context.Context, _ feeds.Query) ([]feeds.ListingRecord, error) {
	return f.records, nil
}

type fakeRegistrations struct {
	records []feeds.RegistrationRecord
	year    int
}

func (f *fakeRegistrations) Registrations(_ context.Context, year int) ([]feeds.RegistrationRecord, error) {
	f.year = year
	return f.records, nil
}

type fakeStore struct {
	auctions      []db.SourceAuction
	listings      []db.DestinationListing
	registrations []db.Registration
	pruned        *time.Time
}

func (f *fakeStore) InsertSourceAuctions(_ context.Context, r []db.SourceAuction) error {
	f.auctions = append(f.auctions, r...)
	return nil
}

func (f *fakeStore) InsertDestinationListings(_ context.Context, r []db.DestinationListing) error {
	f.listings = append(f.listings, r...)
	return nil
}

func (f *fakeStore) InsertRegistrations(_ context.Context, r []db.Registration) error {
	f.registrations = append(f.registrations, r...)
	return nil
}

func (f *fakeStore) PruneOlderThan(_ context.Context, cutoff time.Time) error {
	f.pruned = &cutoff
	return nil
}

func newTestCollector(a AuctionSource, l ListingSource, r RegistrationSource, s Store, retention time.Duration) *Collector {
	c := New(a, l, r, s, retention, zerolog.Nop())
	c.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestRefreshAuctionsCleansAndStores(t *testing.T) {
	auctions := &fakeAuctions{records: []feeds.AuctionRecord{
		{Make: "  Toyota ", Model: "Prius", Year: 2020, FuelType: "Gasoline", HammerPrice: 1_500_000, ConditionGrade: "A", BodyType: "sedan", AuctionHouse: " USS Tokyo ", AuctionDate: "2026-02-20"},
		{Make: "Honda", Model: "CR-V", Year: 2019, FuelType: "HEV", HammerPrice: 2_000_000, ConditionGrade: "not-a-grade", BodyType: "SUV"},
		{Make: "Nissan", Model: "March", Year: 2021, FuelType: "petrol", HammerPrice: 10_000},  // below price floor
		{Make: "", Model: "Ghost", Year: 2020, FuelType: "petrol", HammerPrice: 1_000_000},     // no make
		{Make: "Mazda", Model: "RX-7", Year: 1975, FuelType: "petrol", HammerPrice: 3_000_000}, // year out of range
	}}
	store := &fakeStore{}
	c := newTestCollector(auctions, nil, nil, store, 0)

	stored, rejected, err := c.RefreshAuctions(context.Background(), feeds.Query{})
	require.NoError(t, err)
	assert.Equal(t, 2, stored)
	assert.Equal(t, 3, rejected)
	require.Len(t, store.auctions, 2)

	prius := store.auctions[0]
	assert.Equal(t, "Toyota", prius.Make)
	assert.Equal(t, "petrol", prius.FuelType)
	assert.Equal(t, 4.0, prius.Grade)
	assert.Equal(t, "Car", prius.Category)
	assert.Equal(t, "USS Tokyo", prius.Venue)
	assert.Equal(t, time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC), prius.AuctionedAt)

	crv := store.auctions[1]
	assert.Equal(t, "hybrid", crv.FuelType)
	assert.Equal(t, 0.0, crv.Grade, "unparseable grade stores as zero")
	assert.Equal(t, "SUV", crv.Category)
}

func TestRefreshAuctionsFeedError(t *testing.T) {
	c := newTestCollector(&fakeAuctions{err: errors.New("quota exceeded")}, nil, nil, &fakeStore{}, 0)
	_, _, err := c.RefreshAuctions(context.Background(), feeds.Query{})
	assert.ErrorContains(t, err, "pull auctions")
}

func TestRefreshListings(t *testing.T) {
	listings := &fakeListings{records: []feeds.ListingRecord{
		{Make: "Toyota", Model: "Prius", Year: 2020, FuelType: "Hybrid", Price: 15000, DaysListed: 25, Site: "autotrader", ListingDate: "2026-02-25"},
		{Make: "Toyota", Model: "Prius", Year: 2020, FuelType: "Hybrid", Price: 100},        // below price floor
		{Make: "Toyota", Model: "Prius", Year: 2020, FuelType: "Hybrid", Price: 1_000_000}, // above price ceiling
	}}
	store := &fakeStore{}
	c := newTestCollector(nil, listings, nil, store, 0)

	stored, rejected, err := c.RefreshListings(context.Background(), feeds.Query{})
	require.NoError(t, err)
	assert.Equal(t, 1, stored)
	assert.Equal(t, 2, rejected)
	require.Len(t, store.listings, 1)
	assert.Equal(t, "hybrid", store.listings[0].FuelType)
	assert.Equal(t, 25.0, store.listings[0].DaysListed)
}

func TestRefreshRegistrations(t *testing.T) {
	regs := &fakeRegistrations{records: []feeds.RegistrationRecord{
		{Make: "Toyota", Model: "Prius", Year: 2020, Month: 3, Count: 180, Region: " London "},
		{Make: "Toyota", Model: "Prius", Year: 2020, Month: 13, Count: 50}, // invalid month
		{Make: "Toyota", Model: "Prius", Year: 2020, Month: 4, Count: -1}, // negative count
	}}
	store := &fakeStore{}
	c := newTestCollector(nil, nil, regs, store, 0)

	stored, rejected, err := c.RefreshRegistrations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stored)
	assert.Equal(t, 2, rejected)
	assert.Equal(t, 2026, regs.year, "queries the current year")
	assert.Equal(t, "London", store.registrations[0].Region)
}

func TestRefreshPrunesWithRetention(t *testing.T) {
	auctions := &fakeAuctions{}
	store := &fakeStore{}
	c := newTestCollector(auctions, nil, nil, store, 90*24*time.Hour)

	_, _, err := c.RefreshAuctions(context.Background(), feeds.Query{})
	require.NoError(t, err)
	require.NotNil(t, store.pruned)
	assert.Equal(t, time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC), *store.pruned)
}
