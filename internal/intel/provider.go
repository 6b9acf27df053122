package intel

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"import-scout/internal/vehicle"
)

// Provider answers intelligence lookups for a vehicle key. Implementations
// must be safe for concurrent use; the analyzer fans lookups out across all
// matched vehicles. Any method may return an error, which the caller maps
// to the unknown tier rather than failing the vehicle.
type Provider interface {
	Competition(ctx context.Context, key vehicle.Key) (Competition, error)
	Volatility(ctx context.Context, key vehicle.Key) (Volatility, error)
	SupplyRisk(ctx context.Context, key vehicle.Key) (Supply, error)
	RegistrationTrend(ctx context.Context, key vehicle.Key) (RegistrationTrend, error)
	SeasonalPattern(ctx context.Context, key vehicle.Key) (Seasonal, error)
	Compliance(ctx context.Context, key vehicle.Key) (Compliance, error)
}

// Store is the data access the SQL-backed provider needs. Implemented by
// the db package over the raw listing and registration tables.
type Store interface {
	// CompetitionStats counts rival models listed with the same year and
	// fuel type in the destination market.
	CompetitionStats(ctx context.Context, key vehicle.Key) (competitorModels, totalListings int, err error)
	// PriceSpread returns mean/min/max destination price and the number of
	// price points over the recent window.
	PriceSpread(ctx context.Context, key vehicle.Key) (mean, min, max float64, points int, err error)
	// SupplyStats returns recent source auction count and distinct venues.
	SupplyStats(ctx context.Context, key vehicle.Key) (auctions, venues int, err error)
	// RegistrationSeries returns month -> registration count for the model.
	RegistrationSeries(ctx context.Context, key vehicle.Key) (map[int]int, error)
}

// SQLProvider derives every signal from the collected raw data.
type SQLProvider struct {
	store Store
	log   zerolog.Logger
}

// NewSQLProvider builds a Provider over the given store.
func NewSQLProvider(store Store, log zerolog.Logger) *SQLProvider {
	return &SQLProvider{store: store, log: log.With().Str("component", "intel").Logger()}
}

// Competition classifies the destination segment: fewer than 5 rival
// models is a low-competition niche, 15 or more is crowded.
func (p *SQLProvider) Competition(ctx context.Context, key vehicle.Key) (Competition, error) {
	models, listings, err := p.store.CompetitionStats(ctx, key)
	if err != nil {
		return Competition{Level: TierUnknown}, err
	}
	level := TierMedium
	switch {
	case models < 5:
		level = TierLow
	case models >= 15:
		level = TierHigh
	}
	return Competition{Level: level, CompetitorCount: models, TotalListings: listings}, nil
}

// Volatility classifies the destination price spread over the recent
// window: (max-min)/mean below 0.15 is calm, above 0.30 is volatile.
// Fewer than 6 price points yields unknown.
func (p *SQLProvider) Volatility(ctx context.Context, key vehicle.Key) (Volatility, error) {
	mean, min, max, points, err := p.store.PriceSpread(ctx, key)
	if err != nil {
		return Volatility{Level: TierUnknown}, err
	}
	if points <= 5 || mean <= 0 {
		return Volatility{Level: TierUnknown, DataPoints: points}, nil
	}
	ratio := (max - min) / mean
	level := TierMedium
	switch {
	case ratio < 0.15:
		level = TierLow
	case ratio >= 0.30:
		level = TierHigh
	}
	return Volatility{Level: level, Ratio: ratio, DataPoints: points}, nil
}

// SupplyRisk classifies how hard sourcing this vehicle will be. Plenty of
// recent auctions across several houses means low risk.
func (p *SQLProvider) SupplyRisk(ctx context.Context, key vehicle.Key) (Supply, error) {
	auctions, venues, err := p.store.SupplyStats(ctx, key)
	if err != nil {
		return Supply{Level: TierUnknown}, err
	}
	level := TierHigh
	switch {
	case auctions >= 15 && venues >= 3:
		level = TierLow
	case auctions >= 8 && venues >= 2:
		level = TierMedium
	}
	return Supply{Level: level, AuctionCount: auctions, VenueCount: venues}, nil
}

// RegistrationTrend fits a crude slope over monthly registration counts.
func (p *SQLProvider) RegistrationTrend(ctx context.Context, key vehicle.Key) (RegistrationTrend, error) {
	series, err := p.store.RegistrationSeries(ctx, key)
	if err != nil {
		return RegistrationTrend{Trend: TrendUnknown, Confidence: "low"}, err
	}
	if len(series) == 0 {
		return RegistrationTrend{Trend: TrendUnknown, Confidence: "low"}, nil
	}
	if len(series) < 3 {
		return RegistrationTrend{Trend: TrendInsufficientData, Confidence: "low", DataPoints: len(series)}, nil
	}

	months := make([]int, 0, len(series))
	for m := range series {
		months = append(months, m)
	}
	sort.Ints(months)

	total := 0
	for _, m := range months {
		total += series[m]
	}
	slope := float64(series[months[len(months)-1]]-series[months[0]]) / float64(len(months))

	trend := TrendStable
	switch {
	case slope > 10:
		trend = TrendGrowing
	case slope < -10:
		trend = TrendDeclining
	}
	confidence := "medium"
	if len(months) > 6 {
		confidence = "high"
	}
	return RegistrationTrend{
		Trend:              trend,
		Confidence:         confidence,
		DataPoints:         len(months),
		TotalRegistrations: total,
		MonthlyAverage:     float64(total) / float64(len(months)),
	}, nil
}

// SeasonalPattern applies brand-level seasonality heuristics: premium
// brands peak in winter, volume brands in spring.
func (p *SQLProvider) SeasonalPattern(_ context.Context, key vehicle.Key) (Seasonal, error) {
	switch {
	case isLuxuryBrand(key.Make):
		return Seasonal{
			Pattern:    SeasonWinterPeak,
			PeakMonths: []string{"November", "December", "January"},
			LowMonths:  []string{"July", "August"},
			Factor:     1.15,
		}, nil
	case isEconomyBrand(key.Make):
		return Seasonal{
			Pattern:    SeasonSpringPeak,
			PeakMonths: []string{"March", "April", "May"},
			LowMonths:  []string{"December", "January"},
			Factor:     1.05,
		}, nil
	}
	return Seasonal{Pattern: SeasonNone, Factor: 1.0}, nil
}

// Compliance estimates low-emission-zone compliance from registration year
// and fuel type. Electrified vehicles are always treated as compliant;
// otherwise 2016+ registrations (and 2006+ petrol, roughly Euro 4) pass.
// The default daily charge applies to non-compliant vehicles.
func (p *SQLProvider) Compliance(_ context.Context, key vehicle.Key) (Compliance, error) {
	const dailyCharge = 12.50

	if key.FuelType == "electric" || key.FuelType == "hybrid" {
		return Compliance{Compliant: true}, nil
	}
	if key.Year >= 2016 {
		return Compliance{Compliant: true}, nil
	}
	if key.Year >= 2006 && key.FuelType == "petrol" {
		return Compliance{Compliant: true}, nil
	}
	return Compliance{Compliant: false, ChargeAmount: dailyCharge}, nil
}

var luxuryBrands = map[string]bool{
	"bmw": true, "mercedes": true, "mercedes-benz": true,
	"audi": true, "lexus": true, "porsche": true,
}

var economyBrands = map[string]bool{
	"toyota": true, "honda": true, "nissan": true,
	"ford": true, "vauxhall": true, "mazda": true, "suzuki": true,
}

func isLuxuryBrand(make string) bool {
	return luxuryBrands[strings.ToLower(make)]
}

func isEconomyBrand(make string) bool {
	return economyBrands[strings.ToLower(make)]
}
