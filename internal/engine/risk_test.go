package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"import-scout/internal/vehicle"
)

func matchedFixture() MatchedVehicle {
	key := vehicle.NewKey("Toyota", "Prius", 2023, "Hybrid")
	return MatchedVehicle{
		Key: key,
		Source: vehicle.SourceAggregate{
			Key:         key,
			SampleCount: 10,
			MeanPrice:   2500000,
			MinPrice:    2000000,
			MaxPrice:    3000000,
			MeanGrade:   4.5,
			VenueCount:  3,
			Category:    vehicle.CategoryCar,
		},
		Destination: vehicle.DestinationAggregate{
			Key:              key,
			SampleCount:      25,
			MeanPrice:        10000,
			MinPrice:         9000,
			MaxPrice:         11000,
			MeanDaysOnMarket: 10,
		},
	}
}

func TestRiskScoreFactorAverage(t *testing.T) {
	mv := matchedFixture()

	// volatility (11000-9000)/10000*100 = 20, liquidity 25 samples -> 5
	// (>=20 tier is 5... the 20..25 bucket), age 3 -> 5, grade 4.5 -> 5.
	// Buckets: 25 samples is >= 20 -> 5. Average (20+5+5+5)/4 = 8.75 -> 8.8.
	got := RiskScore(mv, 2026)
	assert.InDelta(t, 8.8, got, 1e-9)
}

func TestRiskScoreVolatilityCap(t *testing.T) {
	mv := matchedFixture()
	mv.Destination.MinPrice = 1000
	mv.Destination.MaxPrice = 30000 // spread 290% of mean, capped at 50

	got := RiskScore(mv, 2026)
	// (50 + 5 + 5 + 5) / 4 = 16.25 -> 16.3
	assert.InDelta(t, 16.3, got, 1e-9)
}

func TestRiskScoreTiers(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*MatchedVehicle)
		currentYear int
		want        float64
	}{
		{
			name:        "thin market old rough vehicle",
			currentYear: 2026,
			mutate: func(mv *MatchedVehicle) {
				mv.Destination.SampleCount = 3 // liquidity 40
				mv.Key.Year = 2008             // age 18 -> 30
				mv.Source.MeanGrade = 2.5      // condition 25
			},
			// (20 + 40 + 30 + 25) / 4 = 28.75 -> 28.8
			want: 28.8,
		},
		{
			name:        "mid tiers",
			currentYear: 2026,
			mutate: func(mv *MatchedVehicle) {
				mv.Destination.SampleCount = 7 // 25
				mv.Key.Year = 2014             // age 12 -> 20
				mv.Source.MeanGrade = 3.7      // 10
			},
			// (20 + 25 + 20 + 10) / 4 = 18.75 -> 18.8
			want: 18.8,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mv := matchedFixture()
			tt.mutate(&mv)
			assert.InDelta(t, tt.want, RiskScore(mv, tt.currentYear), 1e-9)
		})
	}
}

func TestDemandScoreFactorAverage(t *testing.T) {
	mv := matchedFixture()

	// 25 listings -> 70, 10 days -> 90, hybrid -> 85. Avg 81.67 -> 81.7.
	assert.InDelta(t, 81.7, DemandScore(mv), 1e-9)
}

func TestDemandScoreFuelPopularity(t *testing.T) {
	tests := []struct {
		fuel string
		want float64 // fuel factor only
	}{
		{"hybrid", 85},
		{"electric", 85},
		{"petrol", 70},
		{"diesel", 60},
		{"lpg", 50},
	}
	for _, tt := range tests {
		t.Run(tt.fuel, func(t *testing.T) {
			mv := matchedFixture()
			mv.Key = vehicle.NewKey("Toyota", "Prius", 2023, tt.fuel)
			// Listings factor 70 and days factor 90 are constant here.
			want := round1((70 + 90 + tt.want) / 3)
			assert.InDelta(t, want, DemandScore(mv), 1e-9)
		})
	}
}

func TestScoresDeterministic(t *testing.T) {
	mv := matchedFixture()
	assert.Equal(t, RiskScore(mv, 2026), RiskScore(mv, 2026))
	assert.Equal(t, DemandScore(mv), DemandScore(mv))
}

func TestScoresWithinRange(t *testing.T) {
	mv := matchedFixture()
	for year := 1990; year <= 2026; year++ {
		mv.Key.Year = year
		risk := RiskScore(mv, 2026)
		demand := DemandScore(mv)
		assert.GreaterOrEqual(t, risk, 0.0)
		assert.LessOrEqual(t, risk, 100.0)
		assert.GreaterOrEqual(t, demand, 0.0)
		assert.LessOrEqual(t, demand, 100.0)
	}
}
