package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"import-scout/internal/vehicle"
)

// Regression fixture for the full landed-cost path: 2.5M JPY SUV, 3 years
// old, at 0.0055 GBP/JPY.
//
//	source subtotal: 2,500,000 + 200,000 + 25,000 + 5,000 + 3,000 = 2,733,000 JPY
//	converted:       2,733,000 x 0.0055 = 15,031.50
//	freight:         800 + 200 (SUV)    =  1,000.00
//	CIF:                                  16,031.50
//	tax:             20% of CIF         =  3,206.30
//	fixed:           150+200+250+55     =    655.00
//	conversion:      375 + 200 (modern) =    575.00
//	total:                                20,467.80
func TestComputeLandedCostRegression(t *testing.T) {
	m := DefaultCostModel()

	b, err := m.Compute(2500000, vehicle.CategorySUV, 3, 0.0055)
	require.NoError(t, err)

	assert.InDelta(t, 200000, b.AuctionFees, 1e-9)
	assert.InDelta(t, 2733000, b.SourceSubtotal, 1e-9)
	assert.InDelta(t, 15031.50, b.ConvertedSubtotal, 1e-6)
	assert.InDelta(t, 1000, b.Freight, 1e-9)
	assert.InDelta(t, 16031.50, b.CIFValue, 1e-6)
	assert.InDelta(t, 3206.30, b.ConsumptionTax, 1e-6)
	assert.InDelta(t, 0, b.ImportDuty, 1e-9)
	assert.InDelta(t, 575, b.ConversionCosts, 1e-9)
	assert.InDelta(t, 20467.80, b.TotalLandedCost, 1e-6)
	assert.InDelta(t, 0.0055, b.ExchangeRate, 1e-12)
}

func TestComputeMissingExchangeRate(t *testing.T) {
	m := DefaultCostModel()

	_, err := m.Compute(2500000, vehicle.CategoryCar, 5, 0)
	require.ErrorIs(t, err, ErrMissingExchangeRate)

	_, err = m.Compute(2500000, vehicle.CategoryCar, 5, -0.005)
	require.ErrorIs(t, err, ErrMissingExchangeRate)
}

func TestComputeRejectsNonPositivePrice(t *testing.T) {
	m := DefaultCostModel()

	for _, price := range []float64{0, -100} {
		_, err := m.Compute(price, vehicle.CategoryCar, 5, 0.0055)
		var bad *InputDataError
		require.ErrorAs(t, err, &bad)
	}
}

func TestFreightSurchargeByCategory(t *testing.T) {
	m := DefaultCostModel()

	tests := []struct {
		category vehicle.Category
		want     float64
	}{
		{vehicle.CategoryCar, 800},
		{vehicle.CategorySUV, 1000},
		{vehicle.CategoryTruck, 1200},
		{vehicle.CategoryVan, 1100},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			b, err := m.Compute(1000000, tt.category, 10, 0.0055)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, b.Freight, 1e-9)
		})
	}
}

func TestModernComplianceSurcharge(t *testing.T) {
	m := DefaultCostModel()

	// Vehicles newer than the 9-year threshold pay the extra surcharge.
	newer, err := m.Compute(1000000, vehicle.CategoryCar, 8, 0.0055)
	require.NoError(t, err)
	assert.InDelta(t, 575, newer.ConversionCosts, 1e-9)

	older, err := m.Compute(1000000, vehicle.CategoryCar, 9, 0.0055)
	require.NoError(t, err)
	assert.InDelta(t, 375, older.ConversionCosts, 1e-9)
}

func TestComputeRoundsOnlyTotal(t *testing.T) {
	m := DefaultCostModel()

	// A price chosen so intermediates carry sub-penny precision.
	b, err := m.Compute(1234567, vehicle.CategoryCar, 12, 0.005432)
	require.NoError(t, err)

	// Total is rounded to 2 decimals.
	assert.InDelta(t, b.TotalLandedCost, float64(int(b.TotalLandedCost*100+0.5))/100, 1e-9)

	// Breakdown still reconciles with the unrounded sum to the penny.
	sum := b.ConvertedSubtotal + b.Freight + b.ImportDuty + b.ConsumptionTax +
		b.PortHandling + b.TransportFromPort + b.ComplianceInspection +
		b.RegistrationFee + b.ConversionCosts
	assert.InDelta(t, sum, b.TotalLandedCost, 0.005)
}
