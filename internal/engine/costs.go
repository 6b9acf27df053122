package engine

import (
	"math"

	"import-scout/internal/vehicle"
)

// CostModel holds every constant of the landed-cost calculation. Source
// amounts are in JPY, destination amounts in GBP. The values are tunable
// configuration defaults, not invariants.
type CostModel struct {
	// Source-side fees on the hammer price.
	AuctionFeePercent        float64 `yaml:"auction_fee_percent"`
	TransportToPortJPY       float64 `yaml:"transport_to_port_jpy"`
	ExportCertificateJPY     float64 `yaml:"export_certificate_jpy"`
	InspectionCertificateJPY float64 `yaml:"inspection_certificate_jpy"`

	// Ocean freight to the destination, by vehicle category.
	BaseFreightGBP    float64 `yaml:"base_freight_gbp"`
	SUVSurchargeGBP   float64 `yaml:"suv_surcharge_gbp"`
	TruckSurchargeGBP float64 `yaml:"truck_surcharge_gbp"`
	VanSurchargeGBP   float64 `yaml:"van_surcharge_gbp"`

	// Destination taxes. Consumption tax applies to the CIF value.
	ImportDutyPercent     float64 `yaml:"import_duty_percent"`
	ConsumptionTaxPercent float64 `yaml:"consumption_tax_percent"`

	// Fixed destination-side costs.
	PortHandlingGBP         float64 `yaml:"port_handling_gbp"`
	TransportFromPortGBP    float64 `yaml:"transport_from_port_gbp"`
	ComplianceInspectionGBP float64 `yaml:"compliance_inspection_gbp"`
	RegistrationFeeGBP      float64 `yaml:"registration_fee_gbp"`

	// Regulatory conversion work.
	SpeedometerGBP         float64 `yaml:"speedometer_gbp"`
	FogLightsGBP           float64 `yaml:"fog_lights_gbp"`
	MirrorsGBP             float64 `yaml:"mirrors_gbp"`
	HeadlightsGBP          float64 `yaml:"headlights_gbp"`
	ModernSurchargeGBP     float64 `yaml:"modern_surcharge_gbp"`
	// ModernAgeYears: vehicles registered within this many years face
	// stricter compliance requirements and pay the modern surcharge.
	ModernAgeYears int `yaml:"modern_age_years"`
}

// DefaultCostModel returns the standard Japan-to-UK cost constants.
func DefaultCostModel() CostModel {
	return CostModel{
		AuctionFeePercent:        8.0,
		TransportToPortJPY:       25000,
		ExportCertificateJPY:     5000,
		InspectionCertificateJPY: 3000,
		BaseFreightGBP:           800,
		SUVSurchargeGBP:          200,
		TruckSurchargeGBP:        400,
		VanSurchargeGBP:          300,
		ImportDutyPercent:        0.0,
		ConsumptionTaxPercent:    20.0,
		PortHandlingGBP:          150,
		TransportFromPortGBP:     200,
		ComplianceInspectionGBP:  250,
		RegistrationFeeGBP:       55,
		SpeedometerGBP:           150,
		FogLightsGBP:             100,
		MirrorsGBP:               50,
		HeadlightsGBP:            75,
		ModernSurchargeGBP:       200,
		ModernAgeYears:           9,
	}
}

// CostBreakdown is the full audit trail of one landed-cost computation.
// It is immutable once computed: a new price or rate means a fresh call,
// never a mutation. Only TotalLandedCost is rounded; intermediates keep
// full float precision.
type CostBreakdown struct {
	// Source currency (JPY).
	HammerPrice           float64 `json:"hammer_price"`
	AuctionFees           float64 `json:"auction_fees"`
	TransportToPort       float64 `json:"transport_to_port"`
	ExportCertificate     float64 `json:"export_certificate"`
	InspectionCertificate float64 `json:"inspection_certificate"`
	SourceSubtotal        float64 `json:"source_subtotal"`

	// ExchangeRate is GBP per JPY as used for this computation.
	ExchangeRate      float64 `json:"exchange_rate"`
	ConvertedSubtotal float64 `json:"converted_subtotal"`

	// Destination currency (GBP).
	Freight              float64 `json:"freight"`
	CIFValue             float64 `json:"cif_value"`
	ImportDuty           float64 `json:"import_duty"`
	ConsumptionTax       float64 `json:"consumption_tax"`
	PortHandling         float64 `json:"port_handling"`
	TransportFromPort    float64 `json:"transport_from_port"`
	ComplianceInspection float64 `json:"compliance_inspection"`
	RegistrationFee      float64 `json:"registration_fee"`
	ConversionCosts      float64 `json:"conversion_costs"`

	TotalLandedCost float64 `json:"total_landed_cost"`
}

// Compute derives the fully loaded destination-market cost for a vehicle
// bought at sourcePrice. exchangeRate is GBP per JPY; a missing or
// non-positive rate fails with ErrMissingExchangeRate rather than being
// silently defaulted.
func (m CostModel) Compute(sourcePrice float64, category vehicle.Category, ageYears int, exchangeRate float64) (*CostBreakdown, error) {
	if exchangeRate <= 0 {
		return nil, ErrMissingExchangeRate
	}
	if sourcePrice <= 0 {
		return nil, &InputDataError{Reason: "non-positive source price"}
	}

	b := &CostBreakdown{
		HammerPrice:           sourcePrice,
		AuctionFees:           sourcePrice * m.AuctionFeePercent / 100,
		TransportToPort:       m.TransportToPortJPY,
		ExportCertificate:     m.ExportCertificateJPY,
		InspectionCertificate: m.InspectionCertificateJPY,
		ExchangeRate:          exchangeRate,
	}
	b.SourceSubtotal = b.HammerPrice + b.AuctionFees + b.TransportToPort +
		b.ExportCertificate + b.InspectionCertificate
	b.ConvertedSubtotal = b.SourceSubtotal * exchangeRate

	b.Freight = m.freightFor(category)
	b.CIFValue = b.ConvertedSubtotal + b.Freight
	b.ImportDuty = b.CIFValue * m.ImportDutyPercent / 100
	b.ConsumptionTax = b.CIFValue * m.ConsumptionTaxPercent / 100

	b.PortHandling = m.PortHandlingGBP
	b.TransportFromPort = m.TransportFromPortGBP
	b.ComplianceInspection = m.ComplianceInspectionGBP
	b.RegistrationFee = m.RegistrationFeeGBP
	b.ConversionCosts = m.conversionCosts(ageYears)

	b.TotalLandedCost = round2(b.ConvertedSubtotal + b.Freight + b.ImportDuty +
		b.ConsumptionTax + b.PortHandling + b.TransportFromPort +
		b.ComplianceInspection + b.RegistrationFee + b.ConversionCosts)

	return b, nil
}

func (m CostModel) freightFor(category vehicle.Category) float64 {
	cost := m.BaseFreightGBP
	switch category {
	case vehicle.CategorySUV:
		cost += m.SUVSurchargeGBP
	case vehicle.CategoryTruck:
		cost += m.TruckSurchargeGBP
	case vehicle.CategoryVan:
		cost += m.VanSurchargeGBP
	}
	return cost
}

// conversionCosts sums the fixed right-hand-drive-market conversion items.
// Newer vehicles face stricter compliance requirements and pay an extra
// surcharge.
func (m CostModel) conversionCosts(ageYears int) float64 {
	costs := m.SpeedometerGBP + m.FogLightsGBP + m.MirrorsGBP + m.HeadlightsGBP
	if ageYears < m.ModernAgeYears {
		costs += m.ModernSurchargeGBP
	}
	return costs
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
