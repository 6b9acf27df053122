// Package intel derives market-intelligence signals for a vehicle key:
// competition, price volatility, auction supply, registration trends,
// seasonal demand patterns and emissions-zone compliance. All signals are
// advisory estimates from coarse rules, not authoritative lookups.
package intel

// Tier is a coarse low/medium/high classification. Unknown means the
// underlying data was missing or a lookup timed out; scoring treats it as
// the neutral middle tier.
type Tier string

const (
	TierLow     Tier = "low"
	TierMedium  Tier = "medium"
	TierHigh    Tier = "high"
	TierUnknown Tier = "unknown"
)

// Trend direction labels for registration statistics.
const (
	TrendGrowing          = "growing"
	TrendStable           = "stable"
	TrendDeclining        = "declining"
	TrendUnknown          = "unknown"
	TrendInsufficientData = "insufficient_data"
)

// RegistrationTrend describes how new registrations for a model are moving.
type RegistrationTrend struct {
	Trend              string  `json:"trend"`
	Confidence         string  `json:"confidence"` // high | medium | low
	DataPoints         int     `json:"data_points"`
	TotalRegistrations int     `json:"total_registrations"`
	MonthlyAverage     float64 `json:"monthly_average"`
}

// Compliance is the advisory emissions-zone compliance estimate.
type Compliance struct {
	Compliant    bool    `json:"compliant"`
	ChargeAmount float64 `json:"charge_amount"`
}

// Competition describes how crowded the destination market segment is.
type Competition struct {
	Level           Tier `json:"level"`
	CompetitorCount int  `json:"competitor_count"`
	TotalListings   int  `json:"total_listings"`
}

// Volatility describes recent destination price dispersion.
type Volatility struct {
	Level      Tier    `json:"level"`
	Ratio      float64 `json:"ratio"`
	DataPoints int     `json:"data_points"`
}

// Supply describes source-market auction availability.
type Supply struct {
	Level        Tier `json:"level"`
	AuctionCount int  `json:"auction_count"`
	VenueCount   int  `json:"venue_count"`
}

// Seasonal pattern labels.
const (
	SeasonWinterPeak = "winter_peak"
	SeasonSpringPeak = "spring_peak"
	SeasonNone       = "none"
)

// Seasonal describes the expected seasonal demand pattern for a make.
type Seasonal struct {
	Pattern    string   `json:"pattern"`
	PeakMonths []string `json:"peak_months,omitempty"`
	LowMonths  []string `json:"low_months,omitempty"`
	Factor     float64  `json:"factor"`
}

// Signals bundles every intelligence signal gathered for one vehicle.
type Signals struct {
	Trend       RegistrationTrend `json:"registration_trend"`
	Compliance  Compliance        `json:"compliance"`
	Competition Competition       `json:"competition"`
	Volatility  Volatility        `json:"volatility"`
	Supply      Supply            `json:"supply"`
	Seasonal    Seasonal          `json:"seasonal"`
}

// Unknown returns the neutral signal set used when lookups fail or time
// out: every tier is unknown and scoring falls back to middle encodings.
func Unknown() Signals {
	return Signals{
		Trend:       RegistrationTrend{Trend: TrendUnknown, Confidence: "low"},
		Compliance:  Compliance{},
		Competition: Competition{Level: TierUnknown},
		Volatility:  Volatility{Level: TierUnknown},
		Supply:      Supply{Level: TierUnknown},
		Seasonal:    Seasonal{Pattern: SeasonNone, Factor: 1.0},
	}
}
