package engine

import (
	"time"

	"import-scout/internal/intel"
	"import-scout/internal/vehicle"
)

// MatchedVehicle joins the source-market and destination-market aggregates
// for one vehicle key. Both sides are guaranteed to meet the configured
// minimum sample counts; the matcher never emits an under-sampled or
// one-sided match.
type MatchedVehicle struct {
	Key         vehicle.Key
	Source      vehicle.SourceAggregate
	Destination vehicle.DestinationAggregate
}

// ProfitMetrics holds the canonical profit derivations for a match.
// Every field is computed exactly once from the matched aggregates and the
// landed cost breakdowns; nothing downstream recomputes them.
type ProfitMetrics struct {
	MeanSellingPrice     float64 `json:"mean_selling_price"`
	MeanLandedCost       float64 `json:"mean_landed_cost"`
	MinLandedCost        float64 `json:"min_landed_cost"`
	GrossProfit          float64 `json:"gross_profit"`
	ProfitMarginPercent  float64 `json:"profit_margin_percent"`
	ROIPercent           float64 `json:"roi_percent"`
	BestCaseProfit       float64 `json:"best_case_profit"`
	BestCaseROIPercent   float64 `json:"best_case_roi_percent"`
	AnnualizedROIPercent float64 `json:"annualized_roi_percent"`
	DaysToSell           float64 `json:"days_to_sell"`
}

// Confidence is the uncertainty band around the final score.
type Confidence struct {
	Level         string  `json:"level"` // High | Medium | Low
	Score         float64 `json:"score"` // 0-100
	MarginOfError float64 `json:"margin_of_error"`
	LowerBound    float64 `json:"lower_bound"`
	UpperBound    float64 `json:"upper_bound"`
}

// TimingAdvice carries the human-readable timing guidance for a vehicle.
type TimingAdvice struct {
	ImportTiming      string `json:"import_timing"`
	SellingSeason     string `json:"selling_season"`
	MarketEntry       string `json:"market_entry"`
	InventoryStrategy string `json:"inventory_strategy"`
}

// ScoredOpportunity is the terminal artifact of one analysis run for one
// vehicle. A run replaces the prior set wholesale; single records are never
// partially updated.
type ScoredOpportunity struct {
	Key   vehicle.Key    `json:"key"`
	Match MatchedVehicle `json:"match"`

	// Costs is the landed cost breakdown for the mean hammer price.
	Costs *CostBreakdown `json:"costs"`

	Profit  ProfitMetrics `json:"profit"`
	Signals intel.Signals `json:"signals"`

	RiskScore    float64 `json:"risk_score"`
	DemandScore  float64 `json:"demand_score"`
	OverallScore float64 `json:"overall_score"`
	MLScore      float64 `json:"ml_score"`
	FinalScore   float64 `json:"final_recommendation_score"`

	Confidence Confidence `json:"confidence"`

	Category     string       `json:"recommendation_category"`
	Priority     string       `json:"priority"`
	ActionItems  []string     `json:"action_items"`
	RiskWarnings []string     `json:"risk_warnings"`
	Timing       TimingAdvice `json:"timing_advice"`

	GeneratedAt time.Time `json:"generated_at"`
}

// Filter narrows an analysis run to one make and optionally one model.
// Empty fields match everything.
type Filter struct {
	Make  string
	Model string
}
