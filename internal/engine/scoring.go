package engine

import (
	"math"

	"import-scout/internal/intel"
)

// ScoringWeights blends the sub-scores into the overall score. Defaults
// mirror the balance the business settled on: profit and return dominate,
// risk and demand temper them, selling speed nudges.
type ScoringWeights struct {
	ProfitMargin float64 `yaml:"profit_margin"`
	ROI          float64 `yaml:"roi"`
	Risk         float64 `yaml:"risk"`
	Demand       float64 `yaml:"demand"`
	Speed        float64 `yaml:"speed"`
}

// DefaultScoringWeights returns the standard 25/25/20/20/10 split.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{ProfitMargin: 0.25, ROI: 0.25, Risk: 0.20, Demand: 0.20, Speed: 0.10}
}

// Bonuses are the discrete adjustments applied to the blended final score
// per intelligence signal. Configuration defaults, not calibrated truths.
type Bonuses struct {
	ComplianceBonus        float64 `yaml:"compliance_bonus"`
	CompliancePenalty      float64 `yaml:"compliance_penalty"`
	TrendGrowingBonus      float64 `yaml:"trend_growing_bonus"`
	TrendDecliningPenalty  float64 `yaml:"trend_declining_penalty"`
	CompetitionLowBonus    float64 `yaml:"competition_low_bonus"`
	CompetitionHighPenalty float64 `yaml:"competition_high_penalty"`
	VolatilityLowBonus     float64 `yaml:"volatility_low_bonus"`
	VolatilityHighPenalty  float64 `yaml:"volatility_high_penalty"`
	SupplyLowBonus         float64 `yaml:"supply_low_bonus"`
	SupplyHighPenalty      float64 `yaml:"supply_high_penalty"`
}

// DefaultBonuses returns the standard bonus/penalty magnitudes.
func DefaultBonuses() Bonuses {
	return Bonuses{
		ComplianceBonus:        5,
		CompliancePenalty:      3,
		TrendGrowingBonus:      3,
		TrendDecliningPenalty:  5,
		CompetitionLowBonus:    4,
		CompetitionHighPenalty: 3,
		VolatilityLowBonus:     2,
		VolatilityHighPenalty:  4,
		SupplyLowBonus:         3,
		SupplyHighPenalty:      5,
	}
}

// computeProfitMetrics derives the canonical profit figures for a match.
// meanCost and minCost are the landed cost breakdowns for the mean and
// minimum hammer prices. Degenerate inputs return an InputDataError and
// the vehicle is excluded from scoring entirely.
func computeProfitMetrics(mv MatchedVehicle, meanCost, minCost *CostBreakdown) (ProfitMetrics, error) {
	sellPrice := mv.Destination.MeanPrice
	if sellPrice <= 0 {
		return ProfitMetrics{}, &InputDataError{Key: mv.Key, Reason: "non-positive destination price"}
	}
	if meanCost.TotalLandedCost <= 0 || minCost.TotalLandedCost <= 0 {
		return ProfitMetrics{}, &InputDataError{Key: mv.Key, Reason: "non-positive landed cost"}
	}

	grossProfit := sellPrice - meanCost.TotalLandedCost
	daysToSell := math.Max(mv.Destination.MeanDaysOnMarket, 1)
	roi := grossProfit / meanCost.TotalLandedCost * 100

	return ProfitMetrics{
		MeanSellingPrice:     round2(sellPrice),
		MeanLandedCost:       meanCost.TotalLandedCost,
		MinLandedCost:        minCost.TotalLandedCost,
		GrossProfit:          round2(grossProfit),
		ProfitMarginPercent:  round2(grossProfit / sellPrice * 100),
		ROIPercent:           round2(roi),
		BestCaseProfit:       round2(sellPrice - minCost.TotalLandedCost),
		BestCaseROIPercent:   round2((sellPrice - minCost.TotalLandedCost) / minCost.TotalLandedCost * 100),
		AnnualizedROIPercent: round2(roi * 365 / daysToSell),
		DaysToSell:           round1(mv.Destination.MeanDaysOnMarket),
	}, nil
}

// OverallScore combines the sub-scores into a single 0-100 figure.
// Profit margin is scaled so 50% fills the scale; ROI is capped at 100;
// risk enters inverted; speed decays at 2 points per day on market.
func OverallScore(w ScoringWeights, profitMargin, roi, riskScore, demandScore, daysOnMarket float64) float64 {
	profitScore := math.Min(profitMargin*2, 100)
	roiScore := math.Min(roi, 100)
	speedScore := math.Max(0, 100-daysOnMarket*2)

	overall := profitScore*w.ProfitMargin +
		roiScore*w.ROI +
		(100-riskScore)*w.Risk +
		demandScore*w.Demand +
		speedScore*w.Speed
	return round1(clamp(overall))
}

// FeatureVector is the fixed, documented feature set handed to the
// secondary scorer. Encodings map favorable signals to 1, unfavorable to
// 0 and neutral/unknown to 0.5.
type FeatureVector struct {
	ProfitMarginPercent float64
	ROIPercent          float64
	DaysToSell          float64
	SourceSamples       float64
	DestinationSamples  float64
	RiskScore           float64
	DemandScore         float64
	Compliant           bool
	TrendEncoding       float64
	CompetitionEncoding float64
	VolatilityEncoding  float64
	SupplyEncoding      float64
	VehicleAge          float64
}

// FeatureScorer maps a feature vector to a 0-100 score. The default is a
// hand-tuned linear blend; a trained regressor can be substituted behind
// this interface without touching any caller.
type FeatureScorer interface {
	Score(f FeatureVector) float64
}

// LinearScorer is the rule-based default FeatureScorer: a weighted linear
// blend over normalized features.
type LinearScorer struct{}

// Score implements FeatureScorer.
func (LinearScorer) Score(f FeatureVector) float64 {
	compliance := 0.0
	if f.Compliant {
		compliance = 1
	}

	score := math.Min(f.ProfitMarginPercent*2, 100)*0.20 +
		math.Min(f.ROIPercent, 100)*0.20 +
		math.Max(0, 100-f.DaysToSell*2)*0.10 +
		math.Min(math.Log1p(f.SourceSamples)*25, 100)*0.05 +
		math.Min(math.Log1p(f.DestinationSamples)*20, 100)*0.05 +
		(100-f.RiskScore)*0.10 +
		f.DemandScore*0.10 +
		compliance*100*0.05 +
		f.TrendEncoding*100*0.08 +
		f.CompetitionEncoding*100*0.03 +
		math.Max(0, 100-f.VehicleAge*5)*0.02 +
		f.VolatilityEncoding*100*0.01 +
		f.SupplyEncoding*100*0.01

	return clamp(score)
}

// featuresFor assembles the feature vector for one scored vehicle.
func featuresFor(mv MatchedVehicle, p ProfitMetrics, riskScore, demandScore float64, sig intel.Signals, currentYear int) FeatureVector {
	return FeatureVector{
		ProfitMarginPercent: p.ProfitMarginPercent,
		ROIPercent:          p.ROIPercent,
		DaysToSell:          p.DaysToSell,
		SourceSamples:       float64(mv.Source.SampleCount),
		DestinationSamples:  float64(mv.Destination.SampleCount),
		RiskScore:           riskScore,
		DemandScore:         demandScore,
		Compliant:           sig.Compliance.Compliant,
		TrendEncoding:       encodeTrend(sig.Trend.Trend),
		CompetitionEncoding: encodeFavorableLow(sig.Competition.Level),
		VolatilityEncoding:  encodeFavorableLow(sig.Volatility.Level),
		SupplyEncoding:      encodeFavorableLow(sig.Supply.Level),
		VehicleAge:          float64(currentYear - mv.Key.Year),
	}
}

func encodeTrend(trend string) float64 {
	switch trend {
	case intel.TrendGrowing:
		return 1.0
	case intel.TrendDeclining:
		return 0.0
	case intel.TrendInsufficientData:
		return 0.3
	default: // stable, unknown
		return 0.5
	}
}

// encodeFavorableLow encodes tiers where low is the good outcome
// (competition, volatility, supply risk).
func encodeFavorableLow(t intel.Tier) float64 {
	switch t {
	case intel.TierLow:
		return 1.0
	case intel.TierHigh:
		return 0.0
	default: // medium, unknown
		return 0.5
	}
}

// FinalScore blends the overall and secondary scores 60/40 and applies the
// discrete signal bonuses and penalties, clamped to 0-100.
func FinalScore(b Bonuses, overall, mlScore float64, sig intel.Signals) float64 {
	score := overall*0.6 + mlScore*0.4

	if sig.Compliance.Compliant {
		score += b.ComplianceBonus
	} else {
		score -= b.CompliancePenalty
	}

	switch sig.Trend.Trend {
	case intel.TrendGrowing:
		score += b.TrendGrowingBonus
	case intel.TrendDeclining:
		score -= b.TrendDecliningPenalty
	}

	switch sig.Competition.Level {
	case intel.TierLow:
		score += b.CompetitionLowBonus
	case intel.TierHigh:
		score -= b.CompetitionHighPenalty
	}

	switch sig.Volatility.Level {
	case intel.TierLow:
		score += b.VolatilityLowBonus
	case intel.TierHigh:
		score -= b.VolatilityHighPenalty
	}

	switch sig.Supply.Level {
	case intel.TierLow:
		score += b.SupplyLowBonus
	case intel.TierHigh:
		score -= b.SupplyHighPenalty
	}

	return clamp(score)
}

// ConfidenceFor derives the confidence band around the final score from
// sample volume, trend data quality and price volatility.
func ConfidenceFor(mv MatchedVehicle, sig intel.Signals, finalScore float64) Confidence {
	var factors []float64

	switch {
	case mv.Destination.SampleCount >= 10 && mv.Source.SampleCount >= 5:
		factors = append(factors, 0.9)
	case mv.Destination.SampleCount >= 5 && mv.Source.SampleCount >= 3:
		factors = append(factors, 0.7)
	default:
		factors = append(factors, 0.4)
	}

	switch sig.Trend.Confidence {
	case "high":
		factors = append(factors, 0.8)
	case "medium":
		factors = append(factors, 0.6)
	default:
		factors = append(factors, 0.3)
	}

	switch sig.Volatility.Level {
	case intel.TierLow:
		factors = append(factors, 0.8)
	case intel.TierMedium:
		factors = append(factors, 0.6)
	default:
		factors = append(factors, 0.3)
	}

	avg := average(factors)

	level := "Low"
	margin := 15.0
	switch {
	case avg >= 0.75:
		level, margin = "High", 5
	case avg >= 0.55:
		level, margin = "Medium", 10
	}

	return Confidence{
		Level:         level,
		Score:         round1(avg * 100),
		MarginOfError: margin,
		LowerBound:    clamp(finalScore - margin),
		UpperBound:    clamp(finalScore + margin),
	}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
