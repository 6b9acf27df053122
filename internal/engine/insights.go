package engine

import (
	"sort"

	"import-scout/internal/intel"
)

// Insight generation: deterministic rules that turn a scored vehicle into
// triage labels and human-readable guidance. Messages are fixed strings,
// deduplicated and sorted so evaluation order never affects output.

// Recommendation maps a final score to its category and priority labels.
func Recommendation(finalScore float64) (category, priority string) {
	switch {
	case finalScore >= 80:
		return "Highly Recommended", "High"
	case finalScore >= 70:
		return "Recommended", "High"
	case finalScore >= 60:
		return "Consider", "Medium"
	case finalScore >= 50:
		return "Caution", "Low"
	default:
		return "Not Recommended", "None"
	}
}

// ActionItems lists the concrete next steps the numbers support. The list
// may be empty.
func ActionItems(p ProfitMetrics, sig intel.Signals) []string {
	var actions []string

	if p.ProfitMarginPercent > 25 {
		actions = append(actions, "Prioritize this vehicle - exceptional profit potential identified")
	}
	if p.DaysToSell < 15 {
		actions = append(actions, "Fast-moving vehicle - consider immediate action to secure inventory")
	}
	if sig.Competition.Level == intel.TierLow {
		actions = append(actions, "Low competition detected - opportunity for market leadership")
	}
	if sig.Compliance.Compliant {
		actions = append(actions, "Emissions-zone compliant - market this as a key selling point")
	}
	switch sig.Seasonal.Pattern {
	case intel.SeasonWinterPeak:
		actions = append(actions, "Consider timing imports for October-December peak season")
	case intel.SeasonSpringPeak:
		actions = append(actions, "Plan imports for February-April optimal selling period")
	}
	if sig.Supply.Level == intel.TierLow {
		actions = append(actions, "Stable supply chain - consider volume purchasing strategy")
	}

	return dedupe(actions)
}

// RiskWarnings lists the caution flags the numbers raise. The list may be
// empty.
func RiskWarnings(p ProfitMetrics, riskScore float64, sig intel.Signals) []string {
	var warnings []string

	if sig.Volatility.Level == intel.TierHigh {
		warnings = append(warnings, "High price volatility detected - monitor market closely")
	}
	if sig.Supply.Level == intel.TierHigh {
		warnings = append(warnings, "Limited auction supply - secure inventory quickly when available")
	}
	if sig.Competition.Level == intel.TierHigh {
		warnings = append(warnings, "High competition - ensure competitive pricing strategy")
	}
	if sig.Trend.Trend == intel.TrendDeclining {
		warnings = append(warnings, "Declining registration trend - monitor demand carefully")
	}
	if riskScore > 70 {
		warnings = append(warnings, "High overall risk score - consider additional due diligence")
	}
	if p.DaysToSell > 60 {
		warnings = append(warnings, "Slow-selling vehicle - ensure adequate cash flow planning")
	}

	return dedupe(warnings)
}

// Timing derives import/selling/entry/inventory timing advice from the
// seasonal, competition and supply signals.
func Timing(sig intel.Signals) TimingAdvice {
	advice := TimingAdvice{
		ImportTiming:  "Year-round importing suitable",
		SellingSeason: "No strong seasonal pattern identified",
	}
	switch sig.Seasonal.Pattern {
	case intel.SeasonWinterPeak:
		advice.ImportTiming = "Import in September-October for winter sales"
		advice.SellingSeason = "November-January peak selling period"
	case intel.SeasonSpringPeak:
		advice.ImportTiming = "Import in January-February for spring sales"
		advice.SellingSeason = "March-May optimal selling period"
	}

	switch sig.Competition.Level {
	case intel.TierLow:
		advice.MarketEntry = "Enter immediately - low competition window"
	case intel.TierHigh:
		advice.MarketEntry = "Wait for market opportunity or ensure differentiation"
	default:
		advice.MarketEntry = "Standard market entry timing acceptable"
	}

	switch sig.Supply.Level {
	case intel.TierHigh:
		advice.InventoryStrategy = "Secure inventory immediately when available"
	case intel.TierLow:
		advice.InventoryStrategy = "Flexible timing - adequate supply available"
	default:
		advice.InventoryStrategy = "Monitor supply levels - moderate availability"
	}

	return advice
}

// dedupe removes duplicates and sorts so output is order-independent.
func dedupe(msgs []string) []string {
	if len(msgs) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(msgs))
	out := msgs[:0]
	for _, m := range msgs {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
