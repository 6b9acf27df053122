package engine

// Risk and demand sub-scores. Both are equal-weight averages of named
// factors rather than sums, so adding a factor later does not require
// rebalancing the others. Both functions are pure and deterministic for
// identical inputs; the current year is an explicit parameter so fixtures
// stay reproducible.

// RiskScore rates a match 0-100, higher meaning more risk. Factors:
// destination price volatility, destination liquidity, vehicle age and
// auction condition grade.
func RiskScore(mv MatchedVehicle, currentYear int) float64 {
	var factors []float64

	// Price volatility: destination spread relative to mean, capped at 50.
	volatility := 50.0
	if mv.Destination.MeanPrice > 0 {
		volatility = (mv.Destination.MaxPrice - mv.Destination.MinPrice) / mv.Destination.MeanPrice * 100
		if volatility > 50 {
			volatility = 50
		}
	}
	factors = append(factors, volatility)

	// Liquidity: thin destination markets are harder to exit.
	switch count := mv.Destination.SampleCount; {
	case count < 5:
		factors = append(factors, 40)
	case count < 10:
		factors = append(factors, 25)
	case count < 20:
		factors = append(factors, 15)
	default:
		factors = append(factors, 5)
	}

	// Age: older vehicles carry more mechanical and resale risk.
	switch age := currentYear - mv.Key.Year; {
	case age > 15:
		factors = append(factors, 30)
	case age > 10:
		factors = append(factors, 20)
	case age > 5:
		factors = append(factors, 10)
	default:
		factors = append(factors, 5)
	}

	// Condition: low auction grades mean refurbishment surprises.
	switch grade := mv.Source.MeanGrade; {
	case grade < 3.0:
		factors = append(factors, 25)
	case grade < 3.5:
		factors = append(factors, 15)
	case grade < 4.0:
		factors = append(factors, 10)
	default:
		factors = append(factors, 5)
	}

	return round1(average(factors))
}

// DemandScore rates buyer appetite 0-100, higher meaning stronger demand.
// Factors: destination listing volume, speed of sale and fuel-type
// popularity.
func DemandScore(mv MatchedVehicle) float64 {
	var factors []float64

	switch count := mv.Destination.SampleCount; {
	case count > 50:
		factors = append(factors, 90)
	case count > 30:
		factors = append(factors, 80)
	case count > 20:
		factors = append(factors, 70)
	case count > 10:
		factors = append(factors, 60)
	default:
		factors = append(factors, 40)
	}

	// Days on market, inverse relationship.
	switch days := mv.Destination.MeanDaysOnMarket; {
	case days < 14:
		factors = append(factors, 90)
	case days < 30:
		factors = append(factors, 75)
	case days < 60:
		factors = append(factors, 60)
	case days < 90:
		factors = append(factors, 45)
	default:
		factors = append(factors, 30)
	}

	switch mv.Key.FuelType {
	case "hybrid", "electric":
		factors = append(factors, 85)
	case "petrol":
		factors = append(factors, 70)
	case "diesel":
		factors = append(factors, 60)
	default:
		factors = append(factors, 50)
	}

	return round1(average(factors))
}

func average(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}
