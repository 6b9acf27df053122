// Package vehicle defines the vehicle identity key and the per-market
// aggregate statistics the analysis engine consumes.
package vehicle

import (
	"fmt"
	"strconv"
	"strings"
)

// Category is the coarse body classification used for freight pricing.
type Category string

const (
	CategoryCar   Category = "Car"
	CategorySUV   Category = "SUV"
	CategoryTruck Category = "Truck"
	CategoryVan   Category = "Van"
)

// ParseCategory maps free-form category text to a known Category.
// Anything unrecognized is treated as a standard car.
func ParseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "suv", "4x4", "crossover":
		return CategorySUV
	case "truck", "pickup":
		return CategoryTruck
	case "van", "minivan", "mpv":
		return CategoryVan
	default:
		return CategoryCar
	}
}

// Key uniquely identifies a vehicle variant across all datasets.
// Make, model and fuel type are stored lowercased and trimmed so that
// "Toyota " and "toyota" join to the same key. Construct via NewKey.
type Key struct {
	Make     string
	Model    string
	Year     int
	FuelType string
}

// NewKey builds a normalized Key.
func NewKey(make, model string, year int, fuelType string) Key {
	return Key{
		Make:     normalize(make),
		Model:    normalize(model),
		Year:     year,
		FuelType: normalize(fuelType),
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// String renders the key as "make model year fuel".
func (k Key) String() string {
	return fmt.Sprintf("%s %s %d %s", k.Make, k.Model, k.Year, k.FuelType)
}

// SourceAggregate summarizes auction results for one Key in the source
// market. Prices are hammer prices in the source currency (JPY).
type SourceAggregate struct {
	Key         Key
	SampleCount int
	MeanPrice   float64
	MinPrice    float64
	MaxPrice    float64
	MeanMileage float64
	// MeanGrade is the mean auction condition grade on the 1-5 scale.
	MeanGrade float64
	// VenueCount is the number of distinct auction houses seen.
	VenueCount int
	Category   Category
}

// DestinationAggregate summarizes retail listings for one Key in the
// destination market. Prices are asking prices in GBP.
type DestinationAggregate struct {
	Key              Key
	SampleCount      int
	MeanPrice        float64
	MinPrice         float64
	MaxPrice         float64
	MeanMileage      float64
	MeanDaysOnMarket float64
}

// ParseGrade converts an auction condition grade to the numeric 1-5 scale.
// Accepts numeric grades ("3.5", "4") and the common letter grades used by
// Japanese auction houses (S/A/B/C/D/R).
func ParseGrade(s string) (float64, error) {
	g := strings.ToUpper(strings.TrimSpace(s))
	if g == "" {
		return 0, fmt.Errorf("empty condition grade")
	}
	switch g {
	case "S":
		return 5, nil
	case "A":
		return 4, nil
	case "B":
		return 3.5, nil
	case "C":
		return 3, nil
	case "D":
		return 2, nil
	case "R", "RA":
		return 1, nil
	}
	v, err := strconv.ParseFloat(g, 64)
	if err != nil {
		return 0, fmt.Errorf("unrecognized condition grade %q", s)
	}
	if v < 1 || v > 5 {
		return 0, fmt.Errorf("condition grade %v out of 1-5 range", v)
	}
	return v, nil
}

// CanonicalFuel normalizes fuel type labels from the various feeds.
func CanonicalFuel(s string) string {
	f := normalize(s)
	switch f {
	case "gasoline", "petrol", "gas":
		return "petrol"
	case "diesel":
		return "diesel"
	case "hybrid", "hev", "phev", "plug-in hybrid":
		return "hybrid"
	case "electric", "ev", "bev":
		return "electric"
	default:
		return f
	}
}
