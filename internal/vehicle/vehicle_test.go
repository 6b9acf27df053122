package vehicle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKeyNormalizes(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want Key
	}{
		{
			name: "lowercases",
			key:  NewKey("Toyota", "Prius", 2020, "Hybrid"),
			want: Key{Make: "toyota", Model: "prius", Year: 2020, FuelType: "hybrid"},
		},
		{
			name: "collapses whitespace",
			key:  NewKey("  Land   Rover ", " Range  Rover ", 2018, " Diesel "),
			want: Key{Make: "land rover", Model: "range rover", Year: 2018, FuelType: "diesel"},
		},
		{
			name: "identical inputs yield identical keys",
			key:  NewKey("HONDA", "CIVIC", 2019, "PETROL"),
			want: NewKey("honda", "civic", 2019, "petrol"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.key)
		})
	}
}

func TestKeyString(t *testing.T) {
	key := NewKey("Toyota", "Prius", 2020, "Hybrid")
	assert.Equal(t, "toyota prius 2020 hybrid", key.String())
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
	}{
		{"SUV", CategorySUV},
		{"crossover", CategorySUV},
		{"4x4", CategorySUV},
		{"pickup", CategoryTruck},
		{"Van", CategoryVan},
		{"MPV", CategoryVan},
		{"sedan", CategoryCar},
		{"hatchback", CategoryCar},
		{"", CategoryCar},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCategory(tt.in), "ParseCategory(%q)", tt.in)
	}
}

func TestParseGrade(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"S", 5, false},
		{"a", 4, false},
		{"B", 3.5, false},
		{"C", 3, false},
		{"D", 2, false},
		{"R", 1, false},
		{"RA", 1, false},
		{"4.5", 4.5, false},
		{" 3 ", 3, false},
		{"", 0, true},
		{"excellent", 0, true},
		{"0.5", 0, true},
		{"6", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGrade(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalFuel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Gasoline", "petrol"},
		{"gas", "petrol"},
		{"PETROL", "petrol"},
		{"Diesel", "diesel"},
		{"HEV", "hybrid"},
		{"PHEV", "hybrid"},
		{"Plug-In  Hybrid", "hybrid"},
		{"EV", "electric"},
		{"BEV", "electric"},
		{"hydrogen", "hydrogen"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalFuel(tt.in), "CanonicalFuel(%q)", tt.in)
	}
}
