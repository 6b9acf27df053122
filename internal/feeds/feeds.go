package feeds

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Query narrows a feed pull to one make and optionally one model.
type Query struct {
	Make     string
	Model    string
	YearFrom int
	YearTo   int
}

func (q Query) params() url.Values {
	p := url.Values{}
	if q.Make != "" {
		p.Set("make", q.Make)
	}
	if q.Model != "" {
		p.Set("model", q.Model)
	}
	if q.YearFrom > 0 {
		p.Set("year_from", strconv.Itoa(q.YearFrom))
	}
	if q.YearTo > 0 {
		p.Set("year_to", strconv.Itoa(q.YearTo))
	}
	return p
}

// AuctionRecord is one sold-auction result as the provider reports it.
// Prices are in the source market's currency; ConditionGrade may be a
// letter grade or a numeric string.
type AuctionRecord struct {
	Make           string  `json:"make"`
	Model          string  `json:"model"`
	Year           int     `json:"year"`
	FuelType       string  `json:"fuel_type"`
	Mileage        float64 `json:"mileage"`
	HammerPrice    float64 `json:"hammer_price"`
	ConditionGrade string  `json:"condition_grade"`
	BodyType       string  `json:"body_type"`
	AuctionHouse   string  `json:"auction_house"`
	AuctionDate    string  `json:"auction_date"`
}

// ListingRecord is one retail listing in the destination market.
type ListingRecord struct {
	Make        string  `json:"make"`
	Model       string  `json:"model"`
	Year        int     `json:"year"`
	FuelType    string  `json:"fuel_type"`
	Mileage     float64 `json:"mileage"`
	Price       float64 `json:"price"`
	DaysListed  float64 `json:"days_listed"`
	Site        string  `json:"source"`
	ListingDate string  `json:"listing_date"`
}

// RegistrationRecord is one monthly registration statistic.
type RegistrationRecord struct {
	Make   string `json:"make"`
	Model  string `json:"model"`
	Year   int    `json:"year_of_manufacture"`
	Month  int    `json:"registration_month"`
	Count  int    `json:"count"`
	Region string `json:"region"`
}

// AuctionFeed pulls sold-auction results from the source market provider.
type AuctionFeed struct {
	client  *Client
	baseURL string
}

// NewAuctionFeed wires an auction feed against the given endpoint.
func NewAuctionFeed(client *Client, baseURL string) *AuctionFeed {
	return &AuctionFeed{client: client, baseURL: baseURL}
}

// Results fetches every page of auction results matching the query.
func (f *AuctionFeed) Results(ctx context.Context, q Query) ([]AuctionRecord, error) {
	var all []AuctionRecord
	err := f.client.getPaginated(ctx, func(ctx context.Context, page int) (int, error) {
		var body struct {
			Results []AuctionRecord `json:"results"`
		}
		if err := f.client.GetJSON(ctx, f.baseURL, pageParams(q.params(), page), &body); err != nil {
			return 0, fmt.Errorf("auction feed page %d: %w", page, err)
		}
		all = append(all, body.Results...)
		return len(body.Results), nil
	})
	if err != nil {
		return nil, err
	}
	f.client.log.Info().Int("records", len(all)).Msg("collected auction results")
	return all, nil
}

// ListingFeed pulls retail listings from the destination market provider.
type ListingFeed struct {
	client  *Client
	baseURL string
}

// NewListingFeed wires a listing feed against the given endpoint.
func NewListingFeed(client *Client, baseURL string) *ListingFeed {
	return &ListingFeed{client: client, baseURL: baseURL}
}

// Listings fetches every page of listings matching the query.
func (f *ListingFeed) Listings(ctx context.Context, q Query) ([]ListingRecord, error) {
	var all []ListingRecord
	err := f.client.getPaginated(ctx, func(ctx context.Context, page int) (int, error) {
		var body struct {
			Vehicles []ListingRecord `json:"vehicles"`
		}
		if err := f.client.GetJSON(ctx, f.baseURL, pageParams(q.params(), page), &body); err != nil {
			return 0, fmt.Errorf("listing feed page %d: %w", page, err)
		}
		all = append(all, body.Vehicles...)
		return len(body.Vehicles), nil
	})
	if err != nil {
		return nil, err
	}
	f.client.log.Info().Int("records", len(all)).Msg("collected listings")
	return all, nil
}

// RegistrationFeed pulls registration statistics from the government
// data service.
type RegistrationFeed struct {
	client  *Client
	baseURL string
}

// NewRegistrationFeed wires a registration feed against the given endpoint.
func NewRegistrationFeed(client *Client, baseURL string) *RegistrationFeed {
	return &RegistrationFeed{client: client, baseURL: baseURL}
}

// Registrations fetches the registration series for the given year.
func (f *RegistrationFeed) Registrations(ctx context.Context, year int) ([]RegistrationRecord, error) {
	params := url.Values{}
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}
	var body struct {
		Registrations []RegistrationRecord `json:"registrations"`
	}
	if err := f.client.GetJSON(ctx, f.baseURL, params, &body); err != nil {
		return nil, fmt.Errorf("registration feed: %w", err)
	}
	f.client.log.Info().Int("records", len(body.Registrations)).Msg("collected registrations")
	return body.Registrations, nil
}
