// Package hospitals finds dermatology care near the patient through the
// Google Maps Places API.
package hospitals

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"
)

const (
	DefaultRadius = 5000
	searchKeyword = "dermatology skin"
)

var ErrNotConfigured = errors.New("hospital search is not configured")

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Hospital struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	Rating       float32  `json:"rating"`
	TotalRatings int      `json:"totalRatings"`
	Location     Location `json:"location"`
	OpenNow      *bool    `json:"openNow,omitempty"`
}

type Details struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	Phone        string   `json:"phone,omitempty"`
	Website      string   `json:"website,omitempty"`
	MapsURL      string   `json:"url,omitempty"`
	Rating       float32  `json:"rating"`
	TotalRatings int      `json:"totalRatings"`
	Location     Location `json:"location"`
	OpenNow      *bool    `json:"openNow,omitempty"`
	OpeningHours []string `json:"openingHours,omitempty"`
}

type Finder interface {
	Nearby(ctx context.Context, at Location, radius uint) ([]Hospital, error)
	Details(ctx context.Context, placeID string) (*Details, error)
}

// placesAPI is the subset of *maps.Client the finder uses.
type placesAPI interface {
	NearbySearch(ctx context.Context, r *maps.NearbySearchRequest) (maps.PlacesSearchResponse, error)
	PlaceDetails(ctx context.Context, r *maps.PlaceDetailsRequest) (maps.PlaceDetailsResult, error)
}

type PlacesFinder struct {
	api placesAPI
}

func NewPlacesFinder(apiKey string) (*PlacesFinder, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &PlacesFinder{api: c}, nil
}

func (f *PlacesFinder) Nearby(ctx context.Context, at Location, radius uint) ([]Hospital, error) {
	if radius == 0 {
		radius = DefaultRadius
	}
	resp, err := f.api.NearbySearch(ctx, &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: at.Lat, Lng: at.Lng},
		Radius:   radius,
		Type:     maps.PlaceTypeHospital,
		Keyword:  searchKeyword,
	})
	if err != nil {
		return nil, fmt.Errorf("nearby search: %w", err)
	}

	out := make([]Hospital, 0, len(resp.Results))
	for _, r := range resp.Results {
		h := Hospital{
			ID:           r.PlaceID,
			Name:         r.Name,
			Address:      r.Vicinity,
			Rating:       r.Rating,
			TotalRatings: r.UserRatingsTotal,
			Location:     Location{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
		}
		if r.OpeningHours != nil {
			h.OpenNow = r.OpeningHours.OpenNow
		}
		out = append(out, h)
	}
	return out, nil
}

func (f *PlacesFinder) Details(ctx context.Context, placeID string) (*Details, error) {
	r, err := f.api.PlaceDetails(ctx, &maps.PlaceDetailsRequest{PlaceID: placeID})
	if err != nil {
		return nil, fmt.Errorf("place details: %w", err)
	}

	d := &Details{
		ID:           r.PlaceID,
		Name:         r.Name,
		Address:      r.FormattedAddress,
		Phone:        r.FormattedPhoneNumber,
		Website:      r.Website,
		MapsURL:      r.URL,
		Rating:       r.Rating,
		TotalRatings: r.UserRatingsTotal,
		Location:     Location{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
	}
	if r.OpeningHours != nil {
		d.OpenNow = r.OpeningHours.OpenNow
		d.OpeningHours = r.OpeningHours.WeekdayText
	}
	return d, nil
}
