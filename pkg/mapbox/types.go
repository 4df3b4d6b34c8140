package mapbox

import (
	"strings"

	"github.com/roamvest/scout-api/pkg/geo"
)

// geocodeResponse is the JSON response from the Mapbox Geocoding API.
type geocodeResponse struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID      string    `json:"id"`
	Text    string    `json:"text"`
	Center  []float64 `json:"center"` // [lng, lat]
	Context []struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		ShortCode string `json:"short_code"`
	} `json:"context"`
}

// toPlace flattens a geocoding feature, pulling region and country out of
// the context chain (context ids are prefixed "region." / "country.").
func (f feature) toPlace() Place {
	p := Place{
		ID:   f.ID,
		Name: f.Text,
	}
	if len(f.Center) == 2 {
		p.Center = geo.Point{Lat: f.Center[1], Lng: f.Center[0]}
	}
	for _, c := range f.Context {
		switch {
		case strings.HasPrefix(c.ID, "country."):
			p.CountryName = c.Text
			p.CountryCode = strings.ToUpper(c.ShortCode)
		case strings.HasPrefix(c.ID, "region."):
			p.Region = c.Text
		}
	}
	return p
}

// directionsResponse is the JSON response from the Mapbox Directions API.
type directionsResponse struct {
	Routes []struct {
		Duration float64 `json:"duration"` // seconds
		Distance float64 `json:"distance"` // meters
	} `json:"routes"`
}
