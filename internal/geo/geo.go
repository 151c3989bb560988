// Package geo resolves place names to coordinates and IANA timezones, for
// building subject profiles without hand-entering latitude and longitude.
package geo

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"github.com/Jasperb3/TransitReader/internal/subject"
)

// Resolver wraps the Google Maps geocoding and timezone APIs.
type Resolver struct {
	client *maps.Client
}

// NewResolver creates a resolver. The key needs the Geocoding and Time Zone
// APIs enabled.
func NewResolver(apiKey string) (*Resolver, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("maps api key is required")
	}
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &Resolver{client: client}, nil
}

// Resolve geocodes "place, country" and attaches the local timezone at the
// reference time. The reference matters for places that changed zone rules.
func (r *Resolver) Resolve(ctx context.Context, place, country string, at time.Time) (subject.Location, error) {
	loc := subject.Location{Place: place, Country: country}

	results, err := r.client.Geocode(ctx, &maps.GeocodingRequest{
		Address: fmt.Sprintf("%s, %s", place, country),
	})
	if err != nil {
		return loc, fmt.Errorf("geocode %q: %w", loc.String(), err)
	}
	if len(results) == 0 {
		return loc, fmt.Errorf("geocode %q: no results", loc.String())
	}

	coords := results[0].Geometry.Location
	loc.Latitude = coords.Lat
	loc.Longitude = coords.Lng

	tz, err := r.client.Timezone(ctx, &maps.TimezoneRequest{
		Location:  &maps.LatLng{Lat: coords.Lat, Lng: coords.Lng},
		Timestamp: at,
	})
	if err != nil {
		return loc, fmt.Errorf("timezone for %q: %w", loc.String(), err)
	}
	loc.Timezone = tz.TimeZoneID

	return loc, nil
}
