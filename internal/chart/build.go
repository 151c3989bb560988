package chart

import (
	"fmt"
	"time"

	"github.com/Jasperb3/TransitReader/internal/ephemeris"
)

// Builder computes charts from an opened ephemeris.
type Builder struct {
	eph  *ephemeris.Ephemeris
	orbs map[AspectKind]float64
}

// NewBuilder wraps an ephemeris with the default orb table.
func NewBuilder(eph *ephemeris.Ephemeris) *Builder {
	return &Builder{eph: eph, orbs: DefaultOrbs}
}

// build computes the common chart skeleton for a moment and place.
func (b *Builder) build(kind Kind, at time.Time, lat, lon float64) (*Chart, error) {
	positions, err := b.eph.PositionsAt(at)
	if err != nil {
		return nil, fmt.Errorf("%s chart positions: %w", kind, err)
	}

	asc, mc := ephemeris.Angles(at, lat, lon)
	objects := placements(positions, asc)

	c := &Chart{
		Kind:      kind,
		Moment:    at,
		Latitude:  lat,
		Longitude: lon,
		Objects:   objects,
		Houses:    equalHouses(asc),
		Angles: Angles{
			Asc:  asc,
			MC:   mc,
			Desc: norm360(asc + 180),
			IC:   norm360(mc + 180),
		},
		Weights:   weigh(objects),
		JulianDay: ephemeris.JulianDay(at),
	}

	if sun, moon := c.Object(ephemeris.Sun), c.Object(ephemeris.Moon); sun != nil && moon != nil {
		c.MoonPhase = moonPhaseName(sun.Lon, moon.Lon)
		// Houses 7..12 sit above the horizon; a chart with the Sun there
		// is diurnal.
		c.Diurnal = sun.House >= 7
	}
	return c, nil
}

// Natal computes the radix for a birth moment and birthplace.
func (b *Builder) Natal(birth time.Time, lat, lon float64) (*Chart, error) {
	c, err := b.build(KindNatal, birth, lat, lon)
	if err != nil {
		return nil, err
	}
	c.Aspects = findAspects(c.Objects, b.orbs)
	return c, nil
}

// Transits computes the sky for a transit moment and observing location.
func (b *Builder) Transits(at time.Time, lat, lon float64) (*Chart, error) {
	c, err := b.build(KindTransit, at, lat, lon)
	if err != nil {
		return nil, err
	}
	c.Aspects = findAspects(c.Objects, b.orbs)
	return c, nil
}

// TransitsToNatal aspects the transiting sky against a natal chart. The
// transiting objects are placed into the natal houses, and every aspect runs
// from a moving body to a fixed radix point.
func (b *Builder) TransitsToNatal(at time.Time, lat, lon float64, natal *Chart) (*Chart, error) {
	if natal == nil || natal.Kind != KindNatal {
		return nil, fmt.Errorf("transits-to-natal requires a natal chart")
	}

	positions, err := b.eph.PositionsAt(at)
	if err != nil {
		return nil, fmt.Errorf("transit positions: %w", err)
	}
	objects := placements(positions, natal.Angles.Asc)

	c := &Chart{
		Kind:      KindTransitToNatal,
		Moment:    at,
		Latitude:  lat,
		Longitude: lon,
		Objects:   objects,
		Houses:    natal.Houses,
		Angles:    natal.Angles,
		Aspects:   findCrossAspects(objects, natal.Objects, b.orbs),
		Weights:   weigh(objects),
		JulianDay: ephemeris.JulianDay(at),
		Natal:     natal,
	}
	if sun, moon := c.Object(ephemeris.Sun), c.Object(ephemeris.Moon); sun != nil && moon != nil {
		c.MoonPhase = moonPhaseName(sun.Lon, moon.Lon)
		c.Diurnal = sun.House >= 7
	}
	return c, nil
}
