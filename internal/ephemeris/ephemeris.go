// Package ephemeris wraps the meeus astronomy library behind the small
// surface the chart builders need: geocentric ecliptic positions, daily
// motion, and the chart angles for a time and place.
//
// All angles cross the package boundary in degrees.
package ephemeris

import (
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/elliptic"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/nutation"
	pp "github.com/soniakeys/meeus/v3/planetposition"
	"github.com/soniakeys/meeus/v3/pluto"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/meeus/v3/solar"
)

// Body identifies a charted celestial object.
type Body int

const (
	Sun Body = iota
	Moon
	Mercury
	Venus
	Mars
	Jupiter
	Saturn
	Uranus
	Neptune
	Pluto
	NorthNode
	SouthNode
)

// Bodies is the canonical charting order.
var Bodies = []Body{
	Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn,
	Uranus, Neptune, Pluto, NorthNode, SouthNode,
}

var bodyNames = map[Body]string{
	Sun:       "Sun",
	Moon:      "Moon",
	Mercury:   "Mercury",
	Venus:     "Venus",
	Mars:      "Mars",
	Jupiter:   "Jupiter",
	Saturn:    "Saturn",
	Uranus:    "Uranus",
	Neptune:   "Neptune",
	Pluto:     "Pluto",
	NorthNode: "Mean North Node",
	SouthNode: "Mean South Node",
}

// String returns the display name used in chart text.
func (b Body) String() string {
	if n, ok := bodyNames[b]; ok {
		return n
	}
	return fmt.Sprintf("Body(%d)", int(b))
}

const kmPerAU = 149597870.7

// Position is a geocentric ecliptic position at an instant.
type Position struct {
	Body     Body
	Lon      float64 // ecliptic longitude, degrees [0,360)
	Lat      float64 // ecliptic latitude, degrees
	Dec      float64 // declination, degrees
	Speed    float64 // degrees of longitude per day; negative = retrograde
	Distance float64 // AU; zero when the theory does not supply it
}

// Retrograde reports apparent backward motion.
func (p Position) Retrograde() bool { return p.Speed < 0 }

// Ephemeris computes positions from the VSOP87 planetary theory plus the
// meeus solar, lunar and Pluto theories.
type Ephemeris struct {
	earth   *pp.V87Planet
	planets map[Body]*pp.V87Planet
}

var vsopBodies = map[Body]int{
	Mercury: pp.Mercury,
	Venus:   pp.Venus,
	Mars:    pp.Mars,
	Jupiter: pp.Jupiter,
	Saturn:  pp.Saturn,
	Uranus:  pp.Uranus,
	Neptune: pp.Neptune,
}

// Open loads the VSOP87 data files from dir. Pass "" to read the path from
// the VSOP87 environment variable, which is the library's own default.
func Open(dir string) (*Ephemeris, error) {
	load := func(ibody int) (*pp.V87Planet, error) {
		if dir == "" {
			return pp.LoadPlanet(ibody)
		}
		return pp.LoadPlanetPath(ibody, dir)
	}

	earth, err := load(pp.Earth)
	if err != nil {
		return nil, fmt.Errorf("load VSOP87 earth data: %w", err)
	}
	e := &Ephemeris{earth: earth, planets: make(map[Body]*pp.V87Planet, len(vsopBodies))}
	for body, ibody := range vsopBodies {
		p, err := load(ibody)
		if err != nil {
			return nil, fmt.Errorf("load VSOP87 data for %s: %w", body, err)
		}
		e.planets[body] = p
	}
	return e, nil
}

// JulianDay converts a time to a Julian day number. The conversion works in
// UTC; callers hold location-aware times.
func JulianDay(t time.Time) float64 {
	return julian.TimeToJD(t.UTC())
}

// PositionAt returns the geocentric ecliptic position of body at t.
func (e *Ephemeris) PositionAt(body Body, t time.Time) (Position, error) {
	jd := JulianDay(t)
	pos, err := e.positionAtJD(body, jd)
	if err != nil {
		return Position{}, err
	}
	// Daily motion by central difference over one day.
	before, err := e.lonAtJD(body, jd-0.5)
	if err != nil {
		return Position{}, err
	}
	after, err := e.lonAtJD(body, jd+0.5)
	if err != nil {
		return Position{}, err
	}
	pos.Speed = wrap180(after - before)
	pos.Body = body
	return pos, nil
}

// PositionsAt returns positions for all charted bodies in canonical order.
func (e *Ephemeris) PositionsAt(t time.Time) ([]Position, error) {
	out := make([]Position, 0, len(Bodies))
	for _, b := range Bodies {
		p, err := e.PositionAt(b, t)
		if err != nil {
			return nil, fmt.Errorf("position of %s: %w", b, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (e *Ephemeris) positionAtJD(body Body, jd float64) (Position, error) {
	ε := nutation.MeanObliquity(jd)
	sε, cε := ε.Sincos()

	switch body {
	case Sun:
		λ := solar.ApparentLongitude(base.J2000Century(jd))
		_, δ := coord.EclToEq(λ, 0, sε, cε)
		return Position{Lon: norm360(λ.Deg()), Dec: δ.Deg(), Distance: 1}, nil

	case Moon:
		λ, β, Δ := moonposition.Position(jd)
		_, δ := coord.EclToEq(λ, β, sε, cε)
		return Position{Lon: norm360(λ.Deg()), Lat: β.Deg(), Dec: δ.Deg(), Distance: Δ / kmPerAU}, nil

	case Pluto:
		α, δ := pluto.Astrometric(jd, e.earth)
		λ, β := coord.EqToEcl(α, δ, sε, cε)
		return Position{Lon: norm360(λ.Deg()), Lat: β.Deg(), Dec: δ.Deg()}, nil

	case NorthNode:
		lon := meanLunarNode(base.J2000Century(jd))
		return Position{Lon: lon}, nil

	case SouthNode:
		lon := meanLunarNode(base.J2000Century(jd))
		return Position{Lon: norm360(lon + 180)}, nil

	default:
		p, ok := e.planets[body]
		if !ok {
			return Position{}, fmt.Errorf("no theory loaded for %s", body)
		}
		α, δ := elliptic.Position(p, e.earth, jd)
		λ, β := coord.EqToEcl(α, δ, sε, cε)
		return Position{Lon: norm360(λ.Deg()), Lat: β.Deg(), Dec: δ.Deg()}, nil
	}
}

func (e *Ephemeris) lonAtJD(body Body, jd float64) (float64, error) {
	p, err := e.positionAtJD(body, jd)
	if err != nil {
		return 0, err
	}
	return p.Lon, nil
}

// meanLunarNode is the mean ascending node of the lunar orbit, from the
// standard polynomial in T (Julian centuries since J2000). meeus exposes
// node passage times but not the running longitude, so it lives here.
func meanLunarNode(T float64) float64 {
	Ω := 125.0445479 - 1934.1362891*T + 0.0020754*T*T + T*T*T/467441 - T*T*T*T/60616000
	return norm360(Ω)
}

// SiderealTime returns the local apparent sidereal time at t for an east
// longitude, as an angle in degrees.
func SiderealTime(t time.Time, lonDeg float64) float64 {
	gst := sidereal.Apparent(JulianDay(t))
	// unit.Time is seconds of time; 240 seconds per degree.
	return norm360(float64(gst)/240 + lonDeg)
}

// Angles returns the Ascendant and Midheaven longitudes in degrees for a
// time and place.
func Angles(t time.Time, latDeg, lonDeg float64) (asc, mc float64) {
	θ := SiderealTime(t, lonDeg) * math.Pi / 180
	ε := nutation.MeanObliquity(JulianDay(t)).Rad()
	φ := latDeg * math.Pi / 180

	mcRad := math.Atan2(math.Sin(θ), math.Cos(θ)*math.Cos(ε))
	ascRad := math.Atan2(math.Cos(θ), -(math.Sin(θ)*math.Cos(ε) + math.Tan(φ)*math.Sin(ε)))

	return norm360(ascRad * 180 / math.Pi), norm360(mcRad * 180 / math.Pi)
}

// Obliquity returns the mean obliquity of the ecliptic at t, degrees.
func Obliquity(t time.Time) float64 {
	return nutation.MeanObliquity(JulianDay(t)).Deg()
}

func norm360(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// wrap180 maps a degree difference into (-180, 180].
func wrap180(d float64) float64 {
	d = math.Mod(d, 360)
	if d > 180 {
		d -= 360
	}
	if d <= -180 {
		d += 360
	}
	return d
}
