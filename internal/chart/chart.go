// Package chart builds natal, transit, and transit-to-natal charts from
// ephemeris positions and renders them as the stable plain-text blocks the
// analysis crews consume.
package chart

import (
	"math"
	"time"

	"github.com/Jasperb3/TransitReader/internal/ephemeris"
)

// Sign is a zodiac sign, Aries = 0.
type Sign int

const (
	Aries Sign = iota
	Taurus
	Gemini
	Cancer
	Leo
	Virgo
	Libra
	Scorpio
	Sagittarius
	Capricorn
	Aquarius
	Pisces
)

var signNames = [...]string{
	"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo",
	"Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

func (s Sign) String() string { return signNames[s] }

// Element returns Fire, Earth, Air, or Water.
func (s Sign) Element() string {
	return [...]string{"Fire", "Earth", "Air", "Water"}[int(s)%4]
}

// Modality returns Cardinal, Fixed, or Mutable.
func (s Sign) Modality() string {
	return [...]string{"Cardinal", "Fixed", "Mutable"}[int(s)%3]
}

// SignOf maps an ecliptic longitude to its sign.
func SignOf(lon float64) Sign {
	return Sign(int(norm360(lon)/30) % 12)
}

// Object is a charted body with its zodiac and house placement.
type Object struct {
	ephemeris.Position
	Sign    Sign
	SignLon float64 // degrees into the sign [0,30)
	House   int     // 1..12
	Decan   int     // 1..3
}

// House is one house cusp. Equal houses: every house spans 30 degrees from
// the Ascendant.
type House struct {
	Number  int
	Cusp    float64
	Sign    Sign
	SignLon float64
	Size    float64
}

// Angles are the four chart angles.
type Angles struct {
	Asc  float64
	MC   float64
	Desc float64
	IC   float64
}

// Kind distinguishes the three chart types the pipeline produces.
type Kind int

const (
	KindNatal Kind = iota
	KindTransit
	KindTransitToNatal
)

func (k Kind) String() string {
	switch k {
	case KindNatal:
		return "Natal"
	case KindTransit:
		return "Transit"
	case KindTransitToNatal:
		return "Transit to Natal"
	}
	return "Unknown"
}

// Weightings counts objects by element, modality, and house quadrant.
type Weightings struct {
	Elements   map[string]int
	Modalities map[string]int
	Quadrants  [4]int // houses 1-3, 4-6, 7-9, 10-12
}

// Chart is a computed chart. For KindTransitToNatal, Objects holds the
// transiting bodies, Natal holds the radix they are aspected against, and
// Houses/Angles are the natal ones.
type Chart struct {
	Kind      Kind
	Moment    time.Time
	Latitude  float64
	Longitude float64

	Objects  []Object
	Houses   []House
	Angles   Angles
	Aspects  []Aspect
	Weights  Weightings
	MoonPhase string
	Diurnal   bool
	JulianDay float64

	Natal *Chart // set only for KindTransitToNatal
}

// Object returns the charted object for a body, or nil.
func (c *Chart) Object(b ephemeris.Body) *Object {
	for i := range c.Objects {
		if c.Objects[i].Body == b {
			return &c.Objects[i]
		}
	}
	return nil
}

// moonPhaseName buckets the Sun-Moon elongation into the eight phases.
func moonPhaseName(sunLon, moonLon float64) string {
	elong := norm360(moonLon - sunLon)
	names := [...]string{
		"New Moon", "Waxing Crescent", "First Quarter", "Waxing Gibbous",
		"Full Moon", "Waning Gibbous", "Third Quarter", "Waning Crescent",
	}
	// Center each 45-degree bucket on its exact phase angle.
	idx := int(math.Floor(norm360(elong+22.5)/45)) % 8
	return names[idx]
}

// houseOf places a longitude into an equal house counted from the Ascendant.
func houseOf(lon, asc float64) int {
	return int(norm360(lon-asc)/30) + 1
}

// quadrantOf maps a house number to its quadrant index 0..3.
func quadrantOf(house int) int {
	return (house - 1) / 3
}

func placements(positions []ephemeris.Position, asc float64) []Object {
	objects := make([]Object, len(positions))
	for i, p := range positions {
		sign := SignOf(p.Lon)
		objects[i] = Object{
			Position: p,
			Sign:     sign,
			SignLon:  math.Mod(norm360(p.Lon), 30),
			House:    houseOf(p.Lon, asc),
			Decan:    int(math.Mod(norm360(p.Lon), 30)/10) + 1,
		}
	}
	return objects
}

func equalHouses(asc float64) []House {
	houses := make([]House, 12)
	for i := range houses {
		cusp := norm360(asc + float64(i)*30)
		houses[i] = House{
			Number:  i + 1,
			Cusp:    cusp,
			Sign:    SignOf(cusp),
			SignLon: math.Mod(cusp, 30),
			Size:    30,
		}
	}
	return houses
}

func weigh(objects []Object) Weightings {
	w := Weightings{
		Elements:   make(map[string]int),
		Modalities: make(map[string]int),
	}
	for _, o := range objects {
		w.Elements[o.Sign.Element()]++
		w.Modalities[o.Sign.Modality()]++
		w.Quadrants[quadrantOf(o.House)]++
	}
	return w
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
