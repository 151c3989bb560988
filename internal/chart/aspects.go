package chart

import (
	"math"
	"sort"

	"github.com/Jasperb3/TransitReader/internal/ephemeris"
)

// AspectKind is one of the five major (Ptolemaic) aspects.
type AspectKind int

const (
	Conjunction AspectKind = iota
	Sextile
	Square
	Trine
	Opposition
)

var aspectNames = [...]string{"Conjunction", "Sextile", "Square", "Trine", "Opposition"}

func (k AspectKind) String() string { return aspectNames[k] }

// Angle returns the exact aspect angle in degrees.
func (k AspectKind) Angle() float64 {
	return [...]float64{0, 60, 90, 120, 180}[k]
}

// DefaultOrbs are the allowed deviations from exact, per aspect kind.
var DefaultOrbs = map[AspectKind]float64{
	Conjunction: 8,
	Sextile:     5,
	Square:      7,
	Trine:       7,
	Opposition:  8,
}

// Aspect is an angular relationship between two charted objects. For
// cross-chart aspects Active is the transiting body and Passive the natal one.
type Aspect struct {
	Active     ephemeris.Body
	Passive    ephemeris.Body
	Kind       AspectKind
	Orb        float64 // deviation from exact, degrees, always >= 0
	Difference float64 // signed separation minus exact angle
	Applying   bool
}

// Movement renders the applying/separating state.
func (a Aspect) Movement() string {
	if a.Applying {
		return "Applying"
	}
	return "Separating"
}

// findAspects detects major aspects between every object pair of one chart.
// Symmetric pairs are emitted once, faster body as Active.
func findAspects(objects []Object, orbs map[AspectKind]float64) []Aspect {
	var out []Aspect
	for i := 0; i < len(objects); i++ {
		for j := i + 1; j < len(objects); j++ {
			a, b := objects[i], objects[j]
			// The node axis mirrors itself; an aspect between the two
			// nodes carries no information.
			if isNodeAxis(a.Body) && isNodeAxis(b.Body) {
				continue
			}
			active, passive := orderBySpeed(a, b)
			if asp, ok := matchAspect(active, passive, orbs); ok {
				out = append(out, asp)
			}
		}
	}
	sortAspects(out)
	return out
}

// findCrossAspects detects aspects of transiting objects against natal
// positions. Both directions of a pair are meaningful here (transiting Sun
// to natal Moon is not transiting Moon to natal Sun), so no dedupe.
func findCrossAspects(transiting, natal []Object, orbs map[AspectKind]float64) []Aspect {
	var out []Aspect
	for _, tr := range transiting {
		for _, na := range natal {
			fixed := na
			fixed.Speed = 0 // the radix does not move
			if asp, ok := matchAspect(tr, fixed, orbs); ok {
				out = append(out, asp)
			}
		}
	}
	sortAspects(out)
	return out
}

func matchAspect(active, passive Object, orbs map[AspectKind]float64) (Aspect, bool) {
	if orbs == nil {
		orbs = DefaultOrbs
	}
	sep := math.Abs(wrap180(active.Lon - passive.Lon))
	for kind := Conjunction; kind <= Opposition; kind++ {
		maxOrb, ok := orbs[kind]
		if !ok {
			continue
		}
		orb := math.Abs(sep - kind.Angle())
		if orb > maxOrb {
			continue
		}
		return Aspect{
			Active:     active.Body,
			Passive:    passive.Body,
			Kind:       kind,
			Orb:        orb,
			Difference: sep - kind.Angle(),
			Applying:   isApplying(active, passive, kind),
		}, true
	}
	return Aspect{}, false
}

// isApplying reports whether relative motion is closing the orb: the
// separation a small time step ahead is nearer the exact angle.
func isApplying(active, passive Object, kind AspectKind) bool {
	const step = 0.1 // days
	now := math.Abs(wrap180(active.Lon - passive.Lon))
	next := math.Abs(wrap180((active.Lon + active.Speed*step) - (passive.Lon + passive.Speed*step)))
	return math.Abs(next-kind.Angle()) < math.Abs(now-kind.Angle())
}

func orderBySpeed(a, b Object) (active, passive Object) {
	if math.Abs(a.Speed) >= math.Abs(b.Speed) {
		return a, b
	}
	return b, a
}

func isNodeAxis(b ephemeris.Body) bool {
	return b == ephemeris.NorthNode || b == ephemeris.SouthNode
}

// sortAspects orders by tightness; the exactest contacts matter most to the
// analysis and should lead the text block.
func sortAspects(aspects []Aspect) {
	sort.SliceStable(aspects, func(i, j int) bool {
		return aspects[i].Orb < aspects[j].Orb
	})
}
