package chart

import (
	"strings"
	"testing"
	"time"

	"github.com/Jasperb3/TransitReader/internal/ephemeris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleChart(kind Kind) *Chart {
	asc := 100.0
	objects := []Object{
		{
			Position: ephemeris.Position{Body: ephemeris.Sun, Lon: 125.5, Dec: 19.2, Speed: 0.9856, Distance: 1},
			Sign:     Leo, SignLon: 5.5, House: 1, Decan: 1,
		},
		{
			Position: ephemeris.Position{Body: ephemeris.Mercury, Lon: 118.2, Dec: 17.1, Speed: -0.4},
			Sign:     Cancer, SignLon: 28.2, House: 1, Decan: 3,
		},
	}
	return &Chart{
		Kind:      kind,
		Moment:    time.Date(2025, 4, 18, 20, 58, 23, 0, time.UTC),
		Latitude:  51.5074,
		Longitude: -0.1278,
		Objects:   objects,
		Houses:    equalHouses(asc),
		Angles:    Angles{Asc: asc, MC: 10, Desc: 280, IC: 190},
		Aspects: []Aspect{
			{Active: ephemeris.Mercury, Passive: ephemeris.Sun, Kind: Conjunction, Orb: 7.3, Difference: 7.3},
		},
		Weights:   weigh(objects),
		MoonPhase: "Waxing Gibbous",
		Diurnal:   false,
		JulianDay: 2460784.37388,
	}
}

func TestFormatTransits(t *testing.T) {
	text := FormatTransits(sampleChart(KindTransit), "London, England")

	assert.True(t, strings.HasPrefix(text, "--- Current Transits Summary ---"))
	assert.True(t, strings.HasSuffix(text, "--- End of Current Transits ---"))
	assert.Contains(t, text, "Transit Date/Time: Friday, 18 April 2025 20:58:23")
	assert.Contains(t, text, "London, England (51.5074, -0.1278)")
	assert.Contains(t, text, "Julian Day: 2460784.37388")
	assert.Contains(t, text, "House System: Equal")
	assert.Contains(t, text, "Moon Phase: Waxing Gibbous")
	assert.Contains(t, text, "Diurnal/Nocturnal: Nocturnal")

	// Objects section
	assert.Contains(t, text, "* Sun")
	assert.Contains(t, text, "Position: 05°30' Leo (Fire, Fixed)")
	assert.Contains(t, text, "Movement: Direct (Speed: 0.9856°/day)")
	assert.Contains(t, text, "Distance: 1.0000 AU")
	assert.Contains(t, text, "Movement: Retrograde (Speed: -0.4000°/day)")

	// Houses, aspects, weightings
	assert.Contains(t, text, "* House 1 Cusp:")
	assert.Contains(t, text, "* Mercury Conjunction Sun (Orb: 7.30°, Diff: +7.30°, Separating)")
	assert.Contains(t, text, "Fire: 1 objects")
	assert.Contains(t, text, "First (Houses 1-3): 2 objects")
}

func TestFormatNatal(t *testing.T) {
	text := FormatNatal(sampleChart(KindNatal), "Ada Lovelace", "London, England")
	assert.Contains(t, text, "--- Natal Chart Summary ---")
	assert.Contains(t, text, "Subject: Ada Lovelace")
	assert.Contains(t, text, "Date of Birth: Friday, 18 April 2025 20:58:23")
}

func TestFormatTransitsToNatal_IncludesNatalHeader(t *testing.T) {
	c := sampleChart(KindTransitToNatal)
	natal := sampleChart(KindNatal)
	natal.Moment = time.Date(1815, 12, 10, 4, 20, 0, 0, time.UTC)
	c.Natal = natal

	text := FormatTransitsToNatal(c, "Ada Lovelace", "London, England", "Paris, France")
	assert.Contains(t, text, "--- Transit to Natal Chart Summary ---")
	assert.Contains(t, text, "Transit Location: Paris, France")
	assert.Contains(t, text, "Date of Birth: Sunday, 10 December 1815 04:20:00")
}

func TestFormatAspects_EmptyFallback(t *testing.T) {
	c := sampleChart(KindTransit)
	c.Aspects = nil
	text := FormatTransits(c, "London")
	assert.Contains(t, text, "(No major aspects within orb)")
}

func TestDegMin(t *testing.T) {
	assert.Equal(t, "05°30'", degMin(5.5))
	assert.Equal(t, "00°00'", degMin(0))
	assert.Equal(t, "29°59'", degMin(29.999))
}

func TestPositionLabel(t *testing.T) {
	require.Equal(t, "05°30' Leo", positionLabel(125.5))
}
