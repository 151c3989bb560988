package render

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jasperb3/TransitReader/internal/chart"
	"github.com/Jasperb3/TransitReader/internal/ephemeris"
)

func wheelFixture() *chart.Chart {
	natal := &chart.Chart{
		Kind:   chart.KindNatal,
		Angles: chart.Angles{Asc: 125.5, MC: 35.5, Desc: 305.5, IC: 215.5},
		Objects: []chart.Object{
			{Position: ephemeris.Position{Body: ephemeris.Sun, Lon: 125.5}},
			{Position: ephemeris.Position{Body: ephemeris.Moon, Lon: 200.0}},
			{Position: ephemeris.Position{Body: ephemeris.Mars, Lon: 10.0, Speed: -0.2}},
		},
	}
	for i := 0; i < 12; i++ {
		natal.Houses = append(natal.Houses, chart.House{
			Number: i + 1,
			Cusp:   ephemerisNorm(125.5 + float64(i*30)),
		})
	}
	return &chart.Chart{
		Kind:   chart.KindTransitToNatal,
		Natal:  natal,
		Angles: natal.Angles,
		Objects: []chart.Object{
			{Position: ephemeris.Position{Body: ephemeris.Saturn, Lon: 305.5}},
			{Position: ephemeris.Position{Body: ephemeris.Jupiter, Lon: 80.0}},
		},
		Aspects: []chart.Aspect{
			{Active: ephemeris.Saturn, Passive: ephemeris.Sun, Kind: chart.Opposition, Orb: 0.0},
			{Active: ephemeris.Jupiter, Passive: ephemeris.Moon, Kind: chart.Trine, Orb: 0.0},
		},
	}
}

func ephemerisNorm(deg float64) float64 {
	for deg >= 360 {
		deg -= 360
	}
	return deg
}

func TestWheelRendersSVG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Wheel(&buf, wheelFixture(), "Transits for Ada"))

	out := buf.String()
	assert.Contains(t, out, "<svg")
	assert.Contains(t, out, "</svg>")
	assert.Contains(t, out, "Transits for Ada")

	// All twelve sign glyphs appear on the zodiac ring.
	for _, glyph := range signGlyphs {
		assert.Contains(t, out, glyph)
	}

	// Natal and transiting bodies are drawn.
	for _, body := range []ephemeris.Body{ephemeris.Sun, ephemeris.Moon, ephemeris.Mars, ephemeris.Saturn, ephemeris.Jupiter} {
		assert.Contains(t, out, bodyGlyphs[body])
	}

	// Retrograde Mars gets its marker.
	assert.Contains(t, out, "℞")

	// Aspect lines carry their colors.
	assert.Contains(t, out, aspectColors[chart.Opposition])
	assert.Contains(t, out, aspectColors[chart.Trine])
}

func TestWheelRequiresTransitToNatal(t *testing.T) {
	var buf bytes.Buffer
	err := Wheel(&buf, &chart.Chart{Kind: chart.KindNatal}, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transit-to-natal")
}

func TestWriteWheel(t *testing.T) {
	path := t.TempDir() + "/charts/wheel.svg"
	require.NoError(t, WriteWheel(path, wheelFixture(), "Wheel"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "<svg"))
}
