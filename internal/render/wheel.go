// Package render draws the chart wheel as SVG and rasterizes it through a
// headless browser.
package render

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	svg "github.com/ajstarks/svgo"

	"github.com/Jasperb3/TransitReader/internal/chart"
	"github.com/Jasperb3/TransitReader/internal/ephemeris"
)

const (
	canvasSize = 820
	center     = canvasSize / 2

	zodiacOuter = 380
	zodiacInner = 330
	natalRing   = 230
	transitRing = 290
	hubRadius   = 150
)

var signGlyphs = [12]string{"♈", "♉", "♊", "♋", "♌", "♍", "♎", "♏", "♐", "♑", "♒", "♓"}

var bodyGlyphs = map[ephemeris.Body]string{
	ephemeris.Sun:       "☉",
	ephemeris.Moon:      "☽",
	ephemeris.Mercury:   "☿",
	ephemeris.Venus:     "♀",
	ephemeris.Mars:      "♂",
	ephemeris.Jupiter:   "♃",
	ephemeris.Saturn:    "♄",
	ephemeris.Uranus:    "♅",
	ephemeris.Neptune:   "♆",
	ephemeris.Pluto:     "♇",
	ephemeris.NorthNode: "☊",
	ephemeris.SouthNode: "☋",
}

var aspectColors = map[chart.AspectKind]string{
	chart.Conjunction: "#b8860b",
	chart.Sextile:     "#2e8b57",
	chart.Square:      "#b22222",
	chart.Trine:       "#1e6fb8",
	chart.Opposition:  "#8b2252",
}

// Wheel draws a bi-wheel for a transit-to-natal chart: natal placements on
// the inner ring, transiting placements on the outer, aspect lines through
// the hub. The chart must carry its natal reference.
func Wheel(w io.Writer, c *chart.Chart, title string) error {
	if c.Kind != chart.KindTransitToNatal || c.Natal == nil {
		return fmt.Errorf("wheel render needs a transit-to-natal chart with its natal reference")
	}

	canvas := svg.New(w)
	canvas.Start(canvasSize, canvasSize)
	canvas.Rect(0, 0, canvasSize, canvasSize, "fill:#fdfcf8")

	drawZodiacRing(canvas, c)
	drawHouses(canvas, c)
	drawAspects(canvas, c)
	drawPlacements(canvas, c, c.Natal.Objects, natalRing, "#1a1a2e")
	drawPlacements(canvas, c, c.Objects, transitRing, "#7a1f1f")

	canvas.Text(center, 30, title, "font-family:serif;font-size:20px;text-anchor:middle;fill:#333")
	canvas.Text(center, canvasSize-18,
		"inner ring: natal · outer ring: transits",
		"font-family:serif;font-size:13px;text-anchor:middle;fill:#777")

	canvas.End()
	return nil
}

// WriteWheel renders the wheel to path, creating parent directories.
func WriteWheel(path string, c *chart.Chart, title string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create chart dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create svg: %w", err)
	}
	defer f.Close()
	if err := Wheel(f, c, title); err != nil {
		return err
	}
	return f.Close()
}

// point maps an ecliptic longitude and radius to canvas coordinates. The
// chart rotates so the ascendant sits at the left, the conventional layout.
func point(c *chart.Chart, lon float64, radius float64) (int, int) {
	asc := c.Angles.Asc
	theta := (180 + asc - lon) * math.Pi / 180
	x := float64(center) + radius*math.Cos(theta)
	y := float64(center) + radius*math.Sin(theta)
	return int(math.Round(x)), int(math.Round(y))
}

func drawZodiacRing(canvas *svg.SVG, c *chart.Chart) {
	canvas.Circle(center, center, zodiacOuter, "fill:none;stroke:#444;stroke-width:2")
	canvas.Circle(center, center, zodiacInner, "fill:none;stroke:#444;stroke-width:1")
	canvas.Circle(center, center, hubRadius, "fill:none;stroke:#bbb;stroke-width:1")

	for i := 0; i < 12; i++ {
		cusp := float64(i * 30)
		x1, y1 := point(c, cusp, zodiacInner)
		x2, y2 := point(c, cusp, zodiacOuter)
		canvas.Line(x1, y1, x2, y2, "stroke:#444;stroke-width:1")

		gx, gy := point(c, cusp+15, float64(zodiacInner+zodiacOuter)/2)
		canvas.Text(gx, gy+8, signGlyphs[i],
			"font-size:26px;text-anchor:middle;fill:#555")
	}
}

func drawHouses(canvas *svg.SVG, c *chart.Chart) {
	houses := c.Houses
	if c.Natal != nil {
		houses = c.Natal.Houses
	}
	for _, h := range houses {
		x1, y1 := point(c, h.Cusp, hubRadius)
		x2, y2 := point(c, h.Cusp, zodiacInner)
		style := "stroke:#999;stroke-width:1;stroke-dasharray:4 3"
		if h.Number == 1 || h.Number == 10 {
			// Ascendant and midheaven axes drawn solid and heavier.
			style = "stroke:#333;stroke-width:2"
		}
		canvas.Line(x1, y1, x2, y2, style)

		nx, ny := point(c, h.Cusp+15, hubRadius+18)
		canvas.Text(nx, ny+4, fmt.Sprintf("%d", h.Number),
			"font-size:12px;text-anchor:middle;fill:#999")
	}
}

func drawPlacements(canvas *svg.SVG, c *chart.Chart, objects []chart.Object, radius float64, color string) {
	// Spread glyphs that would land within 6 degrees of each other.
	drawn := make([]float64, 0, len(objects))
	for _, obj := range objects {
		glyph, ok := bodyGlyphs[obj.Body]
		if !ok {
			continue
		}
		lon := obj.Lon
		for crowded(drawn, lon) {
			lon += 6
		}
		drawn = append(drawn, lon)

		gx, gy := point(c, lon, radius)
		canvas.Text(gx, gy+8, glyph,
			fmt.Sprintf("font-size:24px;text-anchor:middle;fill:%s", color))
		if obj.Retrograde() {
			canvas.Text(gx+12, gy+14, "℞",
				fmt.Sprintf("font-size:11px;fill:%s", color))
		}

		// Tick marking the true position on the ring edge.
		tx1, ty1 := point(c, obj.Lon, zodiacInner)
		tx2, ty2 := point(c, obj.Lon, zodiacInner-8)
		canvas.Line(tx1, ty1, tx2, ty2, fmt.Sprintf("stroke:%s;stroke-width:1", color))
	}
}

func crowded(drawn []float64, lon float64) bool {
	for _, d := range drawn {
		delta := math.Abs(math.Mod(d-lon+540, 360) - 180)
		if delta < 6 {
			return true
		}
	}
	return false
}

func drawAspects(canvas *svg.SVG, c *chart.Chart) {
	natalLons := make(map[ephemeris.Body]float64)
	for _, obj := range c.Natal.Objects {
		natalLons[obj.Body] = obj.Lon
	}
	transitLons := make(map[ephemeris.Body]float64)
	for _, obj := range c.Objects {
		transitLons[obj.Body] = obj.Lon
	}

	for _, asp := range c.Aspects {
		from, ok := transitLons[asp.Active]
		if !ok {
			continue
		}
		to, ok := natalLons[asp.Passive]
		if !ok {
			continue
		}
		x1, y1 := point(c, from, hubRadius)
		x2, y2 := point(c, to, hubRadius)
		color := aspectColors[asp.Kind]
		canvas.Line(x1, y1, x2, y2,
			fmt.Sprintf("stroke:%s;stroke-width:1;stroke-opacity:0.6", color))
	}
}
