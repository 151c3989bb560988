package chart

import (
	"fmt"
	"math"
	"strings"
)

// The formatters reproduce the plain-text layout the analysis prompts were
// tuned on: a header, chart details, celestial objects in canonical order,
// house cusps, aspects, and weightings, separated by dashed rules.

const sectionRule = "-------------------------"

// FormatNatal renders a natal chart text block.
func FormatNatal(c *Chart, name, birthplace string) string {
	var b strings.Builder
	b.WriteString("--- Natal Chart Summary ---\n")
	fmt.Fprintf(&b, "Subject: %s\n", name)
	fmt.Fprintf(&b, "Date of Birth: %s\n", c.Moment.Format("Monday, 02 January 2006 15:04:05"))
	fmt.Fprintf(&b, "Birthplace: %s (%.4f, %.4f)\n", birthplace, c.Latitude, c.Longitude)
	writeChartBody(&b, c)
	b.WriteString("--- End of Natal Chart ---")
	return b.String()
}

// FormatTransits renders a current-sky chart text block.
func FormatTransits(c *Chart, location string) string {
	var b strings.Builder
	b.WriteString("--- Current Transits Summary ---\n")
	fmt.Fprintf(&b, "Transit Date/Time: %s\n", c.Moment.Format("Monday, 02 January 2006 15:04:05"))
	fmt.Fprintf(&b, "Location: %s (%.4f, %.4f)\n", location, c.Latitude, c.Longitude)
	writeChartBody(&b, c)
	b.WriteString("--- End of Current Transits ---")
	return b.String()
}

// FormatTransitsToNatal renders the cross-chart block: transiting bodies in
// natal houses, aspects from moving bodies to the fixed radix.
func FormatTransitsToNatal(c *Chart, name, birthplace, location string) string {
	var b strings.Builder
	b.WriteString("--- Transit to Natal Chart Summary ---\n")
	fmt.Fprintf(&b, "Transit Date/Time: %s\n", c.Moment.Format("Monday, 02 January 2006 15:04:05"))
	fmt.Fprintf(&b, "Transit Location: %s (%.4f, %.4f)\n", location, c.Latitude, c.Longitude)
	if c.Natal != nil {
		fmt.Fprintf(&b, "Subject: %s\n", name)
		fmt.Fprintf(&b, "Date of Birth: %s\n", c.Natal.Moment.Format("Monday, 02 January 2006 15:04:05"))
		fmt.Fprintf(&b, "Birthplace: %s (%.4f, %.4f)\n", birthplace, c.Natal.Latitude, c.Natal.Longitude)
	}
	writeChartBody(&b, c)
	b.WriteString("--- End of Transit to Natal Chart ---")
	return b.String()
}

func writeChartBody(b *strings.Builder, c *Chart) {
	fmt.Fprintf(b, "Julian Day: %.5f\n", c.JulianDay)
	b.WriteString(sectionRule + "\n")

	b.WriteString("--- Chart Details ---\n")
	b.WriteString("House System: Equal\n")
	fmt.Fprintf(b, "Diurnal/Nocturnal: %s\n", diurnalLabel(c.Diurnal))
	fmt.Fprintf(b, "Moon Phase: %s\n", c.MoonPhase)
	fmt.Fprintf(b, "Ascendant: %s\n", positionLabel(c.Angles.Asc))
	fmt.Fprintf(b, "Midheaven: %s\n", positionLabel(c.Angles.MC))
	b.WriteString(sectionRule + "\n")

	b.WriteString("--- Celestial Objects ---\n")
	for _, o := range c.Objects {
		writeObject(b, o)
	}
	b.WriteString(sectionRule + "\n")

	b.WriteString("--- Houses (Cusps) ---\n")
	for _, h := range c.Houses {
		fmt.Fprintf(b, "\n* House %d Cusp:\n", h.Number)
		fmt.Fprintf(b, "  Position: %s %s (%s, %s)\n",
			degMin(h.SignLon), h.Sign, h.Sign.Element(), h.Sign.Modality())
		fmt.Fprintf(b, "  Zodiac Longitude: %s\n", degMin(h.Cusp))
		fmt.Fprintf(b, "  Size: %.2f°\n", h.Size)
	}
	b.WriteString(sectionRule + "\n")

	b.WriteString("--- Aspects ---\n")
	if len(c.Aspects) == 0 {
		b.WriteString("  (No major aspects within orb)\n")
	}
	for _, a := range c.Aspects {
		fmt.Fprintf(b, "* %s %s %s (Orb: %.2f°, Diff: %+.2f°, %s)\n",
			a.Active, a.Kind, a.Passive, a.Orb, a.Difference, a.Movement())
	}
	b.WriteString(sectionRule + "\n")

	b.WriteString("--- Chart Weightings ---\n")
	b.WriteString("\nElements:\n")
	for _, el := range []string{"Fire", "Earth", "Air", "Water"} {
		fmt.Fprintf(b, "  %s: %d objects\n", el, c.Weights.Elements[el])
	}
	b.WriteString("\nModalities:\n")
	for _, mo := range []string{"Cardinal", "Fixed", "Mutable"} {
		fmt.Fprintf(b, "  %s: %d objects\n", mo, c.Weights.Modalities[mo])
	}
	b.WriteString("\nQuadrants (based on object count):\n")
	quadrantLabels := [...]string{
		"First (Houses 1-3)", "Second (Houses 4-6)",
		"Third (Houses 7-9)", "Fourth (Houses 10-12)",
	}
	for i, label := range quadrantLabels {
		fmt.Fprintf(b, "  %s: %d objects\n", label, c.Weights.Quadrants[i])
	}
	b.WriteString(sectionRule + "\n")
}

func writeObject(b *strings.Builder, o Object) {
	fmt.Fprintf(b, "\n* %s\n", o.Body)
	fmt.Fprintf(b, "  Position: %s %s (%s, %s)\n",
		degMin(o.SignLon), o.Sign, o.Sign.Element(), o.Sign.Modality())
	fmt.Fprintf(b, "  Zodiac Longitude: %s\n", degMin(o.Lon))
	fmt.Fprintf(b, "  House: House %d\n", o.House)
	fmt.Fprintf(b, "  Decan: %d\n", o.Decan)
	if o.Lat != 0 {
		fmt.Fprintf(b, "  Latitude: %+.4f°\n", o.Lat)
	}
	fmt.Fprintf(b, "  Declination: %+.4f°\n", o.Dec)
	if o.Speed != 0 {
		fmt.Fprintf(b, "  Movement: %s (Speed: %.4f°/day)\n", movementLabel(o.Speed), o.Speed)
	}
	if o.Distance > 0 {
		fmt.Fprintf(b, "  Distance: %.4f AU\n", o.Distance)
	}
}

func movementLabel(speed float64) string {
	if speed < 0 {
		return "Retrograde"
	}
	return "Direct"
}

func diurnalLabel(diurnal bool) string {
	if diurnal {
		return "Diurnal"
	}
	return "Nocturnal"
}

// positionLabel renders an absolute longitude as "15°23' Aries".
func positionLabel(lon float64) string {
	s := SignOf(lon)
	return fmt.Sprintf("%s %s", degMin(math.Mod(norm360(lon), 30)), s)
}

// degMin renders degrees as DD°MM'.
func degMin(deg float64) string {
	d := math.Floor(deg)
	m := math.Floor((deg - d) * 60)
	return fmt.Sprintf("%02.f°%02.f'", d, m)
}
