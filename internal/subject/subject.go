// Package subject manages per-subject JSON profiles: identity, birth data,
// current location, and optional biographical questionnaire answers.
package subject

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DOBLayout is the profile's date_of_birth wire format.
const DOBLayout = "2006-01-02 15:04:05"

// Location is a named place with coordinates and an IANA timezone.
type Location struct {
	Place     string  `json:"place"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

// String renders "Place, Country" for prompts and report headers.
func (l Location) String() string {
	return fmt.Sprintf("%s, %s", l.Place, l.Country)
}

// Profile is one subject's saved data.
type Profile struct {
	Name            string            `json:"name"`
	Email           string            `json:"email,omitempty"`
	DateOfBirth     string            `json:"date_of_birth"`
	Birthplace      Location          `json:"birthplace"`
	CurrentLocation Location          `json:"current_location"`

	// Biographical answers keyed by question id. All optional.
	Biography map[string]string `json:"biographical_context,omitempty"`

	// IncludeAppendices controls the structured appendix stage.
	IncludeAppendices bool `json:"include_appendices"`
}

// BirthTime parses the profile's date_of_birth field. The field holds the
// local wall-clock time at the birthplace, so the birthplace timezone
// anchors the instant.
func (p *Profile) BirthTime() (time.Time, error) {
	loc, err := time.LoadLocation(p.Birthplace.Timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("profile %q: bad birthplace timezone %q: %w", p.Name, p.Birthplace.Timezone, err)
	}
	t, err := time.ParseInLocation(DOBLayout, p.DateOfBirth, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("profile %q: bad date_of_birth %q: %w", p.Name, p.DateOfBirth, err)
	}
	return t, nil
}

// Validate rejects profiles the chart builders cannot work with.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("profile: name is required")
	}
	if _, err := p.BirthTime(); err != nil {
		return err
	}
	for _, loc := range []struct {
		label string
		loc   Location
	}{
		{"birthplace", p.Birthplace},
		{"current_location", p.CurrentLocation},
	} {
		if loc.loc.Latitude < -90 || loc.loc.Latitude > 90 {
			return fmt.Errorf("profile %q: %s latitude %f out of range", p.Name, loc.label, loc.loc.Latitude)
		}
		if loc.loc.Longitude < -180 || loc.loc.Longitude > 180 {
			return fmt.Errorf("profile %q: %s longitude %f out of range", p.Name, loc.label, loc.loc.Longitude)
		}
		if loc.loc.Timezone == "" {
			return fmt.Errorf("profile %q: %s timezone is required", p.Name, loc.label)
		}
	}
	return nil
}

// Load reads and validates a profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Save writes a profile into dir as <name_with_underscores>.json.
func Save(dir string, p *Profile) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create subjects dir: %w", err)
	}
	path := filepath.Join(dir, FileName(p.Name))
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write profile: %w", err)
	}
	return path, nil
}

// FileName maps a subject name to its profile filename.
func FileName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_")) + ".json"
}

// DisplayName reverses FileName for listings: "ada_lovelace.json" -> "Ada Lovelace".
func DisplayName(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), ".json")
	words := strings.Split(stem, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// List returns the profile paths in dir, sorted by name.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
