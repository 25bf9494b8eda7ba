package domain

import (
	"regexp"
	"strings"
)

// LocationKey is the (location, country) pair used to deduplicate geocoding
// requests and to join results back onto records.
type LocationKey struct {
	Location string
	Country  string
}

// String returns the "<location>|<country>" form used as the checkpoint map key.
func (k LocationKey) String() string {
	return k.Location + "|" + k.Country
}

// Heuristics holds the lookup tables behind location classification and
// normalization. The zero value is not useful; start from DefaultHeuristics.
type Heuristics struct {
	// Sentinel replaces empty, null and "world" locations.
	Sentinel string
	// NullMarkers are literal strings the scraper writes instead of a real null.
	NullMarkers []string
	// Denylist terms mark a location as problematic when contained in it.
	Denylist []string
	// SentinelAliases are whole-string matches rewritten to Sentinel.
	SentinelAliases []string
	// CountryNames maps upper-case country codes to full English names.
	CountryNames map[string]string
	// UnitedKingdom is the full name whose codes trigger UK suffix stripping.
	UnitedKingdom string
	// UKSuffix is stripped from UK locations; compared case-insensitively.
	UKSuffix string
}

var greaterAreaPattern = regexp.MustCompile(`(?i)^greater\s+(.+?)\s+area$`)

// DefaultHeuristics returns the tables used for the scraped team directory.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		Sentinel:    "North Pole",
		NullMarkers: []string{"null"},
		Denylist: []string{
			"world",
			"earth",
			"remote",
			"nomad",
			"digital nomad",
			"everywhere",
			"nowhere",
			"n/a",
			"not applicable",
			"tbd",
			"to be determined",
			"various",
		},
		SentinelAliases: []string{"world"},
		CountryNames: map[string]string{
			"US": "United States",
			"GB": "United Kingdom",
			"UK": "United Kingdom",
			"DE": "Germany",
			"FR": "France",
			"CA": "Canada",
			"AU": "Australia",
			"PL": "Poland",
			"NL": "Netherlands",
			"ES": "Spain",
			"IN": "India",
			"BR": "Brazil",
		},
		UnitedKingdom: "United Kingdom",
		UKSuffix:      ", UK",
	}
}

// IsNull reports whether location is empty or one of the null markers.
func (h Heuristics) IsNull(location string) bool {
	s := strings.TrimSpace(location)
	if s == "" {
		return true
	}
	for _, m := range h.NullMarkers {
		if strings.EqualFold(s, m) {
			return true
		}
	}
	return false
}

// IsProblematic reports whether location is unlikely to geocode: null, or
// containing any denylisted placeholder term.
func (h Heuristics) IsProblematic(location string) bool {
	if h.IsNull(location) {
		return true
	}
	folded := fold(location)
	for _, term := range h.Denylist {
		if strings.Contains(folded, fold(term)) {
			return true
		}
	}
	return false
}

// CountryName returns the full name for a country code, or "".
func (h Heuristics) CountryName(country string) string {
	return h.CountryNames[strings.ToUpper(strings.TrimSpace(country))]
}

// Normalize rewrites location into the form most likely to match a provider's
// index. The rules repeat until the string stops changing, so a rule exposed by
// a later one still applies and Normalize is idempotent.
func (h Heuristics) Normalize(location, country string) string {
	countryName := h.CountryName(country)
	s := strings.TrimSpace(location)
	for {
		if h.isSentinelAlias(s) {
			return h.Sentinel
		}
		next := h.normalizeStep(s, countryName)
		if next == s {
			return s
		}
		s = next
	}
}

// normalizeStep applies each rule once, in order. Every rule only shortens s.
func (h Heuristics) normalizeStep(s, countryName string) string {
	if countryName != "" && countryName == h.UnitedKingdom && hasSuffixFold(s, h.UKSuffix) {
		s = strings.TrimSpace(s[:len(s)-len(h.UKSuffix)])
	}

	if m := greaterAreaPattern.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}

	if countryName != "" {
		if i := strings.Index(s, ","); i >= 0 && containsFold(s, countryName) {
			s = strings.TrimSpace(s[:i])
		}
	}

	return s
}

// Query builds the provider search string for a location. The country code is
// appended unless the location collapsed to the sentinel.
func (h Heuristics) Query(location, country string) string {
	normalized := h.Normalize(location, country)
	country = strings.TrimSpace(country)
	if country == "" || normalized == h.Sentinel || h.IsNull(country) {
		return normalized
	}
	return normalized + ", " + country
}

func (h Heuristics) isSentinelAlias(s string) bool {
	if h.IsNull(s) {
		return true
	}
	for _, alias := range h.SentinelAliases {
		if strings.EqualFold(s, alias) {
			return true
		}
	}
	return false
}

func hasSuffixFold(s, suffix string) bool {
	return suffix != "" && len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

// LocationEntry is one unique location awaiting resolution.
type LocationEntry struct {
	Key         string   `json:"key"`
	Location    string   `json:"location"`
	Country     string   `json:"country"`
	Count       int      `json:"count"`
	Members     []string `json:"members"`
	Problematic bool     `json:"problematic"`
	Query       string   `json:"query"`
}

// LocationKey returns the entry's key.
func (e LocationEntry) LocationKey() LocationKey {
	return LocationKey{Location: e.Location, Country: e.Country}
}

// ExtractLocations reduces records to their unique location keys. Problematic
// entries come first; within each group entries keep first-appearance order.
func ExtractLocations(records []RawTeamRecord, h Heuristics) []LocationEntry {
	index := make(map[LocationKey]int, len(records))
	entries := make([]LocationEntry, 0, len(records))

	for _, r := range records {
		key := r.Key()
		i, ok := index[key]
		if !ok {
			i = len(entries)
			index[key] = i
			entries = append(entries, LocationEntry{
				Key:         key.String(),
				Location:    r.Location,
				Country:     r.Country,
				Problematic: h.IsProblematic(r.Location),
				Query:       h.Query(r.Location, r.Country),
			})
		}
		entries[i].Count++
		entries[i].Members = append(entries[i].Members, r.FullName())
	}

	ordered := make([]LocationEntry, 0, len(entries))
	for _, e := range entries {
		if e.Problematic {
			ordered = append(ordered, e)
		}
	}
	for _, e := range entries {
		if !e.Problematic {
			ordered = append(ordered, e)
		}
	}
	return ordered
}
