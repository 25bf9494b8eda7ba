package domain

import (
	"math"
	"strings"
	"time"
)

// GeocodeResult is the outcome of resolving one location key. At most one exists
// per key.
type GeocodeResult struct {
	Location         string  `json:"location"`
	Country          string  `json:"country"`
	Query            string  `json:"query"`
	Success          bool    `json:"success"`
	Latitude         float64 `json:"latitude,omitempty"`
	Longitude        float64 `json:"longitude,omitempty"`
	FormattedAddress string  `json:"formattedAddress,omitempty"`
	Error            string  `json:"error,omitempty"`
	Problematic      bool    `json:"problematic,omitempty"`
}

// Usable reports whether the result can place a pin: successful with finite,
// non-(0,0) coordinates.
func (r GeocodeResult) Usable() bool {
	return r.Success && ValidCoordinates(r.Latitude, r.Longitude)
}

// ValidCoordinates rejects NaN, infinities, out-of-range values and the (0,0)
// placeholder.
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	return lat != 0 || lon != 0
}

// NewGeocodeSuccess builds a successful result from the first provider candidate.
func NewGeocodeSuccess(entry LocationEntry, place Place) GeocodeResult {
	return GeocodeResult{
		Location:         entry.Location,
		Country:          entry.Country,
		Query:            entry.Query,
		Success:          true,
		Latitude:         place.Lat,
		Longitude:        place.Lon,
		FormattedAddress: place.FormattedAddress,
		Problematic:      entry.Problematic,
	}
}

// NewGeocodeFailure builds a failed result carrying the error text.
func NewGeocodeFailure(entry LocationEntry, err error) GeocodeResult {
	return GeocodeResult{
		Location:    entry.Location,
		Country:     entry.Country,
		Query:       entry.Query,
		Success:     false,
		Error:       err.Error(),
		Problematic: entry.Problematic,
	}
}

// VerificationMismatch records a forward result whose reverse geocode does not
// agree with the original location.
type VerificationMismatch struct {
	Location       string  `json:"location"`
	Country        string  `json:"country"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	ReverseAddress string  `json:"reverseAddress"`
	ReverseCity    string  `json:"reverseCity,omitempty"`
}

// VerificationMatches reports whether a reverse-geocoded place agrees with the
// original location string: the reverse address contains the location, or the
// location contains the reverse city.
func VerificationMatches(location string, reverse Place) bool {
	if containsFold(reverse.FormattedAddress, location) {
		return true
	}
	city := strings.TrimSpace(reverse.City)
	return city != "" && containsFold(location, city)
}

// FailedGeocode lists a location that could not be resolved and who is affected.
type FailedGeocode struct {
	Key      string   `json:"key"`
	Location string   `json:"location"`
	Country  string   `json:"country"`
	Query    string   `json:"query"`
	Error    string   `json:"error"`
	Members  []string `json:"members"`
}

// GeocodeSummary holds aggregate counts for a geocoding run.
type GeocodeSummary struct {
	TotalLocations int `json:"totalLocations"`
	Successful     int `json:"successful"`
	Failed         int `json:"failed"`
	Problematic    int `json:"problematic"`
	Mismatches     int `json:"mismatches"`
	Reused         int `json:"reused"`
}

// GeocodeReport is the checkpoint artifact written by the geocoding stage and
// read, never modified, by the merge stage.
type GeocodeReport struct {
	GeneratedAt            time.Time                `json:"generatedAt"`
	Summary                GeocodeSummary           `json:"summary"`
	ProblematicLocations   []LocationEntry          `json:"problematicLocations"`
	FailedGeocodes         []FailedGeocode          `json:"failedGeocodes"`
	VerificationMismatches []VerificationMismatch   `json:"verificationMismatches"`
	Results                map[string]GeocodeResult `json:"results"`
}

// Result looks up the result for key.
func (r *GeocodeReport) Result(key LocationKey) (GeocodeResult, bool) {
	if r == nil {
		return GeocodeResult{}, false
	}
	res, ok := r.Results[key.String()]
	return res, ok
}

// BuildReport assembles the checkpoint from the processed entries, their results
// and the verification mismatches. Entries without a result (an interrupted run)
// are left out of the counts.
func BuildReport(entries []LocationEntry, results map[string]GeocodeResult, mismatches []VerificationMismatch, reused int) *GeocodeReport {
	report := &GeocodeReport{
		GeneratedAt:            clock.Now().UTC(),
		ProblematicLocations:   []LocationEntry{},
		FailedGeocodes:         []FailedGeocode{},
		VerificationMismatches: mismatches,
		Results:                results,
	}
	if report.VerificationMismatches == nil {
		report.VerificationMismatches = []VerificationMismatch{}
	}
	if report.Results == nil {
		report.Results = map[string]GeocodeResult{}
	}

	for _, e := range entries {
		if e.Problematic {
			report.ProblematicLocations = append(report.ProblematicLocations, e)
			report.Summary.Problematic++
		}
		res, ok := report.Results[e.Key]
		if !ok {
			continue
		}
		report.Summary.TotalLocations++
		if res.Success {
			report.Summary.Successful++
			continue
		}
		report.Summary.Failed++
		report.FailedGeocodes = append(report.FailedGeocodes, FailedGeocode{
			Key:      e.Key,
			Location: e.Location,
			Country:  e.Country,
			Query:    res.Query,
			Error:    res.Error,
			Members:  e.Members,
		})
	}

	report.Summary.Mismatches = len(report.VerificationMismatches)
	report.Summary.Reused = reused
	return report
}
