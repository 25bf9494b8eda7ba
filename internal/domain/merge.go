package domain

import (
	"fmt"
	"time"

	"github.com/uber/h3-go/v4"
)

// MergeOptions configures dataset metadata and enrichment.
type MergeOptions struct {
	Source      string
	DataVersion string
	// H3Resolution selects the cell resolution attached to each member; negative
	// disables cells.
	H3Resolution int
}

// MergeWarning reports a record excluded from the dataset.
type MergeWarning struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Country  string `json:"country"`
	Reason   string `json:"reason"`
}

// Merge joins records to their geocode results by location key. Records whose key
// has no usable result are left out and reported as warnings; the dataset never
// carries placeholder coordinates. Coordinates are copied without transformation.
func Merge(records []RawTeamRecord, report *GeocodeReport, opts MergeOptions) (*Dataset, []MergeWarning) {
	team := make([]EnrichedMember, 0, len(records))
	var warnings []MergeWarning

	for _, r := range records {
		res, ok := report.Result(r.Key())
		reason := ""
		switch {
		case !ok:
			reason = "no geocode result"
		case !res.Success:
			reason = "geocode failed: " + res.Error
		case !ValidCoordinates(res.Latitude, res.Longitude):
			reason = "invalid coordinates"
		}
		if reason != "" {
			warnings = append(warnings, MergeWarning{
				ID:       r.ID,
				Name:     r.FullName(),
				Location: r.Location,
				Country:  r.Country,
				Reason:   reason,
			})
			continue
		}

		team = append(team, enrich(r, res, opts.H3Resolution))
	}

	return &Dataset{
		Metadata: DatasetMetadata{
			TotalMembers: len(team),
			LastUpdated:  clock.Now().UTC().Format(time.RFC3339),
			Source:       opts.Source,
			DataVersion:  opts.DataVersion,
		},
		Team: team,
	}, warnings
}

func enrich(r RawTeamRecord, res GeocodeResult, resolution int) EnrichedMember {
	teams := make([]TeamSummary, 0, len(r.Teams))
	for _, m := range r.Teams {
		teams = append(teams, TeamSummary{ID: m.Team.ID, Name: m.Team.Name, Slug: m.Team.Slug})
	}

	return EnrichedMember{
		ID:               r.ID,
		Name:             r.FullName(),
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		Role:             r.Role,
		Bio:              r.Bio,
		Avatar:           r.Avatar,
		Location:         r.Location,
		Country:          r.Country,
		Latitude:         res.Latitude,
		Longitude:        res.Longitude,
		FormattedAddress: res.FormattedAddress,
		Cell:             cellFor(res.Latitude, res.Longitude, resolution),
		Teams:            teams,
	}
}

// maxH3Resolution is the finest resolution H3 defines.
const maxH3Resolution = 15

// cellFor returns the H3 index of a coordinate, or "" when disabled or invalid.
func cellFor(lat, lon float64, resolution int) string {
	if resolution < 0 || resolution > maxH3Resolution {
		return ""
	}
	cell, err := h3.LatLngToCell(h3.NewLatLng(lat, lon), resolution)
	if err != nil {
		return ""
	}
	return cell.String()
}

// String renders a warning for logs.
func (w MergeWarning) String() string {
	return fmt.Sprintf("%s (%q, %q): %s", w.Name, w.Location, w.Country, w.Reason)
}
