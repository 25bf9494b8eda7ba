package domain

import "strings"

// RawTeam is a team as embedded in a scraped membership.
type RawTeam struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
}

// RawTeamMembership links a scraped person to one team.
type RawTeamMembership struct {
	Team RawTeam `json:"team"`
	Role string  `json:"role,omitempty"`
}

// RawTeamRecord is one scraped person, exactly as produced by the scraper.
type RawTeamRecord struct {
	ID        int64               `json:"id"`
	FirstName string              `json:"firstName"`
	LastName  string              `json:"lastName"`
	Location  string              `json:"location"`
	Country   string              `json:"country"`
	Role      string              `json:"role"`
	Bio       string              `json:"bio"`
	Avatar    string              `json:"avatar"`
	Teams     []RawTeamMembership `json:"teams"`
}

// FullName joins first and last name, skipping empty parts.
func (r RawTeamRecord) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(r.FirstName) + " " + strings.TrimSpace(r.LastName))
}

// Key returns the record's join key.
func (r RawTeamRecord) Key() LocationKey {
	return LocationKey{Location: r.Location, Country: r.Country}
}

// TeamSummary is the flattened form of a team membership served to the map.
type TeamSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// EnrichedMember is a team record with verified coordinates. Created by Merge and
// never mutated afterwards.
type EnrichedMember struct {
	ID               int64         `json:"id"`
	Name             string        `json:"name"`
	FirstName        string        `json:"firstName"`
	LastName         string        `json:"lastName"`
	Role             string        `json:"role,omitempty"`
	Bio              string        `json:"bio,omitempty"`
	Avatar           string        `json:"avatar,omitempty"`
	Location         string        `json:"location"`
	Country          string        `json:"country"`
	Latitude         float64       `json:"latitude"`
	Longitude        float64       `json:"longitude"`
	FormattedAddress string        `json:"formattedAddress"`
	Cell             string        `json:"cell,omitempty"`
	Teams            []TeamSummary `json:"teams"`
}

// DatasetMetadata describes a generated dataset.
type DatasetMetadata struct {
	TotalMembers int    `json:"totalMembers"`
	LastUpdated  string `json:"lastUpdated"`
	Source       string `json:"source"`
	DataVersion  string `json:"dataVersion"`
}

// Dataset is the persisted artifact served by the API.
type Dataset struct {
	Metadata DatasetMetadata  `json:"metadata"`
	Team     []EnrichedMember `json:"team"`
}
