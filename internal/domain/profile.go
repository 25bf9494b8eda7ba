package domain

// Coordinates is a WGS-84 latitude/longitude pair as authored in the profile file.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ProfileLocation is one place the applicant spends time in. Percentages across
// locations are not required to sum to 100.
type ProfileLocation struct {
	City        string      `json:"city"`
	Country     string      `json:"country"`
	Flag        string      `json:"flag"`
	Coordinates Coordinates `json:"coordinates"`
	Percentage  float64     `json:"percentage"`
}

// ProfileLink is an external link shown on the applicant card.
type ProfileLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// ApplicantProfile is hand-authored and served as-is; the pipeline never produces it.
type ApplicantProfile struct {
	Name      string            `json:"name"`
	Role      string            `json:"role"`
	Headline  string            `json:"headline,omitempty"`
	Bio       string            `json:"bio"`
	Locations []ProfileLocation `json:"locations"`
	Links     []ProfileLink     `json:"links,omitempty"`
}
