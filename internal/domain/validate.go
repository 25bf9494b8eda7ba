package domain

import "fmt"

// ValidationPhase groups the problems found by one integrity check.
type ValidationPhase struct {
	Name   string
	Errors []string
}

func (p *ValidationPhase) errorf(format string, args ...any) {
	p.Errors = append(p.Errors, fmt.Sprintf(format, args...))
}

// Passed reports whether the phase found no problems.
func (p *ValidationPhase) Passed() bool { return len(p.Errors) == 0 }

// ValidateDataset checks a generated dataset against the checkpoint it was merged
// from. It never mutates either input.
func ValidateDataset(ds *Dataset, report *GeocodeReport) []*ValidationPhase {
	return []*ValidationPhase{
		validateMetadata(ds),
		validateCoordinates(ds),
		validateJoin(ds, report),
		validateIdentifiers(ds),
	}
}

func validateMetadata(ds *Dataset) *ValidationPhase {
	p := &ValidationPhase{Name: "metadata"}
	if ds.Metadata.TotalMembers != len(ds.Team) {
		p.errorf("totalMembers=%d but team has %d entries", ds.Metadata.TotalMembers, len(ds.Team))
	}
	if ds.Metadata.LastUpdated == "" {
		p.errorf("lastUpdated is empty")
	}
	if ds.Metadata.DataVersion == "" {
		p.errorf("dataVersion is empty")
	}
	return p
}

func validateCoordinates(ds *Dataset) *ValidationPhase {
	p := &ValidationPhase{Name: "coordinates"}
	for _, m := range ds.Team {
		if !ValidCoordinates(m.Latitude, m.Longitude) {
			p.errorf("member %d (%s): invalid coordinates (%v, %v)", m.ID, m.Name, m.Latitude, m.Longitude)
		}
	}
	return p
}

func validateJoin(ds *Dataset, report *GeocodeReport) *ValidationPhase {
	p := &ValidationPhase{Name: "join"}
	for _, m := range ds.Team {
		key := LocationKey{Location: m.Location, Country: m.Country}
		res, ok := report.Result(key)
		switch {
		case !ok:
			p.errorf("member %d (%s): no geocode result for %q", m.ID, m.Name, key.String())
		case !res.Success:
			p.errorf("member %d (%s): geocode result for %q is a failure", m.ID, m.Name, key.String())
		case res.Latitude != m.Latitude || res.Longitude != m.Longitude:
			p.errorf("member %d (%s): coordinates (%v, %v) differ from result (%v, %v)",
				m.ID, m.Name, m.Latitude, m.Longitude, res.Latitude, res.Longitude)
		}
	}
	return p
}

func validateIdentifiers(ds *Dataset) *ValidationPhase {
	p := &ValidationPhase{Name: "identifiers"}
	seen := make(map[int64]bool, len(ds.Team))
	for _, m := range ds.Team {
		if seen[m.ID] {
			p.errorf("duplicate member id %d", m.ID)
		}
		seen[m.ID] = true
	}
	return p
}
