package domain

import "errors"

var (
	// ErrMemberNotFound is returned when no enriched member has the requested id.
	ErrMemberNotFound = errors.New("team member not found")

	// ErrMalformedInput wraps unreadable or unparsable source artifacts.
	ErrMalformedInput = errors.New("malformed input")

	// ErrNoResults marks a forward geocode that returned an empty candidate list.
	ErrNoResults = errors.New("no geocoding results")
)
