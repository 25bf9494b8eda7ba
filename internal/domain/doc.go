// Package domain models scraped team directory data and the rules that turn it
// into map-ready pins.
//
// # Data Source
//
// Team records come from a one-off scrape of a public team directory. Each record
// carries a free-text location typed by the person themselves ("Berlin",
// "Greater Seattle Area", "Remote", "Olsztyn, Poland") and a separate two-letter
// country code. Neither field is validated by the source; both may be null.
//
// # Location Keys
//
// A location is identified by the pair (location, country), written as
//
//	"<location>|<country>"  →  e.g. "Berlin|DE", "|" for a fully null record.
//
// Many people share a key. The key is the deduplication unit for geocoding and the
// join key when coordinates are merged back onto records.
//
// # Problematic Locations
//
// Locations that are empty, the literal "null", or contain a placeholder such as
// "world", "remote" or "digital nomad" rarely geocode to anything meaningful. They
// are still resolved, first, and reported separately. Empty, null and "world" are
// rewritten to a fixed sentinel place ("North Pole") so every record still gets a
// pin.
//
// # Normalization
//
// Before a location is sent to a provider it is rewritten by [Heuristics.Normalize]:
//
//	sentinel substitution   ""               → "North Pole"
//	UK suffix               "London, UK"     → "London"        (country GB/UK)
//	greater-area collapse   "Greater X Area" → "X"
//	country-name strip      "Olsztyn, Poland"→ "Olsztyn"       (country PL)
//
// The provider query appends the country code ("Seattle, US") unless the location
// resolved to the sentinel.
//
// # Verification
//
// A sample of forward results is reverse geocoded. A result passes when the
// reverse address contains the original location, or the original location
// contains the reverse city. Comparisons are case and accent insensitive.
package domain
