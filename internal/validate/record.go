// Package validate is the single source of truth for location record,
// photo caption, and photo file validation. The same validators run on
// live-field feedback and on full-record submission, so rules are never
// duplicated at call sites.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dkiernan/scoutpost/internal/location"
)

// Record field limits.
const (
	MaxNameLength  = 100
	MaxNotesLength = 500
)

var zipcodePattern = regexp.MustCompile(`^\d{5}$`)

// RecordResult is the outcome of validating a candidate record. Errors
// block persistence; warnings are surfaced to the user but do not.
type RecordResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Record validates a candidate location record. It is pure: no I/O, no
// mutation of the candidate.
func Record(rec *location.Record) RecordResult {
	var res RecordResult

	// Required fields.
	if strings.TrimSpace(rec.Name) == "" {
		res.Errors = append(res.Errors, "name is required")
	}
	if strings.TrimSpace(rec.Type) == "" {
		res.Errors = append(res.Errors, "type is required")
	} else if !location.ValidType(rec.Type) {
		res.Errors = append(res.Errors, fmt.Sprintf("unknown location type %q", rec.Type))
	}
	if strings.TrimSpace(rec.EntryPoint) == "" {
		res.Errors = append(res.Errors, "entry point is required")
	}
	if strings.TrimSpace(rec.Parking) == "" {
		res.Errors = append(res.Errors, "parking is required")
	}
	if strings.TrimSpace(rec.Access) == "" {
		res.Errors = append(res.Errors, "access is required")
	}

	// Length limits.
	if utf8.RuneCountInString(rec.Name) > MaxNameLength {
		res.Errors = append(res.Errors, fmt.Sprintf("name must be %d characters or fewer", MaxNameLength))
	}
	if utf8.RuneCountInString(rec.ProductionNotes) > MaxNotesLength {
		res.Errors = append(res.Errors, fmt.Sprintf("production notes must be %d characters or fewer", MaxNotesLength))
	}

	// Coordinates. An exact (0, 0) is almost always a geocoding miss in
	// the field, but it is a legal point, so it only warns.
	if rec.Lat < -90 || rec.Lat > 90 {
		res.Errors = append(res.Errors, fmt.Sprintf("latitude %v is outside [-90, 90]", rec.Lat))
	}
	if rec.Lng < -180 || rec.Lng > 180 {
		res.Errors = append(res.Errors, fmt.Sprintf("longitude %v is outside [-180, 180]", rec.Lng))
	}
	if rec.Lat == 0 && rec.Lng == 0 {
		res.Warnings = append(res.Warnings, "coordinates are exactly (0, 0); the pin may not have resolved")
	}

	// Address quality.
	if utf8.RuneCountInString(rec.State) > 2 {
		res.Warnings = append(res.Warnings, "state should be a 2-letter code")
	}
	if rec.Zipcode != "" && !zipcodePattern.MatchString(rec.Zipcode) {
		res.Warnings = append(res.Warnings, "zipcode should be 5 digits")
	}
	if rec.Number != "" && rec.Street == "" {
		res.Warnings = append(res.Warnings, "street number given without a street name")
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// FormatAddress deterministically joins address components: the street
// line (number + street), the city, and the state + zipcode pair, each
// space-joined and trimmed, then joined with ", " with empty segments
// dropped. All-empty input yields the empty string; substituting a
// placeholder is the caller's concern.
func FormatAddress(number, street, city, state, zipcode string) string {
	var segments []string

	if line := strings.TrimSpace(strings.TrimSpace(number) + " " + strings.TrimSpace(street)); line != "" {
		segments = append(segments, line)
	}
	if c := strings.TrimSpace(city); c != "" {
		segments = append(segments, c)
	}
	if tail := strings.TrimSpace(strings.TrimSpace(state) + " " + strings.TrimSpace(zipcode)); tail != "" {
		segments = append(segments, tail)
	}

	return strings.Join(segments, ", ")
}
