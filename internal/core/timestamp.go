package core

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// DefaultTimeZone is used when neither configuration nor tags name a zone.
const DefaultTimeZone = "Europe/London"

// Layouts carrying their own offset. Tried first.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999Z0700",
}

// Layouts without an offset, read as wall-clock time in the default zone.
// Day-first: producers write DD/MM/YYYY.
var localLayouts = []string{
	"2/1/2006 15:04",
	"2/1/2006 15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// TimestampNormalizer turns event-time text into a UTC instant.
type TimestampNormalizer struct {
	loc *time.Location
}

// NewTimestampNormalizer resolves zone ("" means DefaultTimeZone).
func NewTimestampNormalizer(zone string) (*TimestampNormalizer, error) {
	if zone == "" {
		zone = DefaultTimeZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", zone, err)
	}
	return &TimestampNormalizer{loc: loc}, nil
}

// Location returns the zone applied to zone-less timestamps.
func (n *TimestampNormalizer) Location() *time.Location { return n.loc }

// Normalize tries each known layout in a fixed order. Zone-less values are
// interpreted in the default zone, so daylight saving is applied per date.
func (n *TimestampNormalizer) Normalize(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, n.loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
