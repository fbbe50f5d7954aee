package timezone

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layouts tried for date-time values, in order. Feeds are inconsistent
// about separators and seconds, so several sub-formats are attempted
// before giving up.
var (
	dateOnlyLayouts = []string{
		"20060102",
		"2006-01-02",
	}
	utcLayouts = []string{
		"20060102T150405Z",
		"2006-01-02T15:04:05Z",
		time.RFC3339,
	}
	localLayouts = []string{
		"20060102T150405",
		"20060102T1504",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
)

// ParseDateTime parses a date-time value as found in EXDATE and
// RECURRENCE-ID fields, including combined "TZID=<name>:<local>" forms,
// and returns the absolute instant.
//
// Date-only values become midnight UTC. An unresolvable TZID falls back
// to the default zone with a logged warning; unparseable text is the
// only error case, and callers skip the offending entry.
func (r *Resolver) ParseDateTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty date-time value")
	}
	tzid, rest, ok := splitTZID(value)
	if ok {
		return r.ParseDateTimeIn(rest, tzid)
	}
	return r.parseIn(value, r.defaultLoc)
}

// ParseDateTimeIn parses a date-time value whose TZID arrived separately
// (as an iCalendar property parameter). An empty tzid selects the
// default zone.
func (r *Resolver) ParseDateTimeIn(value, tzid string) (time.Time, error) {
	loc := r.defaultLoc
	if tzid != "" {
		loc = r.NormalizeOrDefault(tzid)
	}
	return r.parseIn(strings.TrimSpace(value), loc)
}

func (r *Resolver) parseIn(value string, loc *time.Location) (time.Time, error) {
	// Date-only values are anchored at midnight UTC so they compare
	// against the date-only exception convention used downstream.
	for _, layout := range dateOnlyLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	for _, layout := range utcLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return r.ToInstant(t, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date-time %q", value)
}

// ParseExceptionDates parses an EXDATE property value: comma-separated
// instants sharing one optional TZID prefix. Malformed entries are
// skipped with a warning; well-formed siblings still apply.
func (r *Resolver) ParseExceptionDates(raw string) []time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	loc := r.defaultLoc
	if tzid, rest, ok := splitTZID(raw); ok {
		loc = r.NormalizeOrDefault(tzid)
		raw = rest
	}

	var out []time.Time
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, err := r.parseIn(part, loc)
		if err != nil {
			r.logger.Warn("skipping malformed exception date", "value", part)
			continue
		}
		out = append(out, t)
	}
	return out
}

// splitTZID splits a combined "TZID=<name>:<datetime>" value. Windows
// display names contain spaces but never colons, so the first colon
// terminates the zone name.
func splitTZID(value string) (tzid, rest string, ok bool) {
	if !strings.HasPrefix(value, "TZID=") {
		return "", value, false
	}
	tzid, rest, ok = strings.Cut(strings.TrimPrefix(value, "TZID="), ":")
	if !ok {
		return "", value, false
	}
	return tzid, rest, true
}
