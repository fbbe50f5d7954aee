// Package timezone normalizes timezone identifiers found in calendar
// feeds (IANA names, Windows display names, legacy aliases) and converts
// local wall-clock times to absolute instants, including disambiguation
// at DST boundaries.
package timezone

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrZoneNotFound is returned when an identifier resolves through none
// of the lookup tables and is not a valid IANA zone name.
var ErrZoneNotFound = errors.New("timezone not found")

// Resolver resolves timezone identifiers and performs local-time math.
// A Resolver carries the documented fallback zone used when a feed names
// a zone nobody can resolve; it never falls back to UTC silently unless
// UTC is that configured fallback.
type Resolver struct {
	defaultName string
	defaultLoc  *time.Location
	logger      *slog.Logger
}

// New creates a Resolver with the given fallback zone. The fallback must
// itself resolve; an empty name selects UTC.
func New(defaultZone string, logger *slog.Logger) (*Resolver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultZone == "" {
		defaultZone = "UTC"
	}
	loc, err := lookup(defaultZone)
	if err != nil {
		return nil, fmt.Errorf("resolving default zone %q: %w", defaultZone, err)
	}
	return &Resolver{defaultName: defaultZone, defaultLoc: loc, logger: logger}, nil
}

// DefaultLocation returns the configured fallback zone.
func (r *Resolver) DefaultLocation() *time.Location {
	return r.defaultLoc
}

// DefaultZone returns the configured fallback zone name.
func (r *Resolver) DefaultZone() string {
	return r.defaultName
}

// lookup resolves a name through the Windows table, then the legacy
// alias table, then the zone database itself.
func lookup(name string) (*time.Location, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, ErrZoneNotFound
	}
	if iana, ok := windowsToIANA[trimmed]; ok {
		trimmed = iana
	} else if iana, ok := legacyAliases[trimmed]; ok {
		trimmed = iana
	}
	loc, err := time.LoadLocation(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrZoneNotFound, name)
	}
	return loc, nil
}

// Normalize resolves any timezone identifier to an IANA zone.
// Resolution order: Windows display names, legacy aliases, then the
// name validated against the zone database.
func (r *Resolver) Normalize(name string) (*time.Location, error) {
	return lookup(name)
}

// NormalizeOrDefault resolves a timezone identifier, falling back to the
// configured default zone with a logged warning when resolution fails.
func (r *Resolver) NormalizeOrDefault(name string) *time.Location {
	loc, err := lookup(name)
	if err != nil {
		r.logger.Warn("unresolvable timezone, using default",
			"name", name,
			"default", r.defaultName)
		return r.defaultLoc
	}
	return loc
}

// ToInstant converts the wall-clock fields of wall, read in loc, to an
// absolute instant. A nil loc selects the resolver's default zone.
//
// Nonexistent local times (spring-forward gap) take the zone database's
// forward-shifted interpretation. Ambiguous local times (fall-back
// overlap) take the earliest matching instant, which corresponds to the
// pre-transition offset; identical input always yields identical output.
func (r *Resolver) ToInstant(wall time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = r.defaultLoc
	}
	guess := time.Date(wall.Year(), wall.Month(), wall.Day(),
		wall.Hour(), wall.Minute(), wall.Second(), wall.Nanosecond(), loc)

	// Probe the UTC offsets in force around the guess. Each distinct
	// offset gives one candidate instant; a fall-back overlap produces
	// two candidates whose wall clock round-trips to the input.
	var best time.Time
	found := false
	for _, probe := range [3]time.Time{guess.Add(-24 * time.Hour), guess, guess.Add(24 * time.Hour)} {
		_, offset := probe.Zone()
		candidate := wallAsUTC(wall).Add(-time.Duration(offset) * time.Second)
		if !sameWallClock(candidate.In(loc), wall) {
			continue
		}
		if !found || candidate.Before(best) {
			best = candidate
			found = true
		}
	}
	if !found {
		// No offset reproduces the wall clock: the time falls in a
		// spring-forward gap, and time.Date already shifted it forward.
		return guess
	}
	return best
}

// ToLocalWall projects an absolute instant back into the wall clock of
// loc. A nil loc selects the resolver's default zone.
func (r *Resolver) ToLocalWall(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = r.defaultLoc
	}
	return t.In(loc)
}

func wallAsUTC(wall time.Time) time.Time {
	return time.Date(wall.Year(), wall.Month(), wall.Day(),
		wall.Hour(), wall.Minute(), wall.Second(), wall.Nanosecond(), time.UTC)
}

func sameWallClock(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day() &&
		a.Hour() == b.Hour() && a.Minute() == b.Minute() && a.Second() == b.Second()
}
