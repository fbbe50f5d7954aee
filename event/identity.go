package event

import (
	"strings"
	"time"
)

// instantLayout is the canonical UTC form used for instance identifiers,
// override matching and exception-date comparison.
const instantLayout = "20060102T150405Z"

// instanceDelimiter separates the master UID from the instance marker in
// a composite occurrence identifier. Identifiers are constructed, never
// parsed back except to recover the master UID.
const instanceDelimiter = "::"

// FormatInstant renders an absolute instant in the canonical UTC form.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(instantLayout)
}

// InstanceID builds the composite identifier of an occurrence instance.
func InstanceID(masterUID string, start time.Time) string {
	return masterUID + instanceDelimiter + FormatInstant(start)
}

// MasterUID recovers the master UID from an event identifier by locating
// the first instance delimiter. Identifiers without a delimiter are
// returned unchanged.
func MasterUID(id string) string {
	if i := strings.Index(id, instanceDelimiter); i >= 0 {
		return id[:i]
	}
	return id
}

// OverrideKey identifies the specific default occurrence an override
// event replaces.
type OverrideKey struct {
	MasterUID string
	Instant   string // canonical UTC form, see FormatInstant
}

// NewOverrideKey builds an override key from a master UID and the
// original occurrence instant.
func NewOverrideKey(masterUID string, original time.Time) OverrideKey {
	return OverrideKey{MasterUID: masterUID, Instant: FormatInstant(original)}
}

// Key is the deduplication identity of an event. Two events differing
// only in RecurrenceID are distinct and must both survive deduplication.
type Key struct {
	ID            string
	Subject       string
	StartUnixNano int64
	EndUnixNano   int64
	IsAllDay      bool
	RecurrenceID  string
}

// Key returns the deduplication identity of the event.
func (e CalendarEvent) Key() Key {
	return Key{
		ID:            e.ID,
		Subject:       e.Subject,
		StartUnixNano: e.Start.UnixNano(),
		EndUnixNano:   e.End.UnixNano(),
		IsAllDay:      e.IsAllDay,
		RecurrenceID:  e.RecurrenceID,
	}
}

// Deduplicate removes events sharing the same Key, keeping the first
// occurrence of each and preserving input order.
func Deduplicate(events []CalendarEvent) []CalendarEvent {
	if len(events) < 2 {
		return events
	}
	seen := make(map[Key]struct{}, len(events))
	out := make([]CalendarEvent, 0, len(events))
	for _, ev := range events {
		k := ev.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, ev)
	}
	return out
}
