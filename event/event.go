// Package event defines the shared calendar event model used by the
// expansion, merging and pipeline packages.
package event

import (
	"time"
)

// ShowAs describes the free/busy intent attached to an event.
type ShowAs string

const (
	ShowAsFree             ShowAs = "FREE"
	ShowAsTentative        ShowAs = "TENTATIVE"
	ShowAsBusy             ShowAs = "BUSY"
	ShowAsOutOfOffice      ShowAs = "OUT_OF_OFFICE"
	ShowAsWorkingElsewhere ShowAs = "WORKING_ELSEWHERE"
)

// RecurrenceRule carries the raw recurrence metadata of a master event.
type RecurrenceRule struct {
	Text       string      // RRULE value without the "RRULE:" prefix
	ExDates    []time.Time // excluded occurrence instants, resolved to absolute time
	RawExDates []string    // EXDATE values as received, kept for diagnostics
}

// CalendarEvent is a single event or occurrence instance.
//
// Start and End are absolute instants; StartTZ and EndTZ record the
// originating timezone labels so renderers can project back into local
// wall-clock time. Recurrence metadata is modeled as explicit optional
// fields rather than attached after construction.
type CalendarEvent struct {
	ID       string
	Subject  string
	Start    time.Time
	End      time.Time
	StartTZ  string
	EndTZ    string
	IsAllDay bool

	ShowAs      ShowAs
	IsCancelled bool
	Location    string
	Attendees   []string

	// IsRecurring marks masters carrying a recurrence rule and the
	// instances expanded from them.
	IsRecurring bool

	// RecurrenceID is the raw RECURRENCE-ID value of an override event,
	// identifying the default occurrence it replaces. Empty for
	// everything that is not an override.
	RecurrenceID string

	// IsExpandedInstance is true only for occurrences produced by the
	// expander, never for events read from a feed.
	IsExpandedInstance bool

	// RRuleMasterUID links an expanded instance back to its master.
	RRuleMasterUID string

	// Recurrence is set on recurring masters only.
	Recurrence *RecurrenceRule

	// SourceID identifies the feed this event came from.
	SourceID string
}

// Duration returns the span between Start and End.
func (e CalendarEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Clone returns a copy of the event with its own attendee slice, so
// occurrence instances can be derived from a master without sharing
// mutable state.
func (e CalendarEvent) Clone() CalendarEvent {
	out := e
	if e.Attendees != nil {
		out.Attendees = make([]string, len(e.Attendees))
		copy(out.Attendees, e.Attendees)
	}
	if e.Recurrence != nil {
		rule := *e.Recurrence
		if e.Recurrence.ExDates != nil {
			rule.ExDates = make([]time.Time, len(e.Recurrence.ExDates))
			copy(rule.ExDates, e.Recurrence.ExDates)
		}
		if e.Recurrence.RawExDates != nil {
			rule.RawExDates = make([]string, len(e.Recurrence.RawExDates))
			copy(rule.RawExDates, e.Recurrence.RawExDates)
		}
		out.Recurrence = &rule
	}
	return out
}

// IsOverride reports whether the event replaces a specific occurrence of
// a master series.
func (e CalendarEvent) IsOverride() bool {
	return e.RecurrenceID != ""
}
