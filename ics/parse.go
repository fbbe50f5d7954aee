package ics

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/calyptra/liboccur/event"
	"github.com/calyptra/liboccur/timezone"
)

// Parse decodes an ICS payload into calendar events. Recurrence rules
// are captured raw, not expanded; EXDATE and RECURRENCE-ID values are
// resolved through the given timezone resolver.
//
// A VEVENT that cannot be parsed is skipped with a warning so one
// broken event never takes down the rest of its feed. Only an
// undecodable payload is an error.
func Parse(src Source, body []byte, resolver *timezone.Resolver, logger *slog.Logger) ([]event.CalendarEvent, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(body) == 0 {
		return nil, &Error{Type: ErrDecode, Message: "empty ICS body from " + src.ID}
	}

	var events []event.CalendarEvent

	dec := ical.NewDecoder(bytes.NewReader(body))
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &Error{Type: ErrDecode, Message: "decoding feed " + src.ID, Err: err}
		}

		for _, ve := range cal.Events() {
			ev, perr := parseEvent(src, ve, resolver, logger)
			if perr != nil {
				logger.Warn("skipping unparseable event",
					"feed", src.ID,
					"err", perr)
				continue
			}
			events = append(events, ev)
		}
	}

	logger.Debug("feed parsed",
		"feed", src.ID,
		"events", len(events))
	return events, nil
}

func parseEvent(src Source, ve ical.Event, resolver *timezone.Resolver, logger *slog.Logger) (event.CalendarEvent, error) {
	out := event.CalendarEvent{SourceID: src.ID, ShowAs: event.ShowAsBusy}

	if uidProp := ve.Props.Get(ical.PropUID); uidProp != nil && uidProp.Value != "" {
		out.ID = uidProp.Value
	} else {
		out.ID = uuid.NewString()
		logger.Warn("event has no UID, generated one",
			"feed", src.ID,
			"uid", out.ID)
	}

	if p := ve.Props.Get(ical.PropSummary); p != nil {
		out.Subject = p.Value
	}
	if p := ve.Props.Get(ical.PropLocation); p != nil {
		out.Location = p.Value
	}

	dtstart := ve.Props.Get(ical.PropDateTimeStart)
	if dtstart == nil || dtstart.Value == "" {
		return out, fmt.Errorf("event %s has no DTSTART", out.ID)
	}
	out.IsAllDay = isDateValue(dtstart)
	out.StartTZ = paramValue(dtstart.Params, "TZID")

	start, err := resolver.ParseDateTimeIn(dtstart.Value, out.StartTZ)
	if err != nil {
		return out, fmt.Errorf("event %s: DTSTART: %w", out.ID, err)
	}
	out.Start = start
	out.End = defaultEnd(start, out.IsAllDay)

	if dtend := ve.Props.Get(ical.PropDateTimeEnd); dtend != nil && dtend.Value != "" {
		out.EndTZ = paramValue(dtend.Params, "TZID")
		if end, err := resolver.ParseDateTimeIn(dtend.Value, out.EndTZ); err == nil {
			out.End = end
		} else {
			logger.Warn("unparseable DTEND, using default duration",
				"feed", src.ID,
				"uid", out.ID,
				"value", dtend.Value)
		}
	} else if durationProp := ve.Props.Get(ical.PropDuration); durationProp != nil {
		if duration, err := durationProp.Duration(); err == nil {
			out.End = start.Add(duration)
		}
	}
	// All-day events span at least one whole day; a DTEND on the start
	// date itself is the degenerate form some producers emit.
	if out.IsAllDay && !out.End.After(out.Start) {
		out.End = out.Start.AddDate(0, 0, 1)
	}
	if out.End.Before(out.Start) {
		logger.Warn("event ends before it starts, treating as instantaneous",
			"feed", src.ID,
			"uid", out.ID)
		out.End = out.Start
	}

	if rruleProp := ve.Props.Get(ical.PropRecurrenceRule); rruleProp != nil && rruleProp.Value != "" {
		out.IsRecurring = true
		rec := &event.RecurrenceRule{Text: rruleProp.Value}
		for _, p := range ve.Props.Values(ical.PropExceptionDates) {
			if p.Value == "" {
				continue
			}
			combined := p.Value
			if tzid := paramValue(p.Params, "TZID"); tzid != "" {
				combined = "TZID=" + tzid + ":" + p.Value
			}
			rec.RawExDates = append(rec.RawExDates, combined)
			rec.ExDates = append(rec.ExDates, resolver.ParseExceptionDates(combined)...)
		}
		out.Recurrence = rec
	}

	if ridProp := ve.Props.Get("RECURRENCE-ID"); ridProp != nil && ridProp.Value != "" {
		out.IsRecurring = true
		out.RecurrenceID = ridProp.Value
		if tzid := paramValue(ridProp.Params, "TZID"); tzid != "" {
			out.RecurrenceID = "TZID=" + tzid + ":" + ridProp.Value
		}
	}

	if p := ve.Props.Get(ical.PropStatus); p != nil && strings.EqualFold(p.Value, "CANCELLED") {
		out.IsCancelled = true
	}

	out.ShowAs = parseShowAs(ve)

	for _, p := range ve.Props.Values(ical.PropAttendee) {
		addr := p.Value
		if len(addr) >= 7 && strings.EqualFold(addr[:7], "mailto:") {
			addr = addr[7:]
		}
		if addr != "" {
			out.Attendees = append(out.Attendees, addr)
		}
	}

	return out, nil
}

// parseShowAs derives the availability marker. Outlook-family feeds
// carry X-MICROSOFT-CDO-BUSYSTATUS; plain RFC 5545 feeds only signal
// free time via TRANSP:TRANSPARENT.
func parseShowAs(ve ical.Event) event.ShowAs {
	if p := ve.Props.Get("X-MICROSOFT-CDO-BUSYSTATUS"); p != nil {
		switch strings.ToUpper(strings.TrimSpace(p.Value)) {
		case "FREE":
			return event.ShowAsFree
		case "TENTATIVE":
			return event.ShowAsTentative
		case "BUSY":
			return event.ShowAsBusy
		case "OOF":
			return event.ShowAsOutOfOffice
		case "WORKINGELSEWHERE":
			return event.ShowAsWorkingElsewhere
		}
	}
	if p := ve.Props.Get(ical.PropTransparency); p != nil && strings.EqualFold(p.Value, "TRANSPARENT") {
		return event.ShowAsFree
	}
	return event.ShowAsBusy
}

// defaultEnd gives the end used when a VEVENT carries neither DTEND
// nor DURATION: one day for all-day events, zero duration otherwise.
func defaultEnd(start time.Time, allDay bool) time.Time {
	if allDay {
		return start.AddDate(0, 0, 1)
	}
	return start
}

// isDateValue reports whether a property carries a date rather than a
// date-time, either via VALUE=DATE or by the bare YYYYMMDD form.
func isDateValue(p *ical.Prop) bool {
	if strings.EqualFold(paramValue(p.Params, "VALUE"), "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func paramValue(params map[string][]string, name string) string {
	if params == nil {
		return ""
	}
	if vs := params[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}
