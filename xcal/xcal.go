// Package xcal serializes consolidated events into the xCal XML format
// defined by RFC 6321.
package xcal

import (
	"time"

	"github.com/beevik/etree"

	"github.com/calyptra/liboccur/event"
)

// Namespace is the xCal XML namespace.
const Namespace = "urn:ietf:params:xml:ns:icalendar-2.0"

const prodID = "-//calyptra//liboccur//EN"

// xCal uses extended-format dates, unlike the compact iCalendar forms.
const (
	dateTimeLayout = "2006-01-02T15:04:05Z"
	dateLayout     = "2006-01-02"
)

// Marshal renders the event list as one xCal icalendar document.
// Consolidation bookkeeping (master UID, override origin, availability)
// travels in x- properties so XML consumers keep the full picture.
func Marshal(events []event.CalendarEvent) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)

	root := doc.CreateElement("icalendar")
	root.CreateAttr("xmlns", Namespace)

	vcal := root.CreateElement("vcalendar")
	calProps := vcal.CreateElement("properties")
	textProp(calProps, "prodid", prodID)
	textProp(calProps, "version", "2.0")

	comps := vcal.CreateElement("components")
	for _, ev := range events {
		appendEvent(comps, ev)
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}

func appendEvent(parent *etree.Element, ev event.CalendarEvent) {
	props := parent.CreateElement("vevent").CreateElement("properties")

	textProp(props, "uid", ev.ID)
	if ev.Subject != "" {
		textProp(props, "summary", ev.Subject)
	}
	timeProp(props, "dtstart", ev.Start, ev.IsAllDay)
	timeProp(props, "dtend", ev.End, ev.IsAllDay)
	if ev.Location != "" {
		textProp(props, "location", ev.Location)
	}
	if ev.IsCancelled {
		textProp(props, "status", "CANCELLED")
	}
	for _, attendee := range ev.Attendees {
		elem := props.CreateElement("attendee")
		elem.CreateElement("cal-address").SetText("mailto:" + attendee)
	}
	if ev.ShowAs != "" {
		textProp(props, "x-liboccur-show-as", string(ev.ShowAs))
	}
	if ev.IsExpandedInstance {
		textProp(props, "x-liboccur-master-uid", ev.RRuleMasterUID)
	}
	if ev.RecurrenceID != "" {
		textProp(props, "x-liboccur-recurrence-id", ev.RecurrenceID)
	}
}

// textProp appends <name><text>value</text></name>.
func textProp(parent *etree.Element, name, value string) {
	parent.CreateElement(name).CreateElement("text").SetText(value)
}

// timeProp appends a date-time value, or a date value for all-day
// events, in the UTC extended form.
func timeProp(parent *etree.Element, name string, t time.Time, allDay bool) {
	elem := parent.CreateElement(name)
	if allDay {
		elem.CreateElement("date").SetText(t.UTC().Format(dateLayout))
		return
	}
	elem.CreateElement("date-time").SetText(t.UTC().Format(dateTimeLayout))
}
